package server

import (
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/daryltucker/donut-runner/internal/model"
)

const schemaPrefix = "#/components/schemas/"

// OpenAPI describes the HTTP surface. publicURL becomes the single server
// entry; empty means "/".
func OpenAPI(version, publicURL string) *openapi3.T {
	if publicURL == "" {
		publicURL = "/"
	}

	b := schemaBook{}
	b.add("Configuration", configurationSchema())
	b.add("Metric", metricSchema())
	b.add("Error", errorSchema())
	b.add("ExecutionResult", b.executionResultSchema())
	b.add("Interpretation", b.interpretationSchema())
	ref := b.ref
	withErrors := func(r *openapi3.Responses) *openapi3.Responses {
		return addErrorResponses(r, ref("Error"))
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas(b)
	components.SecuritySchemes = openapi3.SecuritySchemes{
		"bearerAuth": &openapi3.SecuritySchemeRef{Value: &openapi3.SecurityScheme{
			Type:   "http",
			Scheme: "bearer",
		}},
		"apiKeyAuth": &openapi3.SecuritySchemeRef{Value: &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   "header",
			Name: "X-API-Key",
		}},
	}

	public := &openapi3.SecurityRequirements{}
	runTimeout := openapi3.NewFloat64Schema().WithMin(0)
	runTimeout.Description = "Seconds before the program is killed. Capped by the server's max_run_timeout."

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "DonutBuffer HTTP facade",
			Description: "Configure, run and interpret DonutBuffer ring buffer benchmarks.",
			Version:     version,
		},
		Servers:    openapi3.Servers{&openapi3.Server{URL: publicURL}},
		Components: &components,
		Security: openapi3.SecurityRequirements{
			{"bearerAuth": []string{}},
			{"apiKeyAuth": []string{}},
		},
	}

	doc.Paths = openapi3.NewPaths(
		openapi3.WithPath("/", &openapi3.PathItem{Get: &openapi3.Operation{
			OperationID: "serviceInfo",
			Summary:     "Service information and endpoint index",
			Security:    public,
			Responses:   ok("Service information", openapi3.NewObjectSchema()),
		}}),
		openapi3.WithPath("/analyze-readme", &openapi3.PathItem{Get: &openapi3.Operation{
			OperationID: "analyzeReadme",
			Summary:     "Summarize the DonutBuffer README",
			Responses:   ok("README analysis", envelope("analysis", openapi3.NewObjectSchema())),
		}}),
		openapi3.WithPath("/configure-buffer", &openapi3.PathItem{Post: &openapi3.Operation{
			OperationID: "configureBuffer",
			Summary:     "Infer a configuration from free-text requirements",
			RequestBody: body(openapi3.NewObjectSchema().
				WithProperty("requirements", openapi3.NewStringSchema()), "requirements"),
			Responses: ok("Inferred configuration", envelope("configuration", nil).
				WithPropertyRef("configuration", ref("Configuration")).
				WithProperty("explanation", openapi3.NewStringSchema()).
				WithProperty("matched_rules", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()))),
		}}),
		openapi3.WithPath("/run-buffer", &openapi3.PathItem{Post: &openapi3.Operation{
			OperationID: "runBuffer",
			Summary:     "Run the benchmark program with a configuration",
			RequestBody: body(openapi3.NewObjectSchema().
				WithPropertyRef("config", ref("Configuration")).
				WithProperty("timeout_seconds", runTimeout), "config"),
			Responses: withErrors(ok("Execution result; success is false when the program failed",
				envelope("execution_result", nil).
					WithPropertyRef("execution_result", ref("ExecutionResult")).
					WithPropertyRef("config_used", ref("Configuration")))),
		}}),
		openapi3.WithPath("/interpret-results", &openapi3.PathItem{Post: &openapi3.Operation{
			OperationID: "interpretResults",
			Summary:     "Interpret benchmark output for a configuration",
			RequestBody: body(openapi3.NewObjectSchema().
				WithProperty("execution_output", openapi3.NewStringSchema()).
				WithPropertyRef("config", ref("Configuration")), "execution_output", "config"),
			Responses: withErrors(ok("Interpretation", envelope("interpretation", nil).
				WithPropertyRef("interpretation", ref("Interpretation")))),
		}}),
		openapi3.WithPath("/benchmark", &openapi3.PathItem{Post: &openapi3.Operation{
			OperationID: "benchmark",
			Summary:     "Infer, run and interpret in one call",
			RequestBody: body(openapi3.NewObjectSchema().
				WithProperty("requirements", openapi3.NewStringSchema()).
				WithProperty("timeout_seconds", runTimeout), "requirements"),
			Responses: withErrors(ok("Benchmark report", envelope("execution_result", nil).
				WithPropertyRef("configuration", ref("Configuration")).
				WithPropertyRef("execution_result", ref("ExecutionResult")).
				WithPropertyRef("interpretation", ref("Interpretation")))),
		}}),
		openapi3.WithPath("/compare-buffers", &openapi3.PathItem{Post: &openapi3.Operation{
			OperationID: "compareBuffers",
			Summary:     "Run one workload on every buffer type and rank them by throughput",
			RequestBody: body(openapi3.NewObjectSchema().
				WithPropertyRef("config", ref("Configuration")).
				WithProperty("timeout_seconds", runTimeout), "config"),
			Responses: withErrors(ok("Ranked comparison", envelope("comparison", openapi3.NewObjectSchema()))),
		}}),
		openapi3.WithPath("/templates", &openapi3.PathItem{Get: &openapi3.Operation{
			OperationID: "listTemplates",
			Summary:     "Named starting configurations",
			Responses: ok("Templates", envelope("templates",
				openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema()))),
		}}),
		openapi3.WithPath("/runs", &openapi3.PathItem{Get: &openapi3.Operation{
			OperationID: "listRuns",
			Summary:     "Recorded runs, newest first",
			Parameters: openapi3.Parameters{&openapi3.ParameterRef{
				Value: openapi3.NewQueryParameter("limit").
					WithSchema(openapi3.NewIntegerSchema().WithMin(1).WithMax(1000)),
			}},
			Responses: withErrors(ok("Run records", envelope("runs",
				openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema())))),
		}}),
		openapi3.WithPath("/health", &openapi3.PathItem{Get: &openapi3.Operation{
			OperationID: "health",
			Summary:     "Program availability",
			Security:    public,
			Responses: ok("Health report", openapi3.NewObjectSchema().
				WithProperty("status", openapi3.NewStringSchema().WithEnum("healthy", "degraded", "unhealthy")).
				WithProperty("program_available", openapi3.NewBoolSchema())),
		}}),
		openapi3.WithPath("/openapi.json", &openapi3.PathItem{Get: &openapi3.Operation{
			OperationID: "openapi",
			Summary:     "This document",
			Security:    public,
			Responses:   ok("OpenAPI document", openapi3.NewObjectSchema()),
		}}),
	)
	return doc
}

// schemaBook holds the component schemas. Refs carry the resolved value so
// the document validates without a loader pass.
type schemaBook map[string]*openapi3.SchemaRef

func (b schemaBook) add(name string, s *openapi3.Schema) {
	b[name] = &openapi3.SchemaRef{Value: s}
}

func (b schemaBook) ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef(schemaPrefix+name, b[name].Value)
}

// envelope is the {success, tool, <key>} wrapper every tool route returns.
// A nil value leaves key to be added by the caller.
func envelope(key string, value *openapi3.Schema) *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("success", openapi3.NewBoolSchema()).
		WithProperty("tool", openapi3.NewStringSchema())
	if value != nil {
		s = s.WithProperty(key, value)
	}
	return s
}

func body(schema *openapi3.Schema, required ...string) *openapi3.RequestBodyRef {
	schema.Required = required
	return &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithJSONSchema(schema)}
}

func ok(description string, schema *openapi3.Schema) *openapi3.Responses {
	return openapi3.NewResponses(openapi3.WithStatus(200, &openapi3.ResponseRef{
		Value: openapi3.NewResponse().WithDescription(description).WithJSONSchema(schema),
	}))
}

func addErrorResponses(r *openapi3.Responses, errRef *openapi3.SchemaRef) *openapi3.Responses {
	for _, e := range []struct {
		status      int
		description string
	}{
		{400, "Malformed request body"},
		{401, "Missing or invalid API key"},
		{422, "Configuration outside its bounds; field and bound name the violation"},
		{503, "Too many concurrent runs"},
	} {
		r.Set(strconv.Itoa(e.status), &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription(e.description).WithJSONSchemaRef(errRef),
		})
	}
	return r
}

func bounded(b model.IntBound, description string) *openapi3.Schema {
	s := openapi3.NewIntegerSchema().WithMin(float64(b.Min)).WithMax(float64(b.Max))
	s.Description = description
	return s
}

func configurationSchema() *openapi3.Schema {
	types := make([]any, 0, len(model.BufferTypes))
	for _, bt := range model.BufferTypes {
		types = append(types, string(bt))
	}
	bufferType := openapi3.NewStringSchema().WithEnum(types...)
	bufferType.Description = "Ring buffer implementation"
	bufferSize := bounded(model.BufferSizeMBBound, "Ring buffer capacity in MB")
	bufferSize.Default = model.DefaultBufferSizeMB
	transfer := bounded(model.TotalTransferMBBound, "Data moved through the buffer in MB")
	transfer.Default = model.DefaultTotalTransferMB

	s := openapi3.NewObjectSchema().
		WithProperty("buffer_type", bufferType).
		WithProperty("producers", bounded(model.ProducersBound, "Producer threads")).
		WithProperty("consumers", bounded(model.ConsumersBound, "Consumer threads")).
		WithProperty("buffer_size_mb", bufferSize).
		WithProperty("total_transfer_mb", transfer).
		WithProperty("gui_enabled", openapi3.NewBoolSchema())
	s.Required = []string{"buffer_type", "producers", "consumers"}
	return s
}

func (b schemaBook) executionResultSchema() *openapi3.Schema {
	classes := []any{
		string(model.ClassSucceeded), string(model.ClassBuildFailure),
		string(model.ClassRuntimeFailure), string(model.ClassTimeout), string(model.ClassCanceled),
	}
	return openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("success", openapi3.NewBoolSchema()).
		WithProperty("classification", openapi3.NewStringSchema().WithEnum(classes...)).
		WithProperty("output", openapi3.NewStringSchema()).
		WithProperty("exit_code", openapi3.NewIntegerSchema()).
		WithProperty("duration_ms", openapi3.NewInt64Schema()).
		WithProperty("started_at", openapi3.NewStringSchema()).
		WithProperty("command", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())).
		WithProperty("truncated", openapi3.NewBoolSchema()).
		WithPropertyRef("config", b.ref("Configuration")).
		WithProperty("error", openapi3.NewStringSchema())
}

func metricSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("value", openapi3.NewFloat64Schema()).
		WithProperty("unit", openapi3.NewStringSchema()).
		WithProperty("normalized", openapi3.NewFloat64Schema()).
		WithProperty("normalized_unit", openapi3.NewStringSchema())
}

func (b schemaBook) interpretationSchema() *openapi3.Schema {
	assessments := []any{
		string(model.AssessmentGood), string(model.AssessmentFair), string(model.AssessmentPoor),
		string(model.AssessmentUnknown), string(model.AssessmentFailed),
	}
	return openapi3.NewObjectSchema().
		WithPropertyRef("throughput", b.ref("Metric")).
		WithPropertyRef("latency", b.ref("Metric")).
		WithProperty("assessment", openapi3.NewStringSchema().WithEnum(assessments...)).
		WithProperty("recommendation", openapi3.NewStringSchema()).
		WithProperty("notes", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())).
		WithPropertyRef("config", b.ref("Configuration"))
}

func errorSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("success", openapi3.NewBoolSchema()).
		WithProperty("error", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("field", openapi3.NewStringSchema()).
		WithProperty("bound", openapi3.NewStringSchema()).
		WithProperty("request_id", openapi3.NewStringSchema())
}
