// Package assets embeds the static content the runner ships with: a fallback
// README for when no DonutBuffer checkout is found, and configuration
// templates.
package assets

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/daryltucker/donut-runner/internal/model"
)

//go:embed readme_fallback.md
var FallbackREADME string

//go:embed templates.yaml
var templatesYAML []byte

// Template is a named, validated starting configuration.
type Template struct {
	Name        string              `json:"name" yaml:"-"`
	Description string              `json:"description" yaml:"description"`
	Config      model.Configuration `json:"config" yaml:"-"`
}

type rawTemplate struct {
	Description string          `yaml:"description"`
	Config      model.Candidate `yaml:"config"`
}

// ParseTemplates decodes a template document and validates every entry.
// Templates are returned sorted by name.
func ParseTemplates(data []byte) ([]Template, error) {
	var raw map[string]rawTemplate
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	out := make([]Template, 0, len(raw))
	for name, rt := range raw {
		cfg, err := rt.Config.Validate()
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		out = append(out, Template{Name: name, Description: rt.Description, Config: cfg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Templates returns the embedded templates.
func Templates() []Template {
	t, err := ParseTemplates(templatesYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the embedded template called name.
func Lookup(name string) (Template, bool) {
	for _, t := range Templates() {
		if t.Name == name {
			return t, true
		}
	}
	return Template{}, false
}
