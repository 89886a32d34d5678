/*
PURPOSE:
  Summarizes the DonutBuffer README for analyze_readme: title, sections,
  key features, build requirements, buffer types and command options.

REQUIREMENTS:
  User-specified:
  - analyze_readme returns a structured documentation summary.

  Implementation-discovered:
  - The facade may run without a DonutBuffer checkout; the embedded
    fallback README keeps the operation useful.
  - Options are documented both in tables and in bullet lists.

ARCHITECTURE INTEGRATION:
  - Called by: internal/service, internal/cli (readme)
  - Uses: github.com/yuin/goldmark, internal/assets

ERROR HANDLING:
  - Load falls back to the embedded README when the file is unreadable and
    reports which source was used.

IMPLEMENTATION RULES:
  - Walk the goldmark AST; do not regex over raw markdown except for
    buffer type names.

USAGE:
  content, source := docs.Load(cfg.ReadmePath)
  a := docs.Analyze(content, source)

SELF-HEALING INSTRUCTIONS:
  - If a README section is not picked up, check sectionKind keywords.

RELATED FILES:
  - internal/assets/readme_fallback.md

MAINTENANCE:
  - Keep knownOptions in sync with engine/args.go.
*/

package docs

import (
	"bytes"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/daryltucker/donut-runner/internal/assets"
	"github.com/daryltucker/donut-runner/internal/model"
)

// SourceEmbedded marks an analysis of the built-in README.
const SourceEmbedded = "embedded"

// Analysis is the structured README summary.
type Analysis struct {
	Source            string            `json:"source"`
	Title             string            `json:"title"`
	Sections          []string          `json:"sections"`
	KeyFeatures       []string          `json:"key_features"`
	BuildRequirements []string          `json:"build_requirements"`
	BufferTypes       []string          `json:"buffer_types"`
	CommandOptions    map[string]string `json:"command_options"`
	CodeBlocks        int               `json:"code_blocks"`
	Content           string            `json:"content,omitempty"`
}

// knownOptions describes the program flags when the README does not.
var knownOptions = map[string]string{
	"--nogui":             "Run without GUI",
	"--buffer-type":       "Type of buffer to use",
	"--producers":         "Number of producer threads",
	"--consumers":         "Number of consumer threads",
	"--buffer-size_mb":    "Buffer size in megabytes",
	"--total-transfer_mb": "Total data transfer in megabytes",
}

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

	optionPattern   = regexp.MustCompile(`^(--[a-z][a-z0-9_-]*)(?:=\S*)?\s*[:\-–]?\s*(.*)$`)
	bufferTypeWords = regexp.MustCompile(`(?i)\b(lock-?free|mutex(?:-guarded)?|concurrent[_ -]queue)\b`)
)

type sectionKind int

const (
	sectionOther sectionKind = iota
	sectionFeatures
	sectionRequirements
	sectionOptions
)

func kindOf(heading string) sectionKind {
	h := strings.ToLower(heading)
	switch {
	case strings.Contains(h, "feature"):
		return sectionFeatures
	case strings.Contains(h, "requirement"), strings.Contains(h, "prerequisite"), strings.Contains(h, "dependenc"):
		return sectionRequirements
	case strings.Contains(h, "option"), strings.Contains(h, "usage"), strings.Contains(h, "command"):
		return sectionOptions
	default:
		return sectionOther
	}
}

// Load reads the README at path, falling back to the embedded copy.
func Load(path string) ([]byte, string) {
	if path != "" {
		if data, err := os.ReadFile(path); err == nil && len(bytes.TrimSpace(data)) > 0 {
			return data, path
		}
	}
	return []byte(assets.FallbackREADME), SourceEmbedded
}

// Analyze summarizes README content.
func Analyze(content []byte, source string) Analysis {
	a := Analysis{
		Source:            source,
		Sections:          []string{},
		KeyFeatures:       []string{},
		BuildRequirements: []string{},
		CommandOptions:    map[string]string{},
		Content:           string(content),
	}
	doc := markdown.Parser().Parse(text.NewReader(content))

	kind := sectionOther
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			title := nodeText(node, content)
			if node.Level == 1 && a.Title == "" {
				a.Title = title
			} else {
				a.Sections = append(a.Sections, title)
				kind = kindOf(title)
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			a.CodeBlocks++
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			item := strings.TrimSpace(nodeText(node, content))
			if item == "" {
				return ast.WalkSkipChildren, nil
			}
			if m := optionPattern.FindStringSubmatch(item); m != nil {
				a.CommandOptions[m[1]] = strings.TrimSpace(m[2])
				return ast.WalkSkipChildren, nil
			}
			switch kind {
			case sectionFeatures:
				a.KeyFeatures = append(a.KeyFeatures, item)
			case sectionRequirements:
				a.BuildRequirements = append(a.BuildRequirements, item)
			}
			return ast.WalkSkipChildren, nil
		case *east.TableRow:
			first := node.FirstChild()
			if first == nil || first.NextSibling() == nil {
				return ast.WalkSkipChildren, nil
			}
			name := strings.TrimSpace(nodeText(first, content))
			if m := optionPattern.FindStringSubmatch(name); m != nil {
				a.CommandOptions[m[1]] = strings.TrimSpace(nodeText(first.NextSibling(), content))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for name, desc := range knownOptions {
		if _, ok := a.CommandOptions[name]; !ok {
			a.CommandOptions[name] = desc
		}
	}
	a.BufferTypes = bufferTypes(content)
	return a
}

// bufferTypes lists the canonical buffer types the README mentions, or all
// of them when it mentions none.
func bufferTypes(content []byte) []string {
	found := map[model.BufferType]bool{}
	for _, m := range bufferTypeWords.FindAllString(string(content), -1) {
		w := strings.ToLower(m)
		switch {
		case strings.HasPrefix(w, "lock"):
			found[model.BufferLockFree] = true
		case strings.HasPrefix(w, "mutex"):
			found[model.BufferMutexGuarded] = true
		default:
			found[model.BufferConcurrentQueue] = true
		}
	}
	out := []string{}
	for _, bt := range model.BufferTypes {
		if found[bt] || len(found) == 0 {
			out = append(out, string(bt))
		}
	}
	return out
}

// nodeText concatenates the text segments below n.
func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}
