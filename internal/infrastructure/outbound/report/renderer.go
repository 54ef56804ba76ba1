package report

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer writes a Document in one output format.
type Renderer interface {
	Extension() string
	Render(w io.Writer, doc Document) error
}

// JSONRenderer writes the full document as indented JSON.
type JSONRenderer struct{}

func (JSONRenderer) Extension() string { return "json" }

func (JSONRenderer) Render(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// TemplateRenderer renders a Document through a Pongo2 (Jinja2-style) template.
type TemplateRenderer struct {
	ext string
	tpl *pongo2.Template
}

// NewTemplateRenderer compiles source. ext is the output file extension.
func NewTemplateRenderer(ext, source string) (*TemplateRenderer, error) {
	tpl, err := pongo2.FromString(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s report template: %w", ext, err)
	}
	return &TemplateRenderer{ext: ext, tpl: tpl}, nil
}

func (r *TemplateRenderer) Extension() string { return r.ext }

func (r *TemplateRenderer) Render(w io.Writer, doc Document) error {
	ctx := pongo2.Context{
		"run_id":       doc.RunID,
		"generated_at": doc.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST"),
		"summary":      doc.Summary,
		"items":        doc.Items,
		"unmatched":    unmatchedViews(doc.Items),
		"percent": func(v float64) string {
			return fmt.Sprintf("%.2f%%", v)
		},
	}
	if err := r.tpl.ExecuteWriter(ctx, w); err != nil {
		return fmt.Errorf("%s report render failed: %w", r.ext, err)
	}
	return nil
}

func unmatchedViews(items []ItemView) []ItemView {
	var out []ItemView
	for _, it := range items {
		if it.Unmatched {
			out = append(out, it)
		}
	}
	return out
}

func builtinTemplate(name string) string {
	data, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		panic(err)
	}
	return string(data)
}
