package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Registry maps format names to renderers.
type Registry struct {
	renderers map[string]Renderer
}

// NewRegistry creates a registry with the built-in formats (json, html,
// markdown).
func NewRegistry() (*Registry, error) {
	html, err := NewTemplateRenderer("html", builtinTemplate("report.html.tmpl"))
	if err != nil {
		return nil, err
	}
	md, err := NewTemplateRenderer("md", builtinTemplate("report.md.tmpl"))
	if err != nil {
		return nil, err
	}
	return &Registry{
		renderers: map[string]Renderer{
			"json":     JSONRenderer{},
			"html":     html,
			"markdown": md,
		},
	}, nil
}

// Get resolves a renderer by format name. "md" is accepted for markdown.
func (r *Registry) Get(format string) (Renderer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "md" {
		format = "markdown"
	}
	rd, ok := r.renderers[format]
	if !ok {
		return nil, fmt.Errorf("unknown report format: %q (supported: %s)", format, strings.Join(r.Formats(), ", "))
	}
	return rd, nil
}

// Formats lists the registered format names.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.renderers))
	for name := range r.renderers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// WriteAll renders doc in every format into dir as coverage.<ext> and returns
// the written paths.
func (r *Registry) WriteAll(dir string, formats []string, doc Document) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}
	var written []string
	for _, format := range formats {
		rd, err := r.Get(format)
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, "coverage."+rd.Extension())
		if err := writeFile(path, rd, doc); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, rd Renderer, doc Document) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := rd.Render(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
