package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxIncludeDepth = 10

// IncludeResolver expands !include tags in native YAML contracts and
// exchange lists. References are relative to the including file; "@root/"
// anchors at the resolver root. Nothing may resolve outside the root.
type IncludeResolver struct {
	rootDir string
}

// NewIncludeResolver creates a resolver confined to rootDir.
func NewIncludeResolver(rootDir string) *IncludeResolver {
	return &IncludeResolver{rootDir: rootDir}
}

// ResolveIncludes replaces every !include node under node, in place.
func (r *IncludeResolver) ResolveIncludes(node *yaml.Node, currentDir string) error {
	return r.walk(node, currentDir, 0)
}

func (r *IncludeResolver) walk(node *yaml.Node, currentDir string, depth int) error {
	if depth > maxIncludeDepth {
		return fmt.Errorf("!include nested deeper than %d levels", maxIncludeDepth)
	}
	if node == nil {
		return nil
	}
	if node.Tag == "!include" {
		return r.expand(node, currentDir, depth)
	}
	for _, child := range node.Content {
		if err := r.walk(child, currentDir, depth); err != nil {
			return err
		}
	}
	return nil
}

// expand splices the referenced document into node. Structured files
// (.yaml, .yml, .json) become subtrees, so an included operation list can be
// dropped into a sequence; anything else becomes a string scalar.
func (r *IncludeResolver) expand(node *yaml.Node, currentDir string, depth int) error {
	ref := strings.TrimSpace(node.Value)
	if ref == "" {
		return fmt.Errorf("!include without a file reference at line %d", node.Line)
	}

	target, err := r.locate(ref, currentDir)
	if err != nil {
		return fmt.Errorf("!include %q: %w", ref, err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return fmt.Errorf("!include %q: %w", ref, err)
	}

	switch strings.ToLower(filepath.Ext(target)) {
	case ".yaml", ".yml", ".json":
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("!include %q: failed to parse: %w", ref, err)
		}
		if err := r.walk(&doc, filepath.Dir(target), depth+1); err != nil {
			return err
		}
		if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
			*node = *doc.Content[0]
		}
	default:
		*node = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(data)}
	}
	return nil
}

func (r *IncludeResolver) locate(ref, currentDir string) (string, error) {
	var target string
	switch {
	case strings.HasPrefix(ref, "@root/"):
		target = filepath.Join(r.rootDir, strings.TrimPrefix(ref, "@root/"))
	case filepath.IsAbs(ref):
		return "", fmt.Errorf("absolute paths are not allowed")
	default:
		target = filepath.Join(currentDir, ref)
	}

	real, err := filepath.EvalSymlinks(target)
	if err != nil {
		real = target
	}
	root, err := filepath.EvalSymlinks(r.rootDir)
	if err != nil {
		root = r.rootDir
	}
	rel, err := filepath.Rel(root, real)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes %s", r.rootDir)
	}
	return target, nil
}
