package filesystem_test

import (
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/sophialabs/apicover/internal/infrastructure/outbound/filesystem"
)

func resolve(t *testing.T, root, dir, doc string) (*yaml.Node, error) {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(doc), &node); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	err := filesystem.NewIncludeResolver(root).ResolveIncludes(&node, dir)
	return &node, err
}

func TestIncludeResolver_YAMLSubtree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "shared", "users.yaml"), "- method: GET\n  path: /users\n  status: \"200\"\n")

	node, err := resolve(t, root, root, "operations: !include shared/users.yaml\n")
	if err != nil {
		t.Fatalf("ResolveIncludes: %v", err)
	}

	var out struct {
		Operations []map[string]string `yaml:"operations"`
	}
	if err := node.Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Operations) != 1 || out.Operations[0]["path"] != "/users" {
		t.Errorf("operations = %v", out.Operations)
	}
}

func TestIncludeResolver_JSONSubtree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "body.json"), `{"mode":"raw","raw":"{}"}`)

	node, err := resolve(t, root, root, "body: !include body.json\n")
	if err != nil {
		t.Fatalf("ResolveIncludes: %v", err)
	}
	var out struct {
		Body map[string]string `yaml:"body"`
	}
	if err := node.Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Body["mode"] != "raw" {
		t.Errorf("body = %v", out.Body)
	}
}

func TestIncludeResolver_TextScalar(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "q.graphql"), "{ user { id } }")

	node, err := resolve(t, root, root, "raw: !include q.graphql\n")
	if err != nil {
		t.Fatalf("ResolveIncludes: %v", err)
	}
	var out struct {
		Raw string `yaml:"raw"`
	}
	_ = node.Decode(&out)
	if out.Raw != "{ user { id } }" {
		t.Errorf("raw = %q", out.Raw)
	}
}

func TestIncludeResolver_RootAnchor(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "common.txt"), "shared")
	sub := filepath.Join(root, "a", "b")

	node, err := resolve(t, root, sub, "v: !include '@root/common.txt'\n")
	if err != nil {
		t.Fatalf("ResolveIncludes: %v", err)
	}
	var out struct{ V string }
	_ = node.Decode(&out)
	if out.V != "shared" {
		t.Errorf("v = %q", out.V)
	}
}

func TestIncludeResolver_Errors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "loop.yaml"), "x: !include loop.yaml\n")

	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"escape", "v: !include ../outside.txt\n", "escapes"},
		{"absolute", "v: !include /etc/hosts\n", "absolute"},
		{"missing", "v: !include nope.txt\n", "nope.txt"},
		{"cycle", "v: !include loop.yaml\n", "deeper"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolve(t, root, root, tt.doc)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
