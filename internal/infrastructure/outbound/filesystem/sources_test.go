package filesystem_test

import (
	"path/filepath"
	"testing"

	"github.com/sophialabs/apicover/internal/infrastructure/outbound/filesystem"
)

func TestExpandPattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.yaml"), "")
	writeFile(t, filepath.Join(dir, "a.yaml"), "")
	writeFile(t, filepath.Join(dir, "nested", "deep", "c.yaml"), "")
	writeFile(t, filepath.Join(dir, "notes.txt"), "")

	tests := []struct {
		name    string
		pattern string
		want    []string
		wantErr bool
	}{
		{"plain path", filepath.Join(dir, "a.yaml"), []string{filepath.Join(dir, "a.yaml")}, false},
		{"single star sorted", filepath.Join(dir, "*.yaml"), []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yaml")}, false},
		{"double star", filepath.Join(dir, "**", "c.yaml"), []string{filepath.Join(dir, "nested", "deep", "c.yaml")}, false},
		{"missing plain path", filepath.Join(dir, "missing.yaml"), nil, true},
		{"no glob match", filepath.Join(dir, "*.proto"), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filesystem.ExpandPattern(tt.pattern)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestHasExt(t *testing.T) {
	if !filesystem.HasExt("API.YAML", ".yaml", ".yml") {
		t.Error("expected case-insensitive match")
	}
	if filesystem.HasExt("api.json", ".yaml") {
		t.Error("unexpected match")
	}
}
