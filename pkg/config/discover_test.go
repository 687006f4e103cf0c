package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, Dir, configFileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "row_height: 2\n")

	sub := filepath.Join(root, "src", "pkg")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	found, ok := findProjectRoot(sub)
	if !ok {
		t.Fatal("expected to find project root")
	}
	if found != root {
		t.Errorf("expected %q, got %q", root, found)
	}
}

func TestFindProjectRoot_IgnoresBareDirectory(t *testing.T) {
	root := t.TempDir()
	// .rowgrid without config.yaml is not a project
	if err := os.MkdirAll(filepath.Join(root, Dir), 0o755); err != nil {
		t.Fatal(err)
	}
	found, ok := findProjectRoot(root)
	if ok && found == root {
		t.Errorf("directory without config.yaml should not match")
	}
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, root, "row_height: 2\n")

	got, err := FindConfig(filepath.Join(root))
	if err != nil {
		t.Fatalf("FindConfig: %v", err)
	}
	if got != want {
		t.Errorf("FindConfig = %q, want %q", got, want)
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "row_height: 2\nrow_id_field: id\n")

	cfg, path, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if path == "" {
		t.Fatal("expected a config path")
	}
	if cfg.RowHeight != 2 || cfg.RowIDField != "id" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.AsyncTransactionWaitMillis != 50 {
		t.Errorf("missing settings should keep defaults, got wait %d", cfg.AsyncTransactionWaitMillis)
	}
}

func TestGroupStatePath(t *testing.T) {
	tests := []struct {
		dir  string
		want string
	}{
		{"", filepath.Join(".rowgrid", "group-state.json")},
		{"/tmp/x", filepath.Join("/tmp/x", "group-state.json")},
	}
	for _, tt := range tests {
		if got := GroupStatePath(tt.dir); got != tt.want {
			t.Errorf("GroupStatePath(%q) = %q, want %q", tt.dir, got, tt.want)
		}
	}
}
