package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCoversState(t *testing.T) {
	tests := []struct {
		line    string
		matches bool
	}{
		{".rowgrid", true},
		{".rowgrid/", true},
		{".rowgrid/*", true},
		{".rowgrid/**", true},
		{".rowgrid/*.json", true},
		{"/.rowgrid/", true},

		{"", false},
		{".rowgrid2", false},
		{"rowgrid/", false},
		{".rowgrid/config.yaml", false},
		{"*.json", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := coversState(tt.line); got != tt.matches {
				t.Errorf("coversState(%q) = %v, want %v", tt.line, got, tt.matches)
			}
		})
	}
}

func TestIsStateIgnored(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected bool
	}{
		{"empty file", "", false},
		{"whole dir", "node_modules/\n.rowgrid/\n", true},
		{"json only", ".rowgrid/*.json\n", true},
		{"commented out", "# .rowgrid/\n", false},
		{"with whitespace", "  .rowgrid  \n", true},
		{"unrelated", ".beads/\n*.log\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".gitignore")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write test file: %v", err)
			}
			got, err := isStateIgnored(path)
			if err != nil {
				t.Fatalf("isStateIgnored() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("isStateIgnored() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppendToGitignore_NoTrailingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".gitignore")
	if err := os.WriteFile(path, []byte("node_modules/"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := appendToGitignore(path, StateIgnorePattern); err != nil {
		t.Fatalf("appendToGitignore() error = %v", err)
	}
	content, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(content), "node_modules/\n") {
		t.Errorf("existing line was not terminated:\n%s", content)
	}
	if !strings.HasSuffix(string(content), StateIgnorePattern+"\n") {
		t.Errorf("pattern missing at end:\n%s", content)
	}
}

func TestEnsureStateIgnored(t *testing.T) {
	t.Run("creates gitignore", func(t *testing.T) {
		dir := t.TempDir()
		if err := EnsureStateIgnored(dir); err != nil {
			t.Fatalf("EnsureStateIgnored() error = %v", err)
		}
		content, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(string(content), "#") {
			t.Errorf("new file should start with the comment, got:\n%s", content)
		}
		if !strings.Contains(string(content), StateIgnorePattern) {
			t.Errorf("pattern missing, got:\n%s", content)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		dir := t.TempDir()
		for i := 0; i < 3; i++ {
			if err := EnsureStateIgnored(dir); err != nil {
				t.Fatal(err)
			}
		}
		content, _ := os.ReadFile(filepath.Join(dir, ".gitignore"))
		if n := strings.Count(string(content), StateIgnorePattern); n != 1 {
			t.Errorf("expected 1 occurrence, got %d:\n%s", n, content)
		}
	})

	t.Run("respects broader entry", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ".gitignore")
		if err := os.WriteFile(path, []byte(".rowgrid\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := EnsureStateIgnored(dir); err != nil {
			t.Fatal(err)
		}
		content, _ := os.ReadFile(path)
		if string(content) != ".rowgrid\n" {
			t.Errorf("file should be untouched, got:\n%s", content)
		}
	})
}
