package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testRows = `[
  {"id": "1", "group": "ops", "value": 5},
  {"id": "2", "group": "dev", "value": 2},
  {"id": "3", "group": "ops", "value": 9},
  {"id": "4", "group": "dev", "value": 4}
]`

const testConfig = `row_id_field: id
group_default_expanded: -1
recipe: grouped
`

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func runPlain(t *testing.T, extra ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	args := []string{
		"-rows", writeTemp(t, dir, "rows.json", testRows),
		"-config", writeTemp(t, dir, "config.yaml", testConfig),
		"-state", "-",
		"-plain",
	}
	args = append(args, extra...)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestRun_Version(t *testing.T) {
	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"-version"}, &stdout, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if stdout.String() != "rowgrid dev\n" {
		t.Errorf("unexpected version output %q", stdout.String())
	}
}

func TestRun_FlagErrors(t *testing.T) {
	var stderr bytes.Buffer
	if err := run(context.Background(), nil, &bytes.Buffer{}, &stderr); err == nil || !strings.Contains(err.Error(), "-rows") {
		t.Errorf("expected missing -rows error, got %v", err)
	}
	if err := run(context.Background(), []string{"-h"}, &bytes.Buffer{}, &stderr); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("expected ErrHelp, got %v", err)
	}
	if !strings.Contains(stderr.String(), "-watch") {
		t.Errorf("usage should list flags, got %q", stderr.String())
	}
}

func TestRun_PlainGrouped(t *testing.T) {
	out, err := runPlain(t)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{
		"      group  id  value",
		"▾ [ ] group: dev (2)  count(value)=2 sum(value)=6",
		"  • [ ] dev    2   2",
		"  • [ ] dev    4   4",
		"▾ [ ] group: ops (2)  count(value)=2 sum(value)=14",
		"  • [ ] ops    1   5",
		"  • [ ] ops    3   9",
		"Σ     Total  count(value)=4 sum(value)=20",
	}
	if got := lines(out); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("got:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestRun_PlainDefaultRecipeOverride(t *testing.T) {
	out, err := runPlain(t, "-recipe", "default")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	got := lines(out)
	if len(got) != 5 || got[1] != "• [ ] ops    1   5" {
		t.Errorf("expected ungrouped rows in load order, got:\n%s", out)
	}
}

func TestRun_PlainAppliesTransactions(t *testing.T) {
	dir := t.TempDir()
	tx := writeTemp(t, dir, "tx.jsonl",
		"{\"add\":[{\"id\":\"5\",\"group\":\"dev\",\"value\":1}]}\n{\"remove\":[{\"id\":\"1\"}]}\n")

	out, err := runPlain(t, "-watch", tx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{
		"      group  id  value",
		"▾ [ ] group: dev (3)  count(value)=3 sum(value)=7",
		"  • [ ] dev    2   2",
		"  • [ ] dev    4   4",
		"  • [ ] dev    5   1",
		"▾ [ ] group: ops (1)  count(value)=1 sum(value)=9",
		"  • [ ] ops    3   9",
		"Σ     Total  count(value)=4 sum(value)=16",
	}
	if got := lines(out); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("got:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestRun_RestoresGroupState(t *testing.T) {
	dir := t.TempDir()
	state := writeTemp(t, dir, "state.json", `{"version": 1, "expanded": {"dev": false}}`)

	out, err := runPlain(t, "-state", state)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	got := lines(out)
	if len(got) != 6 || got[1] != "▸ [ ] group: dev (2)  count(value)=2 sum(value)=6" {
		t.Errorf("expected dev collapsed, got:\n%s", out)
	}
}

func TestRun_Width(t *testing.T) {
	out, err := runPlain(t, "-width", "10")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, l := range lines(out) {
		if len([]rune(l)) > 10 {
			t.Errorf("line %q is wider than 10", l)
		}
	}
}

func TestRun_Errors(t *testing.T) {
	if _, err := runPlain(t, "-recipe", "no-such-recipe"); err == nil {
		t.Error("expected an unknown recipe to fail")
	}

	dir := t.TempDir()
	badRows := writeTemp(t, dir, "rows.json", "[{")
	err := run(context.Background(), []string{"-rows", badRows, "-state", "-", "-plain",
		"-config", writeTemp(t, dir, "config.yaml", testConfig)}, &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "decode rows") {
		t.Errorf("expected a decode error, got %v", err)
	}

	badCfg := writeTemp(t, dir, "bad.yaml", "dom_layout: sideways\n")
	err = run(context.Background(), []string{"-rows", badRows, "-config", badCfg, "-plain"}, &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Errorf("expected a config error, got %v", err)
	}
}

func TestResolveStatePath(t *testing.T) {
	cfgPath := filepath.Join("proj", ".rowgrid", "config.yaml")
	tests := []struct {
		flag, cfg   string
		want        string
		wantDefault bool
	}{
		{"-", cfgPath, "", false},
		{"", cfgPath, filepath.Join("proj", ".rowgrid", "group-state.json"), true},
		{"", "", filepath.Join(".rowgrid", "group-state.json"), true},
		{"", "elsewhere.yaml", filepath.Join(".rowgrid", "group-state.json"), true},
		{"my.json", cfgPath, "my.json", false},
	}
	for _, tt := range tests {
		got, isDefault := resolveStatePath(tt.flag, tt.cfg)
		if got != tt.want || isDefault != tt.wantDefault {
			t.Errorf("resolveStatePath(%q, %q) = %q, %v; want %q, %v", tt.flag, tt.cfg, got, isDefault, tt.want, tt.wantDefault)
		}
	}
}
