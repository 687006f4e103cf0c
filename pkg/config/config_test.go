package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/Dicklesworthstone/rowgrid/pkg/rowmodel"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"expand all", func(c *Config) { c.GroupDefaultExpanded = -1 }, ""},
		{"bad expand depth", func(c *Config) { c.GroupDefaultExpanded = -2 }, "group_default_expanded"},
		{"negative wait", func(c *Config) { c.AsyncTransactionWaitMillis = -1 }, "async_transaction_wait_millis"},
		{"negative height", func(c *Config) { c.RowHeight = -3 }, "row heights"},
		{"unknown layout", func(c *Config) { c.DomLayout = "grid" }, "dom_layout"},
		{"master field without master detail", func(c *Config) { c.MasterField = "m" }, "master_detail"},
		{"master detail", func(c *Config) { c.MasterField = "m"; c.MasterDetail = true }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, "dom_layout: sideways\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error")
	}

	path = writeConfig(t, root, "row_height: [1\n")
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "parsing") {
		t.Fatalf("expected parse error, got %v", err)
	}

	if _, err := LoadConfig(filepath.Join(root, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestGridOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RowIDField = "id"
	cfg.MasterDetail = true
	cfg.MasterField = "has_detail"
	cfg.SelectableField = "selectable"
	cfg.GroupDefaultExpanded = -1

	opts := cfg.GridOptions()
	if opts.GroupDefaultExpanded != -1 || !opts.MasterDetail || opts.DomLayout != rowmodel.DomLayoutNormal {
		t.Errorf("flags not carried over: %+v", opts)
	}

	rec := map[string]any{"id": 7.0, "has_detail": true, "selectable": false}
	if got := opts.RowID(rec); got != "7" {
		t.Errorf("RowID = %q, want 7", got)
	}
	if !opts.IsRowMaster(rec) {
		t.Error("expected master")
	}
	if opts.IsRowSelectable(rec) {
		t.Error("expected unselectable")
	}

	bare := map[string]any{}
	if opts.IsRowMaster(bare) {
		t.Error("missing master field should mean not a master")
	}
	if !opts.IsRowSelectable(bare) {
		t.Error("missing selectable field should mean selectable")
	}
	if got := opts.RowID("not a record"); got != "" {
		t.Errorf("RowID of non-record = %q", got)
	}
}

func TestGridOptions_NoFields(t *testing.T) {
	cfg := DefaultConfig()
	opts := cfg.GridOptions()
	if opts.RowID != nil || opts.IsRowMaster != nil || opts.IsRowSelectable != nil {
		t.Error("empty field names should leave callbacks unset")
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    any
		want bool
	}{
		{true, true},
		{false, false},
		{nil, false},
		{"", false},
		{"false", false},
		{"yes", true},
		{0.0, false},
		{2.0, true},
		{[]any{}, true},
	}
	for _, tt := range tests {
		if got := truthy(tt.v); got != tt.want {
			t.Errorf("truthy(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
