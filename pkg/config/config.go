// Package config loads rowgrid settings from .rowgrid/config.yaml and turns
// them into row model options.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/rowgrid/pkg/rowmodel"
)

// Config represents a rowgrid configuration file (.rowgrid/config.yaml)
type Config struct {
	// RowIDField names the record field holding the row id. Empty means
	// sequential ids and reference matching in transactions.
	RowIDField string `yaml:"row_id_field,omitempty" json:"row_id_field,omitempty"`

	// MasterField marks master rows when master/detail is on; a missing
	// field means not a master.
	MasterField string `yaml:"master_field,omitempty" json:"master_field,omitempty"`

	// SelectableField marks selectable rows; a missing field means
	// selectable.
	SelectableField string `yaml:"selectable_field,omitempty" json:"selectable_field,omitempty"`

	SuppressParentsInRowNodes bool `yaml:"suppress_parents_in_row_nodes,omitempty" json:"suppress_parents_in_row_nodes,omitempty"`
	TreeData                  bool `yaml:"tree_data,omitempty" json:"tree_data,omitempty"`
	MasterDetail              bool `yaml:"master_detail,omitempty" json:"master_detail,omitempty"`
	PivotMode                 bool `yaml:"pivot_mode,omitempty" json:"pivot_mode,omitempty"`

	// GroupDefaultExpanded is the depth below which groups start open (-1 = all)
	GroupDefaultExpanded int `yaml:"group_default_expanded" json:"group_default_expanded"`

	AsyncTransactionWaitMillis int `yaml:"async_transaction_wait_millis" json:"async_transaction_wait_millis"`

	SuppressModelUpdateAfterUpdateTransaction bool `yaml:"suppress_model_update_after_update_transaction,omitempty" json:"suppress_model_update_after_update_transaction,omitempty"`
	RememberGroupStateWhenNewData             bool `yaml:"remember_group_state_when_new_data,omitempty" json:"remember_group_state_when_new_data,omitempty"`
	SuppressMaintainUnsortedOrder             bool `yaml:"suppress_maintain_unsorted_order,omitempty" json:"suppress_maintain_unsorted_order,omitempty"`

	// Heights are in terminal lines for the viewer.
	RowHeight       int    `yaml:"row_height" json:"row_height"`
	DetailRowHeight int    `yaml:"detail_row_height" json:"detail_row_height"`
	DomLayout       string `yaml:"dom_layout,omitempty" json:"dom_layout,omitempty"`

	// Recipe is a built-in recipe name or a path to a recipe file.
	Recipe string `yaml:"recipe,omitempty" json:"recipe,omitempty"`
}

// Known layouts.
var domLayouts = []string{"", rowmodel.DomLayoutNormal, "autoHeight", "print"}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() Config {
	return Config{
		GroupDefaultExpanded:       0,
		AsyncTransactionWaitMillis: 50,
		RowHeight:                  1,
		DetailRowHeight:            3,
		DomLayout:                  rowmodel.DomLayoutNormal,
		Recipe:                     "default",
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.GroupDefaultExpanded < -1 {
		return fmt.Errorf("group_default_expanded must be -1 or more, got %d", c.GroupDefaultExpanded)
	}
	if c.AsyncTransactionWaitMillis < 0 {
		return fmt.Errorf("async_transaction_wait_millis must not be negative, got %d", c.AsyncTransactionWaitMillis)
	}
	if c.RowHeight < 0 || c.DetailRowHeight < 0 {
		return fmt.Errorf("row heights must not be negative")
	}
	known := false
	for _, l := range domLayouts {
		if c.DomLayout == l {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown dom_layout %q (want one of %s)", c.DomLayout, strings.Join(domLayouts[1:], ", "))
	}
	if c.MasterField != "" && !c.MasterDetail {
		return fmt.Errorf("master_field %q needs master_detail: true", c.MasterField)
	}
	return nil
}

// LoadConfig loads a configuration file. Settings missing from the file keep
// their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing rowgrid config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rowgrid config %s: %w", path, err)
	}
	return &config, nil
}

// GridOptions converts the configuration to row model options.
func (c *Config) GridOptions() rowmodel.GridOptions {
	opts := rowmodel.GridOptions{
		SuppressParentsInRowNodes:                 c.SuppressParentsInRowNodes,
		TreeData:                                  c.TreeData,
		MasterDetail:                              c.MasterDetail,
		PivotMode:                                 c.PivotMode,
		GroupDefaultExpanded:                      c.GroupDefaultExpanded,
		AsyncTransactionWaitMillis:                c.AsyncTransactionWaitMillis,
		SuppressModelUpdateAfterUpdateTransaction: c.SuppressModelUpdateAfterUpdateTransaction,
		RememberGroupStateWhenNewData:             c.RememberGroupStateWhenNewData,
		SuppressMaintainUnsortedOrder:             c.SuppressMaintainUnsortedOrder,
		RowHeight:                                 c.RowHeight,
		DetailRowHeight:                           c.DetailRowHeight,
		DomLayout:                                 c.DomLayout,
	}
	if c.RowIDField != "" {
		opts.RowID = FieldRowID(c.RowIDField)
	}
	if c.MasterField != "" {
		field := c.MasterField
		opts.IsRowMaster = func(data any) bool {
			v, ok := fieldValue(data, field)
			return ok && truthy(v)
		}
	}
	if c.SelectableField != "" {
		field := c.SelectableField
		opts.IsRowSelectable = func(data any) bool {
			v, ok := fieldValue(data, field)
			return !ok || truthy(v)
		}
	}
	return opts
}

// FieldRowID reads row ids from a map record field. Records without the
// field get an empty id.
func FieldRowID(field string) func(data any) string {
	return func(data any) string {
		v, ok := fieldValue(data, field)
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	}
}

func fieldValue(data any, field string) (any, bool) {
	rec, ok := data.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := rec[field]
	return v, ok
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case nil:
		return false
	case string:
		return x != "" && x != "false" && x != "0"
	case float64:
		return x != 0
	case int:
		return x != 0
	default:
		return true
	}
}
