package recipe

import (
	"fmt"
	"strings"
	"time"

	"github.com/Dicklesworthstone/rowgrid/pkg/model"
	"github.com/Dicklesworthstone/rowgrid/pkg/stage"
)

// CompileOptions carries grid settings the pipeline needs.
type CompileOptions struct {
	GroupDefaultExpanded int
	PivotMode            bool
	// Now anchors relative dates in filters; zero means time.Now.
	Now time.Time
}

// Compile builds the stage pipeline for r.
func Compile(r Recipe, opts CompileOptions) (stage.Set, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	var set stage.Set

	cols := make([]stage.GroupColumn, 0, len(r.GroupBy))
	for _, field := range r.GroupBy {
		if field == "" {
			return stage.Set{}, fmt.Errorf("recipe %q: empty group_by field", r.Name)
		}
		cols = append(cols, stage.FieldKey(field))
	}
	group := stage.NewGroupStage(opts.GroupDefaultExpanded, cols...)
	set.Group = group
	set.GroupLevels = group.Levels

	if len(r.Filters) > 0 {
		pred, err := compileFilters(r.Filters, now)
		if err != nil {
			return stage.Set{}, fmt.Errorf("recipe %q: %w", r.Name, err)
		}
		set.Filter = &stage.FilterStage{Predicate: pred}
	}

	if len(r.Aggregates) > 0 {
		aggs := make([]stage.AggColumn, 0, len(r.Aggregates))
		for _, a := range r.Aggregates {
			fn := stage.AggFunc(strings.ToLower(a.Func))
			if !fn.Valid() {
				return stage.Set{}, fmt.Errorf("recipe %q: unknown aggregate func %q", r.Name, a.Func)
			}
			aggs = append(aggs, stage.AggColumn{Field: a.Field, Func: fn})
		}
		set.Aggregate = &stage.AggregateStage{Columns: aggs}
	}

	if len(r.Sort) > 0 {
		cmp, err := compileSort(r.Sort)
		if err != nil {
			return stage.Set{}, fmt.Errorf("recipe %q: %w", r.Name, err)
		}
		set.Sort = &stage.SortStage{Compare: cmp}
	}

	set.Flatten = &stage.FlattenStage{
		GroupIncludeFooter:        r.View.GroupIncludeFooter,
		GroupIncludeTotalFooter:   r.View.GroupIncludeTotalFooter,
		GroupHideOpenParents:      r.View.HideOpenParents,
		GroupRemoveSingleChildren: r.View.RemoveSingleChildren,
		PivotMode:                 opts.PivotMode,
	}
	return set, nil
}

func compileSort(keys []SortKey) (stage.Comparator, error) {
	cmps := make([]stage.Comparator, 0, len(keys))
	for _, k := range keys {
		if k.Field == "" {
			return nil, fmt.Errorf("sort key without field")
		}
		var desc bool
		switch strings.ToLower(k.Direction) {
		case "", "asc":
		case "desc":
			desc = true
		default:
			return nil, fmt.Errorf("sort %s: unknown direction %q", k.Field, k.Direction)
		}
		cmps = append(cmps, stage.ByField(k.Field, desc))
	}
	return func(a, b *model.RowNode) int {
		for _, cmp := range cmps {
			if c := cmp(a, b); c != 0 {
				return c
			}
		}
		return 0
	}, nil
}

type predicate func(data any) bool

func compileFilters(rules []FilterRule, now time.Time) (func(data any) bool, error) {
	preds := make([]predicate, 0, len(rules))
	for i, rule := range rules {
		p, err := compileRule(rule, now)
		if err != nil {
			return nil, fmt.Errorf("filter[%d]: %w", i, err)
		}
		preds = append(preds, p)
	}
	return func(data any) bool {
		for _, p := range preds {
			if !p(data) {
				return false
			}
		}
		return true
	}, nil
}

func compileRule(rule FilterRule, now time.Time) (predicate, error) {
	if rule.Field == "" {
		return nil, fmt.Errorf("field is required")
	}
	field, want := rule.Field, rule.Value
	cmp := func(data any) int { return stage.CompareValues(stage.Field(data, field), want) }

	switch strings.ToLower(rule.Op) {
	case "", "eq":
		return func(data any) bool { return cmp(data) == 0 }, nil
	case "ne":
		return func(data any) bool { return cmp(data) != 0 }, nil
	case "gt":
		return func(data any) bool { return cmp(data) > 0 }, nil
	case "gte":
		return func(data any) bool { return cmp(data) >= 0 }, nil
	case "lt":
		return func(data any) bool { return cmp(data) < 0 }, nil
	case "lte":
		return func(data any) bool { return cmp(data) <= 0 }, nil
	case "contains":
		needle := strings.ToLower(fmt.Sprint(want))
		return func(data any) bool {
			v := stage.Field(data, field)
			return v != nil && strings.Contains(strings.ToLower(fmt.Sprint(v)), needle)
		}, nil
	case "in":
		options, ok := want.([]any)
		if !ok {
			return nil, fmt.Errorf("op in needs a list value for %s", field)
		}
		return func(data any) bool {
			v := stage.Field(data, field)
			for _, o := range options {
				if stage.CompareValues(v, o) == 0 {
					return true
				}
			}
			return false
		}, nil
	case "after", "before":
		s, ok := want.(string)
		if !ok {
			return nil, fmt.Errorf("op %s needs a date value for %s", rule.Op, field)
		}
		bound, err := ParseRelativeTime(s, now)
		if err != nil {
			return nil, err
		}
		after := strings.EqualFold(rule.Op, "after")
		return func(data any) bool {
			raw, ok := stage.Field(data, field).(string)
			if !ok {
				return false
			}
			t, err := ParseRelativeTime(raw, now)
			if err != nil || t.IsZero() {
				return false
			}
			if after {
				return t.After(bound)
			}
			return t.Before(bound)
		}, nil
	default:
		return nil, fmt.Errorf("unknown op %q", rule.Op)
	}
}
