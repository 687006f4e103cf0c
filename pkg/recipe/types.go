// Package recipe describes reusable grid views (filter, sort, grouping,
// aggregation) in YAML and compiles them into a stage pipeline over map
// records.
package recipe

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Recipe defines a reusable view over rows
type Recipe struct {
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Filters     []FilterRule    `yaml:"filters,omitempty" json:"filters,omitempty"`
	Sort        []SortKey       `yaml:"sort,omitempty" json:"sort,omitempty"`
	GroupBy     []string        `yaml:"group_by,omitempty" json:"group_by,omitempty"`
	Aggregates  []AggregateSpec `yaml:"aggregates,omitempty" json:"aggregates,omitempty"`
	View        ViewConfig      `yaml:"view,omitempty" json:"view,omitempty"`
}

// FilterRule keeps rows whose field satisfies Op against Value. Rules are
// combined with AND.
type FilterRule struct {
	Field string `yaml:"field" json:"field"`
	Op    string `yaml:"op" json:"op"` // eq, ne, contains, gt, gte, lt, lte, in, after, before
	Value any    `yaml:"value" json:"value"`
}

// SortKey orders rows by one field; later keys break ties.
type SortKey struct {
	Field     string `yaml:"field" json:"field"`
	Direction string `yaml:"direction,omitempty" json:"direction,omitempty"` // asc (default), desc
}

// AggregateSpec reduces a numeric field over each group.
type AggregateSpec struct {
	Field string `yaml:"field" json:"field"`
	Func  string `yaml:"func" json:"func"` // sum, avg, min, max, count
}

// ViewConfig controls display options
type ViewConfig struct {
	Columns                 []string `yaml:"columns,omitempty" json:"columns,omitempty"`
	GroupIncludeFooter      bool     `yaml:"group_include_footer,omitempty" json:"group_include_footer,omitempty"`
	GroupIncludeTotalFooter bool     `yaml:"group_include_total_footer,omitempty" json:"group_include_total_footer,omitempty"`
	HideOpenParents         bool     `yaml:"hide_open_parents,omitempty" json:"hide_open_parents,omitempty"`
	RemoveSingleChildren    bool     `yaml:"remove_single_children,omitempty" json:"remove_single_children,omitempty"`
}

// relativeTimePattern matches relative time expressions like "14d", "2w", "1m", "1y"
var relativeTimePattern = regexp.MustCompile(`^(\d+)([dwmy])$`)

// ParseRelativeTime converts a relative time string to an absolute time.
// Supports: Nd (days), Nw (weeks), Nm (months), Ny (years)
// If the string is not a relative time, it tries to parse as ISO 8601.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	s = strings.TrimSpace(s)

	if matches := relativeTimePattern.FindStringSubmatch(strings.ToLower(s)); matches != nil {
		n, _ := strconv.Atoi(matches[1])
		switch matches[2] {
		case "d":
			return now.AddDate(0, 0, -n), nil
		case "w":
			return now.AddDate(0, 0, -n*7), nil
		case "m":
			return now.AddDate(0, -n, 0), nil
		case "y":
			return now.AddDate(-n, 0, 0), nil
		}
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &TimeParseError{Input: s}
}

// TimeParseError indicates a time parsing failure
type TimeParseError struct {
	Input string
}

func (e *TimeParseError) Error() string {
	return "invalid time format: " + e.Input + " (expected relative like '14d', '2w', '1m' or ISO date)"
}

// DefaultRecipe shows every row in load order.
func DefaultRecipe() Recipe {
	return Recipe{
		Name:        "default",
		Description: "All rows in load order",
	}
}

// GroupedRecipe groups by a "group" field with counts and a grand total.
func GroupedRecipe() Recipe {
	return Recipe{
		Name:        "grouped",
		Description: "Rows grouped by their group field, with counts",
		GroupBy:     []string{"group"},
		Sort:        []SortKey{{Field: "group"}},
		Aggregates:  []AggregateSpec{{Field: "value", Func: "count"}, {Field: "value", Func: "sum"}},
		View: ViewConfig{
			GroupIncludeTotalFooter: true,
		},
	}
}

// BuiltinRecipes returns all built-in recipes
func BuiltinRecipes() []Recipe {
	return []Recipe{
		DefaultRecipe(),
		GroupedRecipe(),
	}
}
