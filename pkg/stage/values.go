package stage

import (
	"fmt"
	"strconv"
)

// FormatValue renders a record value as text; group keys and cells use it.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// number converts a record value to float64. JSON numbers decode to
// float64; strings are parsed.
func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Field returns the value of field in a map record, or nil.
func Field(data any, field string) any {
	rec, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	return rec[field]
}
