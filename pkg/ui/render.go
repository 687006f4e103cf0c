package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/Dicklesworthstone/rowgrid/pkg/model"
	"github.com/Dicklesworthstone/rowgrid/pkg/stage"
)

// maxColumnWidth caps a single cell.
const maxColumnWidth = 24

// RowSource is the read side of the row model a renderer needs.
type RowSource interface {
	GetRowsToDisplay() []*model.RowNode
}

// DeriveColumns lists the fields of the displayed leaf records, sorted.
func DeriveColumns(rows []*model.RowNode) []string {
	seen := make(map[string]struct{})
	for _, n := range rows {
		if n.Group || n.Footer || n.Detail {
			continue
		}
		rec, ok := n.Data.(map[string]any)
		if !ok {
			continue
		}
		for k := range rec {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// columnWidths sizes each column to its widest cell, header included.
func columnWidths(rows []*model.RowNode, columns []string) []int {
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = runewidth.StringWidth(c)
	}
	for _, n := range rows {
		if n.Group || n.Footer || n.Detail {
			continue
		}
		for i, c := range columns {
			if w := runewidth.StringWidth(stage.FormatValue(stage.Field(n.Data, c))); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		widths[i] = min(widths[i], maxColumnWidth)
	}
	return widths
}

// layout is what a row line needs besides the node.
type layout struct {
	columns []string
	widths  []int
	width   int
}

func newLayout(rows []*model.RowNode, columns []string, width int) layout {
	return layout{columns: columns, widths: columnWidths(rows, columns), width: width}
}

// prefixWidth is the width of indent, indicator and selection mark of a
// top-level row.
const prefixWidth = 6

func (l layout) header() string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", prefixWidth))
	for i, c := range l.columns {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(runewidth.FillRight(runewidth.Truncate(c, l.widths[i], "…"), l.widths[i]))
	}
	return l.fit(sb.String())
}

// fit truncates s to the layout width; zero width means unlimited.
func (l layout) fit(s string) string {
	if l.width <= 0 {
		return strings.TrimRight(s, " ")
	}
	return strings.TrimRight(runewidth.Truncate(s, l.width, "…"), " ")
}

// line renders the first text line of a row, unstyled.
func (l layout) line(n *model.RowNode) string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat("  ", max(n.UILevel, 0)))
	sb.WriteString(indicator(n))
	sb.WriteString(" ")
	sb.WriteString(selectionMark(n))
	sb.WriteString(" ")
	sb.WriteString(l.label(n))
	return l.fit(sb.String())
}

func (l layout) label(n *model.RowNode) string {
	switch {
	case n.Footer && n.Sibling != nil && n.Sibling.IsRoot():
		return "Total" + aggSuffix(n.AggData)
	case n.Footer:
		return "Total " + n.Key + aggSuffix(n.AggData)
	case n.Detail:
		return "detail"
	case n.Group:
		name := n.Key
		if name == "" {
			name = "(blank)"
		}
		if n.Field != "" {
			name = n.Field + ": " + name
		}
		return fmt.Sprintf("%s (%d)%s", name, n.AllChildrenCount, aggSuffix(n.AggData))
	}
	if len(l.columns) == 0 {
		return n.ID + " " + stage.FormatValue(n.Data)
	}
	cells := make([]string, len(l.columns))
	for i, c := range l.columns {
		v := runewidth.Truncate(stage.FormatValue(stage.Field(n.Data, c)), l.widths[i], "…")
		cells[i] = runewidth.FillRight(v, l.widths[i])
	}
	return strings.Join(cells, "  ")
}

// extraLines fills a row taller than one line. Detail rows list the master's
// fields; other rows pad with blanks.
func (l layout) extraLines(n *model.RowNode) []string {
	if n.RowHeight <= 1 {
		return nil
	}
	out := make([]string, 0, n.RowHeight-1)
	if n.Detail {
		indent := strings.Repeat("  ", max(n.UILevel, 0)+3)
		for _, kv := range fields(n.Data) {
			if len(out) == n.RowHeight-1 {
				break
			}
			out = append(out, l.fit(indent+kv[0]+": "+kv[1]))
		}
	}
	for len(out) < n.RowHeight-1 {
		out = append(out, "")
	}
	return out
}

func indicator(n *model.RowNode) string {
	switch {
	case n.Footer:
		return "Σ"
	case n.Detail:
		return "↳"
	case n.Group || n.Master:
		if n.Expanded {
			return "▾"
		}
		return "▸"
	default:
		return "•"
	}
}

func selectionMark(n *model.RowNode) string {
	if n.Footer || n.Detail || !n.Selectable {
		return "   "
	}
	switch n.SelectedState() {
	case model.Selected:
		return "[x]"
	case model.Indeterminate:
		return "[-]"
	default:
		return "[ ]"
	}
}

func aggSuffix(agg map[string]float64) string {
	if len(agg) == 0 {
		return ""
	}
	keys := make([]string, 0, len(agg))
	for k := range agg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + stage.FormatValue(agg[k])
	}
	return "  " + strings.Join(parts, " ")
}

// fields returns the sorted key/value pairs of a map record.
func fields(data any) [][2]string {
	rec, ok := data.(map[string]any)
	if !ok {
		if data == nil {
			return nil
		}
		return [][2]string{{"value", stage.FormatValue(data)}}
	}
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, len(keys))
	for i, k := range keys {
		out[i] = [2]string{k, stage.FormatValue(rec[k])}
	}
	return out
}

// RenderPlain writes the displayed rows as text, one line per row line, for
// output that is not a terminal. Empty columns are derived from the data.
func RenderPlain(w io.Writer, src RowSource, columns []string, width int) error {
	rows := src.GetRowsToDisplay()
	if len(columns) == 0 {
		columns = DeriveColumns(rows)
	}
	l := newLayout(rows, columns, width)

	if len(columns) > 0 {
		if _, err := fmt.Fprintln(w, l.header()); err != nil {
			return err
		}
	}
	for _, n := range rows {
		if _, err := fmt.Fprintln(w, l.line(n)); err != nil {
			return err
		}
		for _, extra := range l.extraLines(n) {
			if _, err := fmt.Fprintln(w, extra); err != nil {
				return err
			}
		}
	}
	return nil
}
