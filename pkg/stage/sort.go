package stage

import (
	"slices"
	"strings"

	"github.com/Dicklesworthstone/rowgrid/pkg/model"
	"github.com/Dicklesworthstone/rowgrid/pkg/nodes"
)

// Comparator orders two siblings. Both are groups or both are leaves
// unless a tree mixes them.
type Comparator func(a, b *model.RowNode) int

// SortStage orders the filtered children of every changed node. Without a
// comparator it honours RowNodeOrder when one is given and otherwise keeps
// the filtered order.
type SortStage struct {
	Compare Comparator
}

// Execute implements Stage.
func (s *SortStage) Execute(ctx *Context) {
	ctx.ChangedPath.ForEachChangedNodeDepthFirst(func(n *model.RowNode) {
		s.sortNode(n, ctx.RowNodeOrder)
	}, false, false)
}

func (s *SortStage) sortNode(n *model.RowNode, order map[string]int) {
	// Stages must never sort a slice they do not own.
	sorted := slices.Clone(n.ChildrenAfterFilter)
	switch {
	case s.Compare != nil:
		slices.SortStableFunc(sorted, s.Compare)
	case order != nil:
		nodes.SortByOrder(sorted, order)
	}
	n.ChildrenAfterSort = sorted
	if n.Sibling != nil {
		n.Sibling.ChildrenAfterSort = sorted
	}

	last := len(sorted) - 1
	for i, child := range sorted {
		child.ChildIndex = i
		child.FirstChild = i == 0
		child.LastChild = i == last
	}
}

// ByField compares leaves on a map record field and groups on their key.
// Numbers compare numerically, everything else as strings.
func ByField(field string, descending bool) Comparator {
	return func(a, b *model.RowNode) int {
		var va, vb any
		if a.Group && b.Group {
			va, vb = a.Key, b.Key
		} else {
			va, vb = Field(a.Data, field), Field(b.Data, field)
		}
		c := CompareValues(va, vb)
		if descending {
			return -c
		}
		return c
	}
}

// CompareValues orders two record values. Numbers (and numeric strings)
// compare numerically, nil sorts first, everything else compares as text.
func CompareValues(a, b any) int {
	fa, aok := number(a)
	fb, bok := number(b)
	switch {
	case aok && bok:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case a == nil && b != nil:
		return -1
	case a != nil && b == nil:
		return 1
	}
	return strings.Compare(FormatValue(a), FormatValue(b))
}
