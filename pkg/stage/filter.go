package stage

import (
	"github.com/Dicklesworthstone/rowgrid/pkg/model"
)

// FilterStage keeps leaves the predicate accepts and groups that still have
// at least one leaf under them. A nil Predicate passes every row through.
type FilterStage struct {
	Predicate func(data any) bool
}

// Execute implements Stage.
func (f *FilterStage) Execute(ctx *Context) {
	ctx.ChangedPath.ForEachChangedNodeDepthFirst(f.filterNode, false, false)
}

func (f *FilterStage) filterNode(n *model.RowNode) {
	if f.Predicate == nil {
		n.ChildrenAfterFilter = n.ChildrenAfterGroup
	} else {
		kept := make([]*model.RowNode, 0, len(n.ChildrenAfterGroup))
		for _, child := range n.ChildrenAfterGroup {
			if child.Group {
				if len(child.ChildrenAfterFilter) > 0 {
					kept = append(kept, child)
				}
			} else if f.Predicate(child.Data) {
				kept = append(kept, child)
			}
		}
		n.ChildrenAfterFilter = kept
	}
	setAllChildrenCount(n)

	if n.Sibling != nil {
		n.Sibling.ChildrenAfterFilter = n.ChildrenAfterFilter
		n.Sibling.AllChildrenCount = n.AllChildrenCount
	}
}

func setAllChildrenCount(n *model.RowNode) {
	count := 0
	for _, child := range n.ChildrenAfterFilter {
		if child.Group {
			count += child.AllChildrenCount
		} else {
			count++
		}
	}
	n.AllChildrenCount = count
}
