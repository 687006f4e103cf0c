package stage

import (
	"github.com/Dicklesworthstone/rowgrid/pkg/model"
)

// FlattenStage walks the sorted tree and returns the rows to display,
// expanding open groups and masters and inserting footers.
type FlattenStage struct {
	// GroupIncludeFooter adds a footer after the children of each open group.
	GroupIncludeFooter bool
	// GroupIncludeTotalFooter adds a grand-total footer for the root.
	GroupIncludeTotalFooter bool
	// GroupHideOpenParents hides open groups, showing only their children.
	GroupHideOpenParents bool
	// GroupRemoveSingleChildren replaces every group with one child by that
	// child; GroupRemoveLowestSingleChildren does so for leaf groups only.
	GroupRemoveSingleChildren       bool
	GroupRemoveLowestSingleChildren bool
	// PivotMode hides leaves; leaf groups become the lowest rows.
	PivotMode bool
}

// Execute implements Flattener.
func (f *FlattenStage) Execute(ctx *Context) []*model.RowNode {
	root := ctx.RootNode
	var rows []*model.RowNode
	rows = f.addRows(root.ChildrenAfterSort, rows, 0)

	if f.GroupIncludeTotalFooter && len(rows) > 0 {
		ensureFooterNodeExists(root)
		rows = addRow(root.Sibling, rows, 0)
	}
	return rows
}

func (f *FlattenStage) addRows(list []*model.RowNode, rows []*model.RowNode, uiLevel int) []*model.RowNode {
	for _, n := range list {
		isParent := n.HasChildren()
		skippedLeaf := f.PivotMode && !isParent
		removedSingle := isParent && len(n.ChildrenAfterGroup) == 1 &&
			(f.GroupRemoveSingleChildren || (f.GroupRemoveLowestSingleChildren && n.LeafGroup))
		neverExpands := f.PivotMode && n.LeafGroup
		hiddenOpenParent := f.GroupHideOpenParents && n.Expanded && !n.Master && !neverExpands

		if !skippedLeaf && !hiddenOpenParent && !removedSingle {
			rows = addRow(n, rows, uiLevel)
		}
		if neverExpands {
			continue
		}

		switch {
		case isParent:
			if !n.Expanded && !removedSingle {
				continue
			}
			childLevel := uiLevel + 1
			if removedSingle {
				childLevel = uiLevel
			}
			rows = f.addRows(n.ChildrenAfterSort, rows, childLevel)
			if f.GroupIncludeFooter {
				ensureFooterNodeExists(n)
				rows = addRow(n.Sibling, rows, uiLevel)
			}
		case n.Master && n.Expanded:
			rows = addRow(createDetailNode(n), rows, uiLevel)
		}
	}
	return rows
}

func addRow(n *model.RowNode, rows []*model.RowNode, uiLevel int) []*model.RowNode {
	n.UILevel = uiLevel
	return append(rows, n)
}

// ensureFooterNodeExists creates the footer sibling of a group once. The
// footer shares the group's children and aggregates.
func ensureFooterNodeExists(group *model.RowNode) {
	if group.Sibling != nil {
		return
	}
	footer := &model.RowNode{
		ID:                  model.FooterIDPrefix + group.ID,
		Data:                group.Data,
		Level:               group.Level,
		Parent:              group.Parent,
		Group:               true,
		Footer:              true,
		Expanded:            group.Expanded,
		Key:                 group.Key,
		Field:               group.Field,
		LeafGroup:           group.LeafGroup,
		AllLeafChildren:     group.AllLeafChildren,
		ChildrenAfterGroup:  group.ChildrenAfterGroup,
		ChildrenAfterFilter: group.ChildrenAfterFilter,
		ChildrenAfterSort:   group.ChildrenAfterSort,
		AllChildrenCount:    group.AllChildrenCount,
		AggData:             group.AggData,
		RowTop:              model.NoPosition,
		RowIndex:            model.NoPosition,
		Sibling:             group,
	}
	group.Sibling = footer
}

// createDetailNode returns the detail row of a master, creating it once.
func createDetailNode(master *model.RowNode) *model.RowNode {
	if master.DetailNode != nil {
		return master.DetailNode
	}
	detail := &model.RowNode{
		ID:       model.DetailIDPrefix + master.ID,
		Data:     master.Data,
		Level:    master.Level + 1,
		Parent:   master,
		Detail:   true,
		RowTop:   model.NoPosition,
		RowIndex: model.NoPosition,
	}
	master.DetailNode = detail
	return detail
}
