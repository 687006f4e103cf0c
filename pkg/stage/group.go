package stage

import (
	"strings"

	"github.com/Dicklesworthstone/rowgrid/pkg/model"
	"github.com/Dicklesworthstone/rowgrid/pkg/nodes"
)

// GroupColumn is one grouping level.
type GroupColumn struct {
	Field string
	Key   func(data any) string
}

// GroupStage groups leaves by an ordered list of columns. Across
// transactions group nodes are reused (keyed by their key path), so
// expansion and selection survive; a run without transactions starts over.
//
// Every run regroups the full leaf list, so a transaction costs O(N) here
// even when it touches one row. Only the stages after grouping narrow their
// work to the changed path.
type GroupStage struct {
	Columns []GroupColumn

	// DefaultExpanded is the depth below which new groups start open; -1
	// opens every group.
	DefaultExpanded int

	groups map[string]*model.RowNode
}

// NewGroupStage returns a group stage over columns.
func NewGroupStage(defaultExpanded int, columns ...GroupColumn) *GroupStage {
	return &GroupStage{
		Columns:         columns,
		DefaultExpanded: defaultExpanded,
		groups:          make(map[string]*model.RowNode),
	}
}

// Levels returns the number of grouping levels.
func (g *GroupStage) Levels() int {
	return len(g.Columns)
}

// Execute implements Stage.
func (g *GroupStage) Execute(ctx *Context) {
	root := ctx.RootNode
	cp := ctx.ChangedPath

	if len(g.Columns) == 0 {
		for _, leaf := range root.AllLeafChildren {
			if leaf.Parent != nil {
				leaf.Parent = root
			}
			leaf.Level = 0
		}
		root.ChildrenAfterGroup = root.AllLeafChildren
		g.dropGroups(nil)
		g.groups = make(map[string]*model.RowNode)
		return
	}
	if g.groups == nil {
		g.groups = make(map[string]*model.RowNode)
	}
	// A full recompute builds fresh groups; expansion is then restored by
	// the row model from its snapshot, if any.
	if ctx.Transactions == nil {
		g.dropGroups(nil)
		g.groups = make(map[string]*model.RowNode)
	}

	// Removed and updated rows may leave their old group.
	for _, tx := range ctx.Transactions {
		for _, n := range tx.Remove {
			cp.AddParentNode(n.Parent)
		}
		for _, n := range tx.Update {
			cp.AddParentNode(n.Parent)
		}
	}

	touched := make(map[*model.RowNode]struct{})
	for _, tx := range ctx.Transactions {
		for _, n := range tx.Update {
			touched[n] = struct{}{}
		}
		for _, n := range tx.Add {
			touched[n] = struct{}{}
		}
	}

	live := make(map[string]*model.RowNode, len(g.groups))
	root.ChildrenAfterGroup = nil
	leafLevel := len(g.Columns)

	for _, leaf := range root.AllLeafChildren {
		parent := root
		path := ""
		for level, col := range g.Columns {
			key := col.Key(leaf.Data)
			if path == "" {
				path = key
			} else {
				path = path + "|" + key
			}
			group, seen := live[path]
			if !seen {
				group = g.groupFor(path, key, col.Field, level, parent)
				group.LeafGroup = level == leafLevel-1
				live[path] = group
				parent.ChildrenAfterGroup = append(parent.ChildrenAfterGroup, group)
			}
			group.AllLeafChildren = append(group.AllLeafChildren, leaf)
			parent = group
		}

		old := leaf.Parent
		leaf.Parent = parent
		leaf.Level = leafLevel
		parent.ChildrenAfterGroup = append(parent.ChildrenAfterGroup, leaf)

		if old != parent {
			cp.AddParentNode(old)
			cp.AddParentNode(parent)
		} else if _, ok := touched[leaf]; ok {
			cp.AddParentNode(parent)
		}
	}

	g.dropGroups(live)
	g.groups = live
}

// groupFor returns the reusable group for path, resetting its children.
func (g *GroupStage) groupFor(path, key, field string, level int, parent *model.RowNode) *model.RowNode {
	group, ok := g.groups[path]
	if !ok {
		group = &model.RowNode{
			ID:         model.GroupIDPrefix + groupID(path),
			Group:      true,
			Key:        key,
			Field:      field,
			Level:      level,
			Expanded:   nodes.IsExpanded(g.DefaultExpanded, level),
			Selectable: true,
			RowTop:     model.NoPosition,
			RowIndex:   model.NoPosition,
		}
	}
	group.Parent = parent
	group.AllLeafChildren = nil
	group.ChildrenAfterGroup = nil
	return group
}

// dropGroups clears geometry on groups that no longer exist, since the row
// model only walks groups that are still in the tree.
func (g *GroupStage) dropGroups(live map[string]*model.RowNode) {
	for path, group := range g.groups {
		if _, ok := live[path]; ok {
			continue
		}
		group.ClearRowTopAndRowIndex()
		if group.Sibling != nil {
			group.Sibling.ClearRowTopAndRowIndex()
		}
	}
}

func groupID(path string) string {
	return strings.ReplaceAll(path, "|", "-")
}

// FieldKey groups map records by the string form of field.
func FieldKey(field string) GroupColumn {
	return GroupColumn{
		Field: field,
		Key: func(data any) string {
			rec, ok := data.(map[string]any)
			if !ok {
				return ""
			}
			return FormatValue(rec[field])
		},
	}
}
