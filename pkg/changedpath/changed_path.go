// Package changedpath records which subtrees a transaction touched so the
// pipeline stages can skip branches whose inputs did not change.
//
// A ChangedPath mirrors the row tree but only holds the ancestors of changed
// nodes. When inactive (a full recompute), callers must visit everything.
package changedpath

import (
	"github.com/Dicklesworthstone/rowgrid/pkg/model"
)

type pathItem struct {
	node     *model.RowNode
	children []*pathItem
}

// ChangedPath is the tree of touched nodes rooted at the row model's root.
type ChangedPath struct {
	keepingColumns bool
	active         bool
	root           *pathItem
	items          map[*model.RowNode]*pathItem
	columns        map[*model.RowNode]map[string]struct{}
}

// New returns an active path containing only root. When keepingColumns is
// set, the path also remembers which value columns changed per node.
func New(keepingColumns bool, root *model.RowNode) *ChangedPath {
	item := &pathItem{node: root}
	return &ChangedPath{
		keepingColumns: keepingColumns,
		active:         true,
		root:           item,
		items:          map[*model.RowNode]*pathItem{root: item},
		columns:        make(map[*model.RowNode]map[string]struct{}),
	}
}

// SetInactive forces every walk to cover the whole tree.
func (c *ChangedPath) SetInactive() {
	c.active = false
}

// IsActive reports whether the path restricts walks.
func (c *ChangedPath) IsActive() bool {
	return c != nil && c.active
}

// Root returns the root node the path was built for.
func (c *ChangedPath) Root() *model.RowNode {
	return c.root.node
}

// AddParentNode records node and all its ancestors as changed. columns, if
// any, are remembered against each of them.
func (c *ChangedPath) AddParentNode(node *model.RowNode, columns ...string) {
	if node == nil || node.Detail || node.Footer {
		return
	}
	added := c.createPathItems(node)
	c.linkPathItems(node, added)
	c.populateColumns(node, columns)
}

// createPathItems walks up from node creating items until it meets one that
// already exists. It returns how many were created.
func (c *ChangedPath) createPathItems(node *model.RowNode) int {
	count := 0
	for p := node; p != nil; p = p.Parent {
		if _, ok := c.items[p]; ok {
			break
		}
		c.items[p] = &pathItem{node: p}
		count++
	}
	return count
}

func (c *ChangedPath) linkPathItems(node *model.RowNode, count int) {
	p := node
	for i := 0; i < count && p != nil; i++ {
		item := c.items[p]
		parent := c.items[p.Parent]
		if parent == nil {
			// Detached from the root (parents suppressed); hang it off the root.
			parent = c.root
		}
		parent.children = append(parent.children, item)
		p = p.Parent
	}
}

func (c *ChangedPath) populateColumns(node *model.RowNode, columns []string) {
	if !c.keepingColumns || len(columns) == 0 {
		return
	}
	for p := node; p != nil; p = p.Parent {
		set, ok := c.columns[p]
		if !ok {
			set = make(map[string]struct{})
			c.columns[p] = set
		}
		for _, col := range columns {
			set[col] = struct{}{}
		}
	}
}

// CanSkip reports whether node is outside the changed region.
func (c *ChangedPath) CanSkip(node *model.RowNode) bool {
	if !c.IsActive() {
		return false
	}
	_, ok := c.items[node]
	return !ok
}

// Contains reports whether node is on the path.
func (c *ChangedPath) Contains(node *model.RowNode) bool {
	_, ok := c.items[node]
	return ok
}

// ForEachChangedNodeDepthFirst calls fn children-first. While active it only
// visits nodes on the path; otherwise it visits every group (and every leaf
// when traverseLeaves is set). includeUnchanged forces the full walk.
func (c *ChangedPath) ForEachChangedNodeDepthFirst(fn func(n *model.RowNode), traverseLeaves, includeUnchanged bool) {
	if c.active && !includeUnchanged {
		walkPath(c.root, fn)
		return
	}
	walkEverything(c.root.node, fn, traverseLeaves)
}

// ExecuteFromRootNode calls fn with the root only.
func (c *ChangedPath) ExecuteFromRootNode(fn func(n *model.RowNode)) {
	fn(c.root.node)
}

func walkPath(item *pathItem, fn func(n *model.RowNode)) {
	for _, child := range item.children {
		walkPath(child, fn)
	}
	fn(item.node)
}

func walkEverything(node *model.RowNode, fn func(n *model.RowNode), traverseLeaves bool) {
	for _, child := range node.ChildrenAfterGroup {
		if len(child.ChildrenAfterGroup) > 0 {
			walkEverything(child, fn, traverseLeaves)
		} else if traverseLeaves {
			fn(child)
		}
	}
	fn(node)
}

// ValueColumnsForNode narrows columns to those that changed under node.
// Without column tracking every column is returned.
func (c *ChangedPath) ValueColumnsForNode(node *model.RowNode, columns []string) []string {
	if !c.keepingColumns {
		return columns
	}
	set := c.columns[node]
	var out []string
	for _, col := range columns {
		if _, ok := set[col]; ok {
			out = append(out, col)
		}
	}
	return out
}

// NotValueColumnsForNode is the complement of ValueColumnsForNode.
func (c *ChangedPath) NotValueColumnsForNode(node *model.RowNode, columns []string) []string {
	if !c.keepingColumns {
		return nil
	}
	set := c.columns[node]
	var out []string
	for _, col := range columns {
		if _, ok := set[col]; !ok {
			out = append(out, col)
		}
	}
	return out
}
