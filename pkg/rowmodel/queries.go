package rowmodel

import (
	"github.com/Dicklesworthstone/rowgrid/pkg/model"
)

// GetRowCount returns the number of displayed rows.
func (m *ClientSideRowModel) GetRowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rowsToDisplay)
}

// GetRow returns the displayed row at index, or nil.
func (m *ClientSideRowModel) GetRow(index int) *model.RowNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.rowsToDisplay) {
		return nil
	}
	return m.rowsToDisplay[index]
}

// GetRowsToDisplay returns a copy of the displayed rows.
func (m *ClientSideRowModel) GetRowsToDisplay() []*model.RowNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.RowNode, len(m.rowsToDisplay))
	copy(out, m.rowsToDisplay)
	return out
}

// IsEmpty reports whether no rows are loaded.
func (m *ClientSideRowModel) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.root.AllLeafChildren) == 0
}

// IsRowsToRender reports whether any row is displayed.
func (m *ClientSideRowModel) IsRowsToRender() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rowsToDisplay) > 0
}

// IsRowPresent reports whether n is a loaded leaf.
func (m *ClientSideRowModel) IsRowPresent(n *model.RowNode) bool {
	if n == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nodeManager.GetRowNode(n.ID) == n
}

// GetRowNode looks a leaf up by id.
func (m *ClientSideRowModel) GetRowNode(id string) *model.RowNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nodeManager.GetRowNode(id)
}

// GetCopyOfNodesMap returns a snapshot of the id map.
func (m *ClientSideRowModel) GetCopyOfNodesMap() map[string]*model.RowNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nodeManager.CopyOfNodesMap()
}

// GetRootNode returns the synthetic root.
func (m *ClientSideRowModel) GetRootNode() *model.RowNode {
	return m.root
}

// GetTopLevelNodes returns the root's grouped children.
func (m *ClientSideRowModel) GetTopLevelNodes() []*model.RowNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.RowNode, len(m.root.ChildrenAfterGroup))
	copy(out, m.root.ChildrenAfterGroup)
	return out
}

// The iterators collect under the lock and call fn after releasing it, so
// fn may call back into the model.

// ForEachLeafNode visits every leaf in load order.
func (m *ClientSideRowModel) ForEachLeafNode(fn func(n *model.RowNode, index int)) {
	m.forEach(model.TraverseLeaves, fn)
}

// ForEachNode visits the grouped tree.
func (m *ClientSideRowModel) ForEachNode(fn func(n *model.RowNode, index int)) {
	m.forEach(model.TraverseAfterGroup, fn)
}

// ForEachNodeAfterFilter visits the filtered tree.
func (m *ClientSideRowModel) ForEachNodeAfterFilter(fn func(n *model.RowNode, index int)) {
	m.forEach(model.TraverseAfterFilter, fn)
}

// ForEachNodeAfterFilterAndSort visits the filtered and sorted tree.
func (m *ClientSideRowModel) ForEachNodeAfterFilterAndSort(fn func(n *model.RowNode, index int)) {
	m.forEach(model.TraverseAfterSort, fn)
}

// ForEachPivotNode visits the sorted tree down to leaf groups.
func (m *ClientSideRowModel) ForEachPivotNode(fn func(n *model.RowNode, index int)) {
	m.forEach(model.TraversePivot, fn)
}

func (m *ClientSideRowModel) forEach(mode model.Traversal, fn func(n *model.RowNode, index int)) {
	m.mu.Lock()
	var visited []*model.RowNode
	model.ForEachNode(m.root, mode, func(n *model.RowNode, _ int) {
		visited = append(visited, n)
	})
	m.mu.Unlock()

	for i, n := range visited {
		fn(n, i)
	}
}

// GetNodesInRangeForSelection returns the sorted-tree nodes from first to
// last inclusive, whichever comes first. A nil bound selects only the other.
func (m *ClientSideRowModel) GetNodesInRangeForSelection(first, last *model.RowNode) []*model.RowNode {
	switch {
	case first == nil && last == nil:
		return nil
	case first == nil:
		return []*model.RowNode{last}
	case last == nil || first == last:
		return []*model.RowNode{first}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*model.RowNode
	started, finished := false, false
	model.ForEachNode(m.root, model.TraverseAfterSort, func(n *model.RowNode, _ int) {
		if finished {
			return
		}
		isBound := n == first || n == last
		if !started {
			if !isBound {
				return
			}
			started = true
		} else if isBound {
			finished = true
		}
		result = append(result, n)
	})
	return result
}

// SetRowExpanded opens or closes a group or master row.
func (m *ClientSideRowModel) SetRowExpanded(n *model.RowNode, expanded bool) {
	if n == nil {
		return
	}
	m.locked(func() {
		if n.Expanded == expanded {
			return
		}
		n.Expanded = expanded
		if n.Sibling != nil {
			n.Sibling.Expanded = expanded
		}
		m.emit(RowGroupOpenedEvent{Node: n, Expanded: expanded})
		m.refreshModel(RefreshParams{
			Step:             StepMap,
			KeepRenderedRows: true,
			Animate:          true,
		})
	})
}

// ExpandOrCollapseAll opens or closes every group. In pivot mode leaf
// groups stay closed; with tree data every parent row is affected.
func (m *ClientSideRowModel) ExpandOrCollapseAll(expand bool) {
	m.locked(func() {
		var recurse func(list []*model.RowNode)
		recurse = func(list []*model.RowNode) {
			for _, n := range list {
				var act bool
				switch {
				case m.grid.TreeData:
					act = n.HasChildren()
				case m.grid.PivotMode:
					act = n.Group && !n.LeafGroup
				default:
					act = n.Group
				}
				if act {
					n.Expanded = expand
					recurse(n.ChildrenAfterGroup)
				}
			}
		}
		recurse(m.root.ChildrenAfterGroup)

		m.refreshModel(RefreshParams{Step: StepMap})
		source := "collapseAll"
		if expand {
			source = "expandAll"
		}
		m.emit(ExpandCollapseAllEvent{Source: source})
	})
}
