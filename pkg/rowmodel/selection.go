package rowmodel

import (
	"github.com/Dicklesworthstone/rowgrid/pkg/model"
)

// Selection event sources.
const (
	SelectionSourceAPI            = "api"
	SelectionSourceRowDataChanged = "rowDataChanged"
)

// updateSelectionAfterTransactions deselects nodes the node manager flagged
// and recomputes group selection, which adds and removes can change even
// when nothing was deselected.
func (m *ClientSideRowModel) updateSelectionAfterTransactions(toUnselect []*model.RowNode) {
	unselected := false
	for _, n := range toUnselect {
		if n.SetSelected(false) {
			unselected = true
		}
	}
	model.UpdateGroupsFromChildren(m.root)
	if unselected {
		m.emit(SelectionChangedEvent{Source: SelectionSourceRowDataChanged})
	}
}

// SetSelected selects or deselects n. Selecting a group selects every
// selectable leaf below it.
func (m *ClientSideRowModel) SetSelected(n *model.RowNode, selected bool) {
	if n == nil {
		return
	}
	m.locked(func() {
		changed := false
		if n.Group {
			model.ForEachNode(n, model.TraverseAfterGroup, func(child *model.RowNode, _ int) {
				if !child.Group && child.SetSelected(selected) {
					changed = true
				}
			})
		} else {
			changed = n.SetSelected(selected)
		}
		if !changed {
			return
		}
		model.UpdateGroupsFromChildren(m.root)
		m.emit(SelectionChangedEvent{Source: SelectionSourceAPI})
	})
}

// GetSelectedNodes returns every selected leaf in load order.
func (m *ClientSideRowModel) GetSelectedNodes() []*model.RowNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.SelectedNodes(m.root)
}
