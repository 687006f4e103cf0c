package model

// UpdateGroupsFromChildren recomputes the tri-state selection of every group
// below root from its children, bottom-up. It reports whether any group
// changed state.
func UpdateGroupsFromChildren(root *RowNode) bool {
	if root == nil {
		return false
	}
	changed := false
	var visit func(n *RowNode) SelectedState
	visit = func(n *RowNode) SelectedState {
		if !n.Group || len(n.ChildrenAfterGroup) == 0 {
			return n.selected
		}
		var sawSelected, sawUnselected bool
		for _, child := range n.ChildrenAfterGroup {
			state := visit(child)
			if !child.Selectable && !child.Group {
				continue
			}
			switch state {
			case Selected:
				sawSelected = true
			case NotSelected:
				sawUnselected = true
			default:
				sawSelected, sawUnselected = true, true
			}
		}
		next := NotSelected
		switch {
		case sawSelected && sawUnselected:
			next = Indeterminate
		case sawSelected:
			next = Selected
		}
		if !n.IsRoot() && n.setSelectedState(next) {
			changed = true
		}
		return next
	}
	visit(root)
	return changed
}

// SelectedNodes returns every selected leaf in load order.
func SelectedNodes(root *RowNode) []*RowNode {
	var out []*RowNode
	ForEachNode(root, TraverseLeaves, func(n *RowNode, _ int) {
		if n.IsSelected() {
			out = append(out, n)
		}
	})
	return out
}
