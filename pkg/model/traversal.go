package model

// Traversal selects which child array a tree walk follows. Each mode carries
// its own selector so the walk itself never switches on the mode.
type Traversal struct {
	Name     string
	Children func(n *RowNode) []*RowNode
	// Flat walks only the top-level array.
	Flat bool
}

var (
	// TraverseLeaves visits the raw leaf list of the root, in load order.
	TraverseLeaves = Traversal{
		Name:     "leaves",
		Children: func(n *RowNode) []*RowNode { return n.AllLeafChildren },
		Flat:     true,
	}
	// TraverseAfterGroup visits the grouped tree.
	TraverseAfterGroup = Traversal{
		Name:     "after-group",
		Children: func(n *RowNode) []*RowNode { return n.ChildrenAfterGroup },
	}
	// TraverseAfterFilter visits the filtered tree.
	TraverseAfterFilter = Traversal{
		Name:     "after-filter",
		Children: func(n *RowNode) []*RowNode { return n.ChildrenAfterFilter },
	}
	// TraverseAfterSort visits the filtered and sorted tree.
	TraverseAfterSort = Traversal{
		Name:     "after-sort",
		Children: func(n *RowNode) []*RowNode { return n.ChildrenAfterSort },
	}
	// TraversePivot visits the sorted tree but stops at leaf groups.
	TraversePivot = Traversal{
		Name: "pivot",
		Children: func(n *RowNode) []*RowNode {
			if n.LeafGroup {
				return nil
			}
			return n.ChildrenAfterSort
		},
	}
)

// ForEachNode walks the tree below root depth-first in pre-order, calling fn
// with a running index. Footers are visited but never descended into.
func ForEachNode(root *RowNode, mode Traversal, fn func(n *RowNode, index int)) {
	if root == nil || fn == nil {
		return
	}
	walkNodes(mode.Children(root), mode, fn, 0)
}

func walkNodes(nodes []*RowNode, mode Traversal, fn func(n *RowNode, index int), index int) int {
	for _, n := range nodes {
		fn(n, index)
		index++
		if mode.Flat || n.Footer {
			continue
		}
		if children := mode.Children(n); len(children) > 0 {
			index = walkNodes(children, mode, fn, index)
		}
	}
	return index
}

// ForEachGroupWithKey walks the grouped tree, calling fn for every group with
// its key path (ancestor keys joined by "|"). Used to snapshot expansion state.
func ForEachGroupWithKey(root *RowNode, fn func(n *RowNode, keyPath string)) {
	if root == nil {
		return
	}
	var walk func(nodes []*RowNode, prefix string)
	walk = func(nodes []*RowNode, prefix string) {
		for _, n := range nodes {
			if !n.Group || len(n.ChildrenAfterGroup) == 0 {
				continue
			}
			path := n.Key
			if prefix != "" {
				path = prefix + "|" + n.Key
			}
			fn(n, path)
			walk(n.ChildrenAfterGroup, path)
		}
	}
	walk(root.ChildrenAfterGroup, "")
}
