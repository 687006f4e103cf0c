// Package model defines the row tree shared by the node manager, the stages
// and the row model: RowNode, transactions and traversal modes.
package model

// RootLevel is the level of the synthetic root node. Top-level rows sit at 0.
const RootLevel = -1

// NoPosition marks a cleared RowTop or RowIndex.
const NoPosition = -1

// Prefixes for ids of nodes the engine synthesises.
const (
	RootNodeID          = "ROOT_NODE_ID"
	GroupIDPrefix       = "row-group-"
	DetailIDPrefix      = "detail_"
	FooterIDPrefix      = "rowGroupFooter_"
	TotalFooterIDPrefix = "rowGroupFooter_" + RootNodeID
)

// SelectedState is the tri-state selection of a node. Leaves are only ever
// Selected or NotSelected; groups may be Indeterminate.
type SelectedState int

const (
	NotSelected SelectedState = iota
	Selected
	Indeterminate
)

func (s SelectedState) String() string {
	switch s {
	case Selected:
		return "selected"
	case Indeterminate:
		return "indeterminate"
	default:
		return "not-selected"
	}
}

// RowNode is one logical row: a data leaf, a synthetic group, a detail row or
// a footer. Ownership flows root to leaf; Parent is a back-reference only.
type RowNode struct {
	ID    string
	Data  any
	Level int

	// Parent is nil for the root, and for every node when parents are
	// suppressed in configuration.
	Parent *RowNode

	// Children as produced by each stage. Each stage reads the previous
	// array and writes its own.
	AllLeafChildren     []*RowNode
	ChildrenAfterGroup  []*RowNode
	ChildrenAfterFilter []*RowNode
	ChildrenAfterSort   []*RowNode
	AllChildrenCount    int

	Group     bool
	LeafGroup bool
	Footer    bool
	Detail    bool
	Master    bool
	Expanded  bool

	// Key and Field identify a group: Key is the value grouped on, Field
	// the grouping column.
	Key   string
	Field string

	Selectable bool
	selected   SelectedState

	RowTop             int
	RowHeight          int
	RowIndex           int
	RowHeightEstimated bool
	UILevel            int

	ChildIndex int
	FirstChild bool
	LastChild  bool

	// AggData holds aggregation results for group rows.
	AggData map[string]float64

	DetailNode *RowNode
	Sibling    *RowNode
}

// NewRootNode returns the synthetic root. It is created once per engine and
// never replaced.
func NewRootNode() *RowNode {
	return &RowNode{
		ID:         RootNodeID,
		Level:      RootLevel,
		Group:      true,
		Expanded:   true,
		Selectable: true,
		RowTop:     NoPosition,
		RowIndex:   NoPosition,
	}
}

// NewRowNode returns a leaf node with cleared geometry.
func NewRowNode(id string, data any, level int) *RowNode {
	return &RowNode{
		ID:         id,
		Data:       data,
		Level:      level,
		Selectable: true,
		RowTop:     NoPosition,
		RowIndex:   NoPosition,
	}
}

// IsRoot reports whether n is the synthetic root.
func (n *RowNode) IsRoot() bool {
	return n.Level == RootLevel
}

// HasChildren reports whether the group stage gave n any children.
func (n *RowNode) HasChildren() bool {
	return len(n.ChildrenAfterGroup) > 0
}

// IsSelected reports whether n is fully selected.
func (n *RowNode) IsSelected() bool {
	return n.selected == Selected
}

// SelectedState returns the tri-state selection.
func (n *RowNode) SelectedState() SelectedState {
	return n.selected
}

// SetSelected selects or deselects n and reports whether the state changed.
// Unselectable nodes can be deselected but never selected.
func (n *RowNode) SetSelected(selected bool) bool {
	next := NotSelected
	if selected {
		if !n.Selectable {
			return false
		}
		next = Selected
	}
	return n.setSelectedState(next)
}

func (n *RowNode) setSelectedState(s SelectedState) bool {
	if n.selected == s {
		return false
	}
	n.selected = s
	return true
}

// SetRowTop sets the top pixel.
func (n *RowNode) SetRowTop(top int) {
	n.RowTop = top
}

// SetRowIndex sets the display index.
func (n *RowNode) SetRowIndex(index int) {
	n.RowIndex = index
}

// SetRowHeight sets the height and whether it was only an estimate.
func (n *RowNode) SetRowHeight(height int, estimated bool) {
	n.RowHeight = height
	n.RowHeightEstimated = estimated
}

// HasRowHeight reports whether a height has been assigned.
func (n *RowNode) HasRowHeight() bool {
	return n.RowHeight > 0
}

// ClearRowHeight forgets the height so the next geometry pass asks again.
func (n *RowNode) ClearRowHeight() {
	n.RowHeight = 0
	n.RowHeightEstimated = false
}

// ClearRowTopAndRowIndex removes n from the displayed geometry. The node
// itself stays alive.
func (n *RowNode) ClearRowTopAndRowIndex() {
	n.RowTop = NoPosition
	n.RowIndex = NoPosition
}

// IsDisplayed reports whether the last geometry pass placed n.
func (n *RowNode) IsDisplayed() bool {
	return n.RowIndex != NoPosition
}

// IsRowInPixel reports whether pixel falls inside [RowTop, RowTop+RowHeight).
func (n *RowNode) IsRowInPixel(pixel int) bool {
	return n.RowTop != NoPosition && pixel >= n.RowTop && pixel < n.RowTop+n.RowHeight
}

// UpdateData replaces the payload in place.
func (n *RowNode) UpdateData(data any) {
	n.Data = data
}

// ResetChildren empties the four child arrays of n.
func (n *RowNode) ResetChildren() {
	n.AllLeafChildren = nil
	n.ChildrenAfterGroup = nil
	n.ChildrenAfterFilter = nil
	n.ChildrenAfterSort = nil
	n.AllChildrenCount = 0
}
