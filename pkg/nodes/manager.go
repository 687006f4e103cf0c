// Package nodes owns leaf-row identity: it builds the leaf list under the
// root from raw rows and applies add/remove/update transactions to it.
package nodes

import (
	"reflect"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/Dicklesworthstone/rowgrid/pkg/model"
)

// RowIDFunc derives a stable id from a data record.
type RowIDFunc func(data any) string

// Options configures a Manager. The zero value is usable.
type Options struct {
	// RowID resolves ids. When nil, ids are sequential and transactions
	// match rows by reference.
	RowID RowIDFunc

	// IsRowMaster decides master rows in master/detail mode. When nil every
	// row is a master.
	IsRowMaster func(data any) bool

	// IsRowSelectable decides selectability. When nil every row is selectable.
	IsRowSelectable func(data any) bool

	// GroupLevels reports how many grouping levels are active; it shifts the
	// expansion depth of master rows.
	GroupLevels func() int

	TreeData                  bool
	MasterDetail              bool
	SuppressParentsInRowNodes bool

	// GroupDefaultExpanded is the depth below which rows start expanded;
	// -1 expands everything.
	GroupDefaultExpanded int

	Logger logrus.FieldLogger
}

// Manager is the sole authority for leaf-node existence. It is not safe for
// concurrent use; the row model serialises access.
type Manager struct {
	root   *model.RowNode
	opts   Options
	log    logrus.FieldLogger
	nextID int
	byID   map[string]*model.RowNode
}

// NewManager returns a manager that fills root's child arrays.
func NewManager(root *model.RowNode, opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		root: root,
		opts: opts,
		log:  log,
		byID: make(map[string]*model.RowNode),
	}
}

// Root returns the root node the manager fills.
func (m *Manager) Root() *model.RowNode {
	return m.root
}

// SetRowData replaces every leaf. rows must be a slice or array; anything
// else (a string, a map, a scalar) is logged and leaves the tree empty.
func (m *Manager) SetRowData(rows any) {
	m.root.ResetChildren()
	m.byID = make(map[string]*model.RowNode)
	m.nextID = 0

	items, ok := AsRows(rows)
	if !ok {
		m.log.WithField("kind", reflect.TypeOf(rows).String()).
			Warn("row data must be a slice; ignoring it and showing no rows")
		return
	}

	leaves := make([]*model.RowNode, 0, len(items))
	for _, data := range items {
		leaves = append(leaves, m.createNode(data, m.root, 0))
	}
	m.root.AllLeafChildren = leaves
}

// AsRows normalises a slice or array of any element type to []any. A nil
// value is an empty slice.
func AsRows(rows any) ([]any, bool) {
	if rows == nil {
		return nil, true
	}
	if items, ok := rows.([]any); ok {
		return items, true
	}
	v := reflect.ValueOf(rows)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, v.Len())
	for i := range items {
		items[i] = v.Index(i).Interface()
	}
	return items, true
}

// UpdateRowData applies tx in the fixed order remove, update, add. order,
// when non-nil, maps node ids to their wanted leaf position. The second
// result lists nodes that were selected and must now be deselected.
func (m *Manager) UpdateRowData(tx model.Transaction, order map[string]int) (model.TransactionResult, []*model.RowNode) {
	var result model.TransactionResult
	var toUnselect []*model.RowNode

	m.executeRemove(tx, &result, &toUnselect)
	m.executeUpdate(tx, &result, &toUnselect)
	m.executeAdd(tx, &result)

	if order != nil {
		SortByOrder(m.root.AllLeafChildren, order)
	}
	return result, toUnselect
}

func (m *Manager) executeRemove(tx model.Transaction, result *model.TransactionResult, toUnselect *[]*model.RowNode) {
	if len(tx.Remove) == 0 {
		return
	}
	removed := make(map[*model.RowNode]struct{}, len(tx.Remove))
	for _, data := range tx.Remove {
		node := m.lookupRowNode(data)
		if node == nil {
			continue
		}
		if _, dup := removed[node]; dup {
			continue
		}
		if node.IsSelected() {
			*toUnselect = append(*toUnselect, node)
		}
		node.ClearRowTopAndRowIndex()
		removed[node] = struct{}{}
		delete(m.byID, node.ID)
		result.Remove = append(result.Remove, node)
	}
	if len(removed) == 0 {
		return
	}

	// One filter pass instead of a splice per removed row.
	kept := make([]*model.RowNode, 0, len(m.root.AllLeafChildren)-len(removed))
	for _, n := range m.root.AllLeafChildren {
		if _, gone := removed[n]; !gone {
			kept = append(kept, n)
		}
	}
	m.root.AllLeafChildren = kept
}

func (m *Manager) executeUpdate(tx model.Transaction, result *model.TransactionResult, toUnselect *[]*model.RowNode) {
	for _, data := range tx.Update {
		node := m.lookupRowNode(data)
		if node == nil {
			continue
		}
		node.UpdateData(data)
		node.Selectable = m.isSelectable(data)
		if !node.Selectable && node.IsSelected() {
			*toUnselect = append(*toUnselect, node)
		}
		m.setMasterForRow(node, data, model.RootLevel+1, false)
		result.Update = append(result.Update, node)
	}
}

func (m *Manager) executeAdd(tx model.Transaction, result *model.TransactionResult) {
	if len(tx.Add) == 0 {
		return
	}
	added := make([]*model.RowNode, 0, len(tx.Add))
	for _, data := range tx.Add {
		added = append(added, m.createNode(data, m.root, 0))
	}

	leaves := m.root.AllLeafChildren
	if tx.AddIndex != nil && *tx.AddIndex >= 0 {
		idx := *tx.AddIndex
		if idx > len(leaves) {
			idx = len(leaves)
		}
		merged := make([]*model.RowNode, 0, len(leaves)+len(added))
		merged = append(merged, leaves[:idx]...)
		merged = append(merged, added...)
		merged = append(merged, leaves[idx:]...)
		m.root.AllLeafChildren = merged
	} else {
		m.root.AllLeafChildren = append(leaves, added...)
	}
	result.Add = append(result.Add, added...)
}

// lookupRowNode resolves a transaction item to its node, logging and
// returning nil when it cannot.
func (m *Manager) lookupRowNode(data any) *model.RowNode {
	if m.opts.RowID != nil {
		id := m.opts.RowID(data)
		node, ok := m.byID[id]
		if !ok {
			m.log.WithField("row_id", id).Warn("could not find row id, data item was not found for this id")
			return nil
		}
		return node
	}
	for _, n := range m.root.AllLeafChildren {
		if SameData(n.Data, data) {
			return n
		}
	}
	m.log.Warn("could not find data item as object was not found")
	return nil
}

func (m *Manager) createNode(data any, parent *model.RowNode, level int) *model.RowNode {
	id := strconv.Itoa(m.nextID)
	m.nextID++
	if m.opts.RowID != nil {
		id = m.opts.RowID(data)
	}

	node := model.NewRowNode(id, data, level)
	if !m.opts.SuppressParentsInRowNodes {
		node.Parent = parent
	}
	node.Selectable = m.isSelectable(data)
	m.setMasterForRow(node, data, level, true)

	if _, exists := m.byID[id]; exists {
		m.log.WithField("row_id", id).
			Warn("duplicate node id; each id should be unique, the newer row replaces the older one in the id map")
	}
	m.byID[id] = node
	return node
}

func (m *Manager) isSelectable(data any) bool {
	if m.opts.IsRowSelectable == nil {
		return true
	}
	return m.opts.IsRowSelectable(data)
}

func (m *Manager) setMasterForRow(node *model.RowNode, data any, level int, setExpanded bool) {
	if m.opts.TreeData {
		node.Master = false
		if setExpanded {
			node.Expanded = false
		}
		return
	}

	switch {
	case !m.opts.MasterDetail:
		node.Master = false
	case m.opts.IsRowMaster != nil:
		node.Master = m.opts.IsRowMaster(data)
	default:
		node.Master = true
	}

	if setExpanded {
		groupLevels := 0
		if m.opts.GroupLevels != nil {
			groupLevels = m.opts.GroupLevels()
		}
		node.Expanded = node.Master && IsExpanded(m.opts.GroupDefaultExpanded, level+groupLevels)
	}
}

// IsExpanded applies the default-expansion rule: -1 expands every level,
// otherwise levels below the threshold start open.
func IsExpanded(groupDefaultExpanded, level int) bool {
	if groupDefaultExpanded == -1 {
		return true
	}
	return level < groupDefaultExpanded
}

// GetRowNode looks a node up by id.
func (m *Manager) GetRowNode(id string) *model.RowNode {
	return m.byID[id]
}

// CopyOfNodesMap returns a snapshot of the id map.
func (m *Manager) CopyOfNodesMap() map[string]*model.RowNode {
	out := make(map[string]*model.RowNode, len(m.byID))
	for id, n := range m.byID {
		out[id] = n
	}
	return out
}

// Len returns the number of nodes in the id map.
func (m *Manager) Len() int {
	return len(m.byID)
}

// SortByOrder reorders nodes to match order (id to position). Nodes missing
// from order keep their relative order after the ordered ones.
func SortByOrder(nodes []*model.RowNode, order map[string]int) {
	sort.SliceStable(nodes, func(i, j int) bool {
		pi, iok := order[nodes[i].ID]
		pj, jok := order[nodes[j].ID]
		switch {
		case iok && jok:
			return pi < pj
		case iok != jok:
			return iok
		default:
			return false
		}
	})
}

// SameData is the reference-equality fallback used when no row id function
// is configured: pointer identity for reference kinds, == for comparable
// values.
func SameData(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if va.Kind() == reflect.Slice && va.Len() != vb.Len() {
			return false
		}
		return va.Pointer() == vb.Pointer()
	}
	if !va.Type().Comparable() {
		return false
	}
	return equalValues(a, b)
}

// equalValues compares with ==, which still panics for comparable types that
// hold an uncomparable value in an interface field; those are never equal.
func equalValues(a, b any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return a == b
}
