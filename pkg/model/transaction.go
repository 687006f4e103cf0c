package model

// Transaction is a batch of row edits. Items are raw data records; the node
// manager resolves Remove and Update items to existing nodes.
type Transaction struct {
	Add      []any `json:"add,omitempty"`
	AddIndex *int  `json:"addIndex,omitempty"`
	Remove   []any `json:"remove,omitempty"`
	Update   []any `json:"update,omitempty"`
}

// HasAddIndex reports whether the caller asked for a contiguous insert.
func (t Transaction) HasAddIndex() bool {
	return t.AddIndex != nil
}

// IsUpdateOnly reports whether t neither adds nor removes rows.
func (t Transaction) IsUpdateOnly() bool {
	return len(t.Add) == 0 && len(t.Remove) == 0
}

// TransactionResult lists the nodes a transaction touched.
type TransactionResult struct {
	Remove []*RowNode
	Update []*RowNode
	Add    []*RowNode
}

// HasAddsOrRemoves reports whether the structure of the leaf set changed.
func (r TransactionResult) HasAddsOrRemoves() bool {
	return len(r.Add) > 0 || len(r.Remove) > 0
}

// Empty reports whether nothing was touched.
func (r TransactionResult) Empty() bool {
	return len(r.Add) == 0 && len(r.Remove) == 0 && len(r.Update) == 0
}

// Nodes returns every touched node, removed first.
func (r TransactionResult) Nodes() []*RowNode {
	out := make([]*RowNode, 0, len(r.Remove)+len(r.Update)+len(r.Add))
	out = append(out, r.Remove...)
	out = append(out, r.Update...)
	return append(out, r.Add...)
}

// IntPtr is a convenience for building Transaction.AddIndex.
func IntPtr(i int) *int {
	return &i
}
