package rowmodel

import (
	"github.com/Dicklesworthstone/rowgrid/pkg/model"
)

type batchItem struct {
	tx       model.Transaction
	callback func(model.TransactionResult)
}

// BatchUpdateRowData queues tx. Transactions queued within the async wait
// window are applied together with a single refresh; callback, if not nil,
// is then called asynchronously with the transaction's own result.
func (m *ClientSideRowModel) BatchUpdateRowData(tx model.Transaction, callback func(model.TransactionResult)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.batchTimer == nil {
		gen := m.batchGen
		m.batchTimer = m.sched.AfterFunc(m.asyncWait(), func() {
			m.locked(func() {
				// A flush may have beaten this timer to the batch.
				if gen != m.batchGen {
					return
				}
				m.executeBatch()
			})
		})
	}
	m.batch = append(m.batch, batchItem{tx: tx, callback: callback})
}

// FlushAsyncTransactions applies queued transactions now instead of waiting
// for the timer.
func (m *ClientSideRowModel) FlushAsyncTransactions() {
	m.locked(func() {
		if m.batchTimer == nil {
			return
		}
		m.batchTimer.Stop()
		m.executeBatch()
	})
}

// PendingAsyncTransactions reports how many transactions are queued.
func (m *ClientSideRowModel) PendingAsyncTransactions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batch)
}

func (m *ClientSideRowModel) executeBatch() {
	items := m.batch
	m.batch = nil
	m.batchTimer = nil
	m.batchGen++
	if len(items) == 0 {
		return
	}

	results := make([]model.TransactionResult, 0, len(items))
	var toUnselect []*model.RowNode
	var callbacks []func()
	forceRowNodeOrder := false

	for _, item := range items {
		result, unselect := m.nodeManager.UpdateRowData(item.tx, nil)
		results = append(results, result)
		toUnselect = append(toUnselect, unselect...)
		if item.callback != nil {
			cb := item.callback
			callbacks = append(callbacks, func() { cb(result) })
		}
		if item.tx.HasAddIndex() {
			forceRowNodeOrder = true
		}
	}

	var order map[string]int
	if forceRowNodeOrder {
		order = m.createRowNodeOrder()
	}
	m.commonUpdateRowData(results, order, toUnselect)

	if len(callbacks) > 0 {
		m.sched.AfterFunc(0, func() {
			for _, cb := range callbacks {
				cb()
			}
		})
	}
	m.emit(AsyncTransactionsFlushedEvent{Results: results})
}
