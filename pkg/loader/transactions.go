package loader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/Dicklesworthstone/rowgrid/pkg/model"
)

// ErrNoRowIDField is returned when a transaction removes or updates rows but
// no id field is configured to match them against loaded rows.
var ErrNoRowIDField = errors.New("remove and update need a row id field")

// DecodeTransaction parses one transaction record:
//
//	{"add": [...], "addIndex": 0, "update": [...], "remove": [...]}
//
// Remove and update items need to carry idField; decoded records never share
// identity with loaded ones, so there is nothing else to match them by.
func DecodeTransaction(line []byte, idField string) (model.Transaction, error) {
	var tx model.Transaction
	if err := json.Unmarshal(line, &tx); err != nil {
		return model.Transaction{}, fmt.Errorf("decode transaction: %w", err)
	}
	if len(tx.Remove) == 0 && len(tx.Update) == 0 {
		return tx, nil
	}
	if idField == "" {
		return model.Transaction{}, ErrNoRowIDField
	}
	for _, item := range append(append([]any{}, tx.Remove...), tx.Update...) {
		rec, ok := item.(map[string]any)
		if !ok {
			return model.Transaction{}, fmt.Errorf("transaction item %v is not an object", item)
		}
		if _, ok := rec[idField]; !ok {
			return model.Transaction{}, fmt.Errorf("transaction item is missing %q", idField)
		}
	}
	return tx, nil
}

// DecodeTransactions reads one transaction per non-blank line of r.
func DecodeTransactions(r io.Reader, idField string) ([]model.Transaction, error) {
	var txs []model.Transaction
	err := scanLines(r, func(lineNum int, line []byte) error {
		tx, err := DecodeTransaction(line, idField)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		txs = append(txs, tx)
		return nil
	})
	return txs, err
}

// LoadTransactions reads a JSONL transaction file.
func LoadTransactions(path, idField string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transactions: %w", err)
	}
	defer f.Close()

	txs, err := DecodeTransactions(f, idField)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return txs, nil
}
