package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/receiptdb/internal/rows"
)

// insert is one table's share of a batch.
type insert struct {
	table string
	query string
	args  [][]any
}

// WriteBatch inserts every row of b in a single transaction.
// Uses ON CONFLICT DO NOTHING for idempotency: rows whose primary key already
// exists are skipped and not counted in the returned stats. Any other error
// rolls back the whole batch.
//
// Rows must reference receipts that are in b or already stored
// (foreign key constraint).
func (s *Store) WriteBatch(ctx context.Context, b rows.Batch) (WriteStats, error) {
	inserts, err := batchInserts(b)
	if err != nil {
		return WriteStats{}, fmt.Errorf("write batch: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return WriteStats{}, fmt.Errorf("write batch: begin: %w", err)
	}
	defer tx.Rollback()

	var stats WriteStats
	for _, ins := range inserts {
		if len(ins.args) == 0 {
			continue
		}
		n, err := execInsert(ctx, tx, ins)
		if err != nil {
			return WriteStats{}, fmt.Errorf("write %s: %w", ins.table, err)
		}
		*stats.field(ins.table) = n
	}

	if err := tx.Commit(); err != nil {
		return WriteStats{}, fmt.Errorf("write batch: commit: %w", err)
	}
	return stats, nil
}

// execInsert runs one prepared statement per row and sums RowsAffected.
func execInsert(ctx context.Context, tx *sql.Tx, ins insert) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, ins.query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var total int64
	for _, args := range ins.args {
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// batchInserts encodes b into statement arguments, in Tables order.
func batchInserts(b rows.Batch) ([]insert, error) {
	receipts := insert{table: TableReceipts, query: `
		INSERT INTO receipts
		(receipt_id, block_height, predecessor_id, receiver_id, receipt_kind)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(receipt_id) DO NOTHING
	`}
	for _, r := range b.Receipts {
		receipts.args = append(receipts.args, []any{
			r.ReceiptID, marshalDecimal(r.BlockHeight), r.PredecessorID, r.ReceiverID, string(r.Kind),
		})
	}

	data := insert{table: TableData, query: `
		INSERT INTO receipt_data (data_id, receipt_id, data)
		VALUES (?, ?, ?)
		ON CONFLICT(data_id) DO NOTHING
	`}
	for _, d := range b.Data {
		// A nil slice binds as NULL, an empty one as a zero-length BLOB.
		data.args = append(data.args, []any{d.DataID, d.ReceiptID, d.Data})
	}

	actions := insert{table: TableActions, query: `
		INSERT INTO receipt_actions
		(receipt_id, signer_id, signer_public_key, gas_price, gas_price_fallback)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(receipt_id) DO NOTHING
	`}
	for _, a := range b.Actions {
		actions.args = append(actions.args, []any{
			a.ReceiptID, a.SignerID, a.SignerPublicKey, marshalDecimal(a.GasPrice), a.GasPriceFallback,
		})
	}

	actionActions := insert{table: TableActionActions, query: `
		INSERT INTO receipt_action_actions
		(receipt_id, index_in_action_receipt, action_kind, args)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(receipt_id, index_in_action_receipt) DO NOTHING
	`}
	for _, a := range b.ActionActions {
		args, err := marshalArgs(a.Args)
		if err != nil {
			return nil, fmt.Errorf("action %d of %s: %w", a.Index, rows.EncodeID(a.ReceiptID), err)
		}
		actionActions.args = append(actionActions.args, []any{a.ReceiptID, a.Index, string(a.Kind), args})
	}

	inputs := insert{table: TableInputData, query: `
		INSERT INTO receipt_action_input_data (receipt_id, data_id)
		VALUES (?, ?)
		ON CONFLICT(receipt_id, data_id) DO NOTHING
	`}
	for _, e := range b.InputData {
		inputs.args = append(inputs.args, []any{e.ReceiptID, e.DataID})
	}

	outputs := insert{table: TableOutputData, query: `
		INSERT INTO receipt_action_output_data (receipt_id, data_id, receiver_id)
		VALUES (?, ?, ?)
		ON CONFLICT(receipt_id, data_id) DO NOTHING
	`}
	for _, e := range b.OutputData {
		outputs.args = append(outputs.args, []any{e.ReceiptID, e.DataID, e.ReceiverID})
	}

	return []insert{receipts, data, actions, actionActions, inputs, outputs}, nil
}
