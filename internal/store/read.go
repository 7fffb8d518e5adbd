package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/receiptdb/internal/rows"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// ReadReceipt returns the root row of a receipt.
// Returns ErrNotFound if no receipt has the given id.
func (s *Store) ReadReceipt(ctx context.Context, receiptID []byte) (rows.Receipt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT receipt_id, block_height, predecessor_id, receiver_id, receipt_kind
		FROM receipts
		WHERE receipt_id = ?
	`, receiptID)

	r, err := scanReceipt(row)
	if err != nil {
		return rows.Receipt{}, fmt.Errorf("read receipt %s: %w", rows.EncodeID(receiptID), err)
	}
	return r, nil
}

// ReadReceiptData returns the data row of a Data receipt.
// Returns ErrNotFound if the receipt has none.
func (s *Store) ReadReceiptData(ctx context.Context, receiptID []byte) (rows.ReceiptData, error) {
	var d rows.ReceiptData
	err := s.db.QueryRowContext(ctx, `
		SELECT data_id, receipt_id, data
		FROM receipt_data
		WHERE receipt_id = ?
	`, receiptID).Scan(&d.DataID, &d.ReceiptID, &d.Data)
	if err != nil {
		return rows.ReceiptData{}, fmt.Errorf("read receipt data %s: %w", rows.EncodeID(receiptID), notFound(err))
	}
	return d, nil
}

// ReadReceiptAction returns the signer row of an Action receipt.
// Returns ErrNotFound if the receipt has none.
func (s *Store) ReadReceiptAction(ctx context.Context, receiptID []byte) (rows.ReceiptAction, error) {
	var (
		a        rows.ReceiptAction
		gasPrice string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT receipt_id, signer_id, signer_public_key, gas_price, gas_price_fallback
		FROM receipt_actions
		WHERE receipt_id = ?
	`, receiptID).Scan(&a.ReceiptID, &a.SignerID, &a.SignerPublicKey, &gasPrice, &a.GasPriceFallback)
	if err != nil {
		return rows.ReceiptAction{}, fmt.Errorf("read receipt action %s: %w", rows.EncodeID(receiptID), notFound(err))
	}

	a.GasPrice, err = unmarshalDecimal("gas_price", gasPrice)
	if err != nil {
		return rows.ReceiptAction{}, fmt.Errorf("read receipt action %s: %w", rows.EncodeID(receiptID), err)
	}
	return a, nil
}

// ReadActions returns the actions of a receipt ordered by index.
// A stored args document that does not match its kind is an error.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadActions(ctx context.Context, receiptID []byte) ([]rows.ReceiptActionAction, error) {
	rs, err := s.db.QueryContext(ctx, `
		SELECT receipt_id, index_in_action_receipt, action_kind, args
		FROM receipt_action_actions
		WHERE receipt_id = ?
		ORDER BY index_in_action_receipt ASC
	`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("read actions: %w", err)
	}
	defer rs.Close()

	out := make([]rows.ReceiptActionAction, 0)
	for rs.Next() {
		a, err := scanAction(rs)
		if err != nil {
			return nil, fmt.Errorf("read actions: %w", err)
		}
		out = append(out, a)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("read actions: %w", err)
	}
	return out, nil
}

// ReadInputData returns the input edges of a receipt in insertion order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadInputData(ctx context.Context, receiptID []byte) ([]rows.ReceiptActionInputData, error) {
	rs, err := s.db.QueryContext(ctx, `
		SELECT receipt_id, data_id
		FROM receipt_action_input_data
		WHERE receipt_id = ?
		ORDER BY rowid ASC
	`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("read input data: %w", err)
	}
	defer rs.Close()

	out := make([]rows.ReceiptActionInputData, 0)
	for rs.Next() {
		var e rows.ReceiptActionInputData
		if err := rs.Scan(&e.ReceiptID, &e.DataID); err != nil {
			return nil, fmt.Errorf("read input data: %w", err)
		}
		out = append(out, e)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("read input data: %w", err)
	}
	return out, nil
}

// ReadOutputData returns the output edges of a receipt in insertion order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadOutputData(ctx context.Context, receiptID []byte) ([]rows.ReceiptActionOutputData, error) {
	rs, err := s.db.QueryContext(ctx, `
		SELECT receipt_id, data_id, receiver_id
		FROM receipt_action_output_data
		WHERE receipt_id = ?
		ORDER BY rowid ASC
	`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("read output data: %w", err)
	}
	defer rs.Close()

	out := make([]rows.ReceiptActionOutputData, 0)
	for rs.Next() {
		var e rows.ReceiptActionOutputData
		if err := rs.Scan(&e.ReceiptID, &e.DataID, &e.ReceiverID); err != nil {
			return nil, fmt.Errorf("read output data: %w", err)
		}
		out = append(out, e)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("read output data: %w", err)
	}
	return out, nil
}

// ReadBatch reassembles every row stored for one receipt.
func (s *Store) ReadBatch(ctx context.Context, receiptID []byte) (rows.Batch, error) {
	r, err := s.ReadReceipt(ctx, receiptID)
	if err != nil {
		return rows.Batch{}, err
	}
	b := rows.Batch{Receipts: []rows.Receipt{r}}

	switch r.Kind {
	case rows.ReceiptKindData:
		d, err := s.ReadReceiptData(ctx, receiptID)
		if err != nil {
			return rows.Batch{}, err
		}
		b.Data = []rows.ReceiptData{d}

	case rows.ReceiptKindAction:
		a, err := s.ReadReceiptAction(ctx, receiptID)
		if err != nil {
			return rows.Batch{}, err
		}
		b.Actions = []rows.ReceiptAction{a}

		if b.ActionActions, err = s.ReadActions(ctx, receiptID); err != nil {
			return rows.Batch{}, err
		}
		if b.InputData, err = s.ReadInputData(ctx, receiptID); err != nil {
			return rows.Batch{}, err
		}
		if b.OutputData, err = s.ReadOutputData(ctx, receiptID); err != nil {
			return rows.Batch{}, err
		}
	}
	return b, nil
}

// ListReceiptIDs returns up to limit receipt ids ordered by block height,
// then by id.
// A limit of 0 or less returns every id.
func (s *Store) ListReceiptIDs(ctx context.Context, limit int) ([][]byte, error) {
	if limit <= 0 {
		limit = -1
	}
	rs, err := s.db.QueryContext(ctx, `
		SELECT receipt_id
		FROM receipts
		ORDER BY length(block_height) ASC, block_height ASC, receipt_id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list receipt ids: %w", err)
	}
	defer rs.Close()

	out := make([][]byte, 0)
	for rs.Next() {
		var id []byte
		if err := rs.Scan(&id); err != nil {
			return nil, fmt.Errorf("list receipt ids: %w", err)
		}
		out = append(out, id)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("list receipt ids: %w", err)
	}
	return out, nil
}

// Counts returns the number of rows present in each table.
func (s *Store) Counts(ctx context.Context) (WriteStats, error) {
	var stats WriteStats
	for _, table := range Tables {
		var n int64
		// Table names come from the Tables constant list.
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return WriteStats{}, fmt.Errorf("count %s: %w", table, err)
		}
		*stats.field(table) = n
	}
	return stats, nil
}

func scanReceipt(sc scanner) (rows.Receipt, error) {
	var (
		r           rows.Receipt
		blockHeight string
		kind        string
	)
	if err := sc.Scan(&r.ReceiptID, &blockHeight, &r.PredecessorID, &r.ReceiverID, &kind); err != nil {
		return rows.Receipt{}, notFound(err)
	}

	var err error
	if r.BlockHeight, err = unmarshalDecimal("block_height", blockHeight); err != nil {
		return rows.Receipt{}, err
	}
	if r.Kind, err = rows.ParseReceiptKind(kind); err != nil {
		return rows.Receipt{}, err
	}
	return r, nil
}

func scanAction(sc scanner) (rows.ReceiptActionAction, error) {
	var (
		a    rows.ReceiptActionAction
		kind string
		args string
	)
	if err := sc.Scan(&a.ReceiptID, &a.Index, &kind, &args); err != nil {
		return rows.ReceiptActionAction{}, err
	}

	var err error
	if a.Kind, err = rows.ParseActionKind(kind); err != nil {
		return rows.ReceiptActionAction{}, err
	}
	if a.Args, err = unmarshalArgs(args); err != nil {
		return rows.ReceiptActionAction{}, err
	}

	// Re-encode so numeric args carry the same IR types as freshly
	// normalized rows.
	action, err := rows.DecodeAction(a.Kind, a.Args)
	if err != nil {
		return rows.ReceiptActionAction{}, fmt.Errorf("action %d: %w", a.Index, err)
	}
	return rows.NewReceiptActionAction(a.ReceiptID, a.Index, action), nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
