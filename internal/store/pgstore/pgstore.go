// Package pgstore persists normalized receipt rows in PostgreSQL.
//
// It writes the same six tables as package store with native column types:
// BYTEA identifiers, NUMERIC heights and gas prices, and JSONB action args.
// A batch is sent as one pgx.Batch inside one transaction.
package pgstore

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/receiptdb/internal/ir"
	"github.com/roach88/receiptdb/internal/rows"
	"github.com/roach88/receiptdb/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// Store is the PostgreSQL receipt sink.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to url, verifies the connection and applies the schema.
func Open(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// queued records which table each statement of a pgx.Batch targets.
type queued struct {
	batch  pgx.Batch
	tables []string
}

func (q *queued) add(table, sql string, args ...any) {
	q.batch.Queue(sql, args...)
	q.tables = append(q.tables, table)
}

// WriteBatch inserts every row of b in one transaction. Rows whose primary
// key already exists are skipped and not counted.
func (s *Store) WriteBatch(ctx context.Context, b rows.Batch) (store.WriteStats, error) {
	q, err := queue(b)
	if err != nil {
		return store.WriteStats{}, fmt.Errorf("write batch: %w", err)
	}
	if len(q.tables) == 0 {
		return store.WriteStats{}, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return store.WriteStats{}, fmt.Errorf("write batch: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	stats, err := send(ctx, tx, q)
	if err != nil {
		return store.WriteStats{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return store.WriteStats{}, fmt.Errorf("write batch: commit: %w", err)
	}
	return stats, nil
}

func send(ctx context.Context, tx pgx.Tx, q *queued) (store.WriteStats, error) {
	results := tx.SendBatch(ctx, &q.batch)
	defer results.Close()

	counts := make(map[string]int64, len(store.Tables))
	for _, table := range q.tables {
		tag, err := results.Exec()
		if err != nil {
			return store.WriteStats{}, fmt.Errorf("write %s: %w", table, err)
		}
		counts[table] += tag.RowsAffected()
	}
	if err := results.Close(); err != nil {
		return store.WriteStats{}, fmt.Errorf("write batch: %w", err)
	}

	return store.WriteStats{
		Receipts:      counts[store.TableReceipts],
		Data:          counts[store.TableData],
		Actions:       counts[store.TableActions],
		ActionActions: counts[store.TableActionActions],
		InputData:     counts[store.TableInputData],
		OutputData:    counts[store.TableOutputData],
	}, nil
}

// queue encodes b as one statement per row, parents first.
func queue(b rows.Batch) (*queued, error) {
	q := &queued{}

	for _, r := range b.Receipts {
		q.add(store.TableReceipts, `
			INSERT INTO receipts (receipt_id, block_height, predecessor_id, receiver_id, receipt_kind)
			VALUES ($1, $2::numeric, $3, $4, $5)
			ON CONFLICT (receipt_id) DO NOTHING`,
			r.ReceiptID, r.BlockHeight.String(), r.PredecessorID, r.ReceiverID, string(r.Kind))
	}
	for _, d := range b.Data {
		// nil binds as NULL, an empty slice as an empty bytea.
		q.add(store.TableData, `
			INSERT INTO receipt_data (data_id, receipt_id, data)
			VALUES ($1, $2, $3)
			ON CONFLICT (data_id) DO NOTHING`,
			d.DataID, d.ReceiptID, d.Data)
	}
	for _, a := range b.Actions {
		q.add(store.TableActions, `
			INSERT INTO receipt_actions (receipt_id, signer_id, signer_public_key, gas_price, gas_price_fallback)
			VALUES ($1, $2, $3, $4::numeric, $5)
			ON CONFLICT (receipt_id) DO NOTHING`,
			a.ReceiptID, a.SignerID, a.SignerPublicKey, a.GasPrice.String(), a.GasPriceFallback)
	}
	for _, a := range b.ActionActions {
		args, err := ir.MarshalCanonical(a.Args)
		if err != nil {
			return nil, fmt.Errorf("action %d of %s: %w", a.Index, rows.EncodeID(a.ReceiptID), err)
		}
		q.add(store.TableActionActions, `
			INSERT INTO receipt_action_actions (receipt_id, index_in_action_receipt, action_kind, args)
			VALUES ($1, $2, $3, $4::jsonb)
			ON CONFLICT (receipt_id, index_in_action_receipt) DO NOTHING`,
			a.ReceiptID, a.Index, string(a.Kind), string(args))
	}
	for _, e := range b.InputData {
		q.add(store.TableInputData, `
			INSERT INTO receipt_action_input_data (receipt_id, data_id)
			VALUES ($1, $2)
			ON CONFLICT (receipt_id, data_id) DO NOTHING`,
			e.ReceiptID, e.DataID)
	}
	for _, e := range b.OutputData {
		q.add(store.TableOutputData, `
			INSERT INTO receipt_action_output_data (receipt_id, data_id, receiver_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (receipt_id, data_id) DO NOTHING`,
			e.ReceiptID, e.DataID, e.ReceiverID)
	}
	return q, nil
}

// Counts returns the number of rows present in each table.
func (s *Store) Counts(ctx context.Context) (store.WriteStats, error) {
	var stats store.WriteStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM receipts),
			(SELECT COUNT(*) FROM receipt_data),
			(SELECT COUNT(*) FROM receipt_actions),
			(SELECT COUNT(*) FROM receipt_action_actions),
			(SELECT COUNT(*) FROM receipt_action_input_data),
			(SELECT COUNT(*) FROM receipt_action_output_data)
	`).Scan(&stats.Receipts, &stats.Data, &stats.Actions, &stats.ActionActions, &stats.InputData, &stats.OutputData)
	if err != nil {
		return store.WriteStats{}, fmt.Errorf("count rows: %w", err)
	}
	return stats, nil
}

// ReadActions returns the actions of a receipt ordered by index, with args
// re-encoded from their JSONB form.
func (s *Store) ReadActions(ctx context.Context, receiptID []byte) ([]rows.ReceiptActionAction, error) {
	rs, err := s.pool.Query(ctx, `
		SELECT index_in_action_receipt, action_kind, args::text
		FROM receipt_action_actions
		WHERE receipt_id = $1
		ORDER BY index_in_action_receipt ASC
	`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("read actions: %w", err)
	}
	defer rs.Close()

	out := make([]rows.ReceiptActionAction, 0)
	for rs.Next() {
		var (
			index int
			kind  string
			args  string
		)
		if err := rs.Scan(&index, &kind, &args); err != nil {
			return nil, fmt.Errorf("read actions: %w", err)
		}
		a, err := decodeAction(receiptID, index, kind, args)
		if err != nil {
			return nil, fmt.Errorf("read actions: action %d: %w", index, err)
		}
		out = append(out, a)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("read actions: %w", err)
	}
	return out, nil
}

func decodeAction(receiptID []byte, index int, kind, args string) (rows.ReceiptActionAction, error) {
	k, err := rows.ParseActionKind(kind)
	if err != nil {
		return rows.ReceiptActionAction{}, err
	}
	v, err := ir.UnmarshalIRValue([]byte(args))
	if err != nil {
		return rows.ReceiptActionAction{}, err
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return rows.ReceiptActionAction{}, fmt.Errorf("args is %T, want object", v)
	}
	action, err := rows.DecodeAction(k, obj)
	if err != nil {
		return rows.ReceiptActionAction{}, err
	}
	return rows.NewReceiptActionAction(receiptID, index, action), nil
}
