// Package ingest streams observed receipts into a sink.
//
// A Pipeline reads receipts in chunks of BatchSize, normalizes each chunk in
// parallel, validates the result and writes it to the sink in one call.
// Chunks are written in input order.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/receiptdb/internal/metrics"
	"github.com/roach88/receiptdb/internal/rows"
	"github.com/roach88/receiptdb/internal/store"
	"github.com/roach88/receiptdb/internal/view"
)

// DefaultBatchSize is used when Pipeline.BatchSize is not positive.
const DefaultBatchSize = 500

// Sink persists normalized batches. Implemented by store.Store and
// pgstore.Store.
type Sink interface {
	WriteBatch(ctx context.Context, b rows.Batch) (store.WriteStats, error)
	Close() error
}

// Pipeline wires a reader to a sink. Zero values of the optional fields
// are replaced by defaults: DefaultBatchSize, one worker per CPU, a discard
// logger, no metrics and UUIDv7 run ids.
type Pipeline struct {
	Sink      Sink
	Options   rows.Options
	Workers   int
	BatchSize int
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	RunIDs    RunIDGenerator
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	Receipts   int // receipts normalized and handed to the sink
	Duplicates int // receipts skipped because their id repeated within a batch
	Batches    int
	Fallbacks  int // action receipts stored with gas price 0
	Written    store.WriteStats
	Duration   time.Duration
}

// Run ingests every receipt from r. It stops at the first error; batches
// written before the error stay committed, and re-running the same input
// is safe because writes are idempotent.
func (p *Pipeline) Run(ctx context.Context, r *view.Reader) (Summary, error) {
	if p.Sink == nil {
		return Summary{}, errors.New("ingest: pipeline has no sink")
	}

	runIDs := p.RunIDs
	if runIDs == nil {
		runIDs = UUIDv7Generator{}
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	size := p.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	start := time.Now()
	sum := Summary{RunID: runIDs.Generate()}
	logger = logger.With("run_id", sum.RunID)
	logger.Info("ingest starting", "batch_size", size, "workers", p.Workers)

	chunk := make([]view.Observed, 0, size)
	seen := make(map[view.CryptoHash]struct{}, size)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := p.write(ctx, logger, chunk, &sum); err != nil {
			p.Metrics.ObserveError()
			return fmt.Errorf("batch %d: %w", sum.Batches+1, err)
		}
		chunk = chunk[:0]
		clear(seen)
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		o, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.Metrics.ObserveError()
			return sum, fmt.Errorf("read: %w", err)
		}

		if _, dup := seen[o.Receipt.ReceiptID]; dup {
			logger.Debug("duplicate receipt skipped", "receipt_id", o.Receipt.ReceiptID.String())
			sum.Duplicates++
			continue
		}
		seen[o.Receipt.ReceiptID] = struct{}{}
		chunk = append(chunk, o)

		if len(chunk) == size {
			if err := flush(); err != nil {
				return sum, err
			}
		}
	}
	if err := flush(); err != nil {
		return sum, err
	}

	sum.Duration = time.Since(start)
	logger.Info("ingest finished",
		"receipts", sum.Receipts,
		"rows", sum.Written.Total(),
		"batches", sum.Batches,
		"fallbacks", sum.Fallbacks,
		"duplicates", sum.Duplicates,
		"took", sum.Duration,
	)
	return sum, nil
}

// write normalizes, validates and stores one chunk.
func (p *Pipeline) write(ctx context.Context, logger *slog.Logger, chunk []view.Observed, sum *Summary) error {
	b, err := rows.NormalizeAll(ctx, chunk, p.Options, p.Workers)
	if err != nil {
		return err
	}
	if err := b.Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	fallbacks := b.Fallbacks()
	for _, fb := range fallbacks {
		logger.Warn("gas price exceeds storage precision, stored as 0",
			"receipt_id", rows.EncodeID(fb.ReceiptID),
		)
	}
	p.Metrics.ObserveBatch(b)

	started := time.Now()
	stats, err := p.Sink.WriteBatch(ctx, b)
	if err != nil {
		return err
	}
	p.Metrics.ObserveWrite(stats, time.Since(started))

	sum.Batches++
	sum.Receipts += len(b.Receipts)
	sum.Fallbacks += len(fallbacks)
	sum.Written.Add(stats)

	logger.Debug("batch written",
		"batch", sum.Batches,
		"receipts", len(b.Receipts),
		"rows", stats.Total(),
	)
	return nil
}
