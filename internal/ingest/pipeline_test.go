package ingest

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/receiptdb/internal/metrics"
	"github.com/roach88/receiptdb/internal/rows"
	"github.com/roach88/receiptdb/internal/store"
	"github.com/roach88/receiptdb/internal/testutil"
	"github.com/roach88/receiptdb/internal/view"
)

// recordingSink keeps every batch it is given.
type recordingSink struct {
	batches []rows.Batch
	err     error
	closed  bool
}

func (s *recordingSink) WriteBatch(_ context.Context, b rows.Batch) (store.WriteStats, error) {
	if s.err != nil {
		return store.WriteStats{}, s.err
	}
	s.batches = append(s.batches, b)
	return store.WriteStats{Receipts: int64(len(b.Receipts))}, nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func reader(t *testing.T, obs []view.Observed) *view.Reader {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, view.WriteAll(&buf, obs))
	return view.NewReader(&buf)
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunIntoSQLite(t *testing.T) {
	s := openStore(t)
	logger, logs := testutil.BufferLogger()

	p := &Pipeline{
		Sink:      s,
		Workers:   2,
		BatchSize: 2,
		Logger:    logger,
		RunIDs:    testutil.NewFixedRunIDGenerator("run-1"),
	}

	sum, err := p.Run(context.Background(), reader(t, testutil.Observed()))
	require.NoError(t, err)

	assert.Equal(t, "run-1", sum.RunID)
	assert.Equal(t, 3, sum.Receipts)
	assert.Equal(t, 2, sum.Batches)
	assert.Zero(t, sum.Fallbacks)
	assert.EqualValues(t, 17, sum.Written.Total())

	counts, err := s.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sum.Written, counts)

	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		assert.Contains(t, line, "run_id=run-1")
	}
	assert.Contains(t, logs.String(), "ingest finished")
}

func TestRunIdempotent(t *testing.T) {
	s := openStore(t)
	p := &Pipeline{Sink: s, RunIDs: &testutil.SequentialRunIDGenerator{}}

	first, err := p.Run(context.Background(), reader(t, testutil.Observed()))
	require.NoError(t, err)
	second, err := p.Run(context.Background(), reader(t, testutil.Observed()))
	require.NoError(t, err)

	assert.Equal(t, "test-run-0001", first.RunID)
	assert.Equal(t, "test-run-0002", second.RunID)
	assert.EqualValues(t, 17, first.Written.Total())
	assert.EqualValues(t, 0, second.Written.Total(), "re-ingest must not insert rows")
	assert.Equal(t, 3, second.Receipts)
}

func TestRunChunksInInputOrder(t *testing.T) {
	sink := &recordingSink{}
	p := &Pipeline{Sink: sink, BatchSize: 2}

	sum, err := p.Run(context.Background(), reader(t, testutil.Observed()))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Batches)

	require.Len(t, sink.batches, 2)
	assert.Len(t, sink.batches[0].Receipts, 2)
	assert.Len(t, sink.batches[1].Receipts, 1)

	var got [][]byte
	for _, b := range sink.batches {
		for _, r := range b.Receipts {
			got = append(got, r.ReceiptID)
		}
	}
	var want [][]byte
	for _, o := range testutil.Observed() {
		want = append(want, o.Receipt.ReceiptID.Bytes())
	}
	assert.Equal(t, want, got)
	assert.False(t, sink.closed, "Run does not own the sink")
}

func TestRunGasPriceFallbackLogged(t *testing.T) {
	s := openStore(t)
	logger, logs := testutil.BufferLogger()
	m := metrics.New()

	r := testutil.WithGasPrice(testutil.ActionReceipt("receipt-1", nil, 0, 0), view.MaxU128())
	p := &Pipeline{
		Sink:    s,
		Options: rows.Options{GasPrice: rows.GasPriceConverter{Precision: 10, Policy: rows.PolicyZero}},
		Logger:  logger,
		Metrics: m,
	}

	sum, err := p.Run(context.Background(), reader(t, []view.Observed{{Receipt: r}}))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Fallbacks)

	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "receipt_id="+r.ReceiptID.String())

	a, err := s.ReadReceiptAction(context.Background(), r.ReceiptID.Bytes())
	require.NoError(t, err)
	assert.True(t, a.GasPriceFallback)
	assert.True(t, a.GasPrice.IsZero())
}

func TestRunRejectsGasPriceOverflow(t *testing.T) {
	s := openStore(t)

	r := testutil.WithGasPrice(testutil.ActionReceipt("receipt-1", nil, 0, 0), view.MaxU128())
	p := &Pipeline{
		Sink:    s,
		Options: rows.Options{GasPrice: rows.GasPriceConverter{Precision: 10}},
	}

	_, err := p.Run(context.Background(), reader(t, []view.Observed{{Receipt: r}}))
	require.ErrorIs(t, err, rows.ErrGasPriceConversion)
	assert.Contains(t, err.Error(), "batch 1")

	counts, err := s.Counts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts.Total())
}

func TestRunSkipsDuplicatesWithinBatch(t *testing.T) {
	sink := &recordingSink{}
	obs := append(testutil.Observed(), testutil.Observed()...)

	sum, err := (&Pipeline{Sink: sink, BatchSize: 10}).Run(context.Background(), reader(t, obs))
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Receipts)
	assert.Equal(t, 3, sum.Duplicates)
	require.Len(t, sink.batches, 1)
	require.NoError(t, sink.batches[0].Validate())
}

func TestRunSinkError(t *testing.T) {
	boom := errors.New("disk full")
	m := metrics.New()
	p := &Pipeline{Sink: &recordingSink{err: boom}, Metrics: m}

	_, err := p.Run(context.Background(), reader(t, testutil.Observed()))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "batch 1")
}

func TestRunReadError(t *testing.T) {
	p := &Pipeline{Sink: &recordingSink{}}

	_, err := p.Run(context.Background(), view.NewReader(strings.NewReader(`{"block_height":`)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read")
}

func TestRunEmptyInput(t *testing.T) {
	sink := &recordingSink{}

	sum, err := (&Pipeline{Sink: sink}).Run(context.Background(), view.NewReader(strings.NewReader("")))
	require.NoError(t, err)
	assert.Zero(t, sum.Receipts)
	assert.Zero(t, sum.Batches)
	assert.Empty(t, sink.batches)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Pipeline{Sink: &recordingSink{}}).Run(ctx, reader(t, testutil.Observed()))
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunWithoutSink(t *testing.T) {
	_, err := (&Pipeline{}).Run(context.Background(), reader(t, nil))
	require.Error(t, err)
}

func TestUUIDv7Generator(t *testing.T) {
	var g UUIDv7Generator

	a, b := g.Generate(), g.Generate()
	assert.NotEqual(t, a, b)

	id, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}
