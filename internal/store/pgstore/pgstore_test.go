package pgstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/receiptdb/internal/rows"
	"github.com/roach88/receiptdb/internal/store"
	"github.com/roach88/receiptdb/internal/testutil"
	"github.com/roach88/receiptdb/internal/view"
)

// Tests run against a live database only when this variable is set. The
// tables are truncated before each test.
const urlEnv = "RECEIPTDB_TEST_POSTGRES_URL"

func openTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv(urlEnv)
	if url == "" {
		t.Skipf("%s not set", urlEnv)
	}

	ctx := context.Background()
	s, err := Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.pool.Exec(ctx, `
		TRUNCATE receipt_action_output_data, receipt_action_input_data,
			receipt_action_actions, receipt_actions, receipt_data, receipts
	`)
	require.NoError(t, err)
	return s
}

func fixtureBatch(t *testing.T) rows.Batch {
	t.Helper()
	b, err := rows.NormalizeAll(context.Background(), testutil.Observed(), rows.Options{}, 1)
	require.NoError(t, err)
	return b
}

func TestQueueOrder(t *testing.T) {
	q, err := queue(fixtureBatch(t))
	require.NoError(t, err)

	// 3 receipts, 2 data, 1 action, 9 actions, 1 input, 1 output
	require.Len(t, q.tables, 17)
	assert.Equal(t, q.batch.Len(), len(q.tables))

	// Parents are queued before rows that reference them.
	last := -1
	for _, table := range q.tables {
		pos := -1
		for i, name := range store.Tables {
			if name == table {
				pos = i
			}
		}
		require.GreaterOrEqual(t, pos, last, "table %s queued out of order", table)
		last = pos
	}
}

func TestQueueEmpty(t *testing.T) {
	q, err := queue(rows.Batch{})
	require.NoError(t, err)
	assert.Empty(t, q.tables)
}

func TestDecodeActionFromJSONB(t *testing.T) {
	id := testutil.Hash("receipt-1").Bytes()

	// JSONB renders with spaces and its own key order.
	a, err := decodeAction(id, 3, "TRANSFER", `{"deposit": "`+view.MaxU128().String()+`"}`)
	require.NoError(t, err)
	assert.Equal(t, rows.NewReceiptActionAction(id, 3, view.Transfer{Deposit: view.MaxU128()}), a)

	_, err = decodeAction(id, 0, "TRANSFER", `[]`)
	require.Error(t, err)
	_, err = decodeAction(id, 0, "DELEGATE", `{}`)
	require.Error(t, err)
}

func TestWriteBatchIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	b := fixtureBatch(t)

	stats, err := s.WriteBatch(ctx, b)
	require.NoError(t, err)
	assert.EqualValues(t, 17, stats.Total())

	stats, err = s.WriteBatch(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, store.WriteStats{}, stats)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 17, counts.Total())
}

func TestWriteBatchNullData(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.WriteBatch(ctx, fixtureBatch(t))
	require.NoError(t, err)

	var nulls int
	require.NoError(t, s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM receipt_data WHERE data IS NULL`).Scan(&nulls))
	assert.Equal(t, 1, nulls)
}

func TestWriteBatchExactGasPrice(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := testutil.WithGasPrice(testutil.ActionReceipt("receipt-1", nil, 0, 0), view.MaxU128())
	b, err := rows.Normalize(view.Observed{Receipt: r}, rows.Options{})
	require.NoError(t, err)

	_, err = s.WriteBatch(ctx, b)
	require.NoError(t, err)

	var gasPrice string
	require.NoError(t, s.pool.QueryRow(ctx, `SELECT gas_price::text FROM receipt_actions`).Scan(&gasPrice))
	assert.Equal(t, view.MaxU128().String(), gasPrice)
}

func TestSchemaColumnPrecision(t *testing.T) {
	// u64 heights need 20 digits, u128 gas prices 39.
	assert.Regexp(t, `block_height\s+NUMERIC\(20, 0\)`, schemaSQL)
	assert.Regexp(t, `gas_price\s+NUMERIC\(45, 0\)`, schemaSQL)
}

func TestWriteBatchMaxBlockHeight(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	o := view.Observed{BlockHeight: 18446744073709551615, Receipt: testutil.DataReceipt("receipt-2", nil)}
	b, err := rows.Normalize(o, rows.Options{})
	require.NoError(t, err)

	_, err = s.WriteBatch(ctx, b)
	require.NoError(t, err)

	var height string
	require.NoError(t, s.pool.QueryRow(ctx, `SELECT block_height::text FROM receipts`).Scan(&height))
	assert.Equal(t, "18446744073709551615", height)
}

func TestReadActionsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.WriteBatch(ctx, fixtureBatch(t))
	require.NoError(t, err)

	id := testutil.Hash("receipt-1").Bytes()
	got, err := s.ReadActions(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, rows.EncodeActions(id, testutil.AllActions()), got)
}
