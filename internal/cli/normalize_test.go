package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/receiptdb/internal/rows"
	"github.com/roach88/receiptdb/internal/testutil"
)

func TestNormalizeText(t *testing.T) {
	stdout, _, err := execute(t, "normalize", fixtureFile(t))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	require.Len(t, lines, 3)

	want, err := rows.NormalizeAll(context.Background(), testutil.Observed(), rows.Options{}, 1)
	require.NoError(t, err)
	canonical, err := want.MarshalCanonical()
	require.NoError(t, err)

	assert.Equal(t, string(canonical), lines[0])
	assert.Equal(t, "3 receipts, 17 rows, 0 gas price fallbacks", lines[1])
	assert.Equal(t, "digest "+fixtureDigest, lines[2])
}

func TestNormalizeJSON(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "normalize", fixtureFile(t))
	require.NoError(t, err)

	var result NormalizeResult
	resp := decodeResponse(t, stdout, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, result.Receipts)
	assert.Equal(t, 17, result.Rows)
	assert.Equal(t, 0, result.Fallbacks)
	assert.Equal(t, fixtureDigest, result.Digest)
	assert.Contains(t, string(result.Batch), `"receipt_action_actions":[`)
}

func TestNormalizeDeterministicAcrossWorkers(t *testing.T) {
	path := fixtureFile(t)

	one, _, err := execute(t, "normalize", "--workers", "1", path)
	require.NoError(t, err)
	many, _, err := execute(t, "normalize", "--workers", "8", path)
	require.NoError(t, err)

	assert.Equal(t, one, many)
}

func TestNormalizeStdin(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, viewWriteAll(&buf))

	stdout, _, err := executeWithInput(t, buf.String(), "normalize", "-")
	require.NoError(t, err)
	assert.Contains(t, stdout, "digest "+fixtureDigest)
}

func TestNormalizeGasPriceOverflow(t *testing.T) {
	path := writeReceipts(t, overflowReceipts())
	cfg := writeConfig(t, "gas_price:\n  precision: 10\n")

	t.Run("reject", func(t *testing.T) {
		stdout, _, err := execute(t, "--format", "json", "--config", cfg, "normalize", path)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		require.ErrorIs(t, err, rows.ErrGasPriceConversion)

		resp := decodeResponse(t, stdout, nil)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeNormalize, resp.Error.Code)
	})

	t.Run("zero", func(t *testing.T) {
		stdout, _, err := execute(t, "--config", cfg, "normalize", "--gas-price-policy", "zero", path)
		require.NoError(t, err)
		assert.Contains(t, stdout, "3 receipts, 17 rows, 1 gas price fallbacks")
		assert.Contains(t, stdout, `"gas_price":"0","gas_price_fallback":true`)
	})
}

func TestNormalizeErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		stdout, _, err := execute(t, "normalize", "does-not-exist.jsonl")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, stdout, "Error [E005]")
	})

	t.Run("undecodable input", func(t *testing.T) {
		path := writeFile(t, "bad.jsonl", "not json\n")
		stdout, _, err := execute(t, "--format", "json", "normalize", path)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))

		resp := decodeResponse(t, stdout, nil)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeDecode, resp.Error.Code)
	})

	t.Run("invalid policy flag", func(t *testing.T) {
		stdout, _, err := execute(t, "normalize", "--gas-price-policy", "clamp", fixtureFile(t))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, stdout, "Error [E010]")
	})

	t.Run("missing argument", func(t *testing.T) {
		_, _, err := execute(t, "normalize")
		require.Error(t, err)
	})
}
