package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/receiptdb/internal/testutil"
	"github.com/roach88/receiptdb/internal/view"
)

// Digest of the normalized testutil.Observed fixture.
const fixtureDigest = "95b908c221156b10c91a04ffd2591a6af9270530fdf47bfee2143e8e5784f57c"

// execute runs the root command with args and captures its output.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeReceipts writes obs as JSON lines and returns the file path.
func writeReceipts(t *testing.T, obs []view.Observed) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, view.WriteAll(&buf, obs))

	path := filepath.Join(t.TempDir(), "receipts.jsonl")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func fixtureFile(t *testing.T) string {
	t.Helper()
	return writeReceipts(t, testutil.Observed())
}

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	return writeFile(t, "receiptdb.yaml", yaml)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// decodeResponse parses a JSON CLIResponse, decoding Data into data.
func decodeResponse(t *testing.T, stdout string, data any) CLIResponse {
	t.Helper()

	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &raw), stdout)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

// executeWithInput is execute with stdin set to in.
func executeWithInput(t *testing.T, in string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(in))
	cmd.SetArgs(args)

	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// overflowReceipts is the fixture with receipt-1's gas price raised to the
// largest U128.
func overflowReceipts() []view.Observed {
	obs := testutil.Observed()
	obs[0].Receipt = testutil.WithGasPrice(obs[0].Receipt, view.MaxU128())
	return obs
}

func viewWriteAll(w io.Writer) error {
	return view.WriteAll(w, testutil.Observed())
}
