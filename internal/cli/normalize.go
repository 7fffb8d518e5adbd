package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/receiptdb/internal/config"
	"github.com/roach88/receiptdb/internal/rows"
)

// NormalizeResult is the JSON payload of the normalize command.
type NormalizeResult struct {
	Receipts  int             `json:"receipts"`
	Rows      int             `json:"rows"`
	Fallbacks int             `json:"fallbacks"`
	Digest    string          `json:"digest"`
	Batch     json.RawMessage `json:"batch"`
}

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &normalizeFlags{}

	cmd := &cobra.Command{
		Use:   "normalize <receipts.jsonl>",
		Short: "Print the normalized rows of a receipts file",
		Long: `Decode a JSON-lines receipts file, normalize every receipt and print the
resulting rows as one canonical JSON document followed by its digest.

Nothing is stored. The output is byte-identical for identical input, so the
digest can be used to compare runs.

Example:
  receiptdb normalize receipts.jsonl
  receiptdb normalize --format json - < receipts.jsonl`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(rootOpts, flags, args[0], cmd)
		},
	}
	flags.register(cmd)

	return cmd
}

func runNormalize(opts *RootOptions, flags *normalizeFlags, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cfg, err := resolveConfig(opts, f, func(c *config.Config) { flags.apply(c) })
	if err != nil {
		return err
	}

	obs, err := loadReceipts(cmd, f, path)
	if err != nil {
		return err
	}

	b, err := rows.NormalizeAll(commandContext(cmd), obs, rows.Options{GasPrice: cfg.Converter()}, cfg.WorkerCount())
	if err != nil {
		return f.Fail(ExitFailure, normalizeErrorCode(err), "failed to normalize receipts", err)
	}

	data, err := b.MarshalCanonical()
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "failed to encode rows", err)
	}
	digest, err := b.Digest()
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "failed to hash rows", err)
	}

	result := NormalizeResult{
		Receipts:  len(b.Receipts),
		Rows:      b.Len(),
		Fallbacks: len(b.Fallbacks()),
		Digest:    digest,
		Batch:     data,
	}

	if f.Format == "json" {
		return f.Success(result)
	}

	fmt.Fprintln(f.Writer, string(data))
	f.Printf("%d receipts, %d rows, %d gas price fallbacks\n", result.Receipts, result.Rows, result.Fallbacks)
	fmt.Fprintf(f.Writer, "digest %s\n", result.Digest)
	return nil
}
