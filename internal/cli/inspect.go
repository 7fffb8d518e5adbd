package cli

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/receiptdb/internal/config"
	"github.com/roach88/receiptdb/internal/ir"
	"github.com/roach88/receiptdb/internal/rows"
	"github.com/roach88/receiptdb/internal/store"
	"github.com/roach88/receiptdb/internal/view"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database string
	List     bool
	Limit    int
}

// ListResult is the JSON payload of inspect --list.
type ListResult struct {
	ReceiptIDs []string `json:"receipt_ids"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect [<receipt-id>]",
		Short: "Show every stored row of one receipt",
		Long: `Read back all rows stored for a receipt from the SQLite database.

The receipt id is the base58 hash as printed by NEAR explorers. With --list,
print the stored receipt ids ordered by block height instead.

Example:
  receiptdb inspect --db ./receipts.db J92gTwkVK68K482YW63pUZgrmqEwa2b8YziA1E3KrRc1
  receiptdb inspect --db ./receipts.db --list --limit 10`,
		Args:          cobra.RangeArgs(0, 1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database; overrides config")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list stored receipt ids instead of showing one receipt")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum ids printed by --list (0 = all)")

	return cmd
}

func runInspect(opts *InspectOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	switch {
	case opts.List && len(args) != 0:
		return f.Fail(ExitCommandError, ErrCodeGeneric, "--list takes no receipt id", nil)
	case !opts.List && len(args) != 1:
		return f.Fail(ExitCommandError, ErrCodeGeneric, "a receipt id is required", nil)
	}

	cfg, err := resolveConfig(opts.RootOptions, f, func(c *config.Config) {
		if opts.Database != "" {
			c.Sink.SQLitePath = opts.Database
		}
	})
	if err != nil {
		return err
	}

	var id view.CryptoHash
	if !opts.List {
		if id, err = view.ParseCryptoHash(args[0]); err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, "invalid receipt id", err)
		}
	}

	// Open creates missing files, so check first.
	if _, err := os.Stat(cfg.Sink.SQLitePath); err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "database not found: "+cfg.Sink.SQLitePath, nil)
	}
	st, err := store.Open(cfg.Sink.SQLitePath)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	if opts.List {
		return listReceipts(commandContext(cmd), f, st, opts.Limit)
	}

	b, err := st.ReadBatch(commandContext(cmd), id.Bytes())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return f.Fail(ExitFailure, ErrCodeNotFound, "receipt not found: "+args[0], nil)
		}
		return f.Fail(ExitFailure, ErrCodeStore, "failed to read receipt", err)
	}

	if f.Format == "json" {
		return f.Success(b.Canonical())
	}
	printBatch(f, b)
	return nil
}

// listReceipts prints up to limit stored receipt ids, lowest block first.
func listReceipts(ctx context.Context, f *OutputFormatter, st *store.Store, limit int) error {
	ids, err := st.ListReceiptIDs(ctx, limit)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeStore, "failed to list receipts", err)
	}

	result := ListResult{ReceiptIDs: make([]string, len(ids))}
	for i, id := range ids {
		result.ReceiptIDs[i] = rows.EncodeID(id)
	}

	if f.Format == "json" {
		return f.Success(result)
	}
	for _, id := range result.ReceiptIDs {
		fmt.Fprintln(f.Writer, id)
	}
	return nil
}

// printBatch renders the rows of a single receipt as text.
func printBatch(f *OutputFormatter, b rows.Batch) {
	w := f.Writer
	r := b.Receipts[0]

	fmt.Fprintf(w, "receipt      %s\n", rows.EncodeID(r.ReceiptID))
	fmt.Fprintf(w, "kind         %s\n", r.Kind)
	fmt.Fprintf(w, "block height %s\n", r.BlockHeight)
	fmt.Fprintf(w, "predecessor  %s\n", r.PredecessorID)
	fmt.Fprintf(w, "receiver     %s\n", r.ReceiverID)

	for _, d := range b.Data {
		fmt.Fprintf(w, "data id      %s\n", rows.EncodeID(d.DataID))
		if d.Data == nil {
			fmt.Fprintln(w, "data         (none)")
		} else {
			f.Printf("data         %d bytes %s\n", len(d.Data), base64.StdEncoding.EncodeToString(d.Data))
		}
	}

	for _, a := range b.Actions {
		fmt.Fprintf(w, "signer       %s (%s)\n", a.SignerID, a.SignerPublicKey)
		fmt.Fprintf(w, "gas price    %s", a.GasPrice)
		if a.GasPriceFallback {
			fmt.Fprint(w, " (fallback)")
		}
		fmt.Fprintln(w)
	}

	if len(b.Actions) == 0 {
		return
	}

	f.Printf("actions (%d)\n", len(b.ActionActions))
	for _, a := range b.ActionActions {
		args, err := ir.MarshalCanonical(a.Args)
		if err != nil {
			args = []byte(err.Error())
		}
		fmt.Fprintf(w, "  %d %s %s\n", a.Index, a.Kind, args)
	}

	f.Printf("input data (%d)\n", len(b.InputData))
	for _, e := range b.InputData {
		fmt.Fprintf(w, "  %s\n", rows.EncodeID(e.DataID))
	}

	f.Printf("output data (%d)\n", len(b.OutputData))
	for _, e := range b.OutputData {
		fmt.Fprintf(w, "  %s -> %s\n", rows.EncodeID(e.DataID), e.ReceiverID)
	}
}
