package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/receiptdb/internal/config"
	"github.com/roach88/receiptdb/internal/rows"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool     `json:"valid"`
	Receipts  int      `json:"receipts"`
	Rows      int      `json:"rows"`
	Fallbacks int      `json:"fallbacks"`
	Errors    []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &normalizeFlags{}

	cmd := &cobra.Command{
		Use:   "validate <receipts.jsonl>",
		Short: "Check that a receipts file normalizes cleanly",
		Long: `Decode and normalize a receipts file, then check the rows against the
batch invariants (one kind row per receipt, contiguous action indices,
edges only on Action receipts, unique ids) without storing anything.

Exit code 1 means the input is invalid; 2 means the file could not be read.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, flags, args[0], cmd)
		},
	}
	flags.register(cmd)

	return cmd
}

func runValidate(opts *RootOptions, flags *normalizeFlags, path string, cmd *cobra.Command) error {
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

	result := ValidationResult{
		Receipts:  len(b.Receipts),
		Rows:      b.Len(),
		Fallbacks: len(b.Fallbacks()),
	}
	if err := b.Validate(); err != nil {
		result.Errors = splitJoined(err)
		return outputValidationErrors(f, result)
	}

	result.Valid = true
	if f.Format == "json" {
		return f.Success(result)
	}
	f.Printf("✓ %d receipts valid (%d rows, %d gas price fallbacks)\n", result.Receipts, result.Rows, result.Fallbacks)
	return nil
}

// splitJoined flattens an errors.Join result into messages.
func splitJoined(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(f *OutputFormatter, result ValidationResult) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if f.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    ErrCodeInvalid,
				Message: result.Errors[0],
			},
		}

		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(f.Writer, "✗ Validation failed")
	fmt.Fprintln(f.Writer)
	for _, msg := range result.Errors {
		fmt.Fprintf(f.Writer, "  %s: %s\n", ErrCodeInvalid, msg)
	}
	return exitErr
}
