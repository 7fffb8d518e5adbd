package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/receiptdb/internal/config"
	"github.com/roach88/receiptdb/internal/rows"
	"github.com/roach88/receiptdb/internal/view"
)

// commandContext returns the command's context, or Background when the
// command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openInput opens a receipts file. "-" reads stdin.
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(path)
}

// loadReceipts decodes every receipt in path. Failures are reported through
// f and returned as ExitErrors: a missing file is a command error, bad
// content is a failure.
func loadReceipts(cmd *cobra.Command, f *OutputFormatter, path string) ([]view.Observed, error) {
	in, err := openInput(cmd, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, f.Fail(ExitCommandError, ErrCodeNotFound, "receipts file not found: "+path, nil)
		}
		return nil, f.Fail(ExitCommandError, ErrCodeGeneric, "failed to open receipts file", err)
	}
	defer in.Close()

	obs, err := view.NewReader(in).ReadAll()
	if err != nil {
		return nil, f.Fail(ExitFailure, ErrCodeDecode, "failed to decode receipts", err)
	}
	f.VerboseLog("Decoded %d receipt(s) from %s", len(obs), path)
	return obs, nil
}

// normalizeFlags are shared by every command that normalizes receipts.
type normalizeFlags struct {
	GasPricePolicy string
	Workers        int
}

func (n *normalizeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&n.GasPricePolicy, "gas-price-policy", "", "gas price overflow policy (reject|zero); overrides config")
	cmd.Flags().IntVar(&n.Workers, "workers", 0, "normalization workers; overrides config")
}

// apply overrides cfg with any flags that were set.
func (n *normalizeFlags) apply(cfg *config.Config) {
	if n.GasPricePolicy != "" {
		cfg.GasPrice.Policy = n.GasPricePolicy
	}
	if n.Workers > 0 {
		cfg.Workers = n.Workers
	}
}

// resolveConfig loads --config, applies flag overrides and validates.
func resolveConfig(opts *RootOptions, f *OutputFormatter, override func(*config.Config)) (config.Config, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return config.Config{}, f.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	override(&cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	return cfg, nil
}

// normalizeErrorCode maps a normalization failure to its CLI error code.
func normalizeErrorCode(err error) string {
	switch {
	case errors.Is(err, rows.ErrGasPriceConversion), errors.Is(err, rows.ErrKindMismatch),
		errors.Is(err, rows.ErrUnsupportedBody):
		return ErrCodeNormalize
	default:
		return ErrCodeGeneric
	}
}
