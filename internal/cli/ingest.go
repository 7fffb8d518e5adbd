package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/receiptdb/internal/config"
	"github.com/roach88/receiptdb/internal/ingest"
	"github.com/roach88/receiptdb/internal/metrics"
	"github.com/roach88/receiptdb/internal/rows"
	"github.com/roach88/receiptdb/internal/store"
	"github.com/roach88/receiptdb/internal/store/pgstore"
	"github.com/roach88/receiptdb/internal/view"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	normalizeFlags
	Database    string
	PostgresURL string
	MetricsAddr string
	BatchSize   int

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to ingest.UUIDv7Generator.
	RunIDs ingest.RunIDGenerator
}

// IngestResult is the JSON payload of the ingest command.
type IngestResult struct {
	RunID      string           `json:"run_id"`
	Receipts   int              `json:"receipts"`
	Duplicates int              `json:"duplicates"`
	Batches    int              `json:"batches"`
	Fallbacks  int              `json:"fallbacks"`
	Rows       int64            `json:"rows"`
	Tables     map[string]int64 `json:"tables"`
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <receipts.jsonl>",
		Short: "Normalize receipts and write them to the configured sink",
		Long: `Stream a JSON-lines receipts file into SQLite or PostgreSQL.

Receipts are normalized in batches and each batch is written in one
transaction. Writes are idempotent: ingesting the same file twice inserts
no new rows.

Example:
  receiptdb ingest --db ./receipts.db receipts.jsonl
  receiptdb ingest --postgres postgres://localhost/near receipts.jsonl
  receiptdb ingest --config receiptdb.yaml --metrics-addr :9102 receipts.jsonl`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, args[0], cmd)
		},
	}

	opts.normalizeFlags.register(cmd)
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database; overrides config")
	cmd.Flags().StringVar(&opts.PostgresURL, "postgres", "", "PostgreSQL URL; selects the postgres sink")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 0, "receipts per write transaction; overrides config")

	return cmd
}

func (o *IngestOptions) apply(cfg *config.Config) {
	o.normalizeFlags.apply(cfg)
	if o.Database != "" {
		cfg.Sink.Driver = config.DriverSQLite
		cfg.Sink.SQLitePath = o.Database
	}
	if o.PostgresURL != "" {
		cfg.Sink.Driver = config.DriverPostgres
		cfg.Sink.PostgresURL = o.PostgresURL
	}
	if o.MetricsAddr != "" {
		cfg.Metrics.Addr = o.MetricsAddr
	}
	if o.BatchSize > 0 {
		cfg.Sink.BatchSize = o.BatchSize
	}
}

func runIngest(opts *IngestOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cfg, err := resolveConfig(opts.RootOptions, f, opts.apply)
	if err != nil {
		return err
	}

	logger, err := cfg.Logger(cmd.ErrOrStderr(), opts.Verbose)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid logging configuration", err)
	}

	in, err := openInput(cmd, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f.Fail(ExitCommandError, ErrCodeNotFound, "receipts file not found: "+path, nil)
		}
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to open receipts file", err)
	}
	defer in.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, err := openSink(ctx, cfg, logger)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open sink", err)
	}
	defer func() {
		if closeErr := sink.Close(); closeErr != nil {
			logger.Error("error closing sink", "err", closeErr)
		}
	}()

	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr, logger); err != nil {
				logger.Error("metrics server failed", "err", err)
			}
		}()
	}

	p := &ingest.Pipeline{
		Sink:      sink,
		Options:   rows.Options{GasPrice: cfg.Converter()},
		Workers:   cfg.WorkerCount(),
		BatchSize: cfg.Sink.BatchSize,
		Logger:    logger,
		Metrics:   m,
		RunIDs:    opts.RunIDs,
	}

	sum, err := p.Run(ctx, view.NewReader(in))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return f.Fail(ExitFailure, ErrCodeGeneric, "ingest interrupted", err)
		}
		return f.Fail(ExitFailure, ingestErrorCode(err), "ingest failed", err)
	}

	result := IngestResult{
		RunID:      sum.RunID,
		Receipts:   sum.Receipts,
		Duplicates: sum.Duplicates,
		Batches:    sum.Batches,
		Fallbacks:  sum.Fallbacks,
		Rows:       sum.Written.Total(),
		Tables:     sum.Written.ByTable(),
	}

	if f.Format == "json" {
		return f.Success(result)
	}

	f.Printf("Ingested %d receipts in %d batches: %d new rows\n", result.Receipts, result.Batches, result.Rows)
	for _, table := range store.Tables {
		f.Printf("  %-28s %d\n", table, result.Tables[table])
	}
	if result.Fallbacks > 0 {
		f.Printf("%d receipts stored with gas price 0\n", result.Fallbacks)
	}
	if result.Duplicates > 0 {
		f.Printf("%d duplicate receipts skipped\n", result.Duplicates)
	}
	fmt.Fprintf(f.Writer, "run %s\n", result.RunID)
	return nil
}

// openSink opens the configured sink.
func openSink(ctx context.Context, cfg config.Config, logger *slog.Logger) (ingest.Sink, error) {
	switch cfg.Sink.Driver {
	case config.DriverPostgres:
		logger.Info("opening postgres sink")
		return pgstore.Open(ctx, cfg.Sink.PostgresURL)
	case config.DriverSQLite:
		logger.Info("opening sqlite sink", "path", cfg.Sink.SQLitePath)
		return store.Open(cfg.Sink.SQLitePath)
	}
	return nil, fmt.Errorf("unknown sink driver %q", cfg.Sink.Driver)
}

func ingestErrorCode(err error) string {
	if code := normalizeErrorCode(err); code != ErrCodeGeneric {
		return code
	}
	return ErrCodeStore
}
