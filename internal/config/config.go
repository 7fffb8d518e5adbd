package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/receiptdb/internal/rows"
)

// Sink drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the receiptdb configuration file.
type Config struct {
	Sink     SinkConfig     `yaml:"sink"`
	GasPrice GasPriceConfig `yaml:"gas_price"`
	Workers  int            `yaml:"workers"` // 0 = runtime.NumCPU()
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// SinkConfig selects where rows are written.
type SinkConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresURL string `yaml:"postgres_url"`
	BatchSize   int    `yaml:"batch_size"` // receipts per write transaction
}

// GasPriceConfig controls gas prices that do not fit the storage column.
type GasPriceConfig struct {
	Policy    string `yaml:"policy"`
	Precision int    `yaml:"precision"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Sink: SinkConfig{
			Driver:     DriverSQLite,
			SQLitePath: "receipts.db",
			BatchSize:  500,
		},
		GasPrice: GasPriceConfig{
			Policy:    string(rows.PolicyReject),
			Precision: rows.DefaultPrecision,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file on top of Default. Unknown keys are errors.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting, joined.
func (c Config) Validate() error {
	var errs []error

	switch c.Sink.Driver {
	case DriverSQLite:
		if c.Sink.SQLitePath == "" {
			errs = append(errs, errors.New("sink.sqlite_path is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.Sink.PostgresURL == "" {
			errs = append(errs, errors.New("sink.postgres_url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("sink.driver %q is not one of sqlite, postgres", c.Sink.Driver))
	}
	if c.Sink.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("sink.batch_size must be positive, got %d", c.Sink.BatchSize))
	}

	if _, err := rows.ParseGasPricePolicy(c.GasPrice.Policy); err != nil {
		errs = append(errs, fmt.Errorf("gas_price.policy: %w", err))
	}
	if c.GasPrice.Precision <= 0 {
		errs = append(errs, fmt.Errorf("gas_price.precision must be positive, got %d", c.GasPrice.Precision))
	}

	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// Converter builds the gas price converter. Call after Validate.
func (c Config) Converter() rows.GasPriceConverter {
	return rows.GasPriceConverter{
		Precision: c.GasPrice.Precision,
		Policy:    rows.GasPricePolicy(c.GasPrice.Policy),
	}
}

// WorkerCount resolves the configured worker count.
func (c Config) WorkerCount() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// Logger builds a slog logger writing to w. verbose forces debug level.
func (c Config) Logger(w io.Writer, verbose bool) (*slog.Logger, error) {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch c.Logging.Format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}
	return slog.New(handler), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", s)
}
