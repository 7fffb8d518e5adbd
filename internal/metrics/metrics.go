// Package metrics exposes ingestion counters over Prometheus.
//
// Each Metrics owns a private registry so tests and multiple pipelines do
// not collide on the global one. All methods are safe on a nil *Metrics.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/receiptdb/internal/rows"
	"github.com/roach88/receiptdb/internal/store"
)

const namespace = "receiptdb"

// Metrics holds the ingestion collectors.
type Metrics struct {
	registry *prometheus.Registry

	receipts          *prometheus.CounterVec
	rowsWritten       *prometheus.CounterVec
	gasPriceFallbacks prometheus.Counter
	batches           prometheus.Counter
	errors            prometheus.Counter
	writeDuration     prometheus.Histogram
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		receipts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipts_total",
			Help:      "Receipts normalized, by receipt kind.",
		}, []string{"kind"}),
		rowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows inserted into the sink, by table. Rows that already existed are not counted.",
		}, []string{"table"}),
		gasPriceFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gas_price_fallback_total",
			Help:      "Action receipts stored with gas price 0 because the source value exceeded the column precision.",
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_written_total",
			Help:      "Write transactions committed.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Batches that failed to normalize or write.",
		}),
		writeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "write_duration_seconds",
			Help:      "Time taken to write one batch.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		}),
	}

	m.registry.MustRegister(
		m.receipts,
		m.rowsWritten,
		m.gasPriceFallbacks,
		m.batches,
		m.errors,
		m.writeDuration,
	)

	// Pre-create label values so every series is exported from the start.
	for _, k := range []rows.ReceiptKind{rows.ReceiptKindAction, rows.ReceiptKindData} {
		m.receipts.WithLabelValues(k.String())
	}
	for _, table := range store.Tables {
		m.rowsWritten.WithLabelValues(table)
	}
	return m
}

// ObserveBatch counts the receipts and gas price fallbacks of a normalized
// batch.
func (m *Metrics) ObserveBatch(b rows.Batch) {
	if m == nil {
		return
	}
	for _, r := range b.Receipts {
		m.receipts.WithLabelValues(r.Kind.String()).Inc()
	}
	m.gasPriceFallbacks.Add(float64(len(b.Fallbacks())))
}

// ObserveWrite records a committed write.
func (m *Metrics) ObserveWrite(stats store.WriteStats, took time.Duration) {
	if m == nil {
		return
	}
	for table, n := range stats.ByTable() {
		m.rowsWritten.WithLabelValues(table).Add(float64(n))
	}
	m.batches.Inc()
	m.writeDuration.Observe(took.Seconds())
}

// ObserveError counts a failed batch.
func (m *Metrics) ObserveError() {
	if m == nil {
		return
	}
	m.errors.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is canceled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
