package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Loader holds the ingestion metrics. It lives on its own registry so a
// short-lived ingest process can expose it without the gateway metrics.
type Loader struct {
	RowsProcessed *prometheus.CounterVec
	RowsFailed    *prometheus.CounterVec
	BatchesTotal  *prometheus.CounterVec
	BatchDuration *prometheus.HistogramVec
	IndexDocs     *prometheus.GaugeVec
}

// NewLoader creates loader metrics and registers them on reg.
func NewLoader(reg prometheus.Registerer) *Loader {
	m := &Loader{
		RowsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "rows_processed_total",
			Help:      "Total rows successfully written",
		}, []string{"collection"}),

		RowsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "rows_failed_total",
			Help:      "Total rows skipped or failed",
		}, []string{"collection", "reason"}),

		BatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "batches_total",
			Help:      "Total batches written",
		}, []string{"collection"}),

		BatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "batch_duration_seconds",
			Help:      "Batch embed plus upsert duration",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"collection"}),

		IndexDocs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "index_docs",
			Help:      "Documents in the collection index after the last run",
		}, []string{"collection"}),
	}

	reg.MustRegister(
		m.RowsProcessed, m.RowsFailed,
		m.BatchesTotal, m.BatchDuration,
		m.IndexDocs,
	)
	return m
}

// Serve starts a /metrics listener for g in the background.
func Serve(addr string, g prometheus.Gatherer, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Metrics server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	return srv
}
