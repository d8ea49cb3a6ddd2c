package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/app"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	"github.com/kailas-cloud/semsearch/internal/usecase/ingest"
)

var (
	runEntities    []string
	runBatchSize   int
	runMetricsPort int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest entities into their collections",
	Long: `Ingests the given entity types, every type when --entity is omitted.
Missing collections are created. Existing ones are upserted into.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	runCmd.Flags().StringSliceVarP(&runEntities, "entity", "e", nil, "entity types to ingest (service, user, shop, product)")
	runCmd.Flags().IntVar(&runBatchSize, "batch-size", 0, "rows embedded and written together (default from config)")
	runCmd.Flags().IntVar(&runMetricsPort, "metrics-port", 0, "serve /metrics on this port while running (default from config)")
	rootCmd.AddCommand(runCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	types, err := parseEntities(runEntities)
	if err != nil {
		return err
	}
	return ingestTypes(cmd, types, ingest.Options{}, app.Options{})
}

// ingestTypes wires a pipeline and runs it until done or interrupted.
func ingestTypes(cmd *cobra.Command, types []entity.Type, opts ingest.Options, appOpts app.Options) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := openContext(ctx, appOpts)
	if err != nil {
		return err
	}
	defer closeContext(svc)

	reg := prometheus.NewRegistry()
	loader := metrics.NewLoader(reg)

	port := runMetricsPort
	if port == 0 {
		port = svc.Config.Ingest.MetricsPort
	}
	if port > 0 {
		srv := metrics.Serve(fmt.Sprintf(":%d", port), reg, svc.Logger)
		defer shutdown(srv, svc.Logger)
	}

	p, src, err := svc.Ingest(ctx, loader, app.IngestOverrides{BatchSize: runBatchSize})
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	reports, err := p.IngestAll(ctx, types, opts)
	printReports(cmd, reports)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return nil
}

func shutdown(srv *http.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("Metrics server shutdown failed", zap.Error(err))
	}
}
