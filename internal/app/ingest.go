package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/semsearch/internal/domain/geo"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	"github.com/kailas-cloud/semsearch/internal/repository/lock"
	"github.com/kailas-cloud/semsearch/internal/repository/point"
	"github.com/kailas-cloud/semsearch/internal/repository/source"
	"github.com/kailas-cloud/semsearch/internal/usecase/ingest"
)

// IngestOverrides replace configured ingestion settings for one run.
type IngestOverrides struct {
	BatchSize int
}

// Ingest opens the relational source and wires an ingestion pipeline.
// The returned source must be closed by the caller.
func (c *Context) Ingest(
	ctx context.Context, m *metrics.Loader, o IngestOverrides,
) (*ingest.Pipeline, *source.Source, error) {
	cfg := c.Config.Ingest

	src, err := source.Open(ctx, cfg.Source.Config(), c.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open source: %w", err)
	}

	batch := cfg.BatchSize
	if o.BatchSize > 0 {
		batch = o.BatchSize
	}

	p := ingest.New(ingest.Deps{
		Router:      c.Registry,
		Source:      src,
		Collections: c.CollectionRepo,
		Points:      point.New(c.Store, c.Keys).WithTextMax(cfg.TextMaxChars),
		Locks:       lock.New(c.Store, c.Keys, time.Duration(cfg.LockTTLSec)*time.Second),
		Embedder:    c.Embedders.Document,
		Metrics:     m,
		Logger:      c.Logger,
	}, ingest.Config{
		Dim:             c.Dim,
		BatchSize:       batch,
		RowsPerSecond:   cfg.RowsPerSecond,
		DefaultLocation: geo.Point{Lat: cfg.DefaultLocation.Lat, Lon: cfg.DefaultLocation.Lon},
	})
	return p, src, nil
}
