// Package ingest loads entities from the relational source into the vector store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/geo"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	"github.com/kailas-cloud/semsearch/internal/repository/lock"
	"github.com/kailas-cloud/semsearch/internal/repository/point"
	"github.com/kailas-cloud/semsearch/internal/repository/source"
)

// DefaultBatchSize is the number of rows embedded and written together.
const DefaultBatchSize = 50

// Failure reasons recorded in rows_failed_total.
const (
	ReasonEmptyText = "empty_text"
	ReasonMissingID = "missing_id"
	ReasonEmbed     = "embed"
	ReasonWrite     = "write"
)

// Config tunes the pipeline.
type Config struct {
	// Dim is the probed embedding dimension.
	Dim       int
	BatchSize int
	// RowsPerSecond paces writes. Zero means unlimited.
	RowsPerSecond float64
	// DefaultLocation replaces missing coordinates.
	DefaultLocation geo.Point
}

// Deps are the pipeline collaborators.
type Deps struct {
	Router      Router
	Source      Source
	Collections Collections
	Points      Writer
	Locks       Locker
	// Embedder must be the document-side embedder.
	Embedder domain.Embedder
	Metrics  *metrics.Loader
	Logger   *zap.Logger
}

// Options are per-run switches.
type Options struct {
	// Recreate drops the collection and its documents before loading.
	Recreate bool
}

// Report summarizes one collection run.
type Report struct {
	RunID      string
	Entity     entity.Type
	Collection string
	Inserted   int
	Failed     int
	Recreated  bool
	Duration   time.Duration
}

// Pipeline streams rows, embeds them in batches and writes them.
type Pipeline struct {
	deps    Deps
	cfg     Config
	limiter *rate.Limiter
	now     func() time.Time
}

// New creates a pipeline.
func New(deps Deps, cfg Config) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.DefaultLocation == (geo.Point{}) {
		cfg.DefaultLocation = geo.DefaultLocation
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	limit := rate.Inf
	burst := cfg.BatchSize
	if cfg.RowsPerSecond > 0 {
		limit = rate.Limit(cfg.RowsPerSecond)
		burst = max(cfg.BatchSize, int(cfg.RowsPerSecond))
	}

	return &Pipeline{
		deps:    deps,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
		now:     time.Now,
	}
}

// IngestAll runs the given types in order, all types when none are given.
// A failing type does not stop the others; the errors are joined.
func (p *Pipeline) IngestAll(ctx context.Context, types []entity.Type, opts Options) ([]Report, error) {
	if len(types) == 0 {
		types = entity.All
	}

	reports := make([]Report, 0, len(types))
	var errs []error
	for _, t := range types {
		rep, err := p.Ingest(ctx, t, opts)
		reports = append(reports, rep)
		if err != nil {
			errs = append(errs, fmt.Errorf("ingest %s: %w", t, err))
			if ctx.Err() != nil {
				break
			}
		}
	}
	return reports, errors.Join(errs...)
}

// Ingest loads one entity type. The collection is recreated at most once per
// call and never touched while another ingest holds its lock.
func (p *Pipeline) Ingest(ctx context.Context, t entity.Type, opts Options) (Report, error) {
	start := p.now()
	rep := Report{RunID: uuid.NewString(), Entity: t}

	col, err := p.deps.Router.Get(t)
	if err != nil {
		return rep, err
	}
	rep.Collection = col.Name

	log := p.deps.Logger.With(
		zap.String("run_id", rep.RunID),
		zap.String("entity", string(t)),
		zap.String("collection", col.Name),
	)

	lease, err := p.deps.Locks.Acquire(ctx, col.Name)
	if err != nil {
		return rep, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Failed to release ingest lock", zap.Error(err))
		}
	}()

	if err := p.prepare(ctx, col, opts, &rep, log); err != nil {
		return rep, err
	}

	run := &run{
		p:          p,
		col:        col,
		log:        log,
		rep:        &rep,
		lease:      lease,
		ingestedAt: start,
		batch:      make([]point.Record, 0, p.cfg.BatchSize),
	}

	err = p.deps.Source.Rows(ctx, t, func(row source.Row) error {
		return run.add(ctx, row)
	})
	if err == nil {
		err = run.flush(ctx)
	}
	rep.Duration = p.now().Sub(start)

	if err != nil {
		log.Error("Ingest aborted",
			zap.Int("inserted", rep.Inserted),
			zap.Int("failed", rep.Failed),
			zap.Error(err))
		return rep, fmt.Errorf("stream rows: %w", err)
	}

	if n, cerr := p.deps.Collections.Count(ctx, col.Name); cerr == nil {
		p.deps.Metrics.IndexDocs.WithLabelValues(col.Name).Set(float64(n))
	} else {
		log.Warn("Failed to count index documents", zap.Error(cerr))
	}

	log.Info("Ingest completed",
		zap.Int("inserted", rep.Inserted),
		zap.Int("failed", rep.Failed),
		zap.Bool("recreated", rep.Recreated),
		zap.Duration("duration", rep.Duration))
	return rep, nil
}

func (p *Pipeline) prepare(ctx context.Context, col entity.Collection, opts Options, rep *Report, log *zap.Logger) error {
	if opts.Recreate {
		if err := p.deps.Collections.Recreate(ctx, col, p.cfg.Dim); err != nil {
			return fmt.Errorf("recreate collection: %w", err)
		}
		rep.Recreated = true
		log.Info("Collection recreated", zap.Int("dim", p.cfg.Dim))
		return nil
	}

	created, err := p.deps.Collections.Ensure(ctx, col, p.cfg.Dim)
	if err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	if created {
		log.Info("Collection created", zap.Int("dim", p.cfg.Dim))
	}
	return nil
}

// run is the state of one Ingest call.
type run struct {
	p          *Pipeline
	col        entity.Collection
	log        *zap.Logger
	rep        *Report
	lease      *lock.Lease
	ingestedAt time.Time
	batch      []point.Record
}

func (r *run) add(ctx context.Context, row source.Row) error {
	if row.ID == "" {
		r.fail(ReasonMissingID, 1)
		return nil
	}

	text := entity.DeriveText(r.col.Type, row.Fields)
	if text == "" {
		r.log.Debug("Row skipped", zap.String("id", row.ID), zap.String("reason", ReasonEmptyText))
		r.fail(ReasonEmptyText, 1)
		return nil
	}

	loc := row.Location
	if loc == nil {
		d := r.p.cfg.DefaultLocation
		loc = &d
	}

	r.batch = append(r.batch, point.Record{
		ID:     row.ID,
		Entity: r.col.Type,
		Text:   text,
		Payload: result.Payload{
			Name:          row.Fields.Name,
			Description:   row.Fields.Description,
			Phone:         row.Phone,
			City:          row.Fields.City,
			Tags:          row.Tags,
			CategoryIDs:   row.CategoryIDs,
			CategorySlugs: row.CategorySlugs,
			Location:      loc,
		},
		IngestedAt: r.ingestedAt,
	})

	if len(r.batch) < r.p.cfg.BatchSize {
		return nil
	}
	return r.flush(ctx)
}

// flush embeds and writes the pending batch. Row failures are counted, never returned.
// The lock is renewed first; a lost lock aborts the run before anything is written.
func (r *run) flush(ctx context.Context) error {
	if len(r.batch) == 0 {
		return nil
	}
	batch := r.batch
	r.batch = make([]point.Record, 0, r.p.cfg.BatchSize)

	if err := r.lease.Extend(ctx); err != nil {
		if errors.Is(err, lock.ErrLeaseLost) {
			r.fail(ReasonWrite, len(batch))
			return err
		}
		r.log.Warn("Failed to extend ingest lock", zap.Error(err))
	}

	start := time.Now()
	if err := r.p.limiter.WaitN(ctx, len(batch)); err != nil {
		r.fail(ReasonWrite, len(batch))
		return fmt.Errorf("rate limiter: %w", err)
	}

	embedded := r.embed(ctx, batch)
	if len(embedded) > 0 {
		errs := r.p.deps.Points.UpsertBatch(ctx, r.col, embedded)
		written := len(embedded)
		for i, err := range errs {
			if err == nil {
				continue
			}
			written--
			r.fail(ReasonWrite, 1)
			r.log.Warn("Row write failed", zap.String("id", embedded[i].ID), zap.Error(err))
		}
		r.rep.Inserted += written
		r.p.deps.Metrics.RowsProcessed.WithLabelValues(r.col.Name).Add(float64(written))
	}

	r.p.deps.Metrics.BatchesTotal.WithLabelValues(r.col.Name).Inc()
	r.p.deps.Metrics.BatchDuration.WithLabelValues(r.col.Name).Observe(time.Since(start).Seconds())
	r.log.Debug("Batch written",
		zap.Int("size", len(batch)),
		zap.Int("inserted_total", r.rep.Inserted),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// embed vectorizes a batch in one call. When the batch call fails every row is
// embedded alone so one bad row fails alone. Failed rows are dropped.
func (r *run) embed(ctx context.Context, batch []point.Record) []point.Record {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Text
	}

	res, err := domain.BatchEmbed(ctx, r.p.deps.Embedder, texts)
	if err == nil && len(res.Embeddings) == len(batch) {
		for i := range batch {
			batch[i].Vector = res.Embeddings[i]
		}
		return batch
	}
	if err == nil {
		err = fmt.Errorf("got %d vectors for %d texts", len(res.Embeddings), len(batch))
	}
	r.log.Warn("Batch embedding failed, embedding rows one by one",
		zap.Int("size", len(batch)), zap.Error(err))

	out := batch[:0]
	for i := range batch {
		one, err := r.p.deps.Embedder.Embed(ctx, batch[i].Text)
		if err != nil {
			r.fail(ReasonEmbed, 1)
			r.log.Warn("Row embedding failed", zap.String("id", batch[i].ID), zap.Error(err))
			continue
		}
		batch[i].Vector = one.Embedding
		out = append(out, batch[i])
	}
	return out
}

func (r *run) fail(reason string, n int) {
	r.rep.Failed += n
	r.p.deps.Metrics.RowsFailed.WithLabelValues(r.col.Name, reason).Add(float64(n))
}
