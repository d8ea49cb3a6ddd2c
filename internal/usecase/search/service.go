package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/semsearch/internal/domain/search/request"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
	"github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	"github.com/kailas-cloud/semsearch/internal/retry"
)

// Response is the outcome of a single-collection search.
type Response struct {
	Hits    []result.Hit
	Elapsed time.Duration
}

// Options tunes the search service.
type Options struct {
	Limits request.Limits
	// DefaultRadius applies to geo filters given without a radius, in meters.
	DefaultRadius float64
	// Retry governs vector store queries. Embedding retries live in the embedder chain.
	Retry retry.Policy
}

// Service runs semantic search over one entity collection.
type Service struct {
	router Router
	embed  Embedder
	repo   Repository
	opts   Options
}

// New creates a search service. embed must be the query-side embedder.
func New(router Router, embed Embedder, repo Repository, opts Options) *Service {
	if opts.DefaultRadius <= 0 {
		opts.DefaultRadius = filter.DefaultRadiusMeters
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = retry.None
	}
	return &Service{router: router, embed: embed, repo: repo, opts: opts}
}

// Limits returns the limit policy callers must validate requests with.
func (s *Service) Limits() request.Limits { return s.opts.Limits }

// Search resolves the collection, embeds the query, builds the filter and runs
// a KNN query. Hits keep the store order; there are never more than the limit.
// Elapsed spans the whole call, embedding included.
func (s *Service) Search(ctx context.Context, req *request.Request) (Response, error) {
	start := time.Now()
	hits, err := s.search(ctx, req)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = domain.KindOf(err)
	}
	metrics.SearchDuration.WithLabelValues(req.Entity(), outcome).Observe(elapsed.Seconds())

	if err != nil {
		return Response{}, err
	}
	return Response{Hits: hits, Elapsed: elapsed}, nil
}

func (s *Service) search(ctx context.Context, req *request.Request) ([]result.Hit, error) {
	col, err := s.router.Resolve(req.Entity())
	if err != nil {
		return nil, err
	}

	emb, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	log := logger.FromContext(ctx)
	b := filter.NewBuilder(s.opts.DefaultRadius)
	b.OnDrop = func(field, reason string) {
		log.Debug("Filter clause dropped",
			zap.String("field", field),
			zap.String("reason", reason))
	}
	expr := b.Build(req.Filter())

	var hits []result.Hit
	err = retry.Do(ctx, s.opts.Retry, func(ctx context.Context) error {
		var serr error
		hits, serr = s.repo.SearchKNN(ctx, col, emb.Embedding, expr, req.Limit())
		if domain.KindOf(serr) == domain.KindTimeout {
			return retry.Permanent(serr)
		}
		return serr
	})
	if err != nil {
		return nil, err
	}

	if len(hits) > req.Limit() {
		hits = hits[:req.Limit()]
	}
	return hits, nil
}
