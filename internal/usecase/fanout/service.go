// Package fanout runs one search per entity type concurrently and merges the
// outcomes. A failing entity never fails the whole response.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/search/request"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
	"github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	"github.com/kailas-cloud/semsearch/internal/retry"
)

// Defaults for Options.
const (
	DefaultWorkers = 8
	DefaultTimeout = 5 * time.Second
)

// submitPolicy paces resubmission while every worker is busy. Only the request
// deadline ends it.
var submitPolicy = retry.Policy{MaxAttempts: math.MaxInt32, BaseDelay: time.Millisecond, MaxDelay: 20 * time.Millisecond}

// Options tunes the fan-out.
type Options struct {
	// Workers bounds concurrent entity searches across all requests.
	Workers int
	// Timeout is the deadline of one multi-entity request.
	Timeout time.Duration
}

// Failure describes why one entity produced no results.
type Failure struct {
	Kind    string
	Message string
}

// Response is the merged outcome of a multi-entity search.
//
// Results has an entry for every entity that was executed, empty on failure.
// Failures is keyed by the entity name as the caller sent it.
// Summary holds the hit count per executed entity.
type Response struct {
	Results  map[entity.Type][]result.Hit
	Failures map[string]Failure
	Summary  map[entity.Type]int
	Elapsed  time.Duration
}

// Service fans searches out over a shared worker pool.
type Service struct {
	searcher Searcher
	pool     *ants.Pool
	timeout  time.Duration
}

// New creates a fan-out service with its own worker pool. Call Release when done.
func New(searcher Searcher, opts Options) (*Service, error) {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	pool, err := ants.NewPool(opts.Workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create fanout pool: %w", err)
	}
	return &Service{searcher: searcher, pool: pool, timeout: opts.Timeout}, nil
}

// Release stops the worker pool. The service must not be used afterwards.
func (s *Service) Release() {
	s.pool.Release()
}

type job struct {
	name string
	typ  entity.Type
	req  request.Request
}

type outcome struct {
	job
	hits []result.Hit
	err  error
}

// MultiSearch runs every enabled entry concurrently under one deadline.
// Entities still running when the deadline passes are recorded as timeouts.
func (s *Service) MultiSearch(ctx context.Context, m request.Multi) Response {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp := Response{
		Results:  make(map[entity.Type][]result.Hit),
		Failures: make(map[string]Failure),
		Summary:  make(map[entity.Type]int),
	}

	jobs := s.plan(ctx, m, &resp)
	results := make(chan outcome, len(jobs))
	pending := make(map[string]job, len(jobs))

	for _, j := range jobs {
		resp.Results[j.typ] = []result.Hit{}
		resp.Summary[j.typ] = 0

		err := s.submit(ctx, func() {
			r, err := s.searcher.Search(ctx, &j.req)
			results <- outcome{job: j, hits: r.Hits, err: err}
		})
		if err != nil {
			s.fail(ctx, &resp, j.name, fmt.Errorf("submit search: %w", err))
			continue
		}
		pending[j.name] = j
	}

	for len(pending) > 0 {
		select {
		case o := <-results:
			delete(pending, o.name)
			if o.err != nil {
				s.fail(ctx, &resp, o.name, o.err)
				continue
			}
			resp.Results[o.typ] = o.hits
			resp.Summary[o.typ] = len(o.hits)
		case <-ctx.Done():
			for name := range pending {
				s.fail(ctx, &resp, name, fmt.Errorf("%w: %w", domain.ErrTimeout, ctx.Err()))
			}
			pending = nil
		}
	}

	resp.Elapsed = time.Since(start)
	return resp
}

// submit hands task to the pool, waiting for a free worker until ctx is done.
// A request that never gets a worker fails as a timeout.
func (s *Service) submit(ctx context.Context, task func()) error {
	err := retry.Do(ctx, submitPolicy, func(context.Context) error {
		err := s.pool.Submit(task)
		if err != nil && !errors.Is(err, ants.ErrPoolOverload) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: worker pool saturated: %w", domain.ErrTimeout, err)
	}
	return err
}

// plan validates the enabled entries in name order. Invalid ones go straight
// to Failures.
func (s *Service) plan(ctx context.Context, m request.Multi, resp *Response) []job {
	names := m.Enabled()
	sort.Strings(names)

	limits := s.searcher.Limits()
	seen := make(map[entity.Type]string, len(names))
	jobs := make([]job, 0, len(names))

	for _, name := range names {
		t, err := entity.Parse(name)
		if err != nil {
			s.fail(ctx, resp, name, err)
			continue
		}
		if prev, dup := seen[t]; dup {
			s.fail(ctx, resp, name, domain.NewValidation("entities",
				fmt.Sprintf("duplicates %q", prev)))
			continue
		}
		seen[t] = name

		q := m.Entities[name]
		req, err := request.New(name, q.Query, q.Limit, m.Filter, limits)
		if err != nil {
			s.fail(ctx, resp, name, err)
			continue
		}
		jobs = append(jobs, job{name: name, typ: t, req: req})
	}
	return jobs
}

func (s *Service) fail(ctx context.Context, resp *Response, name string, err error) {
	kind := domain.KindOf(err)
	if errors.Is(err, context.Canceled) && kind == domain.KindInternal {
		kind = domain.KindTimeout
	}
	resp.Failures[name] = Failure{Kind: kind, Message: err.Error()}
	metrics.FanoutFailuresTotal.WithLabelValues(metricLabel(name), kind).Inc()

	logger.FromContext(ctx).Warn("Entity search failed",
		zap.String("entity", name),
		zap.String("kind", kind),
		zap.Error(err),
	)
}

// metricLabel keeps client-chosen names out of label values.
func metricLabel(name string) string {
	t, err := entity.Parse(name)
	if err != nil {
		return "unknown"
	}
	return string(t)
}
