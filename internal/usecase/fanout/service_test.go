package fanout

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/semsearch/internal/domain/search/request"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	"github.com/kailas-cloud/semsearch/internal/usecase/search"
)

func TestMain(m *testing.M) {
	metrics.RegisterSearchMetrics()
	os.Exit(m.Run())
}

type mockSearcher struct {
	searchFn func(ctx context.Context, req *request.Request) (search.Response, error)

	mu   sync.Mutex
	reqs []request.Request
}

func (m *mockSearcher) Search(ctx context.Context, req *request.Request) (search.Response, error) {
	m.mu.Lock()
	m.reqs = append(m.reqs, *req)
	m.mu.Unlock()
	if m.searchFn != nil {
		return m.searchFn(ctx, req)
	}
	return search.Response{Hits: hits(req.Entity(), 2)}, nil
}

func (m *mockSearcher) Limits() request.Limits { return request.DefaultLimits() }

func hits(prefix string, n int) []result.Hit {
	out := make([]result.Hit, n)
	for i := range out {
		out[i] = result.New(prefix+string(rune('0'+i)), 0.9, entity.Service, result.Payload{})
	}
	return out
}

func newService(t *testing.T, s Searcher, opts Options) *Service {
	t.Helper()
	svc, err := New(s, opts)
	require.NoError(t, err)
	t.Cleanup(svc.Release)
	return svc
}

func TestMultiSearch_AllSucceed(t *testing.T) {
	svc := newService(t, &mockSearcher{}, Options{})

	resp := svc.MultiSearch(context.Background(), request.Multi{Entities: map[string]request.EntityQuery{
		"services": {Enabled: true, Query: "plumber", Limit: 5},
		"shops":    {Enabled: true, Query: "bakery", Limit: 5},
		"users":    {Enabled: false, Query: "ignored"},
	}})

	assert.Empty(t, resp.Failures)
	assert.Len(t, resp.Results, 2)
	assert.Len(t, resp.Results[entity.Service], 2)
	assert.Len(t, resp.Results[entity.Shop], 2)
	assert.NotContains(t, resp.Results, entity.User)
	assert.Equal(t, 2, resp.Summary[entity.Shop])
	assert.GreaterOrEqual(t, resp.Elapsed, time.Duration(0))
}

func TestMultiSearch_OneFailureKeepsTheRest(t *testing.T) {
	ms := &mockSearcher{searchFn: func(_ context.Context, req *request.Request) (search.Response, error) {
		if req.Entity() == "products" {
			return search.Response{}, domain.ErrBackendUnavailable
		}
		return search.Response{Hits: hits(req.Entity(), 3)}, nil
	}}
	svc := newService(t, ms, Options{})
	before := testutil.ToFloat64(metrics.FanoutFailuresTotal.WithLabelValues("product", domain.KindBackendUnavailable))

	resp := svc.MultiSearch(context.Background(), request.Multi{Entities: map[string]request.EntityQuery{
		"services": {Enabled: true, Query: "a"},
		"shops":    {Enabled: true, Query: "b"},
		"products": {Enabled: true, Query: "c"},
	}})

	require.Len(t, resp.Failures, 1)
	assert.Equal(t, domain.KindBackendUnavailable, resp.Failures["products"].Kind)
	assert.Empty(t, resp.Results[entity.Product])
	assert.Len(t, resp.Results[entity.Service], 3)
	assert.Len(t, resp.Results[entity.Shop], 3)

	total := 0
	for _, hs := range resp.Results {
		total += len(hs)
	}
	sum := 0
	for _, n := range resp.Summary {
		sum += n
	}
	assert.Equal(t, total, sum)
	assert.Equal(t, 6, sum)

	after := testutil.ToFloat64(metrics.FanoutFailuresTotal.WithLabelValues("product", domain.KindBackendUnavailable))
	assert.Equal(t, before+1, after)
}

func TestMultiSearch_UnknownAndInvalidEntries(t *testing.T) {
	ms := &mockSearcher{}
	svc := newService(t, ms, Options{})

	resp := svc.MultiSearch(context.Background(), request.Multi{Entities: map[string]request.EntityQuery{
		"planets":  {Enabled: true, Query: "mars"},
		"users":    {Enabled: true, Query: "   "},
		"services": {Enabled: true, Query: "dentist", Limit: -1},
		"shops":    {Enabled: true, Query: "bakery"},
	}})

	require.Len(t, resp.Failures, 3)
	assert.Equal(t, domain.KindUnknownEntityType, resp.Failures["planets"].Kind)
	assert.Equal(t, domain.KindValidation, resp.Failures["users"].Kind)
	assert.Equal(t, domain.KindValidation, resp.Failures["services"].Kind)
	assert.Len(t, resp.Results[entity.Shop], 2)
	assert.Len(t, ms.reqs, 1, "only the valid entry reaches the searcher")
}

func TestMultiSearch_DuplicateAliases(t *testing.T) {
	svc := newService(t, &mockSearcher{}, Options{})

	resp := svc.MultiSearch(context.Background(), request.Multi{Entities: map[string]request.EntityQuery{
		"shop":  {Enabled: true, Query: "a"},
		"shops": {Enabled: true, Query: "b"},
	}})

	require.Len(t, resp.Failures, 1)
	assert.Equal(t, domain.KindValidation, resp.Failures["shops"].Kind)
	assert.Len(t, resp.Results[entity.Shop], 2)
}

func TestMultiSearch_SharedFilter(t *testing.T) {
	ms := &mockSearcher{}
	svc := newService(t, ms, Options{})
	lat, lon := 30.0, 31.0

	svc.MultiSearch(context.Background(), request.Multi{
		Entities: map[string]request.EntityQuery{
			"services": {Enabled: true, Query: "a"},
			"shops":    {Enabled: true, Query: "b"},
		},
		Filter: &filter.Input{Lat: &lat, Lon: &lon},
	})

	require.Len(t, ms.reqs, 2)
	for _, r := range ms.reqs {
		require.NotNil(t, r.Filter())
		assert.Equal(t, 30.0, *r.Filter().Lat)
	}
}

func TestMultiSearch_DeadlineRecordsTimeouts(t *testing.T) {
	ms := &mockSearcher{searchFn: func(ctx context.Context, req *request.Request) (search.Response, error) {
		if req.Entity() == "services" {
			return search.Response{Hits: hits("s", 1)}, nil
		}
		<-ctx.Done()
		return search.Response{}, ctx.Err()
	}}
	svc := newService(t, ms, Options{Timeout: 50 * time.Millisecond})

	resp := svc.MultiSearch(context.Background(), request.Multi{Entities: map[string]request.EntityQuery{
		"services": {Enabled: true, Query: "fast"},
		"shops":    {Enabled: true, Query: "slow"},
	}})

	require.Len(t, resp.Failures, 1)
	assert.Equal(t, domain.KindTimeout, resp.Failures["shops"].Kind)
	assert.Len(t, resp.Results[entity.Service], 1)
	assert.Empty(t, resp.Results[entity.Shop])
}

func TestMultiSearch_NothingEnabled(t *testing.T) {
	ms := &mockSearcher{}
	svc := newService(t, ms, Options{})

	resp := svc.MultiSearch(context.Background(), request.Multi{Entities: map[string]request.EntityQuery{
		"services": {Enabled: false, Query: "a"},
	}})

	assert.Empty(t, resp.Results)
	assert.Empty(t, resp.Failures)
	assert.Empty(t, ms.reqs)
}

func TestMultiSearch_PoolBoundsConcurrency(t *testing.T) {
	var mu sync.Mutex
	running, peak := 0, 0
	ms := &mockSearcher{searchFn: func(_ context.Context, req *request.Request) (search.Response, error) {
		mu.Lock()
		running++
		peak = max(peak, running)
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
		return search.Response{}, nil
	}}
	svc := newService(t, ms, Options{Workers: 1})

	resp := svc.MultiSearch(context.Background(), request.Multi{Entities: map[string]request.EntityQuery{
		"services": {Enabled: true, Query: "a"},
		"shops":    {Enabled: true, Query: "b"},
		"users":    {Enabled: true, Query: "c"},
	}})

	assert.Empty(t, resp.Failures)
	assert.Equal(t, 1, peak)
}

func TestMultiSearch_SaturatedPoolTimesOut(t *testing.T) {
	ms := &mockSearcher{searchFn: func(ctx context.Context, _ *request.Request) (search.Response, error) {
		<-ctx.Done()
		return search.Response{}, ctx.Err()
	}}
	svc := newService(t, ms, Options{Workers: 1, Timeout: 50 * time.Millisecond})

	start := time.Now()
	resp := svc.MultiSearch(context.Background(), request.Multi{Entities: map[string]request.EntityQuery{
		"services": {Enabled: true, Query: "a"},
		"shops":    {Enabled: true, Query: "b"},
	}})

	assert.Less(t, time.Since(start), time.Second, "a full pool must not outlive the deadline")
	require.Len(t, resp.Failures, 2)
	assert.Equal(t, domain.KindTimeout, resp.Failures["shops"].Kind)
	assert.Contains(t, resp.Failures["shops"].Message, "worker pool saturated")
	assert.Equal(t, domain.KindTimeout, resp.Failures["services"].Kind)
	ms.mu.Lock()
	defer ms.mu.Unlock()
	assert.Len(t, ms.reqs, 1, "the queued entity never reaches the searcher")
}

func TestFailKind_CanceledMapsToTimeout(t *testing.T) {
	svc := newService(t, &mockSearcher{}, Options{})
	resp := Response{Failures: map[string]Failure{}}

	svc.fail(context.Background(), &resp, "shops", context.Canceled)
	assert.Equal(t, domain.KindTimeout, resp.Failures["shops"].Kind)

	svc.fail(context.Background(), &resp, "users", errors.New("boom"))
	assert.Equal(t, domain.KindInternal, resp.Failures["users"].Kind)
}
