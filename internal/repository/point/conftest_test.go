package point

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/geo"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
	"github.com/kailas-cloud/semsearch/internal/repository/keyspace"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn      func(ctx context.Context, key string, fields map[string]string) error
	hsetMultiFn func(ctx context.Context, items []db.HashSetItem) ([]error, error)
	hgetAllFn   func(ctx context.Context, key string) (map[string]string, error)
	delFn       func(ctx context.Context, key string) error

	hsetKeys []string
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	m.hsetKeys = append(m.hsetKeys, key)
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) ([]error, error) {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return make([]error, len(items)), nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, keyspace.New("semsearch:")), ms
}

func shopsCollection() entity.Collection {
	return entity.Collection{
		Type:        entity.Shop,
		Name:        "shops",
		VectorField: "embedding",
		Projection:  entity.ProjectionFull,
	}
}

func testRecord(id string) Record {
	return Record{
		ID:     id,
		Entity: entity.Shop,
		Text:   "Fresh Market groceries Tanta",
		Vector: []float32{0.6, 0.8},
		Payload: result.Payload{
			Name:          "Fresh Market",
			City:          "Tanta",
			Tags:          []string{"grocery", "organic"},
			CategoryIDs:   []string{"7"},
			CategorySlugs: []string{"food"},
			Location:      &geo.Point{Lat: 30.7865, Lon: 31.0004},
		},
		IngestedAt: time.Unix(1700000000, 0),
	}
}
