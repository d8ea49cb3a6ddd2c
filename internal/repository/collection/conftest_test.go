package collection

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/repository/keyspace"
)

const testVectorDim = 384

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn          func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn       func(ctx context.Context, key string) (map[string]string, error)
	delFn           func(ctx context.Context, key string) error
	createIndexFn   func(ctx context.Context, s *db.Schema) error
	dropIndexFn     func(ctx context.Context, name string, deleteDocs bool) error
	indexExistsFn   func(ctx context.Context, name string) (bool, error)
	indexDocCountFn func(ctx context.Context, name string) (int, error)

	created []*db.Schema
	dropped []string
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
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

func (m *mockStore) CreateIndex(ctx context.Context, def *db.Schema) error {
	m.created = append(m.created, def)
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string, deleteDocs bool) error {
	m.dropped = append(m.dropped, name)
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name, deleteDocs)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return true, nil
}

func (m *mockStore) IndexDocCount(ctx context.Context, name string) (int, error) {
	if m.indexDocCountFn != nil {
		return m.indexDocCountFn(ctx, name)
	}
	return 0, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, keyspace.New("semsearch:"))
	repo.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return repo, ms
}

func servicesCollection() entity.Collection {
	return entity.Collection{
		Type:        entity.Service,
		Name:        "services",
		VectorField: "embedding_text",
		Projection:  entity.ProjectionFull,
	}
}

func storedMeta(dim string) map[string]string {
	return map[string]string{
		"name":         "services",
		"entity_type":  "service",
		"vector_field": "embedding_text",
		"vector_dim":   dim,
		"distance":     "COSINE",
		"created_at":   "1700000000000",
	}
}
