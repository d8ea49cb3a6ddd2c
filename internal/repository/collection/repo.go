package collection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/repository/keyspace"
)

// store is the consumer interface for collections (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	CreateIndex(ctx context.Context, s *db.Schema) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	IndexDocCount(ctx context.Context, name string) (int, error)
}

// IndexConfig holds vector index parameters.
type IndexConfig struct {
	Algorithm   db.VectorAlgorithm
	M           int
	EFConstruct int
}

// Repo manages collection metadata and their FT indexes.
type Repo struct {
	store store
	keys  keyspace.Keyspace
	index IndexConfig
	now   func() time.Time
}

// New creates a collection repository.
func New(s store, keys keyspace.Keyspace) *Repo {
	return &Repo{
		store: s,
		keys:  keys,
		index: IndexConfig{Algorithm: db.VectorHNSW, M: 16, EFConstruct: 200},
		now:   time.Now,
	}
}

// WithIndex configures vector index parameters.
func (r *Repo) WithIndex(cfg IndexConfig) *Repo {
	if cfg.Algorithm != "" {
		r.index.Algorithm = cfg.Algorithm
	}
	if cfg.M > 0 {
		r.index.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.index.EFConstruct = cfg.EFConstruct
	}
	return r
}

// Ensure creates the collection if it is missing. It never destroys data:
// an existing collection with another dimension fails with ErrVectorDimMismatch.
func (r *Repo) Ensure(ctx context.Context, c entity.Collection, dim int) (created bool, err error) {
	info, err := r.Get(ctx, c.Name)
	switch {
	case err == nil:
		if info.VectorDim != dim {
			return false, domain.NewDimMismatch("collection "+c.Name, dim, info.VectorDim)
		}
		exists, err := r.store.IndexExists(ctx, r.keys.Index(c.Name))
		if err != nil {
			return false, fmt.Errorf("check index %s: %w", c.Name, err)
		}
		if exists {
			return false, nil
		}
		// Metadata without index: a previous create was interrupted.
		if err := r.createIndex(ctx, c, dim); err != nil {
			return false, err
		}
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		if err := r.Create(ctx, c, dim); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, err
	}
}

// Create stores metadata then runs FT.CREATE, rolling back the metadata on failure.
// An index that already exists is adopted.
func (r *Repo) Create(ctx context.Context, c entity.Collection, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("create collection %s: vector dimension must be positive", c.Name)
	}

	metaKey := r.keys.Meta(c.Name)
	info := Info{
		Name:        c.Name,
		EntityType:  string(c.Type),
		VectorField: c.VectorField,
		VectorDim:   dim,
		Distance:    db.Distance,
		CreatedAt:   r.now().UnixMilli(),
	}
	if err := r.store.HSet(ctx, metaKey, infoToHash(info)); err != nil {
		return fmt.Errorf("hset collection %s: %w", c.Name, err)
	}

	if err := r.createIndex(ctx, c, dim); err != nil {
		cleanupErr := r.store.Del(ctx, metaKey)
		return errors.Join(err, cleanupErr)
	}
	return nil
}

func (r *Repo) createIndex(ctx context.Context, c entity.Collection, dim int) error {
	def, err := schema(r.keys, c, dim, r.index)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", c.Name, err)
	}
	return nil
}

// Get reads collection metadata.
func (r *Repo) Get(ctx context.Context, name string) (Info, error) {
	m, err := r.store.HGetAll(ctx, r.keys.Meta(name))
	if err != nil {
		return Info{}, fmt.Errorf("hgetall collection %s: %w", name, err)
	}
	if len(m) == 0 {
		return Info{}, domain.ErrNotFound
	}
	return infoFromHash(m)
}

// Drop removes the index together with its documents, then the metadata.
// Missing pieces are skipped.
func (r *Repo) Drop(ctx context.Context, name string) error {
	if err := r.store.DropIndex(ctx, r.keys.Index(name), true); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", name, err)
	}
	if err := r.store.Del(ctx, r.keys.Meta(name)); err != nil {
		return fmt.Errorf("del collection %s: %w", name, err)
	}
	return nil
}

// Recreate drops and creates the collection. Destructive: all documents are lost.
func (r *Repo) Recreate(ctx context.Context, c entity.Collection, dim int) error {
	if err := r.Drop(ctx, c.Name); err != nil {
		return err
	}
	return r.Create(ctx, c, dim)
}

// Count returns the number of indexed documents.
func (r *Repo) Count(ctx context.Context, name string) (int, error) {
	n, err := r.store.IndexDocCount(ctx, r.keys.Index(name))
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return n, nil
}
