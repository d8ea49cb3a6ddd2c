package ingest

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/repository/lock"
	"github.com/kailas-cloud/semsearch/internal/repository/point"
	"github.com/kailas-cloud/semsearch/internal/repository/source"
)

// Source streams entity rows from the system of record.
type Source interface {
	Rows(ctx context.Context, t entity.Type, fn func(source.Row) error) error
}

// Collections prepares vector collections.
type Collections interface {
	Ensure(ctx context.Context, c entity.Collection, dim int) (bool, error)
	Recreate(ctx context.Context, c entity.Collection, dim int) error
	Count(ctx context.Context, name string) (int, error)
}

// Writer persists embedded records.
type Writer interface {
	UpsertBatch(ctx context.Context, c entity.Collection, recs []point.Record) []error
}

// Locker hands out the single-writer lock of a collection.
type Locker interface {
	Acquire(ctx context.Context, collection string) (*lock.Lease, error)
}

// Router maps entity types to collections.
type Router interface {
	Get(t entity.Type) (entity.Collection, error)
}
