package collection

import (
	"context"

	repocol "github.com/kailas-cloud/semsearch/internal/repository/collection"
)

// Repository defines the storage contract for collection metadata.
type Repository interface {
	Get(ctx context.Context, name string) (repocol.Info, error)
	Count(ctx context.Context, name string) (int, error)
}
