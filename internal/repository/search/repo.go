package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
	"github.com/kailas-cloud/semsearch/internal/repository/keyspace"
	"github.com/kailas-cloud/semsearch/internal/repository/point"
	"github.com/kailas-cloud/semsearch/internal/retry"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store store
	keys  keyspace.Keyspace
}

// New creates a search repository.
func New(s store, keys keyspace.Keyspace) *Repo {
	return &Repo{store: s, keys: keys}
}

// SearchKNN performs a top-k similarity search on a collection with filter pre-filtering.
// Hits keep the store's ranking order. Any store failure is ErrBackendUnavailable;
// a query the store refused is additionally marked permanent so callers do not resend it.
func (r *Repo) SearchKNN(
	ctx context.Context, c entity.Collection,
	vector []float32, filters filter.Expression, topK int,
) ([]result.Hit, error) {
	q := &db.KNNQuery{
		IndexName:    r.keys.Index(c.Name),
		VectorField:  c.VectorField,
		Filters:      filters,
		Vector:       vector,
		K:            topK,
		ReturnFields: point.PayloadFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		err = fmt.Errorf("search knn %s: %w: %w", c.Name, domain.ErrBackendUnavailable, err)
		if errors.Is(err, db.ErrQueryRejected) {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}

	return r.parseKNNResults(sr, c), nil
}

// parseKNNResults converts db.SearchResult into hits.
func (r *Repo) parseKNNResults(sr *db.SearchResult, c entity.Collection) []result.Hit {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	hits := make([]result.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := entry.Fields[point.FieldID]
		if id == "" {
			id = r.keys.DocID(c.Name, entry.Key)
		}
		hits = append(hits, result.New(id, entry.Score, c.Type, point.DecodePayload(entry.Fields)))
	}
	return hits
}
