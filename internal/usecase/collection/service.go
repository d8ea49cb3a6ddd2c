package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
)

// Status describes one registered collection as the store sees it.
type Status struct {
	Entity     entity.Type
	Collection string
	Exists     bool
	VectorDim  int
	Docs       int
	CreatedAt  int64
}

// Service inspects the collections behind the entity registry.
type Service struct {
	repo Repository
}

// New creates a collection service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// VerifyDimensions checks every existing collection against the probed
// dimension. Missing collections are fine; ingestion creates them.
// All mismatches are reported together.
func (s *Service) VerifyDimensions(ctx context.Context, cols []entity.Collection, dim int) error {
	var errs []error
	for _, c := range cols {
		info, err := s.repo.Get(ctx, c.Name)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("get collection %s: %w", c.Name, err)
		}
		if info.VectorDim != dim {
			errs = append(errs, domain.NewDimMismatch("collection "+c.Name, dim, info.VectorDim))
		}
	}
	return errors.Join(errs...)
}

// Describe reports the state of each collection in the given order.
func (s *Service) Describe(ctx context.Context, cols []entity.Collection) ([]Status, error) {
	out := make([]Status, 0, len(cols))
	for _, c := range cols {
		st := Status{Entity: c.Type, Collection: c.Name}

		info, err := s.repo.Get(ctx, c.Name)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			out = append(out, st)
			continue
		case err != nil:
			return nil, fmt.Errorf("get collection %s: %w", c.Name, err)
		}
		st.Exists = true
		st.VectorDim = info.VectorDim
		st.CreatedAt = info.CreatedAt

		n, err := s.repo.Count(ctx, c.Name)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("count collection %s: %w", c.Name, err)
		}
		st.Docs = n
		out = append(out, st)
	}
	return out, nil
}
