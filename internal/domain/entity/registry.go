package entity

import (
	"fmt"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// Collection binds an entity type to its physical collection.
type Collection struct {
	Type        Type
	Name        string
	VectorField string
	Projection  Projection
}

// Override customizes the collection of one type.
type Override struct {
	Collection  string
	VectorField string
}

// Registry is the immutable entity type to collection mapping.
// Safe for concurrent reads.
type Registry struct {
	byType map[Type]Collection
}

// NewRegistry builds the registry for every known type. Overrides keyed by
// anything other than a known type name are rejected.
func NewRegistry(overrides map[string]Override) (*Registry, error) {
	r := &Registry{byType: make(map[Type]Collection, len(All))}
	for _, t := range All {
		r.byType[t] = Collection{
			Type:        t,
			Name:        t.Plural(),
			VectorField: t.DefaultVectorField(),
			Projection:  t.DefaultProjection(),
		}
	}

	for name, o := range overrides {
		t, err := Parse(name)
		if err != nil {
			return nil, fmt.Errorf("entities: %w", err)
		}
		c := r.byType[t]
		if o.Collection != "" {
			c.Name = o.Collection
		}
		if o.VectorField != "" {
			c.VectorField = o.VectorField
		}
		r.byType[t] = c
	}

	seen := make(map[string]Type, len(r.byType))
	for _, t := range All {
		name := r.byType[t].Name
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("entities: %s and %s share collection %q", prev, t, name)
		}
		seen[name] = t
	}
	return r, nil
}

// Resolve maps a type name (singular or plural) to its collection.
// There is no fallback: unknown names fail with ErrUnknownEntityType.
func (r *Registry) Resolve(name string) (Collection, error) {
	t, err := Parse(name)
	if err != nil {
		return Collection{}, err
	}
	return r.Get(t)
}

// Get returns the collection of a parsed type.
func (r *Registry) Get(t Type) (Collection, error) {
	c, ok := r.byType[t]
	if !ok {
		return Collection{}, domain.NewUnknownEntityType(string(t))
	}
	return c, nil
}

// Collections lists all collections in canonical type order.
func (r *Registry) Collections() []Collection {
	out := make([]Collection, 0, len(r.byType))
	for _, t := range All {
		if c, ok := r.byType[t]; ok {
			out = append(out, c)
		}
	}
	return out
}
