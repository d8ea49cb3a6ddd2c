package result

import (
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/geo"
)

// Payload is the stored display data of an entity.
type Payload struct {
	Name          string
	Description   string
	Phone         string
	City          string
	Tags          []string
	CategoryIDs   []string
	CategorySlugs []string
	Location      *geo.Point
}

// Hit is a single search hit. Score is cosine similarity, higher is closer.
type Hit struct {
	id      string
	score   float64
	entity  entity.Type
	payload Payload
}

// New creates a search hit.
func New(id string, score float64, t entity.Type, p Payload) Hit {
	return Hit{id: id, score: score, entity: t, payload: p}
}

// ID returns the entity identifier.
func (h *Hit) ID() string { return h.id }

// Score returns the similarity score.
func (h *Hit) Score() float64 { return h.score }

// Entity returns the entity type.
func (h *Hit) Entity() entity.Type { return h.entity }

// Payload returns the stored display data.
func (h *Hit) Payload() Payload { return h.payload }
