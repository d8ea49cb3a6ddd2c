package result

import (
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/geo"
)

// FullView is the projection of entities with display fields.
type FullView struct {
	ID          string     `json:"id"`
	Score       float64    `json:"score"`
	EntityType  string     `json:"entity_type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Phone       string     `json:"phone"`
	City        string     `json:"city"`
	Tags        []string   `json:"tags"`
	Location    *geo.Point `json:"location"`
}

// GenericView is the projection of entities returned by reference.
type GenericView struct {
	ID         string     `json:"id"`
	Score      float64    `json:"score"`
	EntityType string     `json:"entity_type"`
	Location   *geo.Point `json:"location"`
}

// Project renders a hit in the shape of the given projection.
func Project(h Hit, p entity.Projection) any {
	if p == entity.ProjectionFull {
		tags := h.payload.Tags
		if tags == nil {
			tags = []string{}
		}
		return FullView{
			ID:          h.id,
			Score:       h.score,
			EntityType:  string(h.entity),
			Name:        h.payload.Name,
			Description: h.payload.Description,
			Phone:       h.payload.Phone,
			City:        h.payload.City,
			Tags:        tags,
			Location:    h.payload.Location,
		}
	}
	return GenericView{
		ID:         h.id,
		Score:      h.score,
		EntityType: string(h.entity),
		Location:   h.payload.Location,
	}
}

// ProjectAll renders hits in order.
func ProjectAll(hits []Hit, p entity.Projection) []any {
	out := make([]any, len(hits))
	for i, h := range hits {
		out[i] = Project(h, p)
	}
	return out
}
