package collection

import (
	"fmt"
	"strconv"
)

// Info is the stored metadata of a collection.
type Info struct {
	Name        string
	EntityType  string
	VectorField string
	VectorDim   int
	Distance    string
	CreatedAt   int64 // unix millis
}

func infoToHash(i Info) map[string]string {
	return map[string]string{
		"name":         i.Name,
		"entity_type":  i.EntityType,
		"vector_field": i.VectorField,
		"vector_dim":   strconv.Itoa(i.VectorDim),
		"distance":     i.Distance,
		"created_at":   strconv.FormatInt(i.CreatedAt, 10),
	}
}

func infoFromHash(m map[string]string) (Info, error) {
	dim, err := strconv.Atoi(m["vector_dim"])
	if err != nil {
		return Info{}, fmt.Errorf("invalid vector_dim: %w", err)
	}
	var createdAt int64
	if s := m["created_at"]; s != "" {
		createdAt, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Info{}, fmt.Errorf("invalid created_at: %w", err)
		}
	}
	return Info{
		Name:        m["name"],
		EntityType:  m["entity_type"],
		VectorField: m["vector_field"],
		VectorDim:   dim,
		Distance:    m["distance"],
		CreatedAt:   createdAt,
	}, nil
}
