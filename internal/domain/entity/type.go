// Package entity defines the searchable entity types and their collection routing.
package entity

import (
	"strings"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// Type is a searchable entity kind.
type Type string

// Entity types known to the gateway.
const (
	Service Type = "service"
	User    Type = "user"
	Shop    Type = "shop"
	Product Type = "product"
)

// All lists entity types in canonical order.
var All = []Type{Service, User, Shop, Product}

var aliases = map[string]Type{
	"service":  Service,
	"services": Service,
	"user":     User,
	"users":    User,
	"shop":     Shop,
	"shops":    Shop,
	"product":  Product,
	"products": Product,
}

// Parse resolves a type name. Plural aliases are accepted.
func Parse(name string) (Type, error) {
	t, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", domain.NewUnknownEntityType(name)
	}
	return t, nil
}

// Plural returns the plural name used as the default collection name and as
// the response key of multi-entity search.
func (t Type) Plural() string { return string(t) + "s" }

// Projection selects which payload fields a search hit exposes.
type Projection int

const (
	// ProjectionGeneric exposes id, score and location.
	ProjectionGeneric Projection = iota
	// ProjectionFull exposes the whole display payload.
	ProjectionFull
)

// DefaultProjection returns the projection of a type: services and shops carry
// display fields, users and products are returned by reference.
func (t Type) DefaultProjection() Projection {
	switch t {
	case Service, Shop:
		return ProjectionFull
	default:
		return ProjectionGeneric
	}
}

// DefaultVectorField returns the hash field holding the embedding of a type.
func (t Type) DefaultVectorField() string {
	if t == Service {
		return "embedding_text"
	}
	return "embedding"
}
