package filter

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/semsearch/internal/domain/geo"
)

// MaxTags is the maximum number of tag values in one any-of clause.
const MaxTags = 32

// Kind is the type of a filter clause.
type Kind int

// Clause kinds.
const (
	Exact Kind = iota + 1
	AnyOf
	GeoRadius
)

func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case AnyOf:
		return "any_of"
	case GeoRadius:
		return "geo_radius"
	default:
		return "unknown"
	}
}

// Expression is a conjunction of conditions. The zero value matches everything.
type Expression struct {
	conditions []Condition
}

// NewExpression creates an expression from conditions, all of which must hold.
func NewExpression(conds ...Condition) Expression {
	return Expression{conditions: conds}
}

// Conditions returns the clauses in the order they were added.
func (e Expression) Conditions() []Condition { return e.conditions }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.conditions) == 0 }

// Condition is a single filter clause on one payload field.
type Condition struct {
	kind   Kind
	key    string
	values []string
	center geo.Point
	radius float64
}

// NewExact creates an exact match on a tag field.
func NewExact(key, value string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if value == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{kind: Exact, key: key, values: []string{value}}, nil
}

// NewAnyOf creates a clause matching documents holding at least one of values.
func NewAnyOf(key string, values []string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("at least one value is required for key %q", key)
	}
	if len(values) > MaxTags {
		return Condition{}, fmt.Errorf("too many values for key %q (max %d)", key, MaxTags)
	}
	return Condition{kind: AnyOf, key: key, values: values}, nil
}

// NewGeoRadius creates a clause matching points within radiusMeters of center.
func NewGeoRadius(key string, center geo.Point, radiusMeters float64) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if !center.Valid() {
		return Condition{}, fmt.Errorf("coordinates out of range: %v", center)
	}
	if math.IsNaN(radiusMeters) || math.IsInf(radiusMeters, 0) || radiusMeters <= 0 {
		return Condition{}, fmt.Errorf("radius must be a positive finite number, got %v", radiusMeters)
	}
	return Condition{kind: GeoRadius, key: key, center: center, radius: radiusMeters}, nil
}

// Kind returns the clause type.
func (c Condition) Kind() Kind { return c.kind }

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Value returns the match value of an exact clause.
func (c Condition) Value() string {
	if len(c.values) == 0 {
		return ""
	}
	return c.values[0]
}

// Values returns the candidate values of an any-of clause.
func (c Condition) Values() []string { return c.values }

// Center returns the center of a geo clause.
func (c Condition) Center() geo.Point { return c.center }

// RadiusMeters returns the radius of a geo clause.
func (c Condition) RadiusMeters() float64 { return c.radius }
