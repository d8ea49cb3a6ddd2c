package filter

import (
	"strings"

	"github.com/kailas-cloud/semsearch/internal/domain/geo"
)

// Payload fields the builder targets.
const (
	FieldCity     = "city"
	FieldTags     = "tags"
	FieldLocation = "location"
)

// DefaultRadiusMeters is used when coordinates come without a radius.
const DefaultRadiusMeters = 5000.0

// Input is the caller-facing search filter. Every field is optional.
type Input struct {
	City         string   `json:"city,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lon          *float64 `json:"lon,omitempty"`
	RadiusMeters *float64 `json:"radius_m,omitempty"`
}

// Builder turns an Input into a store-agnostic Expression.
type Builder struct {
	DefaultRadius float64
	// OnDrop, when set, is told about silently discarded clauses.
	OnDrop func(field, reason string)
}

// NewBuilder creates a builder with the given default geo radius.
func NewBuilder(defaultRadius float64) *Builder {
	if defaultRadius <= 0 {
		defaultRadius = DefaultRadiusMeters
	}
	return &Builder{DefaultRadius: defaultRadius}
}

// Build composes present fields into conjunctive clauses in the order city, tags, geo.
// A nil or empty input yields an empty expression. Malformed geo input is dropped,
// never rejected, and does not affect the other clauses.
func (b *Builder) Build(in *Input) Expression {
	if in == nil {
		return Expression{}
	}

	var conds []Condition
	if city := strings.TrimSpace(in.City); city != "" {
		if c, err := NewExact(FieldCity, city); err == nil {
			conds = append(conds, c)
		}
	}

	if tags := cleanTags(in.Tags); len(tags) > 0 {
		c, err := NewAnyOf(FieldTags, tags)
		if err != nil {
			b.drop(FieldTags, err.Error())
		} else {
			conds = append(conds, c)
		}
	}

	if c, ok := b.geoClause(in); ok {
		conds = append(conds, c)
	}

	return NewExpression(conds...)
}

func (b *Builder) geoClause(in *Input) (Condition, bool) {
	if in.Lat == nil && in.Lon == nil && in.RadiusMeters == nil {
		return Condition{}, false
	}
	if in.Lat == nil || in.Lon == nil {
		b.drop(FieldLocation, "both lat and lon are required")
		return Condition{}, false
	}

	radius := b.DefaultRadius
	if radius <= 0 {
		radius = DefaultRadiusMeters
	}
	if in.RadiusMeters != nil {
		radius = *in.RadiusMeters
	}

	c, err := NewGeoRadius(FieldLocation, geo.Point{Lat: *in.Lat, Lon: *in.Lon}, radius)
	if err != nil {
		b.drop(FieldLocation, err.Error())
		return Condition{}, false
	}
	return c, true
}

func (b *Builder) drop(field, reason string) {
	if b.OnDrop != nil {
		b.OnDrop(field, reason)
	}
}

// cleanTags trims tags, drops blanks and duplicates, keeping first-seen order.
func cleanTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// SplitTags parses the comma-separated tag list of query strings.
func SplitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return cleanTags(strings.Split(raw, ","))
}
