package db

import (
	"errors"
	"fmt"
	"strings"
)

// FieldKind is the FT.CREATE attribute type of a schema field.
type FieldKind string

// Field kinds used by collection indexes.
const (
	KindTag     FieldKind = "TAG"
	KindText    FieldKind = "TEXT"
	KindNumeric FieldKind = "NUMERIC"
	KindGeo     FieldKind = "GEO"
	KindVector  FieldKind = "VECTOR"
)

// VectorAlgorithm selects the ANN structure behind a vector field.
type VectorAlgorithm string

// Supported vector algorithms.
const (
	VectorHNSW VectorAlgorithm = "HNSW"
	VectorFlat VectorAlgorithm = "FLAT"
)

// Distance is the only metric collections are created with. Search scores
// are derived from it as 1 - distance.
const Distance = "COSINE"

// VectorSpec sizes the FLOAT32 vector attribute of an index.
type VectorSpec struct {
	Algorithm   VectorAlgorithm
	Dim         int
	M           int // HNSW only
	EFConstruct int // HNSW only
}

// Field is one SCHEMA entry. Separator and CaseSensitive apply to
// multi-valued tags, Vector to the vector attribute.
type Field struct {
	Name          string
	Kind          FieldKind
	Separator     string
	CaseSensitive bool
	Vector        VectorSpec
}

// Schema is an FT index over the hashes stored under Prefix.
type Schema struct {
	Index  string
	Prefix string
	Fields []Field
}

// VectorField returns the vector attribute of the schema.
func (s *Schema) VectorField() (Field, bool) {
	for _, f := range s.Fields {
		if f.Kind == KindVector {
			return f, true
		}
	}
	return Field{}, false
}

// Validate requires a well-formed index name, a key prefix, unique field
// names and exactly one vector attribute with a positive dimension.
func (s *Schema) Validate() error {
	if s.Index == "" {
		return errors.New("index name is required")
	}
	if strings.ContainsFunc(s.Index, invalidNameRune) {
		return fmt.Errorf("index name %q contains invalid characters", s.Index)
	}
	if s.Prefix == "" {
		return errors.New("key prefix is required")
	}

	seen := make(map[string]struct{}, len(s.Fields))
	vectors := 0
	for i, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}

		switch f.Kind {
		case KindTag, KindText, KindNumeric, KindGeo:
		case KindVector:
			vectors++
			if err := f.Vector.validate(); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		default:
			return fmt.Errorf("field %q: unknown kind %q", f.Name, f.Kind)
		}
	}
	if vectors != 1 {
		return fmt.Errorf("exactly one vector field is required, got %d", vectors)
	}
	return nil
}

func (v VectorSpec) validate() error {
	if v.Dim <= 0 {
		return fmt.Errorf("vector dimension must be positive, got %d", v.Dim)
	}
	switch v.Algorithm {
	case VectorHNSW, VectorFlat:
		return nil
	default:
		return fmt.Errorf("unknown vector algorithm %q", v.Algorithm)
	}
}

func invalidNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case r == '_', r == ':', r == '-':
		return false
	}
	return true
}

// SchemaBuilder appends fields in SCHEMA order.
type SchemaBuilder struct {
	s Schema
}

// NewSchema starts a schema for index over the hashes under prefix.
func NewSchema(index, prefix string) *SchemaBuilder {
	return &SchemaBuilder{s: Schema{Index: index, Prefix: prefix}}
}

func (b *SchemaBuilder) add(f Field) *SchemaBuilder {
	b.s.Fields = append(b.s.Fields, f)
	return b
}

// Tag adds single-valued, case-folded TAG fields.
func (b *SchemaBuilder) Tag(names ...string) *SchemaBuilder {
	for _, n := range names {
		b.add(Field{Name: n, Kind: KindTag})
	}
	return b
}

// TagList adds a TAG field whose value is a sep-joined list.
func (b *SchemaBuilder) TagList(name, sep string, caseSensitive bool) *SchemaBuilder {
	return b.add(Field{Name: name, Kind: KindTag, Separator: sep, CaseSensitive: caseSensitive})
}

// Text adds a full-text field.
func (b *SchemaBuilder) Text(name string) *SchemaBuilder {
	return b.add(Field{Name: name, Kind: KindText})
}

// Numeric adds a sortable number field.
func (b *SchemaBuilder) Numeric(name string) *SchemaBuilder {
	return b.add(Field{Name: name, Kind: KindNumeric})
}

// Geo adds a point field stored as "lon,lat".
func (b *SchemaBuilder) Geo(name string) *SchemaBuilder {
	return b.add(Field{Name: name, Kind: KindGeo})
}

// Vector adds the vector attribute. An empty algorithm means HNSW.
func (b *SchemaBuilder) Vector(name string, spec VectorSpec) *SchemaBuilder {
	if spec.Algorithm == "" {
		spec.Algorithm = VectorHNSW
	}
	return b.add(Field{Name: name, Kind: KindVector, Vector: spec})
}

// Build validates and returns the schema.
func (b *SchemaBuilder) Build() (*Schema, error) {
	s := b.s
	s.Fields = append([]Field(nil), b.s.Fields...)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
