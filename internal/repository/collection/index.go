package collection

import (
	"fmt"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/repository/keyspace"
	"github.com/kailas-cloud/semsearch/internal/repository/point"
)

// schema describes the FT index of an entity collection. Every point hash
// carries the same attributes, so one layout serves all entity types.
func schema(keys keyspace.Keyspace, c entity.Collection, dim int, cfg IndexConfig) (*db.Schema, error) {
	if c.VectorField == "" {
		return nil, fmt.Errorf("collection %s has no vector field", c.Name)
	}

	return db.NewSchema(keys.Index(c.Name), keys.DocPrefix(c.Name)).
		Tag(point.FieldID, point.FieldEntityType, point.FieldCity).
		TagList(point.FieldTags, point.ListSeparator, false).
		TagList(point.FieldCategoryIDs, point.ListSeparator, true).
		TagList(point.FieldCategorySlugs, point.ListSeparator, false).
		Geo(point.FieldLocation).
		Numeric(point.FieldIngestedAt).
		Text(point.FieldText).
		Vector(c.VectorField, db.VectorSpec{
			Algorithm:   cfg.Algorithm,
			Dim:         dim,
			M:           cfg.M,
			EFConstruct: cfg.EFConstruct,
		}).
		Build()
}
