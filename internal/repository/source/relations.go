package source

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain/entity"
)

// Relations names the Prisma implicit many-to-many tables. Column A points
// at the model whose name sorts first. An empty name disables the relation.
type Relations struct {
	ServiceTags       string `yaml:"service_tags"`
	ServiceCategories string `yaml:"service_categories"`
	ProductTags       string `yaml:"product_tags"`
	TagTable          string `yaml:"tag_table"`
	CategoryTable     string `yaml:"category_table"`
}

// DefaultRelations matches the upstream Prisma schema.
func DefaultRelations() Relations {
	return Relations{
		ServiceTags:       "_ServiceTotags",
		ServiceCategories: "_CategoryToService",
		ProductTags:       "_ProductTotags",
		TagTable:          "tags",
		CategoryTable:     "Category",
	}
}

// relationSet holds the preloaded relations of one entity type, keyed by entity id.
type relationSet struct {
	tags          map[string][]string
	categoryIDs   map[string][]string
	categorySlugs map[string][]string
}

func (r *relationSet) apply(row *Row) {
	if r == nil {
		return
	}
	row.Tags = r.tags[row.ID]
	row.CategoryIDs = r.categoryIDs[row.ID]
	row.CategorySlugs = r.categorySlugs[row.ID]
}

// loadRelations preloads tags and categories. Failing relation queries
// (usually a missing table) are logged and leave the relation empty.
func (s *Source) loadRelations(ctx context.Context, t entity.Type) *relationSet {
	rel := s.cfg.Relations
	set := &relationSet{
		tags:          map[string][]string{},
		categoryIDs:   map[string][]string{},
		categorySlugs: map[string][]string{},
	}
	q := s.dialect.Quote

	switch t {
	case entity.Service:
		if rel.ServiceTags != "" {
			query := fmt.Sprintf("SELECT j.%s, t.%s FROM %s j JOIN %s t ON j.%s = t.%s",
				q("A"), q("name"), q(rel.ServiceTags), q(rel.TagTable), q("B"), q("id"))
			s.loadPairs(ctx, query, rel.ServiceTags, set.tags, nil)
		}
		if rel.ServiceCategories != "" {
			query := fmt.Sprintf("SELECT j.%s, c.%s, c.%s FROM %s j JOIN %s c ON j.%s = c.%s",
				q("B"), q("id"), q("slug"), q(rel.ServiceCategories), q(rel.CategoryTable), q("A"), q("id"))
			s.loadPairs(ctx, query, rel.ServiceCategories, set.categoryIDs, set.categorySlugs)
		}
	case entity.Product:
		if rel.ProductTags != "" {
			query := fmt.Sprintf("SELECT j.%s, t.%s FROM %s j JOIN %s t ON j.%s = t.%s",
				q("A"), q("name"), q(rel.ProductTags), q(rel.TagTable), q("B"), q("id"))
			s.loadPairs(ctx, query, rel.ProductTags, set.tags, nil)
		}
	default:
		return nil
	}
	return set
}

// loadPairs reads (owner, value[, extra]) rows. extra is nil for two-column queries.
func (s *Source) loadPairs(ctx context.Context, query, table string, values, extra map[string][]string) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.logger.Warn("Relation table unavailable, skipping",
			zap.String("table", table), zap.Error(err))
		return
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var owner, value, second sql.NullString
		dest := []any{&owner, &value}
		if extra != nil {
			dest = append(dest, &second)
		}
		if err := rows.Scan(dest...); err != nil {
			s.logger.Warn("Failed to scan relation row", zap.String("table", table), zap.Error(err))
			continue
		}
		if !owner.Valid || !value.Valid || value.String == "" {
			continue
		}
		values[owner.String] = appendUnique(values[owner.String], value.String)
		if extra != nil && second.Valid && second.String != "" {
			extra[owner.String] = appendUnique(extra[owner.String], second.String)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("Relation scan interrupted", zap.String("table", table), zap.Error(err))
	}
	s.logger.Debug("Relations loaded", zap.String("table", table), zap.Int("rows", n))
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
