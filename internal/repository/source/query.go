package source

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/semsearch/internal/domain/entity"
)

// DisplayColumns names the optional display columns of a table.
// An empty name selects NULL.
type DisplayColumns struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Phone       string `yaml:"phone"`
	City        string `yaml:"city"`
}

// DefaultDisplayColumns matches the upstream schema.
func DefaultDisplayColumns() DisplayColumns {
	return DisplayColumns{Name: "name", Description: "description", Phone: "phone", City: "city"}
}

// Column order shared by every entity query, so a single scan fits all.
//
//	id, name, description, bio, role, city, phone, embeddingText, lat, lon
const columnCount = 10

func (s *Source) query(t entity.Type) (string, error) {
	q := s.dialect.Quote
	col := func(alias, name string) string {
		if name == "" {
			return "NULL"
		}
		if alias != "" {
			return q(alias + "." + name)
		}
		return q(name)
	}
	null := "NULL"

	var cols []string
	var from, where string

	switch t {
	case entity.Service:
		c := s.cfg.ServiceColumns
		cols = []string{
			q("id"), col("", c.Name), col("", c.Description), null, null,
			col("", c.City), col("", c.Phone), q("embeddingText"), q("locationLat"), q("locationLon"),
		}
		from = q(s.cfg.Tables.Service)
		where = fmt.Sprintf("%s IS NOT NULL AND %s IS NULL", q("embeddingText"), q("deletedAt"))
	case entity.User:
		cols = []string{
			q("id"), q("name"), null, q("bio"), q("role"),
			null, null, null, null, null,
		}
		from = q(s.cfg.Tables.User)
		where = fmt.Sprintf("%s IN ('PROVIDER', 'DELIVERY') AND %s IS NULL", q("role"), q("deletedAt"))
	case entity.Shop:
		c := s.cfg.ShopColumns
		cols = []string{
			q("id"), col("", c.Name), col("", c.Description), null, null,
			col("", c.City), col("", c.Phone), null, q("locationLat"), q("locationLon"),
		}
		from = q(s.cfg.Tables.Shop)
		where = fmt.Sprintf("%s IS NULL", q("deletedAt"))
	case entity.Product:
		cols = []string{
			q("p.id"), q("p.name"), q("p.description"), null, null,
			null, null, q("p.embeddingText"), q("s.locationLat"), q("s.locationLon"),
		}
		from = fmt.Sprintf("%s p JOIN %s s ON %s = %s",
			q(s.cfg.Tables.Product), q(s.cfg.Tables.Shop), q("p.shopId"), q("s.id"))
		where = fmt.Sprintf("%s = %s AND %s IS NULL", q("p.isActive"), s.dialect.True(), q("p.deletedAt"))
	default:
		return "", fmt.Errorf("no source query for entity %q", t)
	}

	return fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(cols, ", "), from, where), nil
}
