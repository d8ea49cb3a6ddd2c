// Package source streams ingestion rows out of the relational database
// behind the marketplace. Queries are read-only.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // mysql driver
	_ "github.com/lib/pq"               // postgres driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/geo"
)

// Tables names the entity tables.
type Tables struct {
	Service string `yaml:"service"`
	User    string `yaml:"user"`
	Shop    string `yaml:"shop"`
	Product string `yaml:"product"`
}

// Config configures the source.
type Config struct {
	Driver         string
	DSN            string
	Tables         Tables
	ServiceColumns DisplayColumns
	ShopColumns    DisplayColumns
	Relations      Relations
}

func (c *Config) applyDefaults() {
	if c.Tables.Service == "" {
		c.Tables.Service = "Service"
	}
	if c.Tables.User == "" {
		c.Tables.User = "User"
	}
	if c.Tables.Shop == "" {
		c.Tables.Shop = "Shop"
	}
	if c.Tables.Product == "" {
		c.Tables.Product = "Product"
	}
	if c.ServiceColumns == (DisplayColumns{}) {
		c.ServiceColumns = DefaultDisplayColumns()
	}
	if c.ShopColumns == (DisplayColumns{}) {
		c.ShopColumns = DefaultDisplayColumns()
	}
	if c.Relations == (Relations{}) {
		c.Relations = DefaultRelations()
	}
	if c.Relations.TagTable == "" {
		c.Relations.TagTable = "tags"
	}
	if c.Relations.CategoryTable == "" {
		c.Relations.CategoryTable = "Category"
	}
}

// Row is one source entity.
type Row struct {
	ID            string
	Entity        entity.Type
	Fields        entity.Row
	Phone         string
	Location      *geo.Point
	Tags          []string
	CategoryIDs   []string
	CategorySlugs []string
}

// Source reads entity rows from a SQL database.
type Source struct {
	db      *sql.DB
	dialect Dialect
	cfg     Config
	logger  *zap.Logger
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Source, error) {
	d, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s source: %w", d, err)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s source: %w", d, err)
	}
	return New(db, d, cfg, logger), nil
}

// New wraps an open database.
func New(db *sql.DB, d Dialect, cfg Config, logger *zap.Logger) *Source {
	cfg.applyDefaults()
	return &Source{db: db, dialect: d, cfg: cfg, logger: logger}
}

// Close closes the database.
func (s *Source) Close() error {
	return s.db.Close()
}

// Rows streams every indexable row of an entity type to fn in source order.
// An error from fn stops the scan and is returned as is.
func (s *Source) Rows(ctx context.Context, t entity.Type, fn func(Row) error) error {
	query, err := s.query(t)
	if err != nil {
		return err
	}
	relations := s.loadRelations(ctx, t)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query %s rows: %w", t, err)
	}
	defer rows.Close()

	for rows.Next() {
		row, err := scanRow(rows, t)
		if err != nil {
			return fmt.Errorf("scan %s row: %w", t, err)
		}
		relations.apply(&row)
		if err := fn(row); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s rows: %w", t, err)
	}
	return nil
}

func scanRow(rows *sql.Rows, t entity.Type) (Row, error) {
	var (
		id, name, desc, bio, role, city, phone, text sql.NullString
		lat, lon                                     sql.NullFloat64
	)
	dest := [columnCount]any{&id, &name, &desc, &bio, &role, &city, &phone, &text, &lat, &lon}
	if err := rows.Scan(dest[:]...); err != nil {
		return Row{}, err
	}

	row := Row{
		ID:     id.String,
		Entity: t,
		Fields: entity.Row{
			Name:          name.String,
			Description:   desc.String,
			Bio:           bio.String,
			Role:          role.String,
			City:          city.String,
			EmbeddingText: text.String,
		},
		Phone: phone.String,
	}
	if lat.Valid && lon.Valid {
		p := geo.Point{Lat: lat.Float64, Lon: lon.Float64}
		// 0,0 means "unknown" upstream
		if p.Valid() && (p.Lat != 0 || p.Lon != 0) {
			row.Location = &p
		}
	}
	return row, nil
}
