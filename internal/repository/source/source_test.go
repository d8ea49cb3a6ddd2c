package source

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/semsearch/internal/domain/entity"
)

const schema = `
CREATE TABLE "Service" (
	id TEXT PRIMARY KEY, name TEXT, description TEXT, phone TEXT, city TEXT,
	embeddingText TEXT, locationLat REAL, locationLon REAL, deletedAt TEXT
);
CREATE TABLE "User" (id TEXT PRIMARY KEY, name TEXT, bio TEXT, role TEXT, deletedAt TEXT);
CREATE TABLE "Shop" (
	id TEXT PRIMARY KEY, name TEXT, description TEXT, city TEXT, phone TEXT,
	locationLat REAL, locationLon REAL, deletedAt TEXT
);
CREATE TABLE "Product" (
	id TEXT PRIMARY KEY, shopId TEXT, name TEXT, description TEXT, embeddingText TEXT,
	isActive INTEGER, deletedAt TEXT
);
CREATE TABLE "tags" (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE "Category" (id INTEGER PRIMARY KEY, slug TEXT);
CREATE TABLE "_ServiceTotags" (A TEXT, B INTEGER);
CREATE TABLE "_CategoryToService" (A INTEGER, B TEXT);

INSERT INTO "Service" VALUES
	('s1', 'Nile Dental', 'teeth cleaning', '+20100', 'Giza', 'dentist giza', 30.01, 31.21, NULL),
	('s2', 'Ghost', NULL, NULL, NULL, NULL, NULL, NULL, NULL),
	('s3', 'Gone', NULL, NULL, NULL, 'deleted', NULL, NULL, '2024-01-01'),
	('s4', 'Zero', NULL, NULL, NULL, 'plumber', 0, 0, NULL);
INSERT INTO "User" VALUES
	('u1', 'Omar', 'fast courier', 'DELIVERY', NULL),
	('u2', 'Mona', NULL, 'CUSTOMER', NULL);
INSERT INTO "Shop" VALUES
	('sh1', 'Fresh Market', 'groceries', 'Tanta', '+20111', 30.78, 31.0, NULL);
INSERT INTO "Product" VALUES
	('p1', 'sh1', 'Olive oil', 'extra virgin', NULL, 1, NULL),
	('p2', 'sh1', 'Old stock', NULL, NULL, 0, NULL);
INSERT INTO "tags" VALUES (1, 'dentist'), (2, 'clinic');
INSERT INTO "Category" VALUES (7, 'health');
INSERT INTO "_ServiceTotags" VALUES ('s1', 1), ('s1', 2), ('s1', 2);
INSERT INTO "_CategoryToService" VALUES (7, 's1');
`

func newTestSource(t *testing.T) (*Source, *observer.ObservedLogs) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// one connection keeps the in-memory database alive
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(schema)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	return New(db, SQLite, Config{}, zap.New(core)), logs
}

func collect(t *testing.T, s *Source, et entity.Type) []Row {
	t.Helper()
	var rows []Row
	err := s.Rows(context.Background(), et, func(r Row) error {
		rows = append(rows, r)
		return nil
	})
	require.NoError(t, err)
	return rows
}

func TestRows_Services(t *testing.T) {
	s, _ := newTestSource(t)

	rows := collect(t, s, entity.Service)
	require.Len(t, rows, 2, "NULL text and deleted rows are excluded")

	first := rows[0]
	assert.Equal(t, "s1", first.ID)
	assert.Equal(t, "dentist giza", first.Fields.EmbeddingText)
	assert.Equal(t, "Nile Dental", first.Fields.Name)
	assert.Equal(t, "+20100", first.Phone)
	require.NotNil(t, first.Location)
	assert.InDelta(t, 30.01, first.Location.Lat, 1e-9)
	assert.ElementsMatch(t, []string{"dentist", "clinic"}, first.Tags)
	assert.Equal(t, []string{"7"}, first.CategoryIDs)
	assert.Equal(t, []string{"health"}, first.CategorySlugs)

	assert.Nil(t, rows[1].Location, "0,0 is treated as unknown")
	assert.Empty(t, rows[1].Tags)
}

func TestRows_LocationOutsideGeoRangeIsUnknown(t *testing.T) {
	s, _ := newTestSource(t)
	_, err := s.db.Exec(`INSERT INTO "Service" VALUES ('s5', 'Polar', NULL, NULL, NULL, 'ice fishing', 88.5, 10, NULL)`)
	require.NoError(t, err)

	rows := collect(t, s, entity.Service)
	var polar *Row
	for i := range rows {
		if rows[i].ID == "s5" {
			polar = &rows[i]
		}
	}
	require.NotNil(t, polar, "the row is still ingested")
	assert.Nil(t, polar.Location, "latitude above the GEO limit falls back to unknown")
}

func TestRows_UsersFilteredByRole(t *testing.T) {
	s, _ := newTestSource(t)

	rows := collect(t, s, entity.User)
	require.Len(t, rows, 1)
	assert.Equal(t, "u1", rows[0].ID)
	assert.Equal(t, "fast courier", rows[0].Fields.Bio)
	assert.Equal(t, "omar fast courier delivery", strings.ToLower(entity.DeriveText(entity.User, rows[0].Fields)))
	assert.Nil(t, rows[0].Location)
}

func TestRows_ShopDisplayColumns(t *testing.T) {
	s, _ := newTestSource(t)

	rows := collect(t, s, entity.Shop)
	require.Len(t, rows, 1)
	assert.Equal(t, "Tanta", rows[0].Fields.City)
	assert.Equal(t, "+20111", rows[0].Phone)
	require.NotNil(t, rows[0].Location)
}

func TestRows_ProductsTakeShopLocation(t *testing.T) {
	s, logs := newTestSource(t)

	rows := collect(t, s, entity.Product)
	require.Len(t, rows, 1, "inactive products are excluded")
	assert.Equal(t, "p1", rows[0].ID)
	require.NotNil(t, rows[0].Location)
	assert.InDelta(t, 30.78, rows[0].Location.Lat, 1e-9)

	// _ProductTotags does not exist in the fixture
	assert.Equal(t, 1, logs.FilterMessage("Relation table unavailable, skipping").Len())
}

func TestRows_CallbackErrorStops(t *testing.T) {
	s, _ := newTestSource(t)
	stop := assert.AnError

	calls := 0
	err := s.Rows(context.Background(), entity.Service, func(Row) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestRows_DisabledRelation(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(schema)
	require.NoError(t, err)

	rel := DefaultRelations()
	rel.ServiceTags = ""
	s := New(db, SQLite, Config{Relations: rel}, zap.NewNop())

	rows := collect(t, s, entity.Service)
	assert.Empty(t, rows[0].Tags)
	assert.Equal(t, []string{"health"}, rows[0].CategorySlugs)
}

func TestQuery_Dialects(t *testing.T) {
	mysql := New(nil, MySQL, Config{}, zap.NewNop())
	q, err := mysql.query(entity.Product)
	require.NoError(t, err)
	assert.Contains(t, q, "FROM `Product` p JOIN `Shop` s ON `p`.`shopId` = `s`.`id`")
	assert.Contains(t, q, "`p`.`isActive` = 1")

	pg := New(nil, Postgres, Config{}, zap.NewNop())
	q, err = pg.query(entity.User)
	require.NoError(t, err)
	assert.Contains(t, q, `FROM "User" WHERE "role" IN ('PROVIDER', 'DELIVERY')`)

	q, err = pg.query(entity.Product)
	require.NoError(t, err)
	assert.Contains(t, q, `"p"."isActive" = TRUE`)
}

func TestQuery_MissingDisplayColumnSelectsNull(t *testing.T) {
	s := New(nil, SQLite, Config{ServiceColumns: DisplayColumns{Name: "title"}}, zap.NewNop())
	q, err := s.query(entity.Service)
	require.NoError(t, err)
	assert.Contains(t, q, `SELECT "id", "title", NULL, NULL, NULL, NULL, NULL, "embeddingText"`)
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{
		"mysql": MySQL, "Postgres": Postgres, "pg": Postgres, "sqlite3": SQLite,
	} {
		got, err := ParseDialect(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDialect("oracle")
	assert.Error(t, err)
}
