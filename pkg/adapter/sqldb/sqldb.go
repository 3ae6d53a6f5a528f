// Package sqldb provides a gateway whose relations are tables of a SQL
// database.
//
// Queries are built with squirrel. Three drivers are registered: "sqlite"
// (modernc.org/sqlite), "pgx" (PostgreSQL) and "mysql":
//
//	gw, err := sqldb.Open(ctx, "sqlite", "file:app.db")
//	users := gw.Relation("users")
//	rows, err := relation.ToRows(ctx, users.Restrict(map[string]any{"name": "Jane"}))
package sqldb

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql" // MySQL driver.
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver.
	_ "modernc.org/sqlite"             // SQLite driver.

	errs "github.com/matzehuels/relgraph/pkg/errors"
	"github.com/matzehuels/relgraph/pkg/relation"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
	DriverMySQL    = "mysql"
)

// Gateway owns a database handle and the methods and mappers defined on
// relations over it.
type Gateway struct {
	db     *sql.DB
	driver string
	stbl   sq.StatementBuilderType

	*relation.Catalog[*Relation]
}

// Open connects to dsn with driver and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*Gateway, error) {
	if _, err := placeholder(driver); err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "open %s database", driver)
	}
	if driver == DriverSQLite && strings.Contains(dsn, ":memory:") {
		// Every connection to an in-memory SQLite database sees its own database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "connect to %s database", driver)
	}
	return New(db, driver)
}

// New wraps an existing handle. driver selects the placeholder format.
func New(db *sql.DB, driver string) (*Gateway, error) {
	ph, err := placeholder(driver)
	if err != nil {
		return nil, err
	}
	return &Gateway{
		db:      db,
		driver:  driver,
		stbl:    sq.StatementBuilder.PlaceholderFormat(ph).RunWith(db),
		Catalog: relation.NewCatalog(builtins),
	}, nil
}

func placeholder(driver string) (sq.PlaceholderFormat, error) {
	switch driver {
	case DriverSQLite, DriverMySQL:
		return sq.Question, nil
	case DriverPostgres:
		return sq.Dollar, nil
	}
	return nil, errs.New(errs.ErrCodeInvalidConfig, "unsupported sql driver %q (want sqlite, pgx or mysql)", driver)
}

// DB returns the underlying handle.
func (g *Gateway) DB() *sql.DB { return g.db }

// Driver returns the driver name.
func (g *Gateway) Driver() string { return g.driver }

// Close closes the database handle.
func (g *Gateway) Close() error { return g.db.Close() }

// Relation returns a relation over the table of the same name.
func (g *Gateway) Relation(table string) *Relation { return g.View(table, table) }

// View returns a relation called name over table.
func (g *Gateway) View(name, table string) *Relation {
	return &Relation{gw: g, name: name, table: table}
}

var builtins = relation.Builtins[*Relation]()
