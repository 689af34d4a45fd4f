// Package sqlite implements the tenant connector for SQLite. Used for
// embedded deployments and as the in-memory engine behind the test suite.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "modernc.org/sqlite"

	"github.com/sluicedb/sluice/internal/connector"
)

// Connector implements connector.Connector for SQLite databases.
type Connector struct {
	db *sqlx.DB
}

// New creates a new SQLite connector.
func New() connector.Connector {
	return &Connector{}
}

// Connect opens the SQLite database file named by the DSN, or an in-memory
// database for ":memory:". Query parameters like ?_journal_mode=WAL are
// passed through to the driver.
func (c *Connector) Connect(cfg connector.ConnectionConfig) error {
	db, err := sqlx.Connect("sqlite", cfg.DSN)
	if err != nil {
		return fmt.Errorf("sqlite connect: %w", err)
	}

	// SQLite doesn't support concurrent writers.
	db.SetMaxOpenConns(1)

	c.db = db
	return nil
}

// Disconnect closes the database.
func (c *Connector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database is reachable.
func (c *Connector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB returns the underlying sqlx.DB.
func (c *Connector) DB() *sqlx.DB {
	return c.db
}

// DriverName returns the driver identifier for SQLite.
func (c *Connector) DriverName() string { return "sqlite" }

// QuoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded double quotes.
func (c *Connector) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ParameterPlaceholder returns SQLite's positional placeholder.
func (c *Connector) ParameterPlaceholder(index int) string {
	return "?"
}

// SupportsUpsert indicates that SQLite supports ON CONFLICT.
func (c *Connector) SupportsUpsert() bool { return true }
