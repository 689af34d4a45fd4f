// Package postgres implements the tenant connector for PostgreSQL, the
// primary replication target.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sluicedb/sluice/internal/connector"
)

// Connector implements connector.Connector for PostgreSQL databases.
type Connector struct {
	db         *sqlx.DB
	schemaName string
}

// New creates a new PostgreSQL connector with default settings.
func New() connector.Connector {
	return &Connector{schemaName: "public"}
}

// Connect establishes a connection pool to the tenant database and stores
// the schema name for introspection queries.
func (c *Connector) Connect(cfg connector.ConnectionConfig) error {
	db, err := sqlx.Connect("pgx", cfg.DSN)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if cfg.SchemaName != "" {
		c.schemaName = cfg.SchemaName
	}

	c.db = db
	return nil
}

// Disconnect closes the connection pool.
func (c *Connector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (c *Connector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB returns the underlying sqlx.DB connection pool.
func (c *Connector) DB() *sqlx.DB {
	return c.db
}

// DriverName returns the driver identifier for PostgreSQL.
func (c *Connector) DriverName() string { return "postgres" }

// QuoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded double quotes.
func (c *Connector) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ParameterPlaceholder returns a PostgreSQL-style numbered placeholder
// (e.g., $1, $2, $3).
func (c *Connector) ParameterPlaceholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// SupportsUpsert indicates that PostgreSQL supports ON CONFLICT.
func (c *Connector) SupportsUpsert() bool { return true }
