// Package mssql implements the tenant connector for Microsoft SQL Server
// replication targets.
package mssql

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/sluicedb/sluice/internal/connector"
)

// Connector implements connector.Connector for SQL Server databases.
type Connector struct {
	db         *sqlx.DB
	schemaName string
}

// New creates a new SQL Server connector with default settings.
func New() connector.Connector {
	return &Connector{schemaName: "dbo"}
}

// Connect establishes a connection pool to the tenant database and stores
// the schema name for introspection queries.
func (c *Connector) Connect(cfg connector.ConnectionConfig) error {
	db, err := sqlx.Connect("sqlserver", cfg.DSN)
	if err != nil {
		return fmt.Errorf("mssql connect: %w", err)
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

// DriverName returns the driver identifier for SQL Server.
func (c *Connector) DriverName() string { return "mssql" }

// QuoteIdentifier wraps a SQL identifier in brackets, escaping any
// embedded closing brackets.
func (c *Connector) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// ParameterPlaceholder returns a SQL Server-style named placeholder
// (e.g., @p1, @p2, @p3).
func (c *Connector) ParameterPlaceholder(index int) string {
	return fmt.Sprintf("@p%d", index)
}

// SupportsUpsert indicates that SQL Server upserts via MERGE.
func (c *Connector) SupportsUpsert() bool { return true }
