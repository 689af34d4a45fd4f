package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sluicedb/sluice/internal/schema"
)

// columnRow holds the result of querying information_schema.columns.
type columnRow struct {
	ColumnName string `db:"column_name"`
	DataType   string `db:"data_type"`
	IsNullable string `db:"is_nullable"`
}

// TableNames returns all base table names in the configured schema.
func (c *Connector) TableNames(ctx context.Context) ([]string, error) {
	const query = `SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	var names []string
	if err := c.db.SelectContext(ctx, &names, query, c.schemaName); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

// TableColumns returns the column definitions of a table in ordinal order.
func (c *Connector) TableColumns(ctx context.Context, table string) ([]schema.Column, error) {
	const query = `SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

	var rows []columnRow
	if err := c.db.SelectContext(ctx, &rows, query, c.schemaName, table); err != nil {
		return nil, fmt.Errorf("introspect columns of %s: %w", table, err)
	}

	pk, err := c.PrimaryKey(ctx, table)
	if err != nil {
		return nil, err
	}

	cols := make([]schema.Column, len(rows))
	for i, r := range rows {
		cols[i] = schema.Column{
			Name:       r.ColumnName,
			Type:       abstractType(r.DataType),
			Nullable:   r.IsNullable == "YES",
			PrimaryKey: r.ColumnName == pk,
		}
	}
	return cols, nil
}

// PrimaryKey returns the first primary key column of a table, or empty
// string when the table has no primary key.
func (c *Connector) PrimaryKey(ctx context.Context, table string) (string, error) {
	const query = `SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = $1
			AND tc.table_name = $2
			AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position
		LIMIT 1`

	var pk string
	if err := c.db.GetContext(ctx, &pk, query, c.schemaName, table); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("detect primary key of %s: %w", table, err)
	}
	return pk, nil
}

// abstractType maps a Postgres catalog type to the dialect-neutral schema
// vocabulary. The mapping is coarse on purpose: the replicator only needs to
// know whether a column already exists, not its exact width.
func abstractType(pgType string) string {
	switch strings.ToLower(pgType) {
	case "boolean":
		return schema.TypeBoolean
	case "smallint", "integer", "bigint":
		return schema.TypeBigInt
	case "real", "double precision", "numeric":
		return schema.TypeDouble
	case "timestamp with time zone", "timestamp without time zone", "date":
		return schema.TypeTimestamp
	case "json", "jsonb":
		return schema.TypeJSON
	default:
		return schema.TypeText
	}
}
