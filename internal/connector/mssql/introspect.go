package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sluicedb/sluice/internal/schema"
)

// columnRow holds the result of querying INFORMATION_SCHEMA.COLUMNS.
type columnRow struct {
	ColumnName string `db:"column_name"`
	DataType   string `db:"data_type"`
	IsNullable string `db:"is_nullable"`
}

// TableNames returns all base table names in the configured schema.
func (c *Connector) TableNames(ctx context.Context) ([]string, error) {
	const query = `SELECT table_name FROM INFORMATION_SCHEMA.TABLES
		WHERE table_schema = @p1 AND table_type = 'BASE TABLE'
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
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE table_schema = @p1 AND table_name = @p2
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
	const query = `SELECT TOP 1 kcu.column_name
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = @p1
			AND tc.table_name = @p2
			AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position`

	var pk string
	if err := c.db.GetContext(ctx, &pk, query, c.schemaName, table); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("detect primary key of %s: %w", table, err)
	}
	return pk, nil
}

// abstractType maps a SQL Server catalog type to the dialect-neutral schema
// vocabulary.
func abstractType(msType string) string {
	switch strings.ToLower(msType) {
	case "bit":
		return schema.TypeBoolean
	case "tinyint", "smallint", "int", "bigint":
		return schema.TypeBigInt
	case "real", "float", "decimal", "numeric":
		return schema.TypeDouble
	case "datetime", "datetime2", "datetimeoffset", "date", "smalldatetime":
		return schema.TypeTimestamp
	default:
		return schema.TypeText
	}
}
