package mysql

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
	ColumnName string `db:"COLUMN_NAME"`
	DataType   string `db:"DATA_TYPE"`
	IsNullable string `db:"IS_NULLABLE"`
	ColumnKey  string `db:"COLUMN_KEY"`
}

// TableNames returns all base table names in the current database.
func (c *Connector) TableNames(ctx context.Context) ([]string, error) {
	const query = `SELECT table_name FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	var names []string
	if err := c.db.SelectContext(ctx, &names, query); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

// TableColumns returns the column definitions of a table in ordinal order.
func (c *Connector) TableColumns(ctx context.Context, table string) ([]schema.Column, error) {
	const query = `SELECT column_name AS COLUMN_NAME,
			data_type AS DATA_TYPE,
			is_nullable AS IS_NULLABLE,
			column_key AS COLUMN_KEY
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`

	var rows []columnRow
	if err := c.db.SelectContext(ctx, &rows, query, table); err != nil {
		return nil, fmt.Errorf("introspect columns of %s: %w", table, err)
	}

	cols := make([]schema.Column, len(rows))
	for i, r := range rows {
		cols[i] = schema.Column{
			Name:       r.ColumnName,
			Type:       abstractType(r.DataType),
			Nullable:   r.IsNullable == "YES",
			PrimaryKey: r.ColumnKey == "PRI",
		}
	}
	return cols, nil
}

// PrimaryKey returns the first primary key column of a table, or empty
// string when the table has no primary key.
func (c *Connector) PrimaryKey(ctx context.Context, table string) (string, error) {
	const query = `SELECT column_name FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE()
			AND table_name = ?
			AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
		LIMIT 1`

	var pk string
	if err := c.db.GetContext(ctx, &pk, query, table); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("detect primary key of %s: %w", table, err)
	}
	return pk, nil
}

// abstractType maps a MySQL catalog type to the dialect-neutral schema
// vocabulary.
func abstractType(myType string) string {
	switch strings.ToLower(myType) {
	case "tinyint", "bool", "boolean":
		return schema.TypeBoolean
	case "smallint", "mediumint", "int", "bigint":
		return schema.TypeBigInt
	case "float", "double", "decimal":
		return schema.TypeDouble
	case "datetime", "timestamp", "date":
		return schema.TypeTimestamp
	case "json":
		return schema.TypeJSON
	default:
		return schema.TypeText
	}
}
