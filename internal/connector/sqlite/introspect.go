package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/sluicedb/sluice/internal/schema"
)

// tableInfoRow holds a row from PRAGMA table_info().
type tableInfoRow struct {
	CID       int     `db:"cid"`
	Name      string  `db:"name"`
	Type      string  `db:"type"`
	NotNull   int     `db:"notnull"`
	DfltValue *string `db:"dflt_value"`
	PK        int     `db:"pk"`
}

// TableNames returns all user table names, excluding SQLite internals.
func (c *Connector) TableNames(ctx context.Context) ([]string, error) {
	const query = `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	var names []string
	if err := c.db.SelectContext(ctx, &names, query); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

// TableColumns returns the column definitions of a table.
func (c *Connector) TableColumns(ctx context.Context, table string) ([]schema.Column, error) {
	rows, err := c.tableInfo(ctx, table)
	if err != nil {
		return nil, err
	}

	cols := make([]schema.Column, len(rows))
	for i, r := range rows {
		cols[i] = schema.Column{
			Name:       r.Name,
			Type:       abstractType(r.Type),
			Nullable:   r.NotNull == 0,
			PrimaryKey: r.PK > 0,
		}
	}
	return cols, nil
}

// PrimaryKey returns the first primary key column, or empty string.
func (c *Connector) PrimaryKey(ctx context.Context, table string) (string, error) {
	rows, err := c.tableInfo(ctx, table)
	if err != nil {
		return "", err
	}
	for _, r := range rows {
		if r.PK == 1 {
			return r.Name, nil
		}
	}
	return "", nil
}

func (c *Connector) tableInfo(ctx context.Context, table string) ([]tableInfoRow, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", c.QuoteIdentifier(table))
	var rows []tableInfoRow
	if err := c.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("introspect columns of %s: %w", table, err)
	}
	return rows, nil
}

// abstractType maps a declared SQLite type to the dialect-neutral
// vocabulary. SQLite types are affinities, so the mapping keys off the
// declared name.
func abstractType(declared string) string {
	switch strings.ToUpper(declared) {
	case "BOOLEAN":
		return schema.TypeBoolean
	case "INTEGER", "BIGINT", "INT":
		return schema.TypeBigInt
	case "REAL", "DOUBLE", "FLOAT":
		return schema.TypeDouble
	case "DATETIME", "TIMESTAMP":
		return schema.TypeTimestamp
	case "JSON":
		return schema.TypeJSON
	default:
		return schema.TypeText
	}
}
