package sqlite

import (
	"fmt"
	"strings"

	"github.com/sluicedb/sluice/internal/schema"
)

// typeFor maps the dialect-neutral column type to SQLite DDL. SQLite only
// has storage affinities, so the mapping is about declared intent.
func typeFor(abstract string) string {
	switch abstract {
	case schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeBigInt:
		return "INTEGER"
	case schema.TypeDouble:
		return "REAL"
	case schema.TypeTimestamp:
		return "DATETIME"
	case schema.TypeJSON:
		return "JSON"
	default:
		return "TEXT"
	}
}

// BuildCreateTable renders a CREATE TABLE statement for the inferred shape.
func (c *Connector) BuildCreateTable(t schema.Table) (string, error) {
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("table %s has no columns", t.Name)
	}

	defs := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		def := c.QuoteIdentifier(col.Name) + " " + typeFor(col.Type)
		if !col.Nullable {
			def += " NOT NULL"
		}
		if col.PrimaryKey {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)",
		c.QuoteIdentifier(t.Name), strings.Join(defs, ", ")), nil
}

// BuildAddColumn renders an ALTER TABLE ADD COLUMN for a missing column.
func (c *Connector) BuildAddColumn(table string, col schema.Column) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
		c.QuoteIdentifier(table), c.QuoteIdentifier(col.Name), typeFor(col.Type)), nil
}

// BuildUpsert renders a single-row parameterized INSERT with ON CONFLICT
// resolution on the primary key. With no primary key the statement is a
// plain INSERT.
func (c *Connector) BuildUpsert(table string, columns []string, pk string) (string, error) {
	if len(columns) == 0 {
		return "", fmt.Errorf("upsert into %s: no columns", table)
	}

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = c.QuoteIdentifier(col)
		placeholders[i] = c.ParameterPlaceholder(i + 1)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)",
		c.QuoteIdentifier(table),
		strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	if pk == "" {
		return b.String(), nil
	}

	var updates []string
	for _, col := range columns {
		if col == pk {
			continue
		}
		q := c.QuoteIdentifier(col)
		updates = append(updates, q+" = excluded."+q)
	}

	if len(updates) == 0 {
		fmt.Fprintf(&b, " ON CONFLICT (%s) DO NOTHING", c.QuoteIdentifier(pk))
	} else {
		fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s",
			c.QuoteIdentifier(pk), strings.Join(updates, ", "))
	}
	return b.String(), nil
}
