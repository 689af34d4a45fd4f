package mssql

import (
	"fmt"
	"strings"

	"github.com/sluicedb/sluice/internal/schema"
)

// typeFor maps the dialect-neutral column type to SQL Server DDL. Text
// primary keys get NVARCHAR(450), the widest key SQL Server can index.
func typeFor(abstract string, primaryKey bool) string {
	switch abstract {
	case schema.TypeBoolean:
		return "BIT"
	case schema.TypeBigInt:
		return "BIGINT"
	case schema.TypeDouble:
		return "FLOAT"
	case schema.TypeTimestamp:
		return "DATETIME2"
	case schema.TypeJSON:
		return "NVARCHAR(MAX)"
	default:
		if primaryKey {
			return "NVARCHAR(450)"
		}
		return "NVARCHAR(MAX)"
	}
}

// BuildCreateTable renders a CREATE TABLE statement for the inferred shape.
func (c *Connector) BuildCreateTable(t schema.Table) (string, error) {
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("table %s has no columns", t.Name)
	}

	defs := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		def := c.QuoteIdentifier(col.Name) + " " + typeFor(col.Type, col.PrimaryKey)
		if !col.Nullable {
			def += " NOT NULL"
		}
		if col.PrimaryKey {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}

	return fmt.Sprintf("CREATE TABLE %s.%s (%s)",
		c.QuoteIdentifier(c.schemaName), c.QuoteIdentifier(t.Name),
		strings.Join(defs, ", ")), nil
}

// BuildAddColumn renders an ALTER TABLE ADD for a missing column. SQL
// Server omits the COLUMN keyword.
func (c *Connector) BuildAddColumn(table string, col schema.Column) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s.%s ADD %s %s",
		c.QuoteIdentifier(c.schemaName), c.QuoteIdentifier(table),
		c.QuoteIdentifier(col.Name), typeFor(col.Type, col.PrimaryKey)), nil
}

// BuildUpsert renders a single-row parameterized MERGE keyed on the primary
// key. With no primary key the statement is a plain INSERT.
func (c *Connector) BuildUpsert(table string, columns []string, pk string) (string, error) {
	if len(columns) == 0 {
		return "", fmt.Errorf("upsert into %s: no columns", table)
	}

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	sourceCols := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = c.QuoteIdentifier(col)
		placeholders[i] = c.ParameterPlaceholder(i + 1)
		sourceCols[i] = placeholders[i] + " AS " + quoted[i]
	}

	target := c.QuoteIdentifier(c.schemaName) + "." + c.QuoteIdentifier(table)

	if pk == "" {
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			target, strings.Join(quoted, ", "), strings.Join(placeholders, ", ")), nil
	}

	insertVals := make([]string, len(columns))
	for i, q := range quoted {
		insertVals[i] = "src." + q
	}

	var updates []string
	for _, col := range columns {
		if col == pk {
			continue
		}
		q := c.QuoteIdentifier(col)
		updates = append(updates, "tgt."+q+" = src."+q)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MERGE %s AS tgt USING (SELECT %s) AS src ON tgt.%s = src.%s",
		target, strings.Join(sourceCols, ", "),
		c.QuoteIdentifier(pk), c.QuoteIdentifier(pk))
	if len(updates) > 0 {
		fmt.Fprintf(&b, " WHEN MATCHED THEN UPDATE SET %s", strings.Join(updates, ", "))
	}
	fmt.Fprintf(&b, " WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s);",
		strings.Join(quoted, ", "), strings.Join(insertVals, ", "))
	return b.String(), nil
}
