// Package schema describes replicated table shapes and infers them from
// integrator payloads. Column types are dialect-neutral; each connector maps
// them to its engine's DDL vocabulary.
package schema

// Dialect-neutral column types.
const (
	TypeBoolean   = "boolean"
	TypeBigInt    = "bigint"
	TypeDouble    = "double"
	TypeTimestamp = "timestamp"
	TypeText      = "text"
	TypeJSON      = "json"
)

// Column describes one column of a replicated table.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
}

// Table describes the shape of a replicated table.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// PrimaryKey returns the name of the primary key column, or empty string if
// the table has none.
func (t Table) PrimaryKey() string {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c.Name
		}
	}
	return ""
}

// ColumnNames returns the column names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the column with the given name, if present.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
