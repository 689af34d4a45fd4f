package schema

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"
)

// Infer derives a table shape from a payload. Records may carry partial
// field sets, so the column list is the union of every record's keys and
// each column's type comes from the first non-nil value seen for it; a key
// that never carries a value falls back to text. The type mapping mirrors
// what the upstream integrator produces after JSON decoding: booleans,
// numbers (integral vs. fractional), nested objects/arrays, and text. A
// column named "id" (case-insensitive) becomes the primary key; when no
// such column exists the first column in sorted order is used instead.
//
// Go map iteration order is random, so columns are sorted by name for
// deterministic DDL, with the primary key hoisted to the front.
func Infer(tableName string, records []map[string]interface{}) Table {
	t := Table{Name: tableName}
	if len(records) == 0 {
		return t
	}

	types := make(map[string]string)
	keys := make([]string, 0, len(records[0]))
	hasID := false
	for _, rec := range records {
		for k, v := range rec {
			if _, seen := types[k]; !seen {
				keys = append(keys, k)
				types[k] = ""
				if strings.EqualFold(k, "id") {
					hasID = true
				}
			}
			if types[k] == "" && v != nil {
				types[k] = inferType(v)
			}
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		typ := types[k]
		if typ == "" {
			typ = TypeText
		}
		col := Column{
			Name:     k,
			Type:     typ,
			Nullable: true,
		}
		if hasID {
			col.PrimaryKey = strings.EqualFold(k, "id")
		} else {
			col.PrimaryKey = len(t.Columns) == 0
		}
		if col.PrimaryKey {
			col.Nullable = false
		}
		t.Columns = append(t.Columns, col)
	}

	// Hoist the primary key so generated DDL leads with it.
	for i, c := range t.Columns {
		if c.PrimaryKey && i > 0 {
			t.Columns = append([]Column{c}, append(t.Columns[:i:i], t.Columns[i+1:]...)...)
			break
		}
	}
	return t
}

func inferType(v interface{}) string {
	switch x := v.(type) {
	case bool:
		return TypeBoolean
	case int, int32, int64:
		return TypeBigInt
	case float32:
		return TypeDouble
	case float64:
		// JSON decoding yields float64 for every number; keep whole values
		// as bigint so integrator row IDs survive round trips.
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return TypeBigInt
		}
		return TypeDouble
	case json.Number:
		if _, err := x.Int64(); err == nil {
			return TypeBigInt
		}
		return TypeDouble
	case time.Time:
		return TypeTimestamp
	case map[string]interface{}, []interface{}:
		return TypeJSON
	case string:
		if _, err := time.Parse(time.RFC3339, x); err == nil {
			return TypeTimestamp
		}
		return TypeText
	default:
		return TypeText
	}
}
