package schema

import (
	"testing"
	"time"
)

func TestInferColumnTypes(t *testing.T) {
	table := Infer("readings", []map[string]interface{}{
		{
			"id":       "r1",
			"active":   true,
			"count":    float64(42),
			"ratio":    3.14,
			"taken_at": "2024-06-01T12:00:00Z",
			"meta":     map[string]interface{}{"a": 1},
			"tags":     []interface{}{"x"},
			"note":     "free text",
		},
	})

	want := map[string]string{
		"id":       TypeText,
		"active":   TypeBoolean,
		"count":    TypeBigInt,
		"ratio":    TypeDouble,
		"taken_at": TypeTimestamp,
		"meta":     TypeJSON,
		"tags":     TypeJSON,
		"note":     TypeText,
	}
	if len(table.Columns) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(table.Columns))
	}
	for _, col := range table.Columns {
		if col.Type != want[col.Name] {
			t.Errorf("column %s: got %s, want %s", col.Name, col.Type, want[col.Name])
		}
	}
}

func TestInferUnionsKeysAcrossRecords(t *testing.T) {
	table := Infer("readings", []map[string]interface{}{
		{"id": "r1", "name": "press"},
		{"id": "r2", "ratio": 3.14},
		{"id": "r3", "flagged": nil},
	})

	want := map[string]string{
		"id":      TypeText,
		"name":    TypeText,
		"ratio":   TypeDouble,
		"flagged": TypeText,
	}
	if len(table.Columns) != len(want) {
		t.Fatalf("expected %d columns, got %v", len(want), table.ColumnNames())
	}
	for _, col := range table.Columns {
		if col.Type != want[col.Name] {
			t.Errorf("column %s: got %s, want %s", col.Name, col.Type, want[col.Name])
		}
	}
}

func TestInferTypeFromFirstNonNilValue(t *testing.T) {
	table := Infer("readings", []map[string]interface{}{
		{"id": "r1", "reading": nil},
		{"id": "r2", "reading": 12.5},
	})

	col, ok := table.Column("reading")
	if !ok {
		t.Fatalf("expected reading column, got %v", table.ColumnNames())
	}
	if col.Type != TypeDouble {
		t.Errorf("expected double from later record, got %s", col.Type)
	}
}

func TestInferIDBecomesPrimaryKey(t *testing.T) {
	table := Infer("devices", []map[string]interface{}{
		{"name": "press", "ID": "d1"},
	})

	if pk := table.PrimaryKey(); pk != "ID" {
		t.Errorf("expected case-insensitive id as pk, got %q", pk)
	}
	if table.Columns[0].Name != "ID" {
		t.Errorf("expected pk hoisted to front, got %v", table.ColumnNames())
	}

	col, ok := table.Column("ID")
	if !ok || col.Nullable {
		t.Errorf("primary key must be non-nullable, got %+v", col)
	}
}

func TestInferFirstColumnFallbackPK(t *testing.T) {
	table := Infer("events", []map[string]interface{}{
		{"zeta": 1, "alpha": 2},
	})

	// No id column: first in sorted order becomes the key.
	if pk := table.PrimaryKey(); pk != "alpha" {
		t.Errorf("expected alpha as fallback pk, got %q", pk)
	}
}

func TestInferDeterministicOrder(t *testing.T) {
	rec := map[string]interface{}{"id": 1, "b": 2, "a": 3, "c": 4}

	first := Infer("t", []map[string]interface{}{rec}).ColumnNames()
	for i := 0; i < 20; i++ {
		again := Infer("t", []map[string]interface{}{rec}).ColumnNames()
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("column order not deterministic: %v vs %v", first, again)
			}
		}
	}
}

func TestInferWholeFloatsAreBigInt(t *testing.T) {
	// JSON decoding turns every number into float64.
	table := Infer("t", []map[string]interface{}{
		{"id": float64(7), "price": 19.99},
	})

	col, _ := table.Column("id")
	if col.Type != TypeBigInt {
		t.Errorf("whole float64 should infer bigint, got %s", col.Type)
	}
	col, _ = table.Column("price")
	if col.Type != TypeDouble {
		t.Errorf("fractional float64 should infer double, got %s", col.Type)
	}
}

func TestInferTimeValue(t *testing.T) {
	table := Infer("t", []map[string]interface{}{
		{"id": "x", "seen": time.Now()},
	})
	col, _ := table.Column("seen")
	if col.Type != TypeTimestamp {
		t.Errorf("time.Time should infer timestamp, got %s", col.Type)
	}
}

func TestInferEmptyRecords(t *testing.T) {
	table := Infer("empty", nil)
	if len(table.Columns) != 0 {
		t.Errorf("expected no columns, got %v", table.Columns)
	}
}
