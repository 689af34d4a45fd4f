package mssql

import (
	"strings"
	"testing"

	"github.com/sluicedb/sluice/internal/schema"
)

func newTestConnector() *Connector {
	return &Connector{schemaName: "dbo"}
}

func TestBuildCreateTable(t *testing.T) {
	c := newTestConnector()

	sql, err := c.BuildCreateTable(schema.Table{
		Name: "orders",
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeText, PrimaryKey: true},
			{Name: "total", Type: schema.TypeDouble, Nullable: true},
			{Name: "paid", Type: schema.TypeBoolean, Nullable: true},
			{Name: "placed_at", Type: schema.TypeTimestamp, Nullable: true},
		},
	})
	if err != nil {
		t.Fatalf("BuildCreateTable: %v", err)
	}

	want := "CREATE TABLE [dbo].[orders] ([id] NVARCHAR(450) NOT NULL PRIMARY KEY, " +
		"[total] FLOAT, [paid] BIT, [placed_at] DATETIME2)"
	if sql != want {
		t.Errorf("got:\n%s\nwant:\n%s", sql, want)
	}
}

func TestBuildAddColumn(t *testing.T) {
	c := newTestConnector()

	sql, err := c.BuildAddColumn("orders", schema.Column{Name: "note", Type: schema.TypeText})
	if err != nil {
		t.Fatalf("BuildAddColumn: %v", err)
	}
	want := "ALTER TABLE [dbo].[orders] ADD [note] NVARCHAR(MAX)"
	if sql != want {
		t.Errorf("got %q, want %q", sql, want)
	}
}

func TestBuildUpsertMerge(t *testing.T) {
	c := newTestConnector()

	sql, err := c.BuildUpsert("orders", []string{"id", "total"}, "id")
	if err != nil {
		t.Fatalf("BuildUpsert: %v", err)
	}
	want := "MERGE [dbo].[orders] AS tgt USING (SELECT @p1 AS [id], @p2 AS [total]) AS src" +
		" ON tgt.[id] = src.[id]" +
		" WHEN MATCHED THEN UPDATE SET tgt.[total] = src.[total]" +
		" WHEN NOT MATCHED THEN INSERT ([id], [total]) VALUES (src.[id], src.[total]);"
	if sql != want {
		t.Errorf("got:\n%s\nwant:\n%s", sql, want)
	}
}

func TestBuildUpsertNoPrimaryKey(t *testing.T) {
	c := newTestConnector()

	sql, err := c.BuildUpsert("orders", []string{"a", "b"}, "")
	if err != nil {
		t.Fatalf("BuildUpsert: %v", err)
	}
	if strings.Contains(sql, "MERGE") {
		t.Errorf("plain insert expected without primary key, got %q", sql)
	}
	if !strings.HasPrefix(sql, "INSERT INTO [dbo].[orders]") {
		t.Errorf("got %q", sql)
	}
}

func TestBuildUpsertOnlyKeyColumn(t *testing.T) {
	c := newTestConnector()

	sql, err := c.BuildUpsert("orders", []string{"id"}, "id")
	if err != nil {
		t.Fatalf("BuildUpsert: %v", err)
	}
	if strings.Contains(sql, "WHEN MATCHED") {
		t.Errorf("no update clause expected when all columns are the key, got %q", sql)
	}
}

func TestQuoteIdentifierEscapes(t *testing.T) {
	c := newTestConnector()
	if got := c.QuoteIdentifier("evil]name"); got != "[evil]]name]" {
		t.Errorf("got %q", got)
	}
}
