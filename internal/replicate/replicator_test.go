package replicate

import (
	"context"
	"log/slog"
	"testing"

	"github.com/sluicedb/sluice/internal/connector"
	"github.com/sluicedb/sluice/internal/connector/sqlite"
	"github.com/sluicedb/sluice/internal/gateway"
	"github.com/sluicedb/sluice/internal/model"
)

func newTestReplicator(t *testing.T) (*Replicator, connector.Connector) {
	t.Helper()

	conn := sqlite.New()
	if err := conn.Connect(connector.ConnectionConfig{Driver: "sqlite", DSN: ":memory:"}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Disconnect() })

	logger := slog.New(slog.DiscardHandler)
	target := gateway.NewTarget(conn.DB(), nil, logger)
	return New(conn, target, logger), conn
}

func TestApplyCreatesTableAndInsertsRecords(t *testing.T) {
	r, conn := newTestReplicator(t)
	ctx := context.Background()

	report, err := r.Apply(ctx, "acme", model.DataPayload{
		TableName: "devices",
		Records: []map[string]interface{}{
			{"id": "d1", "name": "press", "reading": 1.5},
			{"id": "d2", "name": "lathe", "reading": 2.25},
		},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !report.TableCreated {
		t.Error("expected table to be created")
	}
	if report.Applied != 2 {
		t.Errorf("expected 2 records applied, got %d", report.Applied)
	}

	var count int
	if err := conn.DB().GetContext(ctx, &count, "SELECT COUNT(*) FROM devices"); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 rows, got %d", count)
	}
}

func TestApplyUpsertsExistingRecords(t *testing.T) {
	r, conn := newTestReplicator(t)
	ctx := context.Background()

	first := model.DataPayload{
		TableName: "devices",
		Records:   []map[string]interface{}{{"id": "d1", "name": "press"}},
	}
	if _, err := r.Apply(ctx, "acme", first); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	second := model.DataPayload{
		TableName: "devices",
		Records:   []map[string]interface{}{{"id": "d1", "name": "press-2"}},
	}
	report, err := r.Apply(ctx, "acme", second)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if report.TableCreated {
		t.Error("table should already exist on second apply")
	}

	var count int
	if err := conn.DB().GetContext(ctx, &count, "SELECT COUNT(*) FROM devices"); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected upsert to keep a single row, got %d", count)
	}

	var name string
	if err := conn.DB().GetContext(ctx, &name, "SELECT name FROM devices WHERE id = ?", "d1"); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if name != "press-2" {
		t.Errorf("expected updated name, got %q", name)
	}
}

func TestApplyKeepsFieldsSeenOnlyInLaterRecords(t *testing.T) {
	r, conn := newTestReplicator(t)
	ctx := context.Background()

	report, err := r.Apply(ctx, "acme", model.DataPayload{
		TableName: "devices",
		Records: []map[string]interface{}{
			{"id": "d1", "name": "press"},
			{"id": "d2", "name": "lathe", "status": "maintenance"},
		},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if report.Applied != 2 {
		t.Errorf("expected 2 records applied, got %d", report.Applied)
	}

	var status string
	if err := conn.DB().GetContext(ctx, &status, "SELECT status FROM devices WHERE id = ?", "d2"); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if status != "maintenance" {
		t.Errorf("expected status from second record to land, got %q", status)
	}
}

func TestApplyAddsMissingColumns(t *testing.T) {
	r, _ := newTestReplicator(t)
	ctx := context.Background()

	if _, err := r.Apply(ctx, "acme", model.DataPayload{
		TableName: "devices",
		Records:   []map[string]interface{}{{"id": "d1"}},
	}); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	report, err := r.Apply(ctx, "acme", model.DataPayload{
		TableName: "devices",
		Records:   []map[string]interface{}{{"id": "d2", "location": "hall-b"}},
	})
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if report.ColumnsAdded != 1 {
		t.Errorf("expected 1 column added, got %d", report.ColumnsAdded)
	}
}

func TestApplyNormalizesTableName(t *testing.T) {
	r, conn := newTestReplicator(t)
	ctx := context.Background()

	report, err := r.Apply(ctx, "acme", model.DataPayload{
		TableName: "Production Orders",
		Records:   []map[string]interface{}{{"id": "o1"}},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if report.TableName != "production_orders" {
		t.Errorf("expected normalized name, got %q", report.TableName)
	}

	names, err := conn.TableNames(ctx)
	if err != nil {
		t.Fatalf("table names: %v", err)
	}
	if len(names) != 1 || names[0] != "production_orders" {
		t.Errorf("expected [production_orders], got %v", names)
	}
}

func TestApplyRejectsInvalidTableName(t *testing.T) {
	r, _ := newTestReplicator(t)

	_, err := r.Apply(context.Background(), "acme", model.DataPayload{
		TableName: "devices; DROP TABLE users",
		Records:   []map[string]interface{}{{"id": "d1"}},
	})
	if err == nil {
		t.Fatal("expected error for hostile table name")
	}
}

func TestApplyRejectsInvalidColumnName(t *testing.T) {
	r, _ := newTestReplicator(t)

	_, err := r.Apply(context.Background(), "acme", model.DataPayload{
		TableName: "devices",
		Records:   []map[string]interface{}{{"id": "d1", "bad-col;": "x"}},
	})
	if err == nil {
		t.Fatal("expected error for hostile column name")
	}
}

func TestApplyEmptyPayload(t *testing.T) {
	r, _ := newTestReplicator(t)

	report, err := r.Apply(context.Background(), "acme", model.DataPayload{TableName: "devices"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if report.Applied != 0 || report.TableCreated {
		t.Errorf("empty payload should be a no-op, got %+v", report)
	}
}

func TestApplyHonorsDataAlias(t *testing.T) {
	r, conn := newTestReplicator(t)
	ctx := context.Background()

	report, err := r.Apply(ctx, "acme", model.DataPayload{
		TableName: "legacy",
		Data:      []map[string]interface{}{{"id": "l1", "note": "old client"}},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if report.Applied != 1 {
		t.Errorf("expected 1 record applied, got %d", report.Applied)
	}

	var count int
	if err := conn.DB().GetContext(ctx, &count, "SELECT COUNT(*) FROM legacy"); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}

func TestApplySerializesNestedValues(t *testing.T) {
	r, conn := newTestReplicator(t)
	ctx := context.Background()

	if _, err := r.Apply(ctx, "acme", model.DataPayload{
		TableName: "events",
		Records: []map[string]interface{}{
			{"id": "e1", "meta": map[string]interface{}{"source": "plc", "line": 4}},
		},
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	var meta string
	if err := conn.DB().GetContext(ctx, &meta, "SELECT meta FROM events WHERE id = ?", "e1"); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if meta != `{"line":4,"source":"plc"}` {
		t.Errorf("expected JSON-serialized meta, got %q", meta)
	}
}
