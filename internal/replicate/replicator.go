// Package replicate applies integrator record batches to a tenant database,
// evolving the target schema on the fly: missing tables are created from the
// inferred shape, missing columns are added, and records land through
// dialect-aware upserts keyed on the table's primary key.
package replicate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sluicedb/sluice/internal/connector"
	"github.com/sluicedb/sluice/internal/gateway"
	"github.com/sluicedb/sluice/internal/model"
	"github.com/sluicedb/sluice/internal/schema"
)

// Replicator applies payloads for a single tenant. Schema changes go through
// the gateway target so DDL triggers the settle-and-reload sequence; row
// writes use parameterized statements on the same pool.
type Replicator struct {
	conn   connector.Connector
	target *gateway.Target
	logger *slog.Logger
}

// New builds a Replicator over a tenant's connector and execution target.
func New(conn connector.Connector, target *gateway.Target, logger *slog.Logger) *Replicator {
	return &Replicator{conn: conn, target: target, logger: logger}
}

// Apply replicates one payload. The table name is normalized and validated
// before any SQL is built; an invalid name fails the whole batch. Records
// are applied one by one and a failing record aborts the batch with a count
// of what landed.
func (r *Replicator) Apply(ctx context.Context, tenantID string, payload model.DataPayload) (model.ApplyReport, error) {
	report := model.ApplyReport{TenantID: tenantID}

	tableName, err := schema.NormalizeIdentifier(payload.TableName)
	if err != nil {
		return report, fmt.Errorf("table name: %w", err)
	}
	report.TableName = tableName

	records := payload.Rows()
	if len(records) == 0 {
		report.Message = "no records to apply"
		return report, nil
	}
	for _, rec := range records {
		for k := range rec {
			if err := schema.ValidateIdentifier(k); err != nil {
				return report, fmt.Errorf("column name: %w", err)
			}
		}
	}

	inferred := schema.Infer(tableName, records)

	exists, err := r.tableExists(ctx, tableName)
	if err != nil {
		return report, err
	}

	if !exists {
		stmt, err := r.conn.BuildCreateTable(inferred)
		if err != nil {
			return report, err
		}
		if res := r.target.Execute(ctx, stmt); res.Status != model.StatusSuccess {
			return report, fmt.Errorf("create table %s: %s", tableName, res.Message)
		}
		report.TableCreated = true
		r.logger.Info("table created", "tenant", tenantID, "table", tableName)
	} else {
		added, err := r.reconcileColumns(ctx, tableName, inferred)
		if err != nil {
			return report, err
		}
		report.ColumnsAdded = added
	}

	// Upsert against the table's actual key, which may differ from the
	// inferred one when the table predates this payload.
	pk, err := r.conn.PrimaryKey(ctx, tableName)
	if err != nil {
		return report, err
	}
	if pk == "" {
		pk = inferred.PrimaryKey()
	}

	columns := inferred.ColumnNames()
	stmt, err := r.conn.BuildUpsert(tableName, columns, pk)
	if err != nil {
		return report, err
	}

	for i, rec := range records {
		args := bindArgs(columns, rec)
		if err := r.target.Exec(ctx, stmt, args...); err != nil {
			report.Applied = i
			return report, fmt.Errorf("apply record %d to %s: %w", i, tableName, err)
		}
	}

	report.Applied = len(records)
	report.Message = fmt.Sprintf("%d record(s) applied", report.Applied)
	r.logger.Info("payload applied",
		"tenant", tenantID, "table", tableName,
		"records", report.Applied, "created", report.TableCreated,
		"columns_added", report.ColumnsAdded)
	return report, nil
}

func (r *Replicator) tableExists(ctx context.Context, table string) (bool, error) {
	names, err := r.conn.TableNames(ctx)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	for _, n := range names {
		if n == table {
			return true, nil
		}
	}
	return false, nil
}

// reconcileColumns adds any inferred column missing from the live table.
// Existing columns are never altered or dropped.
func (r *Replicator) reconcileColumns(ctx context.Context, table string, inferred schema.Table) (int, error) {
	live, err := r.conn.TableColumns(ctx, table)
	if err != nil {
		return 0, err
	}

	existing := make(map[string]bool, len(live))
	for _, c := range live {
		existing[c.Name] = true
	}

	added := 0
	for _, col := range inferred.Columns {
		if existing[col.Name] {
			continue
		}
		stmt, err := r.conn.BuildAddColumn(table, col)
		if err != nil {
			return added, err
		}
		if res := r.target.Execute(ctx, stmt); res.Status != model.StatusSuccess {
			return added, fmt.Errorf("add column %s.%s: %s", table, col.Name, res.Message)
		}
		added++
	}
	return added, nil
}

// bindArgs orders a record's values to match the statement's column list.
// Absent keys bind as NULL; nested objects and arrays are serialized to
// JSON text.
func bindArgs(columns []string, rec map[string]interface{}) []interface{} {
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		v, ok := rec[col]
		if !ok {
			args[i] = nil
			continue
		}
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			b, err := json.Marshal(v)
			if err != nil {
				args[i] = nil
				continue
			}
			args[i] = string(b)
		default:
			args[i] = v
		}
	}
	return args
}
