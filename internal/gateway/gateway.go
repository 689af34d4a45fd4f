// Package gateway executes arbitrary SQL text against one tenant database
// and normalizes the outcome. Every call yields exactly one ExecResult;
// statement failures are returned as data, never raised to the caller.
//
// Execution runs on the tenant's pooled connection, which carries elevated
// privileges relative to ordinary API principals. The pool is unexported and
// a Target can only be built by the router, which is the trust boundary for
// this capability.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sluicedb/sluice/internal/model"
	"github.com/sluicedb/sluice/internal/notify"
)

// schemaSettleDelay is how long a successful DDL statement waits before the
// reload signal is dispatched. The pause outlasts in-flight schema-cache
// propagation so the listener never reloads from a stale snapshot. Fixed,
// not configurable.
const schemaSettleDelay = 1 * time.Second

// Target is an execution handle for one tenant database: the pooled
// connection plus the notifier for its schema-cache listener.
type Target struct {
	db       *sqlx.DB
	notifier notify.Notifier
	logger   *slog.Logger
	settle   time.Duration
}

// NewTarget wraps a tenant connection pool in an execution handle.
func NewTarget(db *sqlx.DB, notifier notify.Notifier, logger *slog.Logger) *Target {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Target{
		db:       db,
		notifier: notifier,
		logger:   logger,
		settle:   schemaSettleDelay,
	}
}

// Execute runs one SQL statement exactly once, with no implicit transaction
// wrapping and no retries. A statement classified as schema-altering that
// succeeds triggers, in order: the settle delay, then the reload
// notification, then the success result. Any execution fault is captured and
// returned as an error result carrying the engine's diagnostic verbatim.
func (t *Target) Execute(ctx context.Context, sqlText string) model.ExecResult {
	ddl := IsSchemaChange(sqlText)

	res, err := t.db.ExecContext(ctx, sqlText)
	if err != nil {
		t.logger.Warn("statement failed", "ddl", ddl, "error", err)
		return model.Error(err.Error())
	}

	if !ddl {
		if n, err := res.RowsAffected(); err == nil {
			return model.Success(fmt.Sprintf("%d row(s) affected", n))
		}
		return model.Success("statement executed")
	}

	// The reload signal must follow both execution and the settle delay,
	// never precede them. Caller cancellation shortens the wait but the
	// notification is still dispatched: the statement already took effect
	// server-side.
	select {
	case <-time.After(t.settle):
	case <-ctx.Done():
	}
	t.notifier.NotifyReload(context.WithoutCancel(ctx))
	t.logger.Info("schema change applied, reload dispatched")

	return model.Success("statement executed; schema reload dispatched")
}

// Query runs a row-returning statement and materializes the result set.
// Unlike Execute, driver errors are returned as errors: Query serves
// internal read paths (replication probes, data reads), not the remote
// execute_sql procedure.
func (t *Target) Query(ctx context.Context, sqlText string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := t.db.QueryxContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Exec runs a parameterized non-returning statement, surfacing driver errors
// to the caller. Used by the replicator's record-apply loop.
func (t *Target) Exec(ctx context.Context, sqlText string, args ...interface{}) error {
	if _, err := t.db.ExecContext(ctx, sqlText, args...); err != nil {
		return err
	}
	return nil
}
