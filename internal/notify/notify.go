// Package notify dispatches schema-reload signals after DDL execution. The
// broadcast is at-most-once and best-effort: the query layer listening on
// the channel performs its own periodic refresh, so a lost notification is
// tolerated by design and never reported as an error.
package notify

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// Channel and payload understood by the PostgREST metadata-cache listener.
const (
	Channel = "pgrst"
	Payload = "reload schema"
)

// Notifier tells a database's query layer that cached schema metadata is
// stale. Implementations must be fire-and-forget: no acknowledgement, no
// retry, no error returned.
type Notifier interface {
	NotifyReload(ctx context.Context)
}

// Postgres broadcasts on the shared NOTIFY channel of the tenant database.
type Postgres struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgres creates a Notifier publishing on db's pgrst channel.
func NewPostgres(db *sqlx.DB, logger *slog.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

// NotifyReload publishes the reload payload. Failures are logged and
// swallowed; the listener's fallback refresh covers the loss.
func (p *Postgres) NotifyReload(ctx context.Context) {
	if _, err := p.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", Channel, Payload); err != nil {
		p.logger.Warn("schema reload notification failed", "channel", Channel, "error", err)
	}
}

// Noop is the Notifier for engines without a shared notification channel.
type Noop struct{}

// NotifyReload does nothing.
func (Noop) NotifyReload(context.Context) {}
