// Package configstore persists per-tenant configuration: connection
// credentials and arbitrary key/value settings keyed by the composite
// (tenant_id, config_key) pair. The store is the sole writer of this data;
// every other component only reads it.
package configstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/sluicedb/sluice/internal/model"
)

// Supported store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// UpsertMode selects the conflict behavior of an upsert. The two modes are
// deliberately distinct: bulk seeding must not clobber live credentials,
// while administrative updates must.
type UpsertMode int

const (
	// UpsertIgnore leaves an existing entry untouched (conflict-safe seeding).
	UpsertIgnore UpsertMode = iota
	// UpsertOverwrite replaces value and description on conflict.
	UpsertOverwrite
)

// Store manages tenant configuration backed by Postgres (production) or
// SQLite (embedded/dev). All conflict handling uses the engine's atomic
// ON CONFLICT primitive, so concurrent upserts for the same pair can never
// violate the composite-key invariant.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects the store. driver is "postgres" or "sqlite". For sqlite, an
// empty dsn yields an in-memory database; a plain directory path is treated
// as a data dir holding sluice.db.
func Open(driver, dsn string) (*Store, error) {
	var db *sqlx.DB
	var err error

	switch driver {
	case DriverPostgres:
		db, err = sqlx.Connect("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open config database: %w", err)
		}
	case DriverSQLite, "":
		driver = DriverSQLite
		if dsn == "" {
			dsn = ":memory:?_journal_mode=WAL"
		} else if !strings.Contains(dsn, ":memory:") && !strings.HasSuffix(dsn, ".db") {
			if err := os.MkdirAll(dsn, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			dsn = filepath.Join(dsn, "sluice.db") + "?_journal_mode=WAL&_busy_timeout=5000"
		}
		db, err = sqlx.Connect("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open config database: %w", err)
		}
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
	default:
		return nil, fmt.Errorf("unsupported config store driver: %s", driver)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate config database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the persistence layer is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Upsert writes one configuration entry. On first write for the pair the row
// is created with created_at = updated_at = now. On conflict the behavior
// depends on mode: UpsertIgnore keeps the existing row, UpsertOverwrite
// replaces value and description and refreshes updated_at. created_at is
// never touched after the first write, and updated_at is always computed
// here, never taken from the caller.
func (s *Store) Upsert(ctx context.Context, e *model.TenantConfigEntry, mode UpsertMode) error {
	if err := validateIdentity(e.TenantID, e.ConfigKey); err != nil {
		return err
	}

	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	q := `INSERT INTO tenant_config (tenant_id, config_key, value, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	switch mode {
	case UpsertOverwrite:
		q += ` ON CONFLICT (tenant_id, config_key) DO UPDATE SET
			value = excluded.value,
			description = excluded.description,
			updated_at = excluded.updated_at`
	default:
		q += ` ON CONFLICT (tenant_id, config_key) DO NOTHING`
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(q),
		e.TenantID, e.ConfigKey, e.Value, e.Description, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get returns the entry for the exact (tenantID, key) pair. Lookup is
// case-sensitive. Reads have no side effects.
func (s *Store) Get(ctx context.Context, tenantID, key string) (*model.TenantConfigEntry, error) {
	if err := validateIdentity(tenantID, key); err != nil {
		return nil, err
	}

	var e model.TenantConfigEntry
	q := s.db.Rebind(`SELECT * FROM tenant_config WHERE tenant_id = ? AND config_key = ?`)
	if err := s.db.GetContext(ctx, &e, q, tenantID, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &e, nil
}

// ListByTenant returns all entries for a tenant, ordered by config_key for
// deterministic output.
func (s *Store) ListByTenant(ctx context.Context, tenantID string) ([]model.TenantConfigEntry, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant_id must not be empty", ErrInvalidArgument)
	}

	var entries []model.TenantConfigEntry
	q := s.db.Rebind(`SELECT * FROM tenant_config WHERE tenant_id = ? ORDER BY config_key`)
	if err := s.db.SelectContext(ctx, &entries, q, tenantID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return entries, nil
}

// ListTenants returns the distinct tenant IDs present in the store, sorted.
func (s *Store) ListTenants(ctx context.Context) ([]string, error) {
	var tenants []string
	if err := s.db.SelectContext(ctx, &tenants,
		`SELECT DISTINCT tenant_id FROM tenant_config ORDER BY tenant_id`); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return tenants, nil
}

// Settings returns a tenant's configuration flattened to a key→value map.
// Used by the router to resolve connection settings in one read.
func (s *Store) Settings(ctx context.Context, tenantID string) (map[string]string, error) {
	entries, err := s.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	settings := make(map[string]string, len(entries))
	for _, e := range entries {
		settings[e.ConfigKey] = e.Value
	}
	return settings, nil
}

// Delete removes an entry. This is an administrative operation; the
// data-receiving path never deletes configuration.
func (s *Store) Delete(ctx context.Context, tenantID, key string) error {
	if err := validateIdentity(tenantID, key); err != nil {
		return err
	}

	q := s.db.Rebind(`DELETE FROM tenant_config WHERE tenant_id = ? AND config_key = ?`)
	result, err := s.db.ExecContext(ctx, q, tenantID, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func validateIdentity(tenantID, key string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenant_id must not be empty", ErrInvalidArgument)
	}
	if key == "" {
		return fmt.Errorf("%w: config_key must not be empty", ErrInvalidArgument)
	}
	return nil
}
