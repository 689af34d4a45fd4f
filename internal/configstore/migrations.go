package configstore

import (
	"fmt"
	"strings"
)

// migrationsFor returns the ordered migration list for a driver. Both
// dialects share the composite primary key on (tenant_id, config_key) plus
// independent indexes on each half: lookups come as "all settings for tenant
// X" and "find this setting across tenants".
func migrationsFor(driver string) []string {
	switch driver {
	case DriverPostgres:
		return []string{
			`CREATE TABLE IF NOT EXISTS tenant_config (
				tenant_id   TEXT NOT NULL,
				config_key  TEXT NOT NULL,
				value       TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
				PRIMARY KEY (tenant_id, config_key)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_tenant_config_tenant ON tenant_config(tenant_id)`,
			`CREATE INDEX IF NOT EXISTS idx_tenant_config_key ON tenant_config(config_key)`,
		}
	default: // sqlite
		return []string{
			`CREATE TABLE IF NOT EXISTS tenant_config (
				tenant_id   TEXT NOT NULL,
				config_key  TEXT NOT NULL,
				value       TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (tenant_id, config_key)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_tenant_config_tenant ON tenant_config(tenant_id)`,
			`CREATE INDEX IF NOT EXISTS idx_tenant_config_key ON tenant_config(config_key)`,
		}
	}
}

func (s *Store) migrate() error {
	for _, m := range migrationsFor(s.driver) {
		if _, err := s.db.Exec(m); err != nil {
			// ALTER TABLE ADD COLUMN reruns fail on SQLite; treat duplicate
			// columns as a no-op so migrations stay idempotent.
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
