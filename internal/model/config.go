package model

import "time"

// Well-known tenant configuration keys. The store treats values as opaque;
// these names are contracts between the seeding tooling and the router.
const (
	KeyDriver = "db_driver" // connector driver name (postgres, mysql, mssql, sqlite)
	KeyDSN    = "db_dsn"    // full connection string for the tenant database
	KeySchema = "db_schema" // schema/namespace inside the tenant database

	// Legacy keys written by the first-generation integrator. DB_URL holds a
	// Supabase project URL; DB_TOKEN the database password. The router
	// converts the pair into a Postgres DSN when db_dsn is absent.
	KeyLegacyURL   = "DB_URL"
	KeyLegacyToken = "DB_TOKEN"

	// KeyAPIToken authenticates integrator webhook calls for the tenant.
	KeyAPIToken = "api_token"
)

// TenantConfigEntry is one row of the tenant configuration store. The pair
// (TenantID, ConfigKey) is the entry's identity; no two entries share both.
type TenantConfigEntry struct {
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	ConfigKey   string    `json:"config_key" db:"config_key"`
	Value       string    `json:"value" db:"value"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
