// Package router resolves tenants to live database targets. It reads each
// tenant's connection settings from the config store, caches them with a
// TTL, lazily opens the tenant's connection pool through the connector
// registry, and hands out gateway targets and replicators bound to that
// pool.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sluicedb/sluice/internal/configstore"
	"github.com/sluicedb/sluice/internal/connector"
	"github.com/sluicedb/sluice/internal/gateway"
	"github.com/sluicedb/sluice/internal/model"
	"github.com/sluicedb/sluice/internal/notify"
	"github.com/sluicedb/sluice/internal/replicate"
)

// settingsCacheTTL bounds how stale a tenant's cached settings may get.
// Config changes propagate to routing decisions within this window without
// hitting the store on every request.
const settingsCacheTTL = 15 * time.Minute

// ErrTenantNotConfigured is returned when a tenant has no connection
// settings in the config store.
var ErrTenantNotConfigured = errors.New("tenant has no database configuration")

type cachedSettings struct {
	values  map[string]string
	expires time.Time
}

// Router maps tenant IDs to execution targets.
type Router struct {
	store    *configstore.Store
	registry *connector.Registry
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[string]cachedSettings

	// Pool defaults applied to every tenant connection.
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
}

// New creates a Router over the config store and an empty connector
// registry with all supported drivers registered by the caller.
func New(store *configstore.Store, registry *connector.Registry, logger *slog.Logger) *Router {
	return &Router{
		store:           store,
		registry:        registry,
		logger:          logger,
		cache:           make(map[string]cachedSettings),
		maxOpenConns:    10,
		maxIdleConns:    2,
		connMaxLifetime: 30 * time.Minute,
	}
}

// Settings returns the tenant's config entries as a flat map, served from
// the TTL cache when fresh.
func (r *Router) Settings(ctx context.Context, tenantID string) (map[string]string, error) {
	r.mu.Lock()
	if c, ok := r.cache[tenantID]; ok && time.Now().Before(c.expires) {
		r.mu.Unlock()
		return c.values, nil
	}
	r.mu.Unlock()

	values, err := r.store.Settings(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load settings for tenant %q: %w", tenantID, err)
	}

	r.mu.Lock()
	r.cache[tenantID] = cachedSettings{values: values, expires: time.Now().Add(settingsCacheTTL)}
	r.mu.Unlock()
	return values, nil
}

// Invalidate drops a tenant's cached settings and closes its pool. The next
// request re-resolves from the config store.
func (r *Router) Invalidate(tenantID string) {
	r.mu.Lock()
	delete(r.cache, tenantID)
	r.mu.Unlock()

	// Ignore "not connected": invalidation of a never-routed tenant is fine.
	_ = r.registry.Disconnect(tenantID)
	r.logger.Info("tenant invalidated", "tenant", tenantID)
}

// Connector returns the tenant's live connector, opening the pool on first
// use.
func (r *Router) Connector(ctx context.Context, tenantID string) (connector.Connector, error) {
	if conn, err := r.registry.Get(tenantID); err == nil {
		return conn, nil
	}

	settings, err := r.Settings(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	cfg, err := r.resolveConnection(settings)
	if err != nil {
		return nil, fmt.Errorf("tenant %q: %w", tenantID, err)
	}

	if err := r.registry.Connect(tenantID, cfg); err != nil {
		return nil, err
	}
	r.logger.Info("tenant connected", "tenant", tenantID, "driver", cfg.Driver)
	return r.registry.Get(tenantID)
}

// Target returns a gateway execution handle for the tenant. Postgres
// tenants get the pg_notify-backed reload notifier; other engines have no
// schema-cache listener and get the no-op notifier.
func (r *Router) Target(ctx context.Context, tenantID string) (*gateway.Target, error) {
	conn, err := r.Connector(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var n notify.Notifier = notify.Noop{}
	if conn.DriverName() == configstore.DriverPostgres {
		n = notify.NewPostgres(conn.DB(), r.logger)
	}
	return gateway.NewTarget(conn.DB(), n, r.logger), nil
}

// Replicator returns a replicator bound to the tenant's connection.
func (r *Router) Replicator(ctx context.Context, tenantID string) (*replicate.Replicator, error) {
	conn, err := r.Connector(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	target, err := r.Target(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return replicate.New(conn, target, r.logger), nil
}

// resolveConnection derives connection parameters from tenant settings.
// The native keys (db_driver, db_dsn) win; the legacy Supabase pair
// (DB_URL, DB_TOKEN) is honored for tenants configured before the native
// keys existed.
func (r *Router) resolveConnection(settings map[string]string) (connector.ConnectionConfig, error) {
	cfg := connector.ConnectionConfig{
		SchemaName:      settings[model.KeySchema],
		MaxOpenConns:    r.maxOpenConns,
		MaxIdleConns:    r.maxIdleConns,
		ConnMaxLifetime: r.connMaxLifetime,
	}

	driver := settings[model.KeyDriver]
	dsn := settings[model.KeyDSN]

	if driver == "" || dsn == "" {
		legacyURL := settings[model.KeyLegacyURL]
		legacyToken := settings[model.KeyLegacyToken]
		if legacyURL == "" || legacyToken == "" {
			return cfg, ErrTenantNotConfigured
		}
		converted, err := supabaseToPostgresDSN(legacyURL, legacyToken)
		if err != nil {
			return cfg, err
		}
		driver = "postgres"
		dsn = converted
	}

	cfg.Driver = driver
	cfg.DSN = connector.SanitizeDSN(driver, dsn)
	return cfg, nil
}

// supabaseToPostgresDSN converts a Supabase project URL plus service token
// into a direct Postgres DSN. The project ref is the first label of the
// URL's hostname; the database host prepends "db." to the project domain.
func supabaseToPostgresDSN(rawURL, token string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse legacy database URL: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("legacy database URL %q has no host", rawURL)
	}
	if !strings.HasPrefix(host, "db.") {
		host = "db." + host
	}
	return fmt.Sprintf("postgres://postgres:%s@%s:5432/postgres",
		url.QueryEscape(token), host), nil
}
