package connector

import (
	"fmt"
	"sync"
)

// Factory is a function that creates a new Connector instance.
type Factory func() Connector

// Registry manages connector factories and the live per-tenant connection
// pools. Each tenant's pool is logically isolated; operations for different
// tenants never contend beyond the registry map lock.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	active    map[string]Connector // keyed by tenant ID
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		active:    make(map[string]Connector),
	}
}

// RegisterDriver registers a connector factory for a driver type.
func (r *Registry) RegisterDriver(driver string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[driver] = factory
}

// Connect creates a connector for the tenant and connects it, replacing and
// closing any existing pool for the same tenant.
func (r *Registry) Connect(tenantID string, cfg ConnectionConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	factory, ok := r.factories[cfg.Driver]
	if !ok {
		return fmt.Errorf("unsupported driver: %s (available: %v)", cfg.Driver, r.availableDrivers())
	}

	conn := factory()
	if err := conn.Connect(cfg); err != nil {
		return fmt.Errorf("connect tenant %q: %w", tenantID, err)
	}

	if existing, ok := r.active[tenantID]; ok {
		existing.Disconnect()
	}

	r.active[tenantID] = conn
	return nil
}

// Get returns the live connector for a tenant.
func (r *Registry) Get(tenantID string) (Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.active[tenantID]
	if !ok {
		return nil, fmt.Errorf("tenant %q not connected", tenantID)
	}
	return conn, nil
}

// Disconnect removes and disconnects a tenant's pool.
func (r *Registry) Disconnect(tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.active[tenantID]
	if !ok {
		return fmt.Errorf("tenant %q not connected", tenantID)
	}

	err := conn.Disconnect()
	delete(r.active, tenantID)
	return err
}

// CloseAll disconnects every tenant pool.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, conn := range r.active {
		conn.Disconnect()
		delete(r.active, id)
	}
}

// ActiveTenants returns the tenant IDs with live pools.
func (r *Registry) ActiveTenants() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) availableDrivers() []string {
	drivers := make([]string, 0, len(r.factories))
	for d := range r.factories {
		drivers = append(drivers, d)
	}
	return drivers
}
