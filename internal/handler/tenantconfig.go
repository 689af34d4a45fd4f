package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sluicedb/sluice/internal/configstore"
	"github.com/sluicedb/sluice/internal/model"
	"github.com/sluicedb/sluice/internal/router"
	"github.com/sluicedb/sluice/internal/service"
)

// TenantConfigHandler manages tenant configuration entries. Writes
// invalidate the router's cached settings so connection changes take effect
// without waiting out the TTL.
type TenantConfigHandler struct {
	store  *configstore.Store
	router *router.Router
}

// NewTenantConfigHandler creates a new TenantConfigHandler.
func NewTenantConfigHandler(store *configstore.Store, rt *router.Router) *TenantConfigHandler {
	return &TenantConfigHandler{store: store, router: rt}
}

// ListTenants returns every tenant ID known to the config store.
// GET /api/v1/system/tenant
func (h *TenantConfigHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.store.ListTenants(r.Context())
	if err != nil {
		writeStoreError(w, err, "Failed to list tenants")
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: stringsToResources("tenant_id", tenants),
	})
}

// ListEntries returns a tenant's configuration entries.
// GET /api/v1/system/tenant/{tenantID}/config
func (h *TenantConfigHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	entries, err := h.store.ListByTenant(r.Context(), tenantID)
	if err != nil {
		writeStoreError(w, err, "Failed to list config entries")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetEntry returns a single configuration entry.
// GET /api/v1/system/tenant/{tenantID}/config/{key}
func (h *TenantConfigHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	key := chi.URLParam(r, "key")

	entry, err := h.store.Get(r.Context(), tenantID, key)
	if err != nil {
		writeStoreError(w, err, "Failed to read config entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// upsertRequest is the payload for creating or updating a config entry.
type upsertRequest struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

// CreateEntry inserts a configuration entry, keeping the existing value when
// the key is already present.
// POST /api/v1/system/tenant/{tenantID}/config/{key}
func (h *TenantConfigHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	h.upsert(w, r, configstore.UpsertIgnore)
}

// PutEntry inserts or overwrites a configuration entry.
// PUT /api/v1/system/tenant/{tenantID}/config/{key}
func (h *TenantConfigHandler) PutEntry(w http.ResponseWriter, r *http.Request) {
	h.upsert(w, r, configstore.UpsertOverwrite)
}

func (h *TenantConfigHandler) upsert(w http.ResponseWriter, r *http.Request, mode configstore.UpsertMode) {
	tenantID := chi.URLParam(r, "tenantID")
	key := chi.URLParam(r, "key")

	var req upsertRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	value := req.Value
	// Tenant tokens are stored hashed; raw tokens never reach the store.
	if key == model.KeyAPIToken {
		value = service.HashToken(value)
	}

	entry := &model.TenantConfigEntry{
		TenantID:    tenantID,
		ConfigKey:   key,
		Value:       value,
		Description: req.Description,
	}
	if err := h.store.Upsert(r.Context(), entry, mode); err != nil {
		writeStoreError(w, err, "Failed to save config entry")
		return
	}

	h.router.Invalidate(tenantID)

	saved, err := h.store.Get(r.Context(), tenantID, key)
	if err != nil {
		writeStoreError(w, err, "Failed to read back config entry")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteEntry removes a configuration entry.
// DELETE /api/v1/system/tenant/{tenantID}/config/{key}
func (h *TenantConfigHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	key := chi.URLParam(r, "key")

	if err := h.store.Delete(r.Context(), tenantID, key); err != nil {
		writeStoreError(w, err, "Failed to delete config entry")
		return
	}

	h.router.Invalidate(tenantID)
	w.WriteHeader(http.StatusNoContent)
}

// writeStoreError maps config store error classes to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, configstore.ErrNotFound):
		writeError(w, http.StatusNotFound, fallbackMsg+": not found")
	case errors.Is(err, configstore.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, fallbackMsg+": "+err.Error())
	case errors.Is(err, configstore.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, fallbackMsg+": "+err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallbackMsg+": "+err.Error())
	}
}
