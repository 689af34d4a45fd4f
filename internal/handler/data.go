// Package handler holds the HTTP endpoints of the gateway.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sluicedb/sluice/internal/model"
	"github.com/sluicedb/sluice/internal/router"
	"github.com/sluicedb/sluice/internal/schema"
)

// DataHandler serves the replication path: integrators push record batches
// and read back what landed.
type DataHandler struct {
	router *router.Router
}

// NewDataHandler creates a new DataHandler.
func NewDataHandler(rt *router.Router) *DataHandler {
	return &DataHandler{router: rt}
}

// Apply receives a record batch and replicates it into the tenant database,
// creating or extending the target table as needed.
// POST /api/v1/data/{tenantID}
func (h *DataHandler) Apply(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var payload model.DataPayload
	if err := readJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if payload.TableName == "" {
		writeError(w, http.StatusBadRequest, "table_name is required")
		return
	}

	rep, err := h.router.Replicator(r.Context(), tenantID)
	if err != nil {
		writeRoutingError(w, tenantID, err)
		return
	}

	report, err := rep.Apply(r.Context(), tenantID, payload)
	if err != nil {
		status, msg := classifyDBError(err, "Replication failed")
		writeError(w, status, msg, map[string]interface{}{
			"tenant_id":       tenantID,
			"records_applied": report.Applied,
		})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Read returns rows from a replicated table, bounded by the limit query
// parameter. The bound is applied in the SQL so large tables are never
// materialized in full.
// GET /api/v1/data/{tenantID}/{tableName}
func (h *DataHandler) Read(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	tenantID := chi.URLParam(r, "tenantID")

	tableName, err := schema.NormalizeIdentifier(chi.URLParam(r, "tableName"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid table name: "+err.Error())
		return
	}

	conn, err := h.router.Connector(r.Context(), tenantID)
	if err != nil {
		writeRoutingError(w, tenantID, err)
		return
	}
	target, err := h.router.Target(r.Context(), tenantID)
	if err != nil {
		writeRoutingError(w, tenantID, err)
		return
	}

	// limit is clamped to a known integer range, so it is safe to inline.
	limit := clampInt(queryInt(r, "limit", 100), 1, 1000)
	quoted := conn.QuoteIdentifier(tableName)
	var query string
	if conn.DriverName() == "mssql" {
		query = fmt.Sprintf("SELECT TOP %d * FROM %s", limit, quoted)
	} else {
		query = fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoted, limit)
	}

	rows, err := target.Query(r.Context(), query)
	if err != nil {
		status, msg := classifyDBError(err, "Read failed")
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: rows,
		Meta: &model.ResponseMeta{
			Count:  len(rows),
			TookMs: float64(time.Since(start).Microseconds()) / 1000.0,
		},
	})
}

// Tables lists the tables present in the tenant database.
// GET /api/v1/data/{tenantID}
func (h *DataHandler) Tables(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	conn, err := h.router.Connector(r.Context(), tenantID)
	if err != nil {
		writeRoutingError(w, tenantID, err)
		return
	}

	names, err := conn.TableNames(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tables: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: stringsToResources("name", names),
	})
}

// writeRoutingError distinguishes unconfigured tenants from transport
// failures when resolving a tenant connection.
func writeRoutingError(w http.ResponseWriter, tenantID string, err error) {
	if errors.Is(err, router.ErrTenantNotConfigured) {
		writeError(w, http.StatusNotFound, "Tenant not configured: "+tenantID)
		return
	}
	writeError(w, http.StatusBadGateway, "Tenant database unavailable: "+err.Error())
}
