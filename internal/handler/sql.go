package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sluicedb/sluice/internal/model"
	"github.com/sluicedb/sluice/internal/router"
)

// SQLHandler serves the raw SQL execution path. Statement outcomes — success
// or engine failure — are always HTTP 200 with a {status, message} body;
// only malformed requests and routing failures map to HTTP errors.
type SQLHandler struct {
	router *router.Router
}

// NewSQLHandler creates a new SQLHandler.
func NewSQLHandler(rt *router.Router) *SQLHandler {
	return &SQLHandler{router: rt}
}

// Execute runs one SQL statement against the tenant database.
// POST /api/v1/sql/{tenantID}
func (h *SQLHandler) Execute(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req model.SQLRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		writeError(w, http.StatusBadRequest, "sql is required")
		return
	}

	target, err := h.router.Target(r.Context(), tenantID)
	if err != nil {
		writeRoutingError(w, tenantID, err)
		return
	}

	result := target.Execute(r.Context(), req.SQL)
	writeJSON(w, http.StatusOK, result)
}
