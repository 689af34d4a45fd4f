package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/sluicedb/sluice/internal/model"
)

// writeJSON encodes v and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error envelope. An optional ctx map adds
// context fields (tenant ID, partial apply counts) to the error detail.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// readJSON decodes the request body into v, closing the body either way.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryInt reads an integer query parameter, falling back to defaultVal
// when the parameter is absent or malformed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// stringsToResources wraps each value in a single-key object so list
// endpoints return [{"key": v1}, {"key": v2}, ...].
func stringsToResources(key string, values []string) []map[string]interface{} {
	out := make([]map[string]interface{}, len(values))
	for i, v := range values {
		out[i] = map[string]interface{}{key: v}
	}
	return out
}

// dbErrorRule maps substrings of driver error text to an HTTP status.
// Tenant databases span four engines, so each class lists every engine's
// phrasing for the same condition.
type dbErrorRule struct {
	status  int
	markers []string
}

var dbErrorRules = []dbErrorRule{
	// unique / duplicate key
	{http.StatusConflict, []string{"unique constraint", "duplicate key", "duplicate entry", "violation of unique"}},
	// NOT NULL
	{http.StatusBadRequest, []string{"not null constraint", "cannot insert null", "null value in column", "column cannot be null"}},
	// missing table
	{http.StatusNotFound, []string{"no such table", "does not exist", "invalid object name", "doesn't exist"}},
	// referential and check constraints
	{http.StatusBadRequest, []string{"foreign key", "fk constraint", "check constraint"}},
	// tenant database unreachable or overloaded
	{http.StatusBadGateway, []string{"connection refused", "connection reset", "no such host", "too many connections"}},
	{http.StatusGatewayTimeout, []string{"timeout", "timed out"}},
}

// classifyDBError maps a driver error to an HTTP status and a message
// prefixed with fallbackMsg. Unrecognized errors become 500s.
func classifyDBError(err error, fallbackMsg string) (int, string) {
	lower := strings.ToLower(err.Error())
	for _, rule := range dbErrorRules {
		for _, m := range rule.markers {
			if strings.Contains(lower, m) {
				return rule.status, fallbackMsg + ": " + err.Error()
			}
		}
	}
	return http.StatusInternalServerError, fallbackMsg + ": " + err.Error()
}

// clampInt constrains val to [min, max].
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
