package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sluicedb/sluice/internal/configstore"
	"github.com/sluicedb/sluice/internal/connector"
	"github.com/sluicedb/sluice/internal/connector/sqlite"
	"github.com/sluicedb/sluice/internal/model"
	"github.com/sluicedb/sluice/internal/router"
	"github.com/sluicedb/sluice/internal/service"
)

const testTenantToken = "sluice_integration_token"

func newTestServer(t *testing.T) (*Server, *service.AuthService) {
	t.Helper()

	store, err := configstore.Open(configstore.DriverSQLite, "")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	seed := map[string]string{
		model.KeyDriver:   "sqlite",
		model.KeyDSN:      ":memory:",
		model.KeyAPIToken: service.HashToken(testTenantToken),
	}
	for k, v := range seed {
		e := &model.TenantConfigEntry{TenantID: "acme", ConfigKey: k, Value: v}
		if err := store.Upsert(ctx, e, configstore.UpsertOverwrite); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}

	registry := connector.NewRegistry()
	registry.RegisterDriver("sqlite", sqlite.New)
	t.Cleanup(registry.CloseAll)

	logger := slog.New(slog.DiscardHandler)
	tenants := router.New(store, registry, logger)
	authSvc := service.NewAuthService(store, "test-jwt-secret")

	cfg := DefaultConfig()
	cfg.RateLimit = 0
	return New(cfg, registry, store, tenants, authSvc, logger), authSvc
}

func doJSON(t *testing.T, s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func integratorHeaders() map[string]string {
	return map[string]string{"X-API-Key": testTenantToken}
}

func operatorHeaders(t *testing.T, authSvc *service.AuthService) map[string]string {
	t.Helper()
	token, err := authSvc.IssueJWT(context.Background(), "ops", "ops@example.com", time.Hour)
	if err != nil {
		t.Fatalf("issue jwt: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected ok status, got %v", body["status"])
	}
}

func TestDataApplyAndRead(t *testing.T) {
	s, _ := newTestServer(t)

	payload := `{"table_name":"devices","records":[{"id":"d1","name":"press"},{"id":"d2","name":"lathe"}]}`
	rec := doJSON(t, s, http.MethodPost, "/api/v1/data/acme", payload, integratorHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("apply: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var report model.ApplyReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Applied != 2 || !report.TableCreated {
		t.Errorf("unexpected report: %+v", report)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/data/acme/devices", "", integratorHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("read: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var list model.ListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Resource) != 2 {
		t.Errorf("expected 2 rows, got %d", len(list.Resource))
	}
}

func TestDataReadHonorsLimit(t *testing.T) {
	s, _ := newTestServer(t)

	payload := `{"table_name":"parts","records":[{"id":"p1"},{"id":"p2"},{"id":"p3"}]}`
	rec := doJSON(t, s, http.MethodPost, "/api/v1/data/acme", payload, integratorHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("apply: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/data/acme/parts?limit=2", "", integratorHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("read: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var list model.ListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Resource) != 2 {
		t.Errorf("expected 2 rows under limit, got %d", len(list.Resource))
	}
	if list.Meta == nil || list.Meta.Count != 2 {
		t.Errorf("expected meta count 2, got %+v", list.Meta)
	}
}

func TestDataApplyRejectsMissingTable(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/data/acme",
		`{"records":[{"id":"d1"}]}`, integratorHeaders())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSQLExecuteSuccess(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/sql/acme",
		`{"sql":"CREATE TABLE notes (id TEXT PRIMARY KEY)"}`, integratorHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result model.ExecResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Status != model.StatusSuccess {
		t.Errorf("expected success, got %+v", result)
	}
}

func TestSQLExecuteFaultStaysHTTP200(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/sql/acme",
		`{"sql":"SELEC broken"}`, integratorHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("statement faults must not become HTTP errors; got %d", rec.Code)
	}

	var result model.ExecResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Status != model.StatusError || result.Message == "" {
		t.Errorf("expected error result with diagnostic, got %+v", result)
	}
}

func TestSQLExecuteEmptyStatement(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/sql/acme", `{"sql":"  "}`, integratorHeaders())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestUnknownTenantIs404(t *testing.T) {
	s, authSvc := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/sql/ghost",
		`{"sql":"SELECT 1"}`, operatorHeaders(t, authSvc))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unconfigured tenant, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUnauthenticatedRejected(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/data/acme",
		`{"table_name":"devices","records":[]}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestSystemRequiresOperator(t *testing.T) {
	s, authSvc := newTestServer(t)

	// Integrator credentials are rejected on system routes: no tenant ID in
	// the URL means the token cannot be validated.
	rec := doJSON(t, s, http.MethodGet, "/api/v1/system/tenant", "", integratorHeaders())
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for integrator on system route, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/system/tenant", "", operatorHeaders(t, authSvc))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for operator, got %d: %s", rec.Code, rec.Body.String())
	}

	var list model.ListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Resource) != 1 || list.Resource[0]["tenant_id"] != "acme" {
		t.Errorf("expected [acme], got %v", list.Resource)
	}
}

func TestSystemConfigLifecycle(t *testing.T) {
	s, authSvc := newTestServer(t)
	ops := operatorHeaders(t, authSvc)

	// Create keeps the first value.
	rec := doJSON(t, s, http.MethodPost, "/api/v1/system/tenant/globex/config/db_driver",
		`{"value":"sqlite"}`, ops)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/system/tenant/globex/config/db_driver",
		`{"value":"postgres"}`, ops)
	if rec.Code != http.StatusOK {
		t.Fatalf("re-create: expected 200, got %d", rec.Code)
	}
	var entry model.TenantConfigEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry.Value != "sqlite" {
		t.Errorf("POST must not overwrite; got %q", entry.Value)
	}

	// Put overwrites.
	rec = doJSON(t, s, http.MethodPut, "/api/v1/system/tenant/globex/config/db_driver",
		`{"value":"postgres"}`, ops)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry.Value != "postgres" {
		t.Errorf("PUT must overwrite; got %q", entry.Value)
	}

	// Delete then 404 on read.
	rec = doJSON(t, s, http.MethodDelete, "/api/v1/system/tenant/globex/config/db_driver", "", ops)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/v1/system/tenant/globex/config/db_driver", "", ops)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}
