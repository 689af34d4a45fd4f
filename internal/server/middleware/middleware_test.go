package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sluicedb/sluice/internal/configstore"
	"github.com/sluicedb/sluice/internal/model"
	"github.com/sluicedb/sluice/internal/service"
)

func newTestAuth(t *testing.T) *service.AuthService {
	t.Helper()
	store, err := configstore.Open(configstore.DriverSQLite, "")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	entry := &model.TenantConfigEntry{
		TenantID:  "acme",
		ConfigKey: model.KeyAPIToken,
		Value:     service.HashToken("tenant-secret"),
	}
	if err := store.Upsert(context.Background(), entry, configstore.UpsertOverwrite); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	return service.NewAuthService(store, "test-jwt-secret")
}

func tenantRouter(authSvc *service.AuthService, next http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Route("/t/{tenantID}", func(r chi.Router) {
		r.Use(Authenticate(authSvc))
		r.Get("/", next)
	})
	return r
}

func TestRequestIDGenerated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Error("expected a generated request ID in context")
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Error("response header should carry the same request ID")
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-supplied")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "client-supplied" {
		t.Errorf("expected client ID to pass through, got %q", got)
	}
}

func TestAuthenticateTenantToken(t *testing.T) {
	authSvc := newTestAuth(t)

	var principal *Principal
	h := tenantRouter(authSvc, func(w http.ResponseWriter, r *http.Request) {
		principal = GetPrincipal(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/t/acme/", nil)
	req.Header.Set("X-API-Key", "tenant-secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if principal == nil || principal.TenantID != "acme" || principal.IsOperator {
		t.Errorf("unexpected principal: %+v", principal)
	}
}

func TestAuthenticateWrongTenantToken(t *testing.T) {
	authSvc := newTestAuth(t)
	h := tenantRouter(authSvc, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/t/acme/", nil)
	req.Header.Set("X-API-Key", "not-the-secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticateTokenForOtherTenant(t *testing.T) {
	authSvc := newTestAuth(t)
	h := tenantRouter(authSvc, func(w http.ResponseWriter, r *http.Request) {})

	// Valid token for "acme" presented against another tenant's route.
	req := httptest.NewRequest(http.MethodGet, "/t/globex/", nil)
	req.Header.Set("X-API-Key", "tenant-secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticateOperatorJWT(t *testing.T) {
	authSvc := newTestAuth(t)

	token, err := authSvc.IssueJWT(context.Background(), "ops", "ops@example.com", time.Hour)
	if err != nil {
		t.Fatalf("issue jwt: %v", err)
	}

	var principal *Principal
	h := tenantRouter(authSvc, func(w http.ResponseWriter, r *http.Request) {
		principal = GetPrincipal(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/t/acme/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if principal == nil || !principal.IsOperator {
		t.Errorf("expected operator principal, got %+v", principal)
	}
}

func TestAuthenticateMissingCredentials(t *testing.T) {
	authSvc := newTestAuth(t)
	h := tenantRouter(authSvc, func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/t/acme/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequireOperator(t *testing.T) {
	handler := RequireOperator()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	// Integrator principal is forbidden.
	ctx := context.WithValue(context.Background(), AuthPrincipalKey,
		&Principal{Type: "integrator", TenantID: "acme"})
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for integrator, got %d", rec.Code)
	}

	// Operator principal passes.
	ctx = context.WithValue(context.Background(), AuthPrincipalKey,
		&Principal{Type: "operator", IsOperator: true})
	req = httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for operator, got %d", rec.Code)
	}
}
