package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sluicedb/sluice/internal/configstore"
	"github.com/sluicedb/sluice/internal/model"
)

func newTestAuth(t *testing.T) (*AuthService, *configstore.Store) {
	t.Helper()
	store, err := configstore.Open(configstore.DriverSQLite, "")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	auth := NewAuthService(store, "test-secret-key-for-jwt")
	return auth, store
}

func TestJWTRoundTrip(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	token, err := auth.IssueJWT(ctx, "ops", "admin@example.com", 1*time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	principal, err := auth.ValidateJWT(ctx, token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if principal.Subject != "ops" {
		t.Errorf("Subject: got %q, want %q", principal.Subject, "ops")
	}
	if principal.Email != "admin@example.com" {
		t.Errorf("Email: got %q, want %q", principal.Email, "admin@example.com")
	}
}

func TestJWTExpired(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	token, err := auth.IssueJWT(ctx, "ops", "test@test.com", -1*time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}

	if _, err := auth.ValidateJWT(ctx, token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTInvalidToken(t *testing.T) {
	auth, _ := newTestAuth(t)

	if _, err := auth.ValidateJWT(context.Background(), "garbage.token.here"); err == nil {
		t.Fatal("expected error for invalid token")
	}
}

func TestTenantTokenValidation(t *testing.T) {
	auth, store := newTestAuth(t)
	ctx := context.Background()

	rawToken := "sluice_test_token_abcdef123456"
	entry := &model.TenantConfigEntry{
		TenantID:  "acme",
		ConfigKey: model.KeyAPIToken,
		Value:     HashToken(rawToken),
	}
	if err := store.Upsert(ctx, entry, configstore.UpsertOverwrite); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	principal, err := auth.ValidateTenantToken(ctx, "acme", rawToken)
	if err != nil {
		t.Fatalf("ValidateTenantToken: %v", err)
	}
	if principal.TenantID != "acme" {
		t.Errorf("TenantID: got %q, want %q", principal.TenantID, "acme")
	}

	if _, err := auth.ValidateTenantToken(ctx, "acme", "wrong_token"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestTenantTokenUnknownTenant(t *testing.T) {
	auth, _ := newTestAuth(t)

	if _, err := auth.ValidateTenantToken(context.Background(), "ghost", "any"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestTenantTokenEmptyInputs(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	if _, err := auth.ValidateTenantToken(ctx, "", "tok"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for empty tenant, got %v", err)
	}
	if _, err := auth.ValidateTenantToken(ctx, "acme", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for empty token, got %v", err)
	}
}
