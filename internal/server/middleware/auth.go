package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sluicedb/sluice/internal/service"
)

type contextKeyAuth string

const (
	// AuthPrincipalKey is the context key for the authenticated principal.
	AuthPrincipalKey contextKeyAuth = "auth_principal"
)

// Principal represents the authenticated identity making the request.
type Principal struct {
	Type       string // "operator" or "integrator"
	TenantID   string
	Subject    string
	IsOperator bool
}

// Authenticate returns an HTTP middleware that validates the request's
// authentication credentials. It supports two methods:
//
//  1. JWT Bearer token via the Authorization header (operators; valid for
//     any tenant)
//  2. Tenant token via the X-API-Key header (integrators; scoped to the
//     tenant named in the URL)
//
// On success, a Principal is attached to the request context. On failure,
// a 401 JSON error response is returned.
func Authenticate(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var principal *Principal

			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token := strings.TrimPrefix(authHeader, "Bearer ")
				p, err := authSvc.ValidateJWT(r.Context(), token)
				if err != nil {
					writeAuthError(w, http.StatusUnauthorized, "Invalid token")
					return
				}
				principal = &Principal{
					Type:       "operator",
					Subject:    p.Subject,
					IsOperator: true,
				}
			}

			if principal == nil {
				apiKey := r.Header.Get("X-API-Key")
				if apiKey != "" {
					tenantID := chi.URLParam(r, "tenantID")
					p, err := authSvc.ValidateTenantToken(r.Context(), tenantID, apiKey)
					if err != nil {
						writeAuthError(w, http.StatusUnauthorized, "Invalid tenant token")
						return
					}
					principal = &Principal{
						Type:     "integrator",
						TenantID: p.TenantID,
					}
				}
			}

			if principal == nil {
				writeAuthError(w, http.StatusUnauthorized,
					"Authentication required. Provide X-API-Key header or Bearer token.")
				return
			}

			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOperator returns an HTTP middleware that enforces operator-level
// access. It must be used after Authenticate in the middleware chain.
func RequireOperator() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil || !principal.IsOperator {
				writeAuthError(w, http.StatusForbidden, "Operator access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present (i.e., unauthenticated request).
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Manually construct JSON to avoid import cycle with handler package
	w.Write([]byte(`{"error":{"code":` + httpStatusString(status) + `,"message":"` + message + `"}}`))
}

func httpStatusString(code int) string {
	switch code {
	case 401:
		return "401"
	case 403:
		return "403"
	default:
		return "500"
	}
}
