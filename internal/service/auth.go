// Package service holds the gateway's application services.
package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sluicedb/sluice/internal/configstore"
	"github.com/sluicedb/sluice/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
)

// TenantPrincipal identifies an authenticated integrator acting for one
// tenant.
type TenantPrincipal struct {
	TenantID string
}

// JWTPrincipal identifies an authenticated operator.
type JWTPrincipal struct {
	Subject string
	Email   string
}

// AuthService authenticates integrator tokens against the config store and
// operator JWTs against the shared secret.
type AuthService struct {
	store     *configstore.Store
	jwtSecret []byte
}

func NewAuthService(store *configstore.Store, jwtSecret string) *AuthService {
	return &AuthService{
		store:     store,
		jwtSecret: []byte(jwtSecret),
	}
}

// ValidateTenantToken checks an integrator's raw token against the tenant's
// stored api_token hash. Tenants with no api_token entry reject every token.
func (s *AuthService) ValidateTenantToken(ctx context.Context, tenantID, rawToken string) (*TenantPrincipal, error) {
	if tenantID == "" || rawToken == "" {
		return nil, ErrInvalidCredentials
	}

	entry, err := s.store.Get(ctx, tenantID, model.KeyAPIToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	hash := HashToken(rawToken)
	if subtle.ConstantTimeCompare([]byte(hash), []byte(entry.Value)) != 1 {
		return nil, ErrInvalidCredentials
	}

	return &TenantPrincipal{TenantID: tenantID}, nil
}

// ValidateJWT verifies an operator bearer token.
func (s *AuthService) ValidateJWT(ctx context.Context, tokenStr string) (*JWTPrincipal, error) {
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidCredentials
	}

	if !token.Valid {
		return nil, ErrInvalidCredentials
	}

	return &JWTPrincipal{
		Subject: claims.Subject,
		Email:   claims.Email,
	}, nil
}

// IssueJWT creates a new signed operator token.
func (s *AuthService) IssueJWT(ctx context.Context, subject, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "sluice",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

type jwtClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// HashToken returns the hex SHA-256 of a raw token. The config store holds
// only hashes; raw tokens exist on the integrator's side and in transit.
func HashToken(rawToken string) string {
	h := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(h[:])
}
