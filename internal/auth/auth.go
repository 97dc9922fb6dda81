// Package auth resolves the per-request principal header into a principal
// id and declared rate-limit tier. RiskMesh has no authentication policy of
// its own beyond this key-to-bucket mapping.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// ErrUnknownPrincipal is returned when the header is absent, the token
// cannot be verified, or it carries no principal. The gateway answers it
// with 401 before the rate limiter is consulted.
var ErrUnknownPrincipal = errors.New("auth: unknown or missing principal")

// Claims is the payload carried by a principal API-key token.
type Claims struct {
	Principal string `json:"principal"`
	Tier      string `json:"tier"`
	jwt.RegisteredClaims
}

// Resolver parses the signed API-key token from the request header.
type Resolver struct {
	secret []byte
	header string
}

func New(secret []byte, header string) *Resolver {
	if header == "" {
		header = "X-RiskMesh-Principal"
	}
	return &Resolver{secret: secret, header: header}
}

// Resolve extracts and validates the principal token from r. It never
// fabricates a principal for an absent or invalid header — callers must
// treat the error as unknown-principal, not an internal failure.
func (a *Resolver) Resolve(r *http.Request) (principal, tier string, err error) {
	raw := strings.TrimSpace(r.Header.Get(a.header))
	if raw == "" {
		return "", "", ErrUnknownPrincipal
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("auth: unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return "", "", ErrUnknownPrincipal
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Principal == "" {
		return "", "", ErrUnknownPrincipal
	}
	return claims.Principal, claims.Tier, nil
}
