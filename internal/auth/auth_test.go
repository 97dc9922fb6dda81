package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/riskmesh/riskmesh/internal/auth"
)

var secret = []byte("test-signing-secret")

func signToken(t *testing.T, claims auth.Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestResolveValidToken(t *testing.T) {
	r := auth.New(secret, "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/score", nil)
	req.Header.Set("X-RiskMesh-Principal", signToken(t, auth.Claims{
		Principal: "dashboard",
		Tier:      "internal",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}))

	principal, tier, err := r.Resolve(req)
	require.NoError(t, err)
	require.Equal(t, "dashboard", principal)
	require.Equal(t, "internal", tier)
}

func TestResolveMissingHeaderIsUnknown(t *testing.T) {
	r := auth.New(secret, "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/score", nil)

	_, _, err := r.Resolve(req)
	require.ErrorIs(t, err, auth.ErrUnknownPrincipal)
}

func TestResolveWrongSecretIsUnknown(t *testing.T) {
	r := auth.New(secret, "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/score", nil)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{Principal: "dashboard"})
	signed, err := tok.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)
	req.Header.Set("X-RiskMesh-Principal", signed)

	_, _, err = r.Resolve(req)
	require.ErrorIs(t, err, auth.ErrUnknownPrincipal)
}

func TestResolveRejectsNoneAlgorithm(t *testing.T) {
	r := auth.New(secret, "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/score", nil)

	tok := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{Principal: "dashboard"})
	signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	req.Header.Set("X-RiskMesh-Principal", signed)

	_, _, err = r.Resolve(req)
	require.ErrorIs(t, err, auth.ErrUnknownPrincipal)
}

func TestResolveCustomHeaderName(t *testing.T) {
	r := auth.New(secret, "X-Custom-Principal")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/score", nil)
	req.Header.Set("X-Custom-Principal", signToken(t, auth.Claims{Principal: "svc"}))

	principal, _, err := r.Resolve(req)
	require.NoError(t, err)
	require.Equal(t, "svc", principal)
}

func TestResolveEmptyPrincipalClaimIsUnknown(t *testing.T) {
	r := auth.New(secret, "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/score", nil)
	req.Header.Set("X-RiskMesh-Principal", signToken(t, auth.Claims{Principal: ""}))

	_, _, err := r.Resolve(req)
	require.ErrorIs(t, err, auth.ErrUnknownPrincipal)
}
