package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/riskmesh/riskmesh/internal/api"
	"github.com/riskmesh/riskmesh/internal/auth"
	"github.com/riskmesh/riskmesh/internal/health"
	"github.com/riskmesh/riskmesh/internal/ratelimit"
)

var testSecret = []byte("secret")

func signedToken(t *testing.T, principal string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{Principal: principal})
	signed, err := tok.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func newTestGateway(deps api.Dependencies) *api.Gateway {
	if deps.Health == nil {
		deps.Health = health.NewChecker()
	}
	cfg := api.DefaultGatewayConfig()
	cfg.EnableCORS = false
	return api.NewGateway(cfg, deps)
}

func TestHandleScoreRejectsMissingPrincipal(t *testing.T) {
	deps := api.Dependencies{
		Auth:      auth.New([]byte("secret"), ""),
		RateLimit: ratelimit.New(ratelimit.Limits{DefaultCapacity: 10, DefaultWindow: time.Minute}),
	}
	g := newTestGateway(deps)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/score", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	g.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "UNKNOWN_PRINCIPAL")
}

func TestHandleScoreRejectsUnknownPrincipalUnderDenyUnknown(t *testing.T) {
	deps := api.Dependencies{
		Auth: auth.New([]byte("secret"), ""),
		RateLimit: ratelimit.New(ratelimit.Limits{
			DefaultCapacity: 10, DefaultWindow: time.Minute, DenyUnknown: true,
		}),
	}
	g := newTestGateway(deps)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/score", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	g.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code, "missing header is rejected by auth before rate limiting runs")
}

func TestHandleScoreRateLimitsExhaustedBucket(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Limits{
		PerPrincipal: map[string]ratelimit.PrincipalLimit{
			"dashboard": {Capacity: 1, Window: time.Minute},
		},
		DenyUnknown: false,
	})
	deps := api.Dependencies{
		Auth:      auth.New(testSecret, ""),
		RateLimit: limiter,
	}
	g := newTestGateway(deps)

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/score", strings.NewReader(`{}`))
		req.Header.Set("X-RiskMesh-Principal", signedToken(t, "dashboard"))
		return req
	}

	// First request consumes the bucket's single token and fails downstream
	// (no engine wired), but must not be rate-limited.
	w1 := httptest.NewRecorder()
	g.Router().ServeHTTP(w1, newReq())
	require.NotEqual(t, http.StatusTooManyRequests, w1.Code)

	w2 := httptest.NewRecorder()
	g.Router().ServeHTTP(w2, newReq())
	require.Equal(t, http.StatusTooManyRequests, w2.Code)
	require.NotEmpty(t, w2.Header().Get("Retry-After"))
}

func TestLivezAlwaysOK(t *testing.T) {
	g := newTestGateway(api.Dependencies{})
	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	w := httptest.NewRecorder()
	g.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
