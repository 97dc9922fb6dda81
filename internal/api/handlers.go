package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/riskmesh/riskmesh/internal/analytics"
	"github.com/riskmesh/riskmesh/internal/auth"
	"github.com/riskmesh/riskmesh/internal/cache"
	"github.com/riskmesh/riskmesh/internal/engine"
	"github.com/riskmesh/riskmesh/internal/graph"
	"github.com/riskmesh/riskmesh/internal/health"
	"github.com/riskmesh/riskmesh/internal/metrics"
	"github.com/riskmesh/riskmesh/internal/ratelimit"
	"github.com/riskmesh/riskmesh/pkg/models"
)

// Dependencies collects everything a handler needs. The gateway never
// constructs these itself — main wires them once at startup.
type Dependencies struct {
	Engine     *engine.Engine
	Store      *graph.Store
	Cache      *cache.Cache
	Analytics  *analytics.Queries
	Auth       *auth.Resolver
	RateLimit  *ratelimit.Limiter
	Health     *health.Checker
	Metrics    *metrics.Metrics
}

type scoreRequest struct {
	UserID     string  `json:"user_id"`
	DeviceID   string  `json:"device_id"`
	IP         string  `json:"ip_address"`
	MerchantID string  `json:"merchant_id"`
	CardID     string  `json:"card_id,omitempty"`
	Amount     float64 `json:"transaction_amount"`
	Currency   string  `json:"currency,omitempty"`
}

// handleScore is the ingest endpoint: resolve the principal, rate-limit,
// and run the event through the engine.
func (g *Gateway) handleScore(w http.ResponseWriter, r *http.Request) {
	principal, tier, err := g.deps.Auth.Resolve(r)
	if err != nil {
		if errors.Is(err, auth.ErrUnknownPrincipal) {
			g.incError("unauthorized")
			writeError(w, http.StatusUnauthorized, "UNKNOWN_PRINCIPAL", "request principal could not be resolved")
			return
		}
		g.incError("unauthorized")
		writeError(w, http.StatusUnauthorized, "AUTH_ERROR", err.Error())
		return
	}

	if allowed, retryAfter := g.deps.RateLimit.Allow(principal); !allowed {
		g.incError("rate_limited")
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests for this principal")
		return
	}
	_ = tier

	var req scoreRequest
	if err := parseJSON(r, &req); err != nil {
		g.incError("validation")
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	ev := models.TransactionEvent{
		UserID:     req.UserID,
		DeviceID:   req.DeviceID,
		IP:         req.IP,
		MerchantID: req.MerchantID,
		CardID:     req.CardID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Timestamp:  time.Now(),
		Principal:  principal,
	}

	result, err := g.deps.Engine.Process(r.Context(), ev)
	if err != nil {
		var verr *engine.ValidationError
		if errors.As(err, &verr) {
			g.incError("validation")
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error())
			return
		}
		g.incError("internal")
		writeError(w, http.StatusInternalServerError, "SCORING_ERROR", "failed to score transaction")
		return
	}

	writeSuccess(w, result)
}

// incError increments the errors-by-class counter. Metrics is optional
// (nil in tests that don't wire it), so this is always safe to call.
func (g *Gateway) incError(class string) {
	if g.deps.Metrics == nil {
		return
	}
	g.deps.Metrics.ErrorsTotal.WithLabelValues(class).Inc()
}

// handleStats reports the graph's coarse size, used by operators to watch
// growth.
func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	nodes, edges := g.deps.Store.Stats()
	writeSuccess(w, map[string]int{"nodes": nodes, "edges": edges})
}

func (g *Gateway) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, g.deps.Cache.Stats())
}

func (g *Gateway) handleRiskHistogram(w http.ResponseWriter, r *http.Request) {
	buckets, err := g.deps.Analytics.RiskHistogram(r.Context())
	if err != nil {
		g.incError("internal")
		writeError(w, http.StatusInternalServerError, "ANALYTICS_ERROR", err.Error())
		return
	}
	writeSuccess(w, buckets)
}

func (g *Gateway) handleTopRiskyUsers(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	users, err := g.deps.Analytics.TopRiskyUsers(r.Context(), limit)
	if err != nil {
		g.incError("internal")
		writeError(w, http.StatusInternalServerError, "ANALYTICS_ERROR", err.Error())
		return
	}
	writeSuccess(w, users)
}

func (g *Gateway) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	id := muxVar(r, "id")
	if id == "" {
		g.incError("validation")
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "user id required")
		return
	}
	profile, err := g.deps.Analytics.UserProfile(r.Context(), id)
	if err != nil {
		g.incError("internal")
		writeError(w, http.StatusInternalServerError, "ANALYTICS_ERROR", err.Error())
		return
	}
	writeSuccess(w, profile)
}

func (g *Gateway) handlePerformanceSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := g.deps.Analytics.PerformanceSummary(r.Context())
	if err != nil {
		g.incError("internal")
		writeError(w, http.StatusInternalServerError, "ANALYTICS_ERROR", err.Error())
		return
	}
	writeSuccess(w, summary)
}
