// Package api exposes RiskMesh's scoring engine and its read-only
// analytics over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Gateway wires the HTTP surface to the engine, analytics, cache, and
// health checker.
type Gateway struct {
	server *http.Server
	router *mux.Router

	config     GatewayConfig
	middleware []Middleware
	metrics    *GatewayMetrics

	deps Dependencies
}

// GatewayConfig mirrors the teacher's server-tuning knobs, trimmed to what
// this gateway actually uses.
type GatewayConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
	IdleTimeout    time.Duration `json:"idle_timeout"`
	EnableCORS     bool          `json:"enable_cors"`
	AllowedOrigins []string      `json:"allowed_origins"`
	MaxRequestSize int64         `json:"max_request_size"`
}

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		EnableCORS:     true,
		AllowedOrigins: []string{"*"},
		MaxRequestSize: 1 << 20,
	}
}

type Middleware func(http.Handler) http.Handler

// GatewayMetrics is the in-process request counter kept by
// metricsMiddleware, independent of the Prometheus registry. No endpoint
// reports it.
type GatewayMetrics struct {
	mu               sync.Mutex
	RequestsTotal    int64            `json:"requests_total"`
	RequestsByPath   map[string]int64 `json:"requests_by_path"`
	RequestsByStatus map[int]int64    `json:"requests_by_status"`
	LastRequest      time.Time        `json:"last_request"`
}

func NewGateway(config GatewayConfig, deps Dependencies) *Gateway {
	router := mux.NewRouter()

	g := &Gateway{
		router:     router,
		config:     config,
		middleware: make([]Middleware, 0),
		metrics: &GatewayMetrics{
			RequestsByPath:   make(map[string]int64),
			RequestsByStatus: make(map[int]int64),
		},
		deps: deps,
	}

	g.setupRoutes()
	g.setupMiddleware()

	g.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return g
}

func (g *Gateway) setupRoutes() {
	api := g.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/score", g.handleScore).Methods("POST")
	api.HandleFunc("/stats", g.handleStats).Methods("GET")
	api.HandleFunc("/cache/stats", g.handleCacheStats).Methods("GET")

	analytics := api.PathPrefix("/analytics").Subrouter()
	analytics.HandleFunc("/histogram", g.handleRiskHistogram).Methods("GET")
	analytics.HandleFunc("/top-risky", g.handleTopRiskyUsers).Methods("GET")
	analytics.HandleFunc("/users/{id}", g.handleUserProfile).Methods("GET")
	analytics.HandleFunc("/performance", g.handlePerformanceSummary).Methods("GET")

	g.router.HandleFunc("/healthz", g.deps.Health.ReadinessHandler()).Methods("GET")
	g.router.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")
	if g.deps.Metrics != nil {
		g.router.Handle("/metrics", g.deps.Metrics.Handler()).Methods("GET")
	}
}

func (g *Gateway) setupMiddleware() {
	for i := len(g.middleware) - 1; i >= 0; i-- {
		g.router.Use(g.middleware[i])
	}
	if g.config.EnableCORS {
		g.setupCORS()
	}
	g.router.Use(g.metricsMiddleware)
}

func (g *Gateway) setupCORS() {
	c := cors.New(cors.Options{
		AllowedOrigins:   g.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	g.router.Use(c.Handler)
}

func (g *Gateway) Start() error {
	log.Printf("api: listening on %s", g.server.Addr)
	return g.server.ListenAndServe()
}

func (g *Gateway) Stop(ctx context.Context) error {
	log.Printf("api: shutting down")
	return g.server.Shutdown(ctx)
}

func (g *Gateway) AddMiddleware(m Middleware) {
	g.middleware = append(g.middleware, m)
}

// Router exposes the underlying handler for tests that want to drive
// requests through the full middleware chain without binding a socket.
func (g *Gateway) Router() http.Handler {
	return g.router
}

// APIResponse is the envelope every handler writes.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("api: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIResponse{Success: false, Error: &APIError{Code: code, Message: message}})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func (g *Gateway) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		g.metrics.mu.Lock()
		g.metrics.RequestsTotal++
		g.metrics.RequestsByPath[r.URL.Path]++
		g.metrics.RequestsByStatus[wrapped.statusCode]++
		g.metrics.LastRequest = time.Now()
		g.metrics.mu.Unlock()
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
