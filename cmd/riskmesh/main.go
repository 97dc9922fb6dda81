package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riskmesh/riskmesh/internal/analytics"
	"github.com/riskmesh/riskmesh/internal/api"
	"github.com/riskmesh/riskmesh/internal/auth"
	"github.com/riskmesh/riskmesh/internal/cache"
	"github.com/riskmesh/riskmesh/internal/config"
	"github.com/riskmesh/riskmesh/internal/engine"
	"github.com/riskmesh/riskmesh/internal/eventbus"
	"github.com/riskmesh/riskmesh/internal/graph"
	"github.com/riskmesh/riskmesh/internal/health"
	"github.com/riskmesh/riskmesh/internal/metrics"
	"github.com/riskmesh/riskmesh/internal/ratelimit"
	"github.com/riskmesh/riskmesh/internal/sink"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var (
		configFile  = flag.String("config", "config/config.yaml", "Configuration file path")
		showVer     = flag.Bool("version", false, "Show version information")
		help        = flag.Bool("help", false, "Show help information")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}
	if *showVer {
		fmt.Printf("riskmesh version %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	log.Printf("starting riskmesh v%s (commit %s, built %s)", version, commit, date)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Printf("config: falling back to defaults: %v", err)
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: invalid: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := graph.New()

	riskCache := cache.New(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)
	defer riskCache.Close()

	sinkDSN := cfg.Sink.DSN
	durableStore, err := sink.Connect(ctx, sinkDSN)
	if err != nil {
		log.Fatalf("sink: connect: %v", err)
	}
	defer durableStore.Close()
	if err := durableStore.InitSchema(ctx, cfg.Sink.SchemaPath); err != nil {
		log.Fatalf("sink: init schema: %v", err)
	}

	var bus *eventbus.Bus
	if cfg.Kafka.Enabled {
		bus = eventbus.New(cfg.Kafka.Brokers)
		defer bus.Close()
	}

	var mirror *graph.Mirror
	if cfg.Neo4j.Enabled {
		interval := config.ParseDuration(cfg.Neo4j.ExportPeriod, 30*time.Second)
		m, err := graph.NewMirror(store, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, interval)
		if err != nil {
			log.Printf("neo4j mirror: disabled: %v", err)
		} else {
			mirror = m
			go mirror.Run(ctx)
			defer mirror.Close(context.Background())
		}
	}

	m := metrics.New()

	engineCfg := engine.DefaultConfig()
	engineCfg.Propagation.Alpha = cfg.Risk.Alpha
	engineCfg.Propagation.MaxDepth = cfg.Risk.MaxDepth
	engineCfg.Propagation.Threshold = cfg.Risk.Threshold
	engineCfg.Clustering.RingMinSize = cfg.Clustering.RingMinSize
	engineCfg.Clustering.DenseMinNodes = cfg.Clustering.DenseMinNodes
	engineCfg.Clustering.DenseEdgeRatio = cfg.Clustering.DenseEdgeRatio
	engineCfg.Clustering.StarMinDegree = cfg.Clustering.StarMinDegree
	engineCfg.EventDeadline = config.ParseDuration(cfg.Risk.EventDeadline, 200*time.Millisecond)
	engineCfg.PruneHorizon = config.ParseDuration(cfg.Risk.PruneHorizon, 90*24*time.Hour)

	pruner := graph.NewPruner(store, engineCfg.PruneHorizon, time.Hour)
	go pruner.Run(ctx)

	riskEngine := engine.New(store, riskCache, durableStore, bus, m, engineCfg)

	resolver := auth.New([]byte(cfg.Auth.Secret), cfg.Auth.HeaderName)

	limits := ratelimit.Limits{
		DefaultCapacity: cfg.RateLimit.DefaultCapacity,
		DefaultWindow:   config.ParseDuration(cfg.RateLimit.DefaultWindow, 60*time.Second),
		DenyUnknown:     cfg.RateLimit.DenyUnknown,
		PerPrincipal:    map[string]ratelimit.PrincipalLimit{},
	}
	for principal, limit := range cfg.RateLimit.PerPrincipal {
		limits.PerPrincipal[principal] = ratelimit.PrincipalLimit{
			Capacity: limit.Capacity,
			Window:   config.ParseDuration(limit.Window, 60*time.Second),
		}
	}
	limiter := ratelimit.New(limits)

	queries := analytics.New(durableStore.Pool())

	checker := health.NewChecker()
	checker.Register(&health.CacheCheck{Cache: riskCache})
	checker.Register(&health.SinkCheck{Sink: durableStore})
	checker.Register(&health.EventBusCheck{Bus: bus})

	deps := api.Dependencies{
		Engine:    riskEngine,
		Store:     store,
		Cache:     riskCache,
		Analytics: queries,
		Auth:      resolver,
		RateLimit: limiter,
		Health:    checker,
		Metrics:   m,
	}

	gatewayCfg := api.DefaultGatewayConfig()
	gatewayCfg.Port = cfg.API.Port
	gatewayCfg.Host = cfg.API.Host
	gatewayCfg.EnableCORS = cfg.API.CORS.Enabled
	if len(cfg.API.CORS.AllowedOrigins) > 0 {
		gatewayCfg.AllowedOrigins = cfg.API.CORS.AllowedOrigins
	}

	gateway := api.NewGateway(gatewayCfg, deps)

	go func() {
		if err := gateway.Start(); err != nil {
			log.Printf("api: stopped: %v", err)
		}
	}()

	waitForShutdown(cancel, gateway)
}

func showHelp() {
	fmt.Printf(`riskmesh - online fraud-scoring engine

Usage:
  riskmesh [flags]

Flags:
  -config string
        Configuration file path (default "config/config.yaml")
  -version
        Show version information
  -help
        Show this help message
`)
}

func waitForShutdown(cancel context.CancelFunc, gateway *api.Gateway) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := gateway.Stop(shutdownCtx); err != nil {
		log.Printf("api: error during shutdown: %v", err)
	}
	cancel()
	log.Println("riskmesh stopped")
}
