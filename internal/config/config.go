// Package config loads RiskMesh's YAML configuration file, expanding
// environment-variable placeholders for secrets the way deployment tooling
// expects.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete RiskMesh configuration.
type Config struct {
	Version     string            `yaml:"version"`
	API         APIConfig         `yaml:"api"`
	Sink        SinkConfig        `yaml:"sink"`
	Cache       CacheConfig       `yaml:"cache"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Neo4j       Neo4jConfig       `yaml:"neo4j"`
	Risk        RiskConfig        `yaml:"risk"`
	Clustering  ClusteringConfig  `yaml:"clustering"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Auth        AuthConfig        `yaml:"auth"`
}

type APIConfig struct {
	Port int        `yaml:"port"`
	Host string     `yaml:"host"`
	CORS CORSConfig `yaml:"cors"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type SinkConfig struct {
	DSN        string `yaml:"dsn"`
	SchemaPath string `yaml:"schema_path"`
}

type CacheConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
}

type Neo4jConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URI          string `yaml:"uri"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	ExportPeriod string `yaml:"export_period"`
}

type RiskConfig struct {
	Alpha         float64 `yaml:"alpha"`
	MaxDepth      int     `yaml:"max_depth"`
	Threshold     float64 `yaml:"threshold"`
	EventDeadline string  `yaml:"event_deadline"`
	PruneHorizon  string  `yaml:"prune_horizon"`
}

type ClusteringConfig struct {
	RingMinSize    int     `yaml:"ring_min_size"`
	DenseMinNodes  int     `yaml:"dense_min_nodes"`
	DenseEdgeRatio float64 `yaml:"dense_edge_ratio"`
	StarMinDegree  int     `yaml:"star_min_degree"`
}

type RateLimitConfig struct {
	DefaultCapacity int                       `yaml:"default_capacity"`
	DefaultWindow   string                    `yaml:"default_window"`
	DenyUnknown     bool                      `yaml:"deny_unknown"`
	PerPrincipal    map[string]PrincipalLimit `yaml:"per_principal"`
}

type PrincipalLimit struct {
	Capacity int    `yaml:"capacity"`
	Window   string `yaml:"window"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type AuthConfig struct {
	HeaderName string `yaml:"header_name"`
	Secret     string `yaml:"secret"`
}

// Load reads and parses the configuration file, expanding ${VAR}-style
// secrets from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	expandEnv(cfg)
	return cfg, nil
}

func expandEnv(cfg *Config) {
	cfg.Sink.DSN = os.ExpandEnv(cfg.Sink.DSN)
	cfg.Cache.Addr = os.ExpandEnv(cfg.Cache.Addr)
	cfg.Cache.Password = os.ExpandEnv(cfg.Cache.Password)
	cfg.Neo4j.Password = os.ExpandEnv(cfg.Neo4j.Password)
	cfg.Auth.Secret = os.ExpandEnv(cfg.Auth.Secret)
}

// ParseDuration parses a duration string, defaulting to fallback on a blank
// or invalid value rather than failing startup over an optional tunable.
func ParseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// Default returns the configuration defaults named throughout the
// component design, used when no config file overrides them.
func Default() *Config {
	return &Config{
		Version: "1",
		API:     APIConfig{Port: 8080, Host: "0.0.0.0"},
		Sink:    SinkConfig{SchemaPath: "internal/sink/schema.sql"},
		Risk: RiskConfig{
			Alpha: 0.5, MaxDepth: 2, Threshold: 0.1,
			EventDeadline: "200ms", PruneHorizon: "2160h",
		},
		Clustering: ClusteringConfig{
			RingMinSize: 3, DenseMinNodes: 4, DenseEdgeRatio: 1.5, StarMinDegree: 10,
		},
		RateLimit: RateLimitConfig{DefaultCapacity: 100, DefaultWindow: "60s", DenyUnknown: true},
		Auth:      AuthConfig{HeaderName: "X-RiskMesh-Principal"},
	}
}
