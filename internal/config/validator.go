package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate performs comprehensive validation of the configuration.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}

	if err := c.validateAPI(); err != nil {
		return fmt.Errorf("api config error: %v", err)
	}

	if err := c.validateSink(); err != nil {
		return fmt.Errorf("sink config error: %v", err)
	}

	if err := c.validateCache(); err != nil {
		return fmt.Errorf("cache config error: %v", err)
	}

	if err := c.validateKafka(); err != nil {
		return fmt.Errorf("kafka config error: %v", err)
	}

	if err := c.validateNeo4j(); err != nil {
		return fmt.Errorf("neo4j config error: %v", err)
	}

	if err := c.validateRisk(); err != nil {
		return fmt.Errorf("risk config error: %v", err)
	}

	if err := c.validateClustering(); err != nil {
		return fmt.Errorf("clustering config error: %v", err)
	}

	if err := c.validateRateLimit(); err != nil {
		return fmt.Errorf("rate_limit config error: %v", err)
	}

	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging config error: %v", err)
	}

	if err := c.validateAuth(); err != nil {
		return fmt.Errorf("auth config error: %v", err)
	}

	return nil
}

func (c *Config) validateAPI() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.API.CORS.Enabled && len(c.API.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed_origins is required when CORS is enabled")
	}
	return nil
}

func (c *Config) validateSink() error {
	if c.Sink.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	if c.Sink.SchemaPath == "" {
		return fmt.Errorf("schema_path is required")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.Cache.DB < 0 {
		return fmt.Errorf("db must be non-negative")
	}
	return nil
}

func (c *Config) validateKafka() error {
	if !c.Kafka.Enabled {
		return nil
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("brokers is required when kafka is enabled")
	}
	for _, b := range c.Kafka.Brokers {
		if !strings.Contains(b, ":") {
			return fmt.Errorf("invalid broker address: %s (expected host:port)", b)
		}
	}
	return nil
}

func (c *Config) validateNeo4j() error {
	if !c.Neo4j.Enabled {
		return nil
	}
	if c.Neo4j.URI == "" {
		return fmt.Errorf("uri is required when neo4j is enabled")
	}
	if _, err := url.Parse(c.Neo4j.URI); err != nil {
		return fmt.Errorf("invalid uri format: %v", err)
	}
	if c.Neo4j.Username == "" {
		return fmt.Errorf("username is required when neo4j is enabled")
	}
	return nil
}

func (c *Config) validateRisk() error {
	if c.Risk.Alpha <= 0 || c.Risk.Alpha > 1 {
		return fmt.Errorf("alpha must be between 0 and 1")
	}
	if c.Risk.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be greater than 0")
	}
	if c.Risk.Threshold < 0 || c.Risk.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1")
	}
	if c.Risk.EventDeadline != "" {
		if d := ParseDuration(c.Risk.EventDeadline, -1); d < 0 {
			return fmt.Errorf("invalid event_deadline: %s", c.Risk.EventDeadline)
		}
	}
	if c.Risk.PruneHorizon != "" {
		if d := ParseDuration(c.Risk.PruneHorizon, -1); d < 0 {
			return fmt.Errorf("invalid prune_horizon: %s", c.Risk.PruneHorizon)
		}
	}
	return nil
}

func (c *Config) validateClustering() error {
	if c.Clustering.RingMinSize < 2 {
		return fmt.Errorf("ring_min_size must be at least 2")
	}
	if c.Clustering.DenseMinNodes < 2 {
		return fmt.Errorf("dense_min_nodes must be at least 2")
	}
	if c.Clustering.DenseEdgeRatio <= 0 {
		return fmt.Errorf("dense_edge_ratio must be greater than 0")
	}
	if c.Clustering.StarMinDegree < 1 {
		return fmt.Errorf("star_min_degree must be at least 1")
	}
	return nil
}

func (c *Config) validateRateLimit() error {
	if c.RateLimit.DefaultCapacity <= 0 {
		return fmt.Errorf("default_capacity must be greater than 0")
	}
	if d := ParseDuration(c.RateLimit.DefaultWindow, -1); d < 0 {
		return fmt.Errorf("invalid default_window: %s", c.RateLimit.DefaultWindow)
	}
	for principal, limit := range c.RateLimit.PerPrincipal {
		if limit.Capacity <= 0 {
			return fmt.Errorf("per_principal[%s].capacity must be greater than 0", principal)
		}
		if d := ParseDuration(limit.Window, -1); d < 0 {
			return fmt.Errorf("per_principal[%s].window invalid: %s", principal, limit.Window)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	level := strings.ToLower(c.Logging.Level)
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
	}
	format := strings.ToLower(c.Logging.Format)
	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[format] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", format)
	}
	return nil
}

func (c *Config) validateAuth() error {
	if c.Auth.HeaderName == "" {
		return fmt.Errorf("header_name is required")
	}
	return nil
}
