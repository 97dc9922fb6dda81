package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riskmesh/riskmesh/internal/config"
)

const sampleYAML = `
version: "1"
api:
  host: "0.0.0.0"
  port: 8080
  cors:
    enabled: false
sink:
  dsn: "${TEST_RISKMESH_DSN}"
  schema_path: "internal/sink/schema.sql"
cache:
  addr: "localhost:6379"
  password: "${TEST_RISKMESH_CACHE_PW}"
  db: 0
kafka:
  enabled: false
  brokers: []
neo4j:
  enabled: false
risk:
  alpha: 0.5
  max_depth: 2
  threshold: 0.1
  event_deadline: "200ms"
  prune_horizon: "2160h"
clustering:
  ring_min_size: 3
  dense_min_nodes: 4
  dense_edge_ratio: 1.5
  star_min_degree: 10
rate_limit:
  default_capacity: 100
  default_window: "60s"
  deny_unknown: true
logging:
  level: "info"
  format: "json"
metrics:
  enabled: true
auth:
  header_name: "X-RiskMesh-Principal"
  secret: "${TEST_RISKMESH_SECRET}"
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_RISKMESH_DSN", "postgres://localhost/riskmesh")
	t.Setenv("TEST_RISKMESH_CACHE_PW", "secretpw")
	t.Setenv("TEST_RISKMESH_SECRET", "jwtsecret")

	path := writeTempConfig(t, sampleYAML)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, "postgres://localhost/riskmesh", cfg.Sink.DSN)
	require.Equal(t, "secretpw", cfg.Cache.Password)
	require.Equal(t, "jwtsecret", cfg.Auth.Secret)
	require.Equal(t, 8080, cfg.API.Port)
}

func TestLoadValidConfigPassesValidate(t *testing.T) {
	t.Setenv("TEST_RISKMESH_DSN", "postgres://localhost/riskmesh")
	t.Setenv("TEST_RISKMESH_CACHE_PW", "")
	t.Setenv("TEST_RISKMESH_SECRET", "jwtsecret")

	path := writeTempConfig(t, sampleYAML)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := config.Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := config.Default()
	cfg.Sink.DSN = "dsn"
	cfg.Cache.Addr = "addr"
	cfg.API.Port = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsAlphaOutOfRange(t *testing.T) {
	cfg := config.Default()
	cfg.Sink.DSN = "dsn"
	cfg.Cache.Addr = "addr"
	cfg.Risk.Alpha = 1.5
	require.Error(t, cfg.Validate())
}

func TestValidateKafkaOnlyCheckedWhenEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.Sink.DSN = "dsn"
	cfg.Cache.Addr = "addr"
	cfg.Kafka.Enabled = false
	require.NoError(t, cfg.Validate())

	cfg.Kafka.Enabled = true
	require.Error(t, cfg.Validate(), "brokers required once kafka is enabled")
}

func TestParseDurationFallsBackOnBlankOrInvalid(t *testing.T) {
	require.Equal(t, 5*time.Second, config.ParseDuration("", 5*time.Second))
	require.Equal(t, 5*time.Second, config.ParseDuration("not-a-duration", 5*time.Second))
	require.Equal(t, 200*time.Millisecond, config.ParseDuration("200ms", 5*time.Second))
}
