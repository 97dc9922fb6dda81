package engine

import (
	"time"

	"github.com/riskmesh/riskmesh/internal/clustering"
	"github.com/riskmesh/riskmesh/internal/propagation"
)

// Config holds every tunable named in the environment configuration.
type Config struct {
	Propagation propagation.Config
	Clustering  clustering.Config

	EventDeadline time.Duration // default 200ms
	PruneHorizon  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Propagation:   propagation.DefaultConfig(),
		Clustering:    clustering.DefaultConfig(),
		EventDeadline: 200 * time.Millisecond,
		PruneHorizon:  90 * 24 * time.Hour,
	}
}
