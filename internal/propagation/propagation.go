// Package propagation spreads an event's base risk outward from its primary
// node through the graph via bounded-depth breadth-first diffusion.
package propagation

import (
	"context"
	"time"

	"github.com/riskmesh/riskmesh/internal/graph"
	"github.com/riskmesh/riskmesh/pkg/models"
)

// Config holds the tunables named in the environment configuration.
type Config struct {
	Alpha     float64 // propagation coefficient, default 0.5
	MaxDepth  int     // default 2
	Threshold float64 // default 0.1
}

// DefaultConfig returns the parameter defaults named in the base-risk /
// propagation tables.
func DefaultConfig() Config {
	return Config{Alpha: 0.5, MaxDepth: 2, Threshold: 0.1}
}

// Result is everything the engine needs after running propagation once.
type Result struct {
	Updates        map[models.NodeID]float64
	DeepestDepth   int
	DepthTruncated bool
}

// Propagator runs level-synchronous BFS over a graph.Store, writing updated
// risk back into the store as it goes. Each write takes the store's own
// lock; serializing whole runs across concurrent events is the caller's job
// (the engine holds its graphMu around the full sequence).
type Propagator struct {
	store *graph.Store
	cfg   Config
}

func New(store *graph.Store, cfg Config) *Propagator {
	return &Propagator{store: store, cfg: cfg}
}

// Levels snapshots the level-synchronous BFS traversal order from source,
// up to the configured max depth, without mutating any risk. Callers that
// need to propagate over a neighbor set captured before some later graph
// mutation (the engine's cold-start ordering, notably) take this snapshot
// first and hand it to RunWithLevels.
func (p *Propagator) Levels(source models.NodeID) []graph.Level {
	return p.store.BFSLevels(source, p.cfg.MaxDepth)
}

// Run spreads baseRisk from source. If baseRisk is below the configured
// threshold, propagation is skipped entirely and the source's own risk is
// simply set to baseRisk. ctx's deadline, if any, truncates BFS expansion
// mid-run without discarding work already applied.
//
// Run computes its own traversal levels from the store's current state. Use
// RunWithLevels when the caller must propagate over a snapshot taken before
// a later mutation (see Levels).
func (p *Propagator) Run(ctx context.Context, source models.NodeID, baseRisk float64) Result {
	// BFSLevels computes the level-synchronous traversal order once, up
	// front, under its own read lock; propagation then walks those levels
	// applying the diffusion formula and writing updated risk back in.
	return p.RunWithLevels(ctx, source, baseRisk, p.store.BFSLevels(source, p.cfg.MaxDepth))
}

// RunWithLevels is Run with the BFS traversal order supplied by the caller
// instead of recomputed from the store's current state.
func (p *Propagator) RunWithLevels(ctx context.Context, source models.NodeID, baseRisk float64, levels []graph.Level) Result {
	if err := p.store.SetRisk(source, baseRisk); err != nil {
		return Result{Updates: map[models.NodeID]float64{}}
	}

	if baseRisk < p.cfg.Threshold {
		return Result{Updates: map[models.NodeID]float64{source: baseRisk}}
	}

	risk := map[models.NodeID]float64{source: baseRisk}
	updates := map[models.NodeID]float64{source: baseRisk}
	deepest := 0
	truncated := false

	for _, lvl := range levels {
		select {
		case <-ctx.Done():
			truncated = true
		default:
		}
		if truncated {
			break
		}

		for _, nb := range lvl.Nodes {
			u := nb.Edge.From
			v := nb.Node.Key()
			delta := p.cfg.Alpha * risk[u] * nb.Edge.Weight
			newRisk := nb.Node.Risk + delta
			if newRisk > 1.0 {
				newRisk = 1.0
			}
			if err := p.store.SetRisk(v, newRisk); err != nil {
				continue
			}
			risk[v] = newRisk
			updates[v] = newRisk
		}
		deepest = lvl.Depth
	}

	return Result{Updates: updates, DeepestDepth: deepest, DepthTruncated: truncated}
}

// WithDeadline derives a context carrying the per-event deadline named in
// the concurrency model (default 200ms), for callers that construct one
// shared deadline across cache, propagation, and sink steps.
func WithDeadline(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}
