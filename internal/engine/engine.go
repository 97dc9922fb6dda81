// Package engine orchestrates one event through validation, the graph,
// propagation, clustering, and the explanation assembler — the canonical
// eleven-step ordering described for RiskMesh's risk engine.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/riskmesh/riskmesh/internal/cache"
	"github.com/riskmesh/riskmesh/internal/clustering"
	"github.com/riskmesh/riskmesh/internal/decay"
	"github.com/riskmesh/riskmesh/internal/eventbus"
	"github.com/riskmesh/riskmesh/internal/explain"
	"github.com/riskmesh/riskmesh/internal/graph"
	"github.com/riskmesh/riskmesh/internal/metrics"
	"github.com/riskmesh/riskmesh/internal/propagation"
	"github.com/riskmesh/riskmesh/internal/rules"
	"github.com/riskmesh/riskmesh/internal/sink"
	"github.com/riskmesh/riskmesh/pkg/models"
)

// ValidationError is returned for malformed events; the caller must reject
// synchronously without mutating the graph.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// Cache is the subset of *cache.Cache the engine depends on. Declaring it
// here, rather than depending on the concrete type, lets tests inject a
// fake and drive Process end-to-end without a Redis instance.
type Cache interface {
	GetPropagation(ctx context.Context, principal, fingerprint string, out interface{}) bool
	SetPropagation(ctx context.Context, principal, fingerprint string, value interface{})
	GetUserRisk(ctx context.Context, userID string) (float64, bool)
	SetUserRisk(ctx context.Context, userID string, risk float64)
	InvalidateUserRisk(ctx context.Context, userID string)
	Stats() cache.Stats
}

// Sink is the subset of *sink.Store the engine depends on.
type Sink interface {
	Enqueue(row sink.Row)
	Stats() (written, deadLetters int64)
}

// Engine is the only component that mutates the durable sink and the cache.
// Its own graphMu is the coarse "graph write lock" named in the concurrency
// model: it serializes the read-decide-mutate-propagate sequence (steps
// 2-7) across concurrent events, layered over the Store's own per-operation
// locking.
type Engine struct {
	store      *graph.Store
	ruleSet    *rules.RuleSet
	propagator *propagation.Propagator
	clusterer  *clustering.Detector
	cache      Cache
	sink       Sink
	bus        *eventbus.Bus // optional, nil disables downstream publication
	metrics    *metrics.Metrics
	cfg        Config

	graphMu         sync.Mutex
	lastDeadLetters atomic.Int64
}

func New(store *graph.Store, c Cache, sk Sink, bus *eventbus.Bus, m *metrics.Metrics, cfg Config) *Engine {
	return &Engine{
		store:      store,
		ruleSet:    rules.Default(),
		propagator: propagation.New(store, cfg.Propagation),
		clusterer:  clustering.New(store, cfg.Clustering),
		cache:      c,
		sink:       sk,
		bus:        bus,
		metrics:    m,
		cfg:        cfg,
	}
}

// Process runs one event through the full pipeline and returns its score.
func (e *Engine) Process(ctx context.Context, ev models.TransactionEvent) (models.ScoreResult, error) {
	start := time.Now()

	if err := validate(ev); err != nil {
		return models.ScoreResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.EventDeadline)
	defer cancel()

	fingerprint := Fingerprint(ev)
	txnID := uuid.NewString()

	var cachedResult models.ScoreResult
	if e.cache.GetPropagation(ctx, ev.Principal, fingerprint, &cachedResult) {
		cachedResult.Cached = true
		cachedResult.TransactionID = txnID
		cachedResult.TotalLatencyMs = elapsedMs(start)
		e.recordMetrics(cachedResult, true)
		return cachedResult, nil
	}

	userKey := models.NodeID{Type: models.NodeUser, ID: ev.UserID}
	deviceKey := models.NodeID{Type: models.NodeDevice, ID: ev.DeviceID}
	ipKey := models.NodeID{Type: models.NodeIP, ID: ev.IP}
	merchantKey := models.NodeID{Type: models.NodeMerchant, ID: ev.MerchantID}

	e.graphMu.Lock()
	now := time.Now()

	// Step 2: upsert canonical nodes, applying lazy time decay to each.
	for _, k := range []models.NodeID{userKey, deviceKey, ipKey, merchantKey} {
		e.decayThenUpsert(k, now)
	}

	// Step 3: read pre-mutation edge presence, compute base risk.
	facts := rules.Facts{
		Event:          ev,
		HasUserDevice:  e.store.HasEdge(userKey, deviceKey),
		HasUserIP:      e.store.HasEdge(userKey, ipKey),
		HasAnyMerchant: e.store.HasEdge(userKey, merchantKey) || e.store.HasEdge(deviceKey, merchantKey),
	}
	baseRisk, ruleContribs := e.ruleSet.Evaluate(ctx, facts)
	afterDecay, _ := e.store.Node(userKey)

	// Snapshot the BFS neighbor levels before this event's own edges go in,
	// so a cold-start event (no prior edges) propagates over an empty
	// neighborhood and correctly yields depth 0, rather than traversing
	// into the edges it is about to create itself.
	preLevels := e.propagator.Levels(userKey)

	// Step 4: upsert canonical edges with the event's observed weight.
	const observedWeight = 1.0
	e.store.UpsertEdge(userKey, deviceKey, now, observedWeight)
	e.store.UpsertEdge(userKey, ipKey, now, observedWeight)
	e.store.UpsertEdge(userKey, merchantKey, now, observedWeight)
	e.store.UpsertEdge(deviceKey, ipKey, now, observedWeight)
	e.store.UpsertEdge(deviceKey, merchantKey, now, observedWeight)

	// Step 5: propagate from the user node, over the pre-Step-4 neighbor set.
	propStart := time.Now()
	propResult := e.propagator.RunWithLevels(ctx, userKey, baseRisk, preLevels)
	if e.metrics != nil {
		e.metrics.PropagationLatency.Observe(elapsedMs(propStart))
	}
	afterPropagation := propResult.Updates[userKey]

	// Step 6: clustering detection over the 2-hop subgraph.
	seeds := []models.NodeID{userKey, deviceKey, ipKey, merchantKey}
	clusterResult := e.clusterer.Detect(seeds)
	boost := clusterResult.Boost[userKey]

	// Step 7: compose the final score.
	final := afterPropagation + boost
	if final > 1.0 {
		final = 1.0
	}
	if final < 0 {
		final = 0
	}
	_ = e.store.SetRisk(userKey, final)
	e.graphMu.Unlock()

	result := models.ScoreResult{
		TransactionID:    txnID,
		RiskScore:        final,
		BaseRisk:         baseRisk,
		ClusteringBoost:  boost,
		PropagationDepth: propResult.DeepestDepth,
		Timestamp:        now,
		Cached:           false,
		DepthTruncated:   propResult.DepthTruncated,
	}
	result.Explanation, result.ClusteringInfo = explain.Assemble(explain.Inputs{
		BaseRisk:         baseRisk,
		AfterPropagation: afterPropagation,
		AfterTimeDecay:   afterDecay.Risk,
		ClusterBoost:     boost,
		Final:            final,
		Rules:            ruleContribs,
		Rings:            clusterResult.Rings,
		DenseSubgraphs:   clusterResult.DenseSubgraphs,
		StarPatterns:     clusterResult.StarPatterns,
	})

	// Step 8: durable sink, fire-and-forget.
	result.TotalLatencyMs = elapsedMs(start)
	e.sink.Enqueue(sink.FromResult(ev, result))
	if e.bus != nil {
		e.bus.PublishScore(result)
		for _, ring := range clusterResult.Rings {
			e.bus.PublishRing(models.RingEvent{Pattern: ring.Pattern, NodeIDs: ring.NodeIDs, Boost: ring.Amount, DetectedAt: now})
		}
	}

	// Step 9: metrics.
	e.recordMetrics(result, false)

	// Step 10: cache invalidation + memoization.
	if previousRisk, ok := e.cache.GetUserRisk(ctx, ev.UserID); ok {
		if absDiff(previousRisk, final) > 0.05 || len(clusterResult.Rings) > 0 {
			e.cache.InvalidateUserRisk(ctx, ev.UserID)
		}
	}
	e.cache.SetUserRisk(ctx, ev.UserID, final)
	e.cache.SetPropagation(ctx, ev.Principal, fingerprint, result)

	// Step 11: return.
	return result, nil
}

func (e *Engine) decayThenUpsert(key models.NodeID, now time.Time) {
	if existing, ok := e.store.Node(key); ok {
		decayed := decay.Apply(existing.Risk, existing.LastSeen, now)
		e.store.UpsertNode(key, now)
		_ = e.store.SetRisk(key, decayed)
		return
	}
	e.store.UpsertNode(key, now)
}

func (e *Engine) recordMetrics(res models.ScoreResult, cached bool) {
	if e.metrics == nil {
		return
	}
	outcome := "scored"
	if cached {
		outcome = "cached"
	}
	e.metrics.RequestsTotal.WithLabelValues(outcome).Inc()
	e.metrics.RequestLatencyMs.Observe(res.TotalLatencyMs)
	nodes, edges := e.store.Stats()
	e.metrics.GraphNodes.Set(float64(nodes))
	e.metrics.GraphEdges.Set(float64(edges))
	e.metrics.CacheHitRate.Set(e.cache.Stats().HitRate())

	// SinkDeadLetterTotal is a monotonic counter; Store.Stats() reports a
	// cumulative total, so only the delta since the last observation is
	// added.
	_, dead := e.sink.Stats()
	prev := e.lastDeadLetters.Swap(dead)
	if delta := dead - prev; delta > 0 {
		e.metrics.SinkDeadLetterTotal.Add(float64(delta))
	}
}

func validate(ev models.TransactionEvent) error {
	if ev.UserID == "" || ev.DeviceID == "" || ev.IP == "" || ev.MerchantID == "" {
		return &ValidationError{Msg: "user_id, device_id, ip_address, and merchant_id are required"}
	}
	if ev.Amount < 0 {
		return &ValidationError{Msg: "transaction_amount must be non-negative"}
	}
	return nil
}

// Fingerprint hashes the event's identifying fields with the amount rounded
// down to a multiple of 100, so near-duplicate amounts within a short window share
// a cache entry the way the spec's repeated-event scenario expects.
func Fingerprint(ev models.TransactionEvent) string {
	bucket := int64(ev.Amount/100) * 100
	raw := fmt.Sprintf("%s|%s|%s|%s|%d", ev.UserID, ev.DeviceID, ev.IP, ev.MerchantID, bucket)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:16])
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
