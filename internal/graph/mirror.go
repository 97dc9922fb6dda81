package graph

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Mirror periodically exports the in-memory Store to Neo4j for forensic
// exploration by the dashboard. It is never authoritative and never read
// from on the scoring path — a failed or stale export only degrades the
// dashboard's view, not scoring.
type Mirror struct {
	store    *Store
	driver   neo4j.DriverWithContext
	interval time.Duration
}

func NewMirror(store *Store, uri, username, password string, interval time.Duration) (*Mirror, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("graph: mirror driver: %w", err)
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Mirror{store: store, driver: driver, interval: interval}, nil
}

// Run exports on a ticker until ctx is cancelled. Each export failure is
// logged and retried on the next tick, never escalated.
func (m *Mirror) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.export(ctx); err != nil {
				log.Printf("graph mirror: export failed, will retry next tick: %v", err)
			}
		}
	}
}

func (m *Mirror) export(ctx context.Context) error {
	snap := m.store.Snapshot()

	session := m.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, n := range snap.Nodes {
		_, err := session.Run(ctx,
			`MERGE (e:Entity {type: $type, id: $id})
			 SET e.risk = $risk, e.last_seen = $last_seen, e.interaction_count = $count`,
			map[string]interface{}{
				"type": string(n.Type), "id": n.ID, "risk": n.Risk,
				"last_seen": n.LastSeen.Format(time.RFC3339), "count": n.InteractionCount,
			})
		if err != nil {
			return fmt.Errorf("mirror node %s: %w", n.Key(), err)
		}
	}

	for _, e := range snap.Edges {
		_, err := session.Run(ctx,
			`MATCH (a:Entity {type: $from_type, id: $from_id})
			 MATCH (b:Entity {type: $to_type, id: $to_id})
			 MERGE (a)-[r:RELATES_TO]->(b)
			 SET r.weight = $weight, r.interaction_count = $count, r.last_seen = $last_seen`,
			map[string]interface{}{
				"from_type": string(e.From.Type), "from_id": e.From.ID,
				"to_type": string(e.To.Type), "to_id": e.To.ID,
				"weight": e.Weight, "count": e.InteractionCount,
				"last_seen": e.LastSeen.Format(time.RFC3339),
			})
		if err != nil {
			return fmt.Errorf("mirror edge %s->%s: %w", e.From, e.To, err)
		}
	}
	return nil
}

func (m *Mirror) Close(ctx context.Context) error {
	return m.driver.Close(ctx)
}
