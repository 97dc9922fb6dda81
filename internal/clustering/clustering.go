// Package clustering detects suspicious topological patterns — rings, dense
// subgraphs, and star hubs — in the bounded neighborhood around an event's
// nodes, and turns them into a per-node score boost.
package clustering

import (
	"github.com/riskmesh/riskmesh/internal/graph"
	"github.com/riskmesh/riskmesh/pkg/models"
)

// Config holds the detector thresholds named in the environment config.
type Config struct {
	RingMinSize       int     // default 3
	DenseMinNodes     int     // default 4
	DenseEdgeRatio    float64 // default 1.5
	StarMinDegree     int     // default 10
	RingBoost         float64 // default 0.15
	DenseBoost        float64 // default 0.10
	StarBoost         float64 // default 0.10
	NeighborhoodDepth int     // default 2, the "2-hop" bound
}

func DefaultConfig() Config {
	return Config{
		RingMinSize: 3, DenseMinNodes: 4, DenseEdgeRatio: 1.5, StarMinDegree: 10,
		RingBoost: 0.15, DenseBoost: 0.10, StarBoost: 0.10, NeighborhoodDepth: 2,
	}
}

// Result is the detector run's full output: the boost to apply per node
// (max across detectors, never summed) and the pattern membership lists the
// explanation's clustering_info surfaces.
type Result struct {
	Boost          map[models.NodeID]float64
	Rings          []models.ClusterContribution
	DenseSubgraphs []models.ClusterContribution
	StarPatterns   []models.ClusterContribution
}

// Detector runs the three pattern checks over the induced neighborhood of a
// set of seed nodes.
type Detector struct {
	store *graph.Store
	cfg   Config
}

func New(store *graph.Store, cfg Config) *Detector {
	return &Detector{store: store, cfg: cfg}
}

// Detect unions the seeds' neighborhoods within NeighborhoodDepth hops, then
// runs rings, dense-subgraph, and star detection over that induced subgraph.
func (d *Detector) Detect(seeds []models.NodeID) Result {
	nodeSet := map[models.NodeID]bool{}
	for _, s := range seeds {
		for _, k := range d.store.InducedSubgraph(s, d.cfg.NeighborhoodDepth) {
			nodeSet[k] = true
		}
	}
	keys := make([]models.NodeID, 0, len(nodeSet))
	for k := range nodeSet {
		keys = append(keys, k)
	}
	edges := d.store.EdgesAmong(keys)

	res := Result{Boost: map[models.NodeID]float64{}}

	adj := buildAdjacency(keys, edges)

	for _, comp := range stronglyConnectedComponents(keys, adj) {
		if len(comp) < d.cfg.RingMinSize {
			continue
		}
		ids := nodeIDs(comp)
		res.Rings = append(res.Rings, models.ClusterContribution{Pattern: "ring", Amount: d.cfg.RingBoost, NodeIDs: ids})
		for _, n := range comp {
			raiseBoost(res.Boost, n, d.cfg.RingBoost)
		}
	}

	for _, comp := range weaklyConnectedComponents(keys, adj) {
		if len(comp) < d.cfg.DenseMinNodes {
			continue
		}
		edgeCount := countInducedEdges(comp, edges)
		ratio := float64(edgeCount) / float64(len(comp))
		if ratio < d.cfg.DenseEdgeRatio {
			continue
		}
		ids := nodeIDs(comp)
		res.DenseSubgraphs = append(res.DenseSubgraphs, models.ClusterContribution{Pattern: "dense_subgraph", Amount: d.cfg.DenseBoost, NodeIDs: ids})
		for _, n := range comp {
			raiseBoost(res.Boost, n, d.cfg.DenseBoost)
		}
	}

	degree := map[models.NodeID]int{}
	for _, e := range edges {
		degree[e.From]++
		degree[e.To]++
	}
	for hub, deg := range degree {
		if deg <= d.cfg.StarMinDegree {
			continue
		}
		if !isStarHub(hub, keys, edges) {
			continue
		}
		res.StarPatterns = append(res.StarPatterns, models.ClusterContribution{Pattern: "star", Amount: d.cfg.StarBoost, NodeIDs: []string{hub.String()}})
		raiseBoost(res.Boost, hub, d.cfg.StarBoost)
	}

	return res
}

func raiseBoost(m map[models.NodeID]float64, n models.NodeID, amount float64) {
	if amount > m[n] {
		m[n] = amount
	}
}

func nodeIDs(ns []models.NodeID) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.String()
	}
	return out
}

type adjacency map[models.NodeID][]models.NodeID

func buildAdjacency(keys []models.NodeID, edges []models.Edge) adjacency {
	adj := make(adjacency, len(keys))
	for _, k := range keys {
		adj[k] = nil
	}
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
	}
	return adj
}

// stronglyConnectedComponents runs Tarjan's algorithm over the directed
// induced subgraph, returning components with 2+ members only (a single
// node is trivially "strongly connected" to itself but is not a ring).
func stronglyConnectedComponents(keys []models.NodeID, adj adjacency) [][]models.NodeID {
	index := map[models.NodeID]int{}
	lowlink := map[models.NodeID]int{}
	onStack := map[models.NodeID]bool{}
	var stack []models.NodeID
	counter := 0
	var comps [][]models.NodeID

	var strongconnect func(v models.NodeID)
	strongconnect = func(v models.NodeID) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if _, seen := index[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
		}

		if lowlink[v] == index[v] {
			var comp []models.NodeID
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			if len(comp) >= 2 {
				comps = append(comps, comp)
			}
		}
	}

	for _, k := range keys {
		if _, seen := index[k]; !seen {
			strongconnect(k)
		}
	}
	return comps
}

// weaklyConnectedComponents treats adj as undirected for the purpose of
// grouping a "dense subgraph": nodes connected by edges in either direction.
func weaklyConnectedComponents(keys []models.NodeID, adj adjacency) [][]models.NodeID {
	undirected := map[models.NodeID]map[models.NodeID]bool{}
	for _, k := range keys {
		undirected[k] = map[models.NodeID]bool{}
	}
	for from, tos := range adj {
		for _, to := range tos {
			undirected[from][to] = true
			undirected[to][from] = true
		}
	}

	visited := map[models.NodeID]bool{}
	var comps [][]models.NodeID
	for _, k := range keys {
		if visited[k] {
			continue
		}
		var comp []models.NodeID
		queue := []models.NodeID{k}
		visited[k] = true
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			comp = append(comp, n)
			for nb := range undirected[n] {
				if !visited[nb] {
					visited[nb] = true
					queue = append(queue, nb)
				}
			}
		}
		comps = append(comps, comp)
	}
	return comps
}

func countInducedEdges(comp []models.NodeID, edges []models.Edge) int {
	set := map[models.NodeID]bool{}
	for _, n := range comp {
		set[n] = true
	}
	count := 0
	for _, e := range edges {
		if set[e.From] && set[e.To] {
			count++
		}
	}
	return count
}

// isStarHub checks that hub's spokes are otherwise unconnected to each
// other, distinguishing a true star from a node embedded in a dense mesh.
func isStarHub(hub models.NodeID, keys []models.NodeID, edges []models.Edge) bool {
	spokes := map[models.NodeID]bool{}
	for _, e := range edges {
		if e.From == hub {
			spokes[e.To] = true
		} else if e.To == hub {
			spokes[e.From] = true
		}
	}
	for _, e := range edges {
		if e.From == hub || e.To == hub {
			continue
		}
		if spokes[e.From] && spokes[e.To] {
			return false
		}
	}
	return true
}
