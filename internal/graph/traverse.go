package graph

import "github.com/riskmesh/riskmesh/pkg/models"

// Level is one breadth-first layer: the set of nodes reached at a given
// depth, together with the edge that first reached each of them.
type Level struct {
	Depth int
	Nodes []Neighbor
}

// BFSLevels walks outward from start up to maxDepth hops, level by level,
// visiting each node once (first-reached wins, ties broken by ascending id
// because Neighbors already returns neighbors in that order). It never
// crosses the node's own boundary — callers apply their own edge-weight or
// threshold cutoffs per level.
func (s *Store) BFSLevels(start models.NodeID, maxDepth int) []Level {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visited := map[models.NodeID]bool{start: true}
	frontier := []models.NodeID{start}
	var levels []Level

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var level []Neighbor
		var next []models.NodeID
		for _, from := range frontier {
			for _, nb := range s.neighborsLocked(from, Outbound) {
				if visited[nb.Node.Key()] {
					continue
				}
				visited[nb.Node.Key()] = true
				level = append(level, nb)
				next = append(next, nb.Node.Key())
			}
		}
		if len(level) == 0 {
			break
		}
		sortNeighbors(level)
		levels = append(levels, Level{Depth: depth, Nodes: level})
		frontier = next
	}
	return levels
}

// InducedSubgraph returns the node keys reachable from center within
// maxDepth hops in either direction, including center itself — the bounded
// neighborhood the clustering detector runs its pattern checks over.
func (s *Store) InducedSubgraph(center models.NodeID, maxDepth int) []models.NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visited := map[models.NodeID]bool{center: true}
	frontier := []models.NodeID{center}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []models.NodeID
		for _, from := range frontier {
			for _, nb := range s.neighborsLocked(from, Both) {
				if visited[nb.Node.Key()] {
					continue
				}
				visited[nb.Node.Key()] = true
				next = append(next, nb.Node.Key())
			}
		}
		frontier = next
	}
	keys := make([]models.NodeID, 0, len(visited))
	for k := range visited {
		keys = append(keys, k)
	}
	return keys
}

// EdgesAmong returns every directed edge whose endpoints are both in the
// given node set — the induced edge set clustering detectors measure.
func (s *Store) EdgesAmong(keys []models.NodeID) []models.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[models.NodeID]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	var edges []models.Edge
	for from, m := range s.out {
		if !set[from] {
			continue
		}
		for to, e := range m {
			if set[to] {
				edges = append(edges, *e)
			}
		}
	}
	return edges
}
