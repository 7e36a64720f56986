// File: stats.go
// Role: CFG-specific read-only summary, assembled from the graph's own
// already-locked accessors into a single snapshot struct.
package cfg

// Stats summarizes a CFG's current size and shape.
type Stats struct {
	NodeCount       int
	EdgeCountByKind map[EdgeKind]int
	RegionCount     int
	HasEntrypoint   bool
}

// Stats computes a snapshot summary.
//
// Complexity: O(V+E).
func (c *CFG[I]) Stats() Stats {
	byKind := make(map[EdgeKind]int, 4)
	for _, e := range c.Edges() {
		byKind[e.Label]++
	}

	_, hasEntry := c.Entrypoint()

	return Stats{
		NodeCount:       c.NodeCount(),
		EdgeCountByKind: byKind,
		RegionCount:     countRegions(c.Regions()),
		HasEntrypoint:   hasEntry,
	}
}

func countRegions(roots []*Region) int {
	total := 0
	for _, r := range roots {
		total += 1 + countRegionDescendants(r)
	}
	return total
}

func countRegionDescendants(r *Region) int {
	total := 0
	switch r.Kind {
	case RegionBasic:
		for _, c := range r.Children {
			total += 1 + countRegionDescendants(c)
		}
	case RegionExceptionHandler:
		total += 1 + countRegionDescendants(r.Protected)
		for _, h := range r.Handlers {
			total += 1 + countRegionDescendants(h)
		}
	}
	return total
}
