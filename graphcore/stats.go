// File: stats.go
// Role: O(V+E) read-only summary — a cheap way for callers and tests to
// assert shape without reaching into internal maps.
package graphcore

// Stats summarizes a Base's current size.
type Stats struct {
	NodeCount int
	EdgeCount int
}

// Stats computes a snapshot summary.
//
// Complexity: O(V+E).
func (b *Base[N, L]) Stats() Stats {
	return Stats{
		NodeCount: b.NodeCount(),
		EdgeCount: len(b.Edges()),
	}
}
