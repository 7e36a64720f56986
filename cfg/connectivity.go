// File: connectivity.go
// Role: Supplemental reachability diagnostics. The undirected component
// partition is delegated to gonum's graph/topo; the directed reachability
// check is a plain BFS over the CFG's own edges.
package cfg

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/Charterino/Echo/graphcore"
)

// gonumView adapts a CFG's undirected reachability shape to gonum's
// graph.Undirected interface, treating every control edge as undirected — it
// exists only to ask "what holds together", not "what can reach what"
// (UnreachableNodes below, via a BFS over actual directed edges, answers that).
type gonumView[I any] struct {
	c *CFG[I]
}

func (g gonumView[I]) Node(id int64) graph.Node {
	n, ok := g.c.Node(graphcore.ID(id))
	if !ok {
		return nil
	}
	return gonumNode{id: int64(n.ID())}
}

func (g gonumView[I]) Nodes() graph.Nodes {
	ns := g.c.Nodes()
	gs := make([]graph.Node, len(ns))
	for i, n := range ns {
		gs[i] = gonumNode{id: int64(n.ID())}
	}
	return &sliceNodes{nodes: gs}
}

func (g gonumView[I]) From(id int64) graph.Nodes {
	var gs []graph.Node
	for _, e := range g.c.Base.OutEdges(graphcore.ID(id)) {
		gs = append(gs, gonumNode{id: int64(e.Target)})
	}
	for _, n := range g.c.Nodes() {
		for _, e := range g.c.Base.OutEdges(n.ID()) {
			if int64(e.Target) == id {
				gs = append(gs, gonumNode{id: int64(n.ID())})
			}
		}
	}
	return &sliceNodes{nodes: gs}
}

func (g gonumView[I]) HasEdgeBetween(xid, yid int64) bool {
	for _, e := range g.c.Base.OutEdges(graphcore.ID(xid)) {
		if int64(e.Target) == yid {
			return true
		}
	}
	for _, e := range g.c.Base.OutEdges(graphcore.ID(yid)) {
		if int64(e.Target) == xid {
			return true
		}
	}
	return false
}

func (g gonumView[I]) Edge(uid, vid int64) graph.Edge {
	if !g.HasEdgeBetween(uid, vid) {
		return nil
	}
	return simpleEdge{from: gonumNode{id: uid}, to: gonumNode{id: vid}}
}

func (g gonumView[I]) EdgeBetween(xid, yid int64) graph.Edge {
	return g.Edge(xid, yid)
}

type gonumNode struct{ id int64 }

func (n gonumNode) ID() int64 { return n.id }

type simpleEdge struct{ from, to graph.Node }

func (e simpleEdge) From() graph.Node         { return e.from }
func (e simpleEdge) To() graph.Node           { return e.to }
func (e simpleEdge) ReversedEdge() graph.Edge { return simpleEdge{from: e.to, to: e.from} }

type sliceNodes struct {
	nodes []graph.Node
	pos   int
}

func (s *sliceNodes) Next() bool {
	if s.pos >= len(s.nodes) {
		return false
	}
	s.pos++
	return true
}
func (s *sliceNodes) Len() int           { return len(s.nodes) - s.pos }
func (s *sliceNodes) Reset()             { s.pos = 0 }
func (s *sliceNodes) Node() graph.Node   { return s.nodes[s.pos-1] }

// ConnectedComponents partitions the CFG's nodes into weakly connected
// components (ignoring edge direction), via gonum's topo.ConnectedComponents.
// A CFG with a single entrypoint and no orphaned subgraphs has exactly one
// component; more than one means some blocks share no edge, in either
// direction, with the rest of the graph. Every block outside the
// entrypoint's component is also reported by UnreachableNodes, which in
// addition reports blocks inside that component that forward edges from the
// entrypoint never reach.
//
// Complexity: O(V + E).
func (c *CFG[I]) ConnectedComponents() [][]graphcore.ID {
	comps := topo.ConnectedComponents(gonumView[I]{c: c})
	out := make([][]graphcore.ID, len(comps))
	for i, comp := range comps {
		ids := make([]graphcore.ID, len(comp))
		for j, n := range comp {
			ids[j] = graphcore.ID(n.ID())
		}
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
		out[i] = ids
	}
	sort.Slice(out, func(a, b int) bool {
		if len(out[a]) == 0 || len(out[b]) == 0 {
			return len(out[a]) < len(out[b])
		}
		return out[a][0] < out[b][0]
	})
	return out
}

// UnreachableNodes returns every node id that the entrypoint cannot reach by
// following directed edges forward — a directed complement to
// ConnectedComponents' undirected view, for flagging blocks control flow can
// never actually arrive at even though they sit in the same component.
//
// Complexity: O(V + E).
func (c *CFG[I]) UnreachableNodes() []graphcore.ID {
	entry, ok := c.Entrypoint()
	if !ok {
		ids := make([]graphcore.ID, 0)
		for _, n := range c.Nodes() {
			ids = append(ids, n.ID())
		}
		return ids
	}

	visited := map[graphcore.ID]bool{entry: true}
	queue := []graphcore.ID{entry}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range c.Base.OutEdges(cur) {
			if !visited[e.Target] {
				visited[e.Target] = true
				queue = append(queue, e.Target)
			}
		}
	}

	var out []graphcore.ID
	for _, n := range c.Nodes() {
		if !visited[n.ID()] {
			out = append(out, n.ID())
		}
	}
	return out
}
