// File: cfg.go
// Role: BasicBlock nodes, typed control edges, CFG construction primitives.
// Determinism: Edges() / Nodes() inherit Base's ascending-id ordering.
package cfg

import (
	"errors"
	"sync"

	"github.com/Charterino/Echo/graphcore"
)

// Sentinel errors for CFG construction. See doc.go for the full list.
var (
	ErrDuplicateOffset       = errors.New("cfg: node with this offset already exists")
	ErrNodeNotFound          = errors.New("cfg: node not found")
	ErrMultipleFallThrough   = errors.New("cfg: node already has a fall-through successor")
	ErrMultipleUnconditional = errors.New("cfg: node already has an unconditional successor")
	ErrRedundantEdge         = errors.New("cfg: identical edge already exists")
	ErrEntrypointNotInGraph  = errors.New("cfg: entrypoint not in graph")
	ErrDanglingEdgeEndpoint  = errors.New("cfg: edge endpoint not in graph")
)

// EdgeKind classifies a control edge. A node has at most one FallThrough and
// at most one Unconditional successor; Conditional and Abnormal edges may be
// multiple.
type EdgeKind int

const (
	FallThrough EdgeKind = iota
	Unconditional
	Conditional
	Abnormal
)

var edgeKindNames = [...]string{"fall-through", "unconditional", "conditional", "abnormal"}

func (k EdgeKind) String() string {
	if k < 0 || int(k) >= len(edgeKindNames) {
		return "invalid"
	}
	return edgeKindNames[k]
}

// BasicBlock is a maximal straight-line instruction sequence: a CFG node
// owning an ordered instruction list of type I, keyed by the offset of its
// first instruction.
type BasicBlock[I any] struct {
	Offset       graphcore.ID
	Instructions []I
}

// ID satisfies graphcore.Node.
func (b *BasicBlock[I]) ID() graphcore.ID { return b.Offset }

// CFG is the control-flow graph for a single function: basic blocks
// connected by typed edges, partitioned into a hierarchy of regions, with
// exactly one designated entrypoint.
type CFG[I any] struct {
	*graphcore.Base[*BasicBlock[I], EdgeKind]

	mu         sync.RWMutex
	entrypoint graphcore.ID
	hasEntry   bool

	topRegions []*Region
	nodeRegion map[graphcore.ID]*Region
}

// New constructs an empty CFG with no nodes, edges, regions, or entrypoint.
func New[I any]() *CFG[I] {
	return &CFG[I]{
		Base:       graphcore.NewBase[*BasicBlock[I], EdgeKind](),
		nodeRegion: make(map[graphcore.ID]*Region),
	}
}

// AddNode inserts a basic block owned by the graph. Fails with
// ErrDuplicateOffset if another block with the same offset exists.
//
// Complexity: O(1).
func (c *CFG[I]) AddNode(b *BasicBlock[I]) error {
	if err := c.Base.AddNode(b); err != nil {
		if errors.Is(err, graphcore.ErrDuplicateNode) {
			return ErrDuplicateOffset
		}
		return err
	}
	return nil
}

// Connect creates an outgoing edge from origin to target of the given kind,
// enforcing the multiplicity rule: at most one FallThrough and at most one
// Unconditional successor per node; Conditional and Abnormal may repeat. A
// redundant identical (origin, target, kind) edge is rejected.
//
// Complexity: O(out-degree(origin)) to scan for redundancy/multiplicity.
func (c *CFG[I]) Connect(origin, target graphcore.ID, kind EdgeKind) error {
	if _, ok := c.Node(origin); !ok {
		return ErrDanglingEdgeEndpoint
	}
	if _, ok := c.Node(target); !ok {
		return ErrDanglingEdgeEndpoint
	}

	for _, e := range c.Base.OutEdges(origin) {
		if e.Target == target && e.Label == kind {
			return ErrRedundantEdge
		}
		if kind == FallThrough && e.Label == FallThrough {
			return ErrMultipleFallThrough
		}
		if kind == Unconditional && e.Label == Unconditional {
			return ErrMultipleUnconditional
		}
	}

	c.Base.Connect(origin, target, kind)
	return nil
}

// SetEntrypoint designates the entry node. Fails with ErrEntrypointNotInGraph
// if id is not a node of this graph.
func (c *CFG[I]) SetEntrypoint(id graphcore.ID) error {
	if _, ok := c.Node(id); !ok {
		return ErrEntrypointNotInGraph
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entrypoint = id
	c.hasEntry = true
	return nil
}

// Entrypoint returns the designated entry node's id and whether one has been
// set at all.
func (c *CFG[I]) Entrypoint() (graphcore.ID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entrypoint, c.hasEntry
}
