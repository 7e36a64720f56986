// File: region.go
// Role: Hierarchical region bookkeeping — BasicRegion and
//       ExceptionHandlerRegion, AddRegion, MoveNodeToRegion.
// Invariant: every node belongs to at most one immediate region. Moving a
// node between regions is atomic with respect to that invariant — a node is
// never observed as a member of two regions, even transiently, by any other
// goroutine (both the removal from the old region and the insertion into
// the new one happen under the same lock acquisition).
package cfg

import (
	"errors"
	"sync/atomic"

	"github.com/Charterino/Echo/graphcore"
)

var (
	// ErrNodeAlreadyRegioned indicates a node is already a member of some
	// immediate region and cannot be added to a second one directly (use
	// MoveNodeToRegion instead).
	ErrNodeAlreadyRegioned = errors.New("cfg: node already belongs to an immediate region")

	// ErrUnknownRegionMember indicates a region names a node this CFG does
	// not contain.
	ErrUnknownRegionMember = errors.New("cfg: region member not found in graph")

	// ErrUnsupportedRegionKind indicates a Region value with neither Basic
	// nor ExceptionHandler set.
	ErrUnsupportedRegionKind = errors.New("cfg: unsupported region kind")
)

// RegionKind tags which variant a Region holds, in place of an open
// inheritance hierarchy.
type RegionKind int

const (
	RegionBasic RegionKind = iota
	RegionExceptionHandler
)

var regionKindNames = [...]string{"basic", "exception-handler"}

func (k RegionKind) String() string {
	if k < 0 || int(k) >= len(regionKindNames) {
		return "invalid"
	}
	return regionKindNames[k]
}

var regionIDSeq int64

func nextRegionID() int64 { return atomic.AddInt64(&regionIDSeq, 1) }

// Region is a hierarchical grouping of CFG nodes, preserved across lifting.
// Exactly one of the two variants applies, selected by Kind:
//
//   - RegionBasic: Members (nodes directly owned at this level, not
//     recursively through Children) plus nested child regions.
//   - RegionExceptionHandler: one Protected BasicRegion (identity-stable
//     for the region's lifetime) and an ordered list of Handlers.
type Region struct {
	id   int64
	Kind RegionKind

	// valid when Kind == RegionBasic
	Members  []graphcore.ID
	Children []*Region

	// valid when Kind == RegionExceptionHandler
	Protected *Region
	Handlers  []*Region
}

// NewBasicRegion constructs a RegionBasic with the given direct members and
// nested child regions.
func NewBasicRegion(members []graphcore.ID, children ...*Region) *Region {
	return &Region{
		id:       nextRegionID(),
		Kind:     RegionBasic,
		Members:  append([]graphcore.ID(nil), members...),
		Children: children,
	}
}

// NewExceptionHandlerRegion constructs a RegionExceptionHandler wrapping a
// protected BasicRegion and its ordered handler regions.
func NewExceptionHandlerRegion(protected *Region, handlers ...*Region) *Region {
	return &Region{
		id:        nextRegionID(),
		Kind:      RegionExceptionHandler,
		Protected: protected,
		Handlers:  handlers,
	}
}

// AddRegion registers r (and, recursively, every descendant region it owns)
// as a root-level region of the CFG. Every member node named, at any depth,
// must already exist in the graph, and must not already have an immediate
// region assigned — each node's immediate region is the most deeply nested
// region that directly lists it in Members.
func (c *CFG[I]) AddRegion(r *Region) error {
	if err := c.validateRegionShape(r); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.assignImmediateRegions(r); err != nil {
		return err
	}
	c.topRegions = append(c.topRegions, r)
	return nil
}

// Regions returns the root-level regions of this CFG, in insertion order.
func (c *CFG[I]) Regions() []*Region {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Region, len(c.topRegions))
	copy(out, c.topRegions)
	return out
}

// RegionOf returns the immediate region containing id, if any.
func (c *CFG[I]) RegionOf(id graphcore.ID) (*Region, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.nodeRegion[id]
	return r, ok
}

// MoveNodeToRegion atomically re-parents a node from its current immediate
// region (if any) to target, which must be a RegionBasic already registered
// (directly or transitively) with this CFG.
func (c *CFG[I]) MoveNodeToRegion(id graphcore.ID, target *Region) error {
	if target.Kind != RegionBasic {
		return ErrUnsupportedRegionKind
	}
	if !c.Base.HasNode(id) {
		return ErrNodeNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.nodeRegion[id]; ok {
		old.Members = removeID(old.Members, id)
	}
	target.Members = append(target.Members, id)
	c.nodeRegion[id] = target
	return nil
}

func removeID(ids []graphcore.ID, target graphcore.ID) []graphcore.ID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// validateRegionShape recursively confirms every region in the tree rooted
// at r is a recognized kind and every named member exists in the graph.
func (c *CFG[I]) validateRegionShape(r *Region) error {
	switch r.Kind {
	case RegionBasic:
		for _, m := range r.Members {
			if !c.Base.HasNode(m) {
				return ErrUnknownRegionMember
			}
		}
		for _, child := range r.Children {
			if err := c.validateRegionShape(child); err != nil {
				return err
			}
		}
	case RegionExceptionHandler:
		if r.Protected == nil || r.Protected.Kind != RegionBasic {
			return ErrUnsupportedRegionKind
		}
		if err := c.validateRegionShape(r.Protected); err != nil {
			return err
		}
		for _, h := range r.Handlers {
			if err := c.validateRegionShape(h); err != nil {
				return err
			}
		}
	default:
		return ErrUnsupportedRegionKind
	}
	return nil
}

// assignImmediateRegions walks the region tree rooted at r and records, for
// every RegionBasic's direct Members, that this is their immediate region —
// failing if a node is claimed by more than one region in the same AddRegion
// call (or a previously registered one).
func (c *CFG[I]) assignImmediateRegions(r *Region) error {
	switch r.Kind {
	case RegionBasic:
		for _, m := range r.Members {
			if _, already := c.nodeRegion[m]; already {
				return ErrNodeAlreadyRegioned
			}
			c.nodeRegion[m] = r
		}
		for _, child := range r.Children {
			if err := c.assignImmediateRegions(child); err != nil {
				return err
			}
		}
	case RegionExceptionHandler:
		if err := c.assignImmediateRegions(r.Protected); err != nil {
			return err
		}
		for _, h := range r.Handlers {
			if err := c.assignImmediateRegions(h); err != nil {
				return err
			}
		}
	}
	return nil
}
