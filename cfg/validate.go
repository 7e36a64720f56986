// File: validate.go
// Role: Whole-graph structural invariant checking, accumulating every
// violation found rather than failing fast on the first one, so a caller
// sees every problem up front instead of rediscovering them one
// fix-and-rerun cycle at a time.
package cfg

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/exp/maps"

	"github.com/Charterino/Echo/graphcore"
)

// Validate checks every structural invariant this package promises and
// returns a *multierror.Error accumulating every violation found (nil if
// none). Checked:
//
//   - an entrypoint has been set, and it names a node in the graph;
//   - every edge's endpoints are graph nodes (should be unreachable given
//     Connect's own checks, but Validate does not trust construction-time
//     history — a CFG may have been assembled by a collaborator that bypassed
//     Connect, e.g. via direct struct literal composition in a test);
//   - no node exceeds the fall-through/unconditional multiplicity rule;
//   - every region member id resolves to a graph node.
func (c *CFG[I]) Validate() error {
	var result *multierror.Error

	entry, hasEntry := c.Entrypoint()
	if !hasEntry {
		result = multierror.Append(result, ErrEntrypointNotInGraph)
	} else if _, ok := c.Node(entry); !ok {
		result = multierror.Append(result, fmt.Errorf("%w: offset %d", ErrEntrypointNotInGraph, entry))
	}

	for _, n := range c.Nodes() {
		seenFallThrough, seenUnconditional := false, false
		for _, e := range c.Base.OutEdges(n.ID()) {
			if _, ok := c.Node(e.Target); !ok {
				result = multierror.Append(result, fmt.Errorf("%w: %d -> %d", ErrDanglingEdgeEndpoint, e.Origin, e.Target))
			}
			switch e.Label {
			case FallThrough:
				if seenFallThrough {
					result = multierror.Append(result, fmt.Errorf("%w: node %d", ErrMultipleFallThrough, n.ID()))
				}
				seenFallThrough = true
			case Unconditional:
				if seenUnconditional {
					result = multierror.Append(result, fmt.Errorf("%w: node %d", ErrMultipleUnconditional, n.ID()))
				}
				seenUnconditional = true
			}
		}
	}

	regioned := maps.Keys(c.nodeRegion)
	sortIDs(regioned)
	for _, id := range regioned {
		if _, ok := c.Node(id); !ok {
			result = multierror.Append(result, fmt.Errorf("%w: %d", ErrUnknownRegionMember, id))
		}
	}

	return result.ErrorOrNil()
}

func sortIDs(ids []graphcore.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
