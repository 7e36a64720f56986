// File: region.go
// Role: Region-tree transformation: BasicRegion and ExceptionHandlerRegion
// are rebuilt fresh in the output CFG, preserving member offsets, nesting,
// and handler order.
package lift

import (
	"fmt"

	"github.com/Charterino/Echo/cfg"
	"github.com/Charterino/Echo/graphcore"
	"github.com/Charterino/Echo/ir"
)

// transformRegions rebuilds every root-level region of the input CFG into
// an equivalent region of out. Because region Members are lists of node
// offsets and offsets are identical between input and output graphs, a
// structural copy is sufficient: the region constructed here with the same
// Members will recompute the correct immediate-region assignment through
// AddRegion itself.
func (l *Lifter[I]) transformRegions(g *cfg.CFG[I], out *cfg.CFG[ir.Statement[I]]) error {
	for _, root := range g.Regions() {
		transformed, err := transformRegion(root)
		if err != nil {
			return err
		}
		if err := out.AddRegion(transformed); err != nil {
			return newError(InvariantViolation, -1, err)
		}
	}
	return nil
}

func transformRegion(old *cfg.Region) (*cfg.Region, error) {
	switch old.Kind {
	case cfg.RegionBasic:
		children := make([]*cfg.Region, len(old.Children))
		for i, c := range old.Children {
			child, err := transformRegion(c)
			if err != nil {
				return nil, err
			}
			children[i] = child
		}
		return cfg.NewBasicRegion(copyMembers(old.Members), children...), nil

	case cfg.RegionExceptionHandler:
		protected, err := transformRegion(old.Protected)
		if err != nil {
			return nil, err
		}
		handlers := make([]*cfg.Region, len(old.Handlers))
		for i, h := range old.Handlers {
			handler, err := transformRegion(h)
			if err != nil {
				return nil, err
			}
			handlers[i] = handler
		}
		return cfg.NewExceptionHandlerRegion(protected, handlers...), nil

	default:
		return nil, newError(UnsupportedRegionKind, -1, fmt.Errorf("region kind %v", old.Kind))
	}
}

func copyMembers(members []graphcore.ID) []graphcore.ID {
	out := make([]graphcore.ID, len(members))
	copy(out, members)
	return out
}
