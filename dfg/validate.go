// File: validate.go
// Role: Whole-graph structural invariant checking for the DFG, accumulating
// every violation rather than failing on the first — same go-multierror
// discipline as cfg.Validate.
package dfg

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/Charterino/Echo/graphcore"
)

// Validate checks:
//
//   - every stack-dependency producer id names a node of this graph;
//   - every variable-dependency producer id names a node of this graph;
//   - bidirectional consistency: every (producer, consumer) pair implied by
//     a stack or variable dependency appears in Dependants(producer), and
//     vice versa.
//
// Slot-index bounds against a producer's declared push count require ISA
// access this package does not have; callers that hold an isa.ISA[I] should
// layer that check on top (see lift's use of both together).
func (d *DFG[I]) Validate() error {
	var result *multierror.Error

	d.mu.RLock()
	defer d.mu.RUnlock()

	forward := make(map[[2]int64]struct{})

	for consumer, slots := range d.stackDeps {
		for k, set := range slots {
			for ps := range set {
				if !d.Base.HasNode(ps.Producer) {
					result = multierror.Append(result, fmt.Errorf("%w: stack dep slot %d consumer %d -> producer %d", ErrUnknownProducer, k, consumer, ps.Producer))
					continue
				}
				forward[[2]int64{int64(ps.Producer), int64(consumer)}] = struct{}{}
			}
		}
	}

	for consumer, byVar := range d.varDeps {
		for _, producers := range byVar {
			for p := range producers {
				if !d.Base.HasNode(p) {
					result = multierror.Append(result, fmt.Errorf("%w: variable dep consumer %d -> producer %d", ErrUnknownProducer, consumer, p))
					continue
				}
				forward[[2]int64{int64(p), int64(consumer)}] = struct{}{}
			}
		}
	}

	for producer, consumers := range d.dependants {
		for consumer := range consumers {
			if _, ok := forward[[2]int64{int64(producer), int64(consumer)}]; !ok {
				result = multierror.Append(result, fmt.Errorf("dfg: dependants entry %d -> %d has no matching forward dependency", producer, consumer))
			}
		}
	}
	for pair := range forward {
		producer, consumer := graphcore.ID(pair[0]), graphcore.ID(pair[1])
		if _, ok := d.dependants[producer][consumer]; !ok {
			result = multierror.Append(result, fmt.Errorf("dfg: forward dependency %d -> %d missing from dependants", producer, consumer))
		}
	}

	return result.ErrorOrNil()
}
