// File: errors.go
// Role: Structured lifter failure reporting — a Kind enum classifying why a
// lift failed and the offending offset, carried as fields of Error, with the
// underlying cause wrapped by github.com/pkg/errors to record a stack trace.
package lift

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies why a lift failed.
type Kind int

const (
	// InconsistentInput: DFG missing a node for some instruction offset;
	// CFG edge endpoint not in Nodes; region references an unknown node.
	InconsistentInput Kind = iota
	// InvariantViolation: duplicate offset during node insertion; multiple
	// fall-through/unconditional successors; entrypoint not in graph.
	InvariantViolation
	// UnsupportedRegionKind: an encountered region variant is neither Basic
	// nor ExceptionHandler.
	UnsupportedRegionKind
	// IsaContract: the supplied ISA[I] returned data inconsistent with the
	// DFG it was paired with (e.g. a stack dependency slot index outside
	// the producer's declared push count).
	IsaContract
)

var kindNames = [...]string{"inconsistent-input", "invariant-violation", "unsupported-region-kind", "isa-contract"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "invalid"
	}
	return kindNames[k]
}

// Error is the structured failure type every exported lift operation
// returns on failure. Offset names the offending instruction/node when
// known; -1 means "not applicable" (e.g. a region-shape failure with no
// single offending offset).
type Error struct {
	Kind   Kind
	Offset int64
	cause  error
}

func (e *Error) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.cause)
	}
	return fmt.Sprintf("%s: offset %d: %s", e.Kind, e.Offset, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// newError wraps cause (via pkg/errors, recording the current stack) into a
// structured Error of the given kind and offending offset.
func newError(kind Kind, offset int64, cause error) *Error {
	return &Error{Kind: kind, Offset: offset, cause: errors.WithStack(cause)}
}
