// File: isa.go
// Role: The per-instruction query surface package lift depends on. Nothing
// here knows what an instruction actually is — callers supply an ISA[I] for
// their own I, typically a thin adapter over an existing decoder.
package isa

import "github.com/Charterino/Echo/dfg"

// ISA is the capability interface a generic instruction type I must be
// adapted to before it can be lifted. Implementations are expected to be
// pure and side-effect-free — the lifter may call any method any number of
// times for the same instruction value.
type ISA[I any] interface {
	// Offset returns the byte/word offset identifying instruction i within
	// its instruction stream — the same value used as its CFG/DFG node id.
	Offset(i I) int64

	// StackPushCount returns how many values i pushes onto the evaluation
	// stack, in push order.
	StackPushCount(i I) int

	// StackPopCount returns how many values i consumes from the evaluation
	// stack.
	StackPopCount(i I) int

	// WrittenVariables returns the variables i assigns, in a stable order
	// (callers must not rely on any particular order beyond stability
	// across repeated calls for the same i).
	WrittenVariables(i I) []dfg.Variable

	// ReadVariables returns the variables i reads.
	ReadVariables(i I) []dfg.Variable
}
