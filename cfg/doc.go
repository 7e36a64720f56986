// Package cfg models a control-flow graph over basic blocks of a generic
// instruction type I: nodes keyed by the offset of their first instruction,
// typed control edges (fall-through, unconditional, conditional, abnormal),
// and a hierarchy of nested regions (including exception handlers) that
// survives unchanged through the lifting pass in package lift.
//
// A CFG[I] is built by an external collaborator (disassembly and initial
// graph construction are out of scope here, per the system's boundary
// contracts) and is read-only from the perspective of package lift, which
// consumes it to produce a CFG[ir.Statement[I]] with identical topology.
//
// Errors:
//
//	ErrDuplicateOffset    - a node with this offset already exists.
//	ErrNodeNotFound       - referenced node offset does not exist.
//	ErrMultipleFallThrough - a node already has a fall-through successor.
//	ErrMultipleUnconditional - a node already has an unconditional successor.
//	ErrRedundantEdge      - an identical edge (origin, target, kind) exists.
//	ErrEntrypointNotInGraph - SetEntrypoint referenced an absent node.
//	ErrDanglingEdgeEndpoint - an edge endpoint is not a node of the graph.
//	ErrNodeAlreadyRegioned  - a node was offered to two immediate regions.
//	ErrUnknownRegionMember  - a region names a node absent from the graph.
//	ErrUnsupportedRegionKind - a Region value with neither Basic nor
//	                           ExceptionHandler shape.
package cfg
