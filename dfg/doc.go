// Package dfg models a data-flow graph over a generic instruction type I:
// one node per instruction (keyed by offset), carrying two independent
// dependency collections recording where its inputs came from — a stack
// dependency per consumed stack slot and a variable dependency per read
// variable — plus a reverse "dependants" index for consumers.
//
// It follows graphcore's embedding idiom for node storage, with its own
// deterministic ordering and locking discipline layered on top for the
// dependency collections, which have no equivalent in the plain node/edge
// substrate below.
//
// Errors:
//
//	ErrDuplicateOffset   - a node with this offset already exists.
//	ErrNodeNotFound      - referenced node offset does not exist.
//	ErrUnknownProducer   - a dependency names a node absent from the graph.
//	ErrNegativeSlotIndex - a stack dependency was recorded at index < 0.
package dfg
