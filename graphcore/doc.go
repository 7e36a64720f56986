// Package graphcore defines the minimal, generic graph substrate shared by
// the control-flow graph (cfg) and data-flow graph (dfg) models: node
// identity, directed edges carrying a typed label, and the narrow
// enumeration capability ("SubGraph") that higher layers consume
// polymorphically.
//
// There are no algorithms here — no traversal, no validation beyond the
// duplicate-identity check every graph needs. Everything else (regions,
// branch kinds, stack/variable dependencies) belongs to the layers built on
// top of this one.
package graphcore
