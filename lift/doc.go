// Package lift implements the AST lifting pass: it consumes a completed
// CFG[I], DFG[I], and ISA[I], and produces a CFG[ir.Statement[I]] with
// identical topology (nodes, edges, region tree) whose basic blocks have
// been rewritten into SSA-form statements and expressions.
//
// This is the core of the core — on-the-fly variable versioning, φ-node
// insertion and memoization at data-flow merge points, and an abstract
// evaluation stack modeled as named synthetic slots. Sources are resolved
// directly from the already-built data-flow graph's recorded producers
// rather than computed from a dominance frontier: the per-instruction
// dependency edges already name who feeds each argument, so a φ is
// synthesized exactly where the data-flow graph shows more than one
// producer converging, and reused whenever two merges share the same
// canonical set of producers.
//
// A Lifter is single-use: construct one with New, call Lift once, discard
// it. Its id counter and memoization tables are not safe to reuse or share
// across concurrent lifts of different functions — each lift of a given
// function gets a fresh Lifter.
package lift
