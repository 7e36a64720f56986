// File: stats.go
// Role: Post-lift instrumentation counters, replacing the source baseline's
// ad hoc fmt.Print progress lines (ssa.go) with structured, queryable state
// — no stdout output, since printing progress is not an ambient-stack
// concern this corpus keeps inside library code.
package lift

// Stats reports counters accumulated over the lifetime of this Lifter.
type Stats struct {
	PhiNodesInserted       int
	PhiNodesDeduplicated   int
	StackSlotsAllocated    int
	VersionedVarsAllocated int
}

// Stats returns the current counters. Meaningful after Lift returns, but
// also readable mid-run since the Lifter is single-threaded.
func (l *Lifter[I]) Stats() Stats {
	return Stats{
		PhiNodesInserted:       l.phiNodesInserted,
		PhiNodesDeduplicated:   l.phiNodesDeduplicated,
		StackSlotsAllocated:    l.stackSlotsAllocated,
		VersionedVarsAllocated: len(l.versionedVars),
	}
}
