// File: lifter.go
// Role: The per-block, per-instruction rewriting algorithm — stack-slot and
// variable SSA versioning, φ synthesis and memoization, and assembly of the
// output CFG[ir.Statement[I]].
package lift

import (
	"fmt"
	"sort"

	"github.com/Charterino/Echo/cfg"
	"github.com/Charterino/Echo/dfg"
	"github.com/Charterino/Echo/graphcore"
	"github.com/Charterino/Echo/ir"
	isaPkg "github.com/Charterino/Echo/isa"
)

// Lifter owns the per-run bookkeeping a single lifting pass needs — stack
// slot assignments, SSA version counters, interned versioned variables, φ
// memoization — plus the synthetic id generator. Construct one with New,
// call Lift exactly once, then discard it — state is not safe to reuse
// across separate lifts.
type Lifter[I any] struct {
	isa    isaPkg.ISA[I]
	nextID int64

	// stackSlots[producer][pushIndex] is the AstVariable naming the
	// pushIndex-th value producer pushed, deepest first.
	stackSlots map[graphcore.ID][]*ir.AstVariable

	// variableVersions is the current SSA version counter per variable,
	// global across the whole run.
	variableVersions map[dfg.Variable]int

	// versionedVars interns (variable, version) -> AstVariable.
	versionedVars map[versionKey]*ir.AstVariable

	// nodeVersionAtWrite records, for each node that wrote a variable, the
	// version it assigned — needed to build an accurate per-producer
	// snapshot when resolving a variable with more than one producer,
	// rather than collapsing every producer to the same global "current"
	// version.
	nodeVersionAtWrite map[nodeVarKey]int

	// phiSlots memoizes φ-results for variable-dependency merges, keyed by
	// the canonical sorted snapshot of (variable, version) pairs being
	// merged.
	phiSlots map[string]*ir.AstVariable

	phiNodesInserted     int
	phiNodesDeduplicated int
	stackSlotsAllocated  int
}

type versionKey struct {
	Var     dfg.Variable
	Version int
}

type nodeVarKey struct {
	Node graphcore.ID
	Var  dfg.Variable
}

// New constructs a Lifter bound to instructionISA, which every instruction
// in the graphs passed to Lift must be compatible with.
func New[I any](instructionISA isaPkg.ISA[I], opts ...Option) *Lifter[I] {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	return &Lifter[I]{
		isa:                instructionISA,
		nextID:             c.idFloor,
		stackSlots:         make(map[graphcore.ID][]*ir.AstVariable),
		variableVersions:   make(map[dfg.Variable]int),
		versionedVars:      make(map[versionKey]*ir.AstVariable),
		nodeVersionAtWrite: make(map[nodeVarKey]int),
		phiSlots:           make(map[string]*ir.AstVariable),
	}
}

func (l *Lifter[I]) freshID() int64 {
	l.nextID--
	return l.nextID
}

func (l *Lifter[I]) ensureReadVersion(v dfg.Variable) int {
	if ver, ok := l.variableVersions[v]; ok {
		return ver
	}
	l.variableVersions[v] = 0
	return 0
}

func (l *Lifter[I]) bumpWriteVersion(v dfg.Variable) int {
	ver, ok := l.variableVersions[v]
	next := 0
	if ok {
		next = ver + 1
	}
	l.variableVersions[v] = next
	return next
}

func (l *Lifter[I]) internVersioned(v dfg.Variable, version int) *ir.AstVariable {
	key := versionKey{Var: v, Version: version}
	if existing, ok := l.versionedVars[key]; ok {
		return existing
	}
	fresh := &ir.AstVariable{Kind: ir.Versioned, Name: string(v), Version: version}
	l.versionedVars[key] = fresh
	return fresh
}

// Lift consumes g, d, and the Lifter's bound ISA and produces a new CFG
// with identical topology whose blocks hold lifted statements. g and d are
// read-only; this call does not mutate them.
func (l *Lifter[I]) Lift(g *cfg.CFG[I], d *dfg.DFG[I]) (*cfg.CFG[ir.Statement[I]], error) {
	if err := l.checkInputConsistency(g, d); err != nil {
		return nil, err
	}

	out := cfg.New[ir.Statement[I]]()

	nodes := g.Nodes()
	for _, block := range nodes {
		stmts, err := l.liftBlock(block, d)
		if err != nil {
			return nil, err
		}
		if err := out.AddNode(&cfg.BasicBlock[ir.Statement[I]]{Offset: block.ID(), Instructions: stmts}); err != nil {
			return nil, newError(InvariantViolation, int64(block.ID()), err)
		}
	}

	for _, e := range g.Edges() {
		if err := out.Connect(e.Origin, e.Target, e.Label); err != nil {
			return nil, newError(InvariantViolation, int64(e.Origin), err)
		}
	}

	entry, hasEntry := g.Entrypoint()
	if !hasEntry {
		return nil, newError(InvariantViolation, -1, fmt.Errorf("input CFG has no entrypoint"))
	}
	if err := out.SetEntrypoint(entry); err != nil {
		return nil, newError(InvariantViolation, int64(entry), err)
	}

	if err := l.transformRegions(g, out); err != nil {
		return nil, err
	}

	return out, nil
}

// checkInputConsistency enforces the lifter's contract: every CFG
// instruction offset must resolve to a DFG node, and every edge endpoint
// must be a CFG node.
func (l *Lifter[I]) checkInputConsistency(g *cfg.CFG[I], d *dfg.DFG[I]) error {
	for _, block := range g.Nodes() {
		for _, instr := range block.Instructions {
			o := graphcore.ID(l.isa.Offset(instr))
			if _, ok := d.Node(o); !ok {
				return newError(InconsistentInput, int64(o), fmt.Errorf("no DFG node for instruction offset"))
			}
		}
	}
	for _, e := range g.Edges() {
		if _, ok := g.Node(e.Origin); !ok {
			return newError(InconsistentInput, int64(e.Origin), fmt.Errorf("edge origin not in CFG"))
		}
		if _, ok := g.Node(e.Target); !ok {
			return newError(InconsistentInput, int64(e.Target), fmt.Errorf("edge target not in CFG"))
		}
	}
	return nil
}

func (l *Lifter[I]) liftBlock(block *cfg.BasicBlock[I], d *dfg.DFG[I]) ([]ir.Statement[I], error) {
	var phiStmts []ir.Statement[I]
	var body []ir.Statement[I]

	for _, instr := range block.Instructions {
		offset := graphcore.ID(l.isa.Offset(instr))

		stackArgs, newPhis, err := l.resolveStackArgs(offset, d)
		if err != nil {
			return nil, err
		}
		phiStmts = append(phiStmts, newPhis...)

		varArgs, newPhis2, err := l.resolveVariableArgs(offset, d)
		if err != nil {
			return nil, err
		}
		phiStmts = append(phiStmts, newPhis2...)

		args := append(stackArgs, varArgs...)
		expr := &ir.InstructionExpr[I]{Instruction: instr, Args: args}

		targets := l.computeWriteTargets(offset, instr)

		hasDependants := len(d.Dependants(offset)) > 0
		writesVariables := len(l.isa.WrittenVariables(instr)) > 0
		if !writesVariables && !hasDependants {
			body = append(body, &ir.ExpressionStatement[I]{Expr: expr})
			continue
		}

		body = append(body, &ir.Assignment[I]{Targets: targets, Expr: expr})
	}

	stmts := make([]ir.Statement[I], 0, len(phiStmts)+len(body))
	stmts = append(stmts, phiStmts...)
	stmts = append(stmts, body...)
	return stmts, nil
}

// resolveStackArgs resolves each of offset's stack-slot arguments to the
// AstVariable that produced it, synthesizing a φ where more than one
// predecessor value converges on the same slot.
func (l *Lifter[I]) resolveStackArgs(offset graphcore.ID, d *dfg.DFG[I]) ([]ir.Expression[I], []ir.Statement[I], error) {
	deps := d.StackDependencies(offset)
	args := make([]ir.Expression[I], 0, len(deps))
	var phis []ir.Statement[I]

	for _, sources := range deps {
		switch {
		case len(sources) == 1:
			ps := sources[0]
			v, err := l.stackSourceVar(ps, d)
			if err != nil {
				return nil, nil, err
			}
			args = append(args, &ir.VariableExpr[I]{Ref: v})

		case len(sources) > 1:
			sourceVars := make([]*ir.AstVariable, 0, len(sources))
			for _, ps := range sources {
				v, err := l.stackSourceVar(ps, d)
				if err != nil {
					return nil, nil, err
				}
				sourceVars = append(sourceVars, v)
			}
			target := &ir.AstVariable{Kind: ir.PhiSlot, Slot: l.freshID()}
			phis = append(phis, &ir.Phi[I]{Target: target, Sources: sourceVars})
			args = append(args, &ir.VariableExpr[I]{Ref: target})
			l.phiNodesInserted++

		default:
			return nil, nil, newError(InconsistentInput, int64(offset), fmt.Errorf("stack dependency slot with no source"))
		}
	}
	return args, phis, nil
}

func (l *Lifter[I]) stackSourceVar(ps dfg.ProducerSlot, d *dfg.DFG[I]) (*ir.AstVariable, error) {
	producerNode, ok := d.Node(ps.Producer)
	if !ok {
		return nil, newError(InconsistentInput, int64(ps.Producer), fmt.Errorf("stack dependency producer not in DFG"))
	}
	if producerNode.IsExternal {
		return &ir.AstVariable{Kind: ir.External, Name: producerNode.Name}, nil
	}
	slots := l.stackSlots[ps.Producer]
	if ps.SlotIndex < 0 || ps.SlotIndex >= len(slots) {
		return nil, newError(IsaContract, int64(ps.Producer), fmt.Errorf("stack slot index %d out of range (producer pushed %d values)", ps.SlotIndex, len(slots)))
	}
	return slots[ps.SlotIndex], nil
}

// resolveVariableArgs resolves each variable offset reads to its current
// versioned AstVariable, synthesizing and memoizing a φ where the variable
// has more than one live producer at this point.
func (l *Lifter[I]) resolveVariableArgs(consumer graphcore.ID, d *dfg.DFG[I]) ([]ir.Expression[I], []ir.Statement[I], error) {
	deps := d.VariableDependencies(consumer)
	args := make([]ir.Expression[I], 0, len(deps))
	var phis []ir.Statement[I]

	for _, dep := range deps {
		switch {
		case len(dep.Producers) <= 1:
			v, err := l.singleVariableSource(dep, d)
			if err != nil {
				return nil, nil, err
			}
			args = append(args, &ir.VariableExpr[I]{Ref: v})

		default:
			target, phi, err := l.mergeVariableSources(dep, d)
			if err != nil {
				return nil, nil, err
			}
			if phi != nil {
				phis = append(phis, phi)
			}
			args = append(args, &ir.VariableExpr[I]{Ref: target})
		}
	}
	return args, phis, nil
}

func (l *Lifter[I]) singleVariableSource(dep dfg.VariableDependency, d *dfg.DFG[I]) (*ir.AstVariable, error) {
	if len(dep.Producers) == 0 {
		version := l.ensureReadVersion(dep.Variable)
		return l.internVersioned(dep.Variable, version), nil
	}
	producer := dep.Producers[0]
	node, ok := d.Node(producer)
	if !ok {
		return nil, newError(InconsistentInput, int64(producer), fmt.Errorf("variable dependency producer not in DFG"))
	}
	if node.IsExternal {
		return &ir.AstVariable{Kind: ir.External, Name: node.Name}, nil
	}
	version, ok := l.nodeVersionAtWrite[nodeVarKey{Node: producer, Var: dep.Variable}]
	if !ok {
		version = l.ensureReadVersion(dep.Variable)
	}
	return l.internVersioned(dep.Variable, version), nil
}

func (l *Lifter[I]) mergeVariableSources(dep dfg.VariableDependency, d *dfg.DFG[I]) (*ir.AstVariable, ir.Statement[I], error) {
	type snapshotEntry struct {
		external bool
		name     string
		version  int
	}

	entries := make([]snapshotEntry, 0, len(dep.Producers))
	sources := make([]*ir.AstVariable, 0, len(dep.Producers))

	for _, producer := range dep.Producers {
		node, ok := d.Node(producer)
		if !ok {
			return nil, nil, newError(InconsistentInput, int64(producer), fmt.Errorf("variable dependency producer not in DFG"))
		}
		if node.IsExternal {
			entries = append(entries, snapshotEntry{external: true, name: node.Name})
			sources = append(sources, &ir.AstVariable{Kind: ir.External, Name: node.Name})
			continue
		}
		version, ok := l.nodeVersionAtWrite[nodeVarKey{Node: producer, Var: dep.Variable}]
		if !ok {
			version = l.ensureReadVersion(dep.Variable)
		}
		entries = append(entries, snapshotEntry{name: string(dep.Variable), version: version})
		sources = append(sources, l.internVersioned(dep.Variable, version))
	}

	sort.Slice(entries, func(a, b int) bool {
		if entries[a].external != entries[b].external {
			return !entries[a].external && entries[b].external
		}
		if entries[a].name != entries[b].name {
			return entries[a].name < entries[b].name
		}
		return entries[a].version < entries[b].version
	})
	sort.Slice(sources, func(a, b int) bool { return sources[a].String() < sources[b].String() })

	key := ""
	for _, e := range entries {
		key += fmt.Sprintf("|%v:%s:%d", e.external, e.name, e.version)
	}

	if existing, ok := l.phiSlots[key]; ok {
		l.phiNodesDeduplicated++
		return existing, nil, nil
	}

	target := &ir.AstVariable{Kind: ir.PhiSlot, Slot: l.freshID()}
	l.phiSlots[key] = target
	l.phiNodesInserted++
	return target, &ir.Phi[I]{Target: target, Sources: sources}, nil
}

// computeWriteTargets allocates a fresh stack slot for each value offset's
// instruction pushes and a fresh SSA version for each variable it writes,
// returning the combined target list an Assignment binds its result to.
func (l *Lifter[I]) computeWriteTargets(offset graphcore.ID, instr I) []*ir.AstVariable {
	pushCount := l.isa.StackPushCount(instr)
	targets := make([]*ir.AstVariable, 0, pushCount+1)

	slots := make([]*ir.AstVariable, pushCount)
	for i := 0; i < pushCount; i++ {
		slot := &ir.AstVariable{Kind: ir.StackSlot, Slot: l.freshID()}
		slots[i] = slot
		targets = append(targets, slot)
	}
	l.stackSlots[offset] = slots
	l.stackSlotsAllocated += pushCount

	for _, w := range l.isa.WrittenVariables(instr) {
		version := l.bumpWriteVersion(w)
		l.nodeVersionAtWrite[nodeVarKey{Node: offset, Var: w}] = version
		targets = append(targets, l.internVersioned(w, version))
	}

	return targets
}
