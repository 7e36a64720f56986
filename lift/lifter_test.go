package lift_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Charterino/Echo/cfg"
	"github.com/Charterino/Echo/dfg"
	"github.com/Charterino/Echo/graphcore"
	"github.com/Charterino/Echo/ir"
	"github.com/Charterino/Echo/lift"
)

// instr is a minimal stack-machine instruction, just rich enough to exercise
// every lifter rule in isolation.
type instr struct {
	Off    int64
	Op     string
	Push   int
	Pop    int
	Writes []dfg.Variable
	Reads  []dfg.Variable
}

func (i instr) String() string { return i.Op }

type testISA struct{}

func (testISA) Offset(i instr) int64                   { return i.Off }
func (testISA) StackPushCount(i instr) int              { return i.Push }
func (testISA) StackPopCount(i instr) int               { return i.Pop }
func (testISA) WrittenVariables(i instr) []dfg.Variable { return i.Writes }
func (testISA) ReadVariables(i instr) []dfg.Variable    { return i.Reads }

func mustConnect(t *testing.T, g *cfg.CFG[instr], from, to graphcore.ID, kind cfg.EdgeKind) {
	t.Helper()
	require.NoError(t, g.Connect(from, to, kind))
}

// TestLift_StackOnlyChain lifts push 1; push 2; add; pop, wired purely
// through stack dependencies, with the final pop's result unused.
func TestLift_StackOnlyChain(t *testing.T) {
	push1 := instr{Off: 0, Op: "push1", Push: 1}
	push2 := instr{Off: 1, Op: "push2", Push: 1}
	add := instr{Off: 2, Op: "add", Pop: 2, Push: 1}
	pop := instr{Off: 3, Op: "pop", Pop: 1}

	g := cfg.New[instr]()
	require.NoError(t, g.AddNode(&cfg.BasicBlock[instr]{Offset: 0, Instructions: []instr{push1, push2, add, pop}}))
	require.NoError(t, g.SetEntrypoint(0))

	d := dfg.New[instr]()
	for _, off := range []graphcore.ID{0, 1, 2, 3} {
		require.NoError(t, d.AddNode(&dfg.Node{Offset: off}))
	}
	require.NoError(t, d.SetStackDependency(2, 0, 0, 0))
	require.NoError(t, d.SetStackDependency(2, 1, 1, 0))
	require.NoError(t, d.SetStackDependency(3, 0, 2, 0))

	l := lift.New[instr](testISA{})
	out, err := l.Lift(g, d)
	require.NoError(t, err)

	block, ok := out.Node(0)
	require.True(t, ok)
	require.Len(t, block.Instructions, 4)

	a0, ok := block.Instructions[0].(*ir.Assignment[instr])
	require.True(t, ok)
	require.Len(t, a0.Targets, 1)
	assert.Equal(t, ir.StackSlot, a0.Targets[0].Kind)
	slot0 := a0.Targets[0]

	a1, ok := block.Instructions[1].(*ir.Assignment[instr])
	require.True(t, ok)
	require.Len(t, a1.Targets, 1)
	slot1 := a1.Targets[0]

	a2, ok := block.Instructions[2].(*ir.Assignment[instr])
	require.True(t, ok)
	require.Len(t, a2.Targets, 1)
	addExpr, ok := a2.Expr.(*ir.InstructionExpr[instr])
	require.True(t, ok)
	require.Len(t, addExpr.Args, 2)
	assert.Same(t, slot0, addExpr.Args[0].(*ir.VariableExpr[instr]).Ref)
	assert.Same(t, slot1, addExpr.Args[1].(*ir.VariableExpr[instr]).Ref)

	es, ok := block.Instructions[3].(*ir.ExpressionStatement[instr])
	require.True(t, ok)
	popExpr, ok := es.Expr.(*ir.InstructionExpr[instr])
	require.True(t, ok)
	require.Len(t, popExpr.Args, 1)
	assert.Same(t, a2.Targets[0], popExpr.Args[0].(*ir.VariableExpr[instr]).Ref)
}

// TestLift_VariableWriteThenRead lifts store x; load x and checks the read
// binds to the versioned slot the store produced.
func TestLift_VariableWriteThenRead(t *testing.T) {
	store := instr{Off: 0, Op: "store", Writes: []dfg.Variable{"x"}}
	load := instr{Off: 1, Op: "load", Reads: []dfg.Variable{"x"}}

	g := cfg.New[instr]()
	require.NoError(t, g.AddNode(&cfg.BasicBlock[instr]{Offset: 0, Instructions: []instr{store, load}}))
	require.NoError(t, g.SetEntrypoint(0))

	d := dfg.New[instr]()
	require.NoError(t, d.AddNode(&dfg.Node{Offset: 0}))
	require.NoError(t, d.AddNode(&dfg.Node{Offset: 1}))
	require.NoError(t, d.SetVariableDependency(1, "x", 0))

	l := lift.New[instr](testISA{})
	out, err := l.Lift(g, d)
	require.NoError(t, err)

	block, ok := out.Node(0)
	require.True(t, ok)
	require.Len(t, block.Instructions, 2)

	a0, ok := block.Instructions[0].(*ir.Assignment[instr])
	require.True(t, ok)
	require.Len(t, a0.Targets, 1)
	assert.Equal(t, ir.Versioned, a0.Targets[0].Kind)
	assert.Equal(t, "x_v0", a0.Targets[0].String())

	es, ok := block.Instructions[1].(*ir.ExpressionStatement[instr])
	require.True(t, ok)
	loadExpr := es.Expr.(*ir.InstructionExpr[instr])
	require.Len(t, loadExpr.Args, 1)
	assert.Same(t, a0.Targets[0], loadExpr.Args[0].(*ir.VariableExpr[instr]).Ref)
}

// TestLift_BranchMergeProducesSharedPhi has two predecessor blocks each write
// y; the join block reads y once and must see a single phi node, not two.
func TestLift_BranchMergeProducesSharedPhi(t *testing.T) {
	storeY1 := instr{Off: 0, Op: "store_y", Writes: []dfg.Variable{"y"}}
	storeY2 := instr{Off: 10, Op: "store_y", Writes: []dfg.Variable{"y"}}
	readY := instr{Off: 20, Op: "read_y", Reads: []dfg.Variable{"y"}}

	g := cfg.New[instr]()
	require.NoError(t, g.AddNode(&cfg.BasicBlock[instr]{Offset: 0, Instructions: []instr{storeY1}}))
	require.NoError(t, g.AddNode(&cfg.BasicBlock[instr]{Offset: 10, Instructions: []instr{storeY2}}))
	require.NoError(t, g.AddNode(&cfg.BasicBlock[instr]{Offset: 20, Instructions: []instr{readY}}))
	mustConnect(t, g, 0, 20, cfg.Unconditional)
	mustConnect(t, g, 10, 20, cfg.Unconditional)
	require.NoError(t, g.SetEntrypoint(0))

	d := dfg.New[instr]()
	for _, off := range []graphcore.ID{0, 10, 20} {
		require.NoError(t, d.AddNode(&dfg.Node{Offset: off}))
	}
	require.NoError(t, d.SetVariableDependency(20, "y", 0))
	require.NoError(t, d.SetVariableDependency(20, "y", 10))

	l := lift.New[instr](testISA{})
	out, err := l.Lift(g, d)
	require.NoError(t, err)

	join, ok := out.Node(20)
	require.True(t, ok)
	require.Len(t, join.Instructions, 2)

	phi, ok := join.Instructions[0].(*ir.Phi[instr])
	require.True(t, ok, "join block must be prepended with its phi statement")
	require.Len(t, phi.Sources, 2)
	names := []string{phi.Sources[0].String(), phi.Sources[1].String()}
	assert.ElementsMatch(t, []string{"y_v0", "y_v1"}, names)

	es, ok := join.Instructions[1].(*ir.ExpressionStatement[instr])
	require.True(t, ok)
	readExpr := es.Expr.(*ir.InstructionExpr[instr])
	assert.Same(t, phi.Target, readExpr.Args[0].(*ir.VariableExpr[instr]).Ref)

	stats := l.Stats()
	assert.Equal(t, 1, stats.PhiNodesInserted)
	assert.Equal(t, 0, stats.PhiNodesDeduplicated)
}

// TestLift_StackMergeProducesPhi has two predecessors each push a value onto
// the same stack slot; the join block's consumer must see a phi of the two.
func TestLift_StackMergeProducesPhi(t *testing.T) {
	push1 := instr{Off: 0, Op: "push1", Push: 1}
	push2 := instr{Off: 10, Op: "push2", Push: 1}
	consume := instr{Off: 20, Op: "consume", Pop: 1}

	g := cfg.New[instr]()
	require.NoError(t, g.AddNode(&cfg.BasicBlock[instr]{Offset: 0, Instructions: []instr{push1}}))
	require.NoError(t, g.AddNode(&cfg.BasicBlock[instr]{Offset: 10, Instructions: []instr{push2}}))
	require.NoError(t, g.AddNode(&cfg.BasicBlock[instr]{Offset: 20, Instructions: []instr{consume}}))
	mustConnect(t, g, 0, 20, cfg.Unconditional)
	mustConnect(t, g, 10, 20, cfg.Unconditional)
	require.NoError(t, g.SetEntrypoint(0))

	d := dfg.New[instr]()
	for _, off := range []graphcore.ID{0, 10, 20} {
		require.NoError(t, d.AddNode(&dfg.Node{Offset: off}))
	}
	require.NoError(t, d.SetStackDependency(20, 0, 0, 0))
	require.NoError(t, d.SetStackDependency(20, 0, 10, 0))

	l := lift.New[instr](testISA{})
	out, err := l.Lift(g, d)
	require.NoError(t, err)

	join, ok := out.Node(20)
	require.True(t, ok)
	require.Len(t, join.Instructions, 2)

	phi, ok := join.Instructions[0].(*ir.Phi[instr])
	require.True(t, ok)
	assert.Equal(t, ir.PhiSlot, phi.Target.Kind)

	es, ok := join.Instructions[1].(*ir.ExpressionStatement[instr])
	require.True(t, ok)
	consumeExpr := es.Expr.(*ir.InstructionExpr[instr])
	assert.Same(t, phi.Target, consumeExpr.Args[0].(*ir.VariableExpr[instr]).Ref)
}

// TestLift_ExternalSourceBindsDirectly checks that a single producer backed
// by an external data-source node binds directly to its name, with no phi.
func TestLift_ExternalSourceBindsDirectly(t *testing.T) {
	use := instr{Off: 0, Op: "use", Pop: 1}

	g := cfg.New[instr]()
	require.NoError(t, g.AddNode(&cfg.BasicBlock[instr]{Offset: 0, Instructions: []instr{use}}))
	require.NoError(t, g.SetEntrypoint(0))

	d := dfg.New[instr]()
	require.NoError(t, d.AddNode(&dfg.Node{Offset: -1, IsExternal: true, Name: "arg0"}))
	require.NoError(t, d.AddNode(&dfg.Node{Offset: 0}))
	require.NoError(t, d.SetStackDependency(0, 0, -1, 0))

	l := lift.New[instr](testISA{})
	out, err := l.Lift(g, d)
	require.NoError(t, err)

	block, ok := out.Node(0)
	require.True(t, ok)
	require.Len(t, block.Instructions, 1)

	es, ok := block.Instructions[0].(*ir.ExpressionStatement[instr])
	require.True(t, ok)
	expr := es.Expr.(*ir.InstructionExpr[instr])
	require.Len(t, expr.Args, 1)
	ref := expr.Args[0].(*ir.VariableExpr[instr]).Ref
	assert.Equal(t, ir.External, ref.Kind)
	assert.Equal(t, "arg0", ref.Name)

	stats := l.Stats()
	assert.Equal(t, 0, stats.PhiNodesInserted)
}

// TestLift_ExceptionHandlerRegionPreserved checks that an exception-handler
// region with two handlers survives lifting with identical member offsets
// and handler count/order.
func TestLift_ExceptionHandlerRegionPreserved(t *testing.T) {
	nop := func(off int64) instr { return instr{Off: off, Op: "nop"} }

	g := cfg.New[instr]()
	for _, off := range []graphcore.ID{0, 1, 2} {
		require.NoError(t, g.AddNode(&cfg.BasicBlock[instr]{Offset: off, Instructions: []instr{nop(int64(off))}}))
	}
	require.NoError(t, g.SetEntrypoint(0))

	protected := cfg.NewBasicRegion([]graphcore.ID{0})
	handler1 := cfg.NewBasicRegion([]graphcore.ID{1})
	handler2 := cfg.NewBasicRegion([]graphcore.ID{2})
	region := cfg.NewExceptionHandlerRegion(protected, handler1, handler2)
	require.NoError(t, g.AddRegion(region))

	d := dfg.New[instr]()
	for _, off := range []graphcore.ID{0, 1, 2} {
		require.NoError(t, d.AddNode(&dfg.Node{Offset: off}))
	}

	l := lift.New[instr](testISA{})
	out, err := l.Lift(g, d)
	require.NoError(t, err)

	regions := out.Regions()
	require.Len(t, regions, 1)
	outRegion := regions[0]
	assert.Equal(t, cfg.RegionExceptionHandler, outRegion.Kind)
	require.NotNil(t, outRegion.Protected)
	assert.Equal(t, []graphcore.ID{0}, outRegion.Protected.Members)
	require.Len(t, outRegion.Handlers, 2)
	assert.Equal(t, []graphcore.ID{1}, outRegion.Handlers[0].Members)
	assert.Equal(t, []graphcore.ID{2}, outRegion.Handlers[1].Members)

	entry, hasEntry := out.Entrypoint()
	require.True(t, hasEntry)
	assert.Equal(t, graphcore.ID(0), entry)
}

// TestLift_InconsistentInput_MissingDFGNode verifies the fail-fast contract:
// a CFG instruction with no corresponding DFG node is a structured error
// naming the offending offset.
func TestLift_InconsistentInput_MissingDFGNode(t *testing.T) {
	g := cfg.New[instr]()
	require.NoError(t, g.AddNode(&cfg.BasicBlock[instr]{Offset: 0, Instructions: []instr{{Off: 0, Op: "nop"}}}))
	require.NoError(t, g.SetEntrypoint(0))

	d := dfg.New[instr]()

	l := lift.New[instr](testISA{})
	_, err := l.Lift(g, d)
	require.Error(t, err)

	var liftErr *lift.Error
	require.ErrorAs(t, err, &liftErr)
	assert.Equal(t, lift.InconsistentInput, liftErr.Kind)
	assert.Equal(t, int64(0), liftErr.Offset)
}

// TestLift_Determinism runs the same input through two independent Lifters
// and checks the resulting statement structure and stats match exactly.
func TestLift_Determinism(t *testing.T) {
	build := func() (*cfg.CFG[instr], *dfg.DFG[instr]) {
		g := cfg.New[instr]()
		require.NoError(t, g.AddNode(&cfg.BasicBlock[instr]{Offset: 0, Instructions: []instr{
			{Off: 0, Op: "store", Writes: []dfg.Variable{"x"}},
			{Off: 1, Op: "load", Reads: []dfg.Variable{"x"}},
		}}))
		require.NoError(t, g.SetEntrypoint(0))

		d := dfg.New[instr]()
		require.NoError(t, d.AddNode(&dfg.Node{Offset: 0}))
		require.NoError(t, d.AddNode(&dfg.Node{Offset: 1}))
		require.NoError(t, d.SetVariableDependency(1, "x", 0))
		return g, d
	}

	g1, d1 := build()
	g2, d2 := build()

	out1, err := lift.New[instr](testISA{}).Lift(g1, d1)
	require.NoError(t, err)
	out2, err := lift.New[instr](testISA{}).Lift(g2, d2)
	require.NoError(t, err)

	b1, _ := out1.Node(0)
	b2, _ := out2.Node(0)
	require.Equal(t, len(b1.Instructions), len(b2.Instructions))
	for i := range b1.Instructions {
		assert.Equal(t, b1.Instructions[i].String(), b2.Instructions[i].String())
	}

	l1, l2 := lift.New[instr](testISA{}), lift.New[instr](testISA{})
	_, err = l1.Lift(g1, d1)
	require.NoError(t, err)
	g3, d3 := build()
	_, err = l2.Lift(g3, d3)
	require.NoError(t, err)
	if diff := cmp.Diff(l1.Stats(), l2.Stats()); diff != "" {
		t.Errorf("lifter stats diverged between identical runs (-first +second):\n%s", diff)
	}
}
