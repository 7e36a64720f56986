// File: dfg.go
// Role: Data-flow graph nodes and dependency bookkeeping — ordered stack
// dependencies, variable dependencies, and the derived Dependants reverse
// index, kept in lockstep so forward dependencies and Dependants never
// drift apart.
package dfg

import (
	"errors"
	"sort"
	"sync"

	"github.com/Charterino/Echo/graphcore"
)

// Sentinel errors for DFG construction. See doc.go for the full list.
var (
	ErrDuplicateOffset   = errors.New("dfg: node with this offset already exists")
	ErrNodeNotFound      = errors.New("dfg: node not found")
	ErrUnknownProducer   = errors.New("dfg: producer not found in graph")
	ErrNegativeSlotIndex = errors.New("dfg: stack dependency index must be >= 0")
)

// Variable names a source-level variable tracked by the data-flow graph.
// Identity is by value — a plain comparable key rather than an interned
// handle — so two Variables naming the same storage compare equal directly.
type Variable string

// Node is a single DFG node: either an ordinary instruction node (keyed by
// its offset) or an ExternalDataSourceNode representing a value entering
// from outside the analyzed code — a parameter or initial local.
type Node struct {
	Offset graphcore.ID

	// IsExternal, when true, marks this as an ExternalDataSourceNode; Name
	// is then its human-readable identity (e.g. "arg0"). Offset for an
	// external node is a synthetic id, same descending-below-zero space the
	// lift package uses for every other synthetic node it mints.
	IsExternal bool
	Name       string
}

// ID satisfies graphcore.Node.
func (n *Node) ID() graphcore.ID { return n.Offset }

// ProducerSlot names one contributor to a stack dependency set: the
// producing node and which of its pushed values is consumed.
type ProducerSlot struct {
	Producer  graphcore.ID
	SlotIndex int
}

// DFG is the data-flow graph for a single function: one node per
// instruction (plus any external sources), each carrying an ordered stack
// dependency list and a variable dependency map, with a derived reverse
// index (Dependants) maintained automatically as dependencies change.
type DFG[I any] struct {
	*graphcore.Base[*Node, struct{}]

	mu sync.RWMutex

	// stackDeps[consumer][k] is the set of ProducerSlot values feeding
	// argument slot k of consumer, k = 0 being the deepest consumed value.
	stackDeps map[graphcore.ID][]map[ProducerSlot]struct{}

	// varDeps[consumer][variable] is the set of producer node ids.
	varDeps map[graphcore.ID]map[Variable]map[graphcore.ID]struct{}

	// dependants[producer] is the set of node ids that depend on producer
	// through any stack or variable dependency — the reverse index.
	dependants map[graphcore.ID]map[graphcore.ID]struct{}
}

// New constructs an empty DFG.
func New[I any]() *DFG[I] {
	return &DFG[I]{
		Base:       graphcore.NewBase[*Node, struct{}](),
		stackDeps:  make(map[graphcore.ID][]map[ProducerSlot]struct{}),
		varDeps:    make(map[graphcore.ID]map[Variable]map[graphcore.ID]struct{}),
		dependants: make(map[graphcore.ID]map[graphcore.ID]struct{}),
	}
}

// AddNode inserts a node (instruction-backed or external). Fails with
// ErrDuplicateOffset on id collision.
func (d *DFG[I]) AddNode(n *Node) error {
	if err := d.Base.AddNode(n); err != nil {
		if errors.Is(err, graphcore.ErrDuplicateNode) {
			return ErrDuplicateOffset
		}
		return err
	}
	return nil
}

func (d *DFG[I]) addDependant(producer, consumer graphcore.ID) {
	set, ok := d.dependants[producer]
	if !ok {
		set = make(map[graphcore.ID]struct{})
		d.dependants[producer] = set
	}
	set[consumer] = struct{}{}
}

func (d *DFG[I]) removeDependantIfUnused(producer, consumer graphcore.ID) {
	if d.stillDepends(producer, consumer) {
		return
	}
	if set, ok := d.dependants[producer]; ok {
		delete(set, consumer)
		if len(set) == 0 {
			delete(d.dependants, producer)
		}
	}
}

// stillDepends reports whether consumer still references producer through
// any remaining stack or variable dependency entry.
func (d *DFG[I]) stillDepends(producer, consumer graphcore.ID) bool {
	for _, set := range d.stackDeps[consumer] {
		for ps := range set {
			if ps.Producer == producer {
				return true
			}
		}
	}
	for _, producers := range d.varDeps[consumer] {
		if _, ok := producers[producer]; ok {
			return true
		}
	}
	return false
}

// SetStackDependency records that argument slot k of consumer is fed by
// producer's pushed value at producerSlot, alongside whatever other
// producers already occupy that slot (a slot may have more than one source
// where control-flow predecessors converge).
//
// Complexity: O(1) amortized.
func (d *DFG[I]) SetStackDependency(consumer graphcore.ID, k int, producer graphcore.ID, producerSlot int) error {
	if k < 0 {
		return ErrNegativeSlotIndex
	}
	if !d.Base.HasNode(consumer) || !d.Base.HasNode(producer) {
		return ErrUnknownProducer
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	slots := d.stackDeps[consumer]
	for len(slots) <= k {
		slots = append(slots, make(map[ProducerSlot]struct{}))
	}
	slots[k][ProducerSlot{Producer: producer, SlotIndex: producerSlot}] = struct{}{}
	d.stackDeps[consumer] = slots

	d.addDependant(producer, consumer)
	return nil
}

// StackDependencies returns consumer's ordered stack dependency sets, each
// entry sorted deterministically by (Producer, SlotIndex).
func (d *DFG[I]) StackDependencies(consumer graphcore.ID) [][]ProducerSlot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	slots := d.stackDeps[consumer]
	out := make([][]ProducerSlot, len(slots))
	for i, set := range slots {
		entries := make([]ProducerSlot, 0, len(set))
		for ps := range set {
			entries = append(entries, ps)
		}
		sort.Slice(entries, func(a, b int) bool {
			if entries[a].Producer != entries[b].Producer {
				return entries[a].Producer < entries[b].Producer
			}
			return entries[a].SlotIndex < entries[b].SlotIndex
		})
		out[i] = entries
	}
	return out
}

// SetVariableDependency records that consumer's read of variable is fed by
// producer, alongside any other producer already recorded for this
// (consumer, variable) pair.
func (d *DFG[I]) SetVariableDependency(consumer graphcore.ID, variable Variable, producer graphcore.ID) error {
	if !d.Base.HasNode(consumer) || !d.Base.HasNode(producer) {
		return ErrUnknownProducer
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	byVar, ok := d.varDeps[consumer]
	if !ok {
		byVar = make(map[Variable]map[graphcore.ID]struct{})
		d.varDeps[consumer] = byVar
	}
	producers, ok := byVar[variable]
	if !ok {
		producers = make(map[graphcore.ID]struct{})
		byVar[variable] = producers
	}
	producers[producer] = struct{}{}

	d.addDependant(producer, consumer)
	return nil
}

// VariableDependencies returns, for consumer, every (variable, producers)
// pair with producers sorted ascending, in deterministic variable-name
// order — callers must never see dependency order vary between calls on an
// otherwise-unchanged graph.
func (d *DFG[I]) VariableDependencies(consumer graphcore.ID) []VariableDependency {
	d.mu.RLock()
	defer d.mu.RUnlock()

	byVar := d.varDeps[consumer]
	out := make([]VariableDependency, 0, len(byVar))
	for v, producers := range byVar {
		ids := make([]graphcore.ID, 0, len(producers))
		for p := range producers {
			ids = append(ids, p)
		}
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
		out = append(out, VariableDependency{Variable: v, Producers: ids})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Variable < out[b].Variable })
	return out
}

// VariableDependency pairs a variable with the sorted set of nodes that
// produce a value for it at this consumer.
type VariableDependency struct {
	Variable  Variable
	Producers []graphcore.ID
}

// Dependants returns every node that depends on producer, sorted ascending
// — the reverse index, computable in O(degree) rather than a full scan.
func (d *DFG[I]) Dependants(producer graphcore.ID) []graphcore.ID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	set := d.dependants[producer]
	out := make([]graphcore.ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Disconnect isolates node: clears its own stack and variable dependencies
// and removes it from every producer's Dependants set it had been part of.
// It does not remove the node itself — callers that also want the node gone
// call that separately, keeping the two operations independently usable.
func (d *DFG[I]) Disconnect(node graphcore.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stackProducers := d.stackDeps[node]
	varProducers := d.varDeps[node]
	delete(d.stackDeps, node)
	delete(d.varDeps, node)

	for _, set := range stackProducers {
		for ps := range set {
			d.removeDependantIfUnused(ps.Producer, node)
		}
	}
	for _, producers := range varProducers {
		for p := range producers {
			d.removeDependantIfUnused(p, node)
		}
	}
}
