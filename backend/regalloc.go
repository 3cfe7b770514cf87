package backend

import (
	"fmt"
	"sort"

	"github.com/katalvlaran/firmkit/analysis"
	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/verify"
)

const defaultCapacity = 8

// activeReg is one register currently holding a same-block value, tracked
// while walking a block's schedule.
type activeReg struct {
	node       *irgraph.Node
	reg        string
	lastUsePos int
}

// candidateRegisters returns up to capacity register names of class, each
// confirmed valid by the target's own IsValidClobber (§4 "IsValidClobber").
// A nil ISA (tests exercising the generic glue in isolation) is treated as
// accepting any candidate name.
func (fn *Function) candidateRegisters(class verify.RegisterClass, capacity int) []string {
	prefix := "g"
	if class == verify.ClassFP {
		prefix = "f"
	}
	names := make([]string, 0, capacity)
	for i := 0; len(names) < capacity && i < capacity*4; i++ {
		name := fmt.Sprintf("%s%d", prefix, i)
		if fn.ISA == nil || fn.ISA.IsValidClobber(name) {
			names = append(names, name)
		}
	}
	return names
}

// crossesBlock reports whether n's value is ever consumed outside its own
// defining block, per lv's LiveOut sets.
func crossesBlock(n *irgraph.Node, lv *analysis.Liveness) bool {
	for _, u := range n.Uses() {
		if u.Block != nil && u.Block != n.Block {
			return true
		}
	}
	for _, outs := range lv.LiveOut {
		if _, ok := outs[n.ID()]; ok {
			return true
		}
	}
	return false
}

// RegAlloc drives the target-agnostic allocator (§4.5 step 4): a value
// live only within the block that defines it is a candidate for a physical
// register, assigned from a per-class free list in schedule order and spilled under
// pressure using a furthest-next-use heuristic; a value live across a
// block boundary is conservatively spilled for its entire lifetime rather
// than carried in a register across blocks — sharing registers across
// blocks is an SSA-coloring problem the generic glue deliberately leaves to
// a real target's own Select override, which has the register file to
// reason about precisely.
func (fn *Function) RegAlloc() error {
	livenessVal, err := analysis.Ensure(fn.Graph, fn.Registry, analysis.LivenessPass{})
	if err != nil {
		return err
	}
	lv := livenessVal.(*analysis.Liveness)

	for _, b := range fn.Graph.Blocks() {
		if err := fn.allocateBlock(b, lv); err != nil {
			return err
		}
	}
	return nil
}

func (fn *Function) allocateBlock(b *irgraph.Block, lv *analysis.Liveness) error {
	order := fn.Order[b.ID()]

	free := map[verify.RegisterClass][]string{}
	capacityOf := map[verify.RegisterClass]int{}
	var live []*activeReg

	capacity := func(class verify.RegisterClass) int {
		if c, ok := capacityOf[class]; ok {
			return c
		}
		c := fn.Capacity[class]
		if c == 0 {
			c = defaultCapacity
		}
		capacityOf[class] = c
		free[class] = append([]string{}, fn.candidateRegisters(class, c)...)
		return c
	}

	for i, n := range order {
		if !n.Mode.IsData() || n.Op == irgraph.OpPhi {
			continue
		}
		class, ok := verify.RegisterClassOf(n.Mode)
		if !ok {
			continue
		}
		capacity(class) // ensure free[class] initialized

		// Retire registers whose last in-block use is behind us.
		var stillLive []*activeReg
		for _, a := range live {
			if a.reg != "" && classOf(a.node) == class && a.lastUsePos <= i {
				free[class] = append(free[class], a.reg)
			} else {
				stillLive = append(stillLive, a)
			}
		}
		live = stillLive

		if crossesBlock(n, lv) {
			fn.spillForLifetime(n, order, i)
			continue
		}

		lastUse := lastUseInBlock(n, order, i)

		if len(free[class]) == 0 {
			if victim, idx := fn.evictionCandidate(live, class); victim != nil && victim.lastUsePos > lastUse {
				fn.spillAndReload(victim.node, order, victim.lastUsePos)
				live = append(live[:idx], live[idx+1:]...)
				free[class] = append(free[class], victim.reg)
			} else {
				fn.spillForLifetime(n, order, i)
				continue
			}
		}

		reg := free[class][len(free[class])-1]
		free[class] = free[class][:len(free[class])-1]
		fn.Assignments[n.ID()] = fn.constrainedAssignment(n, b.ID(), reg)
		live = append(live, &activeReg{node: n, reg: reg, lastUsePos: lastUse})
	}
	return nil
}

func classOf(n *irgraph.Node) verify.RegisterClass {
	class, _ := verify.RegisterClassOf(n.Mode)
	return class
}

func (fn *Function) constrainedAssignment(n *irgraph.Node, blockID uint64, reg string) verify.Assignment {
	nc := fn.Constraints[n.ID()]
	kind := verify.ConstraintNone
	switch nc.Kind {
	case ConstraintShouldBeSame:
		kind = verify.ConstraintShouldBeSame
	case ConstraintMustBeDifferent:
		kind = verify.ConstraintMustBeDifferent
	case ConstraintLimitedToRegister:
		kind = verify.ConstraintLimitedToRegister
	}
	return verify.Assignment{
		NodeID:     n.ID(),
		BlockID:    blockID,
		Register:   reg,
		Constraint: kind,
		PairNodeID: nc.PairNodeID,
		Allowed:    nc.Allowed,
	}
}

func lastUseInBlock(n *irgraph.Node, order []*irgraph.Node, defPos int) int {
	last := defPos
	for i := defPos + 1; i < len(order); i++ {
		for _, in := range order[i].In {
			if in == n {
				last = i
			}
		}
	}
	return last
}

// evictionCandidate picks the active register to free under pressure,
// ranking by lastUsePos (furthest-next-use first) with the target's own
// GetOpEstimatedCost as a tie-break between candidates with exactly equal
// lastUsePos — the allocator's "cost callbacks" (§4.5 step 4) steer which of
// two equally distant values is cheaper to later reload.
func (fn *Function) evictionCandidate(live []*activeReg, class verify.RegisterClass) (*activeReg, int) {
	candidates := make([]int, 0, len(live))
	for i, a := range live {
		if a.reg != "" && classOf(a.node) == class {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return nil, -1
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := live[candidates[i]], live[candidates[j]]
		if a.lastUsePos != b.lastUsePos {
			return a.lastUsePos > b.lastUsePos
		}
		return fn.opCost(a.node) < fn.opCost(b.node)
	})
	idx := candidates[0]
	return live[idx], idx
}

// opCost asks the target how expensive n's operation is to re-materialize;
// a nil ISA (or one with no opinion) costs every op the same.
func (fn *Function) opCost(n *irgraph.Node) int {
	if fn.ISA == nil {
		return 0
	}
	return fn.ISA.GetOpEstimatedCost(n.Op)
}

// spillAndReload spills n immediately and inserts one reload before its
// furthest-remaining in-block use, then records n's live range as a
// SpillSlotCoalesce candidate.
func (fn *Function) spillAndReload(n *irgraph.Node, order []*irgraph.Node, reloadBefore int) {
	spill := fn.NewSpill(n)
	defPos := 0
	for i, on := range order {
		if on == n {
			defPos = i
			break
		}
	}
	if reloadBefore < len(order) {
		reload := fn.NewReload(spill)
		rewireUse(order[reloadBefore], n, reload)
	}
	size := uint32(n.Mode.Size()) / 8
	if size == 0 {
		size = 1
	}
	fn.SpillRanges = append(fn.SpillRanges, verify.LiveRange{
		NodeID: spill.ID(), FrameEntityID: spill.ID(), Start: defPos, End: reloadBefore,
		Size: size, Align: size,
	})
}

// spillForLifetime spills n right after its definition and reloads it
// before every remaining use (in-block or not, since a cross-block
// consumer always sees the reload rather than n directly).
func (fn *Function) spillForLifetime(n *irgraph.Node, order []*irgraph.Node, defPos int) {
	spill := fn.NewSpill(n)
	end := defPos
	for _, u := range n.Uses() {
		if u == spill {
			continue
		}
		reload := fn.NewReload(spill)
		rewireUse(u, n, reload)
		if u.Block == n.Block {
			for i, on := range order {
				if on == u && i > end {
					end = i
				}
			}
		}
	}
	size := uint32(n.Mode.Size()) / 8
	if size == 0 {
		size = 1
	}
	fn.SpillRanges = append(fn.SpillRanges, verify.LiveRange{
		NodeID: spill.ID(), FrameEntityID: spill.ID(), Start: defPos, End: end,
		Size: size, Align: size,
	})
}

// NewSpill is the allocator's spill callback (§4.5 step 4 "new_spill(value,
// after)"): it stores value to its eventual frame entity. The entity itself
// is unassigned until SpillSlotCoalesce runs; Spill's own node ID doubles
// as its candidate frame-entity key until then.
func (fn *Function) NewSpill(value *irgraph.Node) *irgraph.Node {
	return fn.Graph.NewNode(OpSpill, value.Mode, value.Block, []*irgraph.Node{value}, SpillAttrs{})
}

// NewReload is the allocator's reload callback ("new_reload(value, spill,
// before)"): it loads spill's value back before the consumer that needs it.
func (fn *Function) NewReload(spill *irgraph.Node) *irgraph.Node {
	return fn.Graph.NewNode(OpReload, spill.Mode, spill.Block, []*irgraph.Node{spill}, SpillAttrs{})
}

// rewireUse redirects every input edge of consumer that currently points at
// from to point at to instead.
func rewireUse(consumer, from, to *irgraph.Node) {
	for i, in := range consumer.In {
		if in == from {
			consumer.Graph().ReplaceInput(consumer, i, to)
		}
	}
}
