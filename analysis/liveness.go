package analysis

import "github.com/katalvlaran/firmkit/irgraph"

// Liveness holds, per block, the set of SSA values live on entry and live on
// exit (§4.3 "Liveness: per register class for back end, per value for
// middle end" — this pass computes the per-value form; the back end's
// RegAlloc glue stage groups these by register class itself).
type Liveness struct {
	LiveIn  map[uint64]map[uint64]*irgraph.Node
	LiveOut map[uint64]map[uint64]*irgraph.Node
}

// IsLiveIn reports whether v is live on entry to b.
func (lv *Liveness) IsLiveIn(b *irgraph.Block, v *irgraph.Node) bool {
	_, ok := lv.LiveIn[b.ID()][v.ID()]
	return ok
}

// IsLiveOut reports whether v is live on exit from b.
func (lv *Liveness) IsLiveOut(b *irgraph.Block, v *irgraph.Node) bool {
	_, ok := lv.LiveOut[b.ID()][v.ID()]
	return ok
}

// LivenessPass computes block-granularity liveness by the standard
// iterative backward dataflow (live_in = upward-exposed-uses ∪ (live_out -
// defs); live_out = ∪ successors' live_in), with phi operands attributed to
// the corresponding predecessor's live-out set rather than the phi's own
// block, per the usual SSA liveness treatment. Mirrors flow/dinic.go's
// iterate-to-fixpoint BFS-level shape generalized from max-flow levels to
// liveness sets.
type LivenessPass struct{}

func (LivenessPass) Property() irgraph.Property     { return irgraph.PropLiveness }
func (LivenessPass) Requires() []irgraph.Property    { return nil }
func (LivenessPass) Invalidates() []irgraph.Property { return nil }

func (LivenessPass) Run(g *irgraph.Graph) (interface{}, error) {
	c := buildCFG(g)

	defs := map[uint64]map[uint64]*irgraph.Node{}
	uevar := map[uint64]map[uint64]*irgraph.Node{}
	for _, b := range c.blocks {
		defs[b.ID()] = map[uint64]*irgraph.Node{}
		uevar[b.ID()] = map[uint64]*irgraph.Node{}
		for _, n := range b.Nodes() {
			if n.Mode.IsData() {
				defs[b.ID()][n.ID()] = n
			}
			if n.Op == irgraph.OpPhi {
				continue // phi operands are attributed to predecessors below
			}
			for _, in := range n.In {
				if in != nil && in.Mode.IsData() && in.Block != nil && in.Block != b {
					uevar[b.ID()][in.ID()] = in
				}
			}
		}
	}

	phiLiveOut := map[uint64]map[uint64]*irgraph.Node{}
	for _, b := range c.blocks {
		phiLiveOut[b.ID()] = map[uint64]*irgraph.Node{}
	}
	for _, s := range c.blocks {
		preds := s.Preds()
		for _, n := range s.Nodes() {
			if n.Op != irgraph.OpPhi {
				continue
			}
			for i, operand := range n.In {
				if operand == nil || !operand.Mode.IsData() || i >= len(preds) || preds[i].Block == nil {
					continue
				}
				predID := preds[i].Block.ID()
				phiLiveOut[predID][operand.ID()] = operand
			}
		}
	}

	liveIn := map[uint64]map[uint64]*irgraph.Node{}
	liveOut := map[uint64]map[uint64]*irgraph.Node{}
	for _, b := range c.blocks {
		liveIn[b.ID()] = map[uint64]*irgraph.Node{}
		liveOut[b.ID()] = map[uint64]*irgraph.Node{}
	}

	changed := true
	for changed {
		changed = false
		for _, b := range c.blocks {
			id := b.ID()
			newOut := map[uint64]*irgraph.Node{}
			for _, s := range c.succs[id] {
				for vid, v := range liveIn[s] {
					newOut[vid] = v
				}
			}
			for vid, v := range phiLiveOut[id] {
				newOut[vid] = v
			}

			newIn := map[uint64]*irgraph.Node{}
			for vid, v := range uevar[id] {
				newIn[vid] = v
			}
			for vid, v := range newOut {
				if _, isDef := defs[id][vid]; !isDef {
					newIn[vid] = v
				}
			}

			if !sameSet(liveOut[id], newOut) || !sameSet(liveIn[id], newIn) {
				liveOut[id] = newOut
				liveIn[id] = newIn
				changed = true
			}
		}
	}

	return &Liveness{LiveIn: liveIn, LiveOut: liveOut}, nil
}

func sameSet(a, b map[uint64]*irgraph.Node) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
