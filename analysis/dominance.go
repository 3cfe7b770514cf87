package analysis

import "github.com/katalvlaran/firmkit/irgraph"

// Dominance is the result of DominancePass: each reachable block's immediate
// dominator, keyed by block ID (the entry block is its own immediate
// dominator, matching the Cooper-Harvey-Kennedy convention).
type Dominance struct {
	idom map[uint64]uint64
	rpo  []uint64
	rank map[uint64]int // position in rpo, used by the intersect step
}

// IDom returns b's immediate dominator block, or (nil, false) if b is
// unreachable from Start or is Start itself.
func (d *Dominance) IDom(g *irgraph.Graph, b *irgraph.Block) (*irgraph.Block, bool) {
	id, ok := d.idom[b.ID()]
	if !ok || id == b.ID() {
		return nil, false
	}
	for _, bb := range g.Blocks() {
		if bb.ID() == id {
			return bb, true
		}
	}
	return nil, false
}

// Dominates reports whether a dominates b (reflexively: a dominates itself).
func (d *Dominance) Dominates(a, b *irgraph.Block) bool {
	if a.ID() == b.ID() {
		_, ok := d.idom[b.ID()]
		return ok
	}
	cur, ok := d.idom[b.ID()]
	if !ok {
		return false
	}
	for {
		if cur == a.ID() {
			return true
		}
		next, ok := d.idom[cur]
		if !ok || next == cur {
			return cur == a.ID()
		}
		cur = next
	}
}

// DominancePass computes immediate dominators with the Cooper-Harvey-Kennedy
// iterative algorithm ("A Simple, Fast Dominance Algorithm", 2001): repeat,
// in reverse-postorder, intersecting each block's already-resolved
// predecessors' dominator chains, until no block's idom changes. Grounded on
// dfs/topological.go's postorder-then-reverse traversal and flow/dinic.go's
// iterate-to-fixpoint BFS-level shape.
type DominancePass struct{}

func (DominancePass) Property() irgraph.Property     { return irgraph.PropDominance }
func (DominancePass) Requires() []irgraph.Property    { return nil }
func (DominancePass) Invalidates() []irgraph.Property { return nil }

func (DominancePass) Run(g *irgraph.Graph) (interface{}, error) {
	c := buildCFG(g)
	rpo := c.reversePostorder()

	rank := make(map[uint64]int, len(rpo))
	for i, id := range rpo {
		rank[id] = i
	}

	idom := map[uint64]uint64{c.entry: c.entry}
	changed := true
	for changed {
		changed = false
		for _, id := range rpo {
			if id == c.entry {
				continue
			}
			var newIdom uint64
			haveNewIdom := false
			for _, p := range c.preds[id] {
				if _, ok := idom[p]; !ok {
					continue // predecessor not processed yet this pass
				}
				if !haveNewIdom {
					newIdom = p
					haveNewIdom = true
					continue
				}
				newIdom = intersect(idom, rank, newIdom, p)
			}
			if !haveNewIdom {
				continue // no processed predecessor yet; revisit next round
			}
			if cur, ok := idom[id]; !ok || cur != newIdom {
				idom[id] = newIdom
				changed = true
			}
		}
	}

	return &Dominance{idom: idom, rpo: rpo, rank: rank}, nil
}

// intersect walks two blocks' idom chains upward (toward lower rpo rank,
// i.e. closer to the entry) until they meet; the meeting point is their
// common dominator.
func intersect(idom map[uint64]uint64, rank map[uint64]int, a, b uint64) uint64 {
	for a != b {
		for rank[a] > rank[b] {
			a = idom[a]
		}
		for rank[b] > rank[a] {
			b = idom[b]
		}
	}
	return a
}

// PostDominance is the mirror of Dominance computed over the reversed CFG
// (successors become predecessors), rooted at a synthetic virtual exit that
// precedes every block with no successors.
type PostDominance struct {
	inner *Dominance
}

// PostDominates reports whether a post-dominates b.
func (pd *PostDominance) PostDominates(a, b *irgraph.Block) bool {
	return pd.inner.Dominates(a, b)
}

// PostDominancePass computes post-dominance by re-running the same
// fixpoint over a CFG with edges reversed and a synthetic virtual exit
// standing in for entry.
type PostDominancePass struct{}

func (PostDominancePass) Property() irgraph.Property     { return irgraph.PropPostDominance }
func (PostDominancePass) Requires() []irgraph.Property    { return nil }
func (PostDominancePass) Invalidates() []irgraph.Property { return nil }

func (PostDominancePass) Run(g *irgraph.Graph) (interface{}, error) {
	fwd := buildCFG(g)
	c := &cfg{
		blocks: fwd.blocks,
		byID:   fwd.byID,
		preds:  map[uint64][]uint64{},
		succs:  map[uint64][]uint64{},
	}
	// Reverse every real edge.
	for id, ss := range fwd.succs {
		for _, s := range ss {
			c.preds[id] = append(c.preds[id], s)
			c.succs[s] = append(c.succs[s], id)
		}
	}
	// Virtual super-exit: a synthetic predecessor, in the reversed graph, of
	// every block with no real successors (i.e. every procedure exit),
	// standing in for the single end node a reducible CFG is assumed to
	// flow into. Cooper-Harvey-Kennedy requires one root; real graphs may
	// have several Return blocks.
	const virtualExit = ^uint64(0)
	c.entry = virtualExit
	for _, b := range fwd.blocks {
		if len(fwd.succs[b.ID()]) == 0 {
			c.succs[virtualExit] = append(c.succs[virtualExit], b.ID())
			c.preds[b.ID()] = append(c.preds[b.ID()], virtualExit)
		}
	}

	rpo := c.reversePostorder()
	rank := make(map[uint64]int, len(rpo))
	for i, id := range rpo {
		rank[id] = i
	}

	idom := map[uint64]uint64{c.entry: c.entry}
	changed := true
	for changed {
		changed = false
		for _, id := range rpo {
			if id == c.entry {
				continue
			}
			var newIdom uint64
			haveNewIdom := false
			for _, p := range c.preds[id] {
				if _, ok := idom[p]; !ok {
					continue
				}
				if !haveNewIdom {
					newIdom = p
					haveNewIdom = true
					continue
				}
				newIdom = intersect(idom, rank, newIdom, p)
			}
			if !haveNewIdom {
				continue
			}
			if cur, ok := idom[id]; !ok || cur != newIdom {
				idom[id] = newIdom
				changed = true
			}
		}
	}

	return &PostDominance{inner: &Dominance{idom: idom, rpo: rpo, rank: rank}}, nil
}
