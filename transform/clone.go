package transform

import "github.com/katalvlaran/firmkit/irgraph"

// regionClone is the link-map machinery shared by Inline and Unroll: each
// cloned node and cloned block remembers its original (§4.4 "cloning each
// block with a link from original to clone ... rewiring internal edges via
// the link map"). A node referenced from inside the region but not itself
// cloned (a loop-invariant value, a parameter) is left pointing at its
// original, or at an explicit override supplied by the caller.
type regionClone struct {
	blocks map[*irgraph.Block]*irgraph.Block
	nodes  map[*irgraph.Node]*irgraph.Node
}

// cloneRegion clones every block in blocks and every node each owns into g,
// wiring internal edges through the resulting link map. override supplies
// the replacement for a specific original node that would otherwise be
// left shared (e.g. a call's arguments standing in for the callee's
// parameters, or a previous clone's values feeding the next one's back
// edge); nil is accepted when there is nothing to override.
func cloneRegion(g *irgraph.Graph, blocks []*irgraph.Block, override map[*irgraph.Node]*irgraph.Node) *regionClone {
	rc := &regionClone{blocks: map[*irgraph.Block]*irgraph.Block{}, nodes: map[*irgraph.Node]*irgraph.Node{}}
	blockByNode := make(map[*irgraph.Node]*irgraph.Block, len(blocks))

	// Pass 1: shell blocks, unmatured and predecessor-less, so pass 2's
	// node shells have somewhere to be owned.
	for _, b := range blocks {
		rc.blocks[b] = g.NewBlock()
		blockByNode[b.Node()] = b
	}

	// Pass 2: shell nodes, preserving Op/Mode/Attrs/Pinned, inputs left
	// empty until every shell (of both blocks and nodes) exists.
	for _, b := range blocks {
		nb := rc.blocks[b]
		for _, n := range b.Nodes() {
			clone := g.NewNode(n.Op, n.Mode, nb, nil, n.Attrs)
			clone.Pinned = n.Pinned
			rc.nodes[n] = clone
		}
	}

	// resolve remaps an original edge endpoint to its clone: a cloned node,
	// a cloned block's own Node() (the "this block's control" idiom every
	// terminator in this package uses, e.g. NewJmp(b, b.Node())), an
	// explicit override, or — for anything outside the region entirely —
	// the original unchanged.
	resolve := func(n *irgraph.Node) *irgraph.Node {
		if n == nil {
			return nil
		}
		if c, ok := rc.nodes[n]; ok {
			return c
		}
		if ownerBlock, ok := blockByNode[n]; ok {
			return rc.blocks[ownerBlock].Node()
		}
		if ov, ok := override[n]; ok {
			return ov
		}
		return n // outside the cloned region: shared, not copied
	}

	// Pass 3: block predecessor lists (control edges), remapped.
	for _, b := range blocks {
		nb := rc.blocks[b]
		for _, p := range b.Preds() {
			_ = nb.AddPred(resolve(p)) // nb is freshly made by NewBlock, never matured yet
		}
		nb.SetMatured(true)
	}

	// Pass 4: every cloned node's own inputs, remapped.
	for _, b := range blocks {
		for _, n := range b.Nodes() {
			clone := rc.nodes[n]
			for _, in := range n.In {
				g.AppendInput(clone, resolve(in))
			}
		}
	}

	return rc
}

// block maps an original block to its clone, or nil if b was not part of
// the cloned region.
func (rc *regionClone) block(b *irgraph.Block) *irgraph.Block { return rc.blocks[b] }

// node maps an original node to its clone, or nil if n was not part of the
// cloned region.
func (rc *regionClone) node(n *irgraph.Node) *irgraph.Node { return rc.nodes[n] }

// resolveExternal mirrors cloneRegion's own node resolution for a caller
// that already knows n wasn't passed to cloneRegion as part of a block but
// still needs the same "clone, else override, else original" resolution —
// used by Unroll to carry a per-iteration value across clone boundaries.
func (rc *regionClone) resolveExternal(n *irgraph.Node, override map[*irgraph.Node]*irgraph.Node) *irgraph.Node {
	if c, ok := rc.nodes[n]; ok {
		return c
	}
	if ov, ok := override[n]; ok {
		return ov
	}
	return n
}
