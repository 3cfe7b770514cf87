package analysis

import (
	"sort"

	"github.com/katalvlaran/firmkit/irgraph"
	"golang.org/x/exp/maps"
)

// sortedBlockIDs returns the keys of a block-ID-keyed set in ascending
// order, so passes that fan out over map iteration (Go's own order is
// randomized) produce deterministic results, mirroring core.Vertices()'s
// "always sorted" guarantee.
func sortedBlockIDs(m map[uint64]*irgraph.Block) []uint64 {
	keys := maps.Keys(m)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// sortedSetKeys is sortedBlockIDs's counterpart for the bool-valued sets
// tarjanSCC builds (block ID -> membership), same determinism rationale.
func sortedSetKeys(m map[uint64]bool) []uint64 {
	keys := maps.Keys(m)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// cfg is the block-level control-flow view derived from a graph's blocks
// and their Preds() lists, shared by dominance, loop-tree, and liveness so
// each does not re-derive successor edges from predecessor edges on its own.
type cfg struct {
	blocks []*irgraph.Block
	byID   map[uint64]*irgraph.Block
	preds  map[uint64][]uint64 // block ID -> predecessor block IDs
	succs  map[uint64][]uint64 // block ID -> successor block IDs
	entry  uint64
}

func buildCFG(g *irgraph.Graph) *cfg {
	blocks := g.Blocks()
	c := &cfg{
		blocks: blocks,
		byID:   make(map[uint64]*irgraph.Block, len(blocks)),
		preds:  make(map[uint64][]uint64, len(blocks)),
		succs:  make(map[uint64][]uint64, len(blocks)),
		entry:  g.Start.ID(),
	}
	for _, b := range blocks {
		c.byID[b.ID()] = b
	}
	for _, b := range blocks {
		for _, ctrl := range b.Preds() {
			if ctrl == nil || ctrl.Block == nil {
				continue
			}
			predID := ctrl.Block.ID()
			c.preds[b.ID()] = append(c.preds[b.ID()], predID)
			c.succs[predID] = append(c.succs[predID], b.ID())
		}
	}
	return c
}

// Successors returns b's control-flow successor blocks, derived the same
// way buildCFG derives succs from every block's Preds() list. Exposed for
// transform's loop unroller, which needs to walk forward out of a loop body
// without re-deriving successor edges from predecessor edges on its own.
func Successors(g *irgraph.Graph, b *irgraph.Block) []*irgraph.Block {
	c := buildCFG(g)
	var out []*irgraph.Block
	for _, s := range c.succs[b.ID()] {
		out = append(out, c.byID[s])
	}
	return out
}

// reversePostorder walks successor edges from entry, returning block IDs in
// reverse-postorder (entry first), matching dfs/topological.go's
// visit-then-reverse shape. Blocks unreachable from entry are omitted.
func (c *cfg) reversePostorder() []uint64 {
	const white, gray, black = 0, 1, 2
	state := make(map[uint64]int, len(c.blocks))
	var post []uint64

	var visit func(id uint64)
	visit = func(id uint64) {
		if state[id] != white {
			return
		}
		state[id] = gray
		for _, s := range c.succs[id] {
			visit(s)
		}
		state[id] = black
		post = append(post, id)
	}
	visit(c.entry)

	rpo := make([]uint64, len(post))
	for i, id := range post {
		rpo[len(post)-1-i] = id
	}
	return rpo
}
