package analysis

import "github.com/katalvlaran/firmkit/irgraph"

// Loop is one natural (or, if Irreducible, one flagged-irreducible) region
// of the loop tree: its header block, the set of block IDs in its body
// (including the header), and its nested child loops.
type Loop struct {
	Header      *irgraph.Block
	Body        map[uint64]*irgraph.Block
	Children    []*Loop
	Irreducible bool // the strongly-connected region has no single dominating entry block
}

// LoopTree is the result of LoopTreePass: the forest of top-level loops plus
// a lookup from any block ID to the innermost loop containing it, if any.
type LoopTree struct {
	Roots     []*Loop
	Innermost map[uint64]*Loop
}

// LoopTreePass finds natural loops via Tarjan's strongly-connected-
// components algorithm over the block-level CFG, matching dfs/cycle.go's
// three-color DFS shape generalized from simple-cycle enumeration to SCC
// discovery. Each nontrivial SCC becomes a Loop; its header is the unique
// block inside the SCC reached from outside the SCC. When several blocks are
// reached from outside, the lowest-ID of them is the header and Irreducible
// is set (§4.3 "irreducible-region flag"); an SCC with no such block takes
// its lowest-ID block as header and is not flagged.
type LoopTreePass struct{}

func (LoopTreePass) Property() irgraph.Property     { return irgraph.PropLoopTree }
func (LoopTreePass) Requires() []irgraph.Property    { return []irgraph.Property{irgraph.PropDominance} }
func (LoopTreePass) Invalidates() []irgraph.Property { return nil }

func (LoopTreePass) Run(g *irgraph.Graph) (interface{}, error) {
	c := buildCFG(g)
	sccs := tarjanSCC(c)

	var loops []*Loop
	for _, scc := range sccs {
		if !isLoopSCC(c, scc) {
			continue
		}
		loops = append(loops, buildLoop(c, scc))
	}

	return nestLoops(loops), nil
}

// isLoopSCC reports whether scc (a set of block IDs forming one strongly
// connected component) constitutes a loop: either more than one block, or a
// single block with a self-edge.
func isLoopSCC(c *cfg, scc map[uint64]bool) bool {
	if len(scc) > 1 {
		return true
	}
	for id := range scc {
		for _, s := range c.succs[id] {
			if s == id {
				return true
			}
		}
	}
	return false
}

// buildLoop picks scc's header (the block with a predecessor outside the
// SCC) and assembles the Loop value; more than one such block flags the
// region irreducible, per §4.3.
func buildLoop(c *cfg, scc map[uint64]bool) *Loop {
	sccIDs := sortedSetKeys(scc)
	var entries []uint64
	for _, id := range sccIDs {
		for _, p := range c.preds[id] {
			if !scc[p] {
				entries = append(entries, id)
				break
			}
		}
	}

	var headerID uint64
	irreducible := false
	switch len(entries) {
	case 1:
		headerID = entries[0]
	case 0:
		// Entire scc with no external predecessor (e.g. unreachable loop,
		// or the whole graph is one component): pick the lowest ID for
		// determinism.
		headerID = lowestID(scc)
	default:
		irreducible = true
		headerID = lowestID(entries)
	}

	body := make(map[uint64]*irgraph.Block, len(scc))
	for id := range scc {
		body[id] = c.byID[id]
	}

	return &Loop{Header: c.byID[headerID], Body: body, Irreducible: irreducible}
}

func lowestID(ids interface{}) uint64 {
	var best uint64
	first := true
	switch v := ids.(type) {
	case map[uint64]bool:
		for id := range v {
			if first || id < best {
				best, first = id, false
			}
		}
	case []uint64:
		for _, id := range v {
			if first || id < best {
				best, first = id, false
			}
		}
	}
	return best
}

// nestLoops orders loops by ascending body size and threads each into the
// smallest already-placed loop whose body contains it, building the forest;
// loops with no containing parent become roots.
func nestLoops(loops []*Loop) *LoopTree {
	tree := &LoopTree{Innermost: map[uint64]*Loop{}}
	// Smallest bodies first so a loop's parent (a strictly larger body that
	// contains it) is always already a placement candidate.
	ordered := append([]*Loop(nil), loops...)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && len(ordered[j-1].Body) > len(ordered[j].Body); j-- {
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}

	for _, l := range ordered {
		parent := findParent(ordered, l)
		if parent == nil {
			tree.Roots = append(tree.Roots, l)
		} else {
			parent.Children = append(parent.Children, l)
		}
		for id := range l.Body {
			tree.Innermost[id] = l // later (larger) loops overwrite this; corrected below
		}
	}
	// The loop above assigns innermost in ascending-size order, so a block
	// shared by nested loops ends up mapped to its outermost loop; reverse
	// it by re-walking in descending size order so the smallest containing
	// loop wins.
	for i := len(ordered) - 1; i >= 0; i-- {
		for id := range ordered[i].Body {
			tree.Innermost[id] = ordered[i]
		}
	}

	return tree
}

func findParent(ordered []*Loop, l *Loop) *Loop {
	var best *Loop
	for _, cand := range ordered {
		if cand == l || len(cand.Body) <= len(l.Body) {
			continue
		}
		if !containsAll(cand.Body, l.Body) {
			continue
		}
		if best == nil || len(cand.Body) < len(best.Body) {
			best = cand
		}
	}
	return best
}

func containsAll(outer, inner map[uint64]*irgraph.Block) bool {
	for id := range inner {
		if _, ok := outer[id]; !ok {
			return false
		}
	}
	return true
}

// tarjanSCC computes strongly connected components over c, returning each
// as a set of block IDs. Iterative-recursive hybrid mirrors dfs/cycle.go's
// explicit-stack, three-color bookkeeping style.
func tarjanSCC(c *cfg) []map[uint64]bool {
	index := map[uint64]int{}
	lowlink := map[uint64]int{}
	onStack := map[uint64]bool{}
	var stack []uint64
	next := 0
	var sccs []map[uint64]bool

	var strongconnect func(v uint64)
	strongconnect = func(v uint64) {
		index[v] = next
		lowlink[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range c.succs[v] {
			if _, seen := index[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
		}

		if lowlink[v] == index[v] {
			scc := map[uint64]bool{}
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc[w] = true
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, b := range c.blocks {
		if _, seen := index[b.ID()]; !seen {
			strongconnect(b.ID())
		}
	}
	return sccs
}
