// Package transform implements the §4.4 transformations: dead-code
// elimination, call inlining, and loop unrolling (full/fixed-factor and
// Duff's-device). Every transformation reads analysis results through
// analysis.Ensure and calls irgraph.Graph.InvalidateAll (or the specific
// properties it disturbs) once it has finished mutating the graph.
package transform

import "github.com/katalvlaran/firmkit/irgraph"

// DeadCodeElim removes every node unreachable from End, via its keep-alive
// roots and the End node's own control/memory inputs (§3 "Keep-alive";
// §4.4 "DeadCodeElim: keep-alive-rooted reachability GC"). Returns the
// number of nodes collected.
//
// Grounded on gridgraph/components.go's mark-and-sweep flood fill,
// generalized from grid cells to graph nodes reached from a root set.
func DeadCodeElim(g *irgraph.Graph) int {
	reachable := map[uint64]bool{}
	var mark func(n *irgraph.Node)
	mark = func(n *irgraph.Node) {
		if n == nil || reachable[n.ID()] {
			return
		}
		reachable[n.ID()] = true
		for _, in := range n.In {
			mark(in)
		}
	}
	mark(g.End)

	// Every unreachable node's uses are themselves unreachable (a reachable
	// consumer would have pulled it in via mark's In-edge walk above), so
	// the dead set may contain reference cycles (e.g. two mutually
	// referencing phis on a dead branch); ForceRemove sidesteps Discard's
	// zero-uses precondition and removes them as one batch.
	removed := 0
	for _, n := range g.Nodes() {
		if !reachable[n.ID()] {
			g.ForceRemove(n)
			removed++
		}
	}

	g.InvalidateAll()
	return removed
}
