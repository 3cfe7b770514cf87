package verify

import (
	"github.com/katalvlaran/firmkit/analysis"
	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/mode"
)

// NodeChecks runs the §8 structural invariants that don't need a scheduled
// order: dominance, phi arity, and memory ordering. Ensures (and so may
// compute, never mutating the graph otherwise) analysis.DominancePass.
func NodeChecks(g *irgraph.Graph, reg *analysis.Registry) (Report, error) {
	entity := g.Entity.LinkerName
	var report Report

	domVal, err := analysis.Ensure(g, reg, analysis.DominancePass{})
	if err != nil {
		return nil, err
	}
	dom := domVal.(*analysis.Dominance)

	for _, b := range g.Blocks() {
		for _, n := range b.Nodes() {
			if n.Op == irgraph.OpPhi {
				report = append(report, phiChecks(entity, dom, b, n)...)
				continue
			}
			for _, in := range n.In {
				if in == nil || in.Block == nil || in.Op == irgraph.OpBlock {
					continue
				}
				if !dom.Dominates(in.Block, n.Block) {
					report = append(report, diag(entity, SeverityError, "dominance",
						"input node %d (block %d) does not dominate using block %d",
						n.ID(), n.Block.ID(), in.ID(), in.Block.ID(), n.Block.ID()))
				}
			}
		}
	}

	report = append(report, memoryOrderingChecks(g, entity)...)
	return report, nil
}

// phiChecks enforces §8's "Phi arity" invariant (arity(p) = arity(block(p)))
// and the phi-specific half of the dominance invariant: each operand must
// dominate the predecessor block the corresponding edge came through, not
// phi's own block (phi's own block is exactly where control from every
// predecessor merges, so it cannot be what every operand dominates).
func phiChecks(entity string, dom *analysis.Dominance, b *irgraph.Block, phi *irgraph.Node) Report {
	var report Report
	preds := b.Preds()
	if len(phi.In) != len(preds) {
		report = append(report, diag(entity, SeverityError, "phi-arity",
			"phi has %d operands, block has %d predecessors", phi.ID(), b.ID(), len(phi.In), len(preds)))
		return report
	}
	for i, in := range phi.In {
		if in == nil || in.Block == nil {
			continue
		}
		pred := preds[i]
		if pred == nil || pred.Block == nil {
			continue
		}
		if !dom.Dominates(in.Block, pred.Block) {
			report = append(report, diag(entity, SeverityError, "dominance",
				"phi operand %d (node %d, block %d) does not dominate predecessor block %d",
				phi.ID(), b.ID(), i, in.ID(), in.Block.ID(), pred.Block.ID()))
		}
	}
	return report
}

// memoryOrderingChecks enforces §8's "no cycles in the memory-edge sub-DAG;
// every store reaches exactly one memory successor". Every node edge whose
// source has Mode mem is by construction a memory edge (no other value
// shares that mode), so the sub-DAG is exactly the subgraph induced by
// nodes of mode mem.
func memoryOrderingChecks(g *irgraph.Graph, entity string) Report {
	var report Report
	var memNodes []*irgraph.Node
	for _, b := range g.Blocks() {
		for _, n := range b.Nodes() {
			if n.Mode == mode.Mem {
				memNodes = append(memNodes, n)
			}
		}
	}

	color := map[uint64]int{} // 0 = unvisited, 1 = on stack, 2 = done
	var visit func(n *irgraph.Node) bool
	visit = func(n *irgraph.Node) bool {
		color[n.ID()] = 1
		for _, succ := range n.Uses() {
			switch color[succ.ID()] {
			case 1:
				blockID := uint64(0)
				if succ.Block != nil {
					blockID = succ.Block.ID()
				}
				report = append(report, diag(entity, SeverityError, "memory-ordering",
					"cycle in memory-edge sub-DAG through node %d", succ.ID(), blockID, succ.ID()))
				return true
			case 0:
				if visit(succ) {
					return true
				}
			}
		}
		color[n.ID()] = 2
		return false
	}
	for _, n := range memNodes {
		if color[n.ID()] == 0 {
			visit(n)
		}
	}

	for _, n := range memNodes {
		if n.Op != irgraph.OpStore {
			continue
		}
		count := len(n.Uses())
		if count != 1 {
			blockID := uint64(0)
			if n.Block != nil {
				blockID = n.Block.ID()
			}
			report = append(report, diag(entity, SeverityError, "memory-ordering",
				"store has %d memory successors, want exactly 1", n.ID(), blockID, count))
		}
	}
	return report
}
