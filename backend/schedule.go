package backend

import "github.com/katalvlaran/firmkit/irgraph"

// controlOps are the opcodes that end a block (§4.5 step 3: "at most one
// control-flow op" — the schedule must place whichever one is present last).
var controlOps = map[irgraph.Opcode]bool{
	irgraph.OpCond:   true,
	irgraph.OpJmp:    true,
	irgraph.OpReturn: true,
}

// Schedule lists each block's nodes in a legal order: phis first, then a
// stable topological order over in-block data dependencies, then the
// block's single control-flow op last (§4.5 step 3). Construction already
// produces blocks close to this shape (each node is created after its
// in-block inputs); this stage fixes the order explicitly, recorded in
// fn.Order rather than mutating Block's own creation-order list (which
// irgraph keeps immutable). It runs before RegAlloc: the later stages
// splice the nodes they insert (TwoAddressFixup's copies, PrologueEpilogue's
// IncSPs) into fn.Order themselves, while RegAlloc's Spill/Reload nodes are
// not added to it.
func (fn *Function) Schedule() error {
	for _, b := range fn.Graph.Blocks() {
		order, err := scheduleBlock(b)
		if err != nil {
			return err
		}
		fn.Order[b.ID()] = order
	}
	return nil
}

func scheduleBlock(b *irgraph.Block) ([]*irgraph.Node, error) {
	nodes := b.Nodes()

	var phis, rest []*irgraph.Node
	var control *irgraph.Node
	for _, n := range nodes {
		switch {
		case n.Op == irgraph.OpPhi:
			phis = append(phis, n)
		case controlOps[n.Op]:
			control = n // at most one per §3 invariant; Select/verify.NodeChecks catch more
		default:
			rest = append(rest, n)
		}
	}

	topo, err := topoSortInBlock(b, rest)
	if err != nil {
		return nil, err
	}

	order := make([]*irgraph.Node, 0, len(nodes))
	order = append(order, phis...)
	order = append(order, topo...)
	if control != nil {
		order = append(order, control)
	}
	return order, nil
}

// topoSortInBlock orders nodes respecting every in-block data dependency,
// using Kahn's algorithm with creation order as the tie-break so the result
// is deterministic and, absent any reordering need, matches the input order
// exactly.
func topoSortInBlock(b *irgraph.Block, nodes []*irgraph.Node) ([]*irgraph.Node, error) {
	index := make(map[uint64]int, len(nodes))
	for i, n := range nodes {
		index[n.ID()] = i
	}

	indegree := make([]int, len(nodes))
	dependents := make([][]int, len(nodes))
	for i, n := range nodes {
		for _, in := range n.In {
			if in == nil || in.Block != b {
				continue
			}
			j, ok := index[in.ID()]
			if !ok {
				continue // a Phi or the control op; not part of this sub-sort
			}
			dependents[j] = append(dependents[j], i)
			indegree[i]++
		}
	}

	var ready []int
	for i := range nodes {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	out := make([]*irgraph.Node, 0, len(nodes))
	for len(ready) > 0 {
		// Stable: always take the lowest original index among ready nodes.
		min := 0
		for i := 1; i < len(ready); i++ {
			if ready[i] < ready[min] {
				min = i
			}
		}
		i := ready[min]
		ready = append(ready[:min], ready[min+1:]...)

		out = append(out, nodes[i])
		for _, j := range dependents[i] {
			indegree[j]--
			if indegree[j] == 0 {
				ready = append(ready, j)
			}
		}
	}

	if len(out) != len(nodes) {
		return nil, ErrUnschedulable
	}
	return out, nil
}
