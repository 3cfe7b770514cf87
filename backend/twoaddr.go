package backend

import (
	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/verify"
)

// TwoAddressFixup materializes every ShouldBeSame constraint RegAlloc's
// free-list assignment didn't happen to satisfy on its own (§8 scenario 6:
// IA-32's sub→neg;add or the flags-consuming cmc;not;adc;cmc rewrite are a
// concrete target's version of this; the generic glue's version is a plain
// register copy immediately ahead of the two-address op, which any target's
// own Select may later replace with something cheaper once it knows the
// actual instruction set).
func (fn *Function) TwoAddressFixup() error {
	for nodeID, nc := range fn.Constraints {
		if nc.Kind != ConstraintShouldBeSame {
			continue
		}
		n, ok := fn.Graph.NodeByID(nodeID)
		if !ok {
			continue
		}
		dst, ok := fn.Assignments[nodeID]
		if !ok {
			continue
		}
		src, ok := fn.Assignments[nc.PairNodeID]
		if !ok || src.Register == dst.Register {
			continue
		}
		pair, ok := fn.Graph.NodeByID(nc.PairNodeID)
		if !ok {
			continue
		}
		fn.insertTwoAddressCopy(n, pair, dst.Register)
	}
	return nil
}

// insertTwoAddressCopy inserts OpCopy(pair) immediately before n in n's
// block schedule, rewires n's input(s) referencing pair to the copy, and
// records the copy's own (already-satisfied) register assignment.
func (fn *Function) insertTwoAddressCopy(n, pair *irgraph.Node, destReg string) {
	copyNode := fn.Graph.NewNode(OpCopy, pair.Mode, n.Block, []*irgraph.Node{pair}, irgraph.BaseAttrs{})
	rewireUse(n, pair, copyNode)

	order := fn.Order[n.Block.ID()]
	pos := indexOf(order, n)
	if pos >= 0 {
		widened := make([]*irgraph.Node, 0, len(order)+1)
		widened = append(widened, order[:pos]...)
		widened = append(widened, copyNode)
		widened = append(widened, order[pos:]...)
		fn.Order[n.Block.ID()] = widened
	}

	fn.Assignments[copyNode.ID()] = verify.Assignment{
		NodeID: copyNode.ID(), BlockID: n.Block.ID(), Register: destReg,
	}
}

func indexOf(order []*irgraph.Node, n *irgraph.Node) int {
	for i, on := range order {
		if on == n {
			return i
		}
	}
	return -1
}
