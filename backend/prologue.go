package backend

import (
	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/mode"
)

// PrologueEpilogue inserts one IncSP(+size) right after Start and one
// IncSP(-size) right before each Return (§4.5 step 7), where size is the
// now-finalized frame type's byte size. A zero-size frame (no spills)
// still gets the pair — real targets may also reserve frame space for
// callee-saved registers the generic glue has no opinion on, so skipping
// the pair on "no spills" would be premature.
func (fn *Function) PrologueEpilogue() error {
	size := int64(fn.Graph.FrameType.Size())

	start := fn.Graph.Start
	inc := fn.Graph.NewNode(OpIncSP, mode.Ctrl, start, []*irgraph.Node{start.Node()}, IncSPAttrs{Delta: size})
	fn.Order[start.ID()] = prependAfterAnchor(fn.Order[start.ID()], inc)

	for _, b := range fn.Graph.Blocks() {
		for _, n := range b.Nodes() {
			if n.Op != irgraph.OpReturn {
				continue
			}
			dec := fn.Graph.NewNode(OpIncSP, n.Mode, b, []*irgraph.Node{n.InAt(0)}, IncSPAttrs{Delta: -size})
			fn.Order[b.ID()] = insertBeforeControl(fn.Order[b.ID()], n, dec)
		}
	}
	return nil
}

// prependAfterAnchor places n as the first entry of order — "immediately
// after anchor" for Start's own IncSP, whose anchor is Start itself.
func prependAfterAnchor(order []*irgraph.Node, n *irgraph.Node) []*irgraph.Node {
	widened := make([]*irgraph.Node, 0, len(order)+1)
	widened = append(widened, n)
	widened = append(widened, order...)
	return widened
}

// insertBeforeControl splices n immediately ahead of control (the Return it
// guards) in order.
func insertBeforeControl(order []*irgraph.Node, control, n *irgraph.Node) []*irgraph.Node {
	pos := indexOf(order, control)
	if pos < 0 {
		return append(order, n)
	}
	widened := make([]*irgraph.Node, 0, len(order)+1)
	widened = append(widened, order[:pos]...)
	widened = append(widened, n)
	widened = append(widened, order[pos:]...)
	return widened
}
