package backend

import "github.com/katalvlaran/firmkit/irgraph"

// Peephole applies the one target-agnostic final touch the generic glue
// can make on its own: dropping a zero-delta IncSP (a frame with no spills
// produces exactly this), which PrologueEpilogue always inserts regardless
// of frame size rather than special-casing it up front. Everything else
// §4.5 step 8 describes ("target-specific final touches") is the ISA's own
// business, reached through LowerForTarget/Select before this stage ever
// runs.
func (fn *Function) Peephole() error {
	for blockID, order := range fn.Order {
		next := make([]*irgraph.Node, 0, len(order))
		for _, n := range order {
			if n.Op == OpIncSP {
				if attrs, ok := n.Attrs.(IncSPAttrs); ok && attrs.Delta == 0 {
					anchor := n.InAt(0)
					fn.Graph.Exchange(n, anchor)
					continue
				}
			}
			next = append(next, n)
		}
		fn.Order[blockID] = next
	}
	return nil
}
