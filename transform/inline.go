package transform

import "github.com/katalvlaran/firmkit/irgraph"

// Inline replaces call (an OpCall node) with a direct copy of callee's body
// spliced into call's own block, forwarding the caller's memory and
// arguments into the clone and routing the call's (memory, result...)
// projections to point at the clone's return values directly (§8 scenario
// 3: "a two-call sequence to a setter and a getter on a fresh allocation ...
// contains no Call, no Load of the setter's stored value (it is
// forwarded)"). Inline does not itself delete the detached Call/Proj/Return
// nodes it leaves behind — like every other transform, it mutates and
// leaves DeadCodeElim to sweep what became unreachable.
//
// Supported shape: callee must be straight-line — its only block is Start,
// terminated by exactly one Return. Parameters are read by convention as
// Proj(Start, i+1, mode); Proj(Start, 0, Mem) is the callee's initial
// memory. A branching callee is out of scope for this pass and reported as
// ErrUnsupportedCallee, leaving the graph untouched.
func Inline(g *irgraph.Graph, call *irgraph.Node, callee *irgraph.Graph) error {
	if call.Op != irgraph.OpCall {
		return ErrNotACall
	}
	if len(callee.Blocks()) != 1 {
		return ErrUnsupportedCallee
	}

	ret, err := soleReturn(callee)
	if err != nil {
		return err
	}

	args := call.In[1:]
	params := map[*irgraph.Node]*irgraph.Node{} // callee Proj(Start,*) -> caller-side value, read-only
	for _, n := range callee.Start.Nodes() {
		if n.Op != irgraph.OpProj || n.InAt(0) != callee.Start.Node() {
			continue
		}
		num := n.Attrs.(irgraph.ProjAttrs).Num
		if num == 0 {
			params[n] = call.In[0]
			continue
		}
		if num-1 >= len(args) {
			return ErrUnsupportedCallee
		}
		params[n] = args[num-1]
	}

	// Pass 1: shell clones of every body node in call's own block, skipping
	// the params resolved above and the Return (handled specially).
	clones := map[*irgraph.Node]*irgraph.Node{}
	for _, n := range callee.Start.Nodes() {
		if n.Op == irgraph.OpStart || n == ret {
			continue
		}
		if _, isParam := params[n]; isParam {
			continue
		}
		clone := g.NewNode(n.Op, n.Mode, call.Block, nil, n.Attrs)
		clone.Pinned = n.Pinned
		clones[n] = clone
	}

	resolve := func(n *irgraph.Node) *irgraph.Node {
		if n == nil {
			return nil
		}
		if c, ok := clones[n]; ok {
			return c
		}
		if p, ok := params[n]; ok {
			return p
		}
		return n
	}

	// Pass 2: wire the fresh clones' inputs, remapped through resolve.
	for n, clone := range clones {
		for _, in := range n.In {
			g.AppendInput(clone, resolve(in))
		}
	}

	clonedMem := resolve(ret.In[1])
	clonedResults := make([]*irgraph.Node, len(ret.In)-2)
	for i, v := range ret.In[2:] {
		clonedResults[i] = resolve(v)
	}

	for _, u := range call.Uses() {
		if u.Op != irgraph.OpProj {
			continue
		}
		num := u.Attrs.(irgraph.ProjAttrs).Num
		var replacement *irgraph.Node
		switch {
		case num == 0:
			replacement = clonedMem
		case num-1 < len(clonedResults):
			replacement = clonedResults[num-1]
		default:
			continue
		}
		g.Exchange(u, replacement)
	}

	g.InvalidateAll()
	return nil
}

// soleReturn finds g's single Return node among End's incoming edges,
// failing if there is none or more than one (a branching callee, out of
// scope for Inline's straight-line support).
func soleReturn(g *irgraph.Graph) (*irgraph.Node, error) {
	var ret *irgraph.Node
	for _, n := range g.End.In {
		if n != nil && n.Op == irgraph.OpReturn {
			if ret != nil {
				return nil, ErrUnsupportedCallee
			}
			ret = n
		}
	}
	if ret == nil {
		return nil, ErrUnsupportedCallee
	}
	return ret, nil
}
