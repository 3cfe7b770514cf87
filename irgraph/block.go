package irgraph

// Block is a special node whose inputs are the control-flow predecessors:
// projections out of Cond, Jmp, Start, or other block-terminating nodes
// (§3 "Block"). A Block is matured exactly once; before maturation, the
// construction façade may still append predecessors via AddPred.
type Block struct {
	node    *Node // the underlying graph node (Op == OpBlock); owns In == preds
	matured bool
	nodes   []*Node // nodes whose Block field is this block, in creation order
}

// asNode returns the Block's underlying *Node, used internally by Graph
// and Exchange which operate uniformly over *Node.
func (b *Block) asNode() *Node { return b.node }

// Node returns the Block's underlying *Node, for callers that need to use
// a block's terminator-independent identity as a control value (e.g. when
// wiring a synthetic predecessor edge in tests or cloning helpers).
func (b *Block) Node() *Node { return b.node }

// SetMatured flips the block's matured flag directly. construct.MatureBlock
// is the only caller expected in normal operation (after it has finished
// resolving on-demand phis); exposed at this level so irgraph stays
// self-contained and testable without depending on construct.
func (b *Block) SetMatured(matured bool) { b.matured = matured }

// ID returns the block's unique identifier (shared with its underlying node).
func (b *Block) ID() uint64 { return b.node.id }

// Arity returns the number of control predecessors. A Phi in this block
// must have exactly this many inputs (§3 invariant 2).
func (b *Block) Arity() int { return len(b.node.In) }

// Preds returns the control predecessor nodes (each a control-producing
// Proj/Jmp/Cond/Start), in positional order matching Phi input order.
func (b *Block) Preds() []*Node {
	out := make([]*Node, len(b.node.In))
	copy(out, b.node.In)
	return out
}

// Matured reports whether the block's arity is fixed. Analyses and
// transformations (§3 invariant 5) must never run on an open block.
func (b *Block) Matured() bool { return b.matured }

// Nodes returns, in creation order, every Node owned by this block.
func (b *Block) Nodes() []*Node {
	out := make([]*Node, len(b.nodes))
	copy(out, b.nodes)
	return out
}

// addPred appends a new control predecessor. Internal: construct.Context
// is the only caller permitted to grow an open block's arity (exposed via
// the exported AddPred method below, guarded by the matured check).
func (b *Block) addPred(ctrl *Node) {
	pos := len(b.node.In)
	b.node.In = append(b.node.In, ctrl)
	ctrl.addUse(b.node, pos)
}

// AddPred appends ctrl as a new control predecessor of an open block.
// Returns ErrBlockMatured if the block was already matured (§4.1 contract:
// "Fails with OpenBlockError if a pass-requiring operation is invoked
// before finalize" — the symmetric error here guards the mutation side).
func (b *Block) AddPred(ctrl *Node) error {
	if b.matured {
		return ErrBlockMatured
	}
	b.addPred(ctrl)
	return nil
}

func (b *Block) adoptNode(n *Node) {
	n.Block = b
	b.nodes = append(b.nodes, n)
}

// forgetNode removes n from the block's owned-node list; called by
// Node.Discard when a freshly created node is folded away before anything
// else could reference it.
func (b *Block) forgetNode(n *Node) {
	for i, owned := range b.nodes {
		if owned == n {
			b.nodes = append(b.nodes[:i], b.nodes[i+1:]...)
			return
		}
	}
}
