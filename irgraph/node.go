package irgraph

import (
	"fmt"

	"github.com/katalvlaran/firmkit/mode"
	"github.com/katalvlaran/firmkit/tarval"
)

// Attrs is the opaque, opcode-typed attribute payload carried by a Node
// (§3 "an opaque attribute payload typed by opcode"). Concrete payloads
// (ConstAttrs, ProjAttrs, CmpAttrs, CallAttrs, target-specific attrs, ...)
// implement this marker interface.
type Attrs interface {
	attrsMarker()
}

// BaseAttrs may be embedded by concrete Attrs implementations that have no
// payload of their own (Add, Sub, Jmp, ...).
type BaseAttrs struct{}

func (BaseAttrs) attrsMarker() {}

// ConstAttrs is the attribute payload of an OpConst node.
type ConstAttrs struct {
	BaseAttrs
	Value *tarval.Tarval
}

// ProjAttrs is the attribute payload of an OpProj node (§3 "Proj").
// Num is opaque to generic passes but meaningful to the producing node's class.
type ProjAttrs struct {
	BaseAttrs
	Num int
}

// CmpAttrs is the attribute payload of an OpCmp node.
type CmpAttrs struct {
	BaseAttrs
	Relation tarval.Relation // the bitset of relations that satisfy this compare
}

// CallAttrs is the attribute payload of an OpCall node.
type CallAttrs struct {
	BaseAttrs
	Callee   Entity
	Pure     bool // callee has no visible side effects (required for Duff's-device bound validity, §4.4)
}

// Node is one vertex of the sea-of-nodes graph (§3 "Node").
//
// In is the ordered array of input edges; for all opcodes except Block and
// End, Block names the owning control region that In[*] must be dominated
// into. Out is the lazily-populated reverse-edge ("use") list, maintained
// incrementally by Graph.newNode and Exchange.
type Node struct {
	id     uint64
	Op     Opcode
	Mode   mode.Mode
	Pinned bool // pinned nodes may not float across blocks (construct pins Alloc/Load/Store/Call/Return)
	Block  *Block
	In     []*Node
	Attrs  Attrs

	out   []use
	graph *Graph
}

// use is one entry in a Node's reverse-edge list: the consumer and the
// index within the consumer's In array that refers back to this node.
type use struct {
	node *Node
	pos  int
}

// ID returns the node's unique, graph-local identifier, stable for the
// node's lifetime (monotonically assigned by Graph.newNode).
func (n *Node) ID() uint64 { return n.id }

// Graph returns the owning Graph.
func (n *Node) Graph() *Graph { return n.graph }

// InAt returns input i, or nil if n has fewer than i+1 inputs.
func (n *Node) InAt(i int) *Node {
	if i < 0 || i >= len(n.In) {
		return nil
	}
	return n.In[i]
}

// Arity returns the number of input edges.
func (n *Node) Arity() int { return len(n.In) }

// Uses returns the nodes that consume n, one entry per input edge that
// references n, read from the incrementally maintained reverse-edge list
// (§4.3 "Out-edges"); the input positions are not returned.
func (n *Node) Uses() []*Node {
	out := make([]*Node, len(n.out))
	for i, u := range n.out {
		out[i] = u.node
	}
	return out
}

// IsBad reports whether n is the graph's canonical Bad sentinel, used to
// mark a value reached only through dead/unreachable control flow.
func (n *Node) IsBad() bool { return n.Op == OpBad }

func (n *Node) String() string {
	return fmt.Sprintf("%s#%d:%s", n.Op, n.id, n.Mode)
}

// addUse registers (consumer, pos) in n's reverse-edge list. Internal:
// called only by Graph.newNode and Exchange to keep Out incrementally
// correct, per §4.3's "maintained incrementally by construction and by
// exchange".
func (n *Node) addUse(consumer *Node, pos int) {
	n.out = append(n.out, use{node: consumer, pos: pos})
}

// removeUse deletes the first (consumer, pos) entry from n's reverse-edge
// list, used when Exchange reroutes consumer's input away from n.
func (n *Node) removeUse(consumer *Node, pos int) {
	for i, u := range n.out {
		if u.node == consumer && u.pos == pos {
			n.out = append(n.out[:i], n.out[i+1:]...)
			return
		}
	}
}

// Discard retires a freshly created, never-linked-to-anything node: it
// removes n's own use-registrations from each of its inputs and drops n
// from the owning graph's pool. Callers (localopt) must only call this on
// a node with no uses of its own yet, i.e. one created and folded away in
// the same construction step before any other node could reference it.
func (n *Node) Discard() {
	if len(n.out) != 0 {
		panic("irgraph: Discard called on a node that already has uses")
	}
	for pos, in := range n.In {
		if in != nil {
			in.removeUse(n, pos)
		}
	}
	if n.Block != nil {
		n.Block.forgetNode(n)
	}
	n.graph.forget(n)
}
