package irgraph

import (
	"github.com/katalvlaran/firmkit/mode"
	"github.com/katalvlaran/firmkit/typ"
)

// Property names a cached analysis result a Graph may hold (§3 "a cache of
// properties ... each tagged fresh/stale", §9 "Property cache coherence").
// Concrete payloads are owned by the analysis package; Graph only tracks
// freshness and storage so that passes can declare Requires()/Invalidates()
// without irgraph needing to know their shapes.
type Property int

const (
	PropOutEdges Property = iota
	PropDominance
	PropPostDominance
	PropLoopTree
	PropLiveness
	PropAlias
	PropLoopClosedSSA
	PropNoBadNodes
	propCount
)

var propertyNames = [propCount]string{
	"out-edges", "dominance", "post-dominance", "loop-tree",
	"liveness", "alias", "loop-closed-ssa", "no-bad-nodes",
}

func (p Property) String() string {
	if int(p) < len(propertyNames) {
		return propertyNames[p]
	}
	return "property(?)"
}

// Graph is the per-procedure container (§3 "Graph"): start/end blocks, frame
// type, entity, the node pool (the single lifetime authority per §3
// "Ownership"), a monotonic visited-counter for mark/sweep-style
// traversals, and the property cache.
type Graph struct {
	Entity    Entity
	FrameType *typ.Type

	Start *Block
	End   *Node // Op == OpEnd; In holds keep-alive roots plus control reaching the end

	nodes     map[uint64]*Node
	blocks    []*Block
	nextID    uint64
	visited   uint64
	finalized bool

	props      [propCount]interface{}
	propsFresh [propCount]bool
}

// NewGraph allocates a fresh graph for entity with the given frame type,
// creating the Start block and End node (§4.1 begin_graph). Higher layers
// normally reach this through construct.BeginGraph rather than calling it
// directly.
func NewGraph(entity Entity, frameType *typ.Type) *Graph {
	g := &Graph{Entity: entity, FrameType: frameType, nodes: map[uint64]*Node{}}

	startBlock := g.newBlock(nil) // Start's block is itself; no predecessors ever added
	startBlock.matured = true
	g.Start = startBlock

	_ = g.newNode(OpStart, mode.Tuple, startBlock, nil, BaseAttrs{})

	g.End = g.newNode(OpEnd, mode.Tuple, nil, nil, BaseAttrs{})
	return g
}

// newBlock allocates a Block node; preds (if any) become its initial
// control inputs. The block starts unmatured unless the caller flips
// matured explicitly (only NewGraph's Start block does, since Start never
// gains predecessors).
func (g *Graph) newBlock(preds []*Node) *Block {
	n := g.newNode(OpBlock, mode.Tuple, nil, preds, BaseAttrs{})
	b := &Block{node: n}
	g.blocks = append(g.blocks, b)
	return b
}

// Blocks returns every block allocated in this graph, in creation order
// (Start first). Analyses walk this to enumerate the control-flow graph
// without re-deriving Block wrappers from raw OpBlock nodes.
func (g *Graph) Blocks() []*Block {
	out := make([]*Block, len(g.blocks))
	copy(out, g.blocks)
	return out
}

// NewBlock allocates a fresh, open (unmatured) Block with no predecessors
// yet; the construction façade grows it via AddPred and later matures it.
func (g *Graph) NewBlock() *Block {
	return g.newBlock(nil)
}

// newNode is the single allocation point for every Node in the graph: it
// assigns a monotonic ID, registers the node in every input's out-edge
// list (§4.3 "maintained incrementally by construction"), and records block
// ownership (§3 invariant 1).
func (g *Graph) newNode(op Opcode, m mode.Mode, block *Block, in []*Node, attrs Attrs) *Node {
	g.nextID++
	n := &Node{id: g.nextID, Op: op, Mode: m, In: append([]*Node(nil), in...), Attrs: attrs, graph: g}
	for pos, input := range in {
		if input != nil {
			input.addUse(n, pos)
		}
	}
	if block != nil {
		block.adoptNode(n)
	}
	g.nodes[n.id] = n
	return n
}

// NewNode allocates a raw node with the given opcode, mode, owning block,
// inputs, and attribute payload, with no optimization applied. This is the
// seam construct.Context's typed constructors and transform's cloning
// helpers build on; ordinary callers should go through construct instead,
// which routes every creation through the local optimizer (§4.1 contract).
func (g *Graph) NewNode(op Opcode, m mode.Mode, block *Block, in []*Node, attrs Attrs) *Node {
	return g.newNode(op, m, block, in, attrs)
}

// AppendInput links an additional input edge onto an already-existing node
// n, registering the corresponding out-edge on input. Used by construct's
// on-demand phi resolution (§4.1 "mature_block ... synthesizes the minimal
// phi"), where a Phi node is created with zero operands while its block is
// open and gains one operand per predecessor at maturation.
func (g *Graph) AppendInput(n, input *Node) {
	pos := len(n.In)
	n.In = append(n.In, input)
	if input != nil {
		input.addUse(n, pos)
	}
}

// ReplaceInput rewires a single input edge: consumer's input at pos, which
// must currently be oldInput, becomes newInput. Unlike Exchange (which
// reroutes every use of a node at once), this targets one consumer/position
// pair, used by analyses that redirect only the uses crossing a specific
// boundary (e.g. loop-closed SSA's exit-phi rewiring) while leaving every
// other use of oldInput untouched.
func (g *Graph) ReplaceInput(consumer *Node, pos int, newInput *Node) {
	old := consumer.In[pos]
	if old != nil {
		old.removeUse(consumer, pos)
	}
	consumer.In[pos] = newInput
	if newInput != nil {
		newInput.addUse(consumer, pos)
	}
}

// AddKeepAlive adds n as an extra incoming edge on End, preventing it from
// being collected by dead-code elimination even though nothing else in the
// graph uses it (§3/GLOSSARY "Keep-alive").
func (g *Graph) AddKeepAlive(n *Node) {
	pos := len(g.End.In)
	g.End.In = append(g.End.In, n)
	n.addUse(g.End, pos)
}

// Exchange structurally replaces old with replacement: every out-edge of
// old is rerouted to replacement, and old becomes unreachable (collected
// later by transform.DeadCodeElim), per §3 "Lifecycle". old and replacement
// must not be the same node.
func (g *Graph) Exchange(old, replacement *Node) {
	if old == replacement {
		return
	}
	uses := old.out
	old.out = nil
	for _, u := range uses {
		u.node.In[u.pos] = replacement
		replacement.addUse(u.node, u.pos)
	}
	g.Invalidate(PropOutEdges)
}

// ForceRemove drops n from the graph unconditionally, without Discard's
// "no remaining uses" precondition: n's own out-edges are simply dropped
// rather than verified empty. Used by transform.DeadCodeElim, which
// computes an entire unreachable set up front (possibly containing
// reference cycles among otherwise-dead nodes, e.g. two phis pointing at
// each other) and removes it as a batch rather than one leaf at a time.
// n's registrations on its own inputs are still cleaned up, so a surviving
// (reachable) input never retains a dangling use pointing at a removed node.
func (g *Graph) ForceRemove(n *Node) {
	for pos, in := range n.In {
		if in != nil {
			in.removeUse(n, pos)
		}
	}
	n.out = nil
	if n.Block != nil {
		n.Block.forgetNode(n)
	}
	g.forget(n)
}

// NextVisited returns a new monotonically increasing "visited" token, used
// by DFS/BFS-shaped analyses to mark nodes without clearing a boolean set
// between runs (the core.Graph "visited counter" pattern generalized here).
func (g *Graph) NextVisited() uint64 {
	g.visited++
	return g.visited
}

// Finalized reports whether Finalize has been called.
func (g *Graph) Finalized() bool { return g.finalized }

// Finalize flips the graph to its post-construction phase (§3 "Lifecycle":
// nodes are never mutated in-opcode after finalize). Idempotent.
func (g *Graph) Finalize() { g.finalized = true }

// Property returns the cached value for p and whether it is fresh.
func (g *Graph) Property(p Property) (interface{}, bool) {
	return g.props[p], g.propsFresh[p]
}

// SetProperty installs value as the fresh cached result for p.
func (g *Graph) SetProperty(p Property, value interface{}) {
	g.props[p] = value
	g.propsFresh[p] = true
}

// Invalidate marks p stale and drops its cached value; no other property
// is touched.
// Passes call this for every property in their declared Invalidates() set
// (§9 "Property cache coherence").
func (g *Graph) Invalidate(p Property) {
	g.propsFresh[p] = false
	g.props[p] = nil
}

// InvalidateAll marks every cached property stale; used by transformations
// that rewrite enough of the graph that per-property invalidation would be
// error-prone to enumerate by hand (e.g. full-factor loop unrolling).
func (g *Graph) InvalidateAll() {
	for p := Property(0); p < propCount; p++ {
		g.Invalidate(p)
	}
}

// Nodes returns every live node in the graph, in ID order, for diagnostics
// and passes that need a full walk rather than a reachability traversal.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sortNodesByID(out)
	return out
}

// NodeByID looks up a node by its graph-local identifier.
func (g *Graph) NodeByID(id uint64) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// forget removes a node from the pool; called by Node.Discard and by
// ForceRemove (transform's dead-code elimination).
func (g *Graph) forget(n *Node) {
	delete(g.nodes, n.id)
}

func sortNodesByID(ns []*Node) {
	// insertion sort: node pools are expected small enough per-graph that
	// this avoids pulling in "sort" for a one-line call site; mirrors the
	// teacher's preference for explicit, allocation-light hot paths.
	for i := 1; i < len(ns); i++ {
		for j := i; j > 0 && ns[j-1].id > ns[j].id; j-- {
			ns[j-1], ns[j] = ns[j], ns[j-1]
		}
	}
}
