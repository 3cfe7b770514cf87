// Package localopt implements the on-construction local optimizer (§4.2):
// constant folding, algebraic identities, value numbering (CSE), and Proj
// normalization, applied to fixed point on every newly created node before
// construct.Context hands it back to the caller.
//
// Mixing construction with optimization is a deliberate design choice (§9
// "On-construction optimization"): CSE is not an optional pass here, it is
// a core invariant every node passes through exactly once, at birth.
package localopt

import (
	"fmt"
	"strings"

	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/tarval"
)

// Table is the per-graph local-optimizer state: the identity map used for
// value numbering (rule 3) and the Const canonicalization table. One Table
// must be used for the entire lifetime of a single irgraph.Graph; it is not
// safe for concurrent use (matches §5's single-owning-thread model).
type Table struct {
	identity map[string]*irgraph.Node
	consts   map[constKey]*irgraph.Node
}

type constKey struct {
	mode string
	bits uint64
}

// New returns a fresh, empty optimizer table for one graph.
func New() *Table {
	return &Table{identity: map[string]*irgraph.Node{}, consts: map[constKey]*irgraph.Node{}}
}

// Apply runs the four local-optimization rules on n to a fixed point and
// returns the canonical node the caller should keep using in n's place
// (which may be n itself, an existing node found by CSE, or a folded
// constant). If Apply returns a node other than n, n is discarded via
// Node.Discard — it must not have been wired into any other node's inputs
// yet, which holds because construct.Context calls Apply immediately after
// irgraph.Graph.NewNode, before returning the node to its caller.
func (t *Table) Apply(g *irgraph.Graph, n *irgraph.Node) *irgraph.Node {
	for {
		if folded := t.foldConstant(g, n); folded != nil {
			n = replace(n, folded)
			continue
		}
		if simplified := t.identitySimplify(g, n); simplified != nil {
			n = replace(n, simplified)
			continue
		}
		if canonical := t.valueNumber(g, n); canonical != n {
			n = replace(n, canonical)
			continue
		}
		if proj := t.projNormalize(g, n); proj != nil {
			n = replace(n, proj)
			continue
		}
		return n
	}
}

// replace discards "from" in favor of "to" when they differ and from has
// not yet been exposed to any use; returns "to" unconditionally.
func replace(from, to *irgraph.Node) *irgraph.Node {
	if from != to {
		from.Discard()
	}
	return to
}

// --- Rule 1: constant folding -------------------------------------------

func (t *Table) foldConstant(g *irgraph.Graph, n *irgraph.Node) *irgraph.Node {
	if n.Op == irgraph.OpConst {
		return t.canonicalConst(g, n)
	}
	vals := make([]*tarval.Tarval, len(n.In))
	for i, in := range n.In {
		ca, ok := in.Attrs.(irgraph.ConstAttrs)
		if in.Op != irgraph.OpConst || !ok {
			return nil
		}
		vals[i] = ca.Value
	}
	if len(vals) == 0 {
		return nil
	}

	var result *tarval.Tarval
	switch n.Op {
	case irgraph.OpAdd:
		result = tarval.Add(n.Mode, vals[0], vals[1])
	case irgraph.OpSub:
		result = tarval.Sub(n.Mode, vals[0], vals[1])
	case irgraph.OpMul:
		result = tarval.Mul(n.Mode, vals[0], vals[1])
	case irgraph.OpDiv:
		if vals[1].IsZero() {
			return nil // never fold division by a constant zero; left for the verifier/trap path
		}
		result = tarval.Div(n.Mode, vals[0], vals[1])
	case irgraph.OpMod:
		if vals[1].IsZero() {
			return nil
		}
		result = tarval.Mod(n.Mode, vals[0], vals[1])
	case irgraph.OpAnd:
		result = tarval.And(n.Mode, vals[0], vals[1])
	case irgraph.OpOr:
		result = tarval.Or(n.Mode, vals[0], vals[1])
	case irgraph.OpXor:
		result = tarval.Xor(n.Mode, vals[0], vals[1])
	case irgraph.OpNeg:
		result = tarval.Neg(n.Mode, vals[0])
	case irgraph.OpNot:
		result = tarval.Not(n.Mode, vals[0])
	case irgraph.OpShl:
		result = tarval.Shl(n.Mode, vals[0], vals[1].Uint64())
	case irgraph.OpShr:
		result = tarval.Shr(n.Mode, vals[0], vals[1].Uint64())
	case irgraph.OpConv:
		result = tarval.Convert(vals[0], n.Mode)
	default:
		return nil
	}
	return t.makeConst(g, n.Block, result)
}

func (t *Table) canonicalConst(g *irgraph.Graph, n *irgraph.Node) *irgraph.Node {
	ca := n.Attrs.(irgraph.ConstAttrs)
	key := constKey{mode: n.Mode.String(), bits: ca.Value.Bits}
	if existing, ok := t.consts[key]; ok {
		return existing
	}
	t.consts[key] = n
	return n
}

func (t *Table) makeConst(g *irgraph.Graph, block *irgraph.Block, v *tarval.Tarval) *irgraph.Node {
	key := constKey{mode: v.Mode.String(), bits: v.Bits}
	if existing, ok := t.consts[key]; ok {
		return existing
	}
	n := g.NewNode(irgraph.OpConst, v.Mode, block, nil, irgraph.ConstAttrs{Value: v})
	t.consts[key] = n
	return n
}

// --- Rule 2: algebraic identities ---------------------------------------

// identitySimplify implements the shape-preserving rewrites of §4.2 rule 2.
// It never folds constants (rule 1 already tried that) and never changes
// memory/control dependencies (§4.2: "Rules are shape-preserving").
func (t *Table) identitySimplify(g *irgraph.Graph, n *irgraph.Node) *irgraph.Node {
	switch n.Op {
	case irgraph.OpAdd:
		if isZeroConst(n.InAt(1)) {
			return n.InAt(0)
		}
		if isZeroConst(n.InAt(0)) {
			return n.InAt(1)
		}
	case irgraph.OpSub:
		if n.InAt(0) == n.InAt(1) && !n.Mode.IsFloat() {
			return t.makeConst(g, n.Block, tarval.NewInt(n.Mode, 0))
		}
		if isZeroConst(n.InAt(1)) {
			return n.InAt(0)
		}
	case irgraph.OpMul:
		if isOneConst(n.InAt(1)) {
			return n.InAt(0)
		}
		if isOneConst(n.InAt(0)) {
			return n.InAt(1)
		}
	case irgraph.OpAnd:
		if n.InAt(0) == n.InAt(1) {
			return n.InAt(0)
		}
	case irgraph.OpOr:
		if isZeroConst(n.InAt(1)) {
			return n.InAt(0)
		}
		if isZeroConst(n.InAt(0)) {
			return n.InAt(1)
		}
	case irgraph.OpXor:
		if n.InAt(0) == n.InAt(1) && !n.Mode.IsFloat() {
			return t.makeConst(g, n.Block, tarval.NewInt(n.Mode, 0))
		}
	case irgraph.OpShl, irgraph.OpShr:
		if isZeroConst(n.InAt(1)) {
			return n.InAt(0)
		}
	case irgraph.OpNeg:
		if n.InAt(0).Op == irgraph.OpNeg {
			return n.InAt(0).InAt(0) // double negation cancels
		}
	case irgraph.OpConv:
		if n.InAt(0).Op == irgraph.OpConv && n.InAt(0).Mode == n.Mode {
			return n.InAt(0).InAt(0) // redundant Conv collapses when modes round-trip
		}
	}
	return nil
}

func isZeroConst(n *irgraph.Node) bool {
	if n == nil || n.Op != irgraph.OpConst {
		return false
	}
	return n.Attrs.(irgraph.ConstAttrs).Value.IsZero()
}

func isOneConst(n *irgraph.Node) bool {
	if n == nil || n.Op != irgraph.OpConst {
		return false
	}
	return n.Attrs.(irgraph.ConstAttrs).Value.IsOne()
}

// --- Rule 3: value numbering ---------------------------------------------

// valueNumber computes n's identity key and returns the existing canonical
// node if one is already registered, or registers n itself as canonical.
// Pinned nodes (Load/Div/Mod and the control ops Cond/Jmp/Return; Store,
// Call and Alloc are never value-numbered at all) are keyed including
// their owning block; floating nodes
// (pure arithmetic, Const, Cmp) are keyed without one, matching §4.2 rule 3
// "(opcode, block-or-none, input node identities in order, attribute payload)".
func (t *Table) valueNumber(g *irgraph.Graph, n *irgraph.Node) *irgraph.Node {
	if !eligibleForCSE(n.Op) {
		return n
	}
	key := identityKey(n)
	if existing, ok := t.identity[key]; ok {
		return existing
	}
	t.identity[key] = n
	return n
}

func eligibleForCSE(op irgraph.Opcode) bool {
	switch op {
	case irgraph.OpBlock, irgraph.OpStart, irgraph.OpEnd, irgraph.OpPhi, irgraph.OpCall,
		irgraph.OpStore, irgraph.OpAlloc:
		return false // nodes with identity tied to position/ordering, not pure value
	default:
		return true
	}
}

func isPinned(op irgraph.Opcode) bool {
	switch op {
	case irgraph.OpLoad, irgraph.OpDiv, irgraph.OpMod, irgraph.OpCond, irgraph.OpJmp, irgraph.OpReturn:
		return true
	default:
		return false
	}
}

func identityKey(n *irgraph.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%s|", n.Op, n.Mode)
	if isPinned(n.Op) && n.Block != nil {
		fmt.Fprintf(&b, "blk%d|", n.Block.ID())
	} else {
		b.WriteString("blk-|")
	}
	for _, in := range n.In {
		if in == nil {
			b.WriteString("nil,")
			continue
		}
		fmt.Fprintf(&b, "%d,", in.ID())
	}
	b.WriteString("|")
	b.WriteString(attrsKey(n))
	return b.String()
}

func attrsKey(n *irgraph.Node) string {
	switch a := n.Attrs.(type) {
	case irgraph.ConstAttrs:
		return fmt.Sprintf("const:%d", a.Value.Bits)
	case irgraph.ProjAttrs:
		return fmt.Sprintf("proj:%d", a.Num)
	case irgraph.CmpAttrs:
		return fmt.Sprintf("cmp:%d", a.Relation)
	case irgraph.CallAttrs:
		return fmt.Sprintf("call:%s", a.Callee.LinkerName)
	default:
		return "base"
	}
}

// --- Rule 4: Proj normalization -------------------------------------------

// projNormalize implements §4.2 rule 4: "Proj(Cond(Const)) collapses to the
// taken branch's jump". Generic "Proj(Tuple)" passthrough has no separate
// Tuple opcode in this kernel (tuple-ness is a Mode, not an Op; see
// irgraph.Opcode.IsTuple), so it does not apply here.
func (t *Table) projNormalize(g *irgraph.Graph, n *irgraph.Node) *irgraph.Node {
	if n.Op != irgraph.OpProj {
		return nil
	}
	cond := n.InAt(0)
	if cond == nil || cond.Op != irgraph.OpCond {
		return nil
	}
	// Cond convention: In[0] = incoming control, In[1] = condition value.
	c := cond.InAt(1)
	if c == nil || c.Op != irgraph.OpConst {
		return nil
	}
	pa := n.Attrs.(irgraph.ProjAttrs)
	val := c.Attrs.(irgraph.ConstAttrs).Value
	taken := !val.IsZero() // convention: Proj #1 is the true/then edge, Proj #0 the false/else edge
	isThenEdge := pa.Num == 1
	if isThenEdge == taken {
		return g.NewNode(irgraph.OpJmp, n.Mode, n.Block, []*irgraph.Node{cond.InAt(0)}, irgraph.BaseAttrs{})
	}
	return g.NewNode(irgraph.OpBad, n.Mode, n.Block, nil, irgraph.BaseAttrs{})
}
