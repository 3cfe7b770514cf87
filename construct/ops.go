package construct

import (
	"fmt"

	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/mode"
	"github.com/katalvlaran/firmkit/tarval"
)

// new routes a freshly allocated node through the local optimizer before
// returning it, the one rule every typed constructor in this file obeys
// (§4.1 "constructors call the local optimizer before returning").
func (c *Context) new(b *irgraph.Block, op irgraph.Opcode, m mode.Mode, in []*irgraph.Node, attrs irgraph.Attrs) *irgraph.Node {
	n := c.graph.NewNode(op, m, b, in, attrs)
	return c.opt.Apply(c.graph, n)
}

func requireMode(got, want mode.Mode, where string) error {
	if got != want {
		return fmt.Errorf("construct: %s: %w (want %s, got %s)", where, ErrTypeMismatch, want, got)
	}
	return nil
}

func requireSameMode(a, b *irgraph.Node, where string) error {
	if a.Mode != b.Mode {
		return fmt.Errorf("construct: %s: %w (%s vs %s)", where, ErrTypeMismatch, a.Mode, b.Mode)
	}
	return nil
}

// NewConst builds (or returns the canonical pre-existing) constant node
// carrying v, placed in block b.
func (c *Context) NewConst(b *irgraph.Block, v *tarval.Tarval) *irgraph.Node {
	return c.new(b, irgraph.OpConst, v.Mode, nil, irgraph.ConstAttrs{Value: v})
}

func (c *Context) binArith(b *irgraph.Block, op irgraph.Opcode, l, r *irgraph.Node, where string) (*irgraph.Node, error) {
	if err := requireSameMode(l, r, where); err != nil {
		return nil, err
	}
	return c.new(b, op, l.Mode, []*irgraph.Node{l, r}, irgraph.BaseAttrs{}), nil
}

// NewAdd/NewSub/NewMul/NewDiv/NewMod/NewAnd/NewOr/NewXor build the binary
// arithmetic/bitwise opcodes; both operands must share a mode (§4.1
// "TypeMismatchError when an input's mode is incompatible with the
// opcode's signature").
func (c *Context) NewAdd(b *irgraph.Block, l, r *irgraph.Node) (*irgraph.Node, error) {
	return c.binArith(b, irgraph.OpAdd, l, r, "Add")
}
func (c *Context) NewSub(b *irgraph.Block, l, r *irgraph.Node) (*irgraph.Node, error) {
	return c.binArith(b, irgraph.OpSub, l, r, "Sub")
}
func (c *Context) NewMul(b *irgraph.Block, l, r *irgraph.Node) (*irgraph.Node, error) {
	return c.binArith(b, irgraph.OpMul, l, r, "Mul")
}
func (c *Context) NewDiv(b *irgraph.Block, l, r *irgraph.Node) (*irgraph.Node, error) {
	return c.binArith(b, irgraph.OpDiv, l, r, "Div")
}
func (c *Context) NewMod(b *irgraph.Block, l, r *irgraph.Node) (*irgraph.Node, error) {
	return c.binArith(b, irgraph.OpMod, l, r, "Mod")
}
func (c *Context) NewAnd(b *irgraph.Block, l, r *irgraph.Node) (*irgraph.Node, error) {
	return c.binArith(b, irgraph.OpAnd, l, r, "And")
}
func (c *Context) NewOr(b *irgraph.Block, l, r *irgraph.Node) (*irgraph.Node, error) {
	return c.binArith(b, irgraph.OpOr, l, r, "Or")
}
func (c *Context) NewXor(b *irgraph.Block, l, r *irgraph.Node) (*irgraph.Node, error) {
	return c.binArith(b, irgraph.OpXor, l, r, "Xor")
}

// NewShl/NewShr build shift opcodes; the shift amount is an untyped Iu32
// count, independent of the shifted value's mode.
func (c *Context) NewShl(b *irgraph.Block, v, amount *irgraph.Node) (*irgraph.Node, error) {
	if err := requireMode(amount.Mode, mode.Iu32, "Shl amount"); err != nil {
		return nil, err
	}
	return c.new(b, irgraph.OpShl, v.Mode, []*irgraph.Node{v, amount}, irgraph.BaseAttrs{}), nil
}
func (c *Context) NewShr(b *irgraph.Block, v, amount *irgraph.Node) (*irgraph.Node, error) {
	if err := requireMode(amount.Mode, mode.Iu32, "Shr amount"); err != nil {
		return nil, err
	}
	return c.new(b, irgraph.OpShr, v.Mode, []*irgraph.Node{v, amount}, irgraph.BaseAttrs{}), nil
}

// NewNeg/NewNot build the unary arithmetic/bitwise opcodes.
func (c *Context) NewNeg(b *irgraph.Block, v *irgraph.Node) *irgraph.Node {
	return c.new(b, irgraph.OpNeg, v.Mode, []*irgraph.Node{v}, irgraph.BaseAttrs{})
}
func (c *Context) NewNot(b *irgraph.Block, v *irgraph.Node) *irgraph.Node {
	return c.new(b, irgraph.OpNot, v.Mode, []*irgraph.Node{v}, irgraph.BaseAttrs{})
}

// NewConv builds a representation conversion to mode target, honoring
// tarval's overflow policy when applied to constants during folding.
func (c *Context) NewConv(b *irgraph.Block, v *irgraph.Node, target mode.Mode) *irgraph.Node {
	return c.new(b, irgraph.OpConv, target, []*irgraph.Node{v}, irgraph.BaseAttrs{})
}

// NewCmp builds a comparison node carrying relation as its attribute payload
// (the bitset of tarval.Relation values that satisfy this compare).
func (c *Context) NewCmp(b *irgraph.Block, l, r *irgraph.Node, relation tarval.Relation) (*irgraph.Node, error) {
	if err := requireSameMode(l, r, "Cmp"); err != nil {
		return nil, err
	}
	return c.new(b, irgraph.OpCmp, mode.Ib, []*irgraph.Node{l, r}, irgraph.CmpAttrs{Relation: relation}), nil
}

// NewCond builds a two-way branch tuple over condition, taking control as
// its incoming control edge (§4.2 "Cond convention: In[0] = incoming
// control, In[1] = condition value"). Callers unpack it with NewProj(1) for
// the taken/then edge and NewProj(0) for the untaken/else edge.
func (c *Context) NewCond(b *irgraph.Block, control, condition *irgraph.Node) (*irgraph.Node, error) {
	if err := requireMode(condition.Mode, mode.Ib, "Cond condition"); err != nil {
		return nil, err
	}
	return c.new(b, irgraph.OpCond, mode.Tuple, []*irgraph.Node{control, condition}, irgraph.BaseAttrs{}), nil
}

// NewProj extracts tuple component num from a tuple-producing node (Cond,
// Call, Start, Load, Store); m is the projection's own result mode.
func (c *Context) NewProj(b *irgraph.Block, tuple *irgraph.Node, num int, m mode.Mode) *irgraph.Node {
	return c.new(b, irgraph.OpProj, m, []*irgraph.Node{tuple}, irgraph.ProjAttrs{Num: num})
}

// NewJmp builds an unconditional jump out of an incoming control edge.
func (c *Context) NewJmp(b *irgraph.Block, control *irgraph.Node) *irgraph.Node {
	return c.new(b, irgraph.OpJmp, mode.Ctrl, []*irgraph.Node{control}, irgraph.BaseAttrs{})
}

// NewAlloc reserves storage of pointer mode, unconstrained by CSE (two
// Allocs at the same program point are still two distinct memory cells).
func (c *Context) NewAlloc(b *irgraph.Block) *irgraph.Node {
	n := c.graph.NewNode(irgraph.OpAlloc, mode.P, b, nil, irgraph.BaseAttrs{})
	n.Pinned = true
	return n
}

// NewLoad reads through addr given an incoming memory edge, producing a
// tuple of (new memory, value); unpack with NewProj.
func (c *Context) NewLoad(b *irgraph.Block, mem, addr *irgraph.Node, valueMode mode.Mode) (*irgraph.Node, error) {
	if err := requireMode(mem.Mode, mode.Mem, "Load memory"); err != nil {
		return nil, err
	}
	if err := requireMode(addr.Mode, mode.P, "Load address"); err != nil {
		return nil, err
	}
	n := c.graph.NewNode(irgraph.OpLoad, mode.Tuple, b, []*irgraph.Node{mem, addr}, irgraph.BaseAttrs{})
	n.Pinned = true
	_ = valueMode // carried by the value-Proj the caller builds, not the Load node itself
	return n, nil
}

// NewStore writes value through addr given an incoming memory edge,
// producing the new memory edge directly (Store's single output is memory,
// so it needs no Proj unwrapping by convention here).
func (c *Context) NewStore(b *irgraph.Block, mem, addr, value *irgraph.Node) (*irgraph.Node, error) {
	if err := requireMode(mem.Mode, mode.Mem, "Store memory"); err != nil {
		return nil, err
	}
	if err := requireMode(addr.Mode, mode.P, "Store address"); err != nil {
		return nil, err
	}
	n := c.graph.NewNode(irgraph.OpStore, mode.Mem, b, []*irgraph.Node{mem, addr, value}, irgraph.BaseAttrs{})
	n.Pinned = true
	return n, nil
}

// NewCall builds a call tuple of (new memory, result...) to callee, with an
// incoming memory edge and argument list; pure marks the callee as free of
// visible side effects, relevant to Duff's-device unrolling's safety check
// (§4.4).
func (c *Context) NewCall(b *irgraph.Block, mem *irgraph.Node, callee irgraph.Entity, pure bool, args ...*irgraph.Node) (*irgraph.Node, error) {
	if err := requireMode(mem.Mode, mode.Mem, "Call memory"); err != nil {
		return nil, err
	}
	in := append([]*irgraph.Node{mem}, args...)
	n := c.graph.NewNode(irgraph.OpCall, mode.Tuple, b, in, irgraph.CallAttrs{Callee: callee, Pure: pure})
	n.Pinned = true
	return n, nil
}

// NewReturn terminates the procedure with an incoming control and memory
// edge plus zero or more result values.
func (c *Context) NewReturn(b *irgraph.Block, control, mem *irgraph.Node, results ...*irgraph.Node) (*irgraph.Node, error) {
	if err := requireMode(mem.Mode, mode.Mem, "Return memory"); err != nil {
		return nil, err
	}
	in := append([]*irgraph.Node{control, mem}, results...)
	n := c.graph.NewNode(irgraph.OpReturn, mode.Ctrl, b, in, irgraph.BaseAttrs{})
	n.Pinned = true
	c.graph.AppendInput(c.graph.End, n)
	return n, nil
}

// NewMux builds a branchless select: result is t if condition holds, f
// otherwise.
func (c *Context) NewMux(b *irgraph.Block, condition, t, f *irgraph.Node) (*irgraph.Node, error) {
	if err := requireMode(condition.Mode, mode.Ib, "Mux condition"); err != nil {
		return nil, err
	}
	if err := requireSameMode(t, f, "Mux arms"); err != nil {
		return nil, err
	}
	return c.new(b, irgraph.OpMux, t.Mode, []*irgraph.Node{condition, t, f}, irgraph.BaseAttrs{}), nil
}

// KeepAlive roots n at the graph's End node so dead-code elimination never
// collects it even though nothing else references it (§3 "Keep-alive").
func (c *Context) KeepAlive(n *irgraph.Node) {
	c.graph.AddKeepAlive(n)
}
