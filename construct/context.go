// Package construct implements the construction façade (§4.1): the only
// supported way user code grows an irgraph.Graph. It drives on-demand SSA
// construction (Braun/Cytron: open blocks read as incomplete phis, closed
// single-predecessor blocks read straight through, matured multi-predecessor
// blocks resolve and trivially-eliminate real phis) and routes every node
// through localopt.Table.Apply before handing it back to the caller, per the
// "constructors call the local optimizer before returning" contract.
package construct

import (
	"fmt"

	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/localopt"
	"github.com/katalvlaran/firmkit/mode"
	"github.com/katalvlaran/firmkit/typ"
)

// Context is the per-procedure construction state: the graph under
// construction, its local optimizer table, the local-variable slot modes
// fixed at BeginGraph, and the Braun/Cytron bookkeeping (current definitions
// per block and pending incomplete phis on still-open blocks).
//
// A Context is not safe for concurrent use; one goroutine builds one graph
// at a time (§5 "single-threaded cooperative within one graph").
type Context struct {
	graph      *irgraph.Graph
	opt        *localopt.Table
	localModes []mode.Mode

	defs       map[*irgraph.Block]map[int]*irgraph.Node
	incomplete map[*irgraph.Block]map[int]*irgraph.Node
}

// BeginGraph allocates a fresh Context over a new graph for entity, with the
// given frame type and local-variable slot modes (§4.1 begin_graph). Slot i
// of GetValue/SetValue always carries localModes[i].
func BeginGraph(entity irgraph.Entity, frameType *typ.Type, localModes []mode.Mode) *Context {
	return &Context{
		graph:      irgraph.NewGraph(entity, frameType),
		opt:        localopt.New(),
		localModes: append([]mode.Mode(nil), localModes...),
		defs:       map[*irgraph.Block]map[int]*irgraph.Node{},
		incomplete: map[*irgraph.Block]map[int]*irgraph.Node{},
	}
}

// Graph returns the graph under construction.
func (c *Context) Graph() *irgraph.Graph { return c.graph }

// StartBlock returns the graph's initial, already-matured block.
func (c *Context) StartBlock() *irgraph.Block { return c.graph.Start }

// NewImmBlock allocates a fresh, open block with no predecessors yet; the
// caller grows it with AddPred as control edges targeting it are discovered,
// then seals it with MatureBlock (§4.1 "new_imm_block ... mature_block").
func (c *Context) NewImmBlock() *irgraph.Block {
	return c.graph.NewBlock()
}

// AddPred appends ctrl as a control predecessor of an open block b.
func (c *Context) AddPred(b *irgraph.Block, ctrl *irgraph.Node) error {
	return b.AddPred(ctrl)
}

// MatureBlock fixes b's predecessor arity: every incomplete phi recorded
// against b while it was open gets one operand per predecessor, resolved by
// recursively reading each predecessor block for the same slot, and is then
// checked for triviality (§4.1 "mature_block ... synthesizes the minimal
// phi needed, eliminating it immediately if all operands agree").
func (c *Context) MatureBlock(b *irgraph.Block) error {
	if b.Matured() {
		return fmt.Errorf("construct: mature_block: %w", ErrAlreadyMatured)
	}
	pending := c.incomplete[b]
	delete(c.incomplete, b)
	b.SetMatured(true)
	for slot, phi := range pending {
		if err := c.fillPhiOperands(b, slot, phi); err != nil {
			return err
		}
		c.tryRemoveTrivialPhi(phi)
	}
	return nil
}

// SetValue records value as slot's current definition in block b (§4.1
// set_value). value's mode must match the slot's declared mode.
func (c *Context) SetValue(b *irgraph.Block, slot int, value *irgraph.Node) error {
	if slot < 0 || slot >= len(c.localModes) {
		return ErrBadSlot
	}
	if value.Mode != c.localModes[slot] {
		return fmt.Errorf("construct: set_value slot %d: %w (want %s, got %s)", slot, ErrTypeMismatch, c.localModes[slot], value.Mode)
	}
	c.writeVariable(b, slot, value)
	return nil
}

// GetValue resolves slot's current definition as observed from block b,
// synthesizing phis on demand per the Braun/Cytron algorithm (§4.1
// get_value). Reading a slot nothing has ever written to is a construction
// bug in the caller, surfaced by a zero-operand OpBad node rather than a
// panic, so the graph stays well-formed for later inspection.
func (c *Context) GetValue(b *irgraph.Block, slot int) (*irgraph.Node, error) {
	if slot < 0 || slot >= len(c.localModes) {
		return nil, ErrBadSlot
	}
	if defs, ok := c.defs[b]; ok {
		if v, ok := defs[slot]; ok {
			return v, nil
		}
	}
	return c.readVariableRecursive(b, slot)
}

// Finalize flips the underlying graph to its post-construction phase.
// Returns ErrOpenBlockOp if any block created through this Context is still
// open (§4.1 contract: "Fails with OpenBlockError if a pass-requiring
// operation is invoked before finalize").
func (c *Context) Finalize() error {
	if len(c.incomplete) != 0 {
		return ErrOpenBlockOp
	}
	for _, b := range c.graph.Blocks() {
		if !b.Matured() {
			return ErrOpenBlockOp
		}
	}
	c.graph.Finalize()
	return nil
}

// --- internal Braun/Cytron machinery ----------------------------------

func (c *Context) writeVariable(b *irgraph.Block, slot int, value *irgraph.Node) {
	defs, ok := c.defs[b]
	if !ok {
		defs = map[int]*irgraph.Node{}
		c.defs[b] = defs
	}
	defs[slot] = value
}

func (c *Context) readVariableRecursive(b *irgraph.Block, slot int) (*irgraph.Node, error) {
	var val *irgraph.Node
	switch {
	case !b.Matured():
		val = c.graph.NewNode(irgraph.OpPhi, c.localModes[slot], b, nil, irgraph.BaseAttrs{})
		pending, ok := c.incomplete[b]
		if !ok {
			pending = map[int]*irgraph.Node{}
			c.incomplete[b] = pending
		}
		pending[slot] = val
	case len(b.Preds()) == 1:
		predBlock := predBlockOf(b.Preds()[0])
		v, err := c.GetValue(predBlock, slot)
		if err != nil {
			return nil, err
		}
		val = v
	default:
		phi := c.graph.NewNode(irgraph.OpPhi, c.localModes[slot], b, nil, irgraph.BaseAttrs{})
		c.writeVariable(b, slot, phi) // break cycles: this phi is provisionally "the" value before its operands are known
		if err := c.fillPhiOperands(b, slot, phi); err != nil {
			return nil, err
		}
		val = c.tryRemoveTrivialPhi(phi)
	}
	c.writeVariable(b, slot, val)
	return val, nil
}

// predBlockOf returns the block that produced control edge ctrl: the block
// owning the Jmp/Proj/Cond/Start node, which is exactly the predecessor
// block a Phi operand for that edge must be read from.
func predBlockOf(ctrl *irgraph.Node) *irgraph.Block {
	return ctrl.Block
}

func (c *Context) fillPhiOperands(b *irgraph.Block, slot int, phi *irgraph.Node) error {
	for _, predCtrl := range b.Preds() {
		v, err := c.GetValue(predBlockOf(predCtrl), slot)
		if err != nil {
			return err
		}
		c.graph.AppendInput(phi, v)
	}
	return nil
}

// tryRemoveTrivialPhi collapses phi to its single distinct non-self operand
// when one exists (§4.1 "eliminating it immediately if all operands agree"),
// cascading to any phi users that may become trivial as a result. Returns
// the node callers should use in phi's place (phi itself if not trivial).
func (c *Context) tryRemoveTrivialPhi(phi *irgraph.Node) *irgraph.Node {
	var same *irgraph.Node
	for _, op := range phi.In {
		if op == phi || op == same {
			continue
		}
		if same != nil {
			return phi // two or more distinct operands: genuinely a merge point
		}
		same = op
	}
	if same == nil {
		// every operand is a self-reference: the slot is live only on an
		// unreachable path; Bad is the canonical "no value" placeholder.
		same = c.graph.NewNode(irgraph.OpBad, phi.Mode, phi.Block, nil, irgraph.BaseAttrs{})
	}

	users := collectPhiUsers(phi)
	c.graph.Exchange(phi, same)
	c.replaceInDefs(phi, same)
	phi.Discard()

	for _, u := range users {
		if u != phi {
			c.tryRemoveTrivialPhi(u)
		}
	}
	return same
}

func collectPhiUsers(phi *irgraph.Node) []*irgraph.Node {
	var out []*irgraph.Node
	for _, u := range phi.Uses() {
		if u.Op == irgraph.OpPhi {
			out = append(out, u)
		}
	}
	return out
}

func (c *Context) replaceInDefs(from, to *irgraph.Node) {
	for _, slots := range c.defs {
		for slot, v := range slots {
			if v == from {
				slots[slot] = to
			}
		}
	}
}
