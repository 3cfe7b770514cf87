package backend

import (
	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/verify"
)

// twoAddressOps are the generic opcodes whose natural lowering on a
// two-operand target clobbers its first operand in place (§4.5 step 2,
// §8 scenario 6's IA-32 sub/neg/add rewrite is the TwoAddressFixup stage's
// job; Select's job is only to *record* the constraint the fixup later
// acts on).
var twoAddressOps = map[irgraph.Opcode]bool{
	irgraph.OpSub: true,
	irgraph.OpAnd: true,
	irgraph.OpOr:  true,
	irgraph.OpXor: true,
	irgraph.OpShl: true,
	irgraph.OpShr: true,
}

// Select walks every node, attaching the register-class and allocation
// constraint its shape demands (§4.5 step 2: "a target-specific walker
// replaces generic opcodes with target opcodes, marking scheduling-required
// nodes and attaching register-class requirements and 'should-be-same',
// 'must-be-different', and 'limited-to-register' constraints"). Opcode
// substitution itself is the target's own concern (reached through
// ISA.LowerForTarget, the stage before this one); Select here supplies the
// constraint vocabulary every target shares.
func (fn *Function) Select() error {
	for _, n := range fn.Graph.Nodes() {
		if !n.Mode.IsData() {
			continue
		}
		class, ok := verify.RegisterClassOf(n.Mode)
		if !ok {
			continue
		}
		nc := NodeConstraint{Class: class}

		switch {
		case twoAddressOps[n.Op] && n.Arity() >= 1 && n.InAt(0) != nil:
			nc.Kind = ConstraintShouldBeSame
			nc.PairNodeID = n.InAt(0).ID()

		case n.Op == irgraph.OpDiv || n.Op == irgraph.OpMod:
			if divisor := n.InAt(1); divisor != nil {
				nc.Kind = ConstraintMustBeDifferent
				nc.PairNodeID = divisor.ID()
			}
		}
		fn.Constraints[n.ID()] = nc

		if (n.Op == irgraph.OpShl || n.Op == irgraph.OpShr) && n.Arity() >= 2 {
			fn.constrainShiftAmount(n)
		}
	}
	return nil
}

// constrainShiftAmount attaches LimitedToRegister to a shift's amount
// operand: real two-operand targets (x86's "cl"-only shift count) confine
// it to a single physical register; the generic glue expresses that as an
// Allowed set filtered through the target's own IsValidClobber rather than
// hardcoding a name no target here actually owns.
func (fn *Function) constrainShiftAmount(shiftNode *irgraph.Node) {
	amount := shiftNode.InAt(1)
	if amount == nil {
		return
	}
	class, ok := verify.RegisterClassOf(amount.Mode)
	if !ok {
		return
	}
	var allowed []string
	for _, candidate := range shiftCountCandidates {
		if fn.ISA != nil && fn.ISA.IsValidClobber(candidate) {
			allowed = append(allowed, candidate)
		}
	}
	fn.Constraints[amount.ID()] = NodeConstraint{
		Class:   class,
		Kind:    ConstraintLimitedToRegister,
		Allowed: allowed,
	}
}

// shiftCountCandidates is the generic glue's guess at plausible shift-count
// register names; a target confirms or rejects each via IsValidClobber.
var shiftCountCandidates = []string{"c0", "c1", "c2", "c3"}
