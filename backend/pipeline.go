package backend

import (
	"fmt"

	"github.com/katalvlaran/firmkit/analysis"
	"github.com/katalvlaran/firmkit/firm"
	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/verify"
)

// LowerForTarget hands the graph to the target for its own opcode/mode
// substitutions (§4.5 step 1) before any of the generic glue below runs.
func (fn *Function) LowerForTarget() error {
	if fn.ISA == nil {
		return ErrNoISA
	}
	return fn.ISA.LowerForTarget(fn.Graph)
}

type stage struct {
	name string
	run  func() error
}

// stages lists the nine §4.5 pipeline steps in order. Defined as a method
// value slice (rather than free functions) so each closes over fn without
// a parallel switch statement in Run.
func (fn *Function) stages() []stage {
	return []stage{
		{"lower-for-target", fn.LowerForTarget},
		{"select", fn.Select},
		{"schedule", fn.Schedule},
		{"regalloc", fn.RegAlloc},
		{"two-address-fixup", fn.TwoAddressFixup},
		{"spill-slot-coalesce", fn.SpillSlotCoalesce},
		{"prologue-epilogue", fn.PrologueEpilogue},
		{"peephole", fn.Peephole},
		{"emit", fn.Emit},
	}
}

// Run drives g through the full nine-stage pipeline against isa, verifying
// (non-aborting, diagnostic only) after every stage. A Resource or Contract
// error from a stage itself — as opposed to a Structural finding the
// verifier reports — stops the pipeline and is returned to the caller
// (§7 "Error Handling Design": only those two kinds propagate).
func Run(g *irgraph.Graph, isa firm.ISA, reg *analysis.Registry, capacity map[verify.RegisterClass]int) (*Function, error) {
	fn := New(g, isa, reg, capacity)
	for _, s := range fn.stages() {
		if err := s.run(); err != nil {
			return fn, fmt.Errorf("backend: %s: %w", s.name, err)
		}
		if err := fn.verifyAfter(s.name); err != nil {
			return fn, fmt.Errorf("backend: %s: verify: %w", s.name, err)
		}
	}
	return fn, nil
}
