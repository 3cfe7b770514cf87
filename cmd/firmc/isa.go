package main

import (
	"fmt"
	"regexp"

	"github.com/katalvlaran/firmkit/backend"
	"github.com/katalvlaran/firmkit/firm"
	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/mode"
	"github.com/katalvlaran/firmkit/verify"
)

// genericTarget is the minimal stub ISA this driver registers under the
// name "generic": it accepts backend's own placeholder register names
// ("g0".."gN" for the general-purpose class, "f0".."fN" for floating
// point, "c0".."c3" for shift counts), does no target-specific lowering,
// and "emits" a human-readable textual trace rather than real machine code
// — no concrete target (amd64, arm, ...) ships in this module (§6).
type genericTarget struct {
	params firm.Params
}

var clobberPattern = regexp.MustCompile(`^[gfc][0-9]+$`)

func (t *genericTarget) Init(p firm.Params) error {
	t.params = p
	return nil
}

func (t *genericTarget) Finish() {}

func (t *genericTarget) GetParams() firm.Params { return t.params }

// LowerForTarget is a no-op: the generic target has no instruction set to
// lower onto, only the back end's own pseudo-ops.
func (t *genericTarget) LowerForTarget(g *irgraph.Graph) error { return nil }

// GenerateCode renders a line per node rather than real machine code — the
// generic stub's stand-in for §4.5 step 9, enough to prove the pipeline ran
// end to end over every node that survived it.
func (t *genericTarget) GenerateCode(g *irgraph.Graph) ([]byte, error) {
	var out []byte
	for _, n := range g.Nodes() {
		// A real target panics on a spill/reload mode it has no storage
		// class for; the generic stub's register classification already
		// covers every mode verify.RegisterClassOf recognizes (GP, FP), so
		// the only way to reach an unrecognized mode here is a target bug —
		// preserved as "unimplemented mode" rather than inventing behavior.
		if n.Op == backend.OpSpill || n.Op == backend.OpReload {
			if _, ok := verify.RegisterClassOf(n.Mode); !ok && n.Mode != mode.Mem {
				panic(fmt.Sprintf("generic: spill/reload: unimplemented mode %s", n.Mode))
			}
		}
		out = append(out, fmt.Appendf(nil, "%s %s\n", n.Op, n.Mode)...)
	}
	return out, nil
}

func (t *genericTarget) IsValidClobber(regName string) bool {
	return clobberPattern.MatchString(regName)
}

func (t *genericTarget) GetOpEstimatedCost(op irgraph.Opcode) int {
	switch op {
	case irgraph.OpMul, irgraph.OpDiv, irgraph.OpMod:
		return 4
	default:
		return 1
	}
}
