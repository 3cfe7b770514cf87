package verify

import (
	"github.com/katalvlaran/firmkit/analysis"
	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/mode"
)

// RegisterClass groups values by the kind of register their mode needs —
// pointers are grouped with general-purpose integers, matching the usual
// calling-convention treatment of addresses.
type RegisterClass string

const (
	ClassGP RegisterClass = "gp"
	ClassFP RegisterClass = "fp"
)

// RegisterClassOf maps a value mode to the register class that holds it,
// or false for modes that never occupy a register (Memory/Control/Tuple).
// Exported so backend's Select stage can attach the same classification to
// a node's RegAlloc constraint without duplicating the mode.Arith switch.
func RegisterClassOf(m mode.Mode) (RegisterClass, bool) {
	switch m.Arith() {
	case mode.ArithInt, mode.ArithReference:
		return ClassGP, true
	case mode.ArithFloat:
		return ClassFP, true
	default:
		return "", false
	}
}

// LivenessChecks enforces §8's "Liveness: for each register class, max
// live-set size across all program points ≤ allocatable count of that
// class", approximated at block granularity: analysis.Liveness computes
// per-block LiveOut sets rather than per-instruction ones, so this check's
// program point is "block exit" — the worst case inside any block is no
// larger than its LiveOut set, since nothing can die and be reborn within
// a single straight-line block under SSA.
func LivenessChecks(g *irgraph.Graph, reg *analysis.Registry, capacity map[RegisterClass]int) (Report, error) {
	entity := g.Entity.LinkerName

	livenessVal, err := analysis.Ensure(g, reg, analysis.LivenessPass{})
	if err != nil {
		return nil, err
	}
	lv := livenessVal.(*analysis.Liveness)

	var report Report
	for _, b := range g.Blocks() {
		counts := map[RegisterClass]int{}
		for _, v := range lv.LiveOut[b.ID()] {
			class, ok := RegisterClassOf(v.Mode)
			if !ok {
				continue
			}
			counts[class]++
		}
		for class, count := range counts {
			allowed, ok := capacity[class]
			if !ok || count <= allowed {
				continue
			}
			report = append(report, diag(entity, SeverityError, "liveness",
				"live-out set for class %s has %d values, exceeds allocatable count %d",
				0, b.ID(), class, count, allowed))
		}
	}
	return report, nil
}
