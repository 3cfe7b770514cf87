package backend

import (
	"github.com/katalvlaran/firmkit/analysis"
	"github.com/katalvlaran/firmkit/firm"
	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/verify"
)

// Constraint names one of the §4.5 Select-stage register constraints a
// node's RegAlloc assignment must later satisfy — the same vocabulary
// verify.ConstraintKind checks against.
type Constraint int

const (
	ConstraintNone Constraint = iota
	ConstraintShouldBeSame
	ConstraintMustBeDifferent
	ConstraintLimitedToRegister
)

// NodeConstraint is one node's Select-stage output: its register class plus
// whatever allocation constraint the instruction shape demands.
type NodeConstraint struct {
	Class      verify.RegisterClass
	Kind       Constraint
	PairNodeID uint64   // the related operand for ShouldBeSame/MustBeDifferent
	Allowed    []string // legal register names for LimitedToRegister
}

// StageReport pairs one pipeline stage's name with the diagnostics the
// verifier produced immediately after it ran.
type StageReport struct {
	Stage  string
	Report verify.Report
}

// Function is one procedure's in-flight back-end compilation state: the
// graph being transformed plus everything each stage hands to the next.
// Nothing here is part of irgraph.Graph itself — it is backend-private
// bookkeeping, assembled fresh for each Run.
type Function struct {
	Graph    *irgraph.Graph
	ISA      firm.ISA
	Registry *analysis.Registry
	Capacity map[verify.RegisterClass]int

	Constraints map[uint64]NodeConstraint
	Order       map[uint64][]*irgraph.Node // block ID -> legal schedule order
	Assignments map[uint64]verify.Assignment
	SpillRanges []verify.LiveRange
	frameOf     map[uint64]uint64 // spill node ID -> frame entity ID (track number; frame member slot<N>)
	Code        []byte

	Reports []StageReport
}

// New assembles a Function ready to drive through Run. capacity supplies
// the per-register-class allocatable budget RegAlloc glue allocates
// against; it has no other source in firm.ISA (§4 lists only
// Init/Finish/GetParams/GenerateCode/LowerForTarget/IsValidClobber/
// GetOpEstimatedCost — register counts are a caller/target-description
// concern, not part of the minimal ISA seam).
func New(g *irgraph.Graph, isa firm.ISA, reg *analysis.Registry, capacity map[verify.RegisterClass]int) *Function {
	return &Function{
		Graph:       g,
		ISA:         isa,
		Registry:    reg,
		Capacity:    capacity,
		Constraints: map[uint64]NodeConstraint{},
		Order:       map[uint64][]*irgraph.Node{},
		Assignments: map[uint64]verify.Assignment{},
		frameOf:     map[uint64]uint64{},
	}
}

// verifyConfig builds the verify.Config reflecting whichever stages have
// already run — a field stays nil (and its check group skipped) until the
// stage that produces its data has executed, per verify.Config's own
// nil-skips-the-group contract.
func (fn *Function) verifyConfig() verify.Config {
	cfg := verify.Config{}
	if len(fn.Order) > 0 {
		cfg.Order = fn.Order
	}
	if fn.Capacity != nil {
		cfg.Capacity = fn.Capacity
	}
	if len(fn.SpillRanges) > 0 {
		cfg.SpillRanges = fn.SpillRanges
	}
	if len(fn.Assignments) > 0 {
		assignments := make([]verify.Assignment, 0, len(fn.Assignments))
		for _, a := range fn.Assignments {
			assignments = append(assignments, a)
		}
		cfg.Assignments = assignments
	}
	return cfg
}

func (fn *Function) verifyAfter(stage string) error {
	report, err := verify.Run(fn.Graph, fn.Registry, fn.verifyConfig())
	if err != nil {
		return err
	}
	fn.Reports = append(fn.Reports, StageReport{Stage: stage, Report: report})
	return nil
}
