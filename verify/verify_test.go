package verify_test

import (
	"testing"

	"github.com/katalvlaran/firmkit/analysis"
	"github.com/katalvlaran/firmkit/construct"
	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/mode"
	"github.com/katalvlaran/firmkit/tarval"
	"github.com/katalvlaran/firmkit/verify"
	"github.com/stretchr/testify/require"
)

// buildDiamond mirrors analysis_test.go's fixture of the same name: Start
// branches to Then/Else, both join at Merge.
func buildDiamond(t *testing.T) (*construct.Context, *irgraph.Block) {
	t.Helper()
	ctx := construct.BeginGraph(irgraph.Entity{LinkerName: "f"}, nil, []mode.Mode{mode.Is32})
	start := ctx.StartBlock()

	ten := ctx.NewConst(start, tarval.NewInt(mode.Is32, 10))
	cond, err := ctx.NewCmp(start, ten, ten, tarval.RelEqual)
	require.NoError(t, err)
	branch, err := ctx.NewCond(start, start.Node(), cond)
	require.NoError(t, err)
	thenEdge := ctx.NewProj(start, branch, 1, mode.Ctrl)
	elseEdge := ctx.NewProj(start, branch, 0, mode.Ctrl)

	thenBlock := ctx.NewImmBlock()
	require.NoError(t, ctx.AddPred(thenBlock, thenEdge))
	require.NoError(t, ctx.MatureBlock(thenBlock))
	thenJmp := ctx.NewJmp(thenBlock, thenBlock.Node())

	elseBlock := ctx.NewImmBlock()
	require.NoError(t, ctx.AddPred(elseBlock, elseEdge))
	require.NoError(t, ctx.MatureBlock(elseBlock))
	elseJmp := ctx.NewJmp(elseBlock, elseBlock.Node())

	mergeBlock := ctx.NewImmBlock()
	require.NoError(t, ctx.AddPred(mergeBlock, thenJmp))
	require.NoError(t, ctx.AddPred(mergeBlock, elseJmp))
	require.NoError(t, ctx.MatureBlock(mergeBlock))

	return ctx, mergeBlock
}

func TestNodeChecksCleanOnWellFormedGraph(t *testing.T) {
	require := require.New(t)
	ctx, _ := buildDiamond(t)
	reg := analysis.NewRegistry()

	report, err := verify.NodeChecks(ctx.Graph(), reg)
	require.NoError(err)
	require.Empty(report)
}

func TestScheduleChecksCleanOnWellFormedGraph(t *testing.T) {
	require := require.New(t)
	ctx, _ := buildDiamond(t)

	report := verify.ScheduleChecks(ctx.Graph())
	require.Empty(report)
}

func TestScheduleChecksCatchesOutOfOrderInput(t *testing.T) {
	require := require.New(t)
	ctx := construct.BeginGraph(irgraph.Entity{LinkerName: "g"}, nil, []mode.Mode{mode.Is32})
	start := ctx.StartBlock()

	// Build two consts and a raw Add (bypassing the façade's constant-fold
	// rule, which would otherwise collapse two constant operands into a
	// single Const), then splice a third, later-created const into the
	// Add's input — corrupting the creation-order schedule the façade
	// itself would never produce.
	a := ctx.NewConst(start, tarval.NewInt(mode.Is32, 1))
	b := ctx.NewConst(start, tarval.NewInt(mode.Is32, 2))
	sum := ctx.Graph().NewNode(irgraph.OpAdd, mode.Is32, start, []*irgraph.Node{a, b}, irgraph.BaseAttrs{})
	late := ctx.NewConst(start, tarval.NewInt(mode.Is32, 3))
	ctx.Graph().ReplaceInput(sum, 1, late)

	report := verify.ScheduleChecks(ctx.Graph())
	require.NotEmpty(report)
	require.Equal("schedule", report[0].Check)
}

func TestPhiArityMismatchReported(t *testing.T) {
	require := require.New(t)
	ctx, mergeBlock := buildDiamond(t)

	badPhi := ctx.Graph().NewNode(irgraph.OpPhi, mode.Is32, mergeBlock, nil, irgraph.BaseAttrs{})
	one := ctx.NewConst(mergeBlock, tarval.NewInt(mode.Is32, 1))
	ctx.Graph().AppendInput(badPhi, one) // only one operand; mergeBlock has two preds

	reg := analysis.NewRegistry()
	report, err := verify.NodeChecks(ctx.Graph(), reg)
	require.NoError(err)
	require.NotEmpty(report)
	found := false
	for _, d := range report {
		if d.Check == "phi-arity" && d.NodeID == badPhi.ID() {
			found = true
		}
	}
	require.True(found)
}

func TestSpillSlotChecksDetectsOverlap(t *testing.T) {
	require := require.New(t)
	ranges := []verify.LiveRange{
		{NodeID: 1, FrameEntityID: 7, Start: 0, End: 10},
		{NodeID: 2, FrameEntityID: 7, Start: 5, End: 15},
	}
	report := verify.SpillSlotChecks("f", ranges)
	require.Len(report, 1)
	require.Equal("spill-slot", report[0].Check)
}

func TestSpillSlotChecksAllowsDisjointRanges(t *testing.T) {
	require := require.New(t)
	ranges := []verify.LiveRange{
		{NodeID: 1, FrameEntityID: 7, Start: 0, End: 10},
		{NodeID: 2, FrameEntityID: 7, Start: 10, End: 20},
	}
	report := verify.SpillSlotChecks("f", ranges)
	require.Empty(report)
}

func TestRegisterAllocationChecksConstraints(t *testing.T) {
	require := require.New(t)
	assignments := []verify.Assignment{
		{NodeID: 1, Register: "r0", Constraint: verify.ConstraintShouldBeSame, PairNodeID: 2},
		{NodeID: 2, Register: "r1"},
		{NodeID: 3, Register: "r0", Constraint: verify.ConstraintMustBeDifferent, PairNodeID: 4},
		{NodeID: 4, Register: "r0"},
		{NodeID: 5, Register: "r5", Constraint: verify.ConstraintLimitedToRegister, Allowed: []string{"r0", "r1"}},
	}
	report := verify.RegisterAllocationChecks("f", assignments)
	require.Len(report, 3)
}

func TestReportOK(t *testing.T) {
	require := require.New(t)
	var report verify.Report
	require.True(report.OK())
	report = append(report, verify.Diagnostic{Severity: verify.SeverityWarn})
	require.True(report.OK())
	report = append(report, verify.Diagnostic{Severity: verify.SeverityError})
	require.False(report.OK())
}
