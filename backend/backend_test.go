package backend_test

import (
	"regexp"
	"testing"

	"github.com/katalvlaran/firmkit/analysis"
	"github.com/katalvlaran/firmkit/backend"
	"github.com/katalvlaran/firmkit/construct"
	"github.com/katalvlaran/firmkit/firm"
	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/mode"
	"github.com/katalvlaran/firmkit/verify"
	"github.com/stretchr/testify/require"
)

// genericStubISA satisfies firm.ISA without any real target-specific
// lowering — it accepts the generic glue's own "g0".."gN"/"f0".."fN"/
// "c0".."c3" candidate names and costs every op the same, mirroring
// firm/isa_test.go's stubISA but permissive enough to exercise backend's
// full candidate set rather than a single fixed register name.
type genericStubISA struct {
	params firm.Params
}

var clobberPattern = regexp.MustCompile(`^[gfc][0-9]+$`)

func (s *genericStubISA) Init(p firm.Params) error              { s.params = p; return nil }
func (s *genericStubISA) Finish()                               {}
func (s *genericStubISA) GetParams() firm.Params                { return s.params }
func (s *genericStubISA) LowerForTarget(g *irgraph.Graph) error  { return nil }
func (s *genericStubISA) GenerateCode(g *irgraph.Graph) ([]byte, error) {
	return []byte("generic-stub-code"), nil
}
func (s *genericStubISA) IsValidClobber(regName string) bool {
	return clobberPattern.MatchString(regName)
}
func (s *genericStubISA) GetOpEstimatedCost(op irgraph.Opcode) int {
	if op == irgraph.OpMul || op == irgraph.OpDiv {
		return 3
	}
	return 1
}

// buildArithFunction builds a single-block procedure exercising Select's
// two-address (Sub) and must-be-different (Div) constraints: it computes
// (a-b) / b over two arguments and returns the result.
func buildArithFunction(t *testing.T) *construct.Context {
	t.Helper()
	ctx := construct.BeginGraph(irgraph.Entity{LinkerName: "arith"}, nil, []mode.Mode{mode.Is32})
	start := ctx.StartBlock()

	// Arguments rather than constants: constant operands would be folded by
	// the local optimizer and leave no Sub or Div node behind.
	a := ctx.NewProj(start, start.Node(), 1, mode.Is32)
	b := ctx.NewProj(start, start.Node(), 2, mode.Is32)

	sub, err := ctx.NewSub(start, a, b)
	require.NoError(t, err)
	div, err := ctx.NewDiv(start, sub, b)
	require.NoError(t, err)

	mem := ctx.NewProj(start, start.Node(), 0, mode.Mem)
	_, err = ctx.NewReturn(start, start.Node(), mem, div)
	require.NoError(t, err)

	require.NoError(t, ctx.Finalize())
	return ctx
}

// buildPressureFunction builds a single block with enough simultaneously
// live additions to force RegAlloc's eviction/spill path under a
// deliberately tight register budget.
func buildPressureFunction(t *testing.T) *construct.Context {
	t.Helper()
	ctx := construct.BeginGraph(irgraph.Entity{LinkerName: "pressure"}, nil, []mode.Mode{mode.Is32})
	start := ctx.StartBlock()

	// Six arguments: constant operands would fold the additions away.
	vals := make([]*irgraph.Node, 6)
	for i := range vals {
		vals[i] = ctx.NewProj(start, start.Node(), i+1, mode.Is32)
	}

	s1, err := ctx.NewAdd(start, vals[0], vals[1])
	require.NoError(t, err)
	s2, err := ctx.NewAdd(start, vals[2], vals[3])
	require.NoError(t, err)
	s3, err := ctx.NewAdd(start, vals[4], vals[5])
	require.NoError(t, err)
	s4, err := ctx.NewAdd(start, s1, s2)
	require.NoError(t, err)
	s5, err := ctx.NewAdd(start, s4, s3)
	require.NoError(t, err)

	mem := ctx.NewProj(start, start.Node(), 0, mode.Mem)
	_, err = ctx.NewReturn(start, start.Node(), mem, s5)
	require.NoError(t, err)

	require.NoError(t, ctx.Finalize())
	return ctx
}

func TestRunProducesCodeWithAmpleCapacity(t *testing.T) {
	require := require.New(t)
	ctx := buildArithFunction(t)
	reg := analysis.NewRegistry()
	capacity := map[verify.RegisterClass]int{verify.ClassGP: 8, verify.ClassFP: 8}

	fn, err := backend.Run(ctx.Graph(), &genericStubISA{}, reg, capacity)
	require.NoError(err)
	require.Equal([]byte("generic-stub-code"), fn.Code)
	require.Len(fn.Reports, 9)

	for _, sr := range fn.Reports {
		require.Emptyf(sr.Report, "stage %s produced diagnostics: %v", sr.Stage, sr.Report)
	}
}

func TestRunAttachesTwoAddressAndMustBeDifferentConstraints(t *testing.T) {
	require := require.New(t)
	ctx := buildArithFunction(t)
	reg := analysis.NewRegistry()
	capacity := map[verify.RegisterClass]int{verify.ClassGP: 8}

	fn, err := backend.Run(ctx.Graph(), &genericStubISA{}, reg, capacity)
	require.NoError(err)

	var subNode, divNode *irgraph.Node
	for _, n := range fn.Graph.Nodes() {
		switch n.Op {
		case irgraph.OpSub:
			subNode = n
		case irgraph.OpDiv:
			divNode = n
		}
	}
	require.NotNil(subNode)
	require.NotNil(divNode)

	require.Equal(backend.ConstraintShouldBeSame, fn.Constraints[subNode.ID()].Kind)
	require.Equal(backend.ConstraintMustBeDifferent, fn.Constraints[divNode.ID()].Kind)
}

func TestRunUnderTightCapacitySpillsAndBuildsFrame(t *testing.T) {
	require := require.New(t)
	ctx := buildPressureFunction(t)
	reg := analysis.NewRegistry()
	capacity := map[verify.RegisterClass]int{verify.ClassGP: 1}

	fn, err := backend.Run(ctx.Graph(), &genericStubISA{}, reg, capacity)
	require.NoError(err)
	require.NotEmpty(fn.SpillRanges)
	require.NotNil(fn.Graph.FrameType)
	require.Greater(fn.Graph.FrameType.Size(), uint32(0))

	var sawIncSP bool
	for _, n := range fn.Graph.Nodes() {
		if n.Op == backend.OpIncSP {
			sawIncSP = true
		}
	}
	require.True(sawIncSP)
}

func TestRunWithoutISAFailsAtLowerForTarget(t *testing.T) {
	require := require.New(t)
	ctx := buildArithFunction(t)
	reg := analysis.NewRegistry()

	_, err := backend.Run(ctx.Graph(), nil, reg, nil)
	require.ErrorIs(err, backend.ErrNoISA)
}
