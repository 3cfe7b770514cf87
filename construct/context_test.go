package construct_test

import (
	"testing"

	"github.com/katalvlaran/firmkit/construct"
	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/mode"
	"github.com/katalvlaran/firmkit/tarval"
	"github.com/stretchr/testify/require"
)

func newCtx() *construct.Context {
	return construct.BeginGraph(irgraph.Entity{LinkerName: "f"}, nil, []mode.Mode{mode.Is32})
}

// Straight-line code: one write, one read in the same block, no merges.
func TestStraightLineReadAfterWrite(t *testing.T) {
	require := require.New(t)
	ctx := newCtx()
	start := ctx.StartBlock()

	c5 := ctx.NewConst(start, tarval.NewInt(mode.Is32, 5))
	require.NoError(ctx.SetValue(start, 0, c5))

	got, err := ctx.GetValue(start, 0)
	require.NoError(err)
	require.Same(c5, got)
}

// A diamond (if/else merging back) must read the same value on both arms,
// which the trivial-phi elimination must collapse back to a single node
// rather than leaving a spurious real phi.
func TestDiamondMergeTrivialPhi(t *testing.T) {
	require := require.New(t)
	ctx := newCtx()
	start := ctx.StartBlock()

	ten := ctx.NewConst(start, tarval.NewInt(mode.Is32, 10))
	require.NoError(ctx.SetValue(start, 0, ten))

	cond, err := ctx.NewCmp(start, ten, ten, tarval.RelEqual)
	require.NoError(err)
	branch, err := ctx.NewCond(start, start.Node(), cond)
	require.NoError(err)
	thenEdge := ctx.NewProj(start, branch, 1, mode.Ctrl)
	elseEdge := ctx.NewProj(start, branch, 0, mode.Ctrl)

	thenBlock := ctx.NewImmBlock()
	require.NoError(ctx.AddPred(thenBlock, thenEdge))
	require.NoError(ctx.MatureBlock(thenBlock))
	thenJmp := ctx.NewJmp(thenBlock, thenBlock.Node())

	elseBlock := ctx.NewImmBlock()
	require.NoError(ctx.AddPred(elseBlock, elseEdge))
	require.NoError(ctx.MatureBlock(elseBlock))
	elseJmp := ctx.NewJmp(elseBlock, elseBlock.Node())

	mergeBlock := ctx.NewImmBlock()
	require.NoError(ctx.AddPred(mergeBlock, thenJmp))
	require.NoError(ctx.AddPred(mergeBlock, elseJmp))
	require.NoError(ctx.MatureBlock(mergeBlock))

	got, err := ctx.GetValue(mergeBlock, 0)
	require.NoError(err)
	require.Same(ten, got, "both arms defined the same value; the merge phi must be trivially eliminated")
}

// A loop header read before its back edge exists must synthesize a real,
// non-trivial phi once the loop body writes a different value on the back edge.
func TestLoopHeaderRealPhi(t *testing.T) {
	require := require.New(t)
	ctx := newCtx()
	start := ctx.StartBlock()

	zero := ctx.NewConst(start, tarval.NewInt(mode.Is32, 0))
	require.NoError(ctx.SetValue(start, 0, zero))
	preheaderJmp := ctx.NewJmp(start, start.Node())

	header := ctx.NewImmBlock()
	require.NoError(ctx.AddPred(header, preheaderJmp))

	// Read inside the open header: synthesizes an incomplete phi placeholder.
	headerVal, err := ctx.GetValue(header, 0)
	require.NoError(err)
	require.Equal(irgraph.OpPhi, headerVal.Op)

	one := ctx.NewConst(header, tarval.NewInt(mode.Is32, 1))
	incremented, err := ctx.NewAdd(header, headerVal, one)
	require.NoError(err)
	require.NoError(ctx.SetValue(header, 0, incremented))
	backEdge := ctx.NewJmp(header, header.Node())

	require.NoError(ctx.AddPred(header, backEdge))
	require.NoError(ctx.MatureBlock(header))

	// headerVal is the phi representing the value flowing into the header;
	// the preheader and back-edge values differ, so it must survive
	// maturation instead of being trivially eliminated.
	require.Equal(irgraph.OpPhi, headerVal.Op)
	require.Equal(2, headerVal.Arity())
}

func TestSetValueTypeMismatch(t *testing.T) {
	require := require.New(t)
	ctx := newCtx()
	start := ctx.StartBlock()
	wrongMode := ctx.NewConst(start, tarval.NewInt(mode.Is64, 1))
	err := ctx.SetValue(start, 0, wrongMode)
	require.ErrorIs(err, construct.ErrTypeMismatch)
}

func TestFinalizeFailsWithOpenBlock(t *testing.T) {
	require := require.New(t)
	ctx := newCtx()
	_ = ctx.NewImmBlock() // left open
	err := ctx.Finalize()
	require.ErrorIs(err, construct.ErrOpenBlockOp)
}

func TestArithModeMismatch(t *testing.T) {
	require := require.New(t)
	ctx := newCtx()
	start := ctx.StartBlock()
	a := ctx.NewConst(start, tarval.NewInt(mode.Is32, 1))
	b := ctx.NewConst(start, tarval.NewInt(mode.Is64, 1))
	_, err := ctx.NewAdd(start, a, b)
	require.ErrorIs(err, construct.ErrTypeMismatch)
}
