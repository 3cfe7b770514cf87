package analysis_test

import (
	"testing"

	"github.com/katalvlaran/firmkit/analysis"
	"github.com/katalvlaran/firmkit/construct"
	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/mode"
	"github.com/katalvlaran/firmkit/tarval"
	"github.com/stretchr/testify/require"
)

// buildDiamond constructs Start -> {Then, Else} -> Merge, mirroring the
// shape context_test.go's TestDiamondMergeTrivialPhi exercises from the
// construction side.
func buildDiamond(t *testing.T) (*construct.Context, *irgraph.Block, *irgraph.Block, *irgraph.Block, *irgraph.Block) {
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

	return ctx, start, thenBlock, elseBlock, mergeBlock
}

func TestDominanceDiamond(t *testing.T) {
	require := require.New(t)
	ctx, start, thenBlock, elseBlock, mergeBlock := buildDiamond(t)
	reg := analysis.NewRegistry()

	result, err := analysis.Ensure(ctx.Graph(), reg, analysis.DominancePass{})
	require.NoError(err)
	dom := result.(*analysis.Dominance)

	idomThen, ok := dom.IDom(ctx.Graph(), thenBlock)
	require.True(ok)
	require.Equal(start.ID(), idomThen.ID())

	idomMerge, ok := dom.IDom(ctx.Graph(), mergeBlock)
	require.True(ok)
	require.Equal(start.ID(), idomMerge.ID(), "merge's only immediate dominator is start: neither arm alone dominates it")

	require.True(dom.Dominates(start, elseBlock))
	require.False(dom.Dominates(thenBlock, elseBlock))
}

// buildSingleBlockLoop builds Start -> Header -> (back edge to Header).
func buildSingleBlockLoop(t *testing.T) (*construct.Context, *irgraph.Block) {
	t.Helper()
	ctx := construct.BeginGraph(irgraph.Entity{LinkerName: "f"}, nil, []mode.Mode{mode.Is32})
	start := ctx.StartBlock()
	zero := ctx.NewConst(start, tarval.NewInt(mode.Is32, 0))
	require.NoError(t, ctx.SetValue(start, 0, zero))
	preheaderJmp := ctx.NewJmp(start, start.Node())

	header := ctx.NewImmBlock()
	require.NoError(t, ctx.AddPred(header, preheaderJmp))

	headerVal, err := ctx.GetValue(header, 0)
	require.NoError(t, err)
	one := ctx.NewConst(header, tarval.NewInt(mode.Is32, 1))
	incremented, err := ctx.NewAdd(header, headerVal, one)
	require.NoError(t, err)
	require.NoError(t, ctx.SetValue(header, 0, incremented))
	backEdge := ctx.NewJmp(header, header.Node())
	require.NoError(t, ctx.AddPred(header, backEdge))
	require.NoError(t, ctx.MatureBlock(header))

	return ctx, header
}

func TestLoopTreeFindsHeader(t *testing.T) {
	require := require.New(t)
	ctx, header := buildSingleBlockLoop(t)
	reg := analysis.NewRegistry()

	result, err := analysis.Ensure(ctx.Graph(), reg, analysis.LoopTreePass{})
	require.NoError(err)
	lt := result.(*analysis.LoopTree)

	require.Len(lt.Roots, 1)
	require.Equal(header.ID(), lt.Roots[0].Header.ID())
	require.False(lt.Roots[0].Irreducible)
	require.Contains(lt.Innermost, header.ID())
}

func TestAliasDistinctAllocsNeverOverlap(t *testing.T) {
	require := require.New(t)
	ctx := construct.BeginGraph(irgraph.Entity{LinkerName: "f"}, nil, nil)
	start := ctx.StartBlock()
	a := ctx.NewAlloc(start)
	b := ctx.NewAlloc(start)

	var al analysis.Alias
	require.Equal(analysis.AliasNone, al.Query(a, b))
	require.Equal(analysis.AliasMust, al.Query(a, a))
}

func TestAliasSameBaseDifferentConstOffset(t *testing.T) {
	require := require.New(t)
	ctx := construct.BeginGraph(irgraph.Entity{LinkerName: "f"}, nil, nil)
	start := ctx.StartBlock()
	a := ctx.NewAlloc(start)
	four := ctx.NewConst(start, tarval.NewInt(mode.P, 4))
	offsetAddr, err := ctx.NewAdd(start, a, four)
	require.NoError(err)

	var al analysis.Alias
	require.Equal(analysis.AliasNone, al.Query(a, offsetAddr))
}
