package localopt_test

import (
	"testing"

	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/localopt"
	"github.com/katalvlaran/firmkit/mode"
	"github.com/katalvlaran/firmkit/tarval"
	"github.com/stretchr/testify/require"
)

func newConst(g *irgraph.Graph, b *irgraph.Block, v int64) *irgraph.Node {
	return g.NewNode(irgraph.OpConst, mode.Is32, b, nil, irgraph.ConstAttrs{Value: tarval.NewInt(mode.Is32, v)})
}

func TestConstantFolding(t *testing.T) {
	require := require.New(t)
	g := irgraph.NewGraph(irgraph.Entity{LinkerName: "f"}, nil)
	b := g.NewBlock()
	b.SetMatured(true)
	tbl := localopt.New()

	c3 := tbl.Apply(g, newConst(g, b, 3))
	c4 := tbl.Apply(g, newConst(g, b, 4))
	add := g.NewNode(irgraph.OpAdd, mode.Is32, b, []*irgraph.Node{c3, c4}, irgraph.BaseAttrs{})
	folded := tbl.Apply(g, add)

	require.Equal(irgraph.OpConst, folded.Op)
	require.EqualValues(7, folded.Attrs.(irgraph.ConstAttrs).Value.Int64())
}

func TestAlgebraicIdentityXPlusZero(t *testing.T) {
	require := require.New(t)
	g := irgraph.NewGraph(irgraph.Entity{LinkerName: "f"}, nil)
	b := g.NewBlock()
	b.SetMatured(true)
	tbl := localopt.New()

	x := tbl.Apply(g, g.NewNode(irgraph.OpAlloc, mode.P, b, nil, irgraph.BaseAttrs{}))
	zero := tbl.Apply(g, newConst(g, b, 0))
	add := g.NewNode(irgraph.OpAdd, mode.P, b, []*irgraph.Node{x, zero}, irgraph.BaseAttrs{})
	result := tbl.Apply(g, add)

	require.Same(x, result, "x+0 must simplify to x")
}

func TestValueNumberingCSE(t *testing.T) {
	require := require.New(t)
	g := irgraph.NewGraph(irgraph.Entity{LinkerName: "f"}, nil)
	b := g.NewBlock()
	b.SetMatured(true)
	tbl := localopt.New()

	x := tbl.Apply(g, g.NewNode(irgraph.OpAlloc, mode.P, b, nil, irgraph.BaseAttrs{}))
	y := tbl.Apply(g, g.NewNode(irgraph.OpAlloc, mode.P, b, nil, irgraph.BaseAttrs{}))

	add1 := tbl.Apply(g, g.NewNode(irgraph.OpAdd, mode.P, b, []*irgraph.Node{x, y}, irgraph.BaseAttrs{}))
	add2 := tbl.Apply(g, g.NewNode(irgraph.OpAdd, mode.P, b, []*irgraph.Node{x, y}, irgraph.BaseAttrs{}))

	require.Same(add1, add2, "identical Add nodes must be value-numbered to the same node")
}

func TestProjNormalizeCondConst(t *testing.T) {
	require := require.New(t)
	g := irgraph.NewGraph(irgraph.Entity{LinkerName: "f"}, nil)
	b := g.NewBlock()
	b.SetMatured(true)
	tbl := localopt.New()

	ctrl := g.Start.Node()
	trueVal := tbl.Apply(g, g.NewNode(irgraph.OpConst, mode.Ib, b, nil, irgraph.ConstAttrs{Value: tarval.NewInt(mode.Ib, 1)}))
	cond := g.NewNode(irgraph.OpCond, mode.Tuple, b, []*irgraph.Node{ctrl, trueVal}, irgraph.BaseAttrs{})

	thenProj := g.NewNode(irgraph.OpProj, mode.Ctrl, b, []*irgraph.Node{cond}, irgraph.ProjAttrs{Num: 1})
	result := tbl.Apply(g, thenProj)
	require.Equal(irgraph.OpJmp, result.Op, "Proj(Cond(Const true)).then must collapse to a Jmp")

	elseProj := g.NewNode(irgraph.OpProj, mode.Ctrl, b, []*irgraph.Node{cond}, irgraph.ProjAttrs{Num: 0})
	result2 := tbl.Apply(g, elseProj)
	require.Equal(irgraph.OpBad, result2.Op, "Proj(Cond(Const true)).else must collapse to Bad")
}

func TestIdempotence(t *testing.T) {
	require := require.New(t)
	g := irgraph.NewGraph(irgraph.Entity{LinkerName: "f"}, nil)
	b := g.NewBlock()
	b.SetMatured(true)
	tbl := localopt.New()

	x := tbl.Apply(g, g.NewNode(irgraph.OpAlloc, mode.P, b, nil, irgraph.BaseAttrs{}))
	zero := tbl.Apply(g, newConst(g, b, 0))
	add := g.NewNode(irgraph.OpAdd, mode.P, b, []*irgraph.Node{x, zero}, irgraph.BaseAttrs{})
	once := tbl.Apply(g, add)
	twice := tbl.Apply(g, once)
	require.Same(once, twice, "applying the optimizer twice must equal applying it once")
}
