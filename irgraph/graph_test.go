package irgraph_test

import (
	"testing"

	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/mode"
	"github.com/stretchr/testify/require"
)

func TestNewGraphHasStartAndEnd(t *testing.T) {
	require := require.New(t)
	g := irgraph.NewGraph(irgraph.Entity{LinkerName: "f"}, nil)
	require.NotNil(g.Start)
	require.True(g.Start.Matured())
	require.Equal(irgraph.OpEnd, g.End.Op)
}

func TestBlockMaturationClosesArity(t *testing.T) {
	require := require.New(t)
	g := irgraph.NewGraph(irgraph.Entity{LinkerName: "f"}, nil)

	b := g.NewBlock()
	jmp := g.NewNode(irgraph.OpJmp, mode.Ctrl, g.Start, []*irgraph.Node{g.Start.Node()}, irgraph.BaseAttrs{})
	require.NoError(b.AddPred(jmp))
	require.Equal(1, b.Arity())

	b.SetMatured(true)
	require.True(b.Matured())
	require.Error(b.AddPred(jmp), "adding a predecessor after maturation must fail")
}

func TestExchangeReroutesUses(t *testing.T) {
	require := require.New(t)
	g := irgraph.NewGraph(irgraph.Entity{LinkerName: "f"}, nil)
	b := g.NewBlock()
	b.SetMatured(true)

	a := g.NewNode(irgraph.OpConst, mode.Is32, b, nil, irgraph.BaseAttrs{})
	c := g.NewNode(irgraph.OpConst, mode.Is32, b, nil, irgraph.BaseAttrs{})
	add := g.NewNode(irgraph.OpAdd, mode.Is32, b, []*irgraph.Node{a, c}, irgraph.BaseAttrs{})
	require.Equal(a, add.InAt(0))

	repl := g.NewNode(irgraph.OpConst, mode.Is32, b, nil, irgraph.BaseAttrs{})
	g.Exchange(a, repl)
	require.Equal(repl, add.InAt(0), "exchange must reroute add's input to the replacement")
	require.Empty(a.Uses(), "old node must have no remaining uses after exchange")
}

func TestKeepAlive(t *testing.T) {
	require := require.New(t)
	g := irgraph.NewGraph(irgraph.Entity{LinkerName: "f"}, nil)
	b := g.NewBlock()
	b.SetMatured(true)
	n := g.NewNode(irgraph.OpConst, mode.Is32, b, nil, irgraph.BaseAttrs{})
	before := len(g.End.In)
	g.AddKeepAlive(n)
	require.Len(g.End.In, before+1)
}

func TestPropertyCacheFreshness(t *testing.T) {
	require := require.New(t)
	g := irgraph.NewGraph(irgraph.Entity{LinkerName: "f"}, nil)
	_, fresh := g.Property(irgraph.PropDominance)
	require.False(fresh)

	g.SetProperty(irgraph.PropDominance, "fake-result")
	v, fresh := g.Property(irgraph.PropDominance)
	require.True(fresh)
	require.Equal("fake-result", v)

	g.Invalidate(irgraph.PropDominance)
	_, fresh = g.Property(irgraph.PropDominance)
	require.False(fresh)
}
