package firm_test

import (
	"testing"

	"github.com/katalvlaran/firmkit/firm"
	"github.com/stretchr/testify/require"
)

func TestOptionsSetAndGet(t *testing.T) {
	require := require.New(t)
	opts := firm.NewOptions()
	opts.Declare("cg.optimize.cse", firm.KindBool)
	opts.Declare("cg.unroll.factor", firm.KindInt)
	opts.Declare("cg.isa.name", firm.KindEnum, "generic", "amd64")

	_, ok := opts.Get("cg.optimize.cse")
	require.False(ok, "undeclared-but-never-set leaf reports not-present")

	require.NoError(opts.Set("cg.optimize.cse", "true"))
	v, ok := opts.Get("cg.optimize.cse")
	require.True(ok)
	require.Equal("true", v)

	require.NoError(opts.Set("cg.unroll.factor", "8"))
	require.NoError(opts.Set("cg.isa.name", "amd64"))

	require.Equal([]string{"cg.isa.name", "cg.optimize.cse", "cg.unroll.factor"}, opts.Keys())
}

func TestOptionsSetRejectsBadValues(t *testing.T) {
	require := require.New(t)
	opts := firm.NewOptions()
	opts.Declare("cg.optimize.cse", firm.KindBool)
	opts.Declare("cg.unroll.factor", firm.KindInt)
	opts.Declare("cg.isa.name", firm.KindEnum, "generic", "amd64")

	require.ErrorIs(opts.Set("cg.optimize.cse", "yes"), firm.ErrInvalidOptionValue)
	require.ErrorIs(opts.Set("cg.unroll.factor", "eight"), firm.ErrInvalidOptionValue)
	require.ErrorIs(opts.Set("cg.isa.name", "arm"), firm.ErrInvalidOptionValue)
	require.ErrorIs(opts.Set("cg.does.not.exist", "x"), firm.ErrUnknownOption)
}

func TestOptionsDeclareEnumRequiresValues(t *testing.T) {
	require := require.New(t)
	opts := firm.NewOptions()
	require.Panics(func() { opts.Declare("cg.isa.name", firm.KindEnum) })
}

func TestOptionsYAMLRoundTrip(t *testing.T) {
	require := require.New(t)
	opts := firm.NewOptions()
	opts.Declare("cg.optimize.cse", firm.KindBool)
	opts.Declare("cg.unroll.factor", firm.KindInt)
	require.NoError(opts.Set("cg.optimize.cse", "true"))
	require.NoError(opts.Set("cg.unroll.factor", "4"))

	data, err := opts.DumpYAML()
	require.NoError(err)

	loaded := firm.NewOptions()
	loaded.Declare("cg.optimize.cse", firm.KindBool)
	loaded.Declare("cg.unroll.factor", firm.KindInt)
	require.NoError(loaded.LoadYAML(data))

	v, ok := loaded.Get("cg.optimize.cse")
	require.True(ok)
	require.Equal("true", v)
	v, ok = loaded.Get("cg.unroll.factor")
	require.True(ok)
	require.Equal("4", v)
}

func TestOptionsLoadYAMLRejectsUndeclaredPath(t *testing.T) {
	require := require.New(t)
	opts := firm.NewOptions()
	require.ErrorIs(opts.LoadYAML([]byte("cg.missing: \"true\"\n")), firm.ErrUnknownOption)
}

func TestOptionsKind(t *testing.T) {
	require := require.New(t)
	opts := firm.NewOptions()
	opts.Declare("cg.unroll.factor", firm.KindInt)
	k, ok := opts.Kind("cg.unroll.factor")
	require.True(ok)
	require.Equal(firm.KindInt, k)

	_, ok = opts.Kind("missing")
	require.False(ok)
}
