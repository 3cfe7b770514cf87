package tarval_test

import (
	"testing"

	"github.com/katalvlaran/firmkit/mode"
	"github.com/katalvlaran/firmkit/tarval"
	"github.com/stretchr/testify/require"
)

func TestInterningIdentity(t *testing.T) {
	require := require.New(t)
	a := tarval.NewInt(mode.Is32, 5)
	b := tarval.NewInt(mode.Is32, 5)
	require.Same(a, b, "equal constants must intern to the same pointer")

	c := tarval.NewInt(mode.Is32, 6)
	require.NotSame(a, c)
}

func TestTruncation(t *testing.T) {
	require := require.New(t)
	v := tarval.NewInt(mode.Iu8, 257) // truncates to 1 modulo 256
	require.EqualValues(1, v.Uint64())
}

func TestArithmetic(t *testing.T) {
	require := require.New(t)
	a := tarval.NewInt(mode.Is32, 3)
	b := tarval.NewInt(mode.Is32, 4)
	require.EqualValues(7, tarval.Add(mode.Is32, a, b).Int64())
	require.EqualValues(-1, tarval.Sub(mode.Is32, a, b).Int64())
	require.EqualValues(12, tarval.Mul(mode.Is32, a, b).Int64())
	require.EqualValues(3, tarval.Mod(mode.Is32, a, b).Int64())
}

func TestShiftWrapsModuloWidth(t *testing.T) {
	require := require.New(t)
	a := tarval.NewInt(mode.Iu8, 1)
	// shifting by 8 on an 8-bit mode wraps to shift-by-0
	require.EqualValues(1, tarval.Shl(mode.Iu8, a, 8).Uint64())
}

func TestCmp(t *testing.T) {
	require := require.New(t)
	a := tarval.NewInt(mode.Is32, 2)
	b := tarval.NewInt(mode.Is32, 10)
	require.Equal(tarval.RelLess, tarval.Cmp(a, b))
	require.Equal(tarval.RelGreater, tarval.Cmp(b, a))
	require.Equal(tarval.RelEqual, tarval.Cmp(a, a))
}

func TestConvertSaturates(t *testing.T) {
	require := require.New(t)
	tarval.SetConvOverflow(tarval.ConvSaturate)
	f := tarval.NewFloat(mode.F64, 1e20)
	out := tarval.Convert(f, mode.Is32)
	require.EqualValues(1<<31-1, out.Int64())
}

func TestConvertIntToFloat(t *testing.T) {
	require := require.New(t)
	i := tarval.NewInt(mode.Is32, 5)
	f := tarval.Convert(i, mode.F64)
	require.InDelta(5.0, f.Float64(), 1e-9)
}
