package firm_test

import (
	"testing"

	"github.com/katalvlaran/firmkit/firm"
	"github.com/katalvlaran/firmkit/mode"
	"github.com/katalvlaran/firmkit/tarval"
	"github.com/stretchr/testify/require"
)

func TestInitDefaults(t *testing.T) {
	require := require.New(t)
	require.NoError(firm.Init())
	p, err := firm.GetParams()
	require.NoError(err)
	require.Equal(firm.LittleEndian, p.ByteOrder())
	require.EqualValues(firm.DefaultPointerSize, p.PointerSize())
	require.EqualValues(firm.DefaultMachineSize, p.MachineSize())
	require.EqualValues(firm.DefaultStackParamAlignment, p.StackParamAlignment())
	require.True(p.ArchDivShift())
	require.EqualValues(mode.P.Size(), p.PointerSize())
}

func TestInitAppliesOptions(t *testing.T) {
	require := require.New(t)
	require.NoError(firm.Init(
		firm.WithByteOrder(firm.BigEndian),
		firm.WithPointerSize(32),
		firm.WithPIC(true),
		firm.WithUnalignedAccess(true),
		firm.WithModuloShift(true),
		firm.WithArchDivShift(false),
		firm.WithFloatToIntOverflow(tarval.ConvPanic),
		firm.WithMachineSize(32),
		firm.WithStackParamAlignment(16),
		firm.WithLongDouble(true),
		firm.WithFloatArithMode("ieee"),
	))
	p, err := firm.GetParams()
	require.NoError(err)
	require.Equal(firm.BigEndian, p.ByteOrder())
	require.EqualValues(32, p.PointerSize())
	require.True(p.PIC())
	require.True(p.UnalignedAccess())
	require.True(p.ModuloShift())
	require.False(p.ArchDivShift())
	require.Equal(tarval.ConvPanic, p.Overflow())
	require.EqualValues(32, p.MachineSize())
	require.EqualValues(16, p.StackParamAlignment())
	require.True(p.LongDouble())
	require.Equal("ieee", p.FloatArithMode())
	require.EqualValues(32, mode.P.Size())

	// restore pointer size so later tests in this package see the default
	require.NoError(firm.Init())
}

func TestWithPointerSizePanicsOnInvalidWidth(t *testing.T) {
	require := require.New(t)
	require.Panics(func() { firm.WithPointerSize(33) })
}

func TestWithStackParamAlignmentPanicsOnNonPowerOfTwo(t *testing.T) {
	require := require.New(t)
	require.Panics(func() { firm.WithStackParamAlignment(3) })
}

