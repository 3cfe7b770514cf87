package mode_test

import (
	"testing"

	"github.com/katalvlaran/firmkit/mode"
	"github.com/stretchr/testify/require"
)

func TestClosedSet(t *testing.T) {
	require := require.New(t)
	all := mode.All()
	require.Len(all, 17)
	seen := map[string]bool{}
	for _, m := range all {
		require.False(seen[m.String()], "duplicate mode name %q", m)
		seen[m.String()] = true
	}
}

func TestArithClassification(t *testing.T) {
	require := require.New(t)
	require.True(mode.Is32.IsInt())
	require.True(mode.Is32.Signed())
	require.False(mode.Iu32.Signed())
	require.True(mode.F64.IsFloat())
	require.False(mode.Mem.IsData())
	require.False(mode.Ctrl.IsData())
	require.True(mode.P.IsData())
}

func TestSetPointerSize(t *testing.T) {
	require := require.New(t)
	require.Error(mode.SetPointerSize(17))
	require.NoError(mode.SetPointerSize(32))
	require.EqualValues(32, mode.P.Size())
	require.NoError(mode.SetPointerSize(64))
}
