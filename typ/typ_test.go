package typ_test

import (
	"testing"

	"github.com/katalvlaran/firmkit/mode"
	"github.com/katalvlaran/firmkit/typ"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveInterning(t *testing.T) {
	require := require.New(t)
	a := typ.Primitive(mode.Is32)
	b := typ.Primitive(mode.Is32)
	require.Same(a, b)
	require.EqualValues(4, a.Size())
}

func TestStructLayoutAscendingAlignment(t *testing.T) {
	require := require.New(t)
	i8 := typ.Primitive(mode.Is8)
	i32 := typ.Primitive(mode.Is32)
	s := typ.Struct("frame", []*typ.Type{i8, i32}, []string{"flag", "value"})

	flag, ok := s.MemberNamed("flag")
	require.True(ok)
	require.EqualValues(0, flag.Offset)

	value, ok := s.MemberNamed("value")
	require.True(ok)
	require.EqualValues(4, value.Offset, "i32 field must be 4-byte aligned after the 1-byte field")
	require.EqualValues(8, s.Size(), "struct size must round up to the max member alignment")
}

func TestArrayAndPointer(t *testing.T) {
	require := require.New(t)
	i32 := typ.Primitive(mode.Is32)
	arr := typ.Array(i32, 4)
	require.EqualValues(16, arr.Size())

	p := typ.Pointer(i32)
	require.EqualValues(mode.P.Size()/8, p.Size())
}
