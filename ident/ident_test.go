package ident_test

import (
	"testing"

	"github.com/katalvlaran/firmkit/ident"
	"github.com/stretchr/testify/require"
)

func TestInterning(t *testing.T) {
	require := require.New(t)
	a := ident.New("foo")
	b := ident.New("foo")
	require.Equal(a, b)
	c := ident.New("bar")
	require.NotEqual(a, c)
	require.Equal("foo", a.String())
}
