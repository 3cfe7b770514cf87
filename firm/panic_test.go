package firm_test

import (
	"testing"

	"github.com/katalvlaran/firmkit/firm"
	"github.com/stretchr/testify/require"
)

func TestGuardRoutesPanicThroughHandler(t *testing.T) {
	require := require.New(t)
	original := firm.PanicHandler
	defer func() { firm.PanicHandler = original }()

	var caught interface{}
	firm.PanicHandler = func(recovered interface{}) { caught = recovered }

	require.NotPanics(func() {
		firm.Guard(func() { panic("contract violation: block matured twice") })
	})
	require.Equal("contract violation: block matured twice", caught)
}

func TestGuardPassesThroughOnNoPanic(t *testing.T) {
	require := require.New(t)
	original := firm.PanicHandler
	defer func() { firm.PanicHandler = original }()

	called := false
	firm.PanicHandler = func(interface{}) { called = true }

	firm.Guard(func() {})
	require.False(called)
}
