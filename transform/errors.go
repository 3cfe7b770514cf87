package transform

import "errors"

var (
	// ErrUnsupportedCallee is returned by Inline when the callee graph's
	// shape falls outside the straight-line (single-block) case this
	// package's call inlining supports.
	ErrUnsupportedCallee = errors.New("transform: inline: callee is not a straight-line single-block graph")

	// ErrNotACall is returned by Inline when the given node is not an
	// OpCall.
	ErrNotACall = errors.New("transform: inline: node is not a Call")

	// ErrUnrollPrecondition is returned by Unroll's two strategies when a
	// §4.4 validity condition fails; per §4.4 "Failure: on any
	// precondition violation, the pass returns without mutating the graph."
	ErrUnrollPrecondition = errors.New("transform: unroll: precondition failed")
)
