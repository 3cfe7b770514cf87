package irgraph

import "errors"

// Sentinel errors for irgraph's structural operations. Callers branch with
// errors.Is, matching the teacher corpus's error-handling convention.
var (
	// ErrBlockMatured indicates an attempt to append a predecessor to an
	// already-matured block (§3 "A block is either matured ... or open").
	ErrBlockMatured = errors.New("irgraph: block already matured")

	// ErrWrongBlockArity indicates a Phi's input count does not match its
	// owning block's predecessor count (§3 invariant 2).
	ErrWrongBlockArity = errors.New("irgraph: phi arity does not match block arity")

	// ErrNotTupleProducer indicates a Proj's input does not produce a tuple
	// (§3 invariant 3).
	ErrNotTupleProducer = errors.New("irgraph: proj input is not a tuple producer")

	// ErrGraphFinalized indicates a mutation was attempted on a Graph after
	// Finalize (§3 "Lifecycle": "attribute fields are mutable only until the
	// graph is handed to analyses").
	ErrGraphFinalized = errors.New("irgraph: graph already finalized")

	// ErrUnmaturedBlock indicates a pass-requiring operation ran on an open
	// block (§3 invariant 5).
	ErrUnmaturedBlock = errors.New("irgraph: block is not matured")
)
