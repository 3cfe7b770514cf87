package backend

import "errors"

var (
	// ErrNoISA is returned by Run when called without a target.
	ErrNoISA = errors.New("backend: no ISA registered for this run")

	// ErrUnschedulable is a Contract error (§7): Schedule found a cyclic
	// in-block dependency, which construction/Select should never produce.
	ErrUnschedulable = errors.New("backend: block has no legal schedule")
)
