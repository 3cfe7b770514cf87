package construct

import "errors"

// Sentinel errors for the construction façade (§4.1 contract).
var (
	// ErrOpenBlockOp is returned by Context.Finalize while some block in the
	// graph is still open (§4.1: "Fails with OpenBlockError if a pass-requiring
	// operation is invoked before finalize").
	ErrOpenBlockOp = errors.New("construct: operation requires all blocks matured")

	// ErrTypeMismatch is returned when an input's mode is incompatible with
	// the opcode's signature (§4.1).
	ErrTypeMismatch = errors.New("construct: mode mismatch for opcode")

	// ErrBadSlot is returned when SetValue/GetValue references a local-
	// variable slot outside [0, nLocals).
	ErrBadSlot = errors.New("construct: local variable slot out of range")

	// ErrAlreadyMatured mirrors irgraph.ErrBlockMatured at the façade layer.
	ErrAlreadyMatured = errors.New("construct: block already matured")
)
