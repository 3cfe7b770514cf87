package firm

import "errors"

var (
	// ErrNotInitialized is returned by GetParams before Init has run.
	ErrNotInitialized = errors.New("firm: not initialized")

	// ErrEmptyTargetName is returned by RegisterTarget for an empty name.
	ErrEmptyTargetName = errors.New("firm: RegisterTarget: empty target name")

	// ErrTargetAlreadyRegistered is returned by RegisterTarget for a name
	// already claimed by another ISA.
	ErrTargetAlreadyRegistered = errors.New("firm: RegisterTarget: target already registered")

	// ErrUnknownTarget is returned by LookupTarget for an unregistered name.
	ErrUnknownTarget = errors.New("firm: unknown target")

	// ErrUnknownOption is returned by Options.Set/Get for an undeclared path.
	ErrUnknownOption = errors.New("firm: unknown option path")

	// ErrInvalidOptionValue is returned by Options.Set when value does not
	// parse as the leaf's declared kind.
	ErrInvalidOptionValue = errors.New("firm: invalid option value")
)
