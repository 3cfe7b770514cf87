package backend

// Emit asks the target to turn the fully lowered, scheduled, allocated
// graph into machine code (§4.5 step 9). A nil ISA is a Contract error: it
// means Run was called without ever registering a target.
func (fn *Function) Emit() error {
	if fn.ISA == nil {
		return ErrNoISA
	}
	code, err := fn.ISA.GenerateCode(fn.Graph)
	if err != nil {
		return err
	}
	fn.Code = code
	return nil
}
