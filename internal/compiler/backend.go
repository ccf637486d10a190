package compiler

import (
	"cuelang.org/go/cue"

	"github.com/roach88/depres/internal/ir"
)

// CompileBackend parses a CUE value into a BackendFunc. The value sits at
// backend.<backend>.<version>.<function>.
func CompileBackend(v cue.Value) (*ir.BackendFunc, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	keys := pathKeys(v, 3)
	b := &ir.BackendFunc{Backend: keys[0], Version: keys[1], Function: keys[2]}

	var err error
	if b.Capability, err = requiredString(v, "capability"); err != nil {
		return nil, err
	}
	if b.Type, err = requiredString(v, "type"); err != nil {
		return nil, err
	}
	if b.Disabled, err = optionalBool(v, "disabled"); err != nil {
		return nil, err
	}
	return b, nil
}
