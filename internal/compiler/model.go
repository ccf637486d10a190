package compiler

import (
	"cuelang.org/go/cue"

	"github.com/roach88/depres/internal/ir"
)

// CompileModel parses a CUE value at model.<name> into a Model.
// An empty struct declares a root model.
func CompileModel(v cue.Value) (*ir.Model, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &ir.Model{Name: pathKeys(v, 1)[0]}
	parents, err := stringList(v, "parents")
	if err != nil {
		return nil, err
	}
	m.Parents = parents
	return m, nil
}
