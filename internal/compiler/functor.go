// Package compiler turns a CUE catalogue of module functions, backend
// functions and models into registry descriptors.
//
// A catalogue is a CUE package with three top-level sections:
//
//	model: CMSSM: parents: ["MSSM63atQ"]
//
//	functor: DarkBit: RD_oh2_general: {
//		capability: "RD_oh2"
//		type:       "double"
//		version:    "2.1.0"
//		dependencies: [{capability: "RD_spectrum", type: "DarkBit::RD_spectrum_type"}]
//		backend_reqs: [{capability: "dsrdomega", type: "double", tags: ["ds"]}]
//		force_matching: ["ds"]
//		models: ["MSSM63atQ"]
//	}
//
//	backend: DarkSUSY: "6.1.1": dsrdomega: {
//		capability: "dsrdomega"
//		type:       "double"
//	}
//
// Functors are keyed by module then function, backend functions by backend,
// version and function. The keys supply the identity fields the body omits.
package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/depres/internal/ir"
)

// CompileFunctor parses a CUE value into a Functor.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value should be the functor struct itself, e.g.:
//
//	v := ctx.CompileString(`functor: DarkBit: relic: { ... }`)
//	f, err := CompileFunctor(v.LookupPath(cue.ParsePath("functor.DarkBit.relic")))
func CompileFunctor(v cue.Value) (*ir.Functor, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	keys := pathKeys(v, 2)
	f := &ir.Functor{Module: keys[0], Function: keys[1]}

	var err error
	if f.Capability, err = requiredString(v, "capability"); err != nil {
		return nil, err
	}
	if f.Type, err = requiredString(v, "type"); err != nil {
		return nil, err
	}
	if f.Version, err = optionalString(v, "version"); err != nil {
		return nil, err
	}
	if f.Purpose, err = optionalString(v, "purpose"); err != nil {
		return nil, err
	}
	if f.LoopManagerCapability, err = optionalString(v, "loop_manager"); err != nil {
		return nil, err
	}
	if f.CanManageLoops, err = optionalBool(v, "can_manage_loops"); err != nil {
		return nil, err
	}
	if f.ForceMatching, err = stringList(v, "force_matching"); err != nil {
		return nil, err
	}
	if f.AllowedModels, err = stringList(v, "models"); err != nil {
		return nil, err
	}
	if f.RuntimeAverage, err = optionalNumber(v, "runtime_average"); err != nil {
		return nil, err
	}
	if f.InvalidationRate, err = optionalNumber(v, "invalidation_rate"); err != nil {
		return nil, err
	}

	f.Dependencies, err = parseDependencies(v)
	if err != nil {
		return nil, err
	}
	f.BackendReqs, err = parseBackendReqs(v)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// parseDependencies extracts the functor's dependency list.
func parseDependencies(v cue.Value) ([]ir.Quantity, error) {
	depsVal := v.LookupPath(cue.ParsePath("dependencies"))
	if !depsVal.Exists() {
		return nil, nil
	}

	iter, err := depsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var deps []ir.Quantity
	for iter.Next() {
		q, err := parseQuantity(iter.Value(), "dependencies")
		if err != nil {
			return nil, err
		}
		deps = append(deps, q)
	}
	return deps, nil
}

// parseBackendReqs extracts backend requirements with their groups, tags
// and permitted backends.
func parseBackendReqs(v cue.Value) ([]ir.BackendReq, error) {
	reqsVal := v.LookupPath(cue.ParsePath("backend_reqs"))
	if !reqsVal.Exists() {
		return nil, nil
	}

	iter, err := reqsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var reqs []ir.BackendReq
	for iter.Next() {
		reqVal := iter.Value()
		q, err := parseQuantity(reqVal, "backend_reqs")
		if err != nil {
			return nil, err
		}
		req := ir.BackendReq{Quantity: q}

		if req.Group, err = optionalString(reqVal, "group"); err != nil {
			return nil, err
		}
		if req.Tags, err = stringList(reqVal, "tags"); err != nil {
			return nil, err
		}

		permVal := reqVal.LookupPath(cue.ParsePath("permitted"))
		if permVal.Exists() {
			permIter, err := permVal.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for permIter.Next() {
				spec, err := parseBackendSpec(permIter.Value())
				if err != nil {
					return nil, err
				}
				req.Permitted = append(req.Permitted, spec)
			}
		}

		reqs = append(reqs, req)
	}
	return reqs, nil
}

// parseBackendSpec accepts either {backend, version} or a bare backend name,
// which permits every version.
func parseBackendSpec(v cue.Value) (ir.BackendSpec, error) {
	if name, err := v.String(); err == nil {
		return ir.BackendSpec{Backend: name, Version: ir.AnyVersion}, nil
	}

	backend, err := requiredString(v, "backend")
	if err != nil {
		return ir.BackendSpec{}, err
	}
	version, err := optionalString(v, "version")
	if err != nil {
		return ir.BackendSpec{}, err
	}
	if version == "" {
		version = ir.AnyVersion
	}
	return ir.BackendSpec{Backend: backend, Version: version}, nil
}

func parseQuantity(v cue.Value, field string) (ir.Quantity, error) {
	capability, err := requiredString(v, "capability")
	if err != nil {
		return ir.Quantity{}, err
	}
	typ, err := requiredString(v, "type")
	if err != nil {
		return ir.Quantity{}, &CompileError{
			Field:   field + ".type",
			Message: fmt.Sprintf("type is required for %s", capability),
			Pos:     v.Pos(),
		}
	}
	return ir.Quantity{Capability: capability, Type: typ}, nil
}

// pathKeys returns the last n selectors of v's path, unquoted.
// Missing keys are returned empty.
func pathKeys(v cue.Value, n int) []string {
	keys := make([]string, n)
	sels := v.Path().Selectors()
	for i := 0; i < n && i < len(sels); i++ {
		keys[n-1-i] = strings.Trim(sels[len(sels)-1-i].String(), `"`)
	}
	return keys
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func optionalNumber(v cue.Value, field string) (float64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, nil
	}
	n, err := fv.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}
