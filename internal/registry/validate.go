package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/depres/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Functor errors (E101-E109)
	ErrFunctorIdentityEmpty   = "E101" // capability, type, function and module are required
	ErrDependencyIncomplete   = "E102" // dependency needs capability and type
	ErrBackendReqIncomplete   = "E103" // backend requirement needs capability and type
	ErrDuplicateBackendReq    = "E104" // same backend requirement declared twice
	ErrForceMatchUnusedTag    = "E105" // force_matching names a tag no requirement carries
	ErrUnknownAllowedModel    = "E106" // allowed model is not registered
	ErrPermittedIncomplete    = "E107" // permitted backend entry needs backend and version
	ErrSelfDependency         = "E108" // functor depends on the quantity it provides
	ErrLoopManagerSelfNesting = "E109" // functor nests under its own capability

	// Backend function errors (E110-E119)
	ErrBackendIdentityEmpty = "E110" // capability, type, function, backend and version are required
	ErrDuplicateBackendFunc = "E111" // same backend function registered twice

	// Model errors (E120-E129)
	ErrUnknownParentModel = "E120" // parent model is not registered
	ErrModelCycle         = "E121" // model is its own ancestor
)

// Validate checks the catalogue for structural errors.
// Returns all errors found (does not fail-fast).
func (r *Registry) Validate() []ir.ValidationError {
	var errs []ir.ValidationError
	for i := range r.functors {
		errs = append(errs, r.validateFunctor(&r.functors[i])...)
	}
	errs = append(errs, r.validateBackends()...)
	errs = append(errs, r.validateModels()...)
	return errs
}

func functorField(f *ir.Functor) string {
	return fmt.Sprintf("functor[%s]", f.Identity().Label())
}

func (r *Registry) validateFunctor(f *ir.Functor) []ir.ValidationError {
	var errs []ir.ValidationError
	field := functorField(f)

	// E101: identity fields are required
	var missing []string
	for name, v := range map[string]string{
		"capability": f.Capability,
		"type":       f.Type,
		"function":   f.Function,
		"module":     f.Module,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		errs = append(errs, ir.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("missing %s", strings.Join(missing, ", ")),
			Code:    ErrFunctorIdentityEmpty,
		})
	}

	// E102, E108: dependencies are concrete and not self-referential
	for i, dep := range f.Dependencies {
		depField := fmt.Sprintf("%s.dependencies[%d]", field, i)
		if dep.Capability == "" || dep.Type == "" {
			errs = append(errs, ir.ValidationError{
				Field:   depField,
				Message: "dependency must name both capability and type",
				Code:    ErrDependencyIncomplete,
			})
		}
		if dep == f.Quantity() {
			errs = append(errs, ir.ValidationError{
				Field:   depField,
				Message: fmt.Sprintf("functor cannot depend on the quantity it provides (%s)", dep),
				Code:    ErrSelfDependency,
			})
		}
	}

	// E103, E104, E107: backend requirements
	seen := make(map[ir.Quantity]bool)
	tags := make(map[string]bool)
	for i, req := range f.BackendReqs {
		reqField := fmt.Sprintf("%s.backend_reqs[%d]", field, i)
		if req.Capability == "" || req.Type == "" {
			errs = append(errs, ir.ValidationError{
				Field:   reqField,
				Message: "backend requirement must name both capability and type",
				Code:    ErrBackendReqIncomplete,
			})
		}
		if seen[req.Quantity] {
			errs = append(errs, ir.ValidationError{
				Field:   reqField,
				Message: fmt.Sprintf("backend requirement %s declared more than once", req.Quantity),
				Code:    ErrDuplicateBackendReq,
			})
		}
		seen[req.Quantity] = true
		for _, tag := range req.Tags {
			tags[tag] = true
		}
		for j, p := range req.Permitted {
			if p.Backend == "" || p.Version == "" {
				errs = append(errs, ir.ValidationError{
					Field:   fmt.Sprintf("%s.permitted[%d]", reqField, j),
					Message: `permitted entry needs backend and version (use "any" for every version)`,
					Code:    ErrPermittedIncomplete,
				})
			}
		}
	}

	// E105: forced-match tags must be carried by some requirement
	for _, tag := range f.ForceMatching {
		if !tags[tag] {
			errs = append(errs, ir.ValidationError{
				Field:   field + ".force_matching",
				Message: fmt.Sprintf("tag %q is not carried by any backend requirement", tag),
				Code:    ErrForceMatchUnusedTag,
			})
		}
	}

	// E106: allowed models must exist
	for _, m := range f.AllowedModels {
		if _, ok := r.models[m]; !ok {
			errs = append(errs, ir.ValidationError{
				Field:   field + ".models",
				Message: fmt.Sprintf("model %q is not registered", m),
				Code:    ErrUnknownAllowedModel,
			})
		}
	}

	// E109: a functor cannot run nested under its own capability
	if f.LoopManagerCapability != "" && f.LoopManagerCapability == f.Capability {
		errs = append(errs, ir.ValidationError{
			Field:   field + ".loop_manager_capability",
			Message: "functor cannot be nested under its own capability",
			Code:    ErrLoopManagerSelfNesting,
		})
	}

	return errs
}

func (r *Registry) validateBackends() []ir.ValidationError {
	var errs []ir.ValidationError
	seen := make(map[ir.Identity]bool)
	for i := range r.backends {
		b := &r.backends[i]
		field := fmt.Sprintf("backend[%d]", i)
		if b.Capability == "" || b.Type == "" || b.Function == "" || b.Backend == "" || b.Version == "" {
			errs = append(errs, ir.ValidationError{
				Field:   field,
				Message: "backend function needs capability, type, function, backend and version",
				Code:    ErrBackendIdentityEmpty,
			})
		}
		id := b.Identity()
		if seen[id] {
			errs = append(errs, ir.ValidationError{
				Field:   field,
				Message: fmt.Sprintf("backend function %s from %s registered more than once", b.Function, b.Signature()),
				Code:    ErrDuplicateBackendFunc,
			})
		}
		seen[id] = true
	}
	return errs
}

func (r *Registry) validateModels() []ir.ValidationError {
	var errs []ir.ValidationError
	for _, name := range r.order {
		m := r.models[name]
		for _, p := range m.Parents {
			if _, ok := r.models[p]; !ok {
				errs = append(errs, ir.ValidationError{
					Field:   fmt.Sprintf("model[%s].parents", name),
					Message: fmt.Sprintf("parent model %q is not registered", p),
					Code:    ErrUnknownParentModel,
				})
			}
		}
		if r.isOwnAncestor(name) {
			errs = append(errs, ir.ValidationError{
				Field:   fmt.Sprintf("model[%s]", name),
				Message: "model is its own ancestor",
				Code:    ErrModelCycle,
			})
		}
	}
	return errs
}

// isOwnAncestor walks the parent lineage breadth-first looking for name.
func (r *Registry) isOwnAncestor(name string) bool {
	visited := make(map[string]bool)
	frontier := append([]string(nil), r.models[name].Parents...)
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		if next == name {
			return true
		}
		if visited[next] {
			continue
		}
		visited[next] = true
		frontier = append(frontier, r.models[next].Parents...)
	}
	return false
}
