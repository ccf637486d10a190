package registry

import (
	"fmt"

	"github.com/roach88/depres/internal/ir"
)

// FunctorID is a stable handle to a functor descriptor.
type FunctorID int

// BackendID is a stable handle to a backend function descriptor.
type BackendID int

// Registry is an arena of immutable descriptors.
//
// Handles are assigned in registration order and never reused, so iterating
// by handle is deterministic. The zero value is an empty registry.
type Registry struct {
	functors []ir.Functor
	backends []ir.BackendFunc
	models   map[string]ir.Model
	order    []string // model names in registration order

	byIdentity map[ir.Identity]FunctorID
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

// AddFunctor registers a functor descriptor and returns its handle.
// Registering the same (capability, type, function, module, version)
// identity twice returns an error.
func (r *Registry) AddFunctor(f ir.Functor) (FunctorID, error) {
	if r.byIdentity == nil {
		r.byIdentity = make(map[ir.Identity]FunctorID)
	}
	id := f.Identity()
	if existing, ok := r.byIdentity[id]; ok {
		return existing, fmt.Errorf("registry: duplicate functor %s (%s) [%s, %s]",
			id.Capability, id.Type, id.Function, id.Module)
	}
	f.Dependencies = append([]ir.Quantity(nil), f.Dependencies...)
	f.BackendReqs = append([]ir.BackendReq(nil), f.BackendReqs...)
	handle := FunctorID(len(r.functors))
	r.functors = append(r.functors, f)
	r.byIdentity[id] = handle
	return handle, nil
}

// MustAddFunctor is AddFunctor that panics on error. Intended for fixtures.
func (r *Registry) MustAddFunctor(f ir.Functor) FunctorID {
	id, err := r.AddFunctor(f)
	if err != nil {
		panic(err)
	}
	return id
}

// AddBackend registers a backend function descriptor and returns its handle.
func (r *Registry) AddBackend(b ir.BackendFunc) BackendID {
	handle := BackendID(len(r.backends))
	r.backends = append(r.backends, b)
	return handle
}

// AddModel registers a model and its parents. Re-registering a model
// replaces its parent list.
func (r *Registry) AddModel(m ir.Model) {
	if r.models == nil {
		r.models = make(map[string]ir.Model)
	}
	if _, ok := r.models[m.Name]; !ok {
		r.order = append(r.order, m.Name)
	}
	m.Parents = append([]string(nil), m.Parents...)
	r.models[m.Name] = m
}

// Functor returns the descriptor for a handle.
// The returned pointer must be treated as read-only.
func (r *Registry) Functor(id FunctorID) *ir.Functor {
	return &r.functors[id]
}

// Backend returns the backend descriptor for a handle.
// The returned pointer must be treated as read-only.
func (r *Registry) Backend(id BackendID) *ir.BackendFunc {
	return &r.backends[id]
}

// Model returns a registered model.
func (r *Registry) Model(name string) (ir.Model, bool) {
	m, ok := r.models[name]
	return m, ok
}

// Models returns all registered models in registration order.
func (r *Registry) Models() []ir.Model {
	out := make([]ir.Model, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.models[name])
	}
	return out
}

// Lookup finds a functor by its full identity.
func (r *Registry) Lookup(id ir.Identity) (FunctorID, bool) {
	h, ok := r.byIdentity[id]
	return h, ok
}

// FunctorCount returns the number of registered functors.
func (r *Registry) FunctorCount() int {
	return len(r.functors)
}

// BackendCount returns the number of registered backend functions.
func (r *Registry) BackendCount() int {
	return len(r.backends)
}

// FunctorIDs returns every functor handle in registration order.
func (r *Registry) FunctorIDs() []FunctorID {
	ids := make([]FunctorID, len(r.functors))
	for i := range r.functors {
		ids[i] = FunctorID(i)
	}
	return ids
}

// BackendIDs returns every backend handle in registration order.
func (r *Registry) BackendIDs() []BackendID {
	ids := make([]BackendID, len(r.backends))
	for i := range r.backends {
		ids[i] = BackendID(i)
	}
	return ids
}

// Fingerprint returns a content-addressed identity of the functor and
// backend catalogue in registration order.
func (r *Registry) Fingerprint() (string, error) {
	ids := make([]ir.Identity, 0, len(r.functors)+len(r.backends))
	for i := range r.functors {
		ids = append(ids, r.functors[i].Identity())
	}
	for i := range r.backends {
		ids = append(ids, r.backends[i].Identity())
	}
	return ir.RegistryFingerprint(ids)
}
