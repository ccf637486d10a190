// Package models answers model-compatibility questions for one resolution
// pass: which models are active, whether a functor may run under them, which
// functors are explicitly tailored for a model, and a model's parents.
package models

import (
	"fmt"
	"slices"

	"github.com/roach88/depres/internal/ir"
	"github.com/roach88/depres/internal/registry"
)

// Hierarchy is the model-compatibility service backed by the registry's
// model lineage and a list of active models.
type Hierarchy struct {
	reg    *registry.Registry
	active []string
}

// NewHierarchy creates a service for the given active models. Every active
// model must be registered.
func NewHierarchy(reg *registry.Registry, active []string) (*Hierarchy, error) {
	for _, m := range active {
		if _, ok := reg.Model(m); !ok {
			return nil, fmt.Errorf("models: active model %q is not registered", m)
		}
	}
	return &Hierarchy{reg: reg, active: slices.Clone(active)}, nil
}

// ActiveModels returns the models being scanned, in configuration order.
func (h *Hierarchy) ActiveModels() []string {
	return slices.Clone(h.active)
}

// Parents returns the direct parents of a model.
func (h *Hierarchy) Parents(model string) []string {
	m, _ := h.reg.Model(model)
	return slices.Clone(m.Parents)
}

// Lineage returns model followed by all its ancestors, breadth-first.
func (h *Hierarchy) Lineage(model string) []string {
	seen := map[string]bool{model: true}
	out := []string{model}
	for i := 0; i < len(out); i++ {
		for _, p := range h.Parents(out[i]) {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// ExplicitlyAllowed reports whether f lists model among its allowed models.
func (h *Hierarchy) ExplicitlyAllowed(f *ir.Functor, model string) bool {
	return slices.Contains(f.AllowedModels, model)
}

// AllowedUnder reports whether f may run under model: f is unrestricted, or
// it lists model or one of model's ancestors.
func (h *Hierarchy) AllowedUnder(f *ir.Functor, model string) bool {
	if len(f.AllowedModels) == 0 {
		return true
	}
	for _, m := range h.Lineage(model) {
		if h.ExplicitlyAllowed(f, m) {
			return true
		}
	}
	return false
}

// Allowed reports whether f may run under at least one active model.
// With no active models only unrestricted functors are allowed.
func (h *Hierarchy) Allowed(f *ir.Functor) bool {
	if len(f.AllowedModels) == 0 {
		return true
	}
	for _, m := range h.active {
		if h.AllowedUnder(f, m) {
			return true
		}
	}
	return false
}

// ModelsFor returns the active models f may run under, in configuration
// order. This is the starting generation of an ancestry walk for f.
func (h *Hierarchy) ModelsFor(f *ir.Functor) []string {
	var out []string
	for _, m := range h.active {
		if h.AllowedUnder(f, m) {
			out = append(out, m)
		}
	}
	return out
}
