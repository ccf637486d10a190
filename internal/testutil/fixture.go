// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/depres/internal/ir"
	"github.com/roach88/depres/internal/registry"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// RegistryBuilder assembles a registry fluently. Registration errors fail
// the test immediately.
//
//	reg := testutil.NewRegistry(t).
//		Model("CMSSM", "MSSM63").
//		Functor("DarkBit", "relic", "omega", "double", testutil.DependsOn("mwimp", "double")).
//		Build()
type RegistryBuilder struct {
	t   testing.TB
	reg *registry.Registry
}

// NewRegistry starts an empty registry.
func NewRegistry(t testing.TB) *RegistryBuilder {
	t.Helper()
	return &RegistryBuilder{t: t, reg: registry.New()}
}

// Model registers a model with its parents.
func (b *RegistryBuilder) Model(name string, parents ...string) *RegistryBuilder {
	b.reg.AddModel(ir.Model{Name: name, Parents: parents})
	return b
}

// FunctorOption adjusts a functor before registration.
type FunctorOption func(*ir.Functor)

// DependsOn adds a dependency.
func DependsOn(capability, typ string) FunctorOption {
	return func(f *ir.Functor) {
		f.Dependencies = append(f.Dependencies, ir.Quantity{Capability: capability, Type: typ})
	}
}

// NeedsBackend adds a backend requirement.
func NeedsBackend(req ir.BackendReq) FunctorOption {
	return func(f *ir.Functor) { f.BackendReqs = append(f.BackendReqs, req) }
}

// ForceMatching adds forced-match tags.
func ForceMatching(tags ...string) FunctorOption {
	return func(f *ir.Functor) { f.ForceMatching = append(f.ForceMatching, tags...) }
}

// NestedUnder makes the functor run inside a loop manager with capability.
func NestedUnder(capability string) FunctorOption {
	return func(f *ir.Functor) { f.LoopManagerCapability = capability }
}

// ManagesLoops marks the functor as a loop manager.
func ManagesLoops() FunctorOption {
	return func(f *ir.Functor) { f.CanManageLoops = true }
}

// AllowedModels restricts the functor to models.
func AllowedModels(models ...string) FunctorOption {
	return func(f *ir.Functor) { f.AllowedModels = append(f.AllowedModels, models...) }
}

// Estimates sets the runtime estimates.
func Estimates(runtime, invalidationRate float64) FunctorOption {
	return func(f *ir.Functor) {
		f.RuntimeAverage = runtime
		f.InvalidationRate = invalidationRate
	}
}

// Version overrides the default version "1.0".
func Version(v string) FunctorOption {
	return func(f *ir.Functor) { f.Version = v }
}

// Functor registers a module function.
func (b *RegistryBuilder) Functor(module, function, capability, typ string, opts ...FunctorOption) *RegistryBuilder {
	b.t.Helper()
	f := ir.Functor{
		Capability: capability,
		Type:       typ,
		Function:   function,
		Module:     module,
		Version:    "1.0",
	}
	for _, opt := range opts {
		opt(&f)
	}
	if _, err := b.reg.AddFunctor(f); err != nil {
		b.t.Fatalf("testutil: %v", err)
	}
	return b
}

// Backend registers an enabled backend function.
func (b *RegistryBuilder) Backend(backend, version, function, capability, typ string) *RegistryBuilder {
	b.reg.AddBackend(ir.BackendFunc{
		Capability: capability,
		Type:       typ,
		Function:   function,
		Backend:    backend,
		Version:    version,
	})
	return b
}

// DisabledBackend registers a backend function whose library failed to load.
func (b *RegistryBuilder) DisabledBackend(backend, version, function, capability, typ string) *RegistryBuilder {
	b.reg.AddBackend(ir.BackendFunc{
		Capability: capability,
		Type:       typ,
		Function:   function,
		Backend:    backend,
		Version:    version,
		Disabled:   true,
	})
	return b
}

// Build returns the registry.
func (b *RegistryBuilder) Build() *registry.Registry {
	return b.reg
}
