// Package registry holds the catalogue of functor and backend-function
// descriptors available to dependency resolution.
//
// Descriptors are stored in an arena and addressed by stable integer
// handles (FunctorID, BackendID) in registration order. The registry is
// built once, before any resolution pass, and is read-only afterwards:
// per-pass state such as activation status lives in the resolver.
package registry
