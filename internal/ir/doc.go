// Package ir provides the descriptor types shared by every stage of
// dependency resolution.
//
// This package contains type definitions, the resolution error taxonomy and
// canonical serialisation only. All other internal packages import ir; ir
// imports nothing internal. This keeps the descriptor model the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Descriptors (Functor, BackendFunc, Model) are immutable template data.
//     Per-pass state (status, bindings) lives in the resolver, never here.
//   - Matching is exact on strings; no normalisation happens at match time.
//   - Canonical JSON (NFC, sorted keys, no floats) is used only for
//     fingerprints and golden snapshots.
//   - All JSON/YAML tags use snake_case.
package ir
