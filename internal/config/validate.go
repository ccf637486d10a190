package config

import (
	"fmt"
	"strings"

	"github.com/roach88/depres/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrNoModels             = "E201" // at least one active model required
	ErrDuplicateModel       = "E202" // model listed twice
	ErrNoObservables        = "E203" // at least one observable required
	ErrObservableCapability = "E204" // observable needs a capability
	ErrDuplicateObservable  = "E205" // two observables share a capability
	ErrEntryCapability      = "E206" // rule entry needs a capability
	ErrDuplicateEntry       = "E207" // two rule entries share a capability
	ErrEmptyLocalCapability = "E208" // module_local_capabilities contains ""
)

// Validate checks the configuration for structural errors.
// Returns all errors found (does not fail-fast).
func (c *Config) Validate() []ir.ValidationError {
	var errs []ir.ValidationError

	// E201, E202: models
	if len(c.Models) == 0 {
		errs = append(errs, ir.ValidationError{
			Field:   "models",
			Message: "at least one active model is required",
			Code:    ErrNoModels,
		})
	}
	seenModels := make(map[string]bool)
	for i, m := range c.Models {
		if seenModels[m] {
			errs = append(errs, ir.ValidationError{
				Field:   fmt.Sprintf("models[%d]", i),
				Message: fmt.Sprintf("model %q listed more than once", m),
				Code:    ErrDuplicateModel,
			})
		}
		seenModels[m] = true
	}

	// E203-E205: observables
	if len(c.Observables) == 0 {
		errs = append(errs, ir.ValidationError{
			Field:   "observables",
			Message: "at least one observable is required",
			Code:    ErrNoObservables,
		})
	}
	seenObs := make(map[string]int)
	for i, o := range c.Observables {
		field := fmt.Sprintf("observables[%d]", i)
		if strings.TrimSpace(o.Capability) == "" || o.Capability == ir.Wildcard {
			errs = append(errs, ir.ValidationError{
				Field:   field + ".capability",
				Message: "observable must name a capability",
				Code:    ErrObservableCapability,
			})
			continue
		}
		if prev, ok := seenObs[o.Capability]; ok {
			errs = append(errs, ir.ValidationError{
				Field:   field,
				Message: fmt.Sprintf("capability %q already requested by observables[%d]", o.Capability, prev),
				Code:    ErrDuplicateObservable,
			})
			continue
		}
		seenObs[o.Capability] = i
	}

	// E206, E207: rule entries
	for i, r := range c.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		errs = append(errs, validateEntries(field+".dependencies", r.Dependencies)...)
		errs = append(errs, validateEntries(field+".backends", r.Backends)...)
	}

	// E208: options
	for i, capability := range c.Options.ModuleLocalCapabilities {
		if strings.TrimSpace(capability) == "" {
			errs = append(errs, ir.ValidationError{
				Field:   fmt.Sprintf("options.module_local_capabilities[%d]", i),
				Message: "capability must be non-empty",
				Code:    ErrEmptyLocalCapability,
			})
		}
	}

	return errs
}

func validateEntries(field string, entries []ir.Selector) []ir.ValidationError {
	var errs []ir.ValidationError
	seen := make(map[string]int)
	for i, e := range entries {
		entryField := fmt.Sprintf("%s[%d]", field, i)
		if strings.TrimSpace(e.Capability) == "" || e.Capability == ir.Wildcard {
			errs = append(errs, ir.ValidationError{
				Field:   entryField + ".capability",
				Message: "entry must name a capability",
				Code:    ErrEntryCapability,
			})
			continue
		}
		if prev, ok := seen[e.Capability]; ok {
			errs = append(errs, ir.ValidationError{
				Field:   entryField,
				Message: fmt.Sprintf("capability %q already configured by entry %d", e.Capability, prev),
				Code:    ErrDuplicateEntry,
			})
			continue
		}
		seen[e.Capability] = i
	}
	return errs
}
