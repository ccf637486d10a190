package config

import (
	"fmt"
	"strings"

	"github.com/roach88/depres/internal/ir"
	"github.com/roach88/depres/internal/matcher"
)

// ObservableFor finds the observable entry keyed to a terminal request.
// Entries are keyed by capability; more than one match fails with
// DUPLICATE_RULE.
func (c *Config) ObservableFor(q ir.Quantity) (*Observable, error) {
	var found []*Observable
	for i := range c.Observables {
		if matcher.QuantityMatchesEntry(q, c.Observables[i].Selector) {
			found = append(found, &c.Observables[i])
		}
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	}
	return nil, duplicateError("observable", q.String(), len(found))
}

// RuleFor finds the rule whose selector matches a functor. More than one
// match fails with DUPLICATE_RULE.
func (c *Config) RuleFor(id ir.Identity) (*Rule, error) {
	var found []*Rule
	for i := range c.Rules {
		if matcher.MatchesRule(id, c.Rules[i].Selector) {
			found = append(found, &c.Rules[i])
		}
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	}
	return nil, duplicateError("rule", fmt.Sprintf("%s (%s) [%s, %s]",
		id.Capability, id.Type, id.Function, id.Module), len(found))
}

// DependencyEntry finds the dependency entry of r keyed to q.
// A nil rule has no entries.
func (r *Rule) DependencyEntry(q ir.Quantity) (*ir.Selector, error) {
	if r == nil {
		return nil, nil
	}
	return findEntry(r.Dependencies, q, "dependency")
}

// BackendEntry finds the backend entry of r keyed to q.
// A nil rule has no entries.
func (r *Rule) BackendEntry(q ir.Quantity) (*ir.Selector, error) {
	if r == nil {
		return nil, nil
	}
	return findEntry(r.Backends, q, "backend")
}

func findEntry(entries []ir.Selector, q ir.Quantity, kind string) (*ir.Selector, error) {
	var found []*ir.Selector
	for i := range entries {
		if matcher.QuantityMatchesEntry(q, entries[i]) {
			found = append(found, &entries[i])
		}
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	}
	return nil, duplicateError(kind, q.String(), len(found))
}

func duplicateError(kind, subject string, n int) *ir.ResolutionError {
	return &ir.ResolutionError{
		Code:    ir.ErrCodeDuplicateRule,
		Message: fmt.Sprintf("found %d %s entries for %s", n, kind, subject),
		Details: map[string]string{"kind": kind, "subject": strings.TrimSpace(subject)},
	}
}
