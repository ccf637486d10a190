// Package matcher decides whether a descriptor satisfies a capability
// request, optionally narrowed by an explicit configuration rule.
//
// Matching is literal: a rule field matches when it is empty, equal to "*",
// or exactly equal to the descriptor's field. There is no case folding,
// normalization, glob or regular-expression support.
package matcher

import "github.com/roach88/depres/internal/ir"

// StringComp reports whether a rule field accepts value.
func StringComp(pattern, value string) bool {
	return pattern == value || pattern == "" || pattern == ir.Wildcard
}

// Matches reports whether the descriptor identity satisfies req.
//
// Capability must be equal; an empty requested type accepts any type.
// When rule is non-nil every rule field must also accept the corresponding
// descriptor field.
func Matches(id ir.Identity, req ir.Quantity, rule *ir.Selector) bool {
	if id.Capability != req.Capability {
		return false
	}
	if req.Type != "" && id.Type != req.Type {
		return false
	}
	if rule == nil {
		return true
	}
	return MatchesRule(id, *rule)
}

// MatchesRule reports whether every field of rule accepts the identity.
func MatchesRule(id ir.Identity, rule ir.Selector) bool {
	return StringComp(rule.Capability, id.Capability) &&
		StringComp(rule.Type, id.Type) &&
		StringComp(rule.Function, id.Function) &&
		StringComp(rule.Module, id.Module) &&
		StringComp(rule.Version, id.Version)
}

// QuantityMatchesEntry reports whether a configuration entry is keyed to the
// requested quantity. Entries inside a rule are keyed by capability only, so
// capabilities must be unique within one list.
func QuantityMatchesEntry(q ir.Quantity, entry ir.Selector) bool {
	return StringComp(entry.Capability, q.Capability)
}
