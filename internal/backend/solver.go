// Package backend resolves the backend requirements of one activated functor
// against the catalogue of backend functions.
//
// Requirements come in two kinds. Orphan requirements have no group and must
// each be filled on their own. Grouped requirements are alternatives: exactly
// one member of each group is filled. Candidates are filtered by enabled
// status, the requirement's permitted-backend list, any configuration entry
// for the requirement, and forced-match tags that tie requirements to a
// common backend origin and version.
//
// Solve iterates to a fixed point. A requirement with several candidates is
// deferred while a forced-match sibling is still unfilled, because filling
// the sibling may eliminate all but one candidate. When a full round makes no
// progress, deferral is switched off and one final round either binds or
// fails every remaining requirement.
package backend

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/depres/internal/config"
	"github.com/roach88/depres/internal/ir"
	"github.com/roach88/depres/internal/matcher"
	"github.com/roach88/depres/internal/registry"
)

// Availability reports whether a backend function was successfully loaded.
type Availability interface {
	Enabled(b *ir.BackendFunc) bool
}

// StatusAvailability trusts the Disabled flag on the descriptor.
type StatusAvailability struct{}

// Enabled returns !b.Disabled.
func (StatusAvailability) Enabled(b *ir.BackendFunc) bool { return !b.Disabled }

// Binding is one filled backend requirement.
type Binding struct {
	Requirement ir.Quantity
	Group       string
	Backend     registry.BackendID
}

// Solution is the outcome of solving one functor.
type Solution struct {
	// Bindings are in the order requirements were filled.
	Bindings []Binding

	// Deferrals counts how many times a requirement or group was put off
	// to a later round.
	Deferrals int

	// Rounds is the number of fixed-point rounds run.
	Rounds int
}

// Solver resolves backend requirements.
type Solver struct {
	reg    *registry.Registry
	avail  Availability
	logger *slog.Logger
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger sets the solver's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) { s.logger = l }
}

// WithAvailability replaces the default StatusAvailability.
func WithAvailability(a Availability) Option {
	return func(s *Solver) { s.avail = a }
}

// NewSolver creates a solver over the backend functions in reg.
func NewSolver(reg *registry.Registry, opts ...Option) *Solver {
	s := &Solver{
		reg:    reg,
		avail:  StatusAvailability{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve fills every backend requirement of f. rule may be nil; when set,
// its backend entries narrow and prefer candidates.
func (s *Solver) Solve(f *ir.Functor, rule *config.Rule) (*Solution, error) {
	sol := &Solution{}
	if len(f.BackendReqs) == 0 {
		return sol, nil
	}

	st := &solveState{
		Solver:        s,
		f:             f,
		rule:          rule,
		sol:           sol,
		allowDeferral: true,
	}

	orphans := f.BackendReqsInGroup("")
	groups := f.BackendGroups()

	for len(orphans) > 0 || len(groups) > 0 {
		sol.Rounds++
		var remainingReqs []ir.BackendReq
		var remainingGroups []string

		for _, req := range orphans {
			s.logger.Debug("resolving ungrouped backend requirement",
				"functor", f.Identity().Label(),
				"requirement", req.Quantity.String())
			done, err := st.solve([]ir.BackendReq{req}, "")
			if err != nil {
				return nil, err
			}
			if !done {
				remainingReqs = append(remainingReqs, req)
				sol.Deferrals++
				s.logger.Debug("backend requirement deferred",
					"functor", f.Identity().Label(),
					"requirement", req.Quantity.String())
			}
		}

		for _, g := range groups {
			s.logger.Debug("resolving backend group",
				"functor", f.Identity().Label(),
				"group", g)
			done, err := st.solve(f.BackendReqsInGroup(g), g)
			if err != nil {
				return nil, err
			}
			if !done {
				remainingGroups = append(remainingGroups, g)
				sol.Deferrals++
				s.logger.Debug("backend group deferred",
					"functor", f.Identity().Label(),
					"group", g)
			}
		}

		// No progress this round: the next round is the last.
		if sameReqs(orphans, remainingReqs) && slices.Equal(groups, remainingGroups) {
			st.allowDeferral = false
			continue
		}
		orphans = remainingReqs
		groups = remainingGroups
	}

	return sol, nil
}

// solveState carries the per-functor bookkeeping across rounds.
type solveState struct {
	*Solver
	f             *ir.Functor
	rule          *config.Rule
	sol           *Solution
	allowDeferral bool
}

// solve attempts to fill one orphan requirement or one group. It returns
// false when the decision is deferred.
func (st *solveState) solve(reqs []ir.BackendReq, group string) (bool, error) {
	var candidates, withEntry, disabled []registry.BackendID

	for _, bid := range st.reg.BackendIDs() {
		b := st.reg.Backend(bid)
		req, ok := findReq(reqs, b.Quantity())
		if !ok {
			continue
		}
		entry, err := st.rule.BackendEntry(b.Quantity())
		if err != nil {
			return false, err
		}
		if entry != nil && !matcher.MatchesRule(b.Identity(), *entry) {
			continue
		}

		if permitted(req, b) && st.avail.Enabled(b) {
			candidates = append(candidates, bid)
			if entry != nil {
				withEntry = append(withEntry, bid)
			}
		} else {
			disabled = append(disabled, bid)
		}
	}

	// Candidates named by configuration win over the rest.
	if len(candidates) > 1 && len(withEntry) > 0 {
		for _, c := range candidates {
			if !slices.Contains(withEntry, c) {
				disabled = append(disabled, c)
			}
		}
		candidates = withEntry
	}

	var surviving []registry.BackendID
	for _, c := range candidates {
		keep, err := st.satisfiesForcedMatch(c, reqs)
		if err != nil {
			return false, err
		}
		if keep {
			surviving = append(surviving, c)
		} else {
			disabled = append(disabled, c)
		}
	}
	candidates = surviving

	switch {
	case len(candidates) == 0:
		return false, st.unsatisfiable(reqs, group, disabled)
	case len(candidates) > 1:
		if st.allowDeferral && st.deferrable(candidates, reqs) {
			return false, nil
		}
		return false, st.ambiguous(reqs, group, candidates)
	}

	chosen := candidates[0]
	b := st.reg.Backend(chosen)
	st.sol.Bindings = append(st.sol.Bindings, Binding{
		Requirement: b.Quantity(),
		Group:       group,
		Backend:     chosen,
	})
	st.logger.Debug("backend requirement resolved",
		"functor", st.f.Identity().Label(),
		"requirement", b.Quantity().String(),
		"function", b.Function,
		"backend", b.Signature())
	return true, nil
}

// satisfiesForcedMatch reports whether candidate c agrees with the backend
// already used for every forced-match sibling of the requirement it fills.
func (st *solveState) satisfiesForcedMatch(c registry.BackendID, reqs []ir.BackendReq) (bool, error) {
	b := st.reg.Backend(c)
	req, _ := findReq(reqs, b.Quantity())
	for _, tag := range req.Tags {
		othersFilled := false
		common := ""
		for _, sibling := range st.f.MustMatch(tag) {
			filled, ok := st.filledBy(sibling)
			if !ok {
				continue
			}
			othersFilled = true
			if common == "" {
				common = filled
			}
			if filled != common {
				return false, &ir.ResolutionError{
					Code: ir.ErrCodeBackendRuleViolation,
					Message: fmt.Sprintf("backend-matching rule for tag %q violated: one requirement was filled from %s, another from %s",
						tag, common, filled),
					Consumer: st.f.Identity().Label(),
					Details:  map[string]string{"tag": tag, "first": common, "second": filled},
				}
			}
		}
		if othersFilled && common != b.Signature() {
			return false, nil
		}
	}
	return true, nil
}

// deferrable reports whether some candidate fills a requirement with a
// forced-match sibling that is not filled yet.
func (st *solveState) deferrable(candidates []registry.BackendID, reqs []ir.BackendReq) bool {
	for _, c := range candidates {
		b := st.reg.Backend(c)
		req, _ := findReq(reqs, b.Quantity())
		for _, tag := range req.Tags {
			for _, sibling := range st.f.MustMatch(tag) {
				if sibling == req.Quantity {
					continue
				}
				if _, ok := st.filledBy(sibling); !ok {
					return true
				}
			}
		}
	}
	return false
}

// filledBy returns the "backend vversion" signature that filled q, if any.
func (st *solveState) filledBy(q ir.Quantity) (string, bool) {
	for _, bnd := range st.sol.Bindings {
		if bnd.Requirement == q {
			return st.reg.Backend(bnd.Backend).Signature(), true
		}
	}
	return "", false
}

func (st *solveState) unsatisfiable(reqs []ir.BackendReq, group string, disabled []registry.BackendID) error {
	msg := fmt.Sprintf("found no candidates for backend requirement %s", describe(reqs, group))
	labels := st.labels(disabled)
	if len(labels) > 0 {
		msg += "; viable candidates exist but have been disabled or are not permitted: " + strings.Join(labels, ", ")
	}
	err := ir.NewUnsatisfiableError(reqs[0].Quantity, st.f.Identity().Label(), msg)
	err.Candidates = labels
	if group != "" {
		err.Details = map[string]string{"group": group}
	}
	return err
}

func (st *solveState) ambiguous(reqs []ir.BackendReq, group string, candidates []registry.BackendID) error {
	msg := fmt.Sprintf("found too many candidates for backend requirement %s", describe(reqs, group))
	err := ir.NewAmbiguousError(reqs[0].Quantity, st.f.Identity().Label(), msg, st.labels(candidates))
	if group != "" {
		err.Details = map[string]string{"group": group}
	}
	return err
}

// labels renders "function [backend vversion]" sorted by backend, version
// and function.
func (st *solveState) labels(ids []registry.BackendID) []string {
	sorted := slices.Clone(ids)
	slices.SortStableFunc(sorted, func(a, b registry.BackendID) int {
		x, y := st.reg.Backend(a), st.reg.Backend(b)
		if c := strings.Compare(x.Backend, y.Backend); c != 0 {
			return c
		}
		if c := ir.CompareVersions(x.Version, y.Version); c != 0 {
			return c
		}
		return strings.Compare(x.Function, y.Function)
	})
	out := make([]string, 0, len(sorted))
	for _, id := range sorted {
		b := st.reg.Backend(id)
		out = append(out, fmt.Sprintf("%s [%s]", b.Function, b.Signature()))
	}
	return out
}

func describe(reqs []ir.BackendReq, group string) string {
	if group == "" {
		return reqs[0].Quantity.String()
	}
	return "group " + group
}

// permitted reports whether req may be filled from b: any backend when the
// list is empty, otherwise a listed backend at "any" or the exact version.
func permitted(req ir.BackendReq, b *ir.BackendFunc) bool {
	if len(req.Permitted) == 0 {
		return true
	}
	for _, p := range req.Permitted {
		if p.Backend == b.Backend && (p.Version == ir.AnyVersion || p.Version == b.Version) {
			return true
		}
	}
	return false
}

func findReq(reqs []ir.BackendReq, q ir.Quantity) (ir.BackendReq, bool) {
	for _, r := range reqs {
		if r.Quantity == q {
			return r, true
		}
	}
	return ir.BackendReq{}, false
}

func sameReqs(a, b []ir.BackendReq) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Quantity != b[i].Quantity {
			return false
		}
	}
	return true
}
