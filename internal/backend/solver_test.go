package backend

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/depres/internal/config"
	"github.com/roach88/depres/internal/ir"
	"github.com/roach88/depres/internal/registry"
)

func quietSolver(reg *registry.Registry, opts ...Option) *Solver {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewSolver(reg, opts...)
}

func backendFunc(capability, function, backend, version string) ir.BackendFunc {
	return ir.BackendFunc{
		Capability: capability,
		Type:       "double",
		Function:   function,
		Backend:    backend,
		Version:    version,
	}
}

func req(capability, group string, tags ...string) ir.BackendReq {
	return ir.BackendReq{
		Quantity: ir.Quantity{Capability: capability, Type: "double"},
		Group:    group,
		Tags:     tags,
	}
}

func consumer(reqs ...ir.BackendReq) *ir.Functor {
	return &ir.Functor{
		Capability:  "xsec",
		Type:        "double",
		Function:    "calc_xsec",
		Module:      "ColliderBit",
		BackendReqs: reqs,
	}
}

// boundTo maps each filled requirement capability to "function [backend vversion]".
func boundTo(reg *registry.Registry, sol *Solution) map[string]string {
	out := make(map[string]string)
	for _, b := range sol.Bindings {
		f := reg.Backend(b.Backend)
		out[b.Requirement.Capability] = f.Function + " [" + f.Signature() + "]"
	}
	return out
}

func TestSolveNoRequirements(t *testing.T) {
	sol, err := quietSolver(registry.New()).Solve(consumer(), nil)
	require.NoError(t, err)
	assert.Empty(t, sol.Bindings)
	assert.Zero(t, sol.Rounds)
}

func TestSolveOrphanRequirement(t *testing.T) {
	reg := registry.New()
	reg.AddBackend(backendFunc("run", "run_", "Pythia", "8.2"))
	reg.AddBackend(backendFunc("other", "other_", "Pythia", "8.2"))

	sol, err := quietSolver(reg).Solve(consumer(req("run", "")), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"run": "run_ [Pythia v8.2]"}, boundTo(reg, sol))
	assert.Equal(t, 1, sol.Rounds)
}

// One of two group candidates is disabled externally.
func TestSolveGroupSkipsDisabledCandidate(t *testing.T) {
	reg := registry.New()
	disabled := backendFunc("engine_a", "a_", "LibA", "1.0")
	disabled.Disabled = true
	reg.AddBackend(disabled)
	reg.AddBackend(backendFunc("engine_b", "b_", "LibB", "1.0"))

	f := consumer(req("engine_a", "engine"), req("engine_b", "engine"))
	sol, err := quietSolver(reg).Solve(f, nil)
	require.NoError(t, err)
	require.Len(t, sol.Bindings, 1)
	assert.Equal(t, "engine", sol.Bindings[0].Group)
	assert.Equal(t, map[string]string{"engine_b": "b_ [LibB v1.0]"}, boundTo(reg, sol))
}

func TestSolveGroupWithTwoEnabledCandidatesIsAmbiguous(t *testing.T) {
	reg := registry.New()
	reg.AddBackend(backendFunc("engine_a", "a_", "LibA", "1.0"))
	reg.AddBackend(backendFunc("engine_b", "b_", "LibB", "1.0"))

	f := consumer(req("engine_a", "engine"), req("engine_b", "engine"))
	_, err := quietSolver(reg).Solve(f, nil)
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeAmbiguous))
	assert.Contains(t, err.Error(), "group engine")

	var re *ir.ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, []string{"a_ [LibA v1.0]", "b_ [LibB v1.0]"}, re.Candidates)
}

func TestSolveCustomAvailability(t *testing.T) {
	reg := registry.New()
	reg.AddBackend(backendFunc("run", "run_", "Pythia", "8.2"))

	_, err := quietSolver(reg, WithAvailability(noneAvailable{})).Solve(consumer(req("run", "")), nil)
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeUnsatisfiable))
	assert.Contains(t, err.Error(), "disabled or are not permitted: run_ [Pythia v8.2]")
}

type noneAvailable struct{}

func (noneAvailable) Enabled(*ir.BackendFunc) bool { return false }

func TestSolveUnsatisfiable(t *testing.T) {
	_, err := quietSolver(registry.New()).Solve(consumer(req("run", "")), nil)
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeUnsatisfiable))

	var re *ir.ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "ColliderBit.calc_xsec", re.Consumer)
	assert.Empty(t, re.Candidates)
}

func TestSolvePermittedList(t *testing.T) {
	reg := registry.New()
	reg.AddBackend(backendFunc("run", "run_", "Pythia", "8.1"))
	reg.AddBackend(backendFunc("run", "run_", "Pythia", "8.2"))
	reg.AddBackend(backendFunc("run", "run_", "Herwig", "7.0"))

	tests := []struct {
		name      string
		permitted []ir.BackendSpec
		want      string
		code      ir.ErrorCode
	}{
		{"exact version", []ir.BackendSpec{{Backend: "Pythia", Version: "8.2"}}, "run_ [Pythia v8.2]", ""},
		{"any version of backend", []ir.BackendSpec{{Backend: "Herwig", Version: ir.AnyVersion}}, "run_ [Herwig v7.0]", ""},
		{"any version is ambiguous", []ir.BackendSpec{{Backend: "Pythia", Version: ir.AnyVersion}}, "", ir.ErrCodeAmbiguous},
		{"unknown backend", []ir.BackendSpec{{Backend: "Sherpa", Version: ir.AnyVersion}}, "", ir.ErrCodeUnsatisfiable},
		{"empty list permits everything", nil, "", ir.ErrCodeAmbiguous},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := req("run", "")
			r.Permitted = tt.permitted
			sol, err := quietSolver(reg).Solve(consumer(r), nil)
			if tt.code != "" {
				require.Error(t, err)
				assert.Equal(t, tt.code, ir.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, boundTo(reg, sol)["run"])
		})
	}
}

func TestSolveAmbiguousCandidatesSortedByVersion(t *testing.T) {
	reg := registry.New()
	reg.AddBackend(backendFunc("run", "run_", "Pythia", "8.10"))
	reg.AddBackend(backendFunc("run", "run_", "Pythia", "8.2"))

	_, err := quietSolver(reg).Solve(consumer(req("run", "")), nil)
	var re *ir.ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, []string{"run_ [Pythia v8.2]", "run_ [Pythia v8.10]"}, re.Candidates)
}

func TestSolveConfigEntryNarrowsAndIsPreferred(t *testing.T) {
	reg := registry.New()
	reg.AddBackend(backendFunc("run", "run_", "Pythia", "8.2"))
	reg.AddBackend(backendFunc("run", "run_", "Herwig", "7.0"))
	reg.AddBackend(backendFunc("init", "init_", "Pythia", "8.2"))

	rule := &config.Rule{Backends: []ir.Selector{{Capability: "run", Module: "Herwig"}}}
	sol, err := quietSolver(reg).Solve(consumer(req("run", ""), req("init", "")), rule)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"run":  "run_ [Herwig v7.0]",
		"init": "init_ [Pythia v8.2]",
	}, boundTo(reg, sol))
}

func TestSolveConfigEntryPreferredInGroup(t *testing.T) {
	reg := registry.New()
	reg.AddBackend(backendFunc("engine_a", "a_", "LibA", "1.0"))
	reg.AddBackend(backendFunc("engine_b", "b_", "LibB", "1.0"))

	rule := &config.Rule{Backends: []ir.Selector{{Capability: "engine_b"}}}
	f := consumer(req("engine_a", "engine"), req("engine_b", "engine"))
	sol, err := quietSolver(reg).Solve(f, rule)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"engine_b": "b_ [LibB v1.0]"}, boundTo(reg, sol))
}

func TestSolveDuplicateConfigEntry(t *testing.T) {
	reg := registry.New()
	reg.AddBackend(backendFunc("run", "run_", "Pythia", "8.2"))

	rule := &config.Rule{Backends: []ir.Selector{{Capability: "run"}, {Capability: "*"}}}
	_, err := quietSolver(reg).Solve(consumer(req("run", "")), rule)
	assert.True(t, ir.IsCode(err, ir.ErrCodeDuplicateRule))
}

func TestSolveForcedMatchDefersUntilSiblingResolved(t *testing.T) {
	reg := registry.New()
	// "run" is ambiguous on its own; "init" only exists in Pythia 8.2.
	reg.AddBackend(backendFunc("run", "run_", "Pythia", "8.1"))
	reg.AddBackend(backendFunc("run", "run_", "Pythia", "8.2"))
	reg.AddBackend(backendFunc("init", "init_", "Pythia", "8.2"))

	f := consumer(req("run", "", "pythia"), req("init", "", "pythia"))
	f.ForceMatching = []string{"pythia"}

	sol, err := quietSolver(reg).Solve(f, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"run":  "run_ [Pythia v8.2]",
		"init": "init_ [Pythia v8.2]",
	}, boundTo(reg, sol))
	assert.Equal(t, 1, sol.Deferrals)
	assert.Equal(t, 2, sol.Rounds)
	// init is filled first because run was deferred.
	assert.Equal(t, "init", sol.Bindings[0].Requirement.Capability)
}

func TestSolveForcedMatchAcrossGroups(t *testing.T) {
	reg := registry.New()
	reg.AddBackend(backendFunc("engine_a", "a_", "LibA", "1.0"))
	reg.AddBackend(backendFunc("engine_b", "b_", "LibB", "1.0"))
	reg.AddBackend(backendFunc("setup", "setup_", "LibB", "1.0"))

	f := consumer(
		req("engine_a", "engine", "lib"),
		req("engine_b", "engine", "lib"),
		req("setup", "", "lib"),
	)
	f.ForceMatching = []string{"lib"}

	sol, err := quietSolver(reg).Solve(f, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"setup":    "setup_ [LibB v1.0]",
		"engine_b": "b_ [LibB v1.0]",
	}, boundTo(reg, sol))
}

func TestSolveForcedMatchWithoutRuleIsNotDeferred(t *testing.T) {
	reg := registry.New()
	reg.AddBackend(backendFunc("run", "run_", "Pythia", "8.1"))
	reg.AddBackend(backendFunc("run", "run_", "Pythia", "8.2"))
	reg.AddBackend(backendFunc("init", "init_", "Pythia", "8.2"))

	// Tags without a force_matching entry carry no rule.
	f := consumer(req("run", "", "pythia"), req("init", "", "pythia"))
	_, err := quietSolver(reg).Solve(f, nil)
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeAmbiguous))
}

func TestSolveDeferralDisabledAfterNoProgress(t *testing.T) {
	reg := registry.New()
	reg.AddBackend(backendFunc("run", "run_", "Pythia", "8.1"))
	reg.AddBackend(backendFunc("run", "run_", "Pythia", "8.2"))
	reg.AddBackend(backendFunc("init", "init_", "Pythia", "8.1"))
	reg.AddBackend(backendFunc("init", "init_", "Pythia", "8.2"))

	f := consumer(req("run", "", "pythia"), req("init", "", "pythia"))
	f.ForceMatching = []string{"pythia"}

	_, err := quietSolver(reg).Solve(f, nil)
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeAmbiguous))
	assert.Contains(t, err.Error(), "found too many candidates for backend requirement run (double)")
}

func TestSolveForcedMatchEliminatesAllCandidates(t *testing.T) {
	reg := registry.New()
	reg.AddBackend(backendFunc("init", "init_", "Pythia", "8.2"))
	reg.AddBackend(backendFunc("run", "run_", "Pythia", "8.1"))

	f := consumer(req("init", "", "pythia"), req("run", "", "pythia"))
	f.ForceMatching = []string{"pythia"}

	_, err := quietSolver(reg).Solve(f, nil)
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeUnsatisfiable))
	assert.Contains(t, err.Error(), "run_ [Pythia v8.1]")
}

func TestForcedMatchViolationIsDetected(t *testing.T) {
	reg := registry.New()
	a := reg.AddBackend(backendFunc("init", "init_", "Pythia", "8.1"))
	b := reg.AddBackend(backendFunc("run", "run_", "Pythia", "8.2"))
	c := reg.AddBackend(backendFunc("finish", "finish_", "Pythia", "8.2"))

	f := consumer(req("init", "", "pythia"), req("run", "", "pythia"), req("finish", "", "pythia"))
	f.ForceMatching = []string{"pythia"}

	st := &solveState{
		Solver: quietSolver(reg),
		f:      f,
		sol: &Solution{Bindings: []Binding{
			{Requirement: reg.Backend(a).Quantity(), Backend: a},
			{Requirement: reg.Backend(b).Quantity(), Backend: b},
		}},
	}
	_, err := st.satisfiesForcedMatch(c, f.BackendReqs)
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeBackendRuleViolation))
}
