package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFunctor() *Functor {
	return &Functor{
		Capability: "xsec",
		Type:       "double",
		Function:   "calc_xsec",
		Module:     "ColliderBit",
		Version:    "1.0",
		BackendReqs: []BackendReq{
			{Quantity: Quantity{"init", "void"}, Tags: []string{"lib"}},
			{Quantity: Quantity{"run", "double"}, Group: "engine", Tags: []string{"lib"}},
			{Quantity: Quantity{"alt", "double"}, Group: "engine"},
			{Quantity: Quantity{"width", "double"}, Group: "decay"},
		},
		ForceMatching: []string{"lib"},
	}
}

func TestFunctorBackendGroups(t *testing.T) {
	f := sampleFunctor()
	assert.Equal(t, []string{"engine", "decay"}, f.BackendGroups())
	assert.Len(t, f.BackendReqsInGroup(""), 1)
	assert.Len(t, f.BackendReqsInGroup("engine"), 2)
}

func TestFunctorMustMatch(t *testing.T) {
	f := sampleFunctor()
	assert.Equal(t, []Quantity{{"init", "void"}, {"run", "double"}}, f.MustMatch("lib"))
	assert.Nil(t, f.MustMatch("unruled"))
}

func TestFunctorBackendReqLookup(t *testing.T) {
	f := sampleFunctor()
	req, ok := f.BackendReq(Quantity{"alt", "double"})
	require.True(t, ok)
	assert.Equal(t, "engine", req.Group)

	_, ok = f.BackendReq(Quantity{"alt", "int"})
	assert.False(t, ok)
}

func TestIdentityLabels(t *testing.T) {
	f := sampleFunctor()
	assert.Equal(t, "ColliderBit.calc_xsec", f.Identity().Label())
	assert.Equal(t, "xsec (double)", f.Quantity().String())

	b := &BackendFunc{Capability: "run", Type: "double", Function: "run_", Backend: "Pythia", Version: "8.2"}
	assert.Equal(t, "Pythia v8.2", b.Signature())
	assert.Equal(t, "Pythia", b.Identity().Module)
}

func TestJSONFieldNaming(t *testing.T) {
	f := sampleFunctor()
	f.RuntimeAverage = 3
	data, err := json.Marshal(f)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "backend_reqs")
	assert.Contains(t, raw, "force_matching")
	assert.NotContains(t, raw, "RuntimeAverage")
	assert.NotContains(t, raw, "can_manage_loops")
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.2", "1.10", -1},
		{"2.0.1", "2.0.0", 1},
		{"1.0", "dev", -1},
		{"dev", "1.0", 1},
		{"alpha", "beta", -1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareVersions(tt.a, tt.b))
		})
	}
}

func TestResolutionErrorFormatting(t *testing.T) {
	err := NewAmbiguousError(Quantity{"x", "double"}, "Core", "too many candidates",
		[]string{"M.f1", "M.f2"})
	assert.Equal(t,
		"AMBIGUOUS_REQUIREMENT: too many candidates (quantity=x (double), consumer=Core); candidates: M.f1, M.f2",
		err.Error())

	wrapped := wrap(err)
	assert.True(t, IsCode(wrapped, ErrCodeAmbiguous))
	assert.False(t, IsCode(wrapped, ErrCodeUnsatisfiable))
	assert.Equal(t, ErrCodeAmbiguous, CodeOf(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(assert.AnError))
}

func TestNewCycleError(t *testing.T) {
	err := NewCycleError([]string{"M.a", "M.b", "M.a"})
	assert.Equal(t, ErrCodeCyclicGraph, err.Code)
	assert.Contains(t, err.Error(), "M.a → M.b → M.a")
}

type wrappedErr struct{ inner error }

func (w wrappedErr) Error() string { return "wrapped: " + w.inner.Error() }
func (w wrappedErr) Unwrap() error { return w.inner }

func wrap(err error) error { return wrappedErr{err} }
