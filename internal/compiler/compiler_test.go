package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/depres/internal/ir"
)

func TestCompileFunctorBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		functor: DarkBit: RD_oh2_DarkSUSY: {
			capability: "RD_oh2"
			type: "double"
			version: "2.1.0"
			purpose: "Relic density"
			dependencies: [{capability: "RD_spectrum", type: "Spectrum"}]
			backend_reqs: [
				{capability: "dsrdomega", type: "double", group: "ds", tags: ["ds"],
				 permitted: [{backend: "DarkSUSY", version: "6.1.1"}, "MicrOmegas"]},
			]
			force_matching: ["ds"]
			loop_manager: "scan_loop"
			models: ["MSSM63atQ"]
			runtime_average: 0.25
			invalidation_rate: 2
		}
	`)
	require.NoError(t, v.Err())

	f, err := CompileFunctor(v.LookupPath(cue.ParsePath("functor.DarkBit.RD_oh2_DarkSUSY")))
	require.NoError(t, err)

	assert.Equal(t, "DarkBit", f.Module)
	assert.Equal(t, "RD_oh2_DarkSUSY", f.Function)
	assert.Equal(t, "RD_oh2", f.Capability)
	assert.Equal(t, "double", f.Type)
	assert.Equal(t, "2.1.0", f.Version)
	assert.Equal(t, "Relic density", f.Purpose)
	assert.Equal(t, []ir.Quantity{{Capability: "RD_spectrum", Type: "Spectrum"}}, f.Dependencies)
	require.Len(t, f.BackendReqs, 1)
	req := f.BackendReqs[0]
	assert.Equal(t, ir.Quantity{Capability: "dsrdomega", Type: "double"}, req.Quantity)
	assert.Equal(t, "ds", req.Group)
	assert.Equal(t, []string{"ds"}, req.Tags)
	assert.Equal(t, []ir.BackendSpec{
		{Backend: "DarkSUSY", Version: "6.1.1"},
		{Backend: "MicrOmegas", Version: ir.AnyVersion},
	}, req.Permitted)
	assert.Equal(t, []string{"ds"}, f.ForceMatching)
	assert.Equal(t, "scan_loop", f.LoopManagerCapability)
	assert.False(t, f.CanManageLoops)
	assert.Equal(t, []string{"MSSM63atQ"}, f.AllowedModels)
	assert.Equal(t, 0.25, f.RuntimeAverage)
	assert.Equal(t, 2.0, f.InvalidationRate)
}

func TestCompileFunctorMissingCapability(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		functor: DarkBit: bad: {
			type: "double"
		}
	`)

	_, err := CompileFunctor(v.LookupPath(cue.ParsePath("functor.DarkBit.bad")))
	require.Error(t, err)

	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, "capability", compileErr.Field)
	assert.Contains(t, compileErr.Message, "capability is required")
}

func TestCompileFunctorWrongKind(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		functor: DarkBit: bad: {
			capability: "x"
			type: "double"
			can_manage_loops: "yes"
		}
	`)

	_, err := CompileFunctor(v.LookupPath(cue.ParsePath("functor.DarkBit.bad")))
	require.Error(t, err)
}

func TestCompileFunctorDependencyNeedsType(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		functor: M: f: {
			capability: "x"
			type: "double"
			dependencies: [{capability: "y"}]
		}
	`)

	_, err := CompileFunctor(v.LookupPath(cue.ParsePath("functor.M.f")))
	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, "dependencies.type", compileErr.Field)
	assert.Contains(t, compileErr.Message, "for y")
}

func TestCompileBackend(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		backend: DarkSUSY: "6.1.1": dsinit: {
			capability: "dsinit"
			type: "void"
			disabled: true
		}
	`)
	require.NoError(t, v.Err())

	b, err := CompileBackend(v.LookupPath(cue.MakePath(
		cue.Str("backend"), cue.Str("DarkSUSY"), cue.Str("6.1.1"), cue.Str("dsinit"))))
	require.NoError(t, err)

	assert.Equal(t, "DarkSUSY", b.Backend)
	assert.Equal(t, "6.1.1", b.Version)
	assert.Equal(t, "dsinit", b.Function)
	assert.Equal(t, "dsinit", b.Capability)
	assert.Equal(t, "void", b.Type)
	assert.True(t, b.Disabled)
}

func TestCompileModel(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		model: CMSSM: parents: ["MSSM63atQ"]
		model: MSSM63atQ: {}
	`)
	require.NoError(t, v.Err())

	m, err := CompileModel(v.LookupPath(cue.ParsePath("model.CMSSM")))
	require.NoError(t, err)
	assert.Equal(t, "CMSSM", m.Name)
	assert.Equal(t, []string{"MSSM63atQ"}, m.Parents)

	root, err := CompileModel(v.LookupPath(cue.ParsePath("model.MSSM63atQ")))
	require.NoError(t, err)
	assert.Empty(t, root.Parents)
}

func TestLoadDir(t *testing.T) {
	result, errs := LoadDir(filepath.Join("testdata", "catalogue"), LoadModeCollectAll)
	require.Empty(t, errs)
	require.NotNil(t, result)

	reg := result.Registry
	assert.Equal(t, 3, result.FileCount)
	assert.Equal(t, 4, reg.FunctorCount())
	assert.Equal(t, 5, reg.BackendCount())
	assert.Len(t, reg.Models(), 3)
	assert.Empty(t, reg.Validate())

	id, ok := reg.Lookup(ir.Identity{
		Capability: "RD_oh2",
		Type:       "double",
		Function:   "RD_oh2_DarkSUSY",
		Module:     "DarkBit",
		Version:    "2.1.0",
	})
	require.True(t, ok)
	f := reg.Functor(id)
	assert.Equal(t, "scan_loop", f.LoopManagerCapability)
	assert.Len(t, f.BackendReqs, 2)

	m, ok := reg.Model("CMSSM")
	require.True(t, ok)
	assert.Equal(t, []string{"MSSM63atQ"}, m.Parents)

	disabled := 0
	for _, bid := range reg.BackendIDs() {
		if reg.Backend(bid).Disabled {
			disabled++
		}
	}
	assert.Equal(t, 1, disabled)
}

func TestLoadDirCollectsAllErrors(t *testing.T) {
	_, errs := LoadDir(filepath.Join("testdata", "broken"), LoadModeCollectAll)
	require.Len(t, errs, 3)
	for _, err := range errs {
		var loadErr *LoadError
		require.True(t, errors.As(err, &loadErr))
		assert.Equal(t, ErrCodeMissingField, loadErr.Code)
	}
}

func TestLoadDirFailFast(t *testing.T) {
	_, errs := LoadDir(filepath.Join("testdata", "broken"), LoadModeFailFast)
	require.Len(t, errs, 1)
}

func TestLoadDirNotFound(t *testing.T) {
	_, errs := LoadDir(filepath.Join(t.TempDir(), "missing"), LoadModeFailFast)
	require.Len(t, errs, 1)
	var loadErr *LoadError
	require.True(t, errors.As(errs[0], &loadErr))
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadDirNoFiles(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "notcue.txt"), []byte("not a cue file"), 0644))

	_, errs := LoadDir(tmpDir, LoadModeFailFast)
	require.Len(t, errs, 1)
	var loadErr *LoadError
	require.True(t, errors.As(errs[0], &loadErr))
	assert.Equal(t, ErrCodeNoFiles, loadErr.Code)
}

func TestLoadDirEmptyCatalogue(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "root.cue"), []byte("package test\n\nmodel: CMSSM: {}\n"), 0644))

	result, errs := LoadDir(tmpDir, LoadModeCollectAll)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), ErrCodeEmpty)
	assert.Len(t, result.Registry.Models(), 1)
}

func TestLoadDirDuplicateFunctor(t *testing.T) {
	tmpDir := t.TempDir()
	src := `
package test

functor: M: f: {capability: "x", type: "double", version: "1"}
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.cue"), []byte(src), 0644))

	result, errs := LoadDir(tmpDir, LoadModeCollectAll)
	require.Empty(t, errs)
	// A second registration of the same identity is rejected.
	_, err := result.Registry.AddFunctor(*result.Registry.Functor(0))
	require.Error(t, err)
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "capability", Message: "capability is required"}
	assert.Equal(t, "capability: capability is required", err.Error())
}
