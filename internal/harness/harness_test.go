package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"relic_density", "ambiguous"} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, loadScenario(t, name)))
		})
	}
}

func TestRunScenarios(t *testing.T) {
	for _, name := range []string{"relic_density", "ambiguous", "model_specific", "observable_rule"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRunReportsUnexpectedError(t *testing.T) {
	s := loadScenario(t, "ambiguous")
	s.Error = ""
	s.Assertions = []Assertion{{Type: AssertActive, Node: "FlavBit.Bs2mumu_a"}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, "AMBIGUOUS_REQUIREMENT", result.ErrorCode)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected resolution to succeed")
}

func TestRunReportsMissingError(t *testing.T) {
	s := loadScenario(t, "model_specific")
	s.Error = "CYCLIC_GRAPH"

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected error CYCLIC_GRAPH, resolution succeeded")
}

func TestRunReportsWrongErrorCode(t *testing.T) {
	s := loadScenario(t, "ambiguous")
	s.Error = "UNSATISFIABLE_REQUIREMENT"

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected error UNSATISFIABLE_REQUIREMENT")
}

func TestRunDeterministic(t *testing.T) {
	s := loadScenario(t, "relic_density")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := Snapshot(s.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, "test-pass-default", first.Resolution.ID)
}

func TestRunBrokenCatalogue(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"),
		[]byte("package bad\n\nfunctor: M: f: {type: \"double\"}\n"), 0644))

	s := loadScenario(t, "model_specific")
	s.Catalogue = dir

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load catalogue")
}
