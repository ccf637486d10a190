package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/depres/internal/ir"
)

// Snapshot renders a scenario outcome as canonical JSON for golden
// comparison: the resolved graph on success, the error code and message on
// failure.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	m := map[string]any{
		"scenario_name": scenarioName,
	}
	if result.Resolution != nil {
		m["snapshot"] = result.Resolution.Snapshot()
	} else {
		m["error"] = map[string]any{
			"code":    result.ErrorCode,
			"message": result.ErrorMessage,
		}
	}
	return ir.MarshalCanonical(m)
}

// RunWithGolden executes a scenario and compares its outcome against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the outcome doesn't match the golden
// file or the scenario's own expectations fail.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already-computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
