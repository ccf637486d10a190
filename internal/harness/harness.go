package harness

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/depres/internal/compiler"
	"github.com/roach88/depres/internal/ir"
	"github.com/roach88/depres/internal/resolver"
	"github.com/roach88/depres/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// The catalogue is compiled fresh for every scenario and the pass uses a
// fixed pass ID, so repeated runs produce identical results.
//
// Execution flow:
// 1. Compile the CUE catalogue into a registry
// 2. Decode the inline configuration
// 3. Resolve the dependency graph
// 4. Compare the outcome with the expected error code
// 5. Evaluate assertions and return the result
//
// An error is returned only when the scenario cannot be run at all (broken
// catalogue or configuration). Resolution failures are part of the result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, testutil.DiscardLogger())
}

// RunWithLogger is Run with pass logging sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	loaded, errs := compiler.LoadDir(scenario.Catalogue, compiler.LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load catalogue: %w", errors.Join(errs...))
	}

	cfg, err := scenario.ResolutionConfig()
	if err != nil {
		return nil, err
	}

	r := resolver.New(loaded.Registry, cfg,
		resolver.WithLogger(logger),
		resolver.WithPassIDGenerator(testutil.NewFixedPassIDGenerator(scenario.PassID)),
	)
	return evaluate(scenario, r), nil
}

func evaluate(scenario *Scenario, r *resolver.Resolver) *Result {
	result := NewResult()

	res, err := r.Resolve()
	if err != nil {
		result.ErrorCode = string(ir.CodeOf(err))
		result.ErrorMessage = err.Error()
		if result.ErrorCode == "" {
			result.ErrorCode = "ERROR"
		}
	} else {
		result.Resolution = res
	}

	switch {
	case scenario.Error == "" && err != nil:
		result.AddError(fmt.Sprintf("expected resolution to succeed, got %s", result.ErrorMessage))
		return result
	case scenario.Error != "" && err == nil:
		result.AddError(fmt.Sprintf("expected error %s, resolution succeeded", scenario.Error))
		return result
	case scenario.Error != "" && result.ErrorCode != scenario.Error:
		result.AddError(fmt.Sprintf("expected error %s, got %s", scenario.Error, result.ErrorMessage))
		return result
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result
}
