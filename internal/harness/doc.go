// Package harness runs resolution scenarios: a CUE catalogue, an inline
// configuration and the expected outcome, checked against the real
// resolver.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: relic_density
//	description: "Relic density likelihood under the CMSSM"
//	catalogue: ../catalogue
//	config:
//	  models: [CMSSM]
//	  observables:
//	    - capability: lnL_oh2
//	      type: double
//	assertions:
//	  - type: edge
//	    provider: DarkBit.RD_oh2_DarkSUSY
//	    consumer: DarkBit.lnL_oh2
//	  - type: backend
//	    node: DarkBit.RD_oh2_DarkSUSY
//	    requirement: dsinit
//	    function: dsinit
//	    backend: DarkSUSY
//	    version: "6.1.1"
//
// A scenario that expects resolution to fail names the error code instead:
//
//	error: AMBIGUOUS_REQUIREMENT
//	assertions:
//	  - type: error_contains
//	    text: "add a rule naming the function or module"
//
// # Assertion Types
//
//   - active, inactive: a node is (not) part of the graph
//   - edge, no_edge: a provider does (not) feed a consumer
//   - order: nodes appear in the given relative execution order
//   - nested: a loop manager drives exactly these nodes, in order
//   - loop_manager: a node runs nested under a manager
//   - backend: a backend requirement is filled by a function
//   - output: a node is a target output
//   - error_contains: the resolution error message contains text
//
// # Deterministic Testing
//
// Every pass uses a fixed pass ID (scenario pass_id, or
// "test-pass-default"), so snapshots are byte-identical across runs and
// can be compared with golden files under testdata/golden.
package harness
