package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/depres/internal/config"
)

// Scenario defines one resolution test: a catalogue, a configuration and
// the expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalogue is the CUE catalogue directory. Relative paths are resolved
	// against the scenario file's directory. When empty, the loader's
	// default catalogue is used.
	Catalogue string `yaml:"catalogue,omitempty"`

	// Config is the resolution configuration, written inline in the same
	// format as a configuration file.
	Config yaml.Node `yaml:"config"`

	// Error is the expected resolution error code. Empty means the pass
	// must succeed.
	Error string `yaml:"error,omitempty"`

	// Assertions validate the resolved graph (or the error).
	Assertions []Assertion `yaml:"assertions"`

	// PassID is an optional fixed pass ID. If empty, defaults to
	// "test-pass-default".
	PassID string `yaml:"pass_id,omitempty"`

	// parsed is the decoded Config, filled by validateScenario.
	parsed *config.Config
}

// Assertion validates one property of a resolution.
type Assertion struct {
	// Type specifies the assertion type:
	// - "active": Node is part of the graph
	// - "inactive": Node is not part of the graph
	// - "edge": Provider feeds consumer
	// - "no_edge": Provider does not feed consumer
	// - "order": Nodes appear in this relative execution order
	// - "nested": Manager runs exactly these nodes, in this order
	// - "loop_manager": Node runs nested under manager
	// - "backend": Node's requirement is bound to a backend function
	// - "output": Node is a target output
	// - "error_contains": The resolution error message contains text
	Type string `yaml:"type"`

	// Node is a "module.function" label (active, inactive, loop_manager,
	// backend, output).
	Node string `yaml:"node,omitempty"`

	// Provider and Consumer are node labels (edge, no_edge).
	Provider string `yaml:"provider,omitempty"`
	Consumer string `yaml:"consumer,omitempty"`

	// Manager is a loop manager label (nested, loop_manager).
	Manager string `yaml:"manager,omitempty"`

	// Nodes is an ordered list of labels (order, nested).
	Nodes []string `yaml:"nodes,omitempty"`

	// Requirement is the backend requirement capability (backend).
	Requirement string `yaml:"requirement,omitempty"`

	// Function, Backend and Version identify the expected backend function
	// (backend). Version may be omitted.
	Function string `yaml:"function,omitempty"`
	Backend  string `yaml:"backend,omitempty"`
	Version  string `yaml:"version,omitempty"`

	// Text is the expected message fragment (error_contains).
	Text string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertActive        = "active"
	AssertInactive      = "inactive"
	AssertEdge          = "edge"
	AssertNoEdge        = "no_edge"
	AssertOrder         = "order"
	AssertNested        = "nested"
	AssertLoopManager   = "loop_manager"
	AssertBackend       = "backend"
	AssertOutput        = "output"
	AssertErrorContains = "error_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithCatalogue(path, "")
}

// LoadScenarioWithCatalogue reads and parses a scenario YAML file, using
// catalogue when the scenario does not name its own.
func LoadScenarioWithCatalogue(path, catalogue string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the catalogue path BEFORE validation
	switch {
	case scenario.Catalogue == "":
		scenario.Catalogue = catalogue
	case !filepath.IsAbs(scenario.Catalogue):
		scenario.Catalogue = filepath.Join(filepath.Dir(path), scenario.Catalogue)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// ResolutionConfig returns the scenario's decoded configuration.
func (s *Scenario) ResolutionConfig() (*config.Config, error) {
	if s.parsed != nil {
		return s.parsed, nil
	}
	if s.Config.Kind == 0 {
		return &config.Config{}, nil
	}
	data, err := yaml.Marshal(&s.Config)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	s.parsed = cfg
	return cfg, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Catalogue == "" {
		return fmt.Errorf("catalogue is required")
	}
	if _, err := os.Stat(s.Catalogue); os.IsNotExist(err) {
		return fmt.Errorf("catalogue directory not found: %s", s.Catalogue)
	}

	if s.Error == "" && len(s.Assertions) == 0 {
		return fmt.Errorf("an expected error or a non-empty assertions list is required")
	}

	cfg, err := s.ResolutionConfig()
	if err != nil {
		return err
	}
	if len(cfg.Observables) == 0 {
		return fmt.Errorf("config.observables is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertActive, AssertInactive, AssertOutput:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for %s", index, a.Type)
		}
	case AssertEdge, AssertNoEdge:
		if a.Provider == "" || a.Consumer == "" {
			return fmt.Errorf("assertions[%d]: provider and consumer are required for %s", index, a.Type)
		}
	case AssertOrder:
		if len(a.Nodes) < 2 {
			return fmt.Errorf("assertions[%d]: at least two nodes are required for order", index)
		}
	case AssertNested:
		if a.Manager == "" {
			return fmt.Errorf("assertions[%d]: manager is required for nested", index)
		}
	case AssertLoopManager:
		if a.Node == "" || a.Manager == "" {
			return fmt.Errorf("assertions[%d]: node and manager are required for loop_manager", index)
		}
	case AssertBackend:
		if a.Node == "" || a.Requirement == "" || a.Function == "" {
			return fmt.Errorf("assertions[%d]: node, requirement and function are required for backend", index)
		}
	case AssertErrorContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for error_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
