// Package config is the resolution configuration: active models, target
// observables, per-functor override rules and resolution options.
//
// Configuration is YAML:
//
//	models: [CMSSM]
//	observables:
//	  - capability: LogLike
//	    type: double
//	    purpose: LogLike
//	rules:
//	  - capability: xsec
//	    function: calc_xsec
//	    dependencies:
//	      - capability: width
//	        module: DecayBit
//	    backends:
//	      - capability: run
//	        module: Pythia
//	        version: "8.2"
//	    options:
//	      tolerance: 5
//	options:
//	  prefer_model_specific_functions: true
//	  module_local_capabilities: [PointInit]
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/depres/internal/ir"
)

// DefaultModuleLocalCapabilities are the capabilities that may only be
// resolved from the requesting functor's own module.
var DefaultModuleLocalCapabilities = []string{"PointInit"}

// Config is one resolution configuration.
type Config struct {
	// Models lists the active models, in order.
	Models []string `yaml:"models"`

	// Observables are the target output requests.
	Observables []Observable `yaml:"observables"`

	// Rules override how a matching functor's dependencies and backend
	// requirements are resolved.
	Rules []Rule `yaml:"rules,omitempty"`

	// Options are global resolution switches.
	Options Options `yaml:"options,omitempty"`
}

// Observable is one target output request. Its selector fields narrow the
// candidates that may provide it.
type Observable struct {
	ir.Selector `yaml:",inline"`

	// Purpose describes why the output is requested (e.g. "LogLike").
	Purpose string `yaml:"purpose,omitempty"`

	// Printme controls whether the provider is handed to the printer.
	// Defaults to true.
	Printme *bool `yaml:"printme,omitempty"`
}

// Print reports whether the observable's provider must be printed.
func (o *Observable) Print() bool {
	return o.Printme == nil || *o.Printme
}

// Quantity returns the (capability, type) request the observable seeds.
func (o *Observable) Quantity() ir.Quantity {
	return ir.Quantity{Capability: o.Capability, Type: o.Type}
}

// Rule is a per-functor override. The embedded selector picks the functors
// the rule applies to; Dependencies and Backends narrow how each of their
// requirements is resolved, keyed by capability.
type Rule struct {
	ir.Selector `yaml:",inline"`

	Dependencies []ir.Selector `yaml:"dependencies,omitempty"`
	Backends     []ir.Selector `yaml:"backends,omitempty"`

	// Options are attached to the functor when it is activated.
	Options map[string]any `yaml:"options,omitempty"`
}

// Options are global resolution switches.
type Options struct {
	PreferModelSpecificFunctions *bool    `yaml:"prefer_model_specific_functions,omitempty"`
	ModuleLocalCapabilities      []string `yaml:"module_local_capabilities,omitempty"`
}

// PreferModelSpecific reports whether the model-specificity tie-break is
// enabled. Defaults to true.
func (o Options) PreferModelSpecific() bool {
	return o.PreferModelSpecificFunctions == nil || *o.PreferModelSpecificFunctions
}

// LocalCapabilities returns the module-local capabilities, falling back to
// DefaultModuleLocalCapabilities.
func (o Options) LocalCapabilities() []string {
	if o.ModuleLocalCapabilities == nil {
		return DefaultModuleLocalCapabilities
	}
	return o.ModuleLocalCapabilities
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration. Unknown fields are rejected; an empty
// document yields an empty configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &cfg, nil
}
