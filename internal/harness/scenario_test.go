package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "catalogue"), 0755))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario(t *testing.T) {
	s := loadScenario(t, "relic_density")

	assert.Equal(t, "relic_density", s.Name)
	assert.Equal(t, filepath.Join("testdata", "catalogue"), s.Catalogue)
	assert.Len(t, s.Assertions, 10)
	assert.Empty(t, s.Error)

	cfg, err := s.ResolutionConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"CMSSM"}, cfg.Models)
	require.Len(t, cfg.Observables, 1)
	assert.Equal(t, "lnL_oh2", cfg.Observables[0].Capability)
	assert.Equal(t, "LogLike", cfg.Observables[0].Purpose)
}

func TestLoadScenarioDefaultCatalogue(t *testing.T) {
	path := writeScenario(t, `
name: defaulted
description: "uses the loader's catalogue"
config:
  observables: [{capability: x, type: double}]
error: UNSATISFIABLE_REQUIREMENT
`)
	catalogue := filepath.Join(filepath.Dir(path), "catalogue")

	s, err := LoadScenarioWithCatalogue(path, catalogue)
	require.NoError(t, err)
	assert.Equal(t, catalogue, s.Catalogue)

	_, err = LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalogue is required")
}

func TestLoadScenarioValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: y\ncatalogue: catalogue\nasertions: []\n",
			wantErr: "field asertions not found",
		},
		{
			name:    "missing name",
			content: "description: y\ncatalogue: catalogue\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: x\ncatalogue: catalogue\n",
			wantErr: "description is required",
		},
		{
			name:    "missing catalogue dir",
			content: "name: x\ndescription: y\ncatalogue: nowhere\nerror: CYCLIC_GRAPH\n",
			wantErr: "catalogue directory not found",
		},
		{
			name:    "no expectations",
			content: "name: x\ndescription: y\ncatalogue: catalogue\nconfig: {observables: [{capability: a}]}\n",
			wantErr: "an expected error or a non-empty assertions list is required",
		},
		{
			name:    "no observables",
			content: "name: x\ndescription: y\ncatalogue: catalogue\nerror: CYCLIC_GRAPH\nconfig: {models: [CMSSM]}\n",
			wantErr: "config.observables is required",
		},
		{
			name:    "bad config",
			content: "name: x\ndescription: y\ncatalogue: catalogue\nerror: CYCLIC_GRAPH\nconfig: {observabels: []}\n",
			wantErr: "config:",
		},
		{
			name: "unknown assertion type",
			content: `name: x
description: y
catalogue: catalogue
config: {observables: [{capability: a}]}
assertions: [{type: trace_contains}]
`,
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name: "edge without consumer",
			content: `name: x
description: y
catalogue: catalogue
config: {observables: [{capability: a}]}
assertions: [{type: edge, provider: M.a}]
`,
			wantErr: "provider and consumer are required for edge",
		},
		{
			name: "short order",
			content: `name: x
description: y
catalogue: catalogue
config: {observables: [{capability: a}]}
assertions: [{type: order, nodes: [M.a]}]
`,
			wantErr: "at least two nodes are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
