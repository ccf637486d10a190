package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphWritesDOT(t *testing.T) {
	out, _, err := execute(t, "graph", testCatalogue, "--config", relicConfig)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "digraph depres {"))
	assert.Contains(t, out, "lnL_oh2")
	assert.Equal(t, 2, strings.Count(out, "->"))
}

func TestGraphResolutionFailureKeepsStdoutClean(t *testing.T) {
	out, errOut, err := execute(t, "graph", testCatalogue, "--config", filepath.Join("testdata", "unsatisfiable.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Empty(t, out)
	assert.Contains(t, errOut, "UNSATISFIABLE_REQUIREMENT")
}
