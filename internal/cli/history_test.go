package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/depres/internal/ir"
)

// recordPasses resolves the relic config n times into a fresh database.
func recordPasses(t *testing.T, n int) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "passes.db")
	for i := 0; i < n; i++ {
		_, _, err := execute(t, "resolve", testCatalogue, "--config", relicConfig, "--db", dbPath)
		require.NoError(t, err)
	}
	return dbPath
}

func TestHistoryEmpty(t *testing.T) {
	out, _, err := execute(t, "history", "--db", filepath.Join(t.TempDir(), "passes.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "No passes recorded.")
}

func TestHistoryList(t *testing.T) {
	dbPath := recordPasses(t, 2)

	out, _, err := execute(t, "history", "--db", dbPath, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   []PassListing `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, int64(1), resp.Data[0].Seq)
	assert.Equal(t, int64(2), resp.Data[1].Seq)
	assert.Equal(t, 4, resp.Data[0].Nodes)
	assert.Equal(t, []string{"CMSSM"}, resp.Data[0].Models)
	assert.Equal(t, resp.Data[0].Fingerprint, resp.Data[1].Fingerprint)

	out, _, err = execute(t, "history", "--db", dbPath, "--fingerprint", resp.Data[0].Fingerprint, "--format", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Data, 2)

	out, _, err = execute(t, "history", "--db", dbPath, "--fingerprint", "unknown", "--format", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Empty(t, resp.Data)
}

func TestHistoryListText(t *testing.T) {
	dbPath := recordPasses(t, 1)

	out, _, err := execute(t, "history", "--db", dbPath, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Seq")
	assert.Contains(t, out, "CMSSM")
}

func TestHistoryShowPass(t *testing.T) {
	dbPath := recordPasses(t, 2)

	out, _, err := execute(t, "history", "--db", dbPath, "latest", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ir.PassRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, int64(2), resp.Data.Seq)
	require.Len(t, resp.Data.Nodes, 4)
	assert.Equal(t, "get_MSSM_spectrum", resp.Data.Nodes[0].Identity.Function)
	assert.Len(t, resp.Data.Edges, 2)
	assert.Len(t, resp.Data.Backends, 3)

	byID, _, err := execute(t, "history", "--db", dbPath, resp.Data.ID, "--format", "json")
	require.NoError(t, err)
	var again struct {
		Data ir.PassRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(byID), &again))
	assert.Equal(t, resp.Data, again.Data)
}

func TestHistoryShowPassText(t *testing.T) {
	dbPath := recordPasses(t, 1)

	out, _, err := execute(t, "history", "--db", dbPath, "1", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "(seq 1)")
	assert.Contains(t, out, "DarkBit.RD_oh2_DarkSUSY")
	assert.Contains(t, out, "ScannerBit.point_loop")
	assert.Contains(t, out, "dsrdomega")
}

func TestHistoryPassNotFound(t *testing.T) {
	dbPath := recordPasses(t, 1)

	out, _, err := execute(t, "history", "--db", dbPath, "99")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E_NOT_FOUND")
}
