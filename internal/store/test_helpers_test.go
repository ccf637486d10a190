package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/depres/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestPass builds a three-node pass: a spectrum feeding a relic
// density calculation nested under a scan loop.
func createTestPass(id string) ir.PassRecord {
	return ir.PassRecord{
		ID:              id,
		Fingerprint:     "fp-" + id,
		Models:          []string{"CMSSM"},
		ResolverVersion: "0.1.0",
		Nodes: []ir.NodeRecord{
			{NodeID: 2, Position: 0, Identity: ir.Identity{Capability: "scan_loop", Type: "void", Function: "point_loop", Module: "ScannerBit", Version: "1.0.0"}, Nested: []int{1}},
			{NodeID: 0, Position: 1, Identity: ir.Identity{Capability: "unimproved_MSSM_spectrum", Type: "Spectrum", Function: "get_MSSM_spectrum", Module: "SpecBit", Version: "1.0.0"}},
			{NodeID: 1, Position: 2, Identity: ir.Identity{Capability: "RD_oh2", Type: "double", Function: "RD_oh2_DarkSUSY", Module: "DarkBit", Version: "2.1.0"}, Print: true},
		},
		Edges: []ir.EdgeRecord{{Provider: 0, Consumer: 1}},
		Backends: []ir.BackendRecord{
			{
				NodeID:      1,
				Requirement: ir.Quantity{Capability: "dsrdomega", Type: "double"},
				Function:    ir.Identity{Capability: "dsrdomega", Type: "double", Function: "dsrdomega", Module: "DarkSUSY", Version: "6.1.1"},
			},
			{
				NodeID:      1,
				Group:       "init",
				Requirement: ir.Quantity{Capability: "dsinit", Type: "void"},
				Function:    ir.Identity{Capability: "dsinit", Type: "void", Function: "dsinit", Module: "DarkSUSY", Version: "6.1.1"},
			},
		},
	}
}
