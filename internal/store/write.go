package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/depres/internal/ir"
)

// WritePass inserts a resolution pass with its nodes, edges and backend
// bindings in one transaction, and returns the logical sequence number
// assigned to it.
//
// Sequence numbers start at 1 and increase by one per pass. Writing a pass
// whose ID is already stored is a no-op that returns the existing seq, so
// retries are idempotent.
func (s *Store) WritePass(ctx context.Context, rec ir.PassRecord) (int64, error) {
	if rec.ID == "" {
		return 0, fmt.Errorf("write pass: pass ID is required")
	}

	modelsJSON, err := marshalModels(rec.Models)
	if err != nil {
		return 0, fmt.Errorf("write pass: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write pass: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM passes WHERE id = ?`, rec.ID).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("write pass: lookup: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM passes`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write pass: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO passes (id, seq, fingerprint, models, resolver_version)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, seq, rec.Fingerprint, modelsJSON, rec.ResolverVersion)
	if err != nil {
		return 0, fmt.Errorf("write pass: %w", err)
	}

	if err := writeNodes(ctx, tx, rec.ID, rec.Nodes); err != nil {
		return 0, err
	}
	if err := writeEdges(ctx, tx, rec.ID, rec.Edges); err != nil {
		return 0, err
	}
	if err := writeBackends(ctx, tx, rec.ID, rec.Backends); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write pass: commit: %w", err)
	}
	return seq, nil
}

func writeNodes(ctx context.Context, tx *sql.Tx, passID string, nodes []ir.NodeRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pass_nodes
		(pass_id, node_id, position, capability, type, function, module, version, print, nested)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write nodes: prepare: %w", err)
	}
	defer stmt.Close()

	for _, n := range nodes {
		nestedJSON, err := marshalNested(n.Nested)
		if err != nil {
			return fmt.Errorf("write nodes: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			passID,
			n.NodeID,
			n.Position,
			n.Identity.Capability,
			n.Identity.Type,
			n.Identity.Function,
			n.Identity.Module,
			n.Identity.Version,
			n.Print,
			nestedJSON,
		)
		if err != nil {
			return fmt.Errorf("write node %d: %w", n.NodeID, err)
		}
	}
	return nil
}

// writeEdges ignores duplicate edges; the graph is a simple digraph.
func writeEdges(ctx context.Context, tx *sql.Tx, passID string, edges []ir.EdgeRecord) error {
	for _, e := range edges {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pass_edges (pass_id, provider, consumer)
			VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING
		`, passID, e.Provider, e.Consumer)
		if err != nil {
			return fmt.Errorf("write edge %d->%d: %w", e.Provider, e.Consumer, err)
		}
	}
	return nil
}

func writeBackends(ctx context.Context, tx *sql.Tx, passID string, backends []ir.BackendRecord) error {
	for _, b := range backends {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pass_backends
			(pass_id, node_id, req_capability, req_type, grp, capability, type, function, backend, version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			passID,
			b.NodeID,
			b.Requirement.Capability,
			b.Requirement.Type,
			b.Group,
			b.Function.Capability,
			b.Function.Type,
			b.Function.Function,
			b.Function.Module,
			b.Function.Version,
		)
		if err != nil {
			return fmt.Errorf("write backend %s for node %d: %w", b.Requirement, b.NodeID, err)
		}
	}
	return nil
}
