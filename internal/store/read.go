package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/depres/internal/ir"
)

// PassSummary is the header of a stored pass, used for history listings.
type PassSummary struct {
	ID              string
	Seq             int64
	Fingerprint     string
	Models          []string
	ResolverVersion string
	NodeCount       int
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadPass retrieves a complete pass by ID.
// Returns sql.ErrNoRows if not found.
//
// Nodes are ordered by position, edges by (consumer, provider) and
// backends by (node, requirement).
func (s *Store) ReadPass(ctx context.Context, id string) (ir.PassRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, fingerprint, models, resolver_version
		FROM passes
		WHERE id = ?
	`, id)
	return s.readPass(ctx, row)
}

// ReadPassBySeq retrieves a complete pass by its sequence number.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadPassBySeq(ctx context.Context, seq int64) (ir.PassRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, fingerprint, models, resolver_version
		FROM passes
		WHERE seq = ?
	`, seq)
	return s.readPass(ctx, row)
}

// LatestPass retrieves the pass with the highest sequence number.
// Returns sql.ErrNoRows if the store is empty.
func (s *Store) LatestPass(ctx context.Context) (ir.PassRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, fingerprint, models, resolver_version
		FROM passes
		ORDER BY seq DESC
		LIMIT 1
	`)
	return s.readPass(ctx, row)
}

func (s *Store) readPass(ctx context.Context, row *sql.Row) (ir.PassRecord, error) {
	rec, err := scanPass(row)
	if err != nil {
		return ir.PassRecord{}, err
	}
	if rec.Nodes, err = s.readNodes(ctx, rec.ID); err != nil {
		return ir.PassRecord{}, err
	}
	if rec.Edges, err = s.readEdges(ctx, rec.ID); err != nil {
		return ir.PassRecord{}, err
	}
	if rec.Backends, err = s.readBackends(ctx, rec.ID); err != nil {
		return ir.PassRecord{}, err
	}
	return rec, nil
}

// ListPasses returns the header of every stored pass, ordered by seq.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ListPasses(ctx context.Context) ([]PassSummary, error) {
	return s.listPasses(ctx, `
		SELECT p.id, p.seq, p.fingerprint, p.models, p.resolver_version,
		       (SELECT COUNT(*) FROM pass_nodes n WHERE n.pass_id = p.id)
		FROM passes p
		ORDER BY p.seq ASC
	`)
}

// PassesWithFingerprint returns the passes that produced the graph with the
// given fingerprint, ordered by seq.
func (s *Store) PassesWithFingerprint(ctx context.Context, fingerprint string) ([]PassSummary, error) {
	return s.listPasses(ctx, `
		SELECT p.id, p.seq, p.fingerprint, p.models, p.resolver_version,
		       (SELECT COUNT(*) FROM pass_nodes n WHERE n.pass_id = p.id)
		FROM passes p
		WHERE p.fingerprint = ?
		ORDER BY p.seq ASC
	`, fingerprint)
}

func (s *Store) listPasses(ctx context.Context, query string, args ...any) ([]PassSummary, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list passes: %w", err)
	}
	defer rows.Close()

	passes := []PassSummary{}
	for rows.Next() {
		var p PassSummary
		var modelsJSON string
		if err := rows.Scan(&p.ID, &p.Seq, &p.Fingerprint, &modelsJSON, &p.ResolverVersion, &p.NodeCount); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		if p.Models, err = unmarshalModels(modelsJSON); err != nil {
			return nil, err
		}
		passes = append(passes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}
	return passes, nil
}

// GetLastSeq returns the highest pass sequence number, or 0 when empty.
func (s *Store) GetLastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM passes`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}

func scanPass(row rowScanner) (ir.PassRecord, error) {
	var rec ir.PassRecord
	var modelsJSON string
	if err := row.Scan(&rec.ID, &rec.Seq, &rec.Fingerprint, &modelsJSON, &rec.ResolverVersion); err != nil {
		return ir.PassRecord{}, err
	}
	models, err := unmarshalModels(modelsJSON)
	if err != nil {
		return ir.PassRecord{}, err
	}
	rec.Models = models
	return rec, nil
}

func (s *Store) readNodes(ctx context.Context, passID string) ([]ir.NodeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, position, capability, type, function, module, version, print, nested
		FROM pass_nodes
		WHERE pass_id = ?
		ORDER BY position ASC
	`, passID)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []ir.NodeRecord
	for rows.Next() {
		var n ir.NodeRecord
		var nestedJSON string
		if err := rows.Scan(
			&n.NodeID, &n.Position,
			&n.Identity.Capability, &n.Identity.Type, &n.Identity.Function, &n.Identity.Module, &n.Identity.Version,
			&n.Print, &nestedJSON,
		); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		if n.Nested, err = unmarshalNested(nestedJSON); err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

func (s *Store) readEdges(ctx context.Context, passID string) ([]ir.EdgeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider, consumer
		FROM pass_edges
		WHERE pass_id = ?
		ORDER BY consumer ASC, provider ASC
	`, passID)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var edges []ir.EdgeRecord
	for rows.Next() {
		var e ir.EdgeRecord
		if err := rows.Scan(&e.Provider, &e.Consumer); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return edges, nil
}

func (s *Store) readBackends(ctx context.Context, passID string) ([]ir.BackendRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.node_id, b.grp, b.req_capability, b.req_type,
		       b.capability, b.type, b.function, b.backend, b.version
		FROM pass_backends b
		JOIN pass_nodes n ON n.pass_id = b.pass_id AND n.node_id = b.node_id
		WHERE b.pass_id = ?
		ORDER BY n.position ASC, b.rowid ASC
	`, passID)
	if err != nil {
		return nil, fmt.Errorf("query backends: %w", err)
	}
	defer rows.Close()

	var backends []ir.BackendRecord
	for rows.Next() {
		var b ir.BackendRecord
		if err := rows.Scan(
			&b.NodeID, &b.Group, &b.Requirement.Capability, &b.Requirement.Type,
			&b.Function.Capability, &b.Function.Type, &b.Function.Function, &b.Function.Module, &b.Function.Version,
		); err != nil {
			return nil, fmt.Errorf("scan backend: %w", err)
		}
		backends = append(backends, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backends: %w", err)
	}
	return backends, nil
}
