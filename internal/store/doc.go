// Package store provides SQLite-backed durable storage for resolution passes.
//
// Each pass is stored as an append-only record set:
//   - passes: one row per pass (id, logical seq, graph fingerprint, models)
//   - pass_nodes: active nodes in topological position order
//   - pass_edges: provider to consumer edges
//   - pass_backends: backend requirement bindings per node
//
// # Ordering
//
// Passes are ordered by seq, a logical clock assigned at write time. Wall
// time is never stored. Nodes are read back by position, edges by
// (consumer, provider) and backends by (node, requirement).
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Structured columns (models, nested sets) hold canonical JSON produced by
// ir.MarshalCanonical.
package store
