package resolver

import (
	"fmt"
	"sort"

	"github.com/roach88/depres/internal/backend"
	"github.com/roach88/depres/internal/graph"
	"github.com/roach88/depres/internal/ir"
	"github.com/roach88/depres/internal/registry"
)

// Result is a completed resolution pass. It is immutable and safe for
// concurrent reads.
type Result struct {
	// ID names the pass.
	ID string

	// Models are the active models the pass ran under.
	Models []string

	// Graph holds the active nodes and dependency edges.
	Graph *graph.Graph

	// Order is the execution order: every provider precedes its consumers.
	Order []graph.NodeID

	// Outputs are the terminal requests in seeding order.
	Outputs []Output

	reg       *registry.Registry
	nodes     []*NodeState // indexed by NodeID
	estimator graph.Estimator
}

// Output is one resolved terminal request.
type Output struct {
	Node     graph.NodeID
	Quantity ir.Quantity
	Purpose  string
	Print    bool
}

// Dependency is one resolved dependency of a node.
type Dependency struct {
	Quantity ir.Quantity
	Provider graph.NodeID
}

// NodeState is everything resolution bound onto one active node.
type NodeState struct {
	ID       graph.NodeID
	Functor  registry.FunctorID
	Identity ir.Identity

	// Dependencies are in resolution order.
	Dependencies []Dependency

	// Backends are the filled backend requirements in fill order.
	Backends []backend.Binding

	// LoopManager is the node this node runs nested under. Terminal means
	// it runs at top level.
	LoopManager graph.NodeID

	// Nested lists the nodes a loop manager drives, in execution order.
	Nested []graph.NodeID

	// Options come from the configuration rule matching the node.
	Options map[string]any

	// Print marks nodes whose results go to the printer.
	Print bool
}

// Node returns the state of a node.
func (r *Result) Node(id graph.NodeID) *NodeState {
	return r.nodes[id]
}

// Find returns the active node with the given "module.function" label.
func (r *Result) Find(label string) (graph.NodeID, bool) {
	for _, id := range r.Order {
		if r.Label(id) == label {
			return id, true
		}
	}
	return 0, false
}

// BackendFunc returns the backend function a binding resolved to.
func (r *Result) BackendFunc(b backend.Binding) *ir.BackendFunc {
	return r.reg.Backend(b.Backend)
}

// Label returns "module.function" for a node.
func (r *Result) Label(id graph.NodeID) string {
	return r.Graph.Label(id)
}

// Labels maps nodes to their labels.
func (r *Result) Labels(ids []graph.NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = r.Label(id)
	}
	return out
}

// Provider returns the node bound to a node's dependency on q.
func (r *Result) Provider(consumer graph.NodeID, q ir.Quantity) (graph.NodeID, bool) {
	for _, d := range r.nodes[consumer].Dependencies {
		if d.Quantity == q {
			return d.Provider, true
		}
	}
	return 0, false
}

// SortedAncestors returns the node and everything it depends on, in
// execution order. This is the work needed to compute the node.
func (r *Result) SortedAncestors(id graph.NodeID) []graph.NodeID {
	return graph.Sort(r.Graph.Ancestors(id), r.Order)
}

// PrintTargets returns the print-flagged nodes in execution order.
func (r *Result) PrintTargets() []PrintTarget {
	var out []PrintTarget
	for _, id := range r.Order {
		if n := r.nodes[id]; n.Print {
			out = append(out, PrintTarget{Label: r.Label(id), Identity: n.Identity})
		}
	}
	return out
}

// EvaluationOrder orders the terminal outputs so cheap, frequently
// invalidating outputs come first.
//
// The order is greedy: at each step the output with the smallest
// (estimated time of its ancestor set) / (invalidation rate) is taken, ties
// keeping seeding order. Invalidation rates ≤ 0 count as 1.
func (r *Result) EvaluationOrder() []graph.NodeID {
	est := r.estimator
	if est == nil {
		est = graph.DescriptorEstimator{}
	}

	unsorted := make([]graph.NodeID, 0, len(r.Outputs))
	for _, o := range r.Outputs {
		unsorted = append(unsorted, o.Node)
	}

	sorted := make([]graph.NodeID, 0, len(unsorted))
	for len(unsorted) > 0 {
		best := -1
		var bestCost float64
		for i, n := range unsorted {
			rate := est.InvalidationRate(r.Graph.Descriptor(n))
			if rate <= 0 {
				rate = 1
			}
			cost := r.Graph.TimeEstimate(r.Graph.Ancestors(n), est) / rate
			if best < 0 || cost < bestCost {
				best = i
				bestCost = cost
			}
		}
		sorted = append(sorted, unsorted[best])
		unsorted = append(unsorted[:best], unsorted[best+1:]...)
	}
	return sorted
}

// Snapshot renders the pass as a canonical-JSON-compatible value. The
// snapshot covers models, nodes in execution order with their bindings,
// edges and outputs; it excludes the pass ID.
func (r *Result) Snapshot() map[string]any {
	position := make(map[graph.NodeID]int, len(r.Order))
	for i, id := range r.Order {
		position[id] = i
	}

	nodes := make([]any, 0, len(r.Order))
	for _, id := range r.Order {
		nodes = append(nodes, r.nodeSnapshot(id, position[id]))
	}

	edges := make([]any, 0)
	for _, e := range r.sortedEdges(position) {
		edges = append(edges, map[string]any{
			"provider": r.Label(e.Provider),
			"consumer": r.Label(e.Consumer),
		})
	}

	outputs := make([]any, 0, len(r.Outputs))
	for _, o := range r.Outputs {
		outputs = append(outputs, map[string]any{
			"node":       r.Label(o.Node),
			"capability": o.Quantity.Capability,
			"type":       o.Quantity.Type,
			"purpose":    o.Purpose,
			"print":      o.Print,
		})
	}

	models := append([]string{}, r.Models...)
	return map[string]any{
		"schema_version": ir.SchemaVersion,
		"models":         models,
		"nodes":          nodes,
		"edges":          edges,
		"outputs":        outputs,
	}
}

func (r *Result) nodeSnapshot(id graph.NodeID, position int) map[string]any {
	n := r.nodes[id]
	deps := make([]any, 0, len(n.Dependencies))
	for _, d := range n.Dependencies {
		deps = append(deps, map[string]any{
			"capability": d.Quantity.Capability,
			"type":       d.Quantity.Type,
			"provider":   r.Label(d.Provider),
		})
	}
	backends := make([]any, 0, len(n.Backends))
	for _, b := range n.Backends {
		f := r.reg.Backend(b.Backend)
		entry := map[string]any{
			"capability": b.Requirement.Capability,
			"type":       b.Requirement.Type,
			"function":   f.Function,
			"backend":    f.Backend,
			"version":    f.Version,
		}
		if b.Group != "" {
			entry["group"] = b.Group
		}
		backends = append(backends, entry)
	}

	out := map[string]any{
		"label":        r.Label(id),
		"position":     position,
		"capability":   n.Identity.Capability,
		"type":         n.Identity.Type,
		"function":     n.Identity.Function,
		"module":       n.Identity.Module,
		"version":      n.Identity.Version,
		"print":        n.Print,
		"dependencies": deps,
		"backends":     backends,
	}
	if n.LoopManager != Terminal {
		out["loop_manager"] = r.Label(n.LoopManager)
	}
	if len(n.Nested) > 0 {
		out["nested"] = r.Labels(n.Nested)
	}
	if len(n.Options) > 0 {
		opts := make(map[string]string, len(n.Options))
		for k, v := range n.Options {
			opts[k] = fmt.Sprint(v)
		}
		out["options"] = opts
	}
	return out
}

// sortedEdges orders edges by consumer position, then provider position.
func (r *Result) sortedEdges(position map[graph.NodeID]int) []graph.Edge {
	edges := r.Graph.Edges()
	sort.SliceStable(edges, func(i, j int) bool {
		ci, cj := position[edges[i].Consumer], position[edges[j].Consumer]
		if ci != cj {
			return ci < cj
		}
		return position[edges[i].Provider] < position[edges[j].Provider]
	})
	return edges
}

// Fingerprint is the content-addressed identity of the snapshot.
func (r *Result) Fingerprint() (string, error) {
	return ir.GraphFingerprint(r.Snapshot())
}

// Record flattens the pass for persistence. Seq is assigned by the store.
func (r *Result) Record() (ir.PassRecord, error) {
	fp, err := r.Fingerprint()
	if err != nil {
		return ir.PassRecord{}, err
	}
	rec := ir.PassRecord{
		ID:              r.ID,
		Fingerprint:     fp,
		Models:          append([]string{}, r.Models...),
		ResolverVersion: ir.ResolverVersion,
	}
	for pos, id := range r.Order {
		n := r.nodes[id]
		var nested []int
		for _, m := range n.Nested {
			nested = append(nested, int(m))
		}
		rec.Nodes = append(rec.Nodes, ir.NodeRecord{
			NodeID:   int(id),
			Position: pos,
			Identity: n.Identity,
			Print:    n.Print,
			Nested:   nested,
		})
		for _, b := range n.Backends {
			rec.Backends = append(rec.Backends, ir.BackendRecord{
				NodeID:      int(id),
				Group:       b.Group,
				Requirement: b.Requirement,
				Function:    r.reg.Backend(b.Backend).Identity(),
			})
		}
	}
	for _, e := range r.Graph.Edges() {
		rec.Edges = append(rec.Edges, ir.EdgeRecord{Provider: int(e.Provider), Consumer: int(e.Consumer)})
	}
	return rec, nil
}
