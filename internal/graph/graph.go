// Package graph is the dependency graph of one resolution pass.
//
// Nodes live in an arena indexed by NodeID and hold non-owning handles to
// functor descriptors in the registry. Edges run provider → consumer. NodeIDs
// are assigned in insertion order, which is also the tie-break order used by
// TopoOrder.
package graph

import (
	"container/heap"
	"slices"

	"github.com/roach88/depres/internal/ir"
	"github.com/roach88/depres/internal/registry"
)

// NodeID is a stable handle to a graph node.
type NodeID int

// Edge is one provider → consumer link.
type Edge struct {
	Provider NodeID
	Consumer NodeID
}

// Graph is a simple directed graph over activated functors.
//
// Graph is not safe for concurrent mutation. Once resolution completes it is
// only read, and concurrent readers are fine.
type Graph struct {
	reg *registry.Registry

	nodes  []registry.FunctorID
	byFunc map[registry.FunctorID]NodeID

	in    [][]NodeID
	out   [][]NodeID
	edges []Edge
	seen  map[Edge]bool
}

// New creates an empty graph over descriptors owned by reg.
func New(reg *registry.Registry) *Graph {
	return &Graph{
		reg:    reg,
		byFunc: make(map[registry.FunctorID]NodeID),
		seen:   make(map[Edge]bool),
	}
}

// AddNode places a functor in the graph. Adding the same functor twice
// returns the existing node.
func (g *Graph) AddNode(f registry.FunctorID) NodeID {
	if id, ok := g.byFunc[f]; ok {
		return id
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, f)
	g.in = append(g.in, nil)
	g.out = append(g.out, nil)
	g.byFunc[f] = id
	return id
}

// NodeFor returns the node holding a functor, if one exists.
func (g *Graph) NodeFor(f registry.FunctorID) (NodeID, bool) {
	id, ok := g.byFunc[f]
	return id, ok
}

// AddEdge links provider → consumer. Self-loops and duplicate edges are
// ignored.
func (g *Graph) AddEdge(provider, consumer NodeID) {
	if provider == consumer {
		return
	}
	e := Edge{Provider: provider, Consumer: consumer}
	if g.seen[e] {
		return
	}
	g.seen[e] = true
	g.edges = append(g.edges, e)
	g.out[provider] = append(g.out[provider], consumer)
	g.in[consumer] = append(g.in[consumer], provider)
}

// HasEdge reports whether provider → consumer exists.
func (g *Graph) HasEdge(provider, consumer NodeID) bool {
	return g.seen[Edge{Provider: provider, Consumer: consumer}]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []NodeID {
	ids := make([]NodeID, len(g.nodes))
	for i := range g.nodes {
		ids[i] = NodeID(i)
	}
	return ids
}

// Edges returns every edge in insertion order.
func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

// Functor returns the functor handle held by a node.
func (g *Graph) Functor(id NodeID) registry.FunctorID {
	return g.nodes[id]
}

// Descriptor returns the functor descriptor held by a node.
func (g *Graph) Descriptor(id NodeID) *ir.Functor {
	return g.reg.Functor(g.nodes[id])
}

// Label returns "module.function" for a node.
func (g *Graph) Label(id NodeID) string {
	return g.Descriptor(id).Identity().Label()
}

// Providers returns the direct providers of a node in edge insertion order.
func (g *Graph) Providers(id NodeID) []NodeID {
	return slices.Clone(g.in[id])
}

// Consumers returns the direct consumers of a node in edge insertion order.
func (g *Graph) Consumers(id NodeID) []NodeID {
	return slices.Clone(g.out[id])
}

// Ancestors returns the node and everything it transitively depends on,
// sorted by NodeID.
//
// The walk is iterative and tracks visited nodes, so it terminates on any
// graph; cycles are reported by TopoOrder, not here.
func (g *Graph) Ancestors(id NodeID) []NodeID {
	visited := map[NodeID]bool{id: true}
	stack := []NodeID{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range g.in[n] {
			if !visited[p] {
				visited[p] = true
				stack = append(stack, p)
			}
		}
	}
	out := make([]NodeID, 0, len(visited))
	for n := range visited {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// TopoOrder returns the nodes so that every provider precedes its consumers.
// Among nodes that are ready at the same time, the earliest inserted comes
// first. A cyclic graph fails with a CYCLIC_GRAPH ResolutionError naming one
// cycle.
func (g *Graph) TopoOrder() ([]NodeID, error) {
	indegree := make([]int, len(g.nodes))
	for _, e := range g.edges {
		indegree[e.Consumer]++
	}

	ready := &nodeHeap{}
	for i, d := range indegree {
		if d == 0 {
			heap.Push(ready, NodeID(i))
		}
	}

	order := make([]NodeID, 0, len(g.nodes))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(NodeID)
		order = append(order, n)
		for _, c := range g.out[n] {
			indegree[c]--
			if indegree[c] == 0 {
				heap.Push(ready, c)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, g.cycleError()
	}
	return order, nil
}

// Sort orders a node set by position in order. Nodes absent from order are
// dropped.
func Sort(set []NodeID, order []NodeID) []NodeID {
	member := make(map[NodeID]bool, len(set))
	for _, n := range set {
		member[n] = true
	}
	out := make([]NodeID, 0, len(set))
	for _, n := range order {
		if member[n] {
			out = append(out, n)
		}
	}
	return out
}

// nodeHeap is a min-heap of NodeIDs.
type nodeHeap []NodeID

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h nodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)        { *h = append(*h, x.(NodeID)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}
