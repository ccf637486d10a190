package graph

import "github.com/roach88/depres/internal/ir"

// cycleError finds one cycle and reports it as a CYCLIC_GRAPH error.
//
// The algorithm:
//  1. Find strongly connected components with Tarjan's algorithm, visiting
//     nodes and edges in insertion order
//  2. Take the component containing the lowest NodeID among those with more
//     than one member (self-loops are never stored)
//  3. Walk edges inside the component back to its first member
func (g *Graph) cycleError() error {
	var cyclic []NodeID
	for _, scc := range g.tarjanSCC() {
		if len(scc) < 2 {
			continue
		}
		if cyclic == nil || minNode(scc) < minNode(cyclic) {
			cyclic = scc
		}
	}
	if cyclic == nil {
		// Unreachable: TopoOrder only calls this when nodes are left over.
		return ir.NewCycleError(nil)
	}

	path := g.reconstructCyclePath(cyclic)
	labels := make([]string, len(path))
	for i, n := range path {
		labels[i] = g.Label(n)
	}
	return ir.NewCycleError(labels)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
func (g *Graph) tarjanSCC() [][]NodeID {
	var (
		index   = 0
		stack   []NodeID
		indices = make(map[NodeID]int)
		lowlink = make(map[NodeID]int)
		onStack = make(map[NodeID]bool)
		sccs    [][]NodeID
	)

	var strongConnect func(NodeID)
	strongConnect = func(v NodeID) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.out[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit an SCC
		if lowlink[v] == indices[v] {
			var scc []NodeID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for i := range g.nodes {
		if _, visited := indices[NodeID(i)]; !visited {
			strongConnect(NodeID(i))
		}
	}
	return sccs
}

// reconstructCyclePath follows edges inside an SCC from its lowest member
// until it returns there. The result starts and ends at the same node.
func (g *Graph) reconstructCyclePath(scc []NodeID) []NodeID {
	member := make(map[NodeID]bool, len(scc))
	for _, n := range scc {
		member[n] = true
	}

	start := minNode(scc)
	current := start
	path := []NodeID{current}
	visited := make(map[NodeID]bool)

	for {
		visited[current] = true

		next := NodeID(-1)
		// Prefer closing the cycle as soon as possible.
		for _, w := range g.out[current] {
			if w == start {
				next = w
				break
			}
		}
		if next < 0 {
			for _, w := range g.out[current] {
				if member[w] && !visited[w] {
					next = w
					break
				}
			}
		}
		if next < 0 {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}

func minNode(ns []NodeID) NodeID {
	m := ns[0]
	for _, n := range ns[1:] {
		if n < m {
			m = n
		}
	}
	return m
}
