// Package cfg provides a small adjacency-list control-flow graph with a
// deterministic node and edge order, suitable as input to the fixpoint
// iterator.
package cfg

import "golang.org/x/exp/slices"

// A Graph is a directed graph with a designated entry node. Nodes and edges
// keep their insertion order; duplicate edges are ignored.
type Graph[N comparable] struct {
	entry N
	nodes []N
	succs map[N][]N
	preds map[N][]N
	seen  map[N]bool
	edges map[[2]N]bool
}

// New returns a graph containing only the entry node.
func New[N comparable](entry N) *Graph[N] {
	g := &Graph[N]{
		entry: entry,
		succs: map[N][]N{},
		preds: map[N][]N{},
		seen:  map[N]bool{},
		edges: map[[2]N]bool{},
	}
	g.AddNode(entry)
	return g
}

// AddNode adds n to the graph if it is not present yet.
func (g *Graph[N]) AddNode(n N) {
	if g.seen[n] {
		return
	}
	g.seen[n] = true
	g.nodes = append(g.nodes, n)
}

// AddEdge adds the edge from→to, inserting endpoints as needed.
func (g *Graph[N]) AddEdge(from, to N) {
	g.AddNode(from)
	g.AddNode(to)
	if g.edges[[2]N{from, to}] {
		return
	}
	g.edges[[2]N{from, to}] = true
	g.succs[from] = append(g.succs[from], to)
	g.preds[to] = append(g.preds[to], from)
}

// HasNode reports whether n is in the graph.
func (g *Graph[N]) HasNode(n N) bool { return g.seen[n] }

// Nodes returns all nodes in insertion order.
func (g *Graph[N]) Nodes() []N { return slices.Clone(g.nodes) }

func (g *Graph[N]) Entry() N { return g.entry }

func (g *Graph[N]) Successors(n N) []N { return slices.Clone(g.succs[n]) }

func (g *Graph[N]) Predecessors(n N) []N { return slices.Clone(g.preds[n]) }
