package fixpoint

// This file constructs weak topological orderings.
//
// A weak topological ordering decomposes a directed graph into a nested
// list of vertices and cycles, each cycle led by a distinguished head.
// We use the recursive strategy described in F. Bourdoncle. 1993.
// Efficient chaotic iteration strategies with widenings.
// https://doi.org/10.1007/BFb0039704

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// A Component is an element of a weak topological ordering: either a
// Vertex or a *Cycle.
type Component[N comparable] interface {
	// Accept calls the visitor callback matching the component's kind.
	// Visiting a cycle does not descend into its body; the visitor
	// decides whether to recurse.
	Accept(v Visitor[N])
	String() string

	isComponent()
}

// Vertex is a component consisting of a single graph node.
type Vertex[N comparable] struct {
	Node N
}

func (vx Vertex[N]) Accept(v Visitor[N]) { v.VisitVertex(vx.Node) }
func (vx Vertex[N]) String() string      { return fmt.Sprint(vx.Node) }
func (Vertex[N]) isComponent()           {}

// Cycle is a component consisting of a head node followed by a sub-ordering
// of the cycle's body. The head is not part of Body.
type Cycle[N comparable] struct {
	Head N
	Body []Component[N]
}

func (c *Cycle[N]) Accept(v Visitor[N]) { v.VisitCycle(c) }

func (c *Cycle[N]) String() string {
	var sb strings.Builder
	sb.WriteString("(")
	sb.WriteString(fmt.Sprint(c.Head))
	for _, cc := range c.Body {
		sb.WriteString(" ")
		sb.WriteString(cc.String())
	}
	sb.WriteString(")")
	return sb.String()
}

func (*Cycle[N]) isComponent() {}

// A Visitor walks components of a weak topological ordering in order.
type Visitor[N comparable] interface {
	VisitVertex(n N)
	VisitCycle(c *Cycle[N])
}

// Nesting is the chain of cycle heads strictly enclosing a node, outermost
// first. A cycle's head is not enclosed by its own cycle; every node of the
// body, at any depth, is.
type Nesting[N comparable] []N

// DeeperThan reports whether other is a strict prefix of n, i.e. whether n
// belongs to a cycle that other is merely a head or sibling of. Nestings
// that diverge are unordered and compare false in both directions.
func (n Nesting[N]) DeeperThan(other Nesting[N]) bool {
	if len(n) <= len(other) {
		return false
	}
	for i := range other {
		if n[i] != other[i] {
			return false
		}
	}
	return true
}

// WTO is a weak topological ordering of the nodes reachable from a graph's
// entry. Unreachable nodes appear in no component and have an empty nesting.
type WTO[N comparable] struct {
	// Components holds the outermost level of the ordering.
	Components []Component[N]

	nesting map[N]Nesting[N]
}

// BuildWTO computes the weak topological ordering of g.
func BuildWTO[N comparable](g Graph[N]) *WTO[N] {
	b := &wtoBuilder[N]{
		g:   g,
		dfn: map[N]int{},
	}
	var components []Component[N]
	b.visit(g.Entry(), &components)
	slices.Reverse(components)

	w := &WTO[N]{
		Components: components,
		nesting:    map[N]Nesting[N]{},
	}
	w.collectNesting(components, nil)
	return w
}

// Nesting returns the chain of cycle heads enclosing n.
func (w *WTO[N]) Nesting(n N) Nesting[N] { return w.nesting[n] }

// Accept visits the outermost components in order.
func (w *WTO[N]) Accept(v Visitor[N]) {
	for _, c := range w.Components {
		c.Accept(v)
	}
}

func (w *WTO[N]) String() string {
	parts := make([]string, len(w.Components))
	for i, c := range w.Components {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func (w *WTO[N]) collectNesting(cs []Component[N], chain Nesting[N]) {
	for _, c := range cs {
		switch c := c.(type) {
		case Vertex[N]:
			w.nesting[c.Node] = chain
		case *Cycle[N]:
			w.nesting[c.Head] = chain
			inner := append(slices.Clone(chain), c.Head)
			w.collectNesting(c.Body, inner)
		}
	}
}

const unnumbered = 0

// dfn of a node that finished its visit. Any value larger than every
// depth-first number works.
const done = int(^uint(0) >> 1)

type wtoBuilder[N comparable] struct {
	g     Graph[N]
	dfn   map[N]int
	num   int
	stack []N
}

func (b *wtoBuilder[N]) push(n N) { b.stack = append(b.stack, n) }

func (b *wtoBuilder[N]) pop() N {
	n := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	return n
}

// visit numbers v and its unvisited successors depth-first, appending
// finished components to partition in reverse order. It returns the
// smallest depth-first number reachable from v without leaving the stack.
func (b *wtoBuilder[N]) visit(v N, partition *[]Component[N]) int {
	b.push(v)
	b.num++
	b.dfn[v] = b.num
	head := b.num
	loop := false
	for _, succ := range b.g.Successors(v) {
		min := b.dfn[succ]
		if min == unnumbered {
			min = b.visit(succ, partition)
		}
		if min <= head {
			head = min
			loop = true
		}
	}
	if head == b.dfn[v] {
		b.dfn[v] = done
		elem := b.pop()
		if loop {
			for elem != v {
				// Unnumber the cycle's members so that component can
				// traverse them again.
				b.dfn[elem] = unnumbered
				elem = b.pop()
			}
			*partition = append(*partition, b.component(v))
		} else {
			*partition = append(*partition, Vertex[N]{Node: v})
		}
	}
	return head
}

// component rebuilds the sub-ordering of the cycle led by v. Successors
// outside the cycle kept their numbering and are skipped.
func (b *wtoBuilder[N]) component(v N) Component[N] {
	var body []Component[N]
	for _, succ := range b.g.Successors(v) {
		if b.dfn[succ] == unnumbered {
			b.visit(succ, &body)
		}
	}
	slices.Reverse(body)
	return &Cycle[N]{Head: v, Body: body}
}
