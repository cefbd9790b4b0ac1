// Package fixpoint computes abstract-interpretation fixpoints over
// control-flow graphs.
//
// The iterator visits a weak topological ordering of the graph and runs, at
// each cycle head, an increasing phase that extrapolates with widening
// followed immediately by a decreasing phase that refines with narrowing.
// The interleaving of the two phases per cycle is described in G. Amato and
// F. Scozzari. 2013. Localizing widening and narrowing. SAS 2013, LNCS 7935.
//
// The iterator is parameterized over the node handle, the abstract value,
// and an analyzer supplying the transfer functions. It performs no I/O and
// holds no locks; distinct iterators are independent.
package fixpoint

// A Graph describes a control-flow graph with a single entry node. Node
// handles must be stable and comparable for the lifetime of the graph.
// Successors and Predecessors must agree and should enumerate nodes in a
// deterministic order.
type Graph[N comparable] interface {
	Entry() N
	Successors(n N) []N
	Predecessors(n N) []N
}

// A Value is an element of a bounded lattice. All operators are pure.
//
// The laws assumed by the iterator: the bottom element is the identity of
// Join; Leq is a partial order with bottom below everything; Widen is an
// upper bound whose repeated application stabilizes every ascending chain;
// Narrow returns a value between its second argument's meet with the first
// and the first, and stabilizes every descending chain.
type Value[V any] interface {
	Leq(other V) bool
	// Join returns the least upper bound approximation used at ordinary
	// control-flow merges.
	Join(other V) V
	// JoinLoop merges the incoming and the back-edge contributions at a
	// cycle head. Most domains implement it as Join.
	JoinLoop(other V) V
	// JoinIter joins the previous and the next head value on the first
	// increasing iteration, before widening kicks in.
	JoinIter(other V) V
	Widen(other V) V
	Narrow(other V) V
}

// An Analyzer supplies the domain and the transfer functions of an analysis.
//
// Callbacks must not mutate the iterator's tables and must not re-enter Run
// on the same iterator. An analyzer may additionally implement Extrapolator,
// Refiner, IncreasingFixpointChecker, DecreasingFixpointChecker and
// Processor to override the iteration strategy and observe results.
type Analyzer[N comparable, V Value[V]] interface {
	// Bottom returns the domain's bottom element.
	Bottom() V
	// AnalyzeNode is the transfer function: the abstract state after
	// executing n from state in.
	AnalyzeNode(n N, in V) V
	// AnalyzeEdge abstracts the edge src→dst, e.g. by refining out with
	// the branch condition the edge encodes.
	AnalyzeEdge(src, dst N, out V) V
}

// An Extrapolator overrides the increasing-phase extrapolation at cycle
// heads, e.g. to delay widening or widen with thresholds. The default is
// before.JoinIter(after) on the first iteration and before.Widen(after)
// afterwards.
type Extrapolator[N comparable, V Value[V]] interface {
	Extrapolate(head N, iteration int, before, after V) V
}

// A Refiner overrides the decreasing-phase refinement at cycle heads. The
// default is before.Narrow(after).
type Refiner[N comparable, V Value[V]] interface {
	Refine(head N, iteration int, before, after V) V
}

// An IncreasingFixpointChecker overrides the convergence test of the
// increasing phase. The default is after.Leq(before).
type IncreasingFixpointChecker[V Value[V]] interface {
	IsIncreasingFixpoint(before, after V) bool
}

// A DecreasingFixpointChecker overrides the convergence test of the
// decreasing phase. The default is before.Leq(after).
type DecreasingFixpointChecker[V Value[V]] interface {
	IsDecreasingFixpoint(before, after V) bool
}

// A Processor receives the final invariants, in WTO order, after the
// fixpoint converged.
type Processor[N comparable, V Value[V]] interface {
	ProcessPre(n N, v V)
	ProcessPost(n N, v V)
}

// An invariant table maps nodes to abstract values, defaulting absent
// entries to bottom. Entries materialize lazily on reads.
type table[N comparable, V any] struct {
	m      map[N]V
	bottom func() V
}

func newTable[N comparable, V any](bottom func() V) *table[N, V] {
	return &table[N, V]{m: map[N]V{}, bottom: bottom}
}

func (t *table[N, V]) get(n N) V {
	if v, ok := t.m[n]; ok {
		return v
	}
	v := t.bottom()
	t.m[n] = v
	return v
}

func (t *table[N, V]) set(n N, v V) { t.m[n] = v }

// Interleaved is a forward fixpoint iterator that interleaves widening and
// narrowing per cycle. One iterator owns one graph reference, one weak
// topological ordering and two invariant tables. It must not be used from
// multiple goroutines.
type Interleaved[N comparable, V Value[V]] struct {
	graph    Graph[N]
	wto      *WTO[N]
	analyzer Analyzer[N, V]

	pre  *table[N, V]
	post *table[N, V]
}

// New creates an iterator for g, building the weak topological ordering
// eagerly.
func New[N comparable, V Value[V]](g Graph[N], a Analyzer[N, V]) *Interleaved[N, V] {
	it := &Interleaved[N, V]{
		graph:    g,
		wto:      BuildWTO[N](g),
		analyzer: a,
	}
	it.reset()
	return it
}

func (it *Interleaved[N, V]) reset() {
	it.pre = newTable[N, V](it.analyzer.Bottom)
	it.post = newTable[N, V](it.analyzer.Bottom)
}

// Graph returns the control-flow graph.
func (it *Interleaved[N, V]) Graph() Graph[N] { return it.graph }

// WTO returns the weak topological ordering of the graph.
func (it *Interleaved[N, V]) WTO() *WTO[N] { return it.wto }

// Pre returns the invariant at n's entry. It is bottom for nodes the last
// Run did not reach.
func (it *Interleaved[N, V]) Pre(n N) V { return it.pre.get(n) }

// Post returns the invariant at n's exit.
func (it *Interleaved[N, V]) Post(n N) V { return it.post.get(n) }

// Clear discards all invariants. The weak topological ordering is retained
// and Run may be called again.
func (it *Interleaved[N, V]) Clear() { it.reset() }

// Run computes the fixpoint, seeding the entry node's pre invariant with
// init, then delivers the results to the analyzer's Processor callbacks if
// it has any. Call Clear before re-running an iterator that holds
// invariants from an earlier Run.
func (it *Interleaved[N, V]) Run(init V) {
	it.pre.set(it.graph.Entry(), init)
	it.wto.Accept(&wtoIterator[N, V]{it: it})
	if p, ok := it.analyzer.(Processor[N, V]); ok {
		it.wto.Accept(&wtoProcessor[N, V]{it: it, sink: p})
	}
}

func (it *Interleaved[N, V]) extrapolate(head N, iteration int, before, after V) V {
	if x, ok := it.analyzer.(Extrapolator[N, V]); ok {
		return x.Extrapolate(head, iteration, before, after)
	}
	if iteration <= 1 {
		return before.JoinIter(after)
	}
	return before.Widen(after)
}

func (it *Interleaved[N, V]) refine(head N, iteration int, before, after V) V {
	if r, ok := it.analyzer.(Refiner[N, V]); ok {
		return r.Refine(head, iteration, before, after)
	}
	return before.Narrow(after)
}

func (it *Interleaved[N, V]) isIncreasingFixpoint(before, after V) bool {
	if c, ok := it.analyzer.(IncreasingFixpointChecker[V]); ok {
		return c.IsIncreasingFixpoint(before, after)
	}
	return after.Leq(before)
}

func (it *Interleaved[N, V]) isDecreasingFixpoint(before, after V) bool {
	if c, ok := it.analyzer.(DecreasingFixpointChecker[V]); ok {
		return c.IsDecreasingFixpoint(before, after)
	}
	return before.Leq(after)
}

type iterationKind int

const (
	increasing iterationKind = iota
	decreasing
)

// wtoIterator drives the fixpoint computation over the weak topological
// ordering.
type wtoIterator[N comparable, V Value[V]] struct {
	it *Interleaved[N, V]
}

func (w *wtoIterator[N, V]) VisitVertex(n N) {
	it := w.it
	pre := it.analyzer.Bottom()
	if n == it.graph.Entry() {
		// The seeded initial invariant.
		pre = it.pre.get(n)
	}
	for _, p := range it.graph.Predecessors(n) {
		pre = pre.Join(it.analyzer.AnalyzeEdge(p, n, it.post.get(p)))
	}
	it.pre.set(n, pre)
	it.post.set(n, it.analyzer.AnalyzeNode(n, pre))
}

func (w *wtoIterator[N, V]) VisitCycle(c *Cycle[N]) {
	it := w.it
	head := c.Head
	nesting := it.wto.Nesting(head)

	// A predecessor strictly inside the cycle is a back edge; any other,
	// including the head's own self loop, contributes to the incoming join.
	backEdge := func(p N) bool {
		return it.wto.Nesting(p).DeeperThan(nesting)
	}

	// When the entry sits inside the cycle its seeded invariant is folded
	// into every incoming join, so narrowing cannot refine it away.
	seed := it.analyzer.Bottom()
	if head == it.graph.Entry() {
		seed = it.pre.get(head)
	}

	pre := seed
	for _, p := range it.graph.Predecessors(head) {
		if !backEdge(p) {
			pre = pre.Join(it.analyzer.AnalyzeEdge(p, head, it.post.get(p)))
		}
	}

	kind := increasing
	for iteration := 1; ; iteration++ {
		it.pre.set(head, pre)
		it.post.set(head, it.analyzer.AnalyzeNode(head, pre))

		for _, cc := range c.Body {
			cc.Accept(w)
		}

		// The body visit above rewrote the post invariants of the
		// back-edge predecessors; both joins must observe the new values.
		in := seed
		for _, p := range it.graph.Predecessors(head) {
			if !backEdge(p) {
				in = in.Join(it.analyzer.AnalyzeEdge(p, head, it.post.get(p)))
			}
		}
		back := it.analyzer.Bottom()
		for _, p := range it.graph.Predecessors(head) {
			if backEdge(p) {
				back = back.Join(it.analyzer.AnalyzeEdge(p, head, it.post.get(p)))
			}
		}
		newPre := in.JoinLoop(back)

		if kind == increasing {
			if it.isIncreasingFixpoint(pre, newPre) {
				// Reuse this iteration as the first decreasing one.
				kind = decreasing
				iteration = 1
			} else {
				pre = it.extrapolate(head, iteration, pre, newPre)
				continue
			}
		}

		newPre = it.refine(head, iteration, pre, newPre)
		if it.isDecreasingFixpoint(pre, newPre) {
			// No more refinement possible. The refined value is stored
			// without re-running the node transfer, matching the
			// iteration scheme: post(head) keeps the last computed exit
			// state.
			it.pre.set(head, newPre)
			return
		}
		pre = newPre
	}
}

// wtoProcessor delivers final invariants to the analyzer's sinks, in WTO
// order.
type wtoProcessor[N comparable, V Value[V]] struct {
	it   *Interleaved[N, V]
	sink Processor[N, V]
}

func (w *wtoProcessor[N, V]) VisitVertex(n N) {
	w.sink.ProcessPre(n, w.it.pre.get(n))
	w.sink.ProcessPost(n, w.it.post.get(n))
}

func (w *wtoProcessor[N, V]) VisitCycle(c *Cycle[N]) {
	w.VisitVertex(c.Head)
	for _, cc := range c.Body {
		cc.Accept(w)
	}
}
