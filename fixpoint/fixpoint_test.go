package fixpoint_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/benjaminjellison/ikos/cfg"
	"github.com/benjaminjellison/ikos/fixpoint"
	"github.com/benjaminjellison/ikos/interval"
)

// intervalAnalyzer runs tests in the interval domain with per-test transfer
// functions. A nil function is the identity.
type intervalAnalyzer struct {
	node func(n string, v interval.Interval) interval.Interval
	edge func(src, dst string, v interval.Interval) interval.Interval
}

func (a *intervalAnalyzer) Bottom() interval.Interval { return interval.Empty() }

func (a *intervalAnalyzer) AnalyzeNode(n string, v interval.Interval) interval.Interval {
	if a.node == nil {
		return v
	}
	return a.node(n, v)
}

func (a *intervalAnalyzer) AnalyzeEdge(src, dst string, v interval.Interval) interval.Interval {
	if a.edge == nil {
		return v
	}
	return a.edge(src, dst, v)
}

// joinAnalyzer extrapolates with plain joins. Only sound on chains of
// finite height.
type joinAnalyzer struct {
	intervalAnalyzer
}

func (a *joinAnalyzer) Extrapolate(head string, iteration int, before, after interval.Interval) interval.Interval {
	return before.Join(after)
}

// recordingAnalyzer records the post-processing order.
type recordingAnalyzer struct {
	intervalAnalyzer
	calls []string
}

func (a *recordingAnalyzer) ProcessPre(n string, v interval.Interval) {
	a.calls = append(a.calls, fmt.Sprintf("pre %s %s", n, v))
}

func (a *recordingAnalyzer) ProcessPost(n string, v interval.Interval) {
	a.calls = append(a.calls, fmt.Sprintf("post %s %s", n, v))
}

func incr(k int64) func(string, interval.Interval) interval.Interval {
	return func(_ string, v interval.Interval) interval.Interval {
		return v.Add(interval.Const(k))
	}
}

// guardedLoop is the canonical bounded counting loop: B is the head, C
// increments, the loop test keeps C's input at most 9, and the exit edge
// into D asserts the test's negation.
func guardedLoop() (*cfg.Graph[string], *intervalAnalyzer) {
	g := cfg.New("A")
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "B")
	g.AddEdge("C", "D")
	a := &intervalAnalyzer{
		node: func(n string, v interval.Interval) interval.Interval {
			if n == "C" {
				return v.Add(interval.Const(1))
			}
			return v
		},
		edge: func(src, dst string, v interval.Interval) interval.Interval {
			switch {
			case src == "B" && dst == "C":
				return v.Meet(interval.AtMost(interval.NewZ(9)))
			case src == "C" && dst == "D":
				return v.Meet(interval.AtLeast(interval.NewZ(10)))
			}
			return v
		},
	}
	return g, a
}

func checkInvariant(t *testing.T, it *fixpoint.Interleaved[string, interval.Interval], n string, pre, post interval.Interval) {
	t.Helper()
	if got := it.Pre(n); !got.Equal(pre) {
		t.Errorf("Pre(%s) = %s, want %s", n, got, pre)
	}
	if got := it.Post(n); !got.Equal(post) {
		t.Errorf("Post(%s) = %s, want %s", n, got, post)
	}
}

func TestStraightLine(t *testing.T) {
	g := cfg.New("A")
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	it := fixpoint.New[string, interval.Interval](g, &intervalAnalyzer{node: incr(1)})
	it.Run(interval.Const(0))

	checkInvariant(t, it, "A", interval.Const(0), interval.Const(1))
	checkInvariant(t, it, "B", interval.Const(1), interval.Const(2))
	checkInvariant(t, it, "C", interval.Const(2), interval.Const(3))
}

func TestSimpleLoop(t *testing.T) {
	g := cfg.New("A")
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "B")
	g.AddEdge("C", "D")
	a := &intervalAnalyzer{
		node: func(n string, v interval.Interval) interval.Interval {
			if n == "C" {
				return v.Add(interval.Const(1))
			}
			return v
		},
	}
	it := fixpoint.New[string, interval.Interval](g, a)
	it.Run(interval.Const(0))

	// Without a guard, narrowing cannot recover a finite upper bound.
	zeroUp := interval.AtLeast(interval.NewZ(0))
	oneUp := interval.AtLeast(interval.NewZ(1))
	checkInvariant(t, it, "B", zeroUp, zeroUp)
	checkInvariant(t, it, "C", zeroUp, oneUp)
	checkInvariant(t, it, "D", oneUp, oneUp)
}

func TestGuardedLoop(t *testing.T) {
	g, a := guardedLoop()
	it := fixpoint.New[string, interval.Interval](g, a)
	it.Run(interval.Const(0))

	zeroToTen := interval.New(interval.NewZ(0), interval.NewZ(10))
	checkInvariant(t, it, "A", interval.Const(0), interval.Const(0))
	checkInvariant(t, it, "B", zeroToTen, zeroToTen)
	checkInvariant(t, it, "C", interval.New(interval.NewZ(0), interval.NewZ(9)), interval.New(interval.NewZ(1), interval.NewZ(10)))
	checkInvariant(t, it, "D", interval.Const(10), interval.Const(10))
}

func TestNestedLoops(t *testing.T) {
	g := cfg.New("A")
	g.AddEdge("A", "H1")
	g.AddEdge("H1", "H2")
	g.AddEdge("H2", "B")
	g.AddEdge("B", "H2")
	g.AddEdge("B", "H1")
	g.AddEdge("H1", "D")
	a := &intervalAnalyzer{node: func(n string, v interval.Interval) interval.Interval {
		if n == "B" {
			return v.Add(interval.Const(1))
		}
		return v
	}}
	it := fixpoint.New[string, interval.Interval](g, a)
	it.Run(interval.Const(0))

	zeroUp := interval.AtLeast(interval.NewZ(0))
	checkInvariant(t, it, "H1", zeroUp, zeroUp)
	checkInvariant(t, it, "H2", zeroUp, zeroUp)
	checkInvariant(t, it, "B", zeroUp, interval.AtLeast(interval.NewZ(1)))
	checkInvariant(t, it, "D", zeroUp, zeroUp)

	checkSoundness(t, it, g, a)
}

// checkSoundness verifies that every non-entry node's pre invariant covers
// the join of its predecessors' abstracted post invariants, and that post
// invariants cover the node transfer of the final pre.
func checkSoundness(t *testing.T, it *fixpoint.Interleaved[string, interval.Interval], g *cfg.Graph[string], a *intervalAnalyzer) {
	t.Helper()
	for _, n := range g.Nodes() {
		if n != g.Entry() {
			flowed := interval.Empty()
			for _, p := range g.Predecessors(n) {
				flowed = flowed.Join(a.AnalyzeEdge(p, n, it.Post(p)))
			}
			if !flowed.Leq(it.Pre(n)) {
				t.Errorf("pre invariant of %s is unsound: %s does not cover %s", n, it.Pre(n), flowed)
			}
		}
		if !a.AnalyzeNode(n, it.Pre(n)).Leq(it.Post(n)) {
			t.Errorf("post invariant of %s is unsound: %s does not cover node(%s)", n, it.Post(n), it.Pre(n))
		}
	}
}

func TestSoundness(t *testing.T) {
	g, a := guardedLoop()
	it := fixpoint.New[string, interval.Interval](g, a)
	it.Run(interval.Const(0))
	checkSoundness(t, it, g, a)
}

func TestUnreachableNode(t *testing.T) {
	g := cfg.New("A")
	g.AddEdge("A", "B")
	g.AddNode("X")
	g.AddEdge("X", "B")
	it := fixpoint.New[string, interval.Interval](g, &intervalAnalyzer{node: incr(1)})
	it.Run(interval.Const(0))

	if !it.Pre("X").IsEmpty() || !it.Post("X").IsEmpty() {
		t.Errorf("unreachable node has pre %s, post %s, want bottom", it.Pre("X"), it.Post("X"))
	}
	// The dead edge X -> B contributes bottom and is absorbed by the join.
	checkInvariant(t, it, "B", interval.Const(1), interval.Const(2))
}

func TestEntryInCycle(t *testing.T) {
	g := cfg.New("E")
	g.AddEdge("E", "E")

	it := fixpoint.New[string, interval.Interval](g, &intervalAnalyzer{})
	it.Run(interval.Const(0))
	// The identity self loop reaches the fixpoint immediately; narrowing
	// must not erase the seed.
	checkInvariant(t, it, "E", interval.Const(0), interval.Const(0))

	it = fixpoint.New[string, interval.Interval](g, &intervalAnalyzer{node: incr(1)})
	it.Run(interval.Const(0))
	zeroUp := interval.AtLeast(interval.NewZ(0))
	checkInvariant(t, it, "E", zeroUp, interval.AtLeast(interval.NewZ(1)))
}

func TestMonotonicity(t *testing.T) {
	g, a := guardedLoop()

	it1 := fixpoint.New[string, interval.Interval](g, a)
	it1.Run(interval.Const(0))
	it2 := fixpoint.New[string, interval.Interval](g, a)
	it2.Run(interval.New(interval.NewZ(-1), interval.NewZ(1)))

	for _, n := range g.Nodes() {
		if !it1.Pre(n).Leq(it2.Pre(n)) {
			t.Errorf("Pre(%s): %s not below %s", n, it1.Pre(n), it2.Pre(n))
		}
		if !it1.Post(n).Leq(it2.Post(n)) {
			t.Errorf("Post(%s): %s not below %s", n, it1.Post(n), it2.Post(n))
		}
	}
}

func TestRunClearRun(t *testing.T) {
	g, a := guardedLoop()
	it := fixpoint.New[string, interval.Interval](g, a)

	snapshot := func() map[string][2]interval.Interval {
		m := map[string][2]interval.Interval{}
		for _, n := range g.Nodes() {
			m[n] = [2]interval.Interval{it.Pre(n), it.Post(n)}
		}
		return m
	}

	it.Run(interval.Const(0))
	first := snapshot()
	it.Clear()
	for _, n := range g.Nodes() {
		if !it.Pre(n).IsEmpty() || !it.Post(n).IsEmpty() {
			t.Fatalf("Clear left invariants for %s", n)
		}
	}
	it.Run(interval.Const(0))
	if diff := cmp.Diff(first, snapshot()); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestProcessOrder(t *testing.T) {
	g, base := guardedLoop()
	a := &recordingAnalyzer{intervalAnalyzer: *base}
	it := fixpoint.New[string, interval.Interval](g, a)
	it.Run(interval.Const(0))

	want := []string{
		"pre A [0, 0]",
		"post A [0, 0]",
		"pre B [0, 10]",
		"post B [0, 10]",
		"pre C [0, 9]",
		"post C [1, 10]",
		"pre D [10, 10]",
		"post D [10, 10]",
	}
	if diff := cmp.Diff(want, a.calls); diff != "" {
		t.Errorf("processing order differs (-want +got):\n%s", diff)
	}

	first := a.calls
	a.calls = nil
	it.Clear()
	it.Run(interval.Const(0))
	if diff := cmp.Diff(first, a.calls); diff != "" {
		t.Errorf("processing order not deterministic (-first +second):\n%s", diff)
	}
}

func TestJoinExtrapolationTerminates(t *testing.T) {
	// With the bounded loop the ascending chain is finite, so joining
	// instead of widening terminates and yields the exact fixpoint with
	// no intermediate infinity.
	g, base := guardedLoop()
	a := &joinAnalyzer{intervalAnalyzer: *base}
	it := fixpoint.New[string, interval.Interval](g, a)
	it.Run(interval.Const(0))

	zeroToTen := interval.New(interval.NewZ(0), interval.NewZ(10))
	checkInvariant(t, it, "B", zeroToTen, zeroToTen)
	checkInvariant(t, it, "D", interval.Const(10), interval.Const(10))
}
