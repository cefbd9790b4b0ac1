// Package interval implements the interval abstract domain over extended
// integers: the lattice of [lo, hi] ranges with union hulls as joins,
// bound-dropping widening and the standard interval narrowing that refines
// only infinite bounds.
package interval

import "fmt"

// An Interval is either the empty interval, which is the lattice's bottom
// element, or a range [lo, hi] with lo ≤ hi over extended integers.
// Intervals are immutable; the zero value is the empty interval.
type Interval struct {
	nonempty bool
	lo, hi   Z
}

// Empty returns the empty interval.
func Empty() Interval { return Interval{} }

// Top returns [-∞, +∞].
func Top() Interval { return Interval{nonempty: true, lo: NegInf, hi: PosInf} }

// New returns [lo, hi], or the empty interval if hi < lo.
func New(lo, hi Z) Interval {
	if hi.Cmp(lo) < 0 {
		return Interval{}
	}
	return Interval{nonempty: true, lo: lo, hi: hi}
}

// Const returns the singleton interval [n, n].
func Const(n int64) Interval {
	z := NewZ(n)
	return Interval{nonempty: true, lo: z, hi: z}
}

// AtLeast returns [lo, +∞].
func AtLeast(lo Z) Interval { return New(lo, PosInf) }

// AtMost returns [-∞, hi].
func AtMost(hi Z) Interval { return New(NegInf, hi) }

func (i Interval) IsEmpty() bool { return !i.nonempty }

// Lower returns the lower bound. It panics on the empty interval.
func (i Interval) Lower() Z {
	if i.IsEmpty() {
		panic("Lower called on the empty interval")
	}
	return i.lo
}

// Upper returns the upper bound. It panics on the empty interval.
func (i Interval) Upper() Z {
	if i.IsEmpty() {
		panic("Upper called on the empty interval")
	}
	return i.hi
}

// Leq reports whether i is included in other.
func (i Interval) Leq(other Interval) bool {
	if i.IsEmpty() {
		return true
	}
	if other.IsEmpty() {
		return false
	}
	return other.lo.Cmp(i.lo) <= 0 && i.hi.Cmp(other.hi) <= 0
}

// Equal reports whether the two intervals contain the same values.
func (i Interval) Equal(other Interval) bool {
	return i.Leq(other) && other.Leq(i)
}

// Join returns the union hull of i and other.
func (i Interval) Join(other Interval) Interval {
	if i.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return i
	}
	return New(MinZ(i.lo, other.lo), MaxZ(i.hi, other.hi))
}

// JoinLoop is Join; the domain does not distinguish loop-head merges.
func (i Interval) JoinLoop(other Interval) Interval { return i.Join(other) }

// JoinIter is Join; the domain does not distinguish first-iteration merges.
func (i Interval) JoinIter(other Interval) Interval { return i.Join(other) }

// Meet returns the intersection of i and other.
func (i Interval) Meet(other Interval) Interval {
	if i.IsEmpty() || other.IsEmpty() {
		return Interval{}
	}
	return New(MaxZ(i.lo, other.lo), MinZ(i.hi, other.hi))
}

// Widen drops every bound of other that is unstable with respect to i: a
// growing upper bound goes to +∞, a shrinking lower bound to -∞.
func (i Interval) Widen(other Interval) Interval {
	if i.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return i
	}
	lo := i.lo
	if other.lo.Cmp(i.lo) < 0 {
		lo = NegInf
	}
	hi := i.hi
	if i.hi.Cmp(other.hi) < 0 {
		hi = PosInf
	}
	return New(lo, hi)
}

// WidenJumpSet widens like Widen but jumps an unstable bound to the nearest
// enclosing threshold instead of straight to infinity. Thresholds must be
// sorted in ascending order.
func (i Interval) WidenJumpSet(other Interval, thresholds []Z) Interval {
	if i.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return i
	}
	lo := i.lo
	if other.lo.Cmp(i.lo) < 0 {
		lo = NegInf
		for k := len(thresholds) - 1; k >= 0; k-- {
			if thresholds[k].Cmp(other.lo) <= 0 {
				lo = thresholds[k]
				break
			}
		}
	}
	hi := i.hi
	if i.hi.Cmp(other.hi) < 0 {
		hi = PosInf
		for _, t := range thresholds {
			if other.hi.Cmp(t) <= 0 {
				hi = t
				break
			}
		}
	}
	return New(lo, hi)
}

// Narrow refines the infinite bounds of i with the bounds of other and
// keeps the finite ones.
func (i Interval) Narrow(other Interval) Interval {
	if i.IsEmpty() || other.IsEmpty() {
		return Interval{}
	}
	lo := i.lo
	if lo.Equal(NegInf) {
		lo = other.lo
	}
	hi := i.hi
	if hi.Equal(PosInf) {
		hi = other.hi
	}
	return New(lo, hi)
}

// Add returns the sum interval [lo1+lo2, hi1+hi2].
func (i Interval) Add(other Interval) Interval {
	if i.IsEmpty() || other.IsEmpty() {
		return Interval{}
	}
	return New(i.lo.Add(other.lo), i.hi.Add(other.hi))
}

// Sub returns the difference interval [lo1-hi2, hi1-lo2].
func (i Interval) Sub(other Interval) Interval {
	if i.IsEmpty() || other.IsEmpty() {
		return Interval{}
	}
	return New(i.lo.Sub(other.hi), i.hi.Sub(other.lo))
}

// Neg returns the negated interval [-hi, -lo].
func (i Interval) Neg() Interval {
	if i.IsEmpty() {
		return Interval{}
	}
	return New(i.hi.Neg(), i.lo.Neg())
}

func (i Interval) String() string {
	if i.IsEmpty() {
		return "_|_"
	}
	return fmt.Sprintf("[%s, %s]", i.lo, i.hi)
}
