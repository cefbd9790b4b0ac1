package interval

import (
	"fmt"
	"math/big"
)

// Z is an arbitrary-precision integer extended with -∞ and +∞.
type Z struct {
	inf int8 // -1, 0 or 1
	n   *big.Int
}

var (
	NegInf = Z{inf: -1}
	PosInf = Z{inf: 1}
)

// NewZ returns the finite extended integer n.
func NewZ(n int64) Z { return Z{n: big.NewInt(n)} }

// NewBigZ returns the finite extended integer n. The argument is copied.
func NewBigZ(n *big.Int) Z { return Z{n: new(big.Int).Set(n)} }

func (z Z) Infinite() bool { return z.inf != 0 }

func (z Z) Sign() int {
	if z.inf != 0 {
		return int(z.inf)
	}
	return z.n.Sign()
}

func (z Z) Cmp(other Z) int {
	if z.inf != 0 || other.inf != 0 {
		switch {
		case z.inf == other.inf:
			return 0
		case z.inf < other.inf:
			return -1
		default:
			return 1
		}
	}
	return z.n.Cmp(other.n)
}

func (z Z) Add(other Z) Z {
	if z.inf != 0 {
		if other.inf == -z.inf {
			panic(fmt.Sprintf("%s + %s is not defined", z, other))
		}
		return z
	}
	if other.inf != 0 {
		return other
	}
	return Z{n: new(big.Int).Add(z.n, other.n)}
}

func (z Z) Sub(other Z) Z { return z.Add(other.Neg()) }

func (z Z) Neg() Z {
	if z.inf != 0 {
		return Z{inf: -z.inf}
	}
	return Z{n: new(big.Int).Neg(z.n)}
}

// Int64 returns the finite value of z. It panics on infinities and
// truncates values outside the int64 range.
func (z Z) Int64() int64 {
	if z.inf != 0 {
		panic(fmt.Sprintf("%s is not finite", z))
	}
	return z.n.Int64()
}

func (z Z) String() string {
	switch z.inf {
	case -1:
		return "-oo"
	case 1:
		return "+oo"
	}
	return z.n.String()
}

// Equal reports exact equality, including of infinities.
func (z Z) Equal(other Z) bool { return z.Cmp(other) == 0 }

func MinZ(zs ...Z) Z {
	if len(zs) == 0 {
		panic("MinZ called with no arguments")
	}
	min := zs[0]
	for _, z := range zs[1:] {
		if z.Cmp(min) < 0 {
			min = z
		}
	}
	return min
}

func MaxZ(zs ...Z) Z {
	if len(zs) == 0 {
		panic("MaxZ called with no arguments")
	}
	max := zs[0]
	for _, z := range zs[1:] {
		if z.Cmp(max) > 0 {
			max = z
		}
	}
	return max
}
