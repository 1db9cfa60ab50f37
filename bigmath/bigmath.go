// Package bigmath provides the arbitrary-precision numerics needed to
// compute ziggurat tables: elementary functions on big.Float, a bracketed
// derivative-free root finder and quadrature over half-infinite intervals.
//
// Functions in this package compute at the precision of their first
// argument unless a precision is passed explicitly. A zero precision is
// never valid; callers are expected to set precision on every value they
// create.
package bigmath

import (
	"math/big"

	"github.com/pkg/errors"
)

var (
	// ErrNoConvergence is returned when an iteration exhausts its budget
	// before meeting its tolerance.
	ErrNoConvergence = errors.New("no convergence")
	// ErrNoBracket is returned when a root search is given, or cannot
	// find, an interval over which the function changes sign.
	ErrNoBracket = errors.New("root not bracketed")
	// ErrDomain is returned when a function is evaluated outside its
	// domain, for instance the logarithm of a negative number.
	ErrDomain = errors.New("argument outside function domain")
)

// Func is a real function evaluated at arbitrary precision. The result
// should carry the precision of x.
type Func func(x *big.Float) (*big.Float, error)

// New returns a zero with the given precision.
func New(prec uint) *big.Float {
	return new(big.Float).SetPrec(prec)
}

// Int returns v with the given precision.
func Int(v int64, prec uint) *big.Float {
	return new(big.Float).SetPrec(prec).SetInt64(v)
}

// Float returns v with the given precision.
func Float(v float64, prec uint) *big.Float {
	return new(big.Float).SetPrec(prec).SetFloat64(v)
}

// Pow2 returns 2**exp with the given precision.
func Pow2(exp int, prec uint) *big.Float {
	return new(big.Float).SetPrec(prec).SetMantExp(big.NewFloat(1), exp)
}

// Epsilon returns the machine epsilon for a precision, 2**(1-prec): the
// gap between 1 and the next representable value.
func Epsilon(prec uint) *big.Float {
	return Pow2(1-int(prec), prec)
}

// Abs returns |x| as a new value.
func Abs(x *big.Float) *big.Float {
	return new(big.Float).Abs(x)
}

// MaxPrec returns the larger precision of the given values.
func MaxPrec(xs ...*big.Float) uint {
	var prec uint
	for _, x := range xs {
		if x.Prec() > prec {
			prec = x.Prec()
		}
	}
	return prec
}

// AlmostEqual reports whether a and b differ by at most eps, either
// absolutely or relative to the larger magnitude.
func AlmostEqual(a, b, eps *big.Float) bool {
	prec := MaxPrec(a, b, eps)
	diff := New(prec).Sub(a, b)
	diff.Abs(diff)
	if diff.Cmp(eps) <= 0 {
		return true
	}
	scale := Abs(a)
	if bAbs := Abs(b); bAbs.Cmp(scale) > 0 {
		scale = bAbs
	}
	scale.Mul(scale, eps)
	return diff.Cmp(scale) <= 0
}

// Floor returns the largest integer not greater than x.
func Floor(x *big.Float) *big.Int {
	i, acc := x.Int(nil)
	if x.Sign() < 0 && acc != big.Exact {
		i.Sub(i, big.NewInt(1))
	}
	return i
}

// FloorRat returns the largest integer not greater than the rational r.
func FloorRat(r *big.Rat) *big.Int {
	// Denom is always positive, so Euclidean division floors.
	q, _ := new(big.Int).DivMod(r.Num(), r.Denom(), new(big.Int))
	return q
}
