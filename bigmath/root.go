package bigmath

import (
	"math/big"

	"github.com/pkg/errors"
)

// Bracket is an interval [A, B] over which a function changes sign,
// together with the function values at its ends.
type Bracket struct {
	A, FA *big.Float
	B, FB *big.Float
}

// NewBracket evaluates fn at a and b and returns the resulting bracket,
// or ErrNoBracket if the values do not differ in sign.
func NewBracket(fn Func, a, b *big.Float) (Bracket, error) {
	fa, err := fn(a)
	if err != nil {
		return Bracket{}, err
	}
	fb, err := fn(b)
	if err != nil {
		return Bracket{}, err
	}
	br := Bracket{A: a, FA: fa, B: b, FB: fb}
	if !br.Straddles() {
		return br, errors.Wrapf(ErrNoBracket, "f(%s)=%s, f(%s)=%s",
			a.Text('g', 10), fa.Text('g', 10), b.Text('g', 10), fb.Text('g', 10))
	}
	return br, nil
}

// Straddles reports whether the function values at the two ends have
// opposite signs or one of them is zero.
func (br Bracket) Straddles() bool {
	return br.FA.Sign()*br.FB.Sign() <= 0
}

// RootOptions bounds a root search.
type RootOptions struct {
	// MaxSteps is the iteration budget. Zero selects a budget large
	// enough for plain bisection to reach the working precision twice.
	MaxSteps int
	// Tolerance is the relative bracket width at which the search stops.
	// Nil selects 4ε at the bracket's precision.
	Tolerance *big.Float
}

func (o RootOptions) steps(prec uint) int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return 2*int(prec) + 64
}

func (o RootOptions) tolerance(prec uint) *big.Float {
	if o.Tolerance != nil {
		return o.Tolerance
	}
	eps := Epsilon(prec)
	return eps.SetMantExp(eps, 2)
}

// Root is the outcome of a root search, with FX = fn(X). FX is exactly
// zero when the search landed on a root; otherwise X is the better end of
// a bracket narrower than the requested tolerance. FX may share storage
// with the bracket values passed in.
type Root struct {
	X, FX *big.Float
	Steps int
}

// FindRoot searches for a root of fn inside br using false position with
// the Illinois modification, falling back to a bisection step whenever
// an iteration fails to halve the bracket. fn is evaluated only at points
// strictly inside the bracket.
func FindRoot(fn Func, br Bracket, opts RootOptions) (Root, error) {
	if !br.Straddles() {
		return Root{}, ErrNoBracket
	}
	if br.FA.Sign() == 0 {
		return Root{X: br.A, FX: br.FA}, nil
	}
	if br.FB.Sign() == 0 {
		return Root{X: br.B, FX: br.FB}, nil
	}
	prec := MaxPrec(br.A, br.B)
	a, fa := New(prec).Set(br.A), br.FA
	b, fb := New(prec).Set(br.B), br.FB
	// wa and wb are the Illinois weighted values used for interpolation.
	wa, wb := new(big.Float).Copy(fa), new(big.Float).Copy(fb)
	tol := opts.tolerance(prec)
	maxSteps := opts.steps(prec)

	side := 0
	bisect := false
	for step := 1; step <= maxSteps; step++ {
		width := New(prec).Sub(b, a)
		width.Abs(width)
		c := falsePosition(a, wa, b, wb, prec)
		if bisect || !inside(c, a, b) {
			c = midpoint(a, b, prec)
		}
		fc, err := fn(c)
		if err != nil {
			return Root{}, errors.Wrapf(err, "evaluating at %s", c.Text('g', 20))
		}
		if fc.Sign() == 0 {
			return Root{X: c, FX: fc, Steps: step}, nil
		}
		if fc.Sign() == fb.Sign() {
			b, fb, wb = c, fc, new(big.Float).Copy(fc)
			if side == -1 {
				wa.SetMantExp(wa, -1)
			}
			side = -1
		} else {
			a, fa, wa = c, fc, new(big.Float).Copy(fc)
			if side == 1 {
				wb.SetMantExp(wb, -1)
			}
			side = 1
		}
		newWidth := New(prec).Sub(b, a)
		newWidth.Abs(newWidth)
		if narrow(newWidth, a, b, tol) {
			if Abs(fa).Cmp(Abs(fb)) < 0 {
				return Root{X: a, FX: fa, Steps: step}, nil
			}
			return Root{X: b, FX: fb, Steps: step}, nil
		}
		half := New(prec).SetMantExp(width, -1)
		bisect = newWidth.Cmp(half) > 0
	}
	return Root{}, errors.Wrapf(ErrNoConvergence, "root search exceeded %d steps in [%s, %s]",
		maxSteps, a.Text('g', 20), b.Text('g', 20))
}

// falsePosition returns the secant intercept (a·fb - b·fa) / (fb - fa).
func falsePosition(a, fa, b, fb *big.Float, prec uint) *big.Float {
	den := New(prec).Sub(fb, fa)
	if den.Sign() == 0 || den.IsInf() || fa.IsInf() || fb.IsInf() {
		return midpoint(a, b, prec)
	}
	num := New(prec).Mul(a, fb)
	num.Sub(num, New(prec).Mul(b, fa))
	return num.Quo(num, den)
}

func midpoint(a, b *big.Float, prec uint) *big.Float {
	m := New(prec).Add(a, b)
	return m.SetMantExp(m, -1)
}

// inside reports whether c lies strictly between a and b.
func inside(c, a, b *big.Float) bool {
	lo, hi := a, b
	if lo.Cmp(hi) > 0 {
		lo, hi = hi, lo
	}
	return c.Cmp(lo) > 0 && c.Cmp(hi) < 0
}

// narrow reports whether width is within tol of the larger end, or no
// representable point is left between the ends.
func narrow(width, a, b, tol *big.Float) bool {
	if width.Sign() == 0 {
		return true
	}
	scale := Abs(a)
	if bAbs := Abs(b); bAbs.Cmp(scale) > 0 {
		scale = bAbs
	}
	scale.Mul(scale, tol)
	if width.Cmp(scale) <= 0 {
		return true
	}
	m := midpoint(a, b, MaxPrec(a, b))
	return !inside(m, a, b)
}

// Expand searches geometrically from x0 > 0 for a bracket of fn, halving
// or doubling depending on the sign of fx0 = fn(x0). increasing tells
// which side of x0 the root must lie on for a given sign.
func Expand(fn Func, x0, fx0 *big.Float, increasing bool, maxSteps int) (Bracket, int, error) {
	if x0.Sign() <= 0 {
		return Bracket{}, 0, errors.Wrapf(ErrDomain, "expansion from non-positive %s", x0.Text('g', 10))
	}
	shrink := (fx0.Sign() > 0) == increasing
	x, fx := x0, fx0
	for step := 1; step <= maxSteps; step++ {
		next := new(big.Float).Copy(x)
		if shrink {
			next.SetMantExp(next, -1)
		} else {
			next.SetMantExp(next, 1)
		}
		fnext, err := fn(next)
		if err != nil {
			return Bracket{}, step, errors.Wrapf(err, "evaluating at %s", next.Text('g', 20))
		}
		if fnext.Sign()*fx.Sign() <= 0 {
			if shrink {
				return Bracket{A: next, FA: fnext, B: x, FB: fx}, step, nil
			}
			return Bracket{A: x, FA: fx, B: next, FB: fnext}, step, nil
		}
		x, fx = next, fnext
	}
	return Bracket{}, maxSteps, errors.Wrapf(ErrNoBracket, "no sign change within %d expansions of %s",
		maxSteps, x0.Text('g', 20))
}
