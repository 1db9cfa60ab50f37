package bigmath

import (
	"math/big"
	"sync"

	"github.com/ALTree/bigfloat"
	"github.com/pkg/errors"
)

// guardBits is the extra precision carried through series evaluations.
const guardBits = 32

// maxIntPow bounds the exponents handled by repeated squaring; larger
// integral exponents go through exp/log like any other real exponent.
const maxIntPow = 1 << 20

var (
	constMu sync.Mutex
	piCache = map[uint]*big.Float{}
	eCache  = map[uint]*big.Float{}
)

// memo returns the cached value for prec, computing it with fn on a miss.
func memo(cache map[uint]*big.Float, prec uint, fn func(wp uint) *big.Float) *big.Float {
	constMu.Lock()
	defer constMu.Unlock()
	if c, ok := cache[prec]; ok {
		return new(big.Float).Copy(c)
	}
	c := New(prec).Set(fn(prec + guardBits))
	cache[prec] = c
	return new(big.Float).Copy(c)
}

// Pi returns π rounded to prec bits. Values are memoized per precision.
func Pi(prec uint) *big.Float {
	return memo(piCache, prec, func(wp uint) *big.Float {
		// Machin: π = 16 atan(1/5) - 4 atan(1/239)
		pi := atanInv(5, wp)
		pi.Mul(pi, Int(16, wp))
		return pi.Sub(pi, new(big.Float).Mul(atanInv(239, wp), Int(4, wp)))
	})
}

// E returns Euler's number rounded to prec bits.
func E(prec uint) *big.Float {
	return memo(eCache, prec, func(wp uint) *big.Float {
		return Exp(Int(1, wp))
	})
}

// atanInv returns atan(1/n) for an integer n > 1.
func atanInv(n int64, prec uint) *big.Float {
	inv := New(prec).Quo(Int(1, prec), Int(n, prec))
	nn := Int(n*n, prec)
	power := new(big.Float).Copy(inv)
	sum := new(big.Float).Copy(inv)
	term := New(prec)
	for k := int64(1); ; k++ {
		power.Quo(power, nn)
		term.Quo(power, Int(2*k+1, prec))
		if k&1 == 1 {
			sum.Sub(sum, term)
		} else {
			sum.Add(sum, term)
		}
		if negligible(term, sum, prec) {
			return sum
		}
	}
}

// negligible reports whether adding term can no longer change sum at
// the given precision.
func negligible(term, sum *big.Float, prec uint) bool {
	if term.Sign() == 0 {
		return true
	}
	if sum.Sign() == 0 {
		return false
	}
	return term.MantExp(nil) < sum.MantExp(nil)-int(prec)-2
}

// Exp returns e**x at the precision of x.
func Exp(x *big.Float) *big.Float {
	return bigfloat.Exp(new(big.Float).Copy(x))
}

// Log returns the natural logarithm of x, which must be positive.
func Log(x *big.Float) (*big.Float, error) {
	if x.Sign() <= 0 {
		return nil, errors.Wrapf(ErrDomain, "log(%s)", x.Text('g', 10))
	}
	if x.IsInf() {
		return new(big.Float).Copy(x), nil
	}
	return bigfloat.Log(new(big.Float).Copy(x)), nil
}

// Sqrt returns the square root of x, which must not be negative.
func Sqrt(x *big.Float) (*big.Float, error) {
	if x.Sign() < 0 {
		return nil, errors.Wrapf(ErrDomain, "sqrt(%s)", x.Text('g', 10))
	}
	if x.Sign() == 0 || x.IsInf() {
		return new(big.Float).Copy(x), nil
	}
	return New(x.Prec()).Sqrt(x), nil
}

// Cbrt returns the real cube root of x.
func Cbrt(x *big.Float) (*big.Float, error) {
	if x.Sign() == 0 || x.IsInf() {
		return new(big.Float).Copy(x), nil
	}
	prec := x.Prec()
	wp := prec + guardBits
	third := New(wp).Quo(Int(1, wp), Int(3, wp))
	r, err := Pow(Abs(x), third)
	if err != nil {
		return nil, err
	}
	if x.Sign() < 0 {
		r.Neg(r)
	}
	return New(prec).Set(r), nil
}

// Pow returns x**y at the precision of x. Negative x is only accepted with
// an integral exponent.
func Pow(x, y *big.Float) (*big.Float, error) {
	prec := x.Prec()
	if y.IsInt() && !y.IsInf() {
		if n, acc := y.Int64(); acc == big.Exact && n > -maxIntPow && n < maxIntPow {
			return powInt(x, n)
		}
	}
	switch x.Sign() {
	case -1:
		return nil, errors.Wrapf(ErrDomain, "pow(%s, %s)", x.Text('g', 10), y.Text('g', 10))
	case 0:
		if y.Sign() <= 0 {
			return nil, errors.Wrapf(ErrDomain, "pow(0, %s)", y.Text('g', 10))
		}
		return New(prec), nil
	}
	return bigfloat.Pow(new(big.Float).Copy(x), new(big.Float).Copy(y)), nil
}

func powInt(x *big.Float, n int64) (*big.Float, error) {
	prec := x.Prec()
	if n == 0 {
		return Int(1, prec), nil
	}
	if x.Sign() == 0 && n < 0 {
		return nil, errors.Wrapf(ErrDomain, "pow(0, %d)", n)
	}
	neg := n < 0
	if neg {
		n = -n
	}
	wp := prec + guardBits
	result := Int(1, wp)
	base := New(wp).Set(x)
	for n > 0 {
		if n&1 == 1 {
			result.Mul(result, base)
		}
		n >>= 1
		if n > 0 {
			base.Mul(base, base)
		}
	}
	if neg {
		result.Quo(Int(1, wp), result)
	}
	return New(prec).Set(result), nil
}

// Sinh returns the hyperbolic sine of x.
func Sinh(x *big.Float) *big.Float {
	prec := x.Prec()
	wp := prec + guardBits
	e := Exp(New(wp).Set(x))
	r := New(wp).Quo(Int(1, wp), e)
	r.Sub(e, r)
	r.SetMantExp(r, -1)
	return New(prec).Set(r)
}

// Cosh returns the hyperbolic cosine of x.
func Cosh(x *big.Float) *big.Float {
	prec := x.Prec()
	wp := prec + guardBits
	e := Exp(New(wp).Set(x))
	r := New(wp).Quo(Int(1, wp), e)
	r.Add(e, r)
	r.SetMantExp(r, -1)
	return New(prec).Set(r)
}

// Tanh returns the hyperbolic tangent of x.
func Tanh(x *big.Float) *big.Float {
	prec := x.Prec()
	wp := prec + guardBits
	// tanh x = (e^2x - 1) / (e^2x + 1), evaluated on |x| to avoid overflow
	ax := New(wp).Abs(x)
	e2 := Exp(ax.SetMantExp(ax, 1))
	num := New(wp).Sub(e2, Int(1, wp))
	den := New(wp).Add(e2, Int(1, wp))
	r := New(wp)
	if e2.IsInf() {
		r.SetInt64(1)
	} else {
		r.Quo(num, den)
	}
	if x.Sign() < 0 {
		r.Neg(r)
	}
	return New(prec).Set(r)
}

// Sin returns the sine of x.
func Sin(x *big.Float) (*big.Float, error) {
	s, _, err := sinCos(x)
	return s, err
}

// Cos returns the cosine of x.
func Cos(x *big.Float) (*big.Float, error) {
	_, c, err := sinCos(x)
	return c, err
}

// Tan returns the tangent of x.
func Tan(x *big.Float) (*big.Float, error) {
	s, c, err := sinCos(x)
	if err != nil {
		return nil, err
	}
	if c.Sign() == 0 {
		return nil, errors.Wrapf(ErrDomain, "tan(%s)", x.Text('g', 10))
	}
	return s.Quo(s, c), nil
}

// sinCos reduces x into [-π, π] and sums both Taylor series there.
func sinCos(x *big.Float) (sin, cos *big.Float, err error) {
	prec := x.Prec()
	if x.IsInf() {
		return nil, nil, errors.Wrap(ErrDomain, "trigonometric function of infinity")
	}
	if x.Sign() == 0 {
		return New(prec), Int(1, prec), nil
	}
	wp := prec + guardBits
	if e := x.MantExp(nil); e > 0 {
		wp += uint(e)
	}
	r := New(wp).Set(x)
	twoPi := Pi(wp)
	twoPi.SetMantExp(twoPi, 1)
	k := New(wp).Quo(r, twoPi)
	k.Add(k, Float(0.5, wp))
	r.Sub(r, twoPi.Mul(twoPi, new(big.Float).SetInt(Floor(k))))

	r2 := New(wp).Mul(r, r)
	sin = New(wp).Set(r)
	cos = Int(1, wp)
	sterm := New(wp).Set(r)
	cterm := Int(1, wp)
	for n := int64(1); ; n++ {
		cterm.Mul(cterm, r2)
		cterm.Quo(cterm, Int((2*n-1)*(2*n), wp))
		cterm.Neg(cterm)
		cos.Add(cos, cterm)
		sterm.Mul(sterm, r2)
		sterm.Quo(sterm, Int((2*n)*(2*n+1), wp))
		sterm.Neg(sterm)
		sin.Add(sin, sterm)
		if negligible(sterm, Int(1, wp), wp) && negligible(cterm, Int(1, wp), wp) {
			break
		}
	}
	return New(prec).Set(sin), New(prec).Set(cos), nil
}

// Atan returns the arctangent of x in (-π/2, π/2).
func Atan(x *big.Float) *big.Float {
	prec := x.Prec()
	if x.Sign() == 0 {
		return New(prec)
	}
	wp := prec + guardBits
	if x.IsInf() {
		halfPi := Pi(prec)
		halfPi.SetMantExp(halfPi, -1)
		if x.Sign() < 0 {
			halfPi.Neg(halfPi)
		}
		return halfPi
	}
	a := New(wp).Abs(x)
	one := Int(1, wp)
	invert := a.Cmp(one) > 0
	if invert {
		a.Quo(one, a)
	}
	// atan(a) = 2 atan(a / (1 + sqrt(1 + a²))) until the series converges fast
	doublings := 0
	eighth := Pow2(-3, wp)
	for a.Cmp(eighth) > 0 {
		s := New(wp).Mul(a, a)
		s.Add(s, one)
		s.Sqrt(s)
		s.Add(s, one)
		a.Quo(a, s)
		doublings++
	}
	a2 := New(wp).Mul(a, a)
	power := New(wp).Set(a)
	sum := New(wp).Set(a)
	term := New(wp)
	for k := int64(1); ; k++ {
		power.Mul(power, a2)
		power.Neg(power)
		term.Quo(power, Int(2*k+1, wp))
		sum.Add(sum, term)
		if negligible(term, sum, wp) {
			break
		}
	}
	sum.SetMantExp(sum, doublings)
	if invert {
		halfPi := Pi(wp)
		halfPi.SetMantExp(halfPi, -1)
		sum.Sub(halfPi, sum)
	}
	if x.Sign() < 0 {
		sum.Neg(sum)
	}
	return New(prec).Set(sum)
}
