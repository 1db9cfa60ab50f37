package ziggurat

import (
	"math"
	"math/big"

	"github.com/pilosa/zigtools/bigmath"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Tables are the per-segment lookup tables of a ziggurat, parallel to
// Solution.X.
//
// K holds fixed-point acceptance thresholds: a uniform integer u below
// Modulus falls inside segment i's rectangle without further tests when
// u < K[i]. W scales u back to an abscissa, x = u·W[i]. F is the density
// at each boundary.
type Tables struct {
	K       []uint32
	W, F    []*big.Float
	Modulus uint64
}

// Modulus returns the fixed-point modulus M: 2**31 for symmetric
// distributions, whose sampler spends one bit on the sign, and 2**32
// otherwise.
func Modulus(symmetric bool) uint64 {
	if symmetric {
		return 1 << 31
	}
	return 1 << 32
}

// BuildTables computes the K, W and F tables of sol. For the base segment
// k[0] = ⌊M·r·f(r)/v⌋ and w[0] = v/f(r)/M; for i > 0,
// k[i] = ⌊M·x[i-1]/x[i]⌋ and w[i] = x[i]/M. Floors are taken exactly.
func BuildTables(f Density, sol *Solution, symmetric bool, log logrus.FieldLogger) (*Tables, error) {
	if log == nil {
		log = discardLogger()
	}
	n := len(sol.X)
	if n < 2 {
		return nil, errors.Wrapf(ErrSegments, "solution has %d boundaries", n)
	}
	m := Modulus(symmetric)
	mRat := new(big.Rat).SetInt(new(big.Int).SetUint64(m))
	shift := -32
	if symmetric {
		shift = -31
	}

	t := &Tables{
		K:       make([]uint32, n),
		W:       make([]*big.Float, n),
		F:       make([]*big.Float, n),
		Modulus: m,
	}
	for i, x := range sol.X {
		if i&7 == 0 {
			log.WithFields(logrus.Fields{"row": i, "rows": n}).Debug("building tables")
		}
		prec := x.Prec()
		fx, err := f(x)
		if err != nil {
			return nil, errors.Wrapf(err, "evaluating f(x[%d])", i)
		}
		t.F[i] = fx

		var q *big.Rat
		var w *big.Float
		if i == 0 {
			fr, err := f(sol.R)
			if err != nil {
				return nil, errors.Wrap(err, "evaluating f(r)")
			}
			if fr.Sign() == 0 {
				return nil, errors.Wrap(bigmath.ErrDomain, "f(r) is zero")
			}
			// r·f(r)/v
			q = ratOf(sol.R)
			q.Mul(q, ratOf(fr))
			q.Quo(q, ratOf(sol.V))
			w = bigmath.New(prec).Quo(sol.V, fr)
		} else {
			q = ratOf(sol.X[i-1])
			q.Quo(q, ratOf(x))
			w = bigmath.New(prec).Set(x)
		}
		k := bigmath.FloorRat(q.Mul(q, mRat))
		if !k.IsUint64() || k.Uint64() > math.MaxUint32 {
			return nil, errors.Errorf("k[%d] = %s does not fit 32 bits", i, k)
		}
		t.K[i] = uint32(k.Uint64())
		t.W[i] = w.SetMantExp(w, shift)
	}
	log.WithField("rows", n).Debug("built tables")
	return t, nil
}

func ratOf(x *big.Float) *big.Rat {
	r, _ := x.Rat(nil)
	return r
}

// Residuals returns the relative deviation (a_i - v)/v of every segment
// area a_i of sol. The base segment's area is r·f(r) + ∫_r^∞ f; segment
// i > 0 is the rectangle x[i]·(f(x[i-1]) - f(x[i])).
func Residuals(f Density, sol *Solution) ([]*big.Float, error) {
	n := len(sol.X)
	if n < 2 {
		return nil, errors.Wrapf(ErrSegments, "solution has %d boundaries", n)
	}
	prec := sol.V.Prec()
	q := bigmath.NewExpSinh(prec)
	fs := make([]*big.Float, n)
	for i, x := range sol.X {
		fx, err := f(x)
		if err != nil {
			return nil, errors.Wrapf(err, "evaluating f(x[%d])", i)
		}
		fs[i] = fx
	}

	tail, err := q.Integrate(bigmath.Func(f), sol.R)
	if err != nil {
		return nil, errors.Wrap(err, "integrating the tail")
	}
	out := make([]*big.Float, n)
	for i := range sol.X {
		a := bigmath.New(prec)
		if i == 0 {
			a.Mul(sol.R, fs[n-1])
			a.Add(a, tail)
		} else {
			a.Sub(fs[i-1], fs[i])
			a.Mul(a, sol.X[i])
		}
		a.Sub(a, sol.V)
		out[i] = a.Quo(a, sol.V)
	}
	return out, nil
}
