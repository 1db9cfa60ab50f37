package bigmath

import (
	"math/big"

	"github.com/pkg/errors"
)

const (
	// defaultMaxLevel caps refinement at a step of 2**-12.
	defaultMaxLevel = 12
	// minLevel is the first level whose difference to its predecessor
	// is trusted as an error estimate.
	minLevel = 3
	// maxT bounds |t|; at t = 16 the abscissae already exceed 2**(10**6).
	maxT = 16
)

// ExpSinh integrates over [a, ∞) with the exp-sinh double exponential
// substitution x = a + exp(π/2·sinh t). The step is halved level by level
// until two successive estimates agree. Abscissa offsets and weights do
// not depend on a and are memoized, so one ExpSinh should be reused for
// all integrals at the same precision. An ExpSinh is not safe for
// concurrent use.
type ExpSinh struct {
	prec     uint
	maxLevel int
	halfPi   *big.Float
	levels   []*esLevel
}

// esLevel holds the nodes of one refinement level on both sides of t = 0.
// Level 0 covers t = k for k ≥ 0 (pos) and k ≤ -1 (neg); level L > 0
// covers the odd multiples of 2**-L.
type esLevel struct {
	h        *big.Float
	pos, neg []esNode
}

type esNode struct {
	u, w *big.Float // abscissa offset from a, weight including dx/dt
}

// NewExpSinh returns an integrator computing at prec bits.
func NewExpSinh(prec uint) *ExpSinh {
	halfPi := Pi(prec)
	halfPi.SetMantExp(halfPi, -1)
	return &ExpSinh{
		prec:     prec,
		maxLevel: defaultMaxLevel,
		halfPi:   halfPi,
	}
}

// Prec returns the working precision of the integrator.
func (q *ExpSinh) Prec() uint { return q.prec }

func (q *ExpSinh) level(l int) *esLevel {
	for len(q.levels) <= l {
		h := Pow2(-len(q.levels), q.prec)
		q.levels = append(q.levels, &esLevel{h: h})
	}
	return q.levels[l]
}

// t returns the abscissa of node j on the given side of level l.
func (q *ExpSinh) t(l int, positive bool, j int) *big.Float {
	lv := q.level(l)
	var k int64
	switch {
	case l == 0 && positive:
		k = int64(j)
	case l == 0:
		k = -int64(j + 1)
	case positive:
		k = int64(2*j + 1)
	default:
		k = -int64(2*j + 1)
	}
	return New(q.prec).Mul(Int(k, q.prec), lv.h)
}

// node returns node j on one side of level l, or false once |t| > maxT.
func (q *ExpSinh) node(l int, positive bool, j int) (esNode, bool) {
	lv := q.level(l)
	nodes := &lv.neg
	if positive {
		nodes = &lv.pos
	}
	for len(*nodes) <= j {
		t := q.t(l, positive, len(*nodes))
		if Abs(t).Cmp(Int(maxT, q.prec)) > 0 {
			return esNode{}, false
		}
		s := New(q.prec).Mul(q.halfPi, Sinh(t))
		u := Exp(s)
		w := New(q.prec).Mul(q.halfPi, Cosh(t))
		w.Mul(w, u)
		*nodes = append(*nodes, esNode{u: u, w: w})
	}
	return (*nodes)[j], true
}

// Integrate returns the integral of fn over [a, ∞). fn must be finite on
// [a, ∞) and decay fast enough for the integral to exist.
func (q *ExpSinh) Integrate(fn Func, a *big.Float) (*big.Float, error) {
	prec := q.prec
	lower := New(prec).Set(a)
	sum := New(prec)
	var prev *big.Float
	tol := Pow2(-int(3*prec/4), prec)
	for l := 0; l <= q.maxLevel; l++ {
		if err := q.accumulate(fn, lower, l, sum); err != nil {
			return nil, err
		}
		est := New(prec).Mul(sum, q.level(l).h)
		if est.IsInf() {
			return nil, errors.Wrapf(ErrDomain, "integral over [%s, inf) diverges", a.Text('g', 20))
		}
		if prev != nil && l >= minLevel {
			diff := New(prec).Sub(est, prev)
			diff.Abs(diff)
			scale := Abs(est).Mul(Abs(est), tol)
			if diff.Cmp(scale) <= 0 {
				return est, nil
			}
		}
		if est.Sign() == 0 && l >= minLevel {
			return est, nil
		}
		prev = est
	}
	return nil, errors.Wrapf(ErrNoConvergence, "quadrature over [%s, inf) after %d levels",
		a.Text('g', 20), q.maxLevel)
}

// accumulate adds the weighted integrand values of level l to sum, walking
// away from t = 0 on each side until two consecutive terms are both
// shrinking and too small to contribute. Terms that are still growing
// never end the walk: for a tail far from the origin the mass lies well
// away from t = 0.
func (q *ExpSinh) accumulate(fn Func, a *big.Float, l int, sum *big.Float) error {
	prec := q.prec
	for _, positive := range []bool{false, true} {
		small := 0
		var prev *big.Float
		for j := 0; ; j++ {
			nd, ok := q.node(l, positive, j)
			if !ok {
				break
			}
			x := New(prec).Add(a, nd.u)
			if x.IsInf() {
				break
			}
			fx, err := fn(x)
			if err != nil {
				return errors.Wrapf(err, "integrand at %s", x.Text('g', 20))
			}
			term := New(prec).Mul(fx, nd.w)
			sum.Add(sum, term)
			shrinking := prev != nil && Abs(term).Cmp(Abs(prev)) <= 0
			prev = term
			if shrinking && negligible(term, sum, prec) {
				small++
				if small >= 2 {
					break
				}
			} else {
				small = 0
			}
		}
	}
	return nil
}
