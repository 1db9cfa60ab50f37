package ziggurat

import (
	"math/big"

	"github.com/pilosa/zigtools/bigmath"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// solver holds the state shared by every trial of one Solve call.
type solver struct {
	f       Density
	n       int
	prec    uint // target precision
	wp      uint // working precision
	tol     *big.Float
	maximum *big.Float
	quad    *bigmath.ExpSinh
	log     logrus.FieldLogger
}

// walk is the outcome of building the ziggurat upwards from one trial r.
type walk struct {
	r, v *big.Float
	// xs holds the boundaries found, descending from r.
	xs []*big.Float
	// steps is the number of height increments performed.
	steps int
	// miss is the signed distance of the trial from an accepted walk. It
	// is negative when r is too small, positive when r is too large and
	// exactly zero when the walk was accepted.
	miss     *big.Float
	accepted bool
}

// Solve finds r, v and the segment boundaries of the n-segment ziggurat
// for f.
//
// For a trial r the common area is v = r·f(r) + ∫_r^∞ f. Starting from
// y = f(r), each step raises y by v divided by the last boundary and solves
// f(x) = y for the next boundary. The trial is accepted when the (n-1)th
// step lands on f(0), to within 2**10 ε. The outer search brackets r by
// doubling or halving from the initial estimate and then narrows the
// bracket with false position.
func Solve(f Density, opts Options) (*Solution, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	s, err := newSolver(f, opts)
	if err != nil {
		return nil, err
	}

	var r *big.Float
	if opts.X0 != nil {
		r = bigmath.New(s.wp).Set(opts.X0)
	} else {
		s.log.Info("Calculating initial guess")
		if r, err = s.initialGuess(); err != nil {
			return nil, errors.Wrap(err, "estimating r")
		}
		s.log.Infof("Initial guess r=%s", r.Text('g', 20))
	}

	w, err := s.walk(r)
	if err != nil {
		return nil, err
	}
	if !w.accepted {
		br, _, err := bigmath.Expand(s.miss, r, w.miss, true, expandSteps)
		if err != nil {
			return nil, errors.Wrapf(err, "bracketing r from %s", r.Text('g', 20))
		}
		root, err := bigmath.FindRoot(s.miss, br, bigmath.RootOptions{MaxSteps: opts.MaxSteps})
		if err != nil {
			return nil, errors.Wrap(err, "solving for r")
		}
		if root.FX.Sign() != 0 {
			return nil, errors.Wrapf(bigmath.ErrNoConvergence,
				"bracket around r collapsed at %s without meeting the tolerance", root.X.Text('g', 20))
		}
		if w, err = s.walk(root.X); err != nil {
			return nil, err
		}
	}
	s.log.Info("Done calculating r, v, x[i]")
	return s.solution(w), nil
}

func newSolver(f Density, opts Options) (*solver, error) {
	wp := workingPrec(opts.Precision)
	s := &solver{
		f:    f,
		n:    opts.Segments,
		prec: opts.Precision,
		wp:   wp,
		tol:  tolerance(opts.Precision, wp),
		quad: bigmath.NewExpSinh(wp),
		log:  opts.Logger,
	}
	maximum, err := f(bigmath.New(wp))
	if err != nil {
		return nil, errors.Wrap(err, "evaluating f(0)")
	}
	if maximum.Sign() <= 0 || maximum.IsInf() {
		return nil, errors.Wrapf(bigmath.ErrDomain, "f(0) = %s is not a positive finite number", maximum.Text('g', 10))
	}
	s.maximum = maximum
	return s, nil
}

// solution reverses an accepted walk into ascending boundaries.
func (s *solver) solution(w walk) *Solution {
	xs := make([]*big.Float, 0, len(w.xs)+1)
	xs = append(xs, bigmath.New(s.wp))
	for i := len(w.xs) - 1; i >= 0; i-- {
		xs = append(xs, w.xs[i])
	}
	if len(xs) != s.n {
		panic(errors.Errorf("ziggurat: accepted walk has %d boundaries, want %d", len(xs), s.n))
	}
	return &Solution{R: w.r, V: w.v, X: xs, Precision: s.prec}
}

// area returns r·f(r) + ∫_r^∞ f along with f(r).
func (s *solver) area(r *big.Float) (v, fr *big.Float, err error) {
	fr, err = s.f(r)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "evaluating f(%s)", r.Text('g', 20))
	}
	tail, err := s.quad.Integrate(bigmath.Func(s.f), r)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "integrating the tail from %s", r.Text('g', 20))
	}
	v = bigmath.New(s.wp).Mul(r, fr)
	return v.Add(v, tail), fr, nil
}

// initialGuess estimates r from the area of n equal slices of the region
// under f itself.
func (s *solver) initialGuess() (*big.Float, error) {
	total, err := s.quad.Integrate(bigmath.Func(s.f), bigmath.New(s.wp))
	if err != nil {
		return nil, errors.Wrap(err, "integrating f")
	}
	v0 := total.Quo(total, bigmath.Int(int64(s.n), s.wp))
	g := func(r *big.Float) (*big.Float, error) {
		v, _, err := s.area(r)
		if err != nil {
			return nil, err
		}
		return v.Sub(v, v0), nil
	}

	opts := bigmath.RootOptions{MaxSteps: guessSteps, Tolerance: s.tol}
	br, err := bigmath.NewBracket(g, bigmath.Int(1, s.wp), bigmath.Int(100, s.wp))
	if errors.Cause(err) == bigmath.ErrNoBracket {
		// g decreases in r, so a bracket lies below 1 or beyond 100.
		from := br.A
		fx := br.FA
		if br.FB.Sign() > 0 {
			from, fx = br.B, br.FB
		}
		br, _, err = bigmath.Expand(g, from, fx, false, expandSteps)
	}
	if err != nil {
		return nil, err
	}
	root, err := bigmath.FindRoot(g, br, opts)
	if err != nil {
		return nil, err
	}
	return root.X, nil
}

// miss adapts walk to the root finder.
func (s *solver) miss(r *big.Float) (*big.Float, error) {
	w, err := s.walk(r)
	if err != nil {
		return nil, err
	}
	return w.miss, nil
}

// walk stacks segments of area v(r) on top of the base segment until the
// peak or the segment count is reached.
func (s *solver) walk(r *big.Float) (walk, error) {
	v, fr, err := s.area(r)
	if err != nil {
		return walk{}, err
	}
	if v.Sign() <= 0 {
		return walk{}, errors.Wrapf(bigmath.ErrDomain, "segment area vanishes at r=%s", r.Text('g', 20))
	}
	s.log.Infof("Trying r=%s (v=%s)", r.Text('g', 24), v.Text('g', 24))

	w := walk{r: r, v: v, xs: []*big.Float{r}}
	y := bigmath.New(s.wp).Set(fr)
	flast := fr
	h := bigmath.New(s.wp)
	zero := bigmath.New(s.wp)
	for {
		last := w.xs[len(w.xs)-1]
		h.Quo(v, last)
		y.Add(y, h)
		w.steps++
		if y.Cmp(s.maximum) >= 0 || bigmath.AlmostEqual(y, s.maximum, s.tol) {
			break
		}
		if len(w.xs) == s.n-1 {
			break
		}
		target := new(big.Float).Copy(y)
		level := func(x *big.Float) (*big.Float, error) {
			fx, err := s.f(x)
			if err != nil {
				return nil, err
			}
			return bigmath.New(s.wp).Sub(fx, target), nil
		}
		br := bigmath.Bracket{
			A: zero, FA: bigmath.New(s.wp).Sub(s.maximum, target),
			B: last, FB: bigmath.New(s.wp).Sub(flast, target),
		}
		if !br.Straddles() {
			return walk{}, errors.Wrapf(bigmath.ErrDomain,
				"f is not decreasing on [0, %s]: no solution of f(x) = %s", last.Text('g', 20), target.Text('g', 20))
		}
		root, err := bigmath.FindRoot(level, br, bigmath.RootOptions{})
		if err != nil {
			return walk{}, errors.Wrapf(err, "solving f(x) = %s below %s", target.Text('g', 20), last.Text('g', 20))
		}
		w.xs = append(w.xs, root.X)
		flast = bigmath.New(s.wp).Add(root.FX, target)
	}

	// miss = steps - (n-1) + (f(0) - y)/h
	w.accepted = w.steps == s.n-1 && bigmath.AlmostEqual(y, s.maximum, s.tol)
	w.miss = bigmath.New(s.wp)
	if !w.accepted {
		frac := bigmath.New(s.wp).Sub(s.maximum, y)
		frac.Quo(frac, h)
		w.miss.SetInt64(int64(w.steps - (s.n - 1)))
		w.miss.Add(w.miss, frac)
	}
	return w, nil
}
