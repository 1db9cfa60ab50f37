// Package ziggurat computes the parameters of an n-segment ziggurat for a
// monotonically non-increasing density on [0, ∞): the tail start r, the
// common segment area v, the segment boundaries, and the lookup tables a
// ziggurat sampler consults.
//
// See Marsaglia and Tsang, "The Ziggurat Method for Generating Random
// Variables", Journal of Statistical Software 5(8), 2000.
//
// The segments are ordered from the peak outwards: X[0] = 0 and
// X[n-1] = R. Table index 0 is the base segment, the rectangle under
// f(R) together with the tail beyond R.
package ziggurat

import (
	"io/ioutil"
	"math/big"

	"github.com/pilosa/zigtools/bigmath"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSegments  = 128
	DefaultPrecision = 80
	DefaultMaxSteps  = 200

	// MinPrecision is the smallest accepted Options.Precision.
	MinPrecision = 24

	// guardBits are carried on top of the requested precision for every
	// intermediate value.
	guardBits = 32
	// toleranceBits widens the machine epsilon into the tolerance used to
	// decide that the walk has reached the peak.
	toleranceBits = 10
	// expandSteps bounds the geometric search for a bracket around r.
	expandSteps = 64
	// guessSteps is the budget for the initial estimate of r.
	guessSteps = 100
)

var (
	// ErrSegments is returned for ziggurats with fewer than two segments.
	ErrSegments = errors.New("a ziggurat needs at least two segments")
	// ErrOptions is returned for an unusable precision or starting point.
	ErrOptions = errors.New("invalid solver options")
)

// Density is a probability density function, up to a constant factor,
// evaluated at the precision of its argument. It must be finite and
// non-increasing on [0, ∞) with its integral over [0, ∞) finite.
type Density func(x *big.Float) (*big.Float, error)

// Options control Solve. The zero value selects the defaults.
type Options struct {
	// Segments is the number of segments n, including the base segment.
	Segments int
	// X0 is an initial estimate for r. Nil selects a computed estimate.
	X0 *big.Float
	// Precision is the target precision in bits. Intermediate values carry
	// 32 more bits.
	Precision uint
	// MaxSteps is the iteration budget of the search for r.
	MaxSteps int
	// Logger receives progress messages. Nil discards them.
	Logger logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.Segments == 0 {
		o.Segments = DefaultSegments
	}
	if o.Precision == 0 {
		o.Precision = DefaultPrecision
	}
	if o.MaxSteps == 0 {
		o.MaxSteps = DefaultMaxSteps
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}
	return o
}

func (o Options) validate() error {
	if o.Segments < 2 {
		return errors.Wrapf(ErrSegments, "got %d", o.Segments)
	}
	if o.Precision < MinPrecision {
		return errors.Wrapf(ErrOptions, "precision %d is below %d bits", o.Precision, MinPrecision)
	}
	if o.MaxSteps < 0 {
		return errors.Wrapf(ErrOptions, "negative step budget %d", o.MaxSteps)
	}
	if o.X0 != nil && (o.X0.IsInf() || o.X0.Sign() <= 0) {
		return errors.Wrapf(ErrOptions, "starting point %s is not a positive finite number", o.X0.Text('g', 10))
	}
	return nil
}

// Solution is a converged ziggurat. X is ascending with X[0] = 0 and
// X[len(X)-1] = R. Values carry Precision plus guard bits and must not be
// modified.
type Solution struct {
	R, V      *big.Float
	X         []*big.Float
	Precision uint
}

// Segments returns the number of segments.
func (s *Solution) Segments() int { return len(s.X) }

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}

// workingPrec returns the precision intermediate values are computed at.
func workingPrec(prec uint) uint { return prec + guardBits }

// tolerance returns 2**10 ε for the target precision.
func tolerance(prec uint, wp uint) *big.Float {
	eps := bigmath.Epsilon(prec)
	return bigmath.New(wp).SetMantExp(eps, toleranceBits)
}
