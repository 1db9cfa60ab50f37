package cmd

import (
	"math/big"

	"github.com/pilosa/zigtools/bigmath"
	"github.com/pilosa/zigtools/density"
	"github.com/pilosa/zigtools/render"
	"github.com/pilosa/zigtools/ziggurat"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// tableJob is one ziggurat to compute and render.
type tableJob struct {
	prefix    string
	pdf       string
	segments  int
	symmetric bool
	x0        string
	precision uint
	verify    bool

	expr  *density.Expr
	start *big.Float
}

// prepare checks the job and compiles its density, so that configuration
// errors surface before any computation starts.
func (j *tableJob) prepare() error {
	if j.segments < 2 {
		return errors.Wrapf(ziggurat.ErrSegments, "segments = %d", j.segments)
	}
	if j.precision < ziggurat.MinPrecision {
		return errors.Errorf("precision must be at least %d bits, got %d", ziggurat.MinPrecision, j.precision)
	}
	if j.pdf == "" {
		return errors.New("no density expression given")
	}
	expr, err := density.Compile(j.pdf)
	if err != nil {
		return err
	}
	j.expr = expr
	if j.x0 != "" {
		x0, ok := bigmath.New(j.precision).SetString(j.x0)
		if !ok || x0.IsInf() || x0.Sign() <= 0 {
			return errors.Errorf("x0 must be a positive number, got %q", j.x0)
		}
		j.start = x0
	}
	return nil
}

// run solves the job and returns its rendered tables. prepare must have
// succeeded first.
func (j *tableJob) run(log logrus.FieldLogger) (string, error) {
	cached, err := density.Cached(j.expr.Func(), density.DefaultCacheSize)
	if err != nil {
		return "", err
	}
	f := ziggurat.Density(cached)
	sol, err := ziggurat.Solve(f, ziggurat.Options{
		Segments:  j.segments,
		X0:        j.start,
		Precision: j.precision,
		Logger:    log,
	})
	if err != nil {
		return "", errors.Wrapf(err, "solving %q", j.pdf)
	}
	tab, err := ziggurat.BuildTables(f, sol, j.symmetric, log)
	if err != nil {
		return "", errors.Wrapf(err, "building tables for %q", j.pdf)
	}
	if j.verify {
		if err := verify(f, sol, log); err != nil {
			return "", err
		}
	}
	return render.Format(j.prefix, sol, tab), nil
}

// verify recomputes every segment area and fails if one deviates from v
// by more than 2**-(precision/2) relative.
func verify(f ziggurat.Density, sol *ziggurat.Solution, log logrus.FieldLogger) error {
	res, err := ziggurat.Residuals(f, sol)
	if err != nil {
		return errors.Wrap(err, "verifying")
	}
	limit := bigmath.Pow2(-int(sol.Precision/2), sol.Precision)
	worst := bigmath.New(sol.Precision)
	for i, r := range res {
		abs := bigmath.Abs(r)
		if abs.Cmp(limit) > 0 {
			return errors.Errorf("segment %d area deviates from v by %s", i, r.Text('g', 6))
		}
		if abs.Cmp(worst) > 0 {
			worst = abs
		}
	}
	log.WithField("worst", worst.Text('g', 6)).Info("verified segment areas")
	return nil
}
