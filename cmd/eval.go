package cmd

import (
	"fmt"
	"io"

	"github.com/jaffee/commandeer/cobrafy"
	"github.com/pilosa/zigtools/bigmath"
	"github.com/pilosa/zigtools/density"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Evaluator prints a density at evenly spaced points, to inspect an
// expression before solving for its ziggurat.
type Evaluator struct {
	Expr      string `help:"Density expression in x."`
	From      string `help:"First abscissa."`
	To        string `help:"Last abscissa."`
	Steps     int    `help:"Number of intervals between from and to."`
	Precision int    `help:"Working precision in bits."`

	out io.Writer
}

// NewEvaluator returns an Evaluator with default settings writing to out.
func NewEvaluator(out io.Writer) *Evaluator {
	return &Evaluator{
		From:      "0",
		To:        "5",
		Steps:     10,
		Precision: 80,
		out:       out,
	}
}

// Run compiles the expression and prints one "x<TAB>f(x)" line per
// sample point.
func (e *Evaluator) Run() error {
	if e.Expr == "" {
		return errors.New("no density expression given")
	}
	if e.Steps < 1 {
		return errors.Errorf("steps must be positive, got %d", e.Steps)
	}
	if e.Precision < 2 {
		return errors.Errorf("precision must be at least 2 bits, got %d", e.Precision)
	}
	expr, err := density.Compile(e.Expr)
	if err != nil {
		return err
	}
	prec := uint(e.Precision)
	from, ok := bigmath.New(prec).SetString(e.From)
	if !ok {
		return errors.Errorf("invalid from %q", e.From)
	}
	to, ok := bigmath.New(prec).SetString(e.To)
	if !ok {
		return errors.Errorf("invalid to %q", e.To)
	}
	step := bigmath.New(prec).Sub(to, from)
	step.Quo(step, bigmath.Int(int64(e.Steps), prec))

	digits := int(float64(prec) * 0.30103)
	for i := 0; i <= e.Steps; i++ {
		x := bigmath.New(prec).Mul(step, bigmath.Int(int64(i), prec))
		x.Add(x, from)
		y, err := expr.Eval(x)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(e.out, "%s\t%s\n", x.Text('g', digits), y.Text('g', digits)); err != nil {
			return err
		}
	}
	return nil
}

// NewEvalCommand returns the command wrapping an Evaluator.
func NewEvalCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	e := NewEvaluator(stdout)
	com, err := cobrafy.Command(e)
	if err != nil {
		panic(err)
	}
	com.Use = "eval"
	com.Short = "Print a density at evenly spaced points."
	com.Long = `Print a density at evenly spaced points.

Evaluates the expression at steps+1 points from "from" to "to" inclusive and
prints one tab separated x, f(x) pair per line. Useful for checking that an
expression is what you meant, and that it decreases, before solving.
`
	com.RunE = func(cmd *cobra.Command, args []string) error {
		return e.Run()
	}
	return com
}

func init() {
	subcommandFns["eval"] = NewEvalCommand
}
