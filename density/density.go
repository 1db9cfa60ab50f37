// Package density compiles textual density expressions such as
// "exp(-0.5*x*x)" into functions evaluated at arbitrary precision.
//
// The language is a small arithmetic subset: numbers, the free variable x,
// the constants pi and e, the operators + - * / and ** (also written ^),
// parentheses and calls to a fixed set of elementary functions. Numeric
// literals are held exactly and rounded to the precision of each
// evaluation.
package density

import (
	"math/big"

	"github.com/pilosa/zigtools/bigmath"
	"github.com/pkg/errors"
)

var (
	// ErrSyntax is returned by Compile for malformed expressions, unknown
	// names and calls with the wrong number of arguments.
	ErrSyntax = errors.New("syntax error")
	// ErrDomain is returned when an expression is evaluated outside the
	// domain of one of its operations.
	ErrDomain = bigmath.ErrDomain
)

// Expr is a compiled density expression. It is immutable and safe for
// concurrent use.
type Expr struct {
	src  string
	root node
}

// Compile parses src into an Expr.
func Compile(src string) (*Expr, error) {
	root, err := parse(src)
	if err != nil {
		return nil, errors.Wrapf(err, "compiling %q", src)
	}
	return &Expr{src: src, root: root}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Expr) String() string { return e.src }

// Eval evaluates the expression with x bound to the given value. The result
// carries the precision of x.
func (e *Expr) Eval(x *big.Float) (y *big.Float, err error) {
	defer func() {
		if r := recover(); r != nil {
			nan, ok := r.(big.ErrNaN)
			if !ok {
				panic(r)
			}
			y, err = nil, errors.Wrapf(ErrDomain, "%s at x=%s: %s", e.src, x.Text('g', 20), nan.Error())
		}
	}()
	y, err = e.root.eval(x)
	if err != nil {
		return nil, errors.Wrapf(err, "%s at x=%s", e.src, x.Text('g', 20))
	}
	return bigmath.New(x.Prec()).Set(y), nil
}

// Func returns Eval as a bigmath.Func.
func (e *Expr) Func() bigmath.Func { return e.Eval }

func (n literal) eval(x *big.Float) (*big.Float, error) {
	return bigmath.New(x.Prec()).SetRat(n.r), nil
}

func (variable) eval(x *big.Float) (*big.Float, error) {
	return new(big.Float).Copy(x), nil
}

func (n constant) eval(x *big.Float) (*big.Float, error) {
	return n.fn(x.Prec()), nil
}

func (n negate) eval(x *big.Float) (*big.Float, error) {
	v, err := n.x.eval(x)
	if err != nil {
		return nil, err
	}
	return v.Neg(v), nil
}

func (n binary) eval(x *big.Float) (*big.Float, error) {
	l, err := n.l.eval(x)
	if err != nil {
		return nil, err
	}
	r, err := n.r.eval(x)
	if err != nil {
		return nil, err
	}
	z := bigmath.New(x.Prec())
	switch n.op {
	case '+':
		return z.Add(l, r), nil
	case '-':
		return z.Sub(l, r), nil
	case '*':
		return z.Mul(l, r), nil
	case '/':
		if r.Sign() == 0 {
			return nil, errors.Wrap(ErrDomain, "division by zero")
		}
		return z.Quo(l, r), nil
	case tokPow:
		return bigmath.Pow(z.Set(l), r)
	}
	panic("density: unknown operator " + string(n.op))
}

func (n call) eval(x *big.Float) (*big.Float, error) {
	args := make([]*big.Float, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(x)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	v, err := n.fn.eval(args)
	if err != nil {
		return nil, errors.Wrap(err, n.name)
	}
	return v, nil
}
