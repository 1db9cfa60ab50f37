package density

import (
	"fmt"
	"math/big"

	"github.com/pilosa/zigtools/bigmath"
	"github.com/pkg/errors"
)

// function is an entry in the namespace available to expressions.
// maxArgs < 0 means variadic.
type function struct {
	minArgs, maxArgs int
	eval             func(args []*big.Float) (*big.Float, error)
}

func (f *function) arity() string {
	switch {
	case f.minArgs == f.maxArgs && f.minArgs == 1:
		return "1 argument"
	case f.minArgs == f.maxArgs:
		return fmt.Sprintf("%d arguments", f.minArgs)
	case f.maxArgs < 0:
		return fmt.Sprintf("at least %d arguments", f.minArgs)
	}
	return fmt.Sprintf("%d to %d arguments", f.minArgs, f.maxArgs)
}

func unary(fn func(x *big.Float) (*big.Float, error)) *function {
	return &function{minArgs: 1, maxArgs: 1, eval: func(args []*big.Float) (*big.Float, error) {
		return fn(args[0])
	}}
}

func total(fn func(x *big.Float) *big.Float) *function {
	return unary(func(x *big.Float) (*big.Float, error) { return fn(x), nil })
}

func extremum(sign int) *function {
	return &function{minArgs: 2, maxArgs: -1, eval: func(args []*big.Float) (*big.Float, error) {
		best := args[0]
		for _, a := range args[1:] {
			if a.Cmp(best)*sign > 0 {
				best = a
			}
		}
		return new(big.Float).Copy(best), nil
	}}
}

func logBase(x, base *big.Float) (*big.Float, error) {
	if base.Cmp(bigmath.Int(1, base.Prec())) == 0 {
		return nil, errors.Wrap(ErrDomain, "logarithm to base 1")
	}
	num, err := bigmath.Log(x)
	if err != nil {
		return nil, err
	}
	den, err := bigmath.Log(base)
	if err != nil {
		return nil, err
	}
	return num.Quo(num, den), nil
}

var functions = map[string]*function{
	"exp":  total(bigmath.Exp),
	"ln":   unary(bigmath.Log),
	"sqrt": unary(bigmath.Sqrt),
	"cbrt": unary(bigmath.Cbrt),
	"abs":  total(bigmath.Abs),
	"sin":  unary(bigmath.Sin),
	"cos":  unary(bigmath.Cos),
	"tan":  unary(bigmath.Tan),
	"atan": total(bigmath.Atan),
	"sinh": total(bigmath.Sinh),
	"cosh": total(bigmath.Cosh),
	"tanh": total(bigmath.Tanh),
	"sech": total(func(x *big.Float) *big.Float {
		c := bigmath.Cosh(x)
		return c.Quo(bigmath.Int(1, c.Prec()), c)
	}),
	"log10": unary(func(x *big.Float) (*big.Float, error) {
		return logBase(x, bigmath.Int(10, x.Prec()))
	}),
	"log": {minArgs: 1, maxArgs: 2, eval: func(args []*big.Float) (*big.Float, error) {
		if len(args) == 2 {
			return logBase(args[0], args[1])
		}
		return bigmath.Log(args[0])
	}},
	"pow": {minArgs: 2, maxArgs: 2, eval: func(args []*big.Float) (*big.Float, error) {
		return bigmath.Pow(args[0], args[1])
	}},
	"min": extremum(-1),
	"max": extremum(1),
}
