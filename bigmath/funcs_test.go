package bigmath

import (
	"math"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrec = 128

func parse(t testing.TB, s string) *big.Float {
	t.Helper()
	f, ok := New(testPrec).SetString(s)
	require.True(t, ok, "parsing %q", s)
	return f
}

// assertClose checks got against want to within 2**-bits relative error.
func assertClose(t *testing.T, want, got *big.Float, bits int, msgAndArgs ...interface{}) {
	t.Helper()
	diff := New(testPrec).Sub(want, got)
	diff.Abs(diff)
	limit := Abs(want)
	if limit.Sign() == 0 {
		limit = Int(1, testPrec)
	}
	limit.Mul(limit, Pow2(-bits, testPrec))
	assert.True(t, diff.Cmp(limit) <= 0, "want %s, got %s %v",
		want.Text('g', 40), got.Text('g', 40), msgAndArgs)
}

func TestPi(t *testing.T) {
	pi := Pi(testPrec)
	assert.Equal(t, uint(testPrec), pi.Prec())
	assert.Equal(t, "3.141592653589793238462643383279502884", pi.Text('f', 36))
	// memoized copies must not alias
	pi.SetInt64(3)
	assert.NotEqual(t, 0, Pi(testPrec).Cmp(pi))
}

func TestExpLog(t *testing.T) {
	e := Exp(Int(1, testPrec))
	assert.Equal(t, "2.718281828459045235360287471352662498", e.Text('f', 36))
	assertClose(t, e, E(testPrec), 125)
	one, err := Log(e)
	require.NoError(t, err)
	assertClose(t, Int(1, testPrec), one, 120)

	for _, v := range []float64{1e-30, 0.5, 3, 1e40} {
		x := Float(v, testPrec)
		l, err := Log(x)
		require.NoError(t, err)
		assertClose(t, x, Exp(l), 110, v)
	}

	_, err = Log(Int(0, testPrec))
	assert.Equal(t, ErrDomain, errors.Cause(err))
	_, err = Log(Int(-1, testPrec))
	assert.Equal(t, ErrDomain, errors.Cause(err))
}

func TestPow(t *testing.T) {
	cases := []struct {
		x, y string
		want string
	}{
		{"2", "0.5", "1.41421356237309504880168872420969807857"},
		{"-2", "3", "-8"},
		{"-2", "-2", "0.25"},
		{"10", "-3", "0.001"},
		{"0", "2.5", "0"},
		{"7", "0", "1"},
	}
	for _, c := range cases {
		got, err := Pow(parse(t, c.x), parse(t, c.y))
		require.NoError(t, err, "pow(%s, %s)", c.x, c.y)
		assertClose(t, parse(t, c.want), got, 120, c.x, c.y)
	}
	for _, c := range [][2]string{{"-2", "0.5"}, {"0", "-1"}, {"0", "-0.5"}} {
		_, err := Pow(parse(t, c[0]), parse(t, c[1]))
		assert.Equal(t, ErrDomain, errors.Cause(err), "pow(%s, %s)", c[0], c[1])
	}
}

func TestRoots(t *testing.T) {
	s, err := Sqrt(Int(2, testPrec))
	require.NoError(t, err)
	assert.Equal(t, "1.414213562373095048801688724209698079", s.Text('f', 36))
	_, err = Sqrt(Int(-2, testPrec))
	assert.Equal(t, ErrDomain, errors.Cause(err))

	c, err := Cbrt(Int(-27, testPrec))
	require.NoError(t, err)
	assertClose(t, Int(-3, testPrec), c, 110)
}

func TestTrig(t *testing.T) {
	pi := Pi(testPrec)
	sixth := New(testPrec).Quo(pi, Int(6, testPrec))
	s, err := Sin(sixth)
	require.NoError(t, err)
	assertClose(t, Float(0.5, testPrec), s, 115)

	third := New(testPrec).Quo(pi, Int(3, testPrec))
	c, err := Cos(third)
	require.NoError(t, err)
	assertClose(t, Float(0.5, testPrec), c, 110)

	quarter := New(testPrec).Quo(pi, Int(4, testPrec))
	tn, err := Tan(quarter)
	require.NoError(t, err)
	assertClose(t, Int(1, testPrec), tn, 110)
	assertClose(t, quarter, Atan(Int(1, testPrec)), 120)

	for _, v := range []float64{-1000.25, -3, -0.001, 0.7, 2, 12345.678} {
		x := Float(v, testPrec)
		s, err := Sin(x)
		require.NoError(t, err)
		c, err := Cos(x)
		require.NoError(t, err)
		sf, _ := s.Float64()
		cf, _ := c.Float64()
		assert.InDelta(t, math.Sin(v), sf, 1e-12, "sin(%v)", v)
		assert.InDelta(t, math.Cos(v), cf, 1e-12, "cos(%v)", v)
		af, _ := Atan(x).Float64()
		assert.InDelta(t, math.Atan(v), af, 1e-15, "atan(%v)", v)
	}
}

func TestHyperbolic(t *testing.T) {
	for _, v := range []float64{-20, -1.5, 0, 0.25, 3, 400} {
		x := Float(v, testPrec)
		sh, _ := Sinh(x).Float64()
		ch, _ := Cosh(x).Float64()
		th, _ := Tanh(x).Float64()
		assert.InEpsilon(t, math.Cosh(v), ch, 1e-14, "cosh(%v)", v)
		assert.InDelta(t, math.Tanh(v), th, 1e-15, "tanh(%v)", v)
		if v == 0 {
			assert.Equal(t, 0.0, sh)
		} else {
			assert.InEpsilon(t, math.Sinh(v), sh, 1e-14, "sinh(%v)", v)
		}
	}
}

func BenchmarkExp(b *testing.B) {
	x := Float(-0.5*3.44*3.44, 112)
	for i := 0; i < b.N; i++ {
		Exp(x)
	}
}
