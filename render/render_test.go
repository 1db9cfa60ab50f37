package render

import (
	"bytes"
	"math"
	"math/big"
	"testing"

	"github.com/pilosa/zigtools/ziggurat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimal(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0.0"},
		{1, "1.0"},
		{100, "100.0"},
		{-2.5, "-2.5"},
		{0.5, "0.5"},
		{1.0 / 3, "0.333333333333333"},
		{3.44261985589665, "3.44261985589665"},
		{0.00991256303526217, "0.00991256303526217"},
		{1e-4, "0.0001"},
		{1e-5, "1.0e-5"},
		{math.Ldexp(1, -32), "2.3283064365387e-10"},
		{123456789012345, "123456789012345.0"},
		{1e15, "1.0e+15"},
		{-6.02214076e23, "-6.02214076e+23"},
		{math.Inf(1), "+inf"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Decimal(big.NewFloat(c.in)), "%v", c.in)
	}

	// rounded once, from full precision
	tenth := new(big.Float).SetPrec(200).SetRat(big.NewRat(1, 10))
	assert.Equal(t, "0.1", Decimal(tenth))
	third := new(big.Float).SetPrec(200).SetRat(big.NewRat(2, 3))
	assert.Equal(t, "0.666666666666667", Decimal(third))
	// just above a digit boundary the nearest float64 lies below
	above := big.NewRat(1234567890123445, 1e16)
	above.Add(above, big.NewRat(1, 1e18))
	x := new(big.Float).SetPrec(200).SetRat(above)
	assert.Equal(t, "0.123456789012345", Decimal(x))
	assert.Equal(t, "0.123456789012344", Decimal(big.NewFloat(0.1234567890123445)))
}

func TestFormat(t *testing.T) {
	sol := &ziggurat.Solution{
		R:         big.NewFloat(1.5),
		V:         big.NewFloat(0.25),
		X:         []*big.Float{big.NewFloat(0), big.NewFloat(1.5)},
		Precision: 53,
	}
	tab := &ziggurat.Tables{
		K:       []uint32{0x7fffffff, 0},
		W:       []*big.Float{big.NewFloat(math.Ldexp(1, -31)), big.NewFloat(0.75)},
		F:       []*big.Float{big.NewFloat(1), big.NewFloat(0.125)},
		Modulus: 1 << 31,
	}
	want := "\n\nconst NormR = 1.5\nconst NormV = 0.25\n" +
		"\nvar NormX = [2]float32{0.0, 1.5}\n" +
		"\nvar NormK = [2]uint32{0x7fffffff, 0x0}\n" +
		"\nvar NormW = [2]float32{4.65661287307739e-10, 0.75}\n" +
		"\nvar NormF = [2]float32{1.0, 0.125}\n\n\n"
	assert.Equal(t, want, Format("Norm", sol, tab))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "", sol, tab))
	assert.Contains(t, buf.String(), "\nconst R = 1.5\n")
	assert.Contains(t, buf.String(), "var K = [2]uint32{0x7fffffff, 0x0}")
}
