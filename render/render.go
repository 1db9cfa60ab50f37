// Package render writes ziggurat parameters as Go declarations.
package render

import (
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/pilosa/zigtools/ziggurat"
	"github.com/pkg/errors"
)

// digits is the number of significant decimal digits of a 53-bit value.
const digits = 15

// Write renders sol and tab as Go constants and arrays whose names start
// with prefix:
//
//	const {prefix}R, {prefix}V
//	var {prefix}X, {prefix}K, {prefix}W, {prefix}F
func Write(w io.Writer, prefix string, sol *ziggurat.Solution, tab *ziggurat.Tables) error {
	_, err := io.WriteString(w, Format(prefix, sol, tab))
	return errors.Wrap(err, "writing tables")
}

// Format returns the text Write would produce.
func Format(prefix string, sol *ziggurat.Solution, tab *ziggurat.Tables) string {
	n := len(sol.X)
	var b strings.Builder
	fmt.Fprintf(&b, "\n\nconst %sR = %s\n", prefix, Decimal(sol.R))
	fmt.Fprintf(&b, "const %sV = %s\n", prefix, Decimal(sol.V))
	fmt.Fprintf(&b, "\nvar %sX = [%d]float32{%s}\n", prefix, n, decimals(sol.X))
	fmt.Fprintf(&b, "\nvar %sK = [%d]uint32{%s}\n", prefix, n, hexes(tab.K))
	fmt.Fprintf(&b, "\nvar %sW = [%d]float32{%s}\n", prefix, n, decimals(tab.W))
	fmt.Fprintf(&b, "\nvar %sF = [%d]float32{%s}\n\n\n", prefix, n, decimals(tab.F))
	return b.String()
}

func decimals(xs []*big.Float) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = Decimal(x)
	}
	return strings.Join(parts, ", ")
}

func hexes(ks []uint32) string {
	parts := make([]string, len(ks))
	for i, k := range ks {
		parts[i] = fmt.Sprintf("%#x", k)
	}
	return strings.Join(parts, ", ")
}

// Decimal formats x with up to 15 significant digits, rounding once from
// the full precision of x. Values with a decimal exponent in (-5, 15) are written in fixed
// notation, others in exponent notation. The result always contains a
// decimal point, so 1 is written "1.0" and 1e20 "1.0e+20".
func Decimal(x *big.Float) string {
	if x.IsInf() {
		if x.Sign() < 0 {
			return "-inf"
		}
		return "+inf"
	}
	if x.Sign() == 0 {
		return "0.0"
	}
	f := new(big.Float).Set(x)
	sign := ""
	if f.Sign() < 0 {
		sign = "-"
		f.Neg(f)
	}
	// d.ddddddddddddddde±XX
	s := f.Text('e', digits-1)
	mant, expStr := s[:strings.IndexByte(s, 'e')], s[strings.IndexByte(s, 'e')+1:]
	exp, err := strconv.Atoi(expStr)
	if err != nil {
		panic(fmt.Sprintf("render: unexpected exponent in %q", s))
	}
	ds := strings.TrimRight(strings.Replace(mant, ".", "", 1), "0")

	if exp > -5 && exp < digits {
		if exp < 0 {
			return sign + "0." + strings.Repeat("0", -exp-1) + ds
		}
		if len(ds) <= exp+1 {
			return sign + ds + strings.Repeat("0", exp+1-len(ds)) + ".0"
		}
		return sign + ds[:exp+1] + "." + ds[exp+1:]
	}
	frac := ds[1:]
	if frac == "" {
		frac = "0"
	}
	expSign := "+"
	if exp < 0 {
		expSign = "-"
		exp = -exp
	}
	return sign + ds[:1] + "." + frac + "e" + expSign + strconv.Itoa(exp)
}
