package cmd

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/pilosa/zigtools/density"
	"github.com/pilosa/zigtools/ziggurat"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errb bytes.Buffer
	rc := NewRootCommand(strings.NewReader(""), &out, &errb)
	rc.SetArgs(args)
	err = rc.Execute()
	return out.String(), errb.String(), err
}

func TestGenerate(t *testing.T) {
	out, _, err := execute(t, "generate", "-n", "4", "--precision", "40", "--verbose=false",
		"--prefix", "Exp", "--symmetric=false", "--verify", "exp(-x)")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "\n\nconst ExpR = "), out)
	assert.True(t, strings.HasSuffix(out, "}\n\n\n"), out)
	for _, decl := range []string{
		"\nconst ExpV = ",
		"\n\nvar ExpX = [4]float32{0.0, ",
		"\n\nvar ExpK = [4]uint32{0x",
		"\n\nvar ExpW = [4]float32{",
		"\n\nvar ExpF = [4]float32{1.0, ",
	} {
		assert.Contains(t, out, decl)
	}
	// k[1] is always zero because x[0] is
	assert.Regexp(t, `var ExpK = \[4\]uint32\{0x[0-9a-f]+, 0x0, 0x[0-9a-f]+, 0x[0-9a-f]+\}`, out)
}

// declItems returns the literal values of the const or array named name
// in Go source text.
func declItems(t *testing.T, src, name string) []string {
	t.Helper()
	re := regexp.MustCompile(`(?s)(?:const ` + name + ` = (\S+)\n|var ` + name + ` = \[\d+\]\w+\{([^}]*)\})`)
	m := re.FindStringSubmatch(src)
	require.NotNil(t, m, "no declaration of %s", name)
	if m[1] != "" {
		return []string{m[1]}
	}
	var items []string
	for _, item := range strings.Split(m[2], ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func TestGenerateReferenceTables(t *testing.T) {
	if testing.Short() {
		t.Skip("full precision solves")
	}
	for _, c := range []struct{ prefix, pdf string }{
		{"normal", "exp(-0.5*x*x)"},
		{"expo", "exp(-x)"},
	} {
		t.Run(c.prefix, func(t *testing.T) {
			golden, err := ioutil.ReadFile(filepath.Join("testdata", c.prefix+".golden"))
			require.NoError(t, err)
			out, _, err := execute(t, "generate", "--prefix", c.prefix, "-v=false", c.pdf)
			require.NoError(t, err)
			for _, suffix := range []string{"R", "K", "W", "F"} {
				name := c.prefix + suffix
				want := declItems(t, string(golden), name)
				got := declItems(t, out, name)
				require.Len(t, got, len(want), name)
				for i := range want {
					assert.Equal(t, want[i], got[i], "%s[%d]", name, i)
				}
			}
		})
	}
}

func TestGenerateLogs(t *testing.T) {
	_, stderr, err := execute(t, "generate", "-n", "3", "--precision", "32", "exp(-x)")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Trying r=")
	assert.Contains(t, stderr, "building tables")

	_, stderr, err = execute(t, "generate", "-n", "3", "--precision", "32", "-v=false", "exp(-x)")
	require.NoError(t, err)
	assert.Empty(t, stderr)
}

func TestGenerateConfigErrors(t *testing.T) {
	cases := []struct {
		args  []string
		cause error
	}{
		{args: []string{"generate"}},
		{args: []string{"generate", "exp(-x)", "exp(-x)"}},
		{args: []string{"generate", "exp(-x"}, cause: density.ErrSyntax},
		{args: []string{"generate", "-n", "1", "exp(-x)"}, cause: ziggurat.ErrSegments},
		{args: []string{"generate", "--precision", "8", "exp(-x)"}},
		{args: []string{"generate", "--x0", "abc", "exp(-x)"}},
		{args: []string{"generate", "--x0", "-1", "exp(-x)"}},
		{args: []string{"generate", "1/x"}, cause: density.ErrDomain},
	}
	for _, c := range cases {
		out, _, err := execute(t, append(c.args, "-v=false")...)
		if assert.Error(t, err, "%v", c.args) && c.cause != nil {
			assert.Equal(t, c.cause, errors.Cause(err), "%v: %v", c.args, err)
		}
		assert.Empty(t, out)
	}
}

func TestConfigLayering(t *testing.T) {
	dir, err := ioutil.TempDir("", "zig")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	config := filepath.Join(dir, "zig.toml")
	require.NoError(t, ioutil.WriteFile(config, []byte("segments = 4\nprefix = \"Cfg\"\n"), 0644))

	segments := func(args ...string) int {
		rc := NewRootCommand(nil, ioutil.Discard, ioutil.Discard)
		rc.SetArgs(append([]string{"generate", "--dry-run", "exp(-x)"}, args...))
		err := rc.Execute()
		require.Error(t, err)
		require.Equal(t, "dry run", err.Error())
		gen, _, err := rc.Find([]string{"generate"})
		require.NoError(t, err)
		n, err := gen.Flags().GetInt("segments")
		require.NoError(t, err)
		return n
	}

	assert.Equal(t, ziggurat.DefaultSegments, segments())
	assert.Equal(t, 4, segments("-c", config))
	require.NoError(t, os.Setenv("ZIG_SEGMENTS", "6"))
	defer os.Unsetenv("ZIG_SEGMENTS")
	assert.Equal(t, 6, segments("-c", config))
	assert.Equal(t, 3, segments("-c", config, "-n", "3"))

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, ioutil.WriteFile(bad, []byte("segmnets = 4\n"), 0644))
	_, _, err = execute(t, "generate", "-c", bad, "exp(-x)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid option in configuration file: segmnets")
	assert.Contains(t, err.Error(), "valid options: ")
	assert.Contains(t, err.Error(), "segments")

	for _, text := range []string{
		"config = \"other.toml\"\n",
		"dry-run = true\n",
		"[segments]\nn = 4\n",
	} {
		require.NoError(t, ioutil.WriteFile(bad, []byte(text), 0644))
		_, _, err = execute(t, "generate", "-c", bad, "exp(-x)")
		if assert.Error(t, err, text) {
			assert.Contains(t, err.Error(), "invalid option in configuration file", text)
		}
	}

	require.NoError(t, os.Setenv("ZIG_PRECISION", "many"))
	_, _, err = execute(t, "generate", "exp(-x)")
	os.Unsetenv("ZIG_PRECISION")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid value for precision")

	_, _, err = execute(t, "generate", "-c", filepath.Join(dir, "missing.toml"), "exp(-x)")
	assert.Error(t, err)
}

const batchToml = `
prefix = "zig"
segments = 4
precision = 40

[[table]]
name = "Exp"
pdf = "exp(-x)"
symmetric = false
x0 = 3

[[table]]
name = "Norm"
pdf = "exp(-0.5*x*x)"
x0 = "1.5"

[[table]]
name = "Cauchy"
pdf = "1/(1+x^2)"
segments = 3
`

func TestBatch(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "tables.toml", []byte(batchToml), 0644))
	var out, errb bytes.Buffer
	bc := newBatchCommand(fs, &out, &errb)
	bc.SetArgs([]string{"--concurrency", "2", "--verify", "tables.toml"})
	require.NoError(t, bc.Execute())

	text := out.String()
	exp := strings.Index(text, "const zigExpR = ")
	norm := strings.Index(text, "const zigNormR = ")
	cauchy := strings.Index(text, "const zigCauchyR = ")
	require.True(t, exp >= 0 && norm >= 0 && cauchy >= 0, text)
	assert.True(t, exp < norm && norm < cauchy, "tables out of order")
	assert.Contains(t, text, "var zigCauchyX = [3]float32{0.0, ")
	assert.Contains(t, text, "var zigNormK = [4]uint32{")
	assert.Empty(t, errb.String())
}

func TestBatchSpecErrors(t *testing.T) {
	specs := map[string]string{
		"unknown key":    "[[table]]\nname = \"A\"\npdf = \"exp(-x)\"\ncolor = \"red\"\n",
		"no tables":      "segments = 4\n",
		"duplicate name": "[[table]]\nname = \"A\"\npdf = \"exp(-x)\"\n[[table]]\nname = \"A\"\npdf = \"exp(-x)\"\n",
		"bad x0":         "[[table]]\nname = \"A\"\npdf = \"exp(-x)\"\nx0 = [1, 2]\n",
		"bad pdf":        "[[table]]\nname = \"A\"\npdf = \"exp(-x\"\n",
		"no pdf":         "[[table]]\nname = \"A\"\n",
		"one segment":    "[[table]]\nname = \"A\"\npdf = \"exp(-x)\"\nsegments = 1\n",
		"not toml":       "[[table\n",
	}
	for name, spec := range specs {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "spec.toml", []byte(spec), 0644))
		var out bytes.Buffer
		bc := newBatchCommand(fs, &out, ioutil.Discard)
		bc.SetArgs([]string{"spec.toml"})
		assert.Error(t, bc.Execute(), name)
		assert.Empty(t, out.String(), name)
	}

	bc := newBatchCommand(afero.NewMemMapFs(), ioutil.Discard, ioutil.Discard)
	bc.SetArgs([]string{"missing.toml"})
	assert.Error(t, bc.Execute())
}

func TestRunJobsError(t *testing.T) {
	good := &tableJob{prefix: "A", pdf: "exp(-x)", segments: 3, precision: 32}
	bad := &tableJob{prefix: "B", pdf: "1/x", segments: 3, precision: 32}
	require.NoError(t, good.prepare())
	require.NoError(t, bad.prepare())
	_, err := runJobs(context.Background(), []*tableJob{good, bad}, 1, logrus.New())
	require.Error(t, err)
	assert.Equal(t, density.ErrDomain, errors.Cause(err))
	assert.Contains(t, err.Error(), `table "B"`)
}

func TestEval(t *testing.T) {
	out, _, err := execute(t, "eval", "--expr", "exp(-x)", "--from", "0", "--to", "1",
		"--steps", "2", "--precision", "53")
	require.NoError(t, err)
	assert.Equal(t, "0\t1\n0.5\t0.606530659712633\n1\t0.367879441171442\n", out)

	for _, args := range [][]string{
		{"eval"},
		{"eval", "--expr", "exp(-x)", "--steps", "0"},
		{"eval", "--expr", "exp(-x)", "--from", "zero"},
		{"eval", "--expr", "foo(x)"},
		{"eval", "--expr", "log(x)", "--from", "0"},
	} {
		_, _, err := execute(t, args...)
		assert.Error(t, err, "%v", args)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	quiet := newLogger(&buf, false)
	quiet.Info("hidden")
	quiet.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	loud := newLogger(&buf, true)
	loud.Debug("details")
	assert.Contains(t, buf.String(), "level=debug")
	assert.Contains(t, buf.String(), "details")
}
