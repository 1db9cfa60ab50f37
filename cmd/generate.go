package cmd

import (
	"io"

	"github.com/pilosa/zigtools/ziggurat"
	"github.com/spf13/cobra"
)

// NewGenerateCommand returns the command that solves a single ziggurat.
func NewGenerateCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	job := &tableJob{}
	var verbose bool
	generateCmd := &cobra.Command{
		Use:   "generate [flags] EXPR",
		Short: "Compute the ziggurat tables for a density.",
		Long: `Computes r, v, the segment boundaries x[i] and the tables k[i], w[i]
and f[i] of the n-segment ziggurat for the density EXPR, and prints them as
Go declarations on stdout.

EXPR is an expression in x, for example "exp(-0.5*x*x)" for the normal
distribution or "exp(-x)" for the exponential. It must be non-increasing on
[0, inf) and need not be normalized. Available functions are exp, log, ln,
log10, sqrt, cbrt, abs, pow, sin, cos, tan, atan, sinh, cosh, tanh, sech,
min and max, and the constants pi and e.

Symmetric tables use the modulus 2^31, leaving one bit of a 32 bit sample
for the sign; asymmetric tables use 2^32.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job.pdf = args[0]
			if err := job.prepare(); err != nil {
				return err
			}
			log := newLogger(stderr, verbose)
			out, err := job.run(log)
			if err != nil {
				return err
			}
			_, err = io.WriteString(stdout, out)
			return err
		},
	}

	flags := generateCmd.Flags()
	flags.IntVarP(&job.segments, "segments", "n", ziggurat.DefaultSegments, "Number of segments, including the base segment.")
	flags.StringVar(&job.x0, "x0", "", "Initial estimate for r. Computed if empty.")
	flags.BoolVar(&job.symmetric, "symmetric", true, "Build tables for a distribution symmetric about 0.")
	flags.StringVar(&job.prefix, "prefix", "", "Prefix for the generated identifiers.")
	flags.UintVar(&job.precision, "precision", ziggurat.DefaultPrecision, "Working precision in bits.")
	flags.BoolVarP(&verbose, "verbose", "v", true, "Log progress to stderr.")
	flags.BoolVar(&job.verify, "verify", false, "Recompute every segment area before printing.")

	return generateCmd
}

func init() {
	subcommandFns["generate"] = NewGenerateCommand
}
