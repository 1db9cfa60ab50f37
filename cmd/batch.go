package cmd

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pilosa/zigtools/ziggurat"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// batchSpec is the TOML description of several ziggurats. Top level values
// are defaults for every table.
type batchSpec struct {
	Prefix    string      `toml:"prefix"`
	Segments  int         `toml:"segments"`
	Precision uint        `toml:"precision"`
	Symmetric *bool       `toml:"symmetric"`
	Tables    []tableSpec `toml:"table"`
}

type tableSpec struct {
	Name      string      `toml:"name"`
	PDF       string      `toml:"pdf"`
	Segments  int         `toml:"segments"`
	Precision uint        `toml:"precision"`
	Symmetric *bool       `toml:"symmetric"`
	X0        interface{} `toml:"x0"`
}

func readBatchSpec(fs afero.Fs, path string) (*batchSpec, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	var bs batchSpec
	md, err := toml.Decode(string(data), &bs)
	if err != nil {
		return nil, err
	}
	// don't allow keys we haven't heard of
	undecodedKeys := md.Undecoded()
	if len(undecodedKeys) > 0 {
		keyNames := make([]string, len(undecodedKeys))
		for idx, key := range undecodedKeys {
			keyNames[idx] = strings.Join(key, ".")
		}
		return nil, fmt.Errorf("undecoded keys: %s", strings.Join(keyNames, ", "))
	}
	if len(bs.Tables) == 0 {
		return nil, errors.New("no [[table]] entries")
	}
	return &bs, nil
}

// jobs resolves the defaults of bs into one prepared job per table.
func (bs *batchSpec) jobs(verify bool) ([]*tableJob, error) {
	segments, precision, symmetric := ziggurat.DefaultSegments, uint(ziggurat.DefaultPrecision), true
	if bs.Segments != 0 {
		segments = bs.Segments
	}
	if bs.Precision != 0 {
		precision = bs.Precision
	}
	if bs.Symmetric != nil {
		symmetric = *bs.Symmetric
	}

	jobs := make([]*tableJob, len(bs.Tables))
	names := make(map[string]bool)
	for i, ts := range bs.Tables {
		if names[ts.Name] {
			return nil, errors.Errorf("duplicate table name %q", ts.Name)
		}
		names[ts.Name] = true
		job := &tableJob{
			prefix:    bs.Prefix + ts.Name,
			pdf:       ts.PDF,
			segments:  segments,
			symmetric: symmetric,
			precision: precision,
			verify:    verify,
		}
		if ts.Segments != 0 {
			job.segments = ts.Segments
		}
		if ts.Precision != 0 {
			job.precision = ts.Precision
		}
		if ts.Symmetric != nil {
			job.symmetric = *ts.Symmetric
		}
		if ts.X0 != nil {
			x0, err := cast.ToStringE(ts.X0)
			if err != nil {
				return nil, errors.Wrapf(err, "table %q: x0", ts.Name)
			}
			job.x0 = x0
		}
		if err := job.prepare(); err != nil {
			return nil, errors.Wrapf(err, "table %q", ts.Name)
		}
		jobs[i] = job
	}
	return jobs, nil
}

// runJobs solves jobs on up to concurrency goroutines and returns their
// output in order. The first failure cancels the jobs not yet started.
func runJobs(ctx context.Context, jobs []*tableJob, concurrency int, log logrus.FieldLogger) ([]string, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	out := make([]string, len(jobs))
	eg, ctx := errgroup.WithContext(ctx)
	next := make(chan int)
	eg.Go(func() error {
		defer close(next)
		for i := range jobs {
			select {
			case next <- i:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})
	for w := 0; w < concurrency; w++ {
		eg.Go(func() error {
			for i := range next {
				text, err := jobs[i].run(log.WithField("table", jobs[i].prefix))
				if err != nil {
					return errors.Wrapf(err, "table %q", jobs[i].prefix)
				}
				out[i] = text
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// NewBatchCommand returns the command that solves every table of a TOML
// spec file.
func NewBatchCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	return newBatchCommand(afero.NewOsFs(), stdout, stderr)
}

func newBatchCommand(fs afero.Fs, stdout, stderr io.Writer) *cobra.Command {
	var (
		concurrency int
		verbose     bool
		verify      bool
	)
	batchCmd := &cobra.Command{
		Use:   "batch [flags] SPEC.toml",
		Short: "Compute the ziggurat tables for every density in a spec file.",
		Long: `Computes several ziggurats described by a TOML file and prints all of
them, in file order, once every one has been solved.

	prefix = "zig"     # prepended to every table name
	segments = 128     # defaults for all tables
	precision = 80
	symmetric = true

	[[table]]
	name = "Norm"
	pdf = "exp(-0.5*x*x)"

	[[table]]
	name = "Exp"
	pdf = "exp(-x)"
	symmetric = false
	x0 = 7.7
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bs, err := readBatchSpec(fs, args[0])
			if err != nil {
				return errors.Wrapf(err, "reading spec %s", args[0])
			}
			jobs, err := bs.jobs(verify)
			if err != nil {
				return err
			}
			texts, err := runJobs(context.Background(), jobs, concurrency, newLogger(stderr, verbose))
			if err != nil {
				return err
			}
			for _, text := range texts {
				if _, err := io.WriteString(stdout, text); err != nil {
					return err
				}
			}
			return nil
		},
	}

	flags := batchCmd.Flags()
	flags.IntVar(&concurrency, "concurrency", runtime.NumCPU(), "Number of tables to solve at once.")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr.")
	flags.BoolVar(&verify, "verify", false, "Recompute every segment area before printing.")

	return batchCmd
}

func init() {
	subcommandFns["batch"] = NewBatchCommand
}
