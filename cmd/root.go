package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var subcommandFns = map[string]func(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command{}

func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:   "zig",
		Short: "Ziggurat table generator",
		Long: `Computes the parameters of n-segment ziggurats for monotonically
decreasing densities on [0, inf) and prints them as Go declarations.

Configuration is read from flags, then ZIG_* environment variables, then
the TOML file given with --config.
`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			err := setAllConfig(v, cmd.Flags(), "ZIG")
			if err != nil {
				return err
			}

			// return "dry run" error if "dry-run" flag is set
			if ret, err := cmd.Flags().GetBool("dry-run"); ret && err == nil {
				if cmd.Parent() != nil {
					return fmt.Errorf("dry run")
				}
			} else if err != nil {
				return fmt.Errorf("problem getting dry-run flag: %v", err)
			}

			return nil
		},
	}
	rc.PersistentFlags().Bool("dry-run", false, "Stop before executing. Useful for testing.")
	_ = rc.PersistentFlags().MarkHidden("dry-run")
	rc.PersistentFlags().StringP("config", "c", "", "Configuration file to read from.")
	for _, subcomFn := range subcommandFns {
		rc.AddCommand(subcomFn(stdin, stdout, stderr))
	}
	rc.SetOutput(stderr)
	return rc
}

// setAllConfig fills every flag of flags that was not given on the command
// line, first from an environment variable named envPrefix_FLAG_NAME (dashes
// become underscores), then from the TOML file named by --config. Keys in
// the file must name flags of the command being run; "config" itself and
// hidden flags are not accepted there.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet, envPrefix string) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "error reading configuration file '%s'", c)
		}
		if err := checkConfigKeys(v, flags); err != nil {
			return err
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			// command line values take priority
			return
		}
		if err := f.Value.Set(v.GetString(f.Name)); err != nil {
			flagErr = errors.Wrapf(err, "invalid value for %s", f.Name)
		}
	})
	return flagErr
}

// checkConfigKeys rejects config file keys that do not name a settable
// flag, listing the ones that do.
func checkConfigKeys(v *viper.Viper, flags *pflag.FlagSet) error {
	valid := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		valid[f.Name] = !f.Hidden && f.Name != "config"
	})
	var unknown []string
	for _, key := range v.AllKeys() {
		top := strings.SplitN(key, ".", 2)[0]
		if v.InConfig(top) && !valid[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	var names []string
	for name, ok := range valid {
		if ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return errors.Errorf("invalid option in configuration file: %s (valid options: %s)",
		strings.Join(unknown, ", "), strings.Join(names, ", "))
}
