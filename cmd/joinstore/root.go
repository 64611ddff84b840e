package main

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/pkg/joinstore"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "JOINSTORE"

// NewRootCommand builds the joinstore command tree.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:   "joinstore",
		Short: "joinstore loads tables and joins into memory and queries them.",
		Long: `joinstore reads a schema file declaring tables, joins and seed
sources, loads it into an in-memory store and runs checks or queries
against it.

Every flag can also be set with a JOINSTORE_ environment variable, e.g.
JOINSTORE_SCHEMA=schema.yaml.
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setAllConfig(viper.New(), cmd.Flags())
		},
	}
	rc.PersistentFlags().StringP("schema", "s", "", "Schema file (.yaml, .yml or .json).")
	rc.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error. Overrides the schema file.")
	rc.PersistentFlags().Bool("no-seed", false, "Skip the seed sources listed in the schema file.")

	rc.AddCommand(newCheckCommand(stdout))
	rc.AddCommand(newQueryCommand(stdout))

	rc.SetIn(stdin)
	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// setAllConfig fills every flag that was not set on the command line from
// the matching JOINSTORE_ environment variable, dashes replaced by
// underscores.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}
		var value string
		if f.Value.Type() == "stringSlice" {
			value = strings.Join(v.GetStringSlice(f.Name), ",")
		} else {
			value = v.GetString(f.Name)
		}
		if value == "" {
			return
		}
		flagErr = f.Value.Set(value)
	})
	return flagErr
}

// openDB loads the schema named by the persistent flags.
func openDB(cmd *cobra.Command) (*joinstore.DB, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	flags := cmd.Flags()
	path, err := flags.GetString("schema")
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errors.New("--schema is required")
	}
	cfg, err := joinstore.LoadConfig(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	if level, _ := flags.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	var opts []joinstore.Option
	if skip, _ := flags.GetBool("no-seed"); skip {
		opts = append(opts, joinstore.WithoutSeed())
	}
	return joinstore.Open(ctx, cfg, opts...)
}
