// Package cli is the sqlanalyzer command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tobsdb/sqlanalyzer/internal/config"
	"github.com/tobsdb/sqlanalyzer/pkg"
)

// set at build time
var Version = "0.1.0"

type configKey struct{}

func NewRootCmd() *cobra.Command {
	var cfg_file string

	root := &cobra.Command{
		Use:   "sqlanalyzer",
		Short: "Analyze SQL statements against registered catalogs",
		Long: `sqlanalyzer runs a local analysis service and talks to it over websockets.

Register a catalog of projects, datasets and typed tables, then extract the
tables a statement references or resolve its output columns and types.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(cfg_file, cmd.Flags())
			if err != nil {
				return err
			}
			level, err := pkg.ParseLogLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			pkg.SetLogLevel(level)
			if cfg.FileUsed != "" {
				pkg.InfoLog("using config file", cfg.FileUsed)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfg_file, "config", "", "config file (default: ./sqlanalyzer.yaml)")
	root.PersistentFlags().String("log-level", "", "log level (none|error|info|debug)")
	root.PersistentFlags().StringP("output", "o", "", "output format (text|json)")
	_ = root.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(NewVersionCommand())
	root.AddCommand(NewServeCommand())
	root.AddCommand(NewDemoCommand())
	root.AddCommand(NewExtractCommand())
	root.AddCommand(NewAnalyzeCommand())
	root.AddCommand(NewCatalogCommand())
	return root
}

func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	cfg, err := config.Load("", nil)
	if err != nil {
		pkg.FatalLog(err)
	}
	return cfg
}
