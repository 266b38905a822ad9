package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tobsdb/sqlanalyzer/internal/render"
	"github.com/tobsdb/sqlanalyzer/pkg/catalog"
	"github.com/tobsdb/sqlanalyzer/tools/generate"
)

func NewCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Work with catalog spec files",
	}
	cmd.AddCommand(newCatalogValidateCommand())
	cmd.AddCommand(newCatalogExportCommand())
	return cmd
}

func newCatalogValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a catalog spec file for errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig(cmd.Context())
			cat, err := catalog.LoadSpecFile(args[0])
			if err != nil {
				return fmt.Errorf("invalid catalog; %w", err)
			}
			if cfg.Output == "json" {
				return render.JSON(cmd.OutOrStdout(), map[string]any{"file": args[0], "valid": true, "tables": cat.TableCount()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d tables\n", args[0], cat.TableCount())
			return nil
		},
	}
}

func newCatalogExportCommand() *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Convert a catalog spec file to another format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.LoadSpecFile(args[0])
			if err != nil {
				return err
			}
			data, err := generate.CatalogToFormat(cat, format)
			if err != nil {
				return err
			}
			if out == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(out, data, 0644)
		},
	}

	cmd.Flags().StringVar(&format, "format", "ddl", "output format ("+strings.Join(generate.Formats(), "|")+")")
	cmd.Flags().StringVar(&out, "out", "", "output file (default: stdout)")
	return cmd
}
