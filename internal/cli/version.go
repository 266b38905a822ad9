package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/tobsdb/sqlanalyzer/internal/render"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := GetConfig(cmd.Context())
			if cfg.Output == "json" {
				return render.JSON(cmd.OutOrStdout(), map[string]string{
					"version": Version,
					"go":      runtime.Version(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sqlanalyzer %s (%s)\n", Version, runtime.Version())
			return nil
		},
	}
}
