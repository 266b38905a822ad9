package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/tobsdb/sqlanalyzer/internal/render"
	"github.com/tobsdb/sqlanalyzer/pkg/session"
)

func NewExtractCommand() *cobra.Command {
	var conn connectFlags

	cmd := &cobra.Command{
		Use:   "extract SQL",
		Short: "List the tables a statement references",
		Long: `List the tables a statement references, in order of first appearance.
No catalog is needed. Pass - to read the statement from stdin.`,
		Example: "  sqlanalyzer extract --launch 'select * from `sample-shop`.default_dataset.users'",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig(cmd.Context())
			sql, err := readStatement(cmd, args)
			if err != nil {
				return err
			}

			s, err := conn.open(cmd.Context(), cfg, session.Options{})
			if err != nil {
				return err
			}
			defer s.Close(context.Background())

			names, err := s.ExtractTableNames(cmd.Context(), sql)
			if err != nil {
				return err
			}
			if cfg.Output == "json" {
				return render.JSON(cmd.OutOrStdout(), names)
			}
			render.TableNames(cmd.OutOrStdout(), names)
			return nil
		},
	}
	conn.register(cmd)
	return cmd
}
