package cli

import (
	"github.com/spf13/cobra"
	"github.com/tobsdb/sqlanalyzer/internal/config"
	"github.com/tobsdb/sqlanalyzer/internal/demo"
	"github.com/tobsdb/sqlanalyzer/pkg/client"
	"github.com/tobsdb/sqlanalyzer/pkg/launcher"
)

func NewDemoCommand() *cobra.Command {
	var addr, binary string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk through registering a sample catalog and analyzing statements",
		Long: `Launch a service on --port, register the sample-shop catalog, extract the
tables of a statement, then analyze one valid and one invalid statement.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := GetConfig(cmd.Context())
			return demo.Run(cmd.Context(), cmd.OutOrStdout(), demo.Options{
				Addr: addr,
				Launch: launcher.Options{
					Host:         cfg.Host,
					Port:         cfg.Port,
					Binary:       binary,
					ReadyTimeout: cfg.ConnectTimeout,
					Version:      Version,
				},
				Client: client.Options{RequestTimeout: cfg.RequestTimeout},
			})
		},
	}

	cmd.Flags().Int("port", config.DefaultPort, "port for the launched service")
	cmd.Flags().StringVar(&addr, "addr", "", "use a running service instead of launching one")
	cmd.Flags().StringVar(&binary, "binary", "", "launch this sqlanalyzer executable instead of an in-process service")
	return cmd
}
