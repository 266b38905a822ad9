package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tobsdb/sqlanalyzer/internal/config"
	"github.com/tobsdb/sqlanalyzer/internal/conn"
	"github.com/tobsdb/sqlanalyzer/internal/registry"
	"github.com/tobsdb/sqlanalyzer/pkg"
)

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis service",
		Long: `Run the analysis service until interrupted.

Registered catalogs are kept in memory unless --state-dir is set, in which
case they are written there periodically and reloaded on start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := GetConfig(cmd.Context())

			ws, err := registry.NewWriteSettings(cfg.StateDir, cfg.StateDir == "", int(cfg.WriteInterval/time.Millisecond))
			if err != nil {
				return err
			}
			reg, err := registry.New(ws)
			if err != nil {
				return err
			}
			if cfg.StateDir != "" {
				pkg.InfoLog("loaded", reg.Len(), "catalogs from", cfg.StateDir)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := conn.NewServer(reg, Version)
			return server.ListenAndServe(ctx, cfg.Addr())
		},
	}

	cmd.Flags().String("host", config.DefaultHost, "listening host")
	cmd.Flags().Int("port", config.DefaultPort, "listening port")
	cmd.Flags().String("state-dir", "", "directory to persist registered catalogs (empty keeps them in memory)")
	cmd.Flags().Duration("write-interval", time.Second, "how often registry changes are written to --state-dir")
	return cmd
}
