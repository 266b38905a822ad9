package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tobsdb/sqlanalyzer/internal/config"
	"github.com/tobsdb/sqlanalyzer/pkg/client"
	"github.com/tobsdb/sqlanalyzer/pkg/launcher"
	"github.com/tobsdb/sqlanalyzer/pkg/session"
)

type connectFlags struct {
	addr   string
	launch bool
}

func (f *connectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.addr, "addr", "", "address of a running service (default: host:port from config)")
	cmd.Flags().BoolVar(&f.launch, "launch", false, "start an in-process service instead of connecting to one")
}

// open starts a session, either against a running service or a launched one.
func (f *connectFlags) open(ctx context.Context, cfg *config.Config, opts session.Options) (*session.Session, error) {
	opts.Client = client.Options{RequestTimeout: cfg.RequestTimeout}
	if f.launch {
		opts.Launch = launcher.Options{Host: cfg.Host, ReadyTimeout: cfg.ConnectTimeout, Version: Version}
	} else {
		opts.Addr = f.addr
		if opts.Addr == "" {
			opts.Addr = cfg.Addr()
		}
	}

	dial_ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	s, err := session.Open(dial_ctx, opts)
	if err != nil && errors.Is(err, client.ErrConnection) && !f.launch {
		return nil, fmt.Errorf("%w (is `sqlanalyzer serve` running at %s?)", err, opts.Addr)
	}
	return s, err
}

// readStatement takes the statement from args, or from stdin for "-".
func readStatement(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return strings.Join(args, " "), nil
}
