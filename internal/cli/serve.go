package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/specscan/backend/internal/logger"
	"github.com/specscan/backend/internal/server"
)

// serveLogLevel picks the server log level: -v wins, then an explicit
// --log-level, then LOG_LEVEL.
func (o *rootOptions) serveLogLevel(configured string, flagChanged bool) string {
	switch {
	case o.verbose:
		return "DEBUG"
	case flagChanged:
		return o.logLevel
	default:
		return configured
	}
}

func newServeCommand(root *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}

			level := root.serveLogLevel(cfg.Log.Level, cmd.Flags().Changed("log-level"))
			logger.Initialize(logger.Options{Level: level, Dir: cfg.Log.Dir, JSON: cfg.Log.JSON})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return server.Run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (default: PORT)")
	return cmd
}
