package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/vibetorch/internal/mcpserver"
	"github.com/nextlevelbuilder/vibetorch/internal/store/sqlite"
)

func mcpCmd() *cobra.Command {
	var (
		transport string
		port      int
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve export history and HTML analysis as MCP tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := slog.Default()
			opts := []mcpserver.Option{mcpserver.WithLogger(logger)}
			hist, err := sqlite.Open(cfg.StorePath(), cfg.Store.CacheSize, sqlite.WithLogger(logger))
			if err != nil {
				logger.Warn("history disabled", "error", err)
			} else {
				defer hist.Close()
				opts = append(opts, mcpserver.WithHistory(hist))
			}
			return mcpserver.New(Version, opts...).Serve(ctx, transport, port)
		},
	}
	cmd.Flags().StringVar(&transport, "transport", mcpserver.TransportStdio, "stdio or streamable-http")
	cmd.Flags().IntVar(&port, "port", 7432, "listen port for streamable-http")
	return cmd
}
