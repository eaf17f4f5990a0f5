package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/vibetorch/internal/gateway"
	"github.com/nextlevelbuilder/vibetorch/internal/store/sqlite"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

func serveCmd() *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the host gateway that embedded inspectors report to",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Gateway.Host = host
			}
			if port != 0 {
				cfg.Gateway.Port = port
			}
			logger := slog.Default()
			rep := newReporter(cmd.OutOrStdout(), false)

			tp := initTracing(ctx, cfg)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				tp.Shutdown(shutdownCtx)
			}()

			opts := gateway.Options{
				Host:           cfg.Gateway.Host,
				Port:           cfg.Gateway.Port,
				AllowedOrigins: cfg.Gateway.AllowedOrigins,
				RateLimitRPM:   cfg.Gateway.RateLimitRPM,
				RateLimitBurst: cfg.Gateway.RateLimitBurst,
				Token:          cfg.Gateway.Token,
				Logger:         logger,
				OnSelection: func(c gateway.ClientInfo, sel protocol.Selection) {
					rep.exported(sel)
				},
			}
			hist, err := sqlite.Open(cfg.StorePath(), cfg.Store.CacheSize, sqlite.WithLogger(logger))
			if err != nil {
				rep.warn("history disabled: " + err.Error())
			} else {
				defer hist.Close()
				opts.History = hist
			}

			srv := gateway.NewServer(opts)
			rep.info("gateway listening on " + srv.Addr() + gateway.BridgePath)
			return srv.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides gateway.host)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides gateway.port)")
	return cmd
}
