//go:build !otel

package cmd

import (
	"context"
	"log/slog"

	"github.com/nextlevelbuilder/vibetorch/internal/config"
	"github.com/nextlevelbuilder/vibetorch/internal/tracing"
)

// initTracing only installs span logging in debug mode when built without
// the "otel" tag. Build with `go build -tags otel` to enable OTLP export.
func initTracing(ctx context.Context, cfg *config.Config) *tracing.Provider {
	if cfg.Telemetry.Enabled {
		slog.Debug("telemetry enabled in config but binary built without -tags otel")
	}
	p, err := tracing.Setup(ctx, tracing.Options{
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     Version,
		LogSpans:    debugEnabled(),
	})
	if err != nil {
		slog.Warn("tracing setup failed", "error", err)
		return nil
	}
	return p
}
