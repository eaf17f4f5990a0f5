//go:build otel

package cmd

import (
	"context"
	"log/slog"

	"github.com/nextlevelbuilder/vibetorch/internal/config"
	"github.com/nextlevelbuilder/vibetorch/internal/tracing"
	"github.com/nextlevelbuilder/vibetorch/internal/tracing/otelexport"
)

// initTracing installs the tracer provider with the OTLP exporter when the
// telemetry config is enabled. Only compiled with -tags otel.
func initTracing(ctx context.Context, cfg *config.Config) *tracing.Provider {
	opts := tracing.Options{
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     Version,
		LogSpans:    debugEnabled(),
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint != "" {
		exp, err := otelexport.New(ctx, otelexport.Config{
			Endpoint: cfg.Telemetry.Endpoint,
			Protocol: cfg.Telemetry.Protocol,
			Insecure: cfg.Telemetry.Insecure,
			Headers:  cfg.Telemetry.Headers,
		})
		if err != nil {
			slog.Warn("failed to create OTel exporter", "error", err)
		} else {
			opts.Exporter = exp
			slog.Info("OpenTelemetry OTLP export enabled",
				"endpoint", cfg.Telemetry.Endpoint,
				"protocol", cfg.Telemetry.Protocol,
			)
		}
	} else {
		slog.Debug("OTel export available but not enabled (set telemetry.enabled + telemetry.endpoint)")
	}

	p, err := tracing.Setup(ctx, opts)
	if err != nil {
		slog.Warn("tracing setup failed", "error", err)
		return nil
	}
	return p
}
