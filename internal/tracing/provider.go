// Package tracing installs the process tracer provider. Bridge requests and
// export builds create spans through the global provider; without Setup they
// are no-ops.
package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Options configures Setup.
type Options struct {
	ServiceName string
	Version     string
	Exporter    sdktrace.SpanExporter // may be nil
	LogSpans    bool                  // log every ended span at debug level
	Logger      *slog.Logger
}

// Provider owns the installed tracer provider.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// Setup installs a global tracer provider. It returns a nil Provider when
// there is neither an exporter nor span logging.
func Setup(ctx context.Context, opts Options) (*Provider, error) {
	if opts.Exporter == nil && !opts.LogSpans {
		return nil, nil
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "vibetorch"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if opts.Exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(opts.Exporter,
			sdktrace.WithMaxExportBatchSize(100),
			sdktrace.WithBatchTimeout(5*time.Second),
		))
	}
	if opts.LogSpans {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(NewLogProcessor(opts.Logger)))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	return &Provider{tp: tp}, nil
}

// Shutdown flushes and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}
