package store

import "context"

type contextKey string

// SourceKey is the context key naming who recorded an export
// ("inspect", "gateway:<client id>", ...).
const SourceKey contextKey = "vibetorch_export_source"

// WithSource returns a new context carrying the export source.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, SourceKey, source)
}

// SourceFromContext extracts the export source. Returns "" if not set.
func SourceFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(SourceKey).(string); ok {
		return v
	}
	return ""
}
