package logging

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// ContextWithAttrs returns a context carrying the given attrs in addition to
// any attrs already present.
func ContextWithAttrs(ctx context.Context, attrs ...Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}
	existing, _ := ctx.Value(contextKey{}).([]Attr)
	merged := make([]Attr, 0, len(existing)+len(attrs))
	merged = append(merged, existing...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, contextKey{}, merged)
}

// WithStage annotates the context with the stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return ContextWithAttrs(ctx, String(FieldStage, stage))
}

// WithTask annotates the context with task identity fields.
func WithTask(ctx context.Context, taskID int64, taskKey string) context.Context {
	return ContextWithAttrs(ctx, Int64(FieldTaskID, taskID), String(FieldTaskKey, taskKey))
}

// WithContext returns a logger enriched with any attrs carried by the context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	attrs, _ := ctx.Value(contextKey{}).([]Attr)
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(Args(attrs...)...)
}
