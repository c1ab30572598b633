// Package reqctx carries per-request correlation data through contexts.
package reqctx

import (
	"context"
	"log/slog"
)

type ctxKey string

const keyRID ctxKey = "request_id"

// WithRID stores the request id.
func WithRID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, keyRID, rid)
}

// RID returns the request id if present.
func RID(ctx context.Context) string {
	v, _ := ctx.Value(keyRID).(string)
	return v
}

// Logger returns log tagged with the request id when ctx has one.
func Logger(ctx context.Context, log *slog.Logger) *slog.Logger {
	if rid := RID(ctx); rid != "" {
		return log.With("request_id", rid)
	}
	return log
}
