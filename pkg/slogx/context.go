package slogx

import (
	"context"
	"log/slog"
)

// Attribute keys carried by request-scoped loggers.
const (
	KeyRequestID = "req_id"
	KeySubject   = "sub"
	KeyTokenID   = "jti"
)

type ctxKey struct{}

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default outside a
// request.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// WithToken returns ctx whose logger names the token's subject and id, so
// every later line about it carries both. Empty values are left out.
func WithToken(ctx context.Context, subject, jti string) context.Context {
	attrs := make([]any, 0, 2)
	if subject != "" {
		attrs = append(attrs, slog.String(KeySubject, subject))
	}
	if jti != "" {
		attrs = append(attrs, slog.String(KeyTokenID, jti))
	}
	if len(attrs) == 0 {
		return ctx
	}
	return WithContext(ctx, FromContext(ctx).With(attrs...))
}
