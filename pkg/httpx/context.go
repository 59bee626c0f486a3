package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/tokenward/pkg/jwtx"
	"github.com/aussiebroadwan/tokenward/pkg/slogx"
)

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyClaims ctxKey = "claims"
)

// UserIDFromContext returns the authenticated subject, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(CtxKeyUserID).(string)
	return v, ok && v != ""
}

// ClaimsFromContext returns the verified access token claims placed by
// AuthnMiddleware.
func ClaimsFromContext(ctx context.Context) (*jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(*jwtx.Claims)
	return c, ok && c != nil
}

func contextWithAuth(ctx context.Context, c *jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return slogx.WithToken(ctx, c.Subject, c.ID)
}

func logPanic(r *http.Request, rec any) {
	slogx.FromContext(r.Context()).Error("panic serving request", slog.Any("panic", rec))
}
