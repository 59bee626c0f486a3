package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tokenward/pkg/jwtx"
	"github.com/aussiebroadwan/tokenward/pkg/slogx"
)

// Authenticator checks a raw access token and returns its claims.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*jwtx.Claims, error)
}

// ErrorWriter renders an authentication failure. It lets callers map
// transient storage errors differently from bad tokens.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// TokenSource pulls a raw token out of a request.
type TokenSource func(r *http.Request) (string, bool)

// AuthnMiddleware requires an access token accepted by a. The bearer header
// is tried first, then each fallback in order. On failure onError renders
// the response; nil means a plain RFC 6750 401.
func AuthnMiddleware(a Authenticator, onError ErrorWriter, fallbacks ...TokenSource) Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, _ error) {
			WriteBearerError(w, "invalid or missing token")
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := BearerToken(r)
			for _, source := range fallbacks {
				if ok {
					break
				}
				raw, ok = source(r)
			}
			if !ok {
				WriteBearerError(w, "missing bearer token")
				return
			}

			claims, err := a.Authenticate(ctx, raw)
			if err != nil {
				slogx.FromContext(ctx).Debug("bearer authentication failed", "err", err)
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithAuth(ctx, claims)))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, raw, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// CookieToken reads a token from the named cookie.
func CookieToken(name string) TokenSource {
	return func(r *http.Request) (string, bool) {
		c, err := r.Cookie(name)
		if err != nil {
			return "", false
		}
		raw := strings.TrimSpace(c.Value)
		return raw, raw != ""
	}
}

// WriteBearerError writes an RFC 6750 invalid_token response.
func WriteBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "invalid_token",
		"error_description": desc,
	})
}
