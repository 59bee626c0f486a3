package httpx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/tokenward/pkg/httpx"
	"github.com/aussiebroadwan/tokenward/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type stubAuthenticator struct {
	claims *jwtx.Claims
	err    error
	seen   string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, raw string) (*jwtx.Claims, error) {
	s.seen = raw
	return s.claims, s.err
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler, mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestRecover(t *testing.T) {
	h := httpx.Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "server_error")
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		want   string
		ok     bool
	}{
		"valid":        {"Bearer abc.def.ghi", "abc.def.ghi", true},
		"lower scheme": {"bearer abc", "abc", true},
		"missing":      {"", "", false},
		"basic":        {"Basic dXNlcjpwYXNz", "", false},
		"empty token":  {"Bearer   ", "", false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			got, ok := httpx.BearerToken(req)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestAuthnMiddleware(t *testing.T) {
	claims := &jwtx.Claims{Type: jwtx.TypeAccess}
	claims.Subject = "user-1"

	protected := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, ok := httpx.UserIDFromContext(r.Context())
		require.True(t, ok)
		c, ok := httpx.ClaimsFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(sub + ":" + string(c.Type)))
	})

	t.Run("accepts valid token", func(t *testing.T) {
		auth := &stubAuthenticator{claims: claims}
		h := httpx.AuthnMiddleware(auth, nil)(protected)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "user-1:access", rec.Body.String())
		require.Equal(t, "tok", auth.seen)
	})

	t.Run("missing header", func(t *testing.T) {
		h := httpx.AuthnMiddleware(&stubAuthenticator{claims: claims}, nil)(protected)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.True(t, strings.HasPrefix(rec.Header().Get("WWW-Authenticate"), `Bearer error="invalid_token"`))
	})

	t.Run("cookie fallback", func(t *testing.T) {
		auth := &stubAuthenticator{claims: claims}
		h := httpx.AuthnMiddleware(auth, nil, httpx.CookieToken("access_token"))(protected)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: "from-cookie"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "from-cookie", auth.seen)

		// The header wins when both are present.
		req.Header.Set("Authorization", "Bearer from-header")
		h.ServeHTTP(httptest.NewRecorder(), req)
		require.Equal(t, "from-header", auth.seen)
	})

	t.Run("cookie ignored without fallback", func(t *testing.T) {
		h := httpx.AuthnMiddleware(&stubAuthenticator{claims: claims}, nil)(protected)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: "from-cookie"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("custom error writer", func(t *testing.T) {
		sentinel := errors.New("storage down")
		var got error
		h := httpx.AuthnMiddleware(&stubAuthenticator{err: sentinel}, func(w http.ResponseWriter, _ *http.Request, err error) {
			got = err
			w.WriteHeader(http.StatusServiceUnavailable)
		})(protected)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.ErrorIs(t, got, sentinel)
	})
}

func TestFormBool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "on", "yes"} {
		require.True(t, httpx.FormBool(v), v)
	}
	for _, v := range []string{"", "0", "false", "off", "nope"} {
		require.False(t, httpx.FormBool(v), v)
	}
}
