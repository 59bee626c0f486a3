package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tokenward/pkg/authsdk"
	"github.com/aussiebroadwan/tokenward/pkg/jwtx"
)

func testConfig(t *testing.T, ledger string) Config {
	t.Helper()
	dir := t.TempDir()

	cfg := validConfig()
	cfg.Ledger = ledger
	cfg.DatabaseFile = filepath.Join(dir, "tokenward.db")
	cfg.PepperFile = filepath.Join(dir, "pepper")
	cfg.LogLevel = "error"
	return cfg
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t, LedgerMemory)
	cfg.SigningSecret = "short"

	_, err := New(cfg)
	require.ErrorIs(t, err, jwtx.ErrConfiguration)
}

func TestNewWiresEveryLedger(t *testing.T) {
	mr := miniredis.RunT(t)

	for _, backend := range []string{LedgerMemory, LedgerSQLite, LedgerRedis} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend)
			cfg.RedisURL = "redis://" + mr.Addr() + "/0"
			cfg.RedisPrefix = "app-" + backend

			application, err := New(cfg)
			require.NoError(t, err)
			t.Cleanup(func() { require.NoError(t, application.Close()) })

			_, err = application.Directory().CreatePrincipal(context.Background(), "rick", "rick@example.com", "wubba-lubba")
			require.NoError(t, err)

			login := url.Values{"identifier": {"rick"}, "password": {"wubba-lubba"}}
			req := httptest.NewRequest(http.MethodPost, authsdk.PathLogin, strings.NewReader(login.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()
			application.Handler().ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			rec = httptest.NewRecorder()
			application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, authsdk.PathReadyz, nil))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}
}

func TestPepperSurvivesRestart(t *testing.T) {
	cfg := testConfig(t, LedgerSQLite)

	first, err := New(cfg)
	require.NoError(t, err)
	_, err = first.Directory().CreatePrincipal(context.Background(), "rick", "rick@example.com", "wubba-lubba")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	ok, err := second.Directory().Verify(context.Background(), "rick", "wubba-lubba")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestNewWiresCookies(t *testing.T) {
	cfg := testConfig(t, LedgerMemory)
	cfg.Cookies = true
	cfg.CookieSecure = true

	application, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	_, err = application.Directory().CreatePrincipal(context.Background(), "rick", "rick@example.com", "wubba-lubba")
	require.NoError(t, err)

	login := url.Values{"identifier": {"rick"}, "password": {"wubba-lubba"}}
	req := httptest.NewRequest(http.MethodPost, authsdk.PathLogin, strings.NewReader(login.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	names := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		require.True(t, c.HttpOnly, c.Name)
		require.True(t, c.Secure, c.Name)
		require.Equal(t, http.SameSiteLaxMode, c.SameSite, c.Name)
		names[c.Name] = true
	}
	require.Equal(t, map[string]bool{authsdk.CookieAccessToken: true, authsdk.CookieRefreshToken: true}, names)
}
