package session_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tokenward/internal/session/app"
	"github.com/aussiebroadwan/tokenward/pkg/authsdk"
	"github.com/aussiebroadwan/tokenward/pkg/httpx"
)

/*
 * Helpers for the session end-to-end tests. Each test gets a fully wired
 * service behind a real HTTP listener and talks to it through the SDK.
 */

const (
	rickUsername = "rick"
	rickEmail    = "rick@example.com"
	rickPassword = "wubba-lubba-dub-dub"
)

// ledgers lists the backends every scenario runs against.
var ledgers = []string{app.LedgerSQLite, app.LedgerMemory, app.LedgerRedis}

// setupService starts the service with the given ledger backend, creates
// rick and returns the base URL.
func setupService(t *testing.T, ledger string) string {
	t.Helper()
	dir := t.TempDir()

	cfg := app.DefaultConfig()
	cfg.SigningSecret = strings.Repeat("e2e-secret-", 4)
	cfg.Ledger = ledger
	cfg.DatabaseFile = filepath.Join(dir, "tokenward.db")
	cfg.PepperFile = filepath.Join(dir, "pepper")
	cfg.LogLevel = "error"

	// Tests make many rapid requests from one address.
	relaxed := httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
	cfg.RateLimits = httpx.RateLimitProfiles{Login: relaxed, Session: relaxed, Public: relaxed}

	if ledger == app.LedgerRedis {
		mr := miniredis.RunT(t)
		cfg.RedisURL = "redis://" + mr.Addr() + "/0"
	}

	application, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	_, err = application.Directory().CreatePrincipal(context.Background(), rickUsername, rickEmail, rickPassword)
	require.NoError(t, err)

	server := httptest.NewServer(application.Handler())
	t.Cleanup(server.Close)

	return server.URL
}

// forEachLedger runs fn once per backend, each with its own service.
func forEachLedger(t *testing.T, fn func(t *testing.T, client *authsdk.SDKClient)) {
	t.Helper()
	for _, ledger := range ledgers {
		t.Run(ledger, func(t *testing.T) {
			fn(t, authsdk.NewSDKClient(setupService(t, ledger)))
		})
	}
}

// assertTokenResponse verifies a token response has all required fields.
func assertTokenResponse(t *testing.T, resp *authsdk.TokenResponse) {
	t.Helper()
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.AccessToken, "Access token should not be empty")
	require.NotEmpty(t, resp.RefreshToken, "Refresh token should not be empty")
	require.Equal(t, "Bearer", resp.TokenType, "Token type should be Bearer")
	require.Positive(t, resp.ExpiresIn)
}

// assertRejected checks that err is the uniform refresh/login rejection.
func assertRejected(t *testing.T, err error, context string) {
	t.Helper()
	require.Error(t, err, context)
	require.ErrorIs(t, err, authsdk.ErrInvalidGrant, context)
}

// assertUnauthorized checks that err is the uniform bearer rejection.
func assertUnauthorized(t *testing.T, err error, context string) {
	t.Helper()
	require.Error(t, err, context)
	require.ErrorIs(t, err, authsdk.ErrInvalidToken, context)
}
