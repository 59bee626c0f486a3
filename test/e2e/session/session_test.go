package session_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tokenward/pkg/authsdk"
)

// TestLoginMeRefreshLogout walks rick through a whole session:
// 1. Login by username
// 2. /me reports rick
// 3. Refresh rotates both tokens and the old access token keeps working
// 4. Logout kills the current pair
func TestLoginMeRefreshLogout(t *testing.T) {
	forEachLedger(t, func(t *testing.T, client *authsdk.SDKClient) {
		session, err := client.Login(t.Context(), rickUsername, rickPassword, false)
		require.NoError(t, err)

		me, err := session.Me(t.Context())
		require.NoError(t, err)
		require.Equal(t, rickEmail, me.Email)
		require.NotEmpty(t, me.UserID)

		oldAccess, oldRefresh := session.AccessToken(), session.RefreshToken()
		require.NoError(t, session.Refresh(t.Context()))
		require.NotEqual(t, oldAccess, session.AccessToken(), "Access token should be rotated")
		require.NotEqual(t, oldRefresh, session.RefreshToken(), "Refresh token should be rotated")

		again, err := session.Me(t.Context())
		require.NoError(t, err)
		require.Equal(t, me.UserID, again.UserID)

		// Rotation does not revoke the previous access token.
		stale := client.NewSessionFromTokens(oldAccess, "", 3600)
		_, err = stale.Me(t.Context())
		require.NoError(t, err)

		current := client.NewSessionFromTokens(session.AccessToken(), session.RefreshToken(), 3600)
		require.NoError(t, session.Logout(t.Context()))

		_, err = current.Me(t.Context())
		assertUnauthorized(t, err, "access token after logout")

		_, err = client.RefreshGrant(t.Context(), current.RefreshToken())
		assertRejected(t, err, "refresh token after logout")

		// Logging out twice is fine.
		require.NoError(t, client.LogoutTokens(t.Context(), current.AccessToken(), current.RefreshToken()))
	})
}

// TestRefreshReuseRevokesLineage replays a spent refresh token and checks
// that every token rotated from it dies.
func TestRefreshReuseRevokesLineage(t *testing.T) {
	forEachLedger(t, func(t *testing.T, client *authsdk.SDKClient) {
		first, err := client.LoginGrant(t.Context(), rickEmail, rickPassword, true)
		require.NoError(t, err)
		assertTokenResponse(t, first)

		second, err := client.RefreshGrant(t.Context(), first.RefreshToken)
		require.NoError(t, err)
		assertTokenResponse(t, second)
		require.Equal(t, first.RefreshExpiresIn, second.RefreshExpiresIn, "remember-me survives rotation")

		third, err := client.RefreshGrant(t.Context(), second.RefreshToken)
		require.NoError(t, err)

		_, err = client.RefreshGrant(t.Context(), first.RefreshToken)
		assertRejected(t, err, "replayed refresh token")

		_, err = client.RefreshGrant(t.Context(), third.RefreshToken)
		assertRejected(t, err, "descendant refresh token after reuse")

		for name, access := range map[string]string{"second": second.AccessToken, "third": third.AccessToken} {
			_, err = client.NewSessionFromTokens(access, "", 3600).Me(t.Context())
			assertUnauthorized(t, err, name+" access token after reuse")
		}
	})
}

// TestConcurrentRefreshSingleWinner fires the same refresh token from many
// clients at once. Exactly one rotation succeeds, and the replays by the
// others leave the winner holding revoked tokens.
func TestConcurrentRefreshSingleWinner(t *testing.T) {
	forEachLedger(t, func(t *testing.T, client *authsdk.SDKClient) {
		tokens, err := client.LoginGrant(t.Context(), rickUsername, rickPassword, false)
		require.NoError(t, err)

		const workers = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners []*authsdk.TokenResponse
		)
		start := make(chan struct{})
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if resp, err := client.RefreshGrant(t.Context(), tokens.RefreshToken); err == nil {
					mu.Lock()
					winners = append(winners, resp)
					mu.Unlock()
				}
			}()
		}
		close(start)
		wg.Wait()

		require.Len(t, winners, 1)
		won := winners[0]
		assertTokenResponse(t, won)

		_, err = client.NewSessionFromTokens(won.AccessToken, "", 3600).Me(t.Context())
		assertUnauthorized(t, err, "winner access token after replays")

		_, err = client.RefreshGrant(t.Context(), won.RefreshToken)
		assertRejected(t, err, "winner refresh token after replays")
	})
}

func TestLoginRejections(t *testing.T) {
	client := authsdk.NewSDKClient(setupService(t, ledgers[0]))

	_, err := client.LoginGrant(t.Context(), rickUsername, "wrong", false)
	assertRejected(t, err, "wrong password")

	_, err = client.LoginGrant(t.Context(), "morty", rickPassword, false)
	assertRejected(t, err, "unknown user")

	_, err = client.RefreshGrant(t.Context(), "not-a-token")
	assertRejected(t, err, "garbage refresh token")
}

func TestHealth(t *testing.T) {
	client := authsdk.NewSDKClient(setupService(t, ledgers[0]))

	health, err := client.GetLiveness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)

	health, err = client.GetReadiness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "ok", health.Checks["ledger"])
}
