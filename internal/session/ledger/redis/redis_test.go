package redis_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tokenward/internal/session/domain"
	"github.com/aussiebroadwan/tokenward/internal/session/ledger"
	"github.com/aussiebroadwan/tokenward/internal/session/ledger/ledgertest"
	"github.com/aussiebroadwan/tokenward/internal/session/ledger/redis"
	"github.com/aussiebroadwan/tokenward/pkg/clock"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestConformance(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledgertest.Harness {
		mr, client := newTestRedis(t)
		clk := clock.NewFake(ledgertest.Epoch)
		l := redis.New(client, redis.Options{Clock: clk})
		t.Cleanup(func() { _ = l.Close() })

		return ledgertest.Harness{
			Ledger: l,
			Clock:  clk,
			Advance: func(d time.Duration) {
				clk.Advance(d)
				mr.FastForward(d)
			},
		}
	})
}

func TestKeysCarryTTL(t *testing.T) {
	t.Parallel()

	mr, client := newTestRedis(t)
	clk := clock.NewFake(ledgertest.Epoch)
	l := redis.New(client, redis.Options{Prefix: "tw", Grace: 30 * time.Second, Clock: clk})
	ctx := context.Background()

	require.NoError(t, l.Revoke(ctx, "jti-1", clk.Now().Add(time.Hour), domain.ReasonLogout))
	require.True(t, mr.Exists("tw:revoked:jti-1"))
	require.Equal(t, time.Hour+30*time.Second, mr.TTL("tw:revoked:jti-1"))

	_, err := l.MarkLineageUsed(ctx, "r1", clk.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, time.Minute+30*time.Second, mr.TTL("tw:used:r1"))

	require.NoError(t, l.LinkSuccessors(ctx,
		domain.TokenRef{JTI: "r1", ExpiresAt: clk.Now().Add(time.Minute)},
		domain.TokenRef{JTI: "r2", ExpiresAt: clk.Now().Add(time.Hour)},
	))
	require.Equal(t, time.Minute+30*time.Second, mr.TTL("tw:succ:r1"))

	// Already expired tokens still get a positive TTL.
	require.NoError(t, l.Revoke(ctx, "old", clk.Now().Add(-time.Hour), domain.ReasonLogout))
	require.Greater(t, mr.TTL("tw:revoked:old"), time.Duration(0))

	n, err := l.Prune(ctx, clk.Now().Add(24*time.Hour))
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestUnavailable(t *testing.T) {
	t.Parallel()

	mr, client := newTestRedis(t)
	l := redis.New(client, redis.Options{})
	ctx := context.Background()
	mr.Close()

	_, err := l.IsRevoked(ctx, "x")
	require.ErrorIs(t, err, ledger.ErrUnavailable)

	_, err = l.MarkLineageUsed(ctx, "x", time.Now().Add(time.Hour))
	require.ErrorIs(t, err, ledger.ErrUnavailable)

	err = l.Revoke(ctx, "x", time.Now().Add(time.Hour), domain.ReasonLogout)
	require.ErrorIs(t, err, ledger.ErrUnavailable)

	require.ErrorIs(t, l.Ping(ctx), ledger.ErrUnavailable)
}

func TestLinkRacesWithRevokeLineage(t *testing.T) {
	t.Parallel()

	_, client := newTestRedis(t)
	clk := clock.NewFake(ledgertest.Epoch)
	l := redis.New(client, redis.Options{Clock: clk})
	ctx := context.Background()
	exp := clk.Now().Add(time.Hour)

	for i := range 20 {
		parent := domain.TokenRef{JTI: "p" + string(rune('a'+i)), ExpiresAt: exp}
		child := domain.TokenRef{JTI: "c" + string(rune('a'+i)), ExpiresAt: exp}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = l.LinkSuccessors(ctx, parent, child)
		}()
		go func() {
			defer wg.Done()
			_, _ = l.RevokeLineage(ctx, parent.JTI, parent.ExpiresAt, domain.ReasonReuse)
		}()
		wg.Wait()

		// Whatever the interleaving, the child ends up revoked.
		revoked, err := l.IsRevoked(ctx, child.JTI)
		require.NoError(t, err)
		require.True(t, revoked, "iteration %d", i)
	}
}

func TestDial(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	l, err := redis.Dial("redis://"+mr.Addr()+"/0", redis.Options{})
	require.NoError(t, err)
	require.NoError(t, l.Ping(context.Background()))
	require.NoError(t, l.Close())

	_, err = redis.Dial("://nope", redis.Options{})
	require.Error(t, err)
}
