// Package ledgertest holds the behaviour every ledger backend must share.
// Backend packages call Run from their own tests.
package ledgertest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/tokenward/internal/session/domain"
	"github.com/aussiebroadwan/tokenward/internal/session/ledger"
	"github.com/aussiebroadwan/tokenward/pkg/clock"
	"github.com/stretchr/testify/require"
)

// Epoch is the fake clock's starting time.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness is one fresh, isolated ledger.
type Harness struct {
	Ledger ledger.Ledger
	Clock  *clock.Fake

	// Advance moves time forward for the clock and any backend-side
	// expiry. Nil means Clock.Advance.
	Advance func(d time.Duration)
}

func (h Harness) advance(d time.Duration) {
	if h.Advance != nil {
		h.Advance(d)
		return
	}
	h.Clock.Advance(d)
}

// Factory builds a Harness. It must register cleanup with t.
type Factory func(t *testing.T) Harness

// Run executes the conformance suite against the backend built by f.
func Run(t *testing.T, f Factory) {
	t.Run("revoke then check", func(t *testing.T) { testRevokeThenCheck(t, f(t)) })
	t.Run("revoke is idempotent", func(t *testing.T) { testRevokeIdempotent(t, f(t)) })
	t.Run("mark lineage used once", func(t *testing.T) { testMarkUsedOnce(t, f(t)) })
	t.Run("concurrent mark lineage used", func(t *testing.T) { testConcurrentMarkUsed(t, f(t)) })
	t.Run("concurrent revoke", func(t *testing.T) { testConcurrentRevoke(t, f(t)) })
	t.Run("revoke lineage", func(t *testing.T) { testRevokeLineage(t, f(t)) })
	t.Run("link after revoke", func(t *testing.T) { testLinkAfterRevoke(t, f(t)) })
	t.Run("prune boundary", func(t *testing.T) { testPrune(t, f(t)) })
	t.Run("concurrent prune", func(t *testing.T) { testConcurrentPrune(t, f(t)) })
	t.Run("ping", func(t *testing.T) { require.NoError(t, f(t).Ledger.Ping(context.Background())) })
}

func testRevokeThenCheck(t *testing.T, h Harness) {
	ctx := context.Background()
	l := h.Ledger

	revoked, err := l.IsRevoked(ctx, "never-seen")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, l.Revoke(ctx, "jti-1", h.Clock.Now().Add(time.Hour), domain.ReasonLogout))

	revoked, err = l.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)

	entry, ok, err := l.Lookup(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "jti-1", entry.JTI)
	require.Equal(t, domain.ReasonLogout, entry.Reason)
	require.True(t, entry.RevokedAt.Equal(h.Clock.Now()), "revoked_at %s", entry.RevokedAt)
	require.True(t, entry.ExpiresAt.Equal(h.Clock.Now().Add(time.Hour)))

	_, ok, err = l.Lookup(ctx, "never-seen")
	require.NoError(t, err)
	require.False(t, ok)
}

func testRevokeIdempotent(t *testing.T, h Harness) {
	ctx := context.Background()
	l := h.Ledger
	exp := h.Clock.Now().Add(time.Hour)

	require.NoError(t, l.Revoke(ctx, "jti-1", exp, domain.ReasonLogout))
	h.advance(time.Second)
	require.NoError(t, l.Revoke(ctx, "jti-1", exp.Add(time.Hour), domain.ReasonReuse))

	entry, ok, err := l.Lookup(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.ReasonLogout, entry.Reason)
	require.True(t, entry.ExpiresAt.Equal(exp))
}

func testMarkUsedOnce(t *testing.T, h Harness) {
	ctx := context.Background()
	l := h.Ledger
	exp := h.Clock.Now().Add(time.Hour)

	used, err := l.MarkLineageUsed(ctx, "r1", exp)
	require.NoError(t, err)
	require.False(t, used)

	used, err = l.MarkLineageUsed(ctx, "r1", exp)
	require.NoError(t, err)
	require.True(t, used)

	used, err = l.MarkLineageUsed(ctx, "r2", exp)
	require.NoError(t, err)
	require.False(t, used)

	// Consuming a token is not revoking it.
	revoked, err := l.IsRevoked(ctx, "r1")
	require.NoError(t, err)
	require.False(t, revoked)
}

func testConcurrentMarkUsed(t *testing.T, h Harness) {
	const workers = 16
	ctx := context.Background()
	exp := h.Clock.Now().Add(time.Hour)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		errs    []error
	)
	start := make(chan struct{})
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			used, err := h.Ledger.MarkLineageUsed(ctx, "contended", exp)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if !used {
				winners++
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Empty(t, errs)
	require.Equal(t, 1, winners)
}

func testConcurrentRevoke(t *testing.T, h Harness) {
	ctx := context.Background()
	exp := h.Clock.Now().Add(time.Hour)

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Ledger.Revoke(ctx, fmt.Sprintf("jti-%d", i%8), exp, domain.ReasonLogout)
			_, _ = h.Ledger.IsRevoked(ctx, "jti-0")
		}()
	}
	wg.Wait()

	for i := range 8 {
		revoked, err := h.Ledger.IsRevoked(ctx, fmt.Sprintf("jti-%d", i))
		require.NoError(t, err)
		require.True(t, revoked)
	}
}

func ref(h Harness, jti string, ttl time.Duration) domain.TokenRef {
	return domain.TokenRef{JTI: jti, ExpiresAt: h.Clock.Now().Add(ttl)}
}

func testRevokeLineage(t *testing.T, h Harness) {
	ctx := context.Background()
	l := h.Ledger

	// r1 -> (a2, r2) -> (a3, r3)
	r1 := ref(h, "r1", time.Hour)
	r2 := ref(h, "r2", 2*time.Hour)
	require.NoError(t, l.LinkSuccessors(ctx, r1, ref(h, "a2", time.Minute), r2))
	require.NoError(t, l.LinkSuccessors(ctx, r2, ref(h, "a3", time.Minute), ref(h, "r3", 3*time.Hour)))

	// An unrelated lineage must survive.
	require.NoError(t, l.LinkSuccessors(ctx, ref(h, "x1", time.Hour), ref(h, "x2", time.Hour)))

	n, err := l.RevokeLineage(ctx, r1.JTI, r1.ExpiresAt, domain.ReasonReuse)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	for _, jti := range []string{"r1", "a2", "r2", "a3", "r3"} {
		revoked, err := l.IsRevoked(ctx, jti)
		require.NoError(t, err)
		require.True(t, revoked, jti)
	}
	for _, jti := range []string{"x1", "x2"} {
		revoked, err := l.IsRevoked(ctx, jti)
		require.NoError(t, err)
		require.False(t, revoked, jti)
	}

	root, _, err := l.Lookup(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, domain.ReasonReuse, root.Reason)

	child, _, err := l.Lookup(ctx, "r3")
	require.NoError(t, err)
	require.Equal(t, domain.ReasonLineage, child.Reason)
	require.True(t, child.ExpiresAt.Equal(h.Clock.Now().Add(3*time.Hour)))

	// Second pass writes nothing new.
	n, err = l.RevokeLineage(ctx, r1.JTI, r1.ExpiresAt, domain.ReasonReuse)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func testLinkAfterRevoke(t *testing.T, h Harness) {
	ctx := context.Background()
	l := h.Ledger

	parent := ref(h, "r1", time.Hour)
	_, err := l.RevokeLineage(ctx, parent.JTI, parent.ExpiresAt, domain.ReasonReuse)
	require.NoError(t, err)

	err = l.LinkSuccessors(ctx, parent, ref(h, "a2", time.Minute), ref(h, "r2", 2*time.Hour))
	require.ErrorIs(t, err, ledger.ErrLineageRevoked)

	for _, jti := range []string{"a2", "r2"} {
		revoked, err := l.IsRevoked(ctx, jti)
		require.NoError(t, err)
		require.True(t, revoked, jti)
	}
}

func testPrune(t *testing.T, h Harness) {
	ctx := context.Background()
	l := h.Ledger

	require.NoError(t, l.Revoke(ctx, "short", h.Clock.Now().Add(time.Minute), domain.ReasonLogout))
	require.NoError(t, l.Revoke(ctx, "long", h.Clock.Now().Add(time.Hour), domain.ReasonLogout))
	_, err := l.MarkLineageUsed(ctx, "used-short", h.Clock.Now().Add(time.Minute))
	require.NoError(t, err)

	// Exactly at expiry: entries with expires_at <= now go.
	h.advance(time.Minute)
	_, err = l.Prune(ctx, h.Clock.Now())
	require.NoError(t, err)

	revoked, err := l.IsRevoked(ctx, "short")
	require.NoError(t, err)
	require.False(t, revoked)

	revoked, err = l.IsRevoked(ctx, "long")
	require.NoError(t, err)
	require.True(t, revoked)

	used, err := l.MarkLineageUsed(ctx, "used-short", h.Clock.Now().Add(time.Minute))
	require.NoError(t, err)
	require.False(t, used, "pruned use marker is forgotten")
}

func testConcurrentPrune(t *testing.T, h Harness) {
	const entries = 8
	ctx := context.Background()
	l := h.Ledger

	for i := range entries {
		require.NoError(t, l.Revoke(ctx, fmt.Sprintf("old-%d", i), h.Clock.Now().Add(time.Minute), domain.ReasonLogout))
		_, err := l.MarkLineageUsed(ctx, fmt.Sprintf("old-used-%d", i), h.Clock.Now().Add(time.Minute))
		require.NoError(t, err)
		require.NoError(t, l.Revoke(ctx, fmt.Sprintf("kept-%d", i), h.Clock.Now().Add(time.Hour), domain.ReasonLogout))
		_, err = l.MarkLineageUsed(ctx, fmt.Sprintf("kept-used-%d", i), h.Clock.Now().Add(time.Hour))
		require.NoError(t, err)
	}
	h.advance(time.Minute)
	cutoff := h.Clock.Now()
	exp := cutoff.Add(time.Hour)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	}

	start := make(chan struct{})
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for range entries {
				_, err := l.Prune(ctx, cutoff)
				record(err)
			}
		}()
	}
	for i := range entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			record(l.Revoke(ctx, fmt.Sprintf("fresh-%d", i), exp, domain.ReasonLogout))
			_, err := l.MarkLineageUsed(ctx, fmt.Sprintf("fresh-used-%d", i), exp)
			record(err)
		}()
	}
	close(start)
	wg.Wait()
	require.Empty(t, errs)

	for i := range entries {
		for _, jti := range []string{fmt.Sprintf("kept-%d", i), fmt.Sprintf("fresh-%d", i)} {
			revoked, err := l.IsRevoked(ctx, jti)
			require.NoError(t, err)
			require.True(t, revoked, jti)
		}
		for _, jti := range []string{fmt.Sprintf("kept-used-%d", i), fmt.Sprintf("fresh-used-%d", i)} {
			used, err := l.MarkLineageUsed(ctx, jti, exp)
			require.NoError(t, err)
			require.True(t, used, "%s survived pruning", jti)
		}

		revoked, err := l.IsRevoked(ctx, fmt.Sprintf("old-%d", i))
		require.NoError(t, err)
		require.False(t, revoked)
	}
}
