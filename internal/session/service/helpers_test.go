package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tokenward/internal/session/domain"
	"github.com/aussiebroadwan/tokenward/internal/session/ledger"
	"github.com/aussiebroadwan/tokenward/internal/session/ledger/memory"
	"github.com/aussiebroadwan/tokenward/internal/session/ledger/redis"
	"github.com/aussiebroadwan/tokenward/internal/session/service"
	"github.com/aussiebroadwan/tokenward/internal/session/store"
	"github.com/aussiebroadwan/tokenward/internal/session/store/drivers/sqlite"
	"github.com/aussiebroadwan/tokenward/pkg/clock"
	"github.com/aussiebroadwan/tokenward/pkg/jwtx"
)

var (
	epoch      = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	testSecret = []byte("0123456789abcdef0123456789abcdef")
)

func newCodec(t *testing.T) *jwtx.Codec {
	t.Helper()
	s, err := jwtx.NewHMACSigner("HS256", testSecret)
	require.NoError(t, err)
	return jwtx.NewCodec(s)
}

// directory is an in-memory CredentialStore and PrincipalStore.
type directory struct {
	mu        sync.Mutex
	byLogin   map[string]domain.Principal
	passwords map[string]string
	err       error
}

func newDirectory(principals ...domain.Principal) *directory {
	d := &directory{byLogin: map[string]domain.Principal{}, passwords: map[string]string{}}
	for _, p := range principals {
		d.add(p, "password-"+p.Username)
	}
	return d
}

func (d *directory) add(p domain.Principal, password string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, k := range []string{p.ID, strings.ToLower(p.Username), strings.ToLower(p.Email)} {
		d.byLogin[k] = p
	}
	d.passwords[p.ID] = password
}

func (d *directory) get(identifier string) (domain.Principal, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return domain.Principal{}, false, d.err
	}
	p, ok := d.byLogin[identifier]
	if !ok {
		p, ok = d.byLogin[strings.ToLower(identifier)]
	}
	return p, ok, nil
}

func (d *directory) Verify(_ context.Context, identifier, secret string) (bool, error) {
	p, ok, err := d.get(identifier)
	if err != nil || !ok {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.passwords[p.ID] == secret, nil
}

func (d *directory) Lookup(_ context.Context, identifier string) (domain.Principal, error) {
	p, ok, err := d.get(identifier)
	if err != nil {
		return domain.Principal{}, err
	}
	if !ok {
		return domain.Principal{}, service.ErrPrincipalNotFound
	}
	return p, nil
}

var rick = domain.Principal{ID: "01JRICK000000000000000000", Username: "rick", Email: "rick@example.com"}

type fixture struct {
	clk    *clock.Fake
	ledger ledger.Ledger
	dir    *directory
	issuer *service.Issuer
	coord  *service.Coordinator
}

func newFixture(t *testing.T, l ledger.Ledger, clk *clock.Fake) *fixture {
	t.Helper()

	if clk == nil {
		clk = clock.NewFake(epoch)
	}
	if l == nil {
		l = memory.New(clk)
	}
	t.Cleanup(func() { _ = l.Close() })

	codec := newCodec(t)
	dir := newDirectory(rick)
	issuer := &service.Issuer{
		Codec:      codec,
		Clock:      clk,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Issuer:     "tokenward-test",
	}

	return &fixture{
		clk:    clk,
		ledger: l,
		dir:    dir,
		issuer: issuer,
		coord: &service.Coordinator{
			Credentials:   dir,
			Principals:    dir,
			Issuer:        issuer,
			Codec:         codec,
			Validator:     jwtx.Validator{Issuer: "tokenward-test"},
			Ledger:        l,
			Clock:         clk,
			LedgerTimeout: time.Second,
		},
	}
}

func (f *fixture) login(t *testing.T) *service.Pair {
	t.Helper()
	pair, err := f.coord.Login(context.Background(), "rick", "password-rick", false)
	require.NoError(t, err)
	return pair
}

// backend builds a ledger sharing clk. Advancing time on the Redis backend
// is not needed by the tests that use it.
type backend struct {
	name string
	new  func(t *testing.T, clk *clock.Fake) ledger.Ledger
}

var backends = []backend{
	{"memory", func(t *testing.T, clk *clock.Fake) ledger.Ledger {
		return memory.New(clk)
	}},
	{"redis", func(t *testing.T, clk *clock.Fake) ledger.Ledger {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		t.Cleanup(func() {
			_ = client.Close()
			mr.Close()
		})
		return redis.New(client, redis.Options{Clock: clk})
	}},
	{"sqlite", func(t *testing.T, clk *clock.Fake) ledger.Ledger {
		s, err := sqlite.NewStore(":memory:")
		require.NoError(t, err)
		require.NoError(t, s.ApplyMigrations())
		t.Cleanup(func() { _ = s.Close() })
		return store.NewLedgerAdapter(s, clk)
	}},
}

// brokenLedger fails every call.
type brokenLedger struct{}

var errDown = fmt.Errorf("%w: connection refused", ledger.ErrUnavailable)

func (brokenLedger) Revoke(context.Context, string, time.Time, domain.RevocationReason) error {
	return errDown
}
func (brokenLedger) IsRevoked(context.Context, string) (bool, error) { return false, errDown }
func (brokenLedger) Lookup(context.Context, string) (domain.Revocation, bool, error) {
	return domain.Revocation{}, false, errDown
}
func (brokenLedger) MarkLineageUsed(context.Context, string, time.Time) (bool, error) {
	return false, errDown
}
func (brokenLedger) LinkSuccessors(context.Context, domain.TokenRef, ...domain.TokenRef) error {
	return errDown
}
func (brokenLedger) RevokeLineage(context.Context, string, time.Time, domain.RevocationReason) (int, error) {
	return 0, errDown
}
func (brokenLedger) Prune(context.Context, time.Time) (int, error) { return 0, errDown }
func (brokenLedger) Ping(context.Context) error                   { return errDown }
func (brokenLedger) Close() error                                 { return nil }

// stallingLedger blocks IsRevoked until the caller gives up.
type stallingLedger struct {
	ledger.Ledger
}

func (stallingLedger) IsRevoked(ctx context.Context, _ string) (bool, error) {
	<-ctx.Done()
	return false, fmt.Errorf("%w: %v", ledger.ErrUnavailable, ctx.Err())
}

// gatedLinkLedger holds the first LinkSuccessors call until release is
// closed, standing in for a slow backend write mid-rotation.
type gatedLinkLedger struct {
	ledger.Ledger
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedLinkLedger(l ledger.Ledger) *gatedLinkLedger {
	return &gatedLinkLedger{Ledger: l, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedLinkLedger) LinkSuccessors(ctx context.Context, parent domain.TokenRef, successors ...domain.TokenRef) error {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.Ledger.LinkSuccessors(ctx, parent, successors...)
}
