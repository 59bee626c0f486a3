// Package redis is a ledger backend shared by every replica through Redis.
// Entries carry a TTL derived from the token's exp, so Redis expires them
// on its own and Prune has nothing to do.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/tokenward/internal/session/domain"
	"github.com/aussiebroadwan/tokenward/internal/session/ledger"
	"github.com/aussiebroadwan/tokenward/pkg/clock"
)

// DefaultPrefix namespaces every key the ledger writes.
const DefaultPrefix = "tokenward"

// Options configures a Ledger.
type Options struct {
	// Prefix for all keys. In Redis Cluster it must contain a hash tag,
	// e.g. "{tokenward}", so the Lua scripts touch a single slot.
	Prefix string

	// Grace is added to every TTL so entries outlive the token by at least
	// the validator's clock skew.
	Grace time.Duration

	Clock clock.Clock

	// OwnClient makes Close close the client too.
	OwnClient bool
}

// Ledger implements ledger.Ledger on Redis.
type Ledger struct {
	client redis.UniversalClient
	prefix string
	grace  time.Duration
	clock  clock.Clock
	owned  bool
}

var _ ledger.Ledger = (*Ledger)(nil)

// New wraps client. It does not ping; call Ping to check connectivity.
func New(client redis.UniversalClient, opts Options) *Ledger {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Ledger{
		client: client,
		prefix: opts.Prefix,
		grace:  opts.Grace,
		clock:  opts.Clock,
		owned:  opts.OwnClient,
	}
}

// Dial parses a redis:// URL and returns a ledger owning the new client.
func Dial(url string, opts Options) (*Ledger, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis ledger: parse url: %w", err)
	}
	opts.OwnClient = true
	return New(redis.NewClient(o), opts), nil
}

func (l *Ledger) revokedKey(jti string) string { return l.prefix + ":revoked:" + jti }
func (l *Ledger) usedKey(jti string) string    { return l.prefix + ":used:" + jti }
func (l *Ledger) succKey(jti string) string    { return l.prefix + ":succ:" + jti }

// ttl never returns 0: go-redis reads 0 as "no expiry".
func (l *Ledger) ttl(expiresAt time.Time) time.Duration {
	return max(expiresAt.Sub(l.clock.Now())+l.grace, time.Millisecond)
}

// Times are stored as RFC 3339 strings so sub-second precision survives.
var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ledger.ErrUnavailable, err)
}

func (l *Ledger) encodeEntry(jti string, expiresAt time.Time, reason domain.RevocationReason) ([]byte, error) {
	return encMode.Marshal(domain.Revocation{
		JTI:       jti,
		Reason:    reason,
		RevokedAt: l.clock.Now(),
		ExpiresAt: expiresAt.UTC(),
	})
}

// revoke returns true when a new entry was written.
func (l *Ledger) revoke(ctx context.Context, jti string, expiresAt time.Time, reason domain.RevocationReason) (bool, error) {
	val, err := l.encodeEntry(jti, expiresAt, reason)
	if err != nil {
		return false, err
	}
	ok, err := l.client.SetNX(ctx, l.revokedKey(jti), val, l.ttl(expiresAt)).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return ok, nil
}

func (l *Ledger) Revoke(ctx context.Context, jti string, expiresAt time.Time, reason domain.RevocationReason) error {
	_, err := l.revoke(ctx, jti, expiresAt, reason)
	return err
}

func (l *Ledger) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.client.Exists(ctx, l.revokedKey(jti)).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n == 1, nil
}

func (l *Ledger) Lookup(ctx context.Context, jti string) (domain.Revocation, bool, error) {
	raw, err := l.client.Get(ctx, l.revokedKey(jti)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Revocation{}, false, nil
	}
	if err != nil {
		return domain.Revocation{}, false, unavailable(err)
	}

	var e domain.Revocation
	if err := cbor.Unmarshal(raw, &e); err != nil {
		return domain.Revocation{}, false, fmt.Errorf("redis ledger: corrupt entry for %s: %w", jti, err)
	}
	e.RevokedAt = e.RevokedAt.UTC()
	e.ExpiresAt = e.ExpiresAt.UTC()
	return e, true, nil
}

func (l *Ledger) MarkLineageUsed(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	set, err := l.client.SetNX(ctx, l.usedKey(jti), 1, l.ttl(expiresAt)).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return !set, nil
}

// linkScript adds successors to the parent's set unless the parent is
// already revoked, in which case it revokes them instead.
//
// KEYS[1] revoked:parent  KEYS[2] succ:parent  KEYS[3..] revoked:child
// ARGV[1] parent ttl ms, then per child: member, entry, ttl ms
var linkScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  for i = 3, #KEYS do
    local base = 2 + (i - 3) * 3
    redis.call("SET", KEYS[i], ARGV[base + 1], "NX", "PX", ARGV[base + 2])
  end
  return 0
end
for i = 3, #KEYS do
  local base = 2 + (i - 3) * 3
  redis.call("SADD", KEYS[2], ARGV[base])
end
redis.call("PEXPIRE", KEYS[2], ARGV[1])
return 1
`)

func (l *Ledger) LinkSuccessors(ctx context.Context, parent domain.TokenRef, successors ...domain.TokenRef) error {
	if len(successors) == 0 {
		return nil
	}

	keys := []string{l.revokedKey(parent.JTI), l.succKey(parent.JTI)}
	args := []any{l.ttl(parent.ExpiresAt).Milliseconds()}
	for _, s := range successors {
		member, err := encMode.Marshal(domain.TokenRef{JTI: s.JTI, ExpiresAt: s.ExpiresAt.UTC()})
		if err != nil {
			return err
		}
		entry, err := l.encodeEntry(s.JTI, s.ExpiresAt, domain.ReasonLineage)
		if err != nil {
			return err
		}
		keys = append(keys, l.revokedKey(s.JTI))
		args = append(args, member, entry, l.ttl(s.ExpiresAt).Milliseconds())
	}

	linked, err := linkScript.Run(ctx, l.client, keys, args...).Int()
	if err != nil {
		return unavailable(err)
	}
	if linked == 0 {
		return ledger.ErrLineageRevoked
	}
	return nil
}

// RevokeLineage walks the successor sets breadth first. Each node is
// revoked before its set is read, so a concurrent LinkSuccessors either
// lands in the set we are about to read or sees the revocation and revokes
// its successors itself.
func (l *Ledger) RevokeLineage(ctx context.Context, jti string, expiresAt time.Time, reason domain.RevocationReason) (int, error) {
	type node struct {
		ref    domain.TokenRef
		reason domain.RevocationReason
	}

	n := 0
	seen := map[string]bool{jti: true}
	queue := []node{{domain.TokenRef{JTI: jti, ExpiresAt: expiresAt}, reason}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		wrote, err := l.revoke(ctx, cur.ref.JTI, cur.ref.ExpiresAt, cur.reason)
		if err != nil {
			return n, err
		}
		if wrote {
			n++
		}

		members, err := l.client.SMembers(ctx, l.succKey(cur.ref.JTI)).Result()
		if err != nil {
			return n, unavailable(err)
		}
		for _, m := range members {
			var child domain.TokenRef
			if err := cbor.Unmarshal([]byte(m), &child); err != nil {
				return n, fmt.Errorf("redis ledger: corrupt successor of %s: %w", cur.ref.JTI, err)
			}
			if seen[child.JTI] {
				continue
			}
			seen[child.JTI] = true
			queue = append(queue, node{child, domain.ReasonLineage})
		}
	}
	return n, nil
}

// Prune is a no-op: every key carries its own TTL.
func (l *Ledger) Prune(context.Context, time.Time) (int, error) { return 0, nil }

func (l *Ledger) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (l *Ledger) Close() error {
	if l.owned {
		return l.client.Close()
	}
	return nil
}
