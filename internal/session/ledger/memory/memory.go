// Package memory is an in-process ledger backend. State is lost on restart
// and is not shared between replicas; use it for single-node deployments
// and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/tokenward/internal/session/domain"
	"github.com/aussiebroadwan/tokenward/internal/session/ledger"
	"github.com/aussiebroadwan/tokenward/pkg/clock"
)

type links struct {
	expiresAt time.Time // parent's exp
	children  []domain.TokenRef
}

// Ledger keeps everything behind one mutex. Critical sections are map
// operations only, so contention stays low.
type Ledger struct {
	clock clock.Clock

	mu      sync.Mutex
	revoked map[string]domain.Revocation
	used    map[string]time.Time
	succ    map[string]*links
}

var _ ledger.Ledger = (*Ledger)(nil)

// New returns an empty ledger. A nil clock means the real clock.
func New(clk clock.Clock) *Ledger {
	if clk == nil {
		clk = clock.Real()
	}
	return &Ledger{
		clock:   clk,
		revoked: make(map[string]domain.Revocation),
		used:    make(map[string]time.Time),
		succ:    make(map[string]*links),
	}
}

// revokeLocked returns true when a new entry was written.
func (l *Ledger) revokeLocked(jti string, expiresAt time.Time, reason domain.RevocationReason) bool {
	if _, ok := l.revoked[jti]; ok {
		return false
	}
	l.revoked[jti] = domain.Revocation{
		JTI:       jti,
		Reason:    reason,
		RevokedAt: l.clock.Now(),
		ExpiresAt: expiresAt.UTC(),
	}
	return true
}

func (l *Ledger) Revoke(_ context.Context, jti string, expiresAt time.Time, reason domain.RevocationReason) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revokeLocked(jti, expiresAt, reason)
	return nil
}

func (l *Ledger) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.revoked[jti]
	return ok, nil
}

func (l *Ledger) Lookup(_ context.Context, jti string) (domain.Revocation, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.revoked[jti]
	return e, ok, nil
}

func (l *Ledger) MarkLineageUsed(_ context.Context, jti string, expiresAt time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.used[jti]; ok {
		return true, nil
	}
	l.used[jti] = expiresAt.UTC()
	return false, nil
}

func (l *Ledger) LinkSuccessors(_ context.Context, parent domain.TokenRef, successors ...domain.TokenRef) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.revoked[parent.JTI]; ok {
		for _, s := range successors {
			l.revokeLocked(s.JTI, s.ExpiresAt, domain.ReasonLineage)
		}
		return ledger.ErrLineageRevoked
	}

	ls, ok := l.succ[parent.JTI]
	if !ok {
		ls = &links{expiresAt: parent.ExpiresAt.UTC()}
		l.succ[parent.JTI] = ls
	}
	ls.children = append(ls.children, successors...)
	return nil
}

func (l *Ledger) RevokeLineage(_ context.Context, jti string, expiresAt time.Time, reason domain.RevocationReason) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	if l.revokeLocked(jti, expiresAt, reason) {
		n++
	}

	seen := map[string]bool{jti: true}
	queue := []string{jti}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		ls, ok := l.succ[cur]
		if !ok {
			continue
		}
		for _, child := range ls.children {
			if seen[child.JTI] {
				continue
			}
			seen[child.JTI] = true
			if l.revokeLocked(child.JTI, child.ExpiresAt, domain.ReasonLineage) {
				n++
			}
			queue = append(queue, child.JTI)
		}
	}
	return n, nil
}

func (l *Ledger) Prune(_ context.Context, now time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for jti, e := range l.revoked {
		if !now.Before(e.ExpiresAt) {
			delete(l.revoked, jti)
			n++
		}
	}
	for jti, exp := range l.used {
		if !now.Before(exp) {
			delete(l.used, jti)
			n++
		}
	}
	for jti, ls := range l.succ {
		if !now.Before(ls.expiresAt) {
			delete(l.succ, jti)
			n++
		}
	}
	return n, nil
}

func (l *Ledger) Ping(context.Context) error { return nil }

func (l *Ledger) Close() error { return nil }

// Len returns the number of revocation entries currently held.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.revoked)
}
