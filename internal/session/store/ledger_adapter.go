package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/tokenward/internal/session/domain"
	"github.com/aussiebroadwan/tokenward/internal/session/ledger"
	"github.com/aussiebroadwan/tokenward/pkg/clock"
)

// LedgerAdapter implements ledger.Ledger on top of a Store so revocations
// survive restarts of a single-node deployment.
type LedgerAdapter struct {
	store Store
	clock clock.Clock
}

var _ ledger.Ledger = (*LedgerAdapter)(nil)

// NewLedgerAdapter wraps s. A nil clk means the real clock.
func NewLedgerAdapter(s Store, clk clock.Clock) *LedgerAdapter {
	if clk == nil {
		clk = clock.Real()
	}
	return &LedgerAdapter{store: s, clock: clk}
}

func unavailable(err error) error {
	if err == nil || errors.Is(err, ledger.ErrUnavailable) || errors.Is(err, ledger.ErrLineageRevoked) {
		return err
	}
	return fmt.Errorf("%w: %v", ledger.ErrUnavailable, err)
}

func (a *LedgerAdapter) entry(jti string, expiresAt time.Time, reason domain.RevocationReason) domain.Revocation {
	return domain.Revocation{
		JTI:       jti,
		Reason:    reason,
		RevokedAt: a.clock.Now(),
		ExpiresAt: expiresAt.UTC(),
	}
}

func (a *LedgerAdapter) Revoke(ctx context.Context, jti string, expiresAt time.Time, reason domain.RevocationReason) error {
	_, err := a.store.Revocations().InsertRevocation(ctx, a.entry(jti, expiresAt, reason))
	return unavailable(err)
}

func (a *LedgerAdapter) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, ok, err := a.Lookup(ctx, jti)
	return ok, err
}

func (a *LedgerAdapter) Lookup(ctx context.Context, jti string) (domain.Revocation, bool, error) {
	e, err := a.store.Revocations().GetRevocation(ctx, jti)
	if errors.Is(err, ErrNotFound) {
		return domain.Revocation{}, false, nil
	}
	if err != nil {
		return domain.Revocation{}, false, unavailable(err)
	}
	return e, true, nil
}

func (a *LedgerAdapter) MarkLineageUsed(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	used, err := a.store.Lineage().MarkUsed(ctx, jti, a.clock.Now(), expiresAt.UTC())
	return used, unavailable(err)
}

// LinkSuccessors checks the parent and writes the links in one transaction,
// so it serialises against RevokeLineage.
func (a *LedgerAdapter) LinkSuccessors(ctx context.Context, parent domain.TokenRef, successors ...domain.TokenRef) error {
	if len(successors) == 0 {
		return nil
	}

	parentRevoked := false
	err := a.store.WithTx(ctx, func(tx Tx) error {
		_, err := tx.Revocations().GetRevocation(ctx, parent.JTI)
		switch {
		case err == nil:
			parentRevoked = true
			for _, s := range successors {
				if _, err := tx.Revocations().InsertRevocation(ctx, a.entry(s.JTI, s.ExpiresAt, domain.ReasonLineage)); err != nil {
					return err
				}
			}
			return nil
		case !errors.Is(err, ErrNotFound):
			return err
		}

		for _, s := range successors {
			if err := tx.Lineage().InsertLink(ctx, parent, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	if parentRevoked {
		return ledger.ErrLineageRevoked
	}
	return nil
}

func (a *LedgerAdapter) RevokeLineage(ctx context.Context, jti string, expiresAt time.Time, reason domain.RevocationReason) (int, error) {
	var n int
	err := a.store.WithTx(ctx, func(tx Tx) error {
		n = 0
		seen := map[string]bool{jti: true}
		queue := []domain.Revocation{a.entry(jti, expiresAt, reason)}

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]

			wrote, err := tx.Revocations().InsertRevocation(ctx, cur)
			if err != nil {
				return err
			}
			if wrote {
				n++
			}

			children, err := tx.Lineage().ListChildren(ctx, cur.JTI)
			if err != nil {
				return err
			}
			for _, c := range children {
				if seen[c.JTI] {
					continue
				}
				seen[c.JTI] = true
				queue = append(queue, a.entry(c.JTI, c.ExpiresAt, domain.ReasonLineage))
			}
		}
		return nil
	})
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func (a *LedgerAdapter) Prune(ctx context.Context, now time.Time) (int, error) {
	var total int
	err := a.store.WithTx(ctx, func(tx Tx) error {
		total = 0
		for _, del := range []func(context.Context, time.Time) (int, error){
			tx.Revocations().DeleteExpiredRevocations,
			tx.Lineage().DeleteExpiredUses,
			tx.Lineage().DeleteExpiredLinks,
		} {
			n, err := del(ctx, now)
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, unavailable(err)
	}
	return total, nil
}

func (a *LedgerAdapter) Ping(ctx context.Context) error {
	return unavailable(a.store.Ping(ctx))
}

// Close is a no-op: the Store is owned by whoever opened it.
func (a *LedgerAdapter) Close() error { return nil }
