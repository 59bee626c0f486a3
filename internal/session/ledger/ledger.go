// Package ledger defines the revocation ledger: the only shared mutable
// state of the session engine. Every operation is linearizable per jti.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tokenward/internal/session/domain"
)

var (
	// ErrUnavailable wraps any backend failure (timeouts, connection loss).
	// Callers must treat it as "unknown", never as "not revoked".
	ErrUnavailable = errors.New("ledger: backend unavailable")

	// ErrLineageRevoked is returned by LinkSuccessors when the parent was
	// revoked before the successors could be recorded. The successors are
	// revoked by the same call.
	ErrLineageRevoked = errors.New("ledger: lineage revoked")
)

// Entry is one revocation record.
type Entry = domain.Revocation

// Ledger records revocations and refresh token consumption.
type Ledger interface {
	// Revoke records jti as revoked until expiresAt. Idempotent: the first
	// entry for a jti wins and later calls leave it untouched.
	Revoke(ctx context.Context, jti string, expiresAt time.Time, reason domain.RevocationReason) error

	// IsRevoked reports whether jti has been revoked. It observes every
	// Revoke that completed before it was called.
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// Lookup returns the revocation entry for jti, if any.
	Lookup(ctx context.Context, jti string) (domain.Revocation, bool, error)

	// MarkLineageUsed atomically consumes the refresh token jti. Exactly
	// one caller ever sees alreadyUsed == false for a given jti.
	MarkLineageUsed(ctx context.Context, jti string, expiresAt time.Time) (alreadyUsed bool, err error)

	// LinkSuccessors records the tokens minted by rotating parent. If the
	// parent is already revoked the successors are revoked instead and
	// ErrLineageRevoked is returned.
	LinkSuccessors(ctx context.Context, parent domain.TokenRef, successors ...domain.TokenRef) error

	// RevokeLineage revokes jti and every recorded descendant, returning
	// how many entries were newly written.
	RevokeLineage(ctx context.Context, jti string, expiresAt time.Time, reason domain.RevocationReason) (int, error)

	// Prune drops state for tokens with expires_at <= now. Safe to run
	// concurrently with everything else.
	Prune(ctx context.Context, now time.Time) (int, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}
