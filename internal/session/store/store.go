package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tokenward/internal/session/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Drivers implement it and expose
// sub-repositories so a transaction-scoped Store cannot start another
// transaction by accident.
type Store interface {
	Principals() Principals
	Revocations() Revocations
	Lineage() Lineage

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Principals interface {
	GetPrincipalByID(ctx context.Context, id string) (domain.Principal, error)

	// GetPrincipalByLogin matches username or email, case-insensitively.
	GetPrincipalByLogin(ctx context.Context, login string) (domain.Principal, error)

	// CreatePrincipal inserts p. Returns ErrAlreadyExists when the username
	// or email is taken.
	CreatePrincipal(ctx context.Context, p domain.Principal) error

	SetDisabled(ctx context.Context, id string, disabled bool, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id string, newHash string, at time.Time) error

	// IsEmpty returns true if there are no principals.
	IsEmpty(ctx context.Context) (bool, error)
}

type Revocations interface {
	// InsertRevocation stores e unless an entry for e.JTI exists. Reports
	// whether a row was written.
	InsertRevocation(ctx context.Context, e domain.Revocation) (bool, error)

	GetRevocation(ctx context.Context, jti string) (domain.Revocation, error)

	// DeleteExpiredRevocations removes entries with expires_at <= now.
	DeleteExpiredRevocations(ctx context.Context, now time.Time) (int, error)
}

type Lineage interface {
	// MarkUsed records that the refresh token jti has been consumed.
	// alreadyUsed is true when it had been consumed before.
	MarkUsed(ctx context.Context, jti string, usedAt, expiresAt time.Time) (alreadyUsed bool, err error)

	// InsertLink records child as minted by rotating parent.
	InsertLink(ctx context.Context, parent, child domain.TokenRef) error

	ListChildren(ctx context.Context, parentJTI string) ([]domain.TokenRef, error)

	DeleteExpiredUses(ctx context.Context, now time.Time) (int, error)

	// DeleteExpiredLinks removes links whose parent expired at or before now.
	DeleteExpiredLinks(ctx context.Context, now time.Time) (int, error)
}
