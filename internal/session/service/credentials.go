package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/tokenward/internal/session/domain"
	"github.com/aussiebroadwan/tokenward/internal/session/store"
	"github.com/aussiebroadwan/tokenward/pkg/clock"
	"github.com/aussiebroadwan/tokenward/pkg/cryptox"
	"github.com/aussiebroadwan/tokenward/pkg/idx"
	"github.com/aussiebroadwan/tokenward/pkg/slogx"
)

// CredentialStore checks a login secret. It must not reveal whether the
// identifier exists: unknown and wrong both give false.
type CredentialStore interface {
	Verify(ctx context.Context, identifier, secret string) (bool, error)
}

// PrincipalStore resolves an identifier to a principal, or
// ErrPrincipalNotFound.
type PrincipalStore interface {
	Lookup(ctx context.Context, identifier string) (domain.Principal, error)
}

// DirectoryCredentials serves both interfaces from the local principal table.
type DirectoryCredentials struct {
	Store  store.Store
	Hasher *cryptox.Hasher
	Clock  clock.Clock
}

var (
	_ CredentialStore = (*DirectoryCredentials)(nil)
	_ PrincipalStore  = (*DirectoryCredentials)(nil)
)

// Verify accepts a username or email as identifier.
func (d *DirectoryCredentials) Verify(ctx context.Context, identifier, secret string) (bool, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || secret == "" {
		_ = d.Hasher.VerifyDummy(secret)
		return false, nil
	}

	p, err := d.Store.Principals().GetPrincipalByLogin(ctx, identifier)
	if errors.Is(err, store.ErrNotFound) {
		_ = d.Hasher.VerifyDummy(secret)
		return false, nil
	}
	if err != nil {
		return false, storageUnavailable(err)
	}

	err = d.Hasher.Verify(secret, p.PasswordHash)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, cryptox.ErrInvalidHash):
		slogx.FromContext(ctx).Error("stored password hash is unreadable",
			slog.String("sub", p.ID), slog.Any("error", err))
	}
	return false, nil
}

// Lookup accepts a principal id, a username or an email.
func (d *DirectoryCredentials) Lookup(ctx context.Context, identifier string) (domain.Principal, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return domain.Principal{}, ErrPrincipalNotFound
	}

	p, err := d.Store.Principals().GetPrincipalByID(ctx, identifier)
	if errors.Is(err, store.ErrNotFound) {
		p, err = d.Store.Principals().GetPrincipalByLogin(ctx, identifier)
	}
	if errors.Is(err, store.ErrNotFound) {
		return domain.Principal{}, ErrPrincipalNotFound
	}
	if err != nil {
		return domain.Principal{}, storageUnavailable(err)
	}
	return p, nil
}

// ErrInvalidPrincipal rejects provisioning input.
var ErrInvalidPrincipal = errors.New("invalid_principal")

// CreatePrincipal provisions a new principal with a hashed password.
func (d *DirectoryCredentials) CreatePrincipal(ctx context.Context, username, email, password string) (domain.Principal, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	switch {
	case username == "":
		return domain.Principal{}, fmt.Errorf("%w: username is required", ErrInvalidPrincipal)
	case !strings.Contains(email, "@"):
		return domain.Principal{}, fmt.Errorf("%w: email %q is not an address", ErrInvalidPrincipal, email)
	case strings.Contains(username, "@"):
		return domain.Principal{}, fmt.Errorf("%w: username must not contain @", ErrInvalidPrincipal)
	case password == "":
		return domain.Principal{}, fmt.Errorf("%w: password is required", ErrInvalidPrincipal)
	}

	hash, err := d.Hasher.Hash(password)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("hash password: %w", err)
	}

	now := d.now()
	p := domain.Principal{
		ID:           idx.NewAt(now).String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := d.Store.Principals().CreatePrincipal(ctx, p); err != nil {
		return domain.Principal{}, err
	}
	return p, nil
}

// SetDisabled flips the disabled flag of the principal named by identifier.
func (d *DirectoryCredentials) SetDisabled(ctx context.Context, identifier string, disabled bool) error {
	p, err := d.Lookup(ctx, identifier)
	if err != nil {
		return err
	}
	return d.Store.Principals().SetDisabled(ctx, p.ID, disabled, d.now())
}

func (d *DirectoryCredentials) now() time.Time {
	if d.Clock == nil {
		return clock.Real().Now()
	}
	return d.Clock.Now()
}
