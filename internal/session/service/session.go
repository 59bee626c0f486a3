package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tokenward/internal/session/domain"
	"github.com/aussiebroadwan/tokenward/internal/session/ledger"
	"github.com/aussiebroadwan/tokenward/pkg/clock"
	"github.com/aussiebroadwan/tokenward/pkg/jwtx"
	"github.com/aussiebroadwan/tokenward/pkg/slogx"
)

// DefaultLedgerTimeout bounds each ledger call when none is configured.
const DefaultLedgerTimeout = 2 * time.Second

// Coordinator drives login, refresh rotation, logout and authentication.
// It holds no session state of its own; everything shared lives in Ledger.
type Coordinator struct {
	Credentials CredentialStore
	Principals  PrincipalStore
	Issuer      *Issuer
	Codec       *jwtx.Codec
	Validator   jwtx.Validator
	Ledger      ledger.Ledger
	Clock       clock.Clock

	LedgerTimeout time.Duration
}

// Login checks the secret, rejects disabled principals and mints a root
// pair. It writes nothing to the ledger.
func (c *Coordinator) Login(ctx context.Context, identifier, secret string, rememberMe bool) (*Pair, error) {
	l := slogx.FromContext(ctx)

	ok, err := c.Credentials.Verify(ctx, identifier, secret)
	if err != nil {
		l.Error("credential check failed", slog.Any("error", err))
		return nil, storageUnavailable(err)
	}
	if !ok {
		l.Info("login rejected")
		return nil, ErrInvalidCredentials
	}

	p, err := c.Principals.Lookup(ctx, identifier)
	if errors.Is(err, ErrPrincipalNotFound) {
		// Deleted between the two calls.
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		l.Error("principal lookup failed", slog.Any("error", err))
		return nil, storageUnavailable(err)
	}
	if p.Disabled {
		l.Warn("login by disabled principal", slog.String("sub", p.ID))
		return nil, ErrPrincipalDisabled
	}

	pair, err := c.Issuer.IssuePair(p, "", rememberMe)
	if err != nil {
		return nil, err
	}
	slogx.FromContext(slogx.WithToken(ctx, p.ID, pair.Refresh.Claims.ID)).Info("login", slog.Bool("remember_me", rememberMe))
	return pair, nil
}

// Refresh rotates a refresh token. Each refresh token can be spent once;
// presenting it again revokes everything minted from it.
func (c *Coordinator) Refresh(ctx context.Context, raw string) (*Pair, error) {
	l := slogx.FromContext(ctx)

	claims, err := c.decode(raw, jwtx.TypeRefresh)
	if err != nil {
		l.Info("refresh token rejected", slog.Any("error", err))
		return nil, ErrInvalidToken
	}
	ctx = slogx.WithToken(ctx, claims.Subject, claims.ID)
	l = slogx.FromContext(ctx)
	parent := domain.TokenRef{JTI: claims.ID, ExpiresAt: claims.Expiry()}

	revoked, err := c.isRevoked(ctx, claims.ID)
	if err != nil {
		l.Error("revocation check failed", slog.Any("error", err))
		return nil, storageUnavailable(err)
	}
	if revoked {
		l.Info("revoked refresh token presented")
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrRevoked)
	}

	used, err := c.markUsed(ctx, parent)
	if err != nil {
		l.Error("consuming refresh token failed", slog.Any("error", err))
		return nil, storageUnavailable(err)
	}
	if used {
		n, err := c.revokeLineage(ctx, parent)
		if err != nil {
			l.Error("refresh token reuse detected, lineage revocation failed", slog.Any("error", err))
			return nil, storageUnavailable(err)
		}
		l.Warn("refresh token reuse detected, lineage revoked", slog.Int("revoked", n))
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrReuseDetected)
	}

	// Claims are snapshots: the new pair carries the presented email.
	p := domain.Principal{ID: claims.Subject, Email: claims.Email}
	pair, err := c.Issuer.IssuePair(p, claims.ID, claims.RememberMe)
	if err != nil {
		return nil, err
	}

	err = c.link(ctx, parent, pair.Access.Ref(), pair.Refresh.Ref())
	if errors.Is(err, ledger.ErrLineageRevoked) {
		// A replay raced this rotation after markUsed. The ledger has already
		// revoked the new pair, so the caller wins but holds dead tokens.
		l.Warn("lineage revoked during rotation, new pair is already revoked",
			slog.String("new_jti", pair.Refresh.Claims.ID))
		return pair, nil
	}
	if err != nil {
		l.Error("recording rotation failed", slog.Any("error", err))
		return nil, storageUnavailable(err)
	}

	l.Info("refresh token rotated", slog.String("new_jti", pair.Refresh.Claims.ID))
	return pair, nil
}

// Logout revokes every presented token it can decode. Garbage, expired and
// already revoked tokens are not errors; only storage failure is.
func (c *Coordinator) Logout(ctx context.Context, raws ...string) error {
	l := slogx.FromContext(ctx)

	var failed error
	for _, raw := range raws {
		if raw == "" {
			continue
		}
		claims, err := c.Codec.Decode(raw)
		if err == nil {
			err = claims.ValidateShape()
		}
		if err != nil {
			l.Debug("logout skipped undecodable token", slog.Any("error", err))
			continue
		}

		tl := slogx.FromContext(slogx.WithToken(ctx, claims.Subject, claims.ID))
		if err := c.revoke(ctx, claims); err != nil {
			tl.Error("logout revocation failed", slog.Any("error", err))
			failed = err
			continue
		}
		tl.Info("token revoked", slog.String("type", string(claims.Type)))
	}

	if failed != nil {
		return storageUnavailable(failed)
	}
	return nil
}

// Authenticate admits a live, unrevoked access token. Every rejection is
// ErrUnauthorized; storage failure is ErrStorageUnavailable and never
// admits the token.
func (c *Coordinator) Authenticate(ctx context.Context, raw string) (*jwtx.Claims, error) {
	l := slogx.FromContext(ctx)

	claims, err := c.decode(raw, jwtx.TypeAccess)
	if err != nil {
		l.Debug("access token rejected", slog.Any("error", err))
		return nil, ErrUnauthorized
	}
	l = slogx.FromContext(slogx.WithToken(ctx, claims.Subject, claims.ID))

	revoked, err := c.isRevoked(ctx, claims.ID)
	if err != nil {
		l.Error("revocation check failed", slog.Any("error", err))
		return nil, storageUnavailable(err)
	}
	if revoked {
		l.Info("revoked access token presented")
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, ErrRevoked)
	}
	return claims, nil
}

// Ready reports whether the ledger is reachable.
func (c *Coordinator) Ready(ctx context.Context) error {
	ctx, cancel := c.ledgerCtx(ctx)
	defer cancel()
	return c.Ledger.Ping(ctx)
}

func (c *Coordinator) decode(raw string, typ jwtx.TokenType) (*jwtx.Claims, error) {
	claims, err := c.Codec.Decode(raw)
	if err != nil {
		return nil, err
	}
	if err := c.Validator.Validate(claims, c.now(), typ); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *Coordinator) ledgerCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.LedgerTimeout
	if timeout <= 0 {
		timeout = DefaultLedgerTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (c *Coordinator) isRevoked(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := c.ledgerCtx(ctx)
	defer cancel()
	return c.Ledger.IsRevoked(ctx, jti)
}

func (c *Coordinator) markUsed(ctx context.Context, ref domain.TokenRef) (bool, error) {
	ctx, cancel := c.ledgerCtx(ctx)
	defer cancel()
	return c.Ledger.MarkLineageUsed(ctx, ref.JTI, ref.ExpiresAt)
}

func (c *Coordinator) revokeLineage(ctx context.Context, ref domain.TokenRef) (int, error) {
	ctx, cancel := c.ledgerCtx(ctx)
	defer cancel()
	return c.Ledger.RevokeLineage(ctx, ref.JTI, ref.ExpiresAt, domain.ReasonReuse)
}

func (c *Coordinator) link(ctx context.Context, parent domain.TokenRef, successors ...domain.TokenRef) error {
	ctx, cancel := c.ledgerCtx(ctx)
	defer cancel()
	return c.Ledger.LinkSuccessors(ctx, parent, successors...)
}

func (c *Coordinator) revoke(ctx context.Context, claims *jwtx.Claims) error {
	ctx, cancel := c.ledgerCtx(ctx)
	defer cancel()
	return c.Ledger.Revoke(ctx, claims.ID, claims.Expiry(), domain.ReasonLogout)
}

func (c *Coordinator) now() time.Time {
	if c.Clock == nil {
		return clock.Real().Now()
	}
	return c.Clock.Now()
}
