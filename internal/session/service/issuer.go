package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/tokenward/internal/session/domain"
	"github.com/aussiebroadwan/tokenward/pkg/clock"
	"github.com/aussiebroadwan/tokenward/pkg/jwtx"
)

// Issuer mints signed tokens. It never touches the ledger.
type Issuer struct {
	Codec *jwtx.Codec
	Clock clock.Clock

	// Zero TTLs fall back to the jwtx defaults.
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RememberMeTTL time.Duration

	// Issuer and Audience are stamped into iss/aud when set.
	Issuer   string
	Audience string
}

// Minted is a token together with the claims it encodes.
type Minted struct {
	Token  string
	Claims *jwtx.Claims
}

// Ref names the minted token for the ledger.
func (m Minted) Ref() domain.TokenRef {
	return domain.TokenRef{JTI: m.Claims.ID, ExpiresAt: m.Claims.Expiry()}
}

// Pair is what Login and Refresh return.
type Pair struct {
	Access  Minted
	Refresh Minted
}

// TokenPair flattens p for transport.
func (p *Pair) TokenPair() domain.TokenPair {
	return domain.TokenPair{
		AccessToken:      p.Access.Token,
		RefreshToken:     p.Refresh.Token,
		TokenType:        "Bearer",
		ExpiresIn:        p.Access.Claims.Expiry().Sub(p.Access.Claims.Issued()),
		RefreshExpiresIn: p.Refresh.Claims.Expiry().Sub(p.Refresh.Claims.Issued()),
	}
}

func (i *Issuer) IssueAccessToken(p domain.Principal) (Minted, error) {
	return i.mint(i.claims(jwtx.TypeAccess, p, orDefault(i.AccessTTL, jwtx.DefaultAccessTokenTTL), i.now()))
}

// IssueRefreshToken mints a refresh token rotated from lineage, which is
// empty at login.
func (i *Issuer) IssueRefreshToken(p domain.Principal, lineage string, rememberMe bool) (Minted, error) {
	return i.mint(i.refreshClaims(p, lineage, rememberMe, i.now()))
}

// IssuePair mints an access and a refresh token sharing one issue time.
func (i *Issuer) IssuePair(p domain.Principal, lineage string, rememberMe bool) (*Pair, error) {
	now := i.now()

	access, err := i.mint(i.claims(jwtx.TypeAccess, p, orDefault(i.AccessTTL, jwtx.DefaultAccessTokenTTL), now))
	if err != nil {
		return nil, err
	}
	refresh, err := i.mint(i.refreshClaims(p, lineage, rememberMe, now))
	if err != nil {
		return nil, err
	}
	return &Pair{Access: access, Refresh: refresh}, nil
}

func (i *Issuer) refreshClaims(p domain.Principal, lineage string, rememberMe bool, now time.Time) jwtx.Claims {
	ttl := orDefault(i.RefreshTTL, jwtx.DefaultRefreshTokenTTL)
	if rememberMe {
		ttl = orDefault(i.RememberMeTTL, jwtx.DefaultRememberMeTTL)
	}
	c := i.claims(jwtx.TypeRefresh, p, ttl, now)
	c.Lineage = lineage
	c.RememberMe = rememberMe
	return c
}

func (i *Issuer) claims(typ jwtx.TokenType, p domain.Principal, ttl time.Duration, now time.Time) jwtx.Claims {
	c := jwtx.NewClaims(typ, p.ID, p.Email, ttl, now)
	c.Issuer = i.Issuer
	if i.Audience != "" {
		c.Audience = jwt.ClaimStrings{i.Audience}
	}
	return c
}

func (i *Issuer) mint(c jwtx.Claims) (Minted, error) {
	if err := c.ValidateShape(); err != nil {
		return Minted{}, fmt.Errorf("mint %s token: %w", c.Type, err)
	}
	raw, err := i.Codec.Encode(c)
	if err != nil {
		return Minted{}, err
	}
	return Minted{Token: raw, Claims: &c}, nil
}

// now is truncated to whole seconds, the resolution of iat and exp on the
// wire, so Minted.Claims equals what Decode later returns.
func (i *Issuer) now() time.Time {
	clk := i.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return clk.Now().UTC().Truncate(time.Second)
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
