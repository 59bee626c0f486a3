package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Lifetimes used when the deployment does not override them.
const (
	DefaultAccessTokenTTL  = 30 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	// DefaultRememberMeTTL applies to refresh tokens minted for a
	// "remember me" login, and to everything rotated from them.
	DefaultRememberMeTTL = 30 * 24 * time.Hour
)

// TokenType discriminates what a token may be used for.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Valid reports whether t is one of the known token types.
func (t TokenType) Valid() bool {
	return t == TypeAccess || t == TypeRefresh
}

// Claims is the payload carried by every token. Field order is the wire
// order; do not reorder without accepting a format change.
type Claims struct {
	jwt.RegisteredClaims

	// Email is a snapshot of the principal's address at mint time. It is
	// not re-read on rotation.
	Email string `json:"email,omitempty"`

	Type TokenType `json:"type"`

	// Lineage is the jti of the refresh token this one was rotated from.
	// Empty for access tokens and for refresh tokens minted at login.
	Lineage string `json:"lineage,omitempty"`

	// RememberMe marks refresh tokens that use the extended lifetime.
	RememberMe bool `json:"remember_me,omitempty"`
}

// NewClaims builds claims of the given type for subject, valid from now
// for ttl. The jti is freshly generated.
func NewClaims(typ TokenType, subject, email string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Email: email,
		Type:  typ,
	}
}

// NewJTI returns a random (v4) UUID for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}

// Expiry returns exp as a time, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Issued returns iat as a time, or the zero time when absent.
func (c *Claims) Issued() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}
