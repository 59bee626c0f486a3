package jwtx

import (
	"fmt"
	"slices"
	"time"
)

// Validator checks decoded claims against a point in time. The zero value
// applies no skew and no issuer or audience expectation.
type Validator struct {
	// Issuer the token must carry. Empty means "don't care".
	Issuer string

	// Audience the token must contain. Empty means "don't care".
	Audience string

	// Skew widens both ends of the validity window. Zero gives exact
	// boundaries: a token is expired at exp, not a second later.
	Skew time.Duration
}

// Validate runs the checks in a fixed order and returns the first failure:
// shape, type, issuer, audience, then the time window.
func (v Validator) Validate(c *Claims, now time.Time, expected TokenType) error {
	if c == nil {
		return fmt.Errorf("%w: no claims", ErrMalformed)
	}
	if err := c.ValidateShape(); err != nil {
		return err
	}

	if c.Type != expected {
		return fmt.Errorf("%w: got %q, want %q", ErrWrongType, c.Type, expected)
	}

	if v.Issuer != "" && c.Issuer != v.Issuer {
		return ErrIssuer
	}

	if v.Audience != "" && !slices.Contains([]string(c.Audience), v.Audience) {
		return ErrAudience
	}

	if now.Before(c.Issued().Add(-v.Skew)) {
		return ErrNotYetValid
	}
	if !now.Before(c.Expiry().Add(v.Skew)) {
		return ErrExpired
	}

	return nil
}

// ValidateShape checks that every required claim is present and that the
// token expires after it was issued.
func (c *Claims) ValidateShape() error {
	switch {
	case c.Subject == "":
		return fmt.Errorf("%w: missing sub", ErrMalformed)
	case c.ID == "":
		return fmt.Errorf("%w: missing jti", ErrMalformed)
	case c.IssuedAt == nil:
		return fmt.Errorf("%w: missing iat", ErrMalformed)
	case c.ExpiresAt == nil:
		return fmt.Errorf("%w: missing exp", ErrMalformed)
	case !c.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrMalformed, c.Type)
	case !c.Expiry().After(c.Issued()):
		return fmt.Errorf("%w: exp not after iat", ErrMalformed)
	}
	return nil
}
