package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/tokenward/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func accessClaims() *jwtx.Claims {
	c := jwtx.NewClaims(jwtx.TypeAccess, "sub-1", "a@example.com", 30*time.Minute, t0)
	return &c
}

func TestValidatorExpiryBoundary(t *testing.T) {
	t.Parallel()

	v := jwtx.Validator{}
	c := accessClaims()
	exp := c.Expiry()

	require.NoError(t, v.Validate(c, t0, jwtx.TypeAccess))
	require.NoError(t, v.Validate(c, exp.Add(-time.Second), jwtx.TypeAccess))
	require.ErrorIs(t, v.Validate(c, exp, jwtx.TypeAccess), jwtx.ErrExpired)
	require.ErrorIs(t, v.Validate(c, exp.Add(time.Hour), jwtx.TypeAccess), jwtx.ErrExpired)
}

func TestValidatorNotYetValid(t *testing.T) {
	t.Parallel()

	c := accessClaims()
	require.ErrorIs(t, jwtx.Validator{}.Validate(c, t0.Add(-time.Second), jwtx.TypeAccess), jwtx.ErrNotYetValid)

	skewed := jwtx.Validator{Skew: 5 * time.Second}
	require.NoError(t, skewed.Validate(c, t0.Add(-5*time.Second), jwtx.TypeAccess))
	require.ErrorIs(t, skewed.Validate(c, t0.Add(-6*time.Second), jwtx.TypeAccess), jwtx.ErrNotYetValid)
	require.NoError(t, skewed.Validate(c, c.Expiry().Add(4*time.Second), jwtx.TypeAccess))
	require.ErrorIs(t, skewed.Validate(c, c.Expiry().Add(5*time.Second), jwtx.TypeAccess), jwtx.ErrExpired)
}

func TestValidatorCrossType(t *testing.T) {
	t.Parallel()

	access := accessClaims()
	refresh := jwtx.NewClaims(jwtx.TypeRefresh, "sub-1", "", time.Hour, t0)

	require.ErrorIs(t, jwtx.Validator{}.Validate(access, t0, jwtx.TypeRefresh), jwtx.ErrWrongType)
	require.ErrorIs(t, jwtx.Validator{}.Validate(&refresh, t0, jwtx.TypeAccess), jwtx.ErrWrongType)
}

func TestValidatorOrder(t *testing.T) {
	t.Parallel()

	// Wrong type and expired at once: type is reported first.
	c := accessClaims()
	require.ErrorIs(t, jwtx.Validator{}.Validate(c, t0.Add(time.Hour), jwtx.TypeRefresh), jwtx.ErrWrongType)

	// Missing subject beats everything.
	c.Subject = ""
	require.ErrorIs(t, jwtx.Validator{}.Validate(c, t0.Add(time.Hour), jwtx.TypeRefresh), jwtx.ErrMalformed)
}

func TestValidatorShape(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(c *jwtx.Claims)
	}{
		{"missing jti", func(c *jwtx.Claims) { c.ID = "" }},
		{"missing sub", func(c *jwtx.Claims) { c.Subject = "" }},
		{"missing iat", func(c *jwtx.Claims) { c.IssuedAt = nil }},
		{"missing exp", func(c *jwtx.Claims) { c.ExpiresAt = nil }},
		{"unknown type", func(c *jwtx.Claims) { c.Type = "id" }},
		{"exp equals iat", func(c *jwtx.Claims) { c.ExpiresAt = jwt.NewNumericDate(t0) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := accessClaims()
			tc.mutate(c)
			require.ErrorIs(t, jwtx.Validator{}.Validate(c, t0, jwtx.TypeAccess), jwtx.ErrMalformed)
		})
	}

	require.ErrorIs(t, jwtx.Validator{}.Validate(nil, t0, jwtx.TypeAccess), jwtx.ErrMalformed)
}

func TestValidatorIssuerAudience(t *testing.T) {
	t.Parallel()

	c := accessClaims()
	c.Issuer = "tokenward"
	c.Audience = jwt.ClaimStrings{"api", "media"}

	require.NoError(t, jwtx.Validator{Issuer: "tokenward", Audience: "media"}.Validate(c, t0, jwtx.TypeAccess))
	require.ErrorIs(t, jwtx.Validator{Issuer: "other"}.Validate(c, t0, jwtx.TypeAccess), jwtx.ErrIssuer)
	require.ErrorIs(t, jwtx.Validator{Audience: "admin"}.Validate(c, t0, jwtx.TypeAccess), jwtx.ErrAudience)
}

func TestNewClaims(t *testing.T) {
	t.Parallel()

	a := jwtx.NewClaims(jwtx.TypeAccess, "s", "e", time.Minute, t0)
	b := jwtx.NewClaims(jwtx.TypeAccess, "s", "e", time.Minute, t0)

	require.NotEqual(t, a.ID, b.ID)
	require.Len(t, a.ID, 36)
	require.Equal(t, t0, a.Issued())
	require.Equal(t, t0.Add(time.Minute), a.Expiry())
	require.Empty(t, a.Lineage)
}
