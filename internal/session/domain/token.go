package domain

import "time"

// TokenPair is what login and refresh hand back to the caller.
type TokenPair struct {
	AccessToken      string        `json:"access_token"`
	RefreshToken     string        `json:"refresh_token"`
	TokenType        string        `json:"token_type"` // always "Bearer"
	ExpiresIn        time.Duration `json:"-"`
	RefreshExpiresIn time.Duration `json:"-"`
}

// RevocationReason records why a token was revoked.
type RevocationReason string

const (
	ReasonLogout RevocationReason = "logout"

	// ReasonReuse marks the replayed refresh token itself.
	ReasonReuse RevocationReason = "reuse_detected"

	// ReasonLineage marks tokens revoked because an ancestor was replayed.
	ReasonLineage RevocationReason = "lineage_revoked"
)

// Revocation is one ledger entry. ExpiresAt mirrors the token's exp so the
// entry can be dropped once the token would be rejected anyway.
type Revocation struct {
	JTI       string           `cbor:"1,keyasint"`
	Reason    RevocationReason `cbor:"2,keyasint"`
	RevokedAt time.Time        `cbor:"3,keyasint"`
	ExpiresAt time.Time        `cbor:"4,keyasint"`
}

// TokenRef names a minted token and when it stops being valid.
type TokenRef struct {
	JTI       string    `cbor:"1,keyasint"`
	ExpiresAt time.Time `cbor:"2,keyasint"`
}
