package jwtx

import "errors"

// Outcomes of decoding and validating a token. Callers collapse these into a
// single external "invalid token" answer; the distinction exists for logs
// and tests.
var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrSignature   = errors.New("jwtx: invalid signature")
	ErrWrongType   = errors.New("jwtx: wrong token type")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrAudience    = errors.New("jwtx: audience mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")

	// ErrConfiguration is fatal: the process must not start with it.
	ErrConfiguration = errors.New("jwtx: invalid configuration")
)
