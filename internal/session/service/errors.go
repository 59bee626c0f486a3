package service

import (
	"errors"
	"fmt"
)

// Errors returned by the session coordinator. Only ErrInvalidCredentials,
// ErrInvalidToken, ErrUnauthorized, ErrPrincipalDisabled and
// ErrStorageUnavailable are meant to reach clients; the rest are wrapped
// inside them and exist for logs and tests.
var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrPrincipalDisabled  = errors.New("principal_disabled")
	ErrPrincipalNotFound  = errors.New("principal_not_found")

	// ErrStorageUnavailable is transient: the caller may retry.
	ErrStorageUnavailable = errors.New("storage_unavailable")

	ErrRevoked       = errors.New("token_revoked")
	ErrReuseDetected = errors.New("refresh_token_reuse_detected")
)

func storageUnavailable(err error) error {
	if errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
