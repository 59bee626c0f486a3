package jwtx

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretBytes is the shortest HMAC secret NewHMACSigner accepts.
const MinSecretBytes = 32

// Supported MAC algorithms.
const (
	AlgHS256 = "HS256"
	AlgHS384 = "HS384"
	AlgHS512 = "HS512"
)

// DefaultAlgorithm is used when no algorithm is configured.
const DefaultAlgorithm = AlgHS256

// Signer produces and checks the MAC over a token's signing input.
type Signer interface {
	Alg() string
	Sign(payload []byte) ([]byte, error)
	Verify(payload, signature []byte) bool
}

// HMACSigner signs with a shared secret. The secret is copied at
// construction and never exposed.
type HMACSigner struct {
	method *jwt.SigningMethodHMAC
	secret []byte
}

// NewHMACSigner validates alg and secret up front so a bad deployment fails
// at startup rather than on the first login.
func NewHMACSigner(alg string, secret []byte) (*HMACSigner, error) {
	method, err := hmacMethod(alg)
	if err != nil {
		return nil, err
	}
	if len(secret) < MinSecretBytes {
		return nil, fmt.Errorf("%w: signing secret must be at least %d bytes, got %d",
			ErrConfiguration, MinSecretBytes, len(secret))
	}

	return &HMACSigner{
		method: method,
		secret: append([]byte(nil), secret...),
	}, nil
}

func hmacMethod(alg string) (*jwt.SigningMethodHMAC, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", AlgHS256:
		return jwt.SigningMethodHS256, nil
	case AlgHS384:
		return jwt.SigningMethodHS384, nil
	case AlgHS512:
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrConfiguration, alg)
	}
}

func (s *HMACSigner) Alg() string { return s.method.Alg() }

// Sign returns the raw MAC of payload.
func (s *HMACSigner) Sign(payload []byte) ([]byte, error) {
	return s.method.Sign(string(payload), s.secret)
}

// Verify recomputes the MAC and compares it with hmac.Equal, so the time
// taken does not depend on where the first differing byte is.
func (s *HMACSigner) Verify(payload, signature []byte) bool {
	return s.method.Verify(string(payload), signature, s.secret) == nil
}
