package jwtx

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// HeaderType is the value of the "type" header field on every token.
const HeaderType = "token"

// Codec turns Claims into compact tokens and back. Decode never returns
// claims whose signature has not been checked.
type Codec struct {
	signer Signer
	parser *jwt.Parser
}

// NewCodec returns a codec that signs and verifies with s.
func NewCodec(s Signer) *Codec {
	return &Codec{
		signer: s,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{s.Alg()})),
	}
}

// Encode serialises claims as header.payload.signature, each segment
// unpadded base64url. Encoding the same claims twice gives the same bytes.
func (c *Codec) Encode(claims Claims) (string, error) {
	tok := &jwt.Token{
		Header: map[string]any{"alg": c.signer.Alg(), "type": HeaderType},
		Claims: claims,
	}

	signingString, err := tok.SigningString()
	if err != nil {
		return "", fmt.Errorf("jwtx: encode: %w", err)
	}

	sig, err := c.signer.Sign([]byte(signingString))
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}

	return signingString + "." + tok.EncodeSegment(sig), nil
}

// Decode splits raw, checks the header, verifies the signature and only
// then returns the decoded claims. Time claims come back in UTC.
func (c *Codec) Decode(raw string) (*Claims, error) {
	if strings.Count(raw, ".") != 2 {
		return nil, fmt.Errorf("%w: expected 3 segments", ErrMalformed)
	}

	claims := &Claims{}
	tok, parts, err := c.parser.ParseUnverified(raw, claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if alg, _ := tok.Header["alg"].(string); alg != c.signer.Alg() {
		return nil, fmt.Errorf("%w: unexpected alg %q", ErrMalformed, alg)
	}
	if typ, _ := tok.Header["type"].(string); typ != HeaderType {
		return nil, fmt.Errorf("%w: unexpected header type %q", ErrMalformed, typ)
	}

	sig, err := c.parser.DecodeSegment(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: signature segment: %v", ErrMalformed, err)
	}
	if !c.signer.Verify([]byte(parts[0]+"."+parts[1]), sig) {
		return nil, ErrSignature
	}

	normalise(claims)
	return claims, nil
}

func normalise(c *Claims) {
	c.IssuedAt = utc(c.IssuedAt)
	c.ExpiresAt = utc(c.ExpiresAt)
	c.NotBefore = utc(c.NotBefore)
}

func utc(d *jwt.NumericDate) *jwt.NumericDate {
	if d == nil {
		return nil
	}
	return jwt.NewNumericDate(d.Time.UTC())
}
