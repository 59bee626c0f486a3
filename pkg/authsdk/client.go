package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the tokenward session service.
// It provides access to unauthenticated operations and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// RefreshBuffer is how long before expiry a Session refreshes its access
	// token. Default: 30s.
	RefreshBuffer time.Duration
}

// NewSDKClient creates a new session service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		RefreshBuffer: 30 * time.Second,
	}
}

// Login authenticates with an identifier (username or email) and password
// and returns a Session holding the issued pair.
func (c *SDKClient) Login(ctx context.Context, identifier, password string, rememberMe bool) (*Session, error) {
	tokens, err := c.LoginGrant(ctx, identifier, password, rememberMe)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokens), nil
}

// NewSessionFromTokens creates a session from a previously obtained pair.
// expiresIn is the access token lifetime in seconds.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string, expiresIn int) *Session {
	return newSession(c, &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	})
}
