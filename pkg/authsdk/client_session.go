package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// LoginGrant exchanges credentials for a token pair.
func (c *SDKClient) LoginGrant(ctx context.Context, identifier, password string, rememberMe bool) (*TokenResponse, error) {
	data := url.Values{
		"identifier":  {identifier},
		"password":    {password},
		"remember_me": {strconv.FormatBool(rememberMe)},
	}
	return c.requestTokens(ctx, PathLogin, data)
}

// RefreshGrant rotates refreshToken into a new pair. The presented refresh
// token is consumed whether or not the caller receives the response.
func (c *SDKClient) RefreshGrant(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return c.requestTokens(ctx, PathRefresh, url.Values{"refresh_token": {refreshToken}})
}

// LogoutTokens revokes the given tokens. Either may be empty. The server
// answers success for dead or garbage tokens, so the only errors are
// transport and availability failures.
func (c *SDKClient) LogoutTokens(ctx context.Context, accessToken, refreshToken string) error {
	data := url.Values{}
	if accessToken != "" {
		data.Set("access_token", accessToken)
	}
	if refreshToken != "" {
		data.Set("refresh_token", refreshToken)
	}

	resp, err := c.doForm(ctx, PathLogout, data)
	if err != nil {
		return err
	}

	var ack struct{}
	return decodeJSON(resp, &ack, http.StatusOK)
}

func (c *SDKClient) requestTokens(ctx context.Context, path string, data url.Values) (*TokenResponse, error) {
	resp, err := c.doForm(ctx, path, data)
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := decodeJSON(resp, &tokens, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokens, nil
}
