package authsdk

// Endpoint paths served by the session service.
const (
	PathLogin   = "/v1/session/login"
	PathRefresh = "/v1/session/refresh"
	PathLogout  = "/v1/session/logout"
	PathMe      = "/v1/session/me"
	PathLivez   = "/livez"
	PathReadyz  = "/readyz"
)

// Cookie names used when the service delivers tokens as cookies.
const (
	CookieAccessToken  = "access_token"
	CookieRefreshToken = "refresh_token"
)

// ErrorResponse represents a standard OAuth2 error response per RFC 6749.
// Client code should use the OAuth2Error type from errors.go instead.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	// AccessToken authenticates API requests.
	AccessToken string `json:"access_token"`

	// RefreshToken is single use: it is consumed by the next refresh.
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	ExpiresIn int `json:"expires_in"`

	// RefreshExpiresIn is the lifetime in seconds of the refresh token.
	RefreshExpiresIn int `json:"refresh_expires_in"`
}

// MeResponse describes the principal behind an access token. Email is the
// value captured when the token pair was first issued.
type MeResponse struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenID   string `json:"jti"`
	ExpiresAt int64  `json:"exp"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime,omitempty"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}
