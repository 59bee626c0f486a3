package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/tokenward/internal/session/service"
	"github.com/aussiebroadwan/tokenward/pkg/authsdk"
	"github.com/aussiebroadwan/tokenward/pkg/httpx"
)

// CookieConfig controls delivery of tokens as HttpOnly cookies next to the
// JSON body. The zero value keeps the API bearer-only.
type CookieConfig struct {
	Enabled  bool
	Secure   bool
	Domain   string
	SameSite http.SameSite
}

// ParseSameSite maps "lax", "strict" or "none" onto http.SameSite. Empty
// means lax.
func ParseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("unknown SameSite mode %q", v)
	}
}

// set writes both tokens of pair. Each cookie lives as long as its token.
func (c CookieConfig) set(w http.ResponseWriter, pair *service.Pair) {
	if !c.Enabled {
		return
	}
	tp := pair.TokenPair()
	http.SetCookie(w, c.cookie(authsdk.CookieAccessToken, tp.AccessToken, tp.ExpiresIn))
	http.SetCookie(w, c.cookie(authsdk.CookieRefreshToken, tp.RefreshToken, tp.RefreshExpiresIn))
}

func (c CookieConfig) clear(w http.ResponseWriter) {
	if !c.Enabled {
		return
	}
	for _, name := range []string{authsdk.CookieAccessToken, authsdk.CookieRefreshToken} {
		expired := c.cookie(name, "", 0)
		expired.MaxAge = -1
		http.SetCookie(w, expired)
	}
}

// token returns the named cookie's value, or "" when cookies are off.
func (c CookieConfig) token(r *http.Request, name string) string {
	if !c.Enabled {
		return ""
	}
	raw, _ := httpx.CookieToken(name)(r)
	return raw
}

func (c CookieConfig) sources() []httpx.TokenSource {
	if !c.Enabled {
		return nil
	}
	return []httpx.TokenSource{httpx.CookieToken(authsdk.CookieAccessToken)}
}

func (c CookieConfig) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(ttl.Seconds()),
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: c.SameSite,
	}
}
