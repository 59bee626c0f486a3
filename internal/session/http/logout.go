package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tokenward/internal/session/service"
	"github.com/aussiebroadwan/tokenward/pkg/authsdk"
	"github.com/aussiebroadwan/tokenward/pkg/httpx"
)

// LogoutHandler serves POST /v1/session/logout.
type LogoutHandler struct {
	Sessions *service.Coordinator
	Cookies  CookieConfig
}

// ServeHTTP godoc
//
//	@Summary		Log out
//	@Description	Revokes the presented tokens. Tokens may come from the form, the bearer header or the
//	@Description	token cookies. Token cookies are cleared on success.
//	@Description	Invalid, expired or already revoked tokens are ignored, so the answer is 200 unless storage is down.
//	@Tags			Session
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Security		BearerAuth
//	@Param			access_token	formData	string					false	"Access token"
//	@Param			refresh_token	formData	string					false	"Refresh token"
//	@Success		200				{object}	map[string]string		"empty object"
//	@Failure		503				{object}	authsdk.ErrorResponse	"temporarily_unavailable"
//	@Router			/v1/session/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	tokens := []string{
		strings.TrimSpace(r.PostForm.Get("access_token")),
		strings.TrimSpace(r.PostForm.Get("refresh_token")),
	}
	if bearer, ok := httpx.BearerToken(r); ok {
		tokens = append(tokens, bearer)
	}
	tokens = append(tokens,
		h.Cookies.token(r, authsdk.CookieAccessToken),
		h.Cookies.token(r, authsdk.CookieRefreshToken),
	)

	if err := h.Sessions.Logout(r.Context(), tokens...); err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.Cookies.clear(w)
	httpx.WriteJSON(w, http.StatusOK, struct{}{})
}
