package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tokenward/internal/session/service"
	"github.com/aussiebroadwan/tokenward/pkg/authsdk"
	"github.com/aussiebroadwan/tokenward/pkg/httpx"
)

// RefreshHandler serves POST /v1/session/refresh.
type RefreshHandler struct {
	Sessions *service.Coordinator
	Cookies  CookieConfig
}

// ServeHTTP godoc
//
//	@Summary		Rotate a refresh token
//	@Description	Spends the refresh token and returns a new pair. A refresh token can be spent once;
//	@Description	presenting it again revokes every token rotated from it. When cookies are enabled the
//	@Description	refresh_token cookie is used if the form field is absent.
//	@Tags			Session
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			refresh_token	formData	string					false	"Refresh token, required unless sent as a cookie"
//	@Success		200				{object}	authsdk.TokenResponse	"token pair"
//	@Failure		400				{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401				{object}	authsdk.ErrorResponse	"invalid_grant"
//	@Failure		503				{object}	authsdk.ErrorResponse	"temporarily_unavailable"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Set-Cookie				"rotated cookies, when cookies are enabled"
//	@Router			/v1/session/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	refresh := strings.TrimSpace(r.PostForm.Get("refresh_token"))
	if refresh == "" {
		refresh = h.Cookies.token(r, authsdk.CookieRefreshToken)
	}
	if refresh == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.Sessions.Refresh(r.Context(), refresh)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.Cookies.set(w, pair)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}
