package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tokenward/internal/session/service"
	"github.com/aussiebroadwan/tokenward/pkg/authsdk"
	"github.com/aussiebroadwan/tokenward/pkg/httpx"
)

// LoginHandler serves POST /v1/session/login.
type LoginHandler struct {
	Sessions *service.Coordinator
	Cookies  CookieConfig
}

// ServeHTTP godoc
//
//	@Summary		Log in
//	@Description	Exchanges a username or email and password for an access and refresh token pair.
//	@Description	Unknown users and wrong passwords get the same answer.
//	@Tags			Session
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			identifier	formData	string					true	"Username or email"
//	@Param			password	formData	string					true	"Password"
//	@Param			remember_me	formData	boolean					false	"Issue a long-lived refresh token"
//	@Success		200			{object}	authsdk.TokenResponse	"token pair"
//	@Failure		400			{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401			{object}	authsdk.ErrorResponse	"invalid_grant"
//	@Failure		403			{object}	authsdk.ErrorResponse	"access_denied: account disabled"
//	@Failure		429			{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Failure		503			{object}	authsdk.ErrorResponse	"temporarily_unavailable"
//	@Header			200			{string}	Cache-Control			"no-store"
//	@Header			200			{string}	Set-Cookie				"access_token and refresh_token, when cookies are enabled"
//	@Router			/v1/session/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	identifier := strings.TrimSpace(r.PostForm.Get("identifier"))
	password := r.PostForm.Get("password")
	if identifier == "" || password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.Sessions.Login(r.Context(), identifier, password, httpx.FormBool(r.PostForm.Get("remember_me")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.Cookies.set(w, pair)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}
