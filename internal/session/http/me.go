package http

import (
	"net/http"

	"github.com/aussiebroadwan/tokenward/pkg/authsdk"
	"github.com/aussiebroadwan/tokenward/pkg/httpx"
)

// MeHandler godoc
//
//	@Summary		Current principal
//	@Description	Returns the principal behind the access token as captured when the token was issued.
//	@Tags			Session
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.MeResponse		"user_id, email, jti, exp"
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		503	{object}	authsdk.ErrorResponse	"temporarily_unavailable"
//	@Router			/v1/session/me [get].
func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := httpx.ClaimsFromContext(r.Context())
		if !ok {
			authsdk.ErrInvalidToken.WriteError(w)
			return
		}

		httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{
			UserID:    claims.Subject,
			Email:     claims.Email,
			TokenID:   claims.ID,
			ExpiresAt: claims.Expiry().Unix(),
		})
	}
}
