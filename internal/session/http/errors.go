package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tokenward/internal/session/service"
	"github.com/aussiebroadwan/tokenward/pkg/authsdk"
	"github.com/aussiebroadwan/tokenward/pkg/slogx"
)

const maxFormBytes = 64 << 10

// writeServiceError maps coordinator errors onto the wire. Detail stays in
// the logs.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrStorageUnavailable):
		authsdk.ErrTemporarilyUnavailable.WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidGrant.WriteError(w)
	case errors.Is(err, service.ErrPrincipalDisabled):
		authsdk.ErrAccessDenied.WriteError(w)
	case errors.Is(err, service.ErrInvalidToken):
		authsdk.ErrInvalidRefreshToken.WriteError(w)
	case errors.Is(err, service.ErrUnauthorized):
		authsdk.ErrInvalidToken.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("unexpected session error", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

// writeAuthError is the AuthnMiddleware error writer: storage trouble is a
// 503, everything else the uniform 401.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrStorageUnavailable) {
		authsdk.ErrTemporarilyUnavailable.WriteError(w)
		return
	}
	authsdk.ErrInvalidToken.WriteError(w)
}

// parseForm accepts an empty or form-encoded body. It writes the error
// response itself and returns false on failure.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return false
	}
	return true
}

func tokenResponse(pair *service.Pair) authsdk.TokenResponse {
	tp := pair.TokenPair()
	return authsdk.TokenResponse{
		AccessToken:      tp.AccessToken,
		RefreshToken:     tp.RefreshToken,
		TokenType:        tp.TokenType,
		ExpiresIn:        int(tp.ExpiresIn.Seconds()),
		RefreshExpiresIn: int(tp.RefreshExpiresIn.Seconds()),
	}
}
