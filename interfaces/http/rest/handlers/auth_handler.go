package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"handswers-backend/application/services"
	"handswers-backend/pkg/auth"
	"handswers-backend/pkg/common"
	pkgerrors "handswers-backend/pkg/errors"
)

// AuthHandler serves Google sign in, token refresh and logout.
type AuthHandler struct {
	base
	auth        *services.AuthService
	cookies     *auth.Cookies
	frontendURL string
}

func NewAuthHandler(svc *services.AuthService, cookies *auth.Cookies, frontendURL string, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		base:        base{errs: errs, logger: logger},
		auth:        svc,
		cookies:     cookies,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// GoogleLogin handles GET /auth/google?code= and always ends with a
// redirect to the frontend, which reads the loginResponse cookie.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	out, err := h.auth.GoogleLogin(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var snapshot interface{} = map[string]bool{
		"unregistered": out.Unregistered,
		"disabled":     out.Disabled,
	}
	if out.Tokens != nil {
		h.cookies.SetAccess(w, out.Tokens.Access)
		h.cookies.SetRefresh(w, out.Tokens.Refresh)
		snapshot = out.Session
	}
	if err := h.cookies.SetLoginResponse(w, snapshot); err != nil {
		h.fail(w, r, pkgerrors.NewInternalError("failed to encode login response").WithCause(err))
		return
	}
	http.Redirect(w, r, h.frontendURL+"/login-redirect", http.StatusFound)
}

// Refresh handles GET /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var token string
	if ck, err := r.Cookie(auth.RefreshCookie); err == nil {
		token = ck.Value
	}
	access, session, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.cookies.SetAccess(w, access)
	common.RespondAuth(w, "Token refresh successful.", session)
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	h.ok(w, "Logged out.", nil)
}
