package auth

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	AccessCookie  = "token"
	RefreshCookie = "refreshToken"
	LoginCookie   = "loginResponse"

	accessCookieAge  = 30 * time.Minute
	refreshCookieAge = 7 * 24 * time.Hour
	loginCookieAge   = 30 * time.Minute
)

// CookieConfig controls cross-site cookie attributes. Production runs the
// frontend on another origin, so cookies are SameSite=None and Secure.
type CookieConfig struct {
	Secure bool
	Domain string
}

// Cookies writes the session cookies.
type Cookies struct {
	cfg CookieConfig
}

func NewCookies(cfg CookieConfig) *Cookies {
	return &Cookies{cfg: cfg}
}

func (c *Cookies) cookie(name, value string, maxAge time.Duration, httpOnly bool) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Expires:  time.Now().Add(maxAge),
		HttpOnly: httpOnly,
		SameSite: http.SameSiteLaxMode,
	}
	if c.cfg.Secure {
		ck.SameSite = http.SameSiteNoneMode
		ck.Secure = true
		ck.Domain = c.cfg.Domain
	}
	return ck
}

func (c *Cookies) SetAccess(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(AccessCookie, token, accessCookieAge, true))
}

func (c *Cookies) SetRefresh(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(RefreshCookie, token, refreshCookieAge, true))
}

// SetLoginResponse stores v as URI-encoded JSON readable by the frontend.
func (c *Cookies) SetLoginResponse(w http.ResponseWriter, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	value := strings.ReplaceAll(url.QueryEscape(string(raw)), "+", "%20")
	http.SetCookie(w, c.cookie(LoginCookie, value, loginCookieAge, false))
	return nil
}

// Clear expires all three session cookies.
func (c *Cookies) Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie, LoginCookie} {
		ck := c.cookie(name, "", 0, name != LoginCookie)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		http.SetCookie(w, ck)
	}
}

// TokenFromRequest returns the access token from the cookie or, failing
// that, an Authorization bearer header.
func TokenFromRequest(r *http.Request) string {
	if ck, err := r.Cookie(AccessCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
