package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"handswers-backend/application/ports"
	pkgerrors "handswers-backend/pkg/errors"
)

func newTestJWT(t *testing.T) *JWTService {
	t.Helper()
	svc, err := NewJWTService(JWTConfig{
		AccessSecret:  "access-secret",
		AccessTTL:     time.Hour,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "handswers",
	})
	require.NoError(t, err)
	return svc
}

func TestJWTService_PairRoundTrip(t *testing.T) {
	svc := newTestJWT(t)
	session := ports.Session{UserID: "u1", Email: "t@north.edu", Name: "Tess", Roles: []string{"creator"}}

	pair, issued, err := svc.IssuePair(session)
	require.NoError(t, err)
	assert.NotZero(t, issued.ExpiresAt)

	claims, err := svc.ValidateAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, []string{"creator"}, claims.Roles)

	refreshed, err := svc.VerifyRefresh(pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, "Tess", refreshed.Name)
	assert.Zero(t, refreshed.ExpiresAt)
}

func TestJWTService_TokensAreNotInterchangeable(t *testing.T) {
	svc := newTestJWT(t)
	pair, _, err := svc.IssuePair(ports.Session{UserID: "u1"})
	require.NoError(t, err)

	_, err = svc.ValidateAccess(pair.Refresh)
	assert.Error(t, err)
	_, err = svc.VerifyRefresh(pair.Access)
	assert.Error(t, err)
}

func TestJWTService_Expired(t *testing.T) {
	svc := newTestJWT(t)
	token, _, err := svc.IssueAccess(ports.Session{UserID: "u1"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateAccess(token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = svc.ValidateAccess("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestNewJWTService_RequiresSecrets(t *testing.T) {
	_, err := NewJWTService(JWTConfig{AccessSecret: "x"})
	assert.Error(t, err)
}

func TestCookies_ProductionAttributes(t *testing.T) {
	rec := httptest.NewRecorder()
	c := NewCookies(CookieConfig{Secure: true, Domain: ".example.org"})
	c.SetAccess(rec, "tok")
	require.NoError(t, c.SetLoginResponse(rec, map[string]bool{"unregistered": true}))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, AccessCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteNoneMode, cookies[0].SameSite)
	assert.Equal(t, "example.org", cookies[0].Domain)
	assert.Equal(t, 1800, cookies[0].MaxAge)

	assert.False(t, cookies[1].HttpOnly)
	decoded, err := url.QueryUnescape(cookies[1].Value)
	require.NoError(t, err)
	assert.JSONEq(t, `{"unregistered":true}`, decoded)
}

func TestCookies_ClearAndDevelopmentDefaults(t *testing.T) {
	rec := httptest.NewRecorder()
	c := NewCookies(CookieConfig{})
	c.SetRefresh(rec, "r")
	c.Clear(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 4)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.False(t, cookies[0].Secure)
	for _, ck := range cookies[1:] {
		assert.Equal(t, -1, ck.MaxAge, ck.Name)
	}
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: AccessCookie, Value: "cookie"})
	assert.Equal(t, "cookie", TokenFromRequest(r))
}

func newGoogleServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogle(srv *httptest.Server) *GoogleIdentity {
	return NewGoogleIdentity(GoogleConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/auth/google",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	})
}

func TestGoogleIdentity_Exchange(t *testing.T) {
	srv := newGoogleServer(t, http.StatusOK, `{"access_token":"at","token_type":"Bearer","id_token":"idt"}`)
	g := newTestGoogle(srv)
	var audience []string
	g.verify = func(token string, aud []string) error {
		audience = aud
		return nil
	}
	g.decode = func(token string) (*googleAuthIDTokenVerifier.ClaimSet, error) {
		return &googleAuthIDTokenVerifier.ClaimSet{Email: "t@north.edu", Name: "Tess"}, nil
	}

	id, err := g.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "t@north.edu", id.Email)
	assert.Equal(t, []string{"client"}, audience)
}

func TestGoogleIdentity_RejectsBadToken(t *testing.T) {
	srv := newGoogleServer(t, http.StatusOK, `{"access_token":"at","token_type":"Bearer","id_token":"idt"}`)
	g := newTestGoogle(srv)
	g.verify = func(string, []string) error { return errors.New("wrong audience") }

	_, err := g.Exchange(context.Background(), "the-code")
	assert.True(t, pkgerrors.IsUnauthorized(err))
}

func TestGoogleIdentity_CodeRejected(t *testing.T) {
	srv := newGoogleServer(t, http.StatusBadRequest, `{"error":"invalid_grant"}`)

	_, err := newTestGoogle(srv).Exchange(context.Background(), "the-code")
	assert.True(t, pkgerrors.IsUnauthorized(err))
}
