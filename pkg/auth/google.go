package auth

import (
	"context"
	"errors"
	"fmt"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
	"golang.org/x/oauth2"

	"handswers-backend/application/ports"
	pkgerrors "handswers-backend/pkg/errors"
)

// GoogleEndpoint is Google's OAuth 2.0 endpoint.
var GoogleEndpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.google.com/o/oauth2/auth",
	TokenURL:  "https://oauth2.googleapis.com/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// GoogleConfig holds the OAuth client registration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoint     oauth2.Endpoint
}

// GoogleIdentity exchanges an authorization code and verifies the
// returned id_token against the client id.
type GoogleIdentity struct {
	oauth    *oauth2.Config
	clientID string

	verify func(idToken string, audience []string) error
	decode func(idToken string) (*googleAuthIDTokenVerifier.ClaimSet, error)
}

func NewGoogleIdentity(cfg GoogleConfig) *GoogleIdentity {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = GoogleEndpoint
	}
	v := googleAuthIDTokenVerifier.Verifier{}
	return &GoogleIdentity{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		clientID: cfg.ClientID,
		verify:   v.VerifyIDToken,
		decode:   googleAuthIDTokenVerifier.Decode,
	}
}

// Exchange implements ports.IdentityProvider.
func (g *GoogleIdentity) Exchange(ctx context.Context, code string) (ports.Identity, error) {
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return ports.Identity{}, pkgerrors.NewUnauthorizedError("Invalid Google code.")
		}
		return ports.Identity{}, pkgerrors.NewExternalError("google", err)
	}

	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return ports.Identity{}, pkgerrors.NewUnauthorizedError("Google did not return an id token.")
	}
	if err := g.verify(idToken, []string{g.clientID}); err != nil {
		return ports.Identity{}, pkgerrors.NewUnauthorizedError("Invalid Google ID token.").WithCause(err)
	}

	claims, err := g.decode(idToken)
	if err != nil {
		return ports.Identity{}, pkgerrors.NewExternalError("google", fmt.Errorf("decode id token: %w", err))
	}
	if claims.Email == "" {
		return ports.Identity{}, pkgerrors.NewUnauthorizedError("Google account has no email.")
	}
	return ports.Identity{Email: claims.Email, Name: claims.Name, Picture: claims.Picture}, nil
}

var _ ports.IdentityProvider = (*GoogleIdentity)(nil)
