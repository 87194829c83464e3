package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"handswers-backend/application/ports"
	pkgerrors "handswers-backend/pkg/errors"
)

// LoginOutcome is the result of a Google sign in. Tokens is nil when
// the account is unknown or disabled.
type LoginOutcome struct {
	Tokens       *ports.TokenPair
	Session      *ports.Session
	Unregistered bool `json:"unregistered"`
	Disabled     bool `json:"disabled"`
}

// AuthService signs registered users in and keeps their sessions fresh.
type AuthService struct {
	users    ports.UserRepository
	identity ports.IdentityProvider
	tokens   ports.TokenIssuer
	logger   *zap.Logger
}

func NewAuthService(users ports.UserRepository, identity ports.IdentityProvider, tokens ports.TokenIssuer, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, identity: identity, tokens: tokens, logger: logger}
}

// GoogleLogin exchanges the OAuth code and issues tokens for an enabled
// account. Unknown and disabled accounts are reported, not failed.
func (s *AuthService) GoogleLogin(ctx context.Context, code string) (*LoginOutcome, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.NewValidationError("Google code not provided")
	}

	id, err := s.identity.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	users, err := s.users.GetByEmail(ctx, id.Email)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		s.logger.Info("Login by unregistered address")
		return &LoginOutcome{Unregistered: true}, nil
	}
	user := users[0]
	if !user.Enabled {
		s.logger.Info("Login by disabled account", zap.String("userId", user.ID))
		return &LoginOutcome{Disabled: true}, nil
	}

	pair, session, err := s.tokens.IssuePair(ports.Session{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    id.Name,
		Picture: id.Picture,
		Roles:   user.Roles,
	})
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to issue tokens").WithCause(err)
	}

	s.logger.Info("User logged in", zap.String("userId", user.ID))
	return &LoginOutcome{Tokens: &pair, Session: &session}, nil
}

// Refresh issues a new access token from a refresh token. The account
// is re-read so disabling a user stops refreshes.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, *ports.Session, error) {
	if refreshToken == "" {
		return "", nil, pkgerrors.NewUnauthorizedError("Missing refresh token.")
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", nil, pkgerrors.NewForbiddenError("Invalid refresh token.")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return "", nil, notFoundAs(err, "User not found.")
	}
	if !user.Enabled {
		return "", nil, pkgerrors.NewForbiddenError("Account disabled.")
	}

	// Roles come from the account, not the old token.
	claims.Roles = user.Roles
	access, session, err := s.tokens.IssueAccess(claims)
	if err != nil {
		return "", nil, pkgerrors.NewInternalError("failed to issue token").WithCause(err)
	}
	return access, &session, nil
}
