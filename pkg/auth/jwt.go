package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"handswers-backend/application/ports"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMissingToken     = errors.New("missing authentication token")
	ErrInvalidClaims    = errors.New("invalid token claims")
)

const (
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

// Claims represents the JWT claims
type Claims struct {
	UserID  string   `json:"id"`
	Email   string   `json:"email"`
	Name    string   `json:"name,omitempty"`
	Picture string   `json:"picture,omitempty"`
	Roles   []string `json:"roles"`
	Use     string   `json:"use"`
	jwt.RegisteredClaims
}

func (c *Claims) session() ports.Session {
	s := ports.Session{
		UserID:  c.UserID,
		Email:   c.Email,
		Name:    c.Name,
		Picture: c.Picture,
		Roles:   c.Roles,
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Unix()
	}
	return s
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
	Issuer        string
}

// JWTService signs and validates HS256 access and refresh tokens. The
// two kinds use separate secrets.
type JWTService struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(config JWTConfig) (*JWTService, error) {
	if config.AccessSecret == "" || config.RefreshSecret == "" {
		return nil, errors.New("access and refresh secrets are required")
	}
	return &JWTService{
		accessKey:  []byte(config.AccessSecret),
		refreshKey: []byte(config.RefreshSecret),
		accessTTL:  config.AccessTTL,
		refreshTTL: config.RefreshTTL,
		issuer:     config.Issuer,
		now:        time.Now,
	}, nil
}

func (s *JWTService) sign(session ports.Session, use string, key []byte, ttl time.Duration) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		UserID:  session.UserID,
		Email:   session.Email,
		Name:    session.Name,
		Picture: session.Picture,
		Roles:   session.Roles,
		Use:     use,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   session.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", nil, fmt.Errorf("sign %s token: %w", use, err)
	}
	return signed, claims, nil
}

// IssueAccess signs a short lived access token.
func (s *JWTService) IssueAccess(session ports.Session) (string, ports.Session, error) {
	token, claims, err := s.sign(session, tokenUseAccess, s.accessKey, s.accessTTL)
	if err != nil {
		return "", ports.Session{}, err
	}
	return token, claims.session(), nil
}

// IssuePair signs an access and a refresh token for the same session.
func (s *JWTService) IssuePair(session ports.Session) (ports.TokenPair, ports.Session, error) {
	access, issued, err := s.IssueAccess(session)
	if err != nil {
		return ports.TokenPair{}, ports.Session{}, err
	}
	refresh, _, err := s.sign(session, tokenUseRefresh, s.refreshKey, s.refreshTTL)
	if err != nil {
		return ports.TokenPair{}, ports.Session{}, err
	}
	return ports.TokenPair{Access: access, Refresh: refresh}, issued, nil
}

// ValidateAccess validates an access token and returns its claims.
func (s *JWTService) ValidateAccess(tokenString string) (*Claims, error) {
	return s.validate(tokenString, tokenUseAccess, s.accessKey)
}

// VerifyRefresh validates a refresh token. The expiry of the returned
// session is cleared since it belongs to the refresh token.
func (s *JWTService) VerifyRefresh(tokenString string) (ports.Session, error) {
	claims, err := s.validate(tokenString, tokenUseRefresh, s.refreshKey)
	if err != nil {
		return ports.Session{}, err
	}
	session := claims.session()
	session.ExpiresAt = 0
	return session, nil
}

func (s *JWTService) validate(tokenString, use string, key []byte) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, ErrInvalidSignature
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Use != use {
		return nil, fmt.Errorf("%w: not a %s token", ErrInvalidClaims, use)
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, fmt.Errorf("%w: invalid issuer", ErrInvalidClaims)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user ID", ErrInvalidClaims)
	}
	return claims, nil
}

var _ ports.TokenIssuer = (*JWTService)(nil)
