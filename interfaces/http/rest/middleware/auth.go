package middleware

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"handswers-backend/pkg/auth"
	pkgerrors "handswers-backend/pkg/errors"
)

// TokenValidator checks an access token.
type TokenValidator interface {
	ValidateAccess(token string) (*auth.Claims, error)
}

// Authenticate resolves the access token from the token cookie or an
// Authorization bearer header and stores the user in the request
// context.
func Authenticate(validator TokenValidator, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.TokenFromRequest(r)
			if token == "" {
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Missing authentication token."))
				return
			}

			claims, err := validator.ValidateAccess(token)
			if err != nil {
				if !errors.Is(err, auth.ErrExpiredToken) {
					logger.Debug("Rejected access token", zap.Error(err))
				}
				errs.Handle(w, r, pkgerrors.NewForbiddenError("Invalid or expired token."))
				return
			}

			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				UserID: claims.UserID,
				Email:  claims.Email,
				Roles:  claims.Roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated users that lack role.
func RequireRole(role string, errs *pkgerrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.GetUserFromContext(r.Context())
			if err != nil {
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Unauthorized."))
				return
			}
			if !user.HasRole(role) {
				errs.Handle(w, r, pkgerrors.NewForbiddenError("Invalid permission."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
