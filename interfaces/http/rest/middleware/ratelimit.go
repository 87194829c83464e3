package middleware

import (
	"net"
	"net/http"

	"go.uber.org/zap"

	"handswers-backend/pkg/auth"
	pkgerrors "handswers-backend/pkg/errors"
	"handswers-backend/pkg/ratelimit"
)

// RateLimit applies limiter per client IP and, once authenticated, per
// user. A failing limiter lets the request through.
func RateLimit(limiter ratelimit.Limiter, scope string, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			keys := []string{scope + ":ip:" + clientIP(r)}
			if user, err := auth.GetUserFromContext(r.Context()); err == nil {
				keys = append(keys, scope+":user:"+user.UserID)
			}

			for _, key := range keys {
				allowed, err := limiter.Allow(r.Context(), key)
				if err != nil {
					logger.Warn("Rate limiter unavailable", zap.String("key", key), zap.Error(err))
					break
				}
				if !allowed {
					errs.Handle(w, r, pkgerrors.NewRateLimitError(limiter.Limit(), limiter.Window().String()))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP relies on chi's RealIP having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
