package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"canopy-backend/infrastructure/config"
	"canopy-backend/pkg/auth"
	"canopy-backend/pkg/common"
)

// Authenticate validates the bearer token and places the caller's identity
// in the request context. In development without a configured secret, the
// X-User-ID header is trusted so the API can be exercised locally.
func Authenticate(cfg *config.Config, logger *zap.Logger) func(next http.Handler) http.Handler {
	if cfg.JWTSecret == "" && cfg.IsDevelopment() {
		logger.Warn("JWT secret not configured, trusting X-User-ID header (development only)")
		return headerAuth
	}

	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  []string{"canopy-api"},
	})
	if err != nil {
		logger.Error("failed to create JWT validator", zap.Error(err))
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication unavailable")
			})
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
				return
			}

			user, err := validator.Validate(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

func headerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing X-User-ID header")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), &auth.UserContext{UserID: userID})))
	})
}
