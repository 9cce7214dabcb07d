package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/devboard/devboard-api/internal/database"
	"github.com/devboard/devboard-api/internal/metrics"
	"github.com/devboard/devboard-api/internal/models"
	"github.com/devboard/devboard-api/internal/request"
	"go.uber.org/zap"
)

// TokenVerifier validates a bearer token and returns its claims
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.TokenClaims, error)
}

// UserResolver maps verified claims to a stored user, creating it if needed
type UserResolver interface {
	EnsureFromClaims(ctx context.Context, claims *models.TokenClaims) (*models.User, error)
}

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	return request.UserFromContext(r)
}

// bearerToken reads the token from the Authorization header. Browsers cannot set
// headers on websocket handshakes, so upgrades may pass it as ?access_token=.
func bearerToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if isWebsocketUpgrade(r) {
			if t := r.URL.Query().Get("access_token"); t != "" {
				return t, ""
			}
		}
		return "", "Missing Authorization header"
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", "Invalid Authorization header format"
	}
	return parts[1], ""
}

// Auth creates authentication middleware that validates JWT tokens
func Auth(verifier TokenVerifier, users UserResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, problem := bearerToken(r)
			if problem != "" {
				metrics.RecordRejection("unauthorized")
				writeError(w, http.StatusUnauthorized, "Unauthorized", problem, logger)
				return
			}

			ctx := r.Context()
			claims, err := verifier.Verify(ctx, token)
			if err != nil {
				logger.Debug("token_verification_failed", zap.Error(err))
				metrics.RecordRejection("unauthorized")
				writeError(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token", logger)
				return
			}

			user, err := users.EnsureFromClaims(ctx, claims)
			if errors.Is(err, database.ErrMissingEmail) {
				logger.Warn("token_missing_email", zap.String("subject", claims.Sub))
				metrics.RecordRejection("unauthorized")
				writeError(w, http.StatusUnauthorized, "Unauthorized", "Token has no email claim", logger)
				return
			}
			if err != nil {
				logger.Error("failed_to_resolve_user",
					zap.String("subject", claims.Sub),
					zap.Error(err),
				)
				writeError(w, http.StatusInternalServerError, "Internal Server Error", "Database error", logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func isWebsocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
