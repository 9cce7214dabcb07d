package middleware

import (
	"net/http"

	logpkg "github.com/devboard/devboard-api/internal/logger"
	"github.com/devboard/devboard-api/internal/request"
	"go.uber.org/zap"
)

// auditEvents maps response statuses worth a security log line to their event name
var auditEvents = map[int]string{
	http.StatusUnauthorized:    "auth_rejected",
	http.StatusForbidden:       "access_denied",
	http.StatusTooManyRequests: "rate_limit_violation",
}

// Audit logs rejected and throttled requests
func Audit(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			event, ok := auditEvents[wrapped.statusCode]
			if !ok {
				return
			}
			logger.Warn(event,
				zap.Int("status_code", wrapped.statusCode),
				zap.String("method", r.Method),
				logpkg.Path(r.URL.Path),
				zap.String("ip", logpkg.SanitizeText(request.ClientIP(r), 64)),
			)
		})
	}
}
