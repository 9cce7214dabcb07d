// Package request carries per-request identity shared by middleware and handlers.
package request

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/devboard/devboard-api/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

// UserContextKey exposes the key so tests can plant values of the wrong type.
func UserContextKey() contextKey { return userContextKey }

// WithUser attaches the authenticated user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// User returns the authenticated user from ctx, or nil.
func User(ctx context.Context) *models.User {
	u, _ := ctx.Value(userContextKey).(*models.User)
	return u
}

// UserFromContext returns the authenticated user of r, or nil.
func UserFromContext(r *http.Request) *models.User {
	return User(r.Context())
}

// ClientIP is the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address without its port.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateKey identifies the caller for rate limiting. Authenticated callers are
// limited per account so that users behind one NAT do not share a budget.
func RateKey(r *http.Request) string {
	if u := UserFromContext(r); u != nil {
		return "user:" + u.ID.String()
	}
	return "ip:" + ClientIP(r)
}
