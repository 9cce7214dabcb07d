package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const (
	// DefaultActivityDebounce is the minimum gap between activity writes for one user
	DefaultActivityDebounce = time.Minute
	activityCacheSize       = 10000
)

// ActivityRecorder persists the last API interaction of a user
type ActivityRecorder interface {
	UpdateLastInteraction(ctx context.Context, userID uuid.UUID) error
}

// ActivityTracking records API activity for authenticated requests. The reminder
// evaluator monitors only users seen recently. Writes are debounced per user.
func ActivityTracking(recorder ActivityRecorder, debounce time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	if debounce <= 0 {
		debounce = DefaultActivityDebounce
	}
	recent := expirable.NewLRU[uuid.UUID, struct{}](activityCacheSize, nil, debounce)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := UserFromContext(r); user != nil && !recent.Contains(user.ID) {
				if err := recorder.UpdateLastInteraction(r.Context(), user.ID); err != nil {
					// Don't fail the request if activity tracking fails
					logger.Warn("failed_to_update_user_activity",
						zap.String("user_id", user.ID.String()),
						zap.Error(err),
					)
				} else {
					recent.Add(user.ID, struct{}{})
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
