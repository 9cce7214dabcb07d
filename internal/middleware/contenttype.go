package middleware

import (
	"mime"
	"net/http"

	"github.com/devboard/devboard-api/internal/metrics"
)

// ContentType requires application/json on write requests that carry a body.
// Bodyless commands such as POST /notifications/read-all pass through.
func ContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hasBody(r) {
			next.ServeHTTP(w, r)
			return
		}

		raw := r.Header.Get("Content-Type")
		if raw == "" {
			metrics.RecordRejection("content_type")
			writeError(w, http.StatusBadRequest, "Bad Request", "Content-Type header is required", nil)
			return
		}
		mediaType, _, err := mime.ParseMediaType(raw)
		if err != nil || mediaType != "application/json" {
			metrics.RecordRejection("content_type")
			writeError(w, http.StatusUnsupportedMediaType, "Unsupported Media Type", "Content-Type must be application/json", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func hasBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return false
	}
	// -1 means unknown length (chunked)
	return r.ContentLength != 0 && r.Body != nil && r.Body != http.NoBody
}
