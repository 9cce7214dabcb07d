package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/devboard/devboard-api/internal/logger"
	"github.com/devboard/devboard-api/internal/middleware"
	"github.com/devboard/devboard-api/internal/models"
	"github.com/devboard/devboard-api/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	// DefaultWindowDays is the analytics window when ?days= is absent
	DefaultWindowDays = 30
	// MaxWindowDays bounds ?days=
	MaxWindowDays = 365
)

// envelope is the body of every API response. Middleware rejections use the same shape.
type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// maxErrorMessageLength bounds messages echoed to clients
const maxErrorMessageLength = 200

func writeEnvelope(w http.ResponseWriter, status int, body envelope) {
	body.Timestamp = time.Now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondJSON sends a success envelope around data
func respondJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, envelope{Success: true, Data: data})
}

// respondJSONError sends a failure envelope. The message is cleaned and
// truncated since it may echo request input.
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	writeEnvelope(w, status, envelope{
		Error:   errorType,
		Message: logger.SanitizeText(message, maxErrorMessageLength),
	})
}

// requireUser returns the authenticated user or writes a 401
func requireUser(w http.ResponseWriter, r *http.Request) *models.User {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
	}
	return user
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether decoding succeeded.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		// Check if error is due to request size limit
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}

	if err := validation.Validate.Struct(dst); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed: "+strings.Join(validation.FieldErrors(err), "; "))
		return false
	}
	return true
}

// pathUUID parses a UUID route variable
func pathUUID(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// windowDays reads ?days=, defaulting and clamping to [1, MaxWindowDays]
func windowDays(r *http.Request) int {
	days := DefaultWindowDays
	if d := r.URL.Query().Get("days"); d != "" {
		if parsed, err := strconv.Atoi(d); err == nil && parsed > 0 {
			days = parsed
		}
	}
	if days > MaxWindowDays {
		days = MaxWindowDays
	}
	return days
}

// windowStart is the first instant included in a window of days ending now
func windowStart(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}
