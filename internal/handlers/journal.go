package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/devboard/devboard-api/internal/database"
	"github.com/devboard/devboard-api/internal/models"
	"github.com/devboard/devboard-api/internal/services/insights"
	"github.com/devboard/devboard-api/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// JournalHandler records journal entries and pomodoro sessions for analytics
type JournalHandler struct {
	journals  database.JournalRepositoryInterface
	pomodoros database.PomodoroRepositoryInterface
	cache     *insights.Cache
	logger    *zap.Logger
	now       func() time.Time
}

// NewJournalHandler creates a new journal handler
func NewJournalHandler(journals database.JournalRepositoryInterface, pomodoros database.PomodoroRepositoryInterface, cache *insights.Cache, log *zap.Logger) *JournalHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &JournalHandler{journals: journals, pomodoros: pomodoros, cache: cache, logger: log, now: time.Now}
}

// RegisterRoutes registers journal and pomodoro routes on the API router
func (h *JournalHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/journal", h.ListJournal).Methods("GET")
	r.HandleFunc("/journal", h.CreateJournal).Methods("POST")
	r.HandleFunc("/journal/{id}", h.DeleteJournal).Methods("DELETE")
	r.HandleFunc("/pomodoros", h.ListPomodoros).Methods("GET")
	r.HandleFunc("/pomodoros", h.CreatePomodoro).Methods("POST")
}

// CreateJournalRequest records a day's reflection
type CreateJournalRequest struct {
	Date         *time.Time `json:"date"`
	Entry        string     `json:"entry" validate:"required,max=10000"`
	Mood         int        `json:"mood" validate:"required,min=1,max=5"`
	Productivity int        `json:"productivity" validate:"required,min=1,max=5"`
}

// CreatePomodoroRequest records focused minutes
type CreatePomodoroRequest struct {
	Date         *time.Time `json:"date"`
	TaskID       *uuid.UUID `json:"task_id"`
	TotalMinutes int        `json:"total_minutes" validate:"required,min=1,max=1440"`
}

func dayOf(t *time.Time, now time.Time) time.Time {
	if t != nil {
		now = *t
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// CreateJournal stores a journal entry
func (h *JournalHandler) CreateJournal(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req CreateJournalRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	entry := &models.JournalEntry{
		UserID:       user.ID,
		Date:         dayOf(req.Date, h.now()),
		Entry:        validation.SanitizeText(req.Entry),
		Mood:         req.Mood,
		Productivity: req.Productivity,
	}
	if err := h.journals.Create(r.Context(), entry); err != nil {
		h.logger.Error("failed_to_create_journal_entry", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create journal entry")
		return
	}

	h.cache.Invalidate(user.ID)
	respondJSON(w, http.StatusCreated, entry)
}

// ListJournal lists journal entries for ?days=
func (h *JournalHandler) ListJournal(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	entries, err := h.journals.ListSince(r.Context(), user.ID, windowStart(h.now(), windowDays(r)))
	if err != nil {
		h.logger.Error("failed_to_list_journal_entries", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve journal entries")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// DeleteJournal deletes a journal entry
func (h *JournalHandler) DeleteJournal(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathUUID(w, r, "id", "journal entry")
	if !ok {
		return
	}

	if err := h.journals.Delete(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Journal entry not found")
			return
		}
		h.logger.Error("failed_to_delete_journal_entry", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete journal entry")
		return
	}

	h.cache.Invalidate(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// CreatePomodoro records a pomodoro session
func (h *JournalHandler) CreatePomodoro(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req CreatePomodoroRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session := &models.PomodoroSession{
		UserID:       user.ID,
		TaskID:       req.TaskID,
		Date:         dayOf(req.Date, h.now()),
		TotalMinutes: req.TotalMinutes,
	}
	if err := h.pomodoros.Create(r.Context(), session); err != nil {
		h.logger.Error("failed_to_create_pomodoro", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to record pomodoro session")
		return
	}

	h.cache.Invalidate(user.ID)
	respondJSON(w, http.StatusCreated, session)
}

// ListPomodoros lists pomodoro sessions for ?days=
func (h *JournalHandler) ListPomodoros(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	sessions, err := h.pomodoros.ListSince(r.Context(), user.ID, windowStart(h.now(), windowDays(r)))
	if err != nil {
		h.logger.Error("failed_to_list_pomodoros", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve pomodoro sessions")
		return
	}
	respondJSON(w, http.StatusOK, sessions)
}
