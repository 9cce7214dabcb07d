package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/devboard/devboard-api/internal/database"
	"github.com/devboard/devboard-api/internal/metrics"
	"github.com/devboard/devboard-api/internal/models"
	"github.com/devboard/devboard-api/internal/services/insights"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AnalyticsHandler serves the dashboard, heatmap and data export
type AnalyticsHandler struct {
	tasks      database.TaskRepositoryInterface
	pomodoros  database.PomodoroRepositoryInterface
	journals   database.JournalRepositoryInterface
	aggregator *insights.Aggregator
	logger     *zap.Logger
	now        func() time.Time
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(tasks database.TaskRepositoryInterface, pomodoros database.PomodoroRepositoryInterface, journals database.JournalRepositoryInterface, aggregator *insights.Aggregator, log *zap.Logger) *AnalyticsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AnalyticsHandler{
		tasks:      tasks,
		pomodoros:  pomodoros,
		journals:   journals,
		aggregator: aggregator,
		logger:     log,
		now:        time.Now,
	}
}

// RegisterRoutes registers analytics routes
// The router should already have the /analytics prefix
func (h *AnalyticsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/dashboard", h.Dashboard).Methods("GET")
	r.HandleFunc("/heatmap", h.Heatmap).Methods("GET")
	r.HandleFunc("/export", h.Export).Methods("GET")
}

type userRecords struct {
	tasks     []*models.Task
	pomodoros []*models.PomodoroSession
	journals  []*models.JournalEntry
}

// load fetches everything the analytics views need for one user
func (h *AnalyticsHandler) load(r *http.Request, userID uuid.UUID, since time.Time) (*userRecords, error) {
	ctx := r.Context()
	tasks, err := h.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	pomodoros, err := h.pomodoros.ListSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load pomodoros: %w", err)
	}
	journals, err := h.journals.ListSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal entries: %w", err)
	}
	return &userRecords{tasks: tasks, pomodoros: pomodoros, journals: journals}, nil
}

// Dashboard returns the analytics dashboard for ?days=
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	days := windowDays(r)

	recs, err := h.load(r, user.ID, windowStart(h.now(), days))
	if err != nil {
		h.logger.Error("failed_to_load_dashboard_data", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to build dashboard")
		return
	}

	start := time.Now()
	dash := h.aggregator.Dashboard(recs.tasks, recs.pomodoros, recs.journals, days)
	metrics.ObserveInsight("dashboard", time.Since(start))

	respondJSON(w, http.StatusOK, dash)
}

// Heatmap returns a year of daily completion counts
func (h *AnalyticsHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	tasks, err := h.tasks.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed_to_load_heatmap_data", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to build heatmap")
		return
	}

	start := time.Now()
	heatmap := h.aggregator.Heatmap(tasks)
	metrics.ObserveInsight("heatmap", time.Since(start))

	respondJSON(w, http.StatusOK, heatmap)
}

// Export returns the raw records for ?days= as JSON (default) or CSV (?format=csv)
func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "format must be 'json' or 'csv'")
		return
	}

	days := windowDays(r)
	now := h.now()
	recs, err := h.load(r, user.ID, windowStart(now, days))
	if err != nil {
		h.logger.Error("failed_to_load_export_data", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to export data")
		return
	}

	export := h.aggregator.BuildExport(recs.tasks, recs.pomodoros, recs.journals, days)
	if format == "json" {
		respondJSON(w, http.StatusOK, export)
		return
	}

	filename := fmt.Sprintf("devboard-export-%s.csv", now.Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w); err != nil {
		h.logger.Error("failed_to_write_csv_export", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}
