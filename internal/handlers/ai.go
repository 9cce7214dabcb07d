package handlers

import (
	"net/http"
	"time"

	"github.com/devboard/devboard-api/internal/database"
	"github.com/devboard/devboard-api/internal/metrics"
	"github.com/devboard/devboard-api/internal/services/classifier"
	"github.com/devboard/devboard-api/internal/services/insights"
	"github.com/devboard/devboard-api/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AIHandler serves the heuristic task analysis and productivity insights
type AIHandler struct {
	tasks      database.TaskRepositoryInterface
	analyzer   classifier.TaskAnalyzer
	aggregator *insights.Aggregator
	cache      *insights.Cache
	logger     *zap.Logger
}

// NewAIHandler creates a new AI handler. cache may be nil.
func NewAIHandler(tasks database.TaskRepositoryInterface, analyzer classifier.TaskAnalyzer, aggregator *insights.Aggregator, cache *insights.Cache, log *zap.Logger) *AIHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AIHandler{
		tasks:      tasks,
		analyzer:   analyzer,
		aggregator: aggregator,
		cache:      cache,
		logger:     log,
	}
}

// RegisterRoutes registers AI routes
// The router should already have the /ai prefix
func (h *AIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/analyze-task", h.AnalyzeTask).Methods("POST")
	r.HandleFunc("/insights", h.GetInsights).Methods("GET")
}

// AnalyzeTaskRequest asks for suggestions on a draft task
type AnalyzeTaskRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=10000"`
	DueDate     *time.Time `json:"due_date"`
}

// AnalyzeTask classifies a draft task and suggests priority, estimate and due date
func (h *AIHandler) AnalyzeTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req AnalyzeTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	openCount := 0
	if counts, err := h.tasks.CountByStatus(r.Context(), user.ID); err == nil {
		openCount = counts.Todo + counts.InProgress
	} else {
		h.logger.Warn("failed_to_count_open_tasks", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	start := time.Now()
	analysis := h.analyzer.Analyze(validation.SanitizeText(req.Title), validation.SanitizeText(req.Description), req.DueDate, openCount)
	metrics.ObserveInsight("analyze_task", time.Since(start))

	respondJSON(w, http.StatusOK, analysis)
}

// GetInsights returns the productivity snapshot for ?days= (default 30)
func (h *AIHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	days := windowDays(r)

	if snap, ok := h.cache.Get(user.ID, days); ok {
		metrics.RecordCacheLookup(true)
		respondJSON(w, http.StatusOK, snap)
		return
	}
	metrics.RecordCacheLookup(false)

	tasks, err := h.tasks.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed_to_load_tasks_for_insights", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to generate insights")
		return
	}

	start := time.Now()
	snap := h.aggregator.Generate(tasks, days)
	metrics.ObserveInsight("snapshot", time.Since(start))

	h.cache.Put(user.ID, days, snap)
	respondJSON(w, http.StatusOK, snap)
}
