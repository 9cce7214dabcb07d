package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/devboard/devboard-api/internal/database"
	"github.com/devboard/devboard-api/internal/logger"
	"github.com/devboard/devboard-api/internal/models"
	"github.com/devboard/devboard-api/internal/services/classifier"
	"github.com/devboard/devboard-api/internal/services/insights"
	"github.com/devboard/devboard-api/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	// MaxTitleLength is the maximum length for a task title
	MaxTitleLength = 200
	// MaxDescriptionLength is the maximum length for a task description
	MaxDescriptionLength = 10000
	// DefaultPageSize is the default page size for pagination
	DefaultPageSize = 100
	// MaxPageSize is the maximum page size for pagination
	MaxPageSize = 500
)

// MentionScheduler schedules reminder jobs for times mentioned in a task
type MentionScheduler interface {
	Schedule(ctx context.Context, task *models.Task) (int, error)
}

// TaskHandler handles task-related requests
type TaskHandler struct {
	tasks     database.TaskRepositoryInterface
	analyzer  classifier.TaskAnalyzer
	scheduler MentionScheduler
	cache     *insights.Cache
	logger    *zap.Logger
	now       func() time.Time
}

// NewTaskHandler creates a new task handler. scheduler and cache may be nil.
func NewTaskHandler(tasks database.TaskRepositoryInterface, analyzer classifier.TaskAnalyzer, scheduler MentionScheduler, cache *insights.Cache, log *zap.Logger) *TaskHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskHandler{
		tasks:     tasks,
		analyzer:  analyzer,
		scheduler: scheduler,
		cache:     cache,
		logger:    log,
		now:       time.Now,
	}
}

// RegisterRoutes registers task routes on the given router
// The router should already have the /tasks prefix (e.g., from apiRouter.PathPrefix("/tasks"))
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/counts", h.CountTasks).Methods("GET")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/move", h.MoveTask).Methods("POST")
}

// CreateTaskRequest represents a create task request. Omitted category,
// priority and estimate are filled in by the classifier.
type CreateTaskRequest struct {
	Title            string     `json:"title" validate:"required,max=200"`
	Description      string     `json:"description" validate:"max=10000"`
	Status           string     `json:"status" validate:"task_status"`
	Priority         string     `json:"priority" validate:"task_priority"`
	Category         string     `json:"category" validate:"max=50"`
	Project          string     `json:"project" validate:"max=100"`
	Tags             []string   `json:"tags" validate:"max=20,dive,max=50"`
	DueDate          *time.Time `json:"due_date"`
	EstimatedMinutes int        `json:"estimated_minutes" validate:"min=0,max=100000"`
}

// UpdateTaskRequest represents an update task request
type UpdateTaskRequest struct {
	Title            *string    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description      *string    `json:"description,omitempty" validate:"omitempty,max=10000"`
	Status           *string    `json:"status,omitempty" validate:"omitempty,task_status"`
	Priority         *string    `json:"priority,omitempty" validate:"omitempty,task_priority"`
	Category         *string    `json:"category,omitempty" validate:"omitempty,max=50"`
	Project          *string    `json:"project,omitempty" validate:"omitempty,max=100"`
	Tags             []string   `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	ClearDueDate     bool       `json:"clear_due_date,omitempty"`
	EstimatedMinutes *int       `json:"estimated_minutes,omitempty" validate:"omitempty,min=0,max=100000"`
	ActualMinutes    *int       `json:"actual_minutes,omitempty" validate:"omitempty,min=0,max=100000"`
}

// MoveTaskRequest moves a task to another board column
type MoveTaskRequest struct {
	Status string `json:"status" validate:"required,task_status"`
}

// ListTasksResponse represents the paginated response for listing tasks
type ListTasksResponse struct {
	Tasks      []*models.Task `json:"tasks"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

// ListTasks lists tasks for the authenticated user with filters and pagination
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	q := r.URL.Query()
	page := 1
	if p := q.Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	pageSize := DefaultPageSize
	if ps := q.Get("page_size"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 {
			pageSize = min(parsed, MaxPageSize)
		}
	}

	filter := database.TaskFilter{
		Category: q.Get("category"),
		Project:  q.Get("project"),
		Search:   validation.SanitizeText(q.Get("search")),
	}
	if s := q.Get("status"); s != "" {
		if err := validation.ValidateTaskStatus(s); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		status := models.TaskStatus(s)
		filter.Status = &status
	}
	if p := q.Get("priority"); p != "" {
		if err := validation.ValidatePriority(p); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		priority := models.Priority(p)
		filter.Priority = &priority
	}

	tasks, total, err := h.tasks.GetByUserIDPaginated(r.Context(), user.ID, filter, page, pageSize)
	if err != nil {
		h.logger.Error("failed_to_list_tasks", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tasks")
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	respondJSON(w, http.StatusOK, ListTasksResponse{
		Tasks:      tasks,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	})
}

// CreateTask creates a new task, filling unspecified fields from the classifier
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	req.Title = validation.SanitizeText(req.Title)
	req.Description = validation.SanitizeText(req.Description)
	if req.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required and cannot be empty after sanitization")
		return
	}

	ctx := r.Context()
	openCount := 0
	if counts, err := h.tasks.CountByStatus(ctx, user.ID); err == nil {
		openCount = counts.Todo + counts.InProgress
	} else {
		h.logger.Warn("failed_to_count_open_tasks", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	analysis := h.analyzer.Analyze(req.Title, req.Description, req.DueDate, openCount)

	now := h.now()
	task := &models.Task{
		ID:               uuid.New(),
		UserID:           user.ID,
		Title:            req.Title,
		Description:      req.Description,
		Status:           models.TaskStatusTodo,
		Priority:         models.Priority(req.Priority),
		Category:         req.Category,
		Project:          req.Project,
		Tags:             req.Tags,
		DueDate:          req.DueDate,
		EstimatedMinutes: req.EstimatedMinutes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	if task.Category == "" {
		task.Category = analysis.Classification.Category
	}
	if task.Priority == "" {
		task.Priority = analysis.Priority
	}
	if task.EstimatedMinutes == 0 {
		task.EstimatedMinutes = analysis.Estimate.Minutes
	}
	if req.Status != "" {
		task.SetStatus(models.TaskStatus(req.Status), now)
	}

	if err := h.tasks.Create(ctx, task); err != nil {
		h.logger.Error("failed_to_create_task", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}

	h.afterWrite(ctx, task, true)
	respondJSON(w, http.StatusCreated, task)
}

// loadOwnedTask fetches a task and checks it belongs to the user
func (h *TaskHandler) loadOwnedTask(w http.ResponseWriter, r *http.Request, user *models.User) *models.Task {
	id, ok := pathUUID(w, r, "id", "task")
	if !ok {
		return nil
	}

	task, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
			return nil
		}
		h.logger.Error("failed_to_get_task", zap.String("task_id", id.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve task")
		return nil
	}

	// Verify task belongs to user
	if task.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Task does not belong to user")
		return nil
	}
	return task
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	task := h.loadOwnedTask(w, r, user)
	if task == nil {
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// UpdateTask applies a partial update to a task
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req UpdateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task := h.loadOwnedTask(w, r, user)
	if task == nil {
		return
	}

	now := h.now()
	wasDone := task.IsDone()
	if req.Title != nil {
		title := validation.SanitizeText(*req.Title)
		if title == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty after sanitization")
			return
		}
		task.Title = title
	}
	if req.Description != nil {
		task.Description = validation.SanitizeText(*req.Description)
	}
	if req.Priority != nil {
		task.Priority = models.Priority(*req.Priority)
	}
	if req.Category != nil {
		task.Category = *req.Category
	}
	if req.Project != nil {
		task.Project = *req.Project
	}
	if req.Tags != nil {
		task.Tags = req.Tags
	}
	if req.ClearDueDate {
		task.DueDate = nil
	} else if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.EstimatedMinutes != nil {
		task.EstimatedMinutes = *req.EstimatedMinutes
	}
	if req.ActualMinutes != nil {
		task.ActualMinutes = *req.ActualMinutes
	}
	if req.Status != nil {
		task.SetStatus(models.TaskStatus(*req.Status), now)
	}
	task.UpdatedAt = now

	textChanged := req.Title != nil || req.Description != nil
	h.save(w, r, task, textChanged || (wasDone && !task.IsDone()))
}

// MoveTask moves a task to another column, maintaining completed_at
func (h *TaskHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req MoveTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task := h.loadOwnedTask(w, r, user)
	if task == nil {
		return
	}

	now := h.now()
	wasDone := task.IsDone()
	task.SetStatus(models.TaskStatus(req.Status), now)
	task.UpdatedAt = now

	h.save(w, r, task, wasDone && !task.IsDone())
}

func (h *TaskHandler) save(w http.ResponseWriter, r *http.Request, task *models.Task, reschedule bool) {
	ctx := r.Context()
	if err := h.tasks.Update(ctx, task); err != nil {
		h.logger.Error("failed_to_update_task", zap.String("task_id", task.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task")
		return
	}

	h.afterWrite(ctx, task, reschedule)
	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	task := h.loadOwnedTask(w, r, user)
	if task == nil {
		return
	}

	if err := h.tasks.Delete(r.Context(), task.ID); err != nil {
		h.logger.Error("failed_to_delete_task", zap.String("task_id", task.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete task")
		return
	}

	h.cache.Invalidate(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// CountTasks returns the number of tasks per column
func (h *TaskHandler) CountTasks(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	counts, err := h.tasks.CountByStatus(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed_to_count_tasks", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to count tasks")
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

// afterWrite drops cached insights and, when the text or status changed in a
// way that can add mentions, schedules time-mention reminders. Scheduling
// failures are logged; the write already succeeded.
func (h *TaskHandler) afterWrite(ctx context.Context, task *models.Task, reschedule bool) {
	h.cache.Invalidate(task.UserID)

	if !reschedule || h.scheduler == nil || task.IsDone() {
		return
	}
	if _, err := h.scheduler.Schedule(ctx, task); err != nil {
		h.logger.Warn("failed_to_schedule_time_mentions",
			zap.String("task_id", task.ID.String()),
			logger.Title(task.Title),
			zap.Error(err),
		)
	}
}
