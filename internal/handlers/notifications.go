package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/devboard/devboard-api/internal/database"
	"github.com/devboard/devboard-api/internal/models"
	"github.com/devboard/devboard-api/internal/notifications"
	"github.com/devboard/devboard-api/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	// DefaultNotificationLimit is the page size when ?limit= is absent
	DefaultNotificationLimit = 50
	// MaxNotificationLimit bounds ?limit=
	MaxNotificationLimit = 200
)

// WebSocketServer upgrades a request into a live notification stream
type WebSocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error
}

// ReminderPauser persists whether background reminders run for a user
type ReminderPauser interface {
	SetRemindersPaused(ctx context.Context, userID uuid.UUID, paused bool) error
}

// NotificationHandler handles notification requests
type NotificationHandler struct {
	service *notifications.Service
	ws      WebSocketServer
	tasks   database.TaskRepositoryInterface
	pauser  ReminderPauser
	logger  *zap.Logger
}

// NewNotificationHandler creates a new notification handler. ws may be nil to disable live streams.
func NewNotificationHandler(service *notifications.Service, ws WebSocketServer, tasks database.TaskRepositoryInterface, log *zap.Logger) *NotificationHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationHandler{service: service, ws: ws, tasks: tasks, logger: log}
}

// SetReminderPauser lets settings updates switch the reminder evaluator off for a user
func (h *NotificationHandler) SetReminderPauser(p ReminderPauser) {
	h.pauser = p
}

// RegisterRoutes registers notification routes
// The router should already have the /notifications prefix
func (h *NotificationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListNotifications).Methods("GET")
	r.HandleFunc("", h.SendNotification).Methods("POST")
	r.HandleFunc("/read-all", h.MarkAllRead).Methods("POST")
	r.HandleFunc("/settings", h.GetSettings).Methods("GET")
	r.HandleFunc("/settings", h.UpdateSettings).Methods("PUT")
	r.HandleFunc("/smart/task-reminder", h.SmartTaskReminder).Methods("POST")
	r.HandleFunc("/smart/achievement", h.SmartAchievement).Methods("POST")
	r.HandleFunc("/ws", h.Stream).Methods("GET")
	r.HandleFunc("/{id}/read", h.MarkRead).Methods("POST", "PATCH")
	r.HandleFunc("/{id}", h.DeleteNotification).Methods("DELETE")
}

// SendNotificationRequest creates a notification for the caller
type SendNotificationRequest struct {
	Type     string                      `json:"type" validate:"required,notification_type"`
	Title    string                      `json:"title" validate:"required,max=200"`
	Message  string                      `json:"message" validate:"required,max=2000"`
	Priority string                      `json:"priority" validate:"notification_priority"`
	DueTime  *time.Time                  `json:"due_time"`
	Actions  []models.NotificationAction `json:"actions" validate:"max=5"`
}

// TaskReminderRequest asks for a reminder about one of the caller's tasks
type TaskReminderRequest struct {
	TaskID uuid.UUID `json:"task_id" validate:"required"`
}

// AchievementRequest announces an achievement
type AchievementRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=2000"`
}

// ListNotifications lists notifications newest first with ?limit= and ?unread=true
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	q := r.URL.Query()
	opts := notifications.ListOptions{Limit: DefaultNotificationLimit}
	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			opts.Limit = min(parsed, MaxNotificationLimit)
		}
	}
	opts.UnreadOnly = q.Get("unread") == "true"

	respondJSON(w, http.StatusOK, h.service.List(r.Context(), user.ID, opts))
}

// SendNotification stores a notification and pushes it to live clients
func (h *NotificationHandler) SendNotification(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req SendNotificationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	for _, a := range req.Actions {
		if !models.ValidActionKind(string(a.Kind)) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid action: "+string(a.Kind))
			return
		}
	}

	priority := models.NotificationPriority(req.Priority)
	if priority == "" {
		priority = models.NotificationPriorityMedium
	}

	n := h.service.Send(r.Context(), user.ID, &models.Notification{
		Type:     models.NotificationType(req.Type),
		Title:    validation.SanitizeText(req.Title),
		Message:  validation.SanitizeText(req.Message),
		Priority: priority,
		DueTime:  req.DueTime,
		Actions:  req.Actions,
	})
	respondJSON(w, http.StatusCreated, n)
}

// MarkRead marks one notification as read; repeating it is a no-op
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathUUID(w, r, "id", "notification")
	if !ok {
		return
	}

	n, err := h.service.MarkRead(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, notifications.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Notification not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update notification")
		return
	}
	respondJSON(w, http.StatusOK, n)
}

// MarkAllRead marks every notification read and reports how many changed
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	count := h.service.MarkAllRead(r.Context(), user.ID)
	respondJSON(w, http.StatusOK, map[string]int{"updated": count})
}

// DeleteNotification deletes one notification
func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathUUID(w, r, "id", "notification")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, notifications.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Notification not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings returns the caller's notification settings
func (h *NotificationHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	respondJSON(w, http.StatusOK, h.service.Settings(r.Context(), user.ID))
}

// UpdateSettings replaces the caller's notification settings
func (h *NotificationHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req models.NotificationSettings
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := validateSchedule(req.Schedule); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	updated := h.service.UpdateSettings(r.Context(), user.ID, req)
	if h.pauser != nil {
		paused := !updated.WantsTaskReminders()
		if err := h.pauser.SetRemindersPaused(r.Context(), user.ID, paused); err != nil {
			// the in-app settings are saved; the evaluator just keeps its old view
			h.logger.Warn("failed_to_sync_reminder_pause",
				zap.String("user_id", user.ID.String()),
				zap.Bool("paused", paused),
				zap.Error(err),
			)
		}
	}
	respondJSON(w, http.StatusOK, updated)
}

func validateSchedule(s models.ScheduleSettings) error {
	if err := validation.Validate.Var(s.QuietHoursStart, "omitempty,datetime=15:04"); err != nil {
		return errors.New("quiet_hours_start must be HH:MM")
	}
	if err := validation.Validate.Var(s.QuietHoursEnd, "omitempty,datetime=15:04"); err != nil {
		return errors.New("quiet_hours_end must be HH:MM")
	}
	if err := validation.Validate.Var(s.WorkingDays, "max=7,dive,min=0,max=6"); err != nil {
		return errors.New("working_days must be weekday numbers 0-6")
	}
	return nil
}

// SmartTaskReminder sends a reminder for one of the caller's tasks, urgency
// scaled by how close the due date is
func (h *NotificationHandler) SmartTaskReminder(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req TaskReminderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.GetByID(r.Context(), req.TaskID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
			return
		}
		h.logger.Error("failed_to_get_task_for_reminder", zap.String("task_id", req.TaskID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve task")
		return
	}
	if task.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Task does not belong to user")
		return
	}
	if task.DueDate == nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Task has no due date")
		return
	}

	n := h.service.SendTaskReminder(r.Context(), user.ID, task.ID, task.Title, *task.DueDate)
	respondJSON(w, http.StatusCreated, n)
}

// SmartAchievement sends an achievement notification
func (h *NotificationHandler) SmartAchievement(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req AchievementRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	n := h.service.SendAchievement(r.Context(), user.ID, validation.SanitizeText(req.Title), validation.SanitizeText(req.Description))
	respondJSON(w, http.StatusCreated, n)
}

// Stream upgrades to a websocket carrying the caller's notification events
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	if h.ws == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Live notifications are disabled")
		return
	}

	// The upgrader has already written an error response on failure
	if err := h.ws.ServeWS(w, r, user.ID); err != nil {
		h.logger.Debug("websocket_session_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}
