package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devboard/devboard-api/internal/database"
	"github.com/devboard/devboard-api/internal/models"
	"github.com/devboard/devboard-api/internal/request"
	"github.com/devboard/devboard-api/internal/services/classifier"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type mockTaskRepo struct {
	tasks     map[uuid.UUID]*models.Task
	createErr error
	updateErr error
	created   []*models.Task
	updated   []*models.Task
	deleted   []uuid.UUID
}

func newMockTaskRepo(tasks ...*models.Task) *mockTaskRepo {
	m := &mockTaskRepo{tasks: map[uuid.UUID]*models.Task{}}
	for _, t := range tasks {
		m.tasks[t.ID] = t
	}
	return m
}

func (m *mockTaskRepo) Create(ctx context.Context, task *models.Task) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, task)
	m.tasks[task.ID] = task
	return nil
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, database.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (m *mockTaskRepo) GetByUserIDPaginated(ctx context.Context, userID uuid.UUID, filter database.TaskFilter, page, pageSize int) ([]*models.Task, int, error) {
	var out []*models.Task
	for _, t := range m.tasks {
		if t.UserID != userID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

func (m *mockTaskRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	var out []*models.Task
	for _, t := range m.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) ListOpenDueBefore(ctx context.Context, userID uuid.UUID, cutoff time.Time) ([]*models.Task, error) {
	return nil, nil
}

func (m *mockTaskRepo) CountByStatus(ctx context.Context, userID uuid.UUID) (*models.TaskStatusCounts, error) {
	counts := &models.TaskStatusCounts{}
	for _, t := range m.tasks {
		if t.UserID == userID {
			counts.Add(t.Status, 1)
		}
	}
	return counts, nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *models.Task) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = append(m.updated, task)
	m.tasks[task.ID] = task
	return nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.deleted = append(m.deleted, id)
	delete(m.tasks, id)
	return nil
}

type stubAnalyzer struct {
	analysis  classifier.Analysis
	openCount int
}

func (s *stubAnalyzer) Analyze(title, description string, dueDate *time.Time, openTaskCount int) classifier.Analysis {
	s.openCount = openTaskCount
	return s.analysis
}

type mockScheduler struct {
	calls int
}

func (m *mockScheduler) Schedule(ctx context.Context, task *models.Task) (int, error) {
	m.calls++
	return 1, nil
}

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestTaskHandler(repo *mockTaskRepo, sched *mockScheduler) (*TaskHandler, *stubAnalyzer) {
	analyzer := &stubAnalyzer{analysis: classifier.Analysis{
		Classification: classifier.Classification{Category: "development"},
		Priority:       models.PriorityHigh,
		Estimate:       classifier.Estimate{Minutes: 90},
	}}
	var s MentionScheduler
	if sched != nil {
		s = sched
	}
	h := NewTaskHandler(repo, analyzer, s, nil, nil)
	h.now = func() time.Time { return fixedNow }
	return h, analyzer
}

func withUser(req *http.Request, user *models.User) *http.Request {
	return req.WithContext(request.WithUser(req.Context(), user))
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var body struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !body.Success {
		t.Fatalf("Expected success response")
	}
	if err := json.Unmarshal(body.Data, dst); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
}

func TestTaskHandler_CreateTask(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}

	tests := []struct {
		name           string
		body           any
		expectedStatus int
		check          func(*testing.T, *models.Task)
	}{
		{
			name:           "classifier fills omitted fields",
			body:           map[string]any{"title": "Fix login bug"},
			expectedStatus: http.StatusCreated,
			check: func(t *testing.T, task *models.Task) {
				if task.Category != "development" {
					t.Errorf("Expected category development, got %s", task.Category)
				}
				if task.Priority != models.PriorityHigh {
					t.Errorf("Expected priority high, got %s", task.Priority)
				}
				if task.EstimatedMinutes != 90 {
					t.Errorf("Expected estimate 90, got %d", task.EstimatedMinutes)
				}
				if task.Status != models.TaskStatusTodo {
					t.Errorf("Expected status todo, got %s", task.Status)
				}
			},
		},
		{
			name:           "explicit fields win",
			body:           map[string]any{"title": "Plan sprint", "priority": "low", "category": "planning", "estimated_minutes": 15},
			expectedStatus: http.StatusCreated,
			check: func(t *testing.T, task *models.Task) {
				if task.Category != "planning" {
					t.Errorf("Expected category planning, got %s", task.Category)
				}
				if task.Priority != models.PriorityLow {
					t.Errorf("Expected priority low, got %s", task.Priority)
				}
				if task.EstimatedMinutes != 15 {
					t.Errorf("Expected estimate 15, got %d", task.EstimatedMinutes)
				}
			},
		},
		{
			name:           "created done sets completed_at",
			body:           map[string]any{"title": "Already shipped", "status": "done"},
			expectedStatus: http.StatusCreated,
			check: func(t *testing.T, task *models.Task) {
				if task.CompletedAt == nil {
					t.Error("Expected completed_at to be set")
				}
			},
		},
		{
			name:           "missing title",
			body:           map[string]any{"description": "no title"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid status",
			body:           map[string]any{"title": "x", "status": "blocked"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "title too long",
			body:           map[string]any{"title": string(make([]byte, 201))},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := newMockTaskRepo()
			sched := &mockScheduler{}
			h, _ := newTestTaskHandler(repo, sched)

			req := withUser(newTestRequest(http.MethodPost, "/api/v1/tasks", tt.body), user)
			w := httptest.NewRecorder()
			h.CreateTask(w, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.check == nil {
				if len(repo.created) != 0 {
					t.Errorf("Expected no task created, got %d", len(repo.created))
				}
				return
			}

			var task models.Task
			decodeData(t, w, &task)
			if task.UserID != user.ID {
				t.Errorf("Expected user %s, got %s", user.ID, task.UserID)
			}
			tt.check(t, &task)
		})
	}
}

func TestTaskHandler_CreateTaskOpenCount(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}
	repo := newMockTaskRepo(
		&models.Task{ID: uuid.New(), UserID: user.ID, Status: models.TaskStatusTodo},
		&models.Task{ID: uuid.New(), UserID: user.ID, Status: models.TaskStatusInProgress},
		&models.Task{ID: uuid.New(), UserID: user.ID, Status: models.TaskStatusDone},
	)
	sched := &mockScheduler{}
	h, analyzer := newTestTaskHandler(repo, sched)

	req := withUser(newTestRequest(http.MethodPost, "/api/v1/tasks", map[string]any{"title": "Call Bob at 3pm"}), user)
	w := httptest.NewRecorder()
	h.CreateTask(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	if analyzer.openCount != 2 {
		t.Errorf("Expected open count 2, got %d", analyzer.openCount)
	}
	if sched.calls != 1 {
		t.Errorf("Expected 1 schedule call, got %d", sched.calls)
	}
}

func TestTaskHandler_Unauthenticated(t *testing.T) {
	t.Parallel()

	h, _ := newTestTaskHandler(newMockTaskRepo(), nil)
	w := httptest.NewRecorder()
	h.CreateTask(w, newTestRequest(http.MethodPost, "/api/v1/tasks", map[string]any{"title": "x"}))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestTaskHandler_GetTask(t *testing.T) {
	t.Parallel()

	owner := &models.User{ID: uuid.New()}
	other := &models.User{ID: uuid.New()}
	task := &models.Task{ID: uuid.New(), UserID: owner.ID, Title: "Mine", Status: models.TaskStatusTodo}

	tests := []struct {
		name           string
		user           *models.User
		id             string
		expectedStatus int
	}{
		{name: "owner", user: owner, id: task.ID.String(), expectedStatus: http.StatusOK},
		{name: "other user", user: other, id: task.ID.String(), expectedStatus: http.StatusForbidden},
		{name: "missing", user: owner, id: uuid.New().String(), expectedStatus: http.StatusNotFound},
		{name: "bad id", user: owner, id: "not-a-uuid", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, _ := newTestTaskHandler(newMockTaskRepo(task), nil)
			req := withUser(newTestRequest(http.MethodGet, "/api/v1/tasks/"+tt.id, nil), tt.user)
			req = mux.SetURLVars(req, map[string]string{"id": tt.id})
			w := httptest.NewRecorder()
			h.GetTask(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestTaskHandler_MoveTask(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}
	completed := fixedNow.Add(-time.Hour)

	tests := []struct {
		name            string
		start           *models.Task
		status          string
		expectCompleted bool
		expectSchedule  int
	}{
		{
			name:            "todo to done",
			start:           &models.Task{ID: uuid.New(), UserID: user.ID, Status: models.TaskStatusTodo},
			status:          "done",
			expectCompleted: true,
		},
		{
			name:            "done back to in progress",
			start:           &models.Task{ID: uuid.New(), UserID: user.ID, Status: models.TaskStatusDone, CompletedAt: &completed},
			status:          "inProgress",
			expectCompleted: false,
			expectSchedule:  1,
		},
		{
			name:            "todo to in progress",
			start:           &models.Task{ID: uuid.New(), UserID: user.ID, Status: models.TaskStatusTodo},
			status:          "inProgress",
			expectCompleted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := newMockTaskRepo(tt.start)
			sched := &mockScheduler{}
			h, _ := newTestTaskHandler(repo, sched)

			id := tt.start.ID.String()
			req := withUser(newTestRequest(http.MethodPost, "/api/v1/tasks/"+id+"/move", map[string]string{"status": tt.status}), user)
			req = mux.SetURLVars(req, map[string]string{"id": id})
			w := httptest.NewRecorder()
			h.MoveTask(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
			}
			saved := repo.tasks[tt.start.ID]
			if string(saved.Status) != tt.status {
				t.Errorf("Expected status %s, got %s", tt.status, saved.Status)
			}
			if (saved.CompletedAt != nil) != tt.expectCompleted {
				t.Errorf("Expected completed_at set=%v, got %v", tt.expectCompleted, saved.CompletedAt)
			}
			if sched.calls != tt.expectSchedule {
				t.Errorf("Expected %d schedule calls, got %d", tt.expectSchedule, sched.calls)
			}
		})
	}
}

func TestTaskHandler_UpdateTask(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}
	due := fixedNow.Add(24 * time.Hour)
	task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Old", Status: models.TaskStatusTodo, DueDate: &due, Tags: []string{}}
	repo := newMockTaskRepo(task)
	sched := &mockScheduler{}
	h, _ := newTestTaskHandler(repo, sched)

	id := task.ID.String()
	req := withUser(newTestRequest(http.MethodPatch, "/api/v1/tasks/"+id, map[string]any{
		"title":          "New title at 9am",
		"clear_due_date": true,
		"actual_minutes": 30,
	}), user)
	req = mux.SetURLVars(req, map[string]string{"id": id})
	w := httptest.NewRecorder()
	h.UpdateTask(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	saved := repo.tasks[task.ID]
	if saved.Title != "New title at 9am" {
		t.Errorf("Expected updated title, got %s", saved.Title)
	}
	if saved.DueDate != nil {
		t.Errorf("Expected due date cleared, got %v", saved.DueDate)
	}
	if saved.ActualMinutes != 30 {
		t.Errorf("Expected actual minutes 30, got %d", saved.ActualMinutes)
	}
	if !saved.UpdatedAt.Equal(fixedNow) {
		t.Errorf("Expected updated_at %v, got %v", fixedNow, saved.UpdatedAt)
	}
	if sched.calls != 1 {
		t.Errorf("Expected 1 schedule call after title change, got %d", sched.calls)
	}
}

func TestTaskHandler_UpdateTaskRepoError(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}
	task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Old", Status: models.TaskStatusTodo}
	repo := newMockTaskRepo(task)
	repo.updateErr = errors.New("connection reset")
	h, _ := newTestTaskHandler(repo, nil)

	id := task.ID.String()
	req := withUser(newTestRequest(http.MethodPatch, "/api/v1/tasks/"+id, map[string]any{"priority": "high"}), user)
	req = mux.SetURLVars(req, map[string]string{"id": id})
	w := httptest.NewRecorder()
	h.UpdateTask(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestTaskHandler_DeleteTask(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}
	task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Gone"}
	repo := newMockTaskRepo(task)
	h, _ := newTestTaskHandler(repo, nil)

	id := task.ID.String()
	req := withUser(newTestRequest(http.MethodDelete, "/api/v1/tasks/"+id, nil), user)
	req = mux.SetURLVars(req, map[string]string{"id": id})
	w := httptest.NewRecorder()
	h.DeleteTask(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", w.Code)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != task.ID {
		t.Errorf("Expected task %s deleted, got %v", task.ID, repo.deleted)
	}
}

func TestTaskHandler_ListTasks(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}
	repo := newMockTaskRepo(
		&models.Task{ID: uuid.New(), UserID: user.ID, Status: models.TaskStatusTodo},
		&models.Task{ID: uuid.New(), UserID: user.ID, Status: models.TaskStatusDone},
		&models.Task{ID: uuid.New(), UserID: uuid.New(), Status: models.TaskStatusTodo},
	)
	h, _ := newTestTaskHandler(repo, nil)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedTotal  int
	}{
		{name: "all", query: "", expectedStatus: http.StatusOK, expectedTotal: 2},
		{name: "status filter", query: "?status=done", expectedStatus: http.StatusOK, expectedTotal: 1},
		{name: "invalid status", query: "?status=blocked", expectedStatus: http.StatusBadRequest},
		{name: "invalid priority", query: "?priority=urgent", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := withUser(newTestRequest(http.MethodGet, "/api/v1/tasks"+tt.query, nil), user)
			w := httptest.NewRecorder()
			h.ListTasks(w, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var resp ListTasksResponse
			decodeData(t, w, &resp)
			if resp.Total != tt.expectedTotal {
				t.Errorf("Expected total %d, got %d", tt.expectedTotal, resp.Total)
			}
			if resp.TotalPages != 1 {
				t.Errorf("Expected 1 page, got %d", resp.TotalPages)
			}
		})
	}
}
