package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/devboard/devboard-api/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const taskColumns = `id, user_id, title, description, status, priority, category, project, tags,
		due_date, estimated_minutes, actual_minutes, created_at, updated_at, completed_at`

// TaskFilter narrows a task listing. Nil or empty fields are ignored.
type TaskFilter struct {
	Status   *models.TaskStatus
	Priority *models.Priority
	Category string
	Project  string
	Search   string
}

// TaskRepository handles task database operations
type TaskRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db, logger: zap.NewNop()}
}

// SetLogger sets the logger used for non-fatal repository warnings
func (r *TaskRepository) SetLogger(logger *zap.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var dueDate, completedAt sql.NullTime
	var tags pq.StringArray

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.Category,
		&task.Project,
		&tags,
		&dueDate,
		&task.EstimatedMinutes,
		&task.ActualMinutes,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Tags = []string(tags)
	if task.Tags == nil {
		task.Tags = []string{}
	}
	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	return task, nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Warn("failed_to_close_task_rows", zap.Error(err))
		}
	}()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, title, description, status, priority, category, project, tags,
			due_date, estimated_minutes, actual_minutes, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13, $14)
		RETURNING created_at, updated_at
	`

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.Category,
		task.Project,
		pq.Array(task.Tags),
		task.DueDate,
		task.EstimatedMinutes,
		task.ActualMinutes,
		now,
		task.CompletedAt,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// buildTaskFilter appends filter conditions, numbering placeholders after the existing args
func buildTaskFilter(filter TaskFilter, args []any) (string, []any) {
	var clause strings.Builder
	add := func(cond string, v any) {
		args = append(args, v)
		fmt.Fprintf(&clause, " AND "+cond, len(args))
	}

	if filter.Status != nil {
		add("status = $%d", string(*filter.Status))
	}
	if filter.Priority != nil {
		add("priority = $%d", string(*filter.Priority))
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.Project != "" {
		add("project = $%d", filter.Project)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		fmt.Fprintf(&clause, " AND (title ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	return clause.String(), args
}

// GetByUserIDPaginated retrieves a page of a user's tasks, newest first, with the total count
func (r *TaskRepository) GetByUserIDPaginated(ctx context.Context, userID uuid.UUID, filter TaskFilter, page, pageSize int) ([]*models.Task, int, error) {
	where, args := buildTaskFilter(filter, []any{userID})

	var total int
	countQuery := `SELECT COUNT(*) FROM tasks WHERE user_id = $1` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	offset := (page - 1) * pageSize
	args = append(args, pageSize, offset)
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE user_id = $1%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		taskColumns, where, len(args)-1, len(args))

	tasks, err := r.queryTasks(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// ListByUser returns every task of a user, oldest first. Feeds the insight aggregator.
func (r *TaskRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 ORDER BY created_at ASC`
	return r.queryTasks(ctx, query, userID)
}

// ListOpenDueBefore returns tasks that are not done and are due at or before cutoff
func (r *TaskRepository) ListOpenDueBefore(ctx context.Context, userID uuid.UUID, cutoff time.Time) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND status <> $2 AND due_date IS NOT NULL AND due_date <= $3
		ORDER BY due_date ASC`
	return r.queryTasks(ctx, query, userID, models.TaskStatusDone, cutoff)
}

// CountByStatus returns per-status counts for a user
func (r *TaskRepository) CountByStatus(ctx context.Context, userID uuid.UUID) (*models.TaskStatusCounts, error) {
	query := `SELECT status, COUNT(*) FROM tasks WHERE user_id = $1 GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Warn("failed_to_close_task_rows", zap.Error(err))
		}
	}()

	counts := &models.TaskStatusCounts{}
	for rows.Next() {
		var status models.TaskStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts.Add(status, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}
	return counts, nil
}

// Update updates an existing task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5, category = $6, project = $7,
			tags = $8, due_date = $9, estimated_minutes = $10, actual_minutes = $11,
			updated_at = $12, completed_at = $13
		WHERE id = $1
		RETURNING updated_at
	`

	if task.Tags == nil {
		task.Tags = []string{}
	}
	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.Category,
		task.Project,
		pq.Array(task.Tags),
		task.DueDate,
		task.EstimatedMinutes,
		task.ActualMinutes,
		time.Now(),
		task.CompletedAt,
	).Scan(&task.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("task not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

// Delete deletes a task by ID
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task not found")
	}

	return nil
}
