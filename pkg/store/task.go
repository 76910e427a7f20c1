package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TaskRepository persists Task rows (spec §3, §4.G).
type TaskRepository struct {
	db Queryer
}

// NewTaskRepository creates a TaskRepository.
func NewTaskRepository(db Queryer) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task in the "created" state.
func (r *TaskRepository) Create(ctx context.Context, t *Task) error {
	if t.ID == "" {
		return NewValidationError("id", "required")
	}
	if t.Name == "" {
		return NewValidationError("name", "required")
	}
	if t.Prompt == "" {
		return NewValidationError("prompt", "required")
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	if t.State == "" {
		t.State = TaskStateCreated
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, name, prompt, state, workspace_id, current_image,
			current_policy_version, model, workflow_id, run_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		t.ID, t.Name, t.Prompt, t.State, t.WorkspaceID, t.CurrentImage,
		t.CurrentPolicyVersion, t.Model, t.WorkflowID, t.RunID, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// Get fetches a task by id.
func (r *TaskRepository) Get(ctx context.Context, id string) (*Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, prompt, state, workspace_id, current_image, current_policy_version,
			model, workflow_id, run_id, error_message, created_at, updated_at
		FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

// List returns all tasks ordered by creation time, most recent first.
func (r *TaskRepository) List(ctx context.Context) ([]*Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, prompt, state, workspace_id, current_image, current_policy_version,
			model, workflow_id, run_id, error_message, created_at, updated_at
		FROM tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		t, err := scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetState transitions the task state. It does not itself enforce legal
// transitions — callers (pkg/workflow, pkg/api) decide which transitions are
// legal and surface StateConflict for the rest.
func (r *TaskRepository) SetState(ctx context.Context, id string, state TaskState, errMsg *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET state = $1, error_message = $2, updated_at = now() WHERE id = $3`,
		state, errMsg, id)
	if err != nil {
		return fmt.Errorf("update task state: %w", err)
	}
	return checkRowsAffected(res)
}

// SetWorkflow records the durable workflow identity currently owning the task.
func (r *TaskRepository) SetWorkflow(ctx context.Context, id, workflowID, runID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET workflow_id = $1, run_id = $2, updated_at = now() WHERE id = $3`,
		workflowID, runID, id)
	if err != nil {
		return fmt.Errorf("update task workflow: %w", err)
	}
	return checkRowsAffected(res)
}

// SetCurrentImage records the image tag the task's next iteration should use,
// and the policy version it was built under.
func (r *TaskRepository) SetCurrentImage(ctx context.Context, id, imageTag string, policyVersion int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET current_image = $1, current_policy_version = $2, updated_at = now()
		WHERE id = $3`, imageTag, policyVersion, id)
	if err != nil {
		return fmt.Errorf("update task image: %w", err)
	}
	return checkRowsAffected(res)
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row *sql.Row) (*Task, error) {
	t, err := scanTaskScanner(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func scanTaskRows(rows *sql.Rows) (*Task, error) {
	return scanTaskScanner(rows)
}

func scanTaskScanner(s rowScanner) (*Task, error) {
	var t Task
	if err := s.Scan(&t.ID, &t.Name, &t.Prompt, &t.State, &t.WorkspaceID, &t.CurrentImage,
		&t.CurrentPolicyVersion, &t.Model, &t.WorkflowID, &t.RunID, &t.ErrorMessage,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &t, nil
}
