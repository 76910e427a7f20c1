package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// OutputRepository persists TaskOutput rows (spec §3).
// Invariant: Iteration is strictly increasing per task, including across
// continuations (spec §8 "Monotone iterations") — MaxIteration lets callers
// resume numbering correctly.
type OutputRepository struct {
	db Queryer
}

// NewOutputRepository creates an OutputRepository.
func NewOutputRepository(db Queryer) *OutputRepository {
	return &OutputRepository{db: db}
}

// MaxIteration returns the highest recorded iteration for a task, or 0 if none exist.
func (r *OutputRepository) MaxIteration(ctx context.Context, taskID string) (int, error) {
	var max sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(iteration) FROM task_outputs WHERE task_id = $1`, taskID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max iteration: %w", err)
	}
	return int(max.Int64), nil
}

// Append inserts a new iteration output. Failing to store an output is
// logged, not propagated, by the caller (spec §4.E "non-blocking").
func (r *OutputRepository) Append(ctx context.Context, o *TaskOutput) error {
	result, err := json.Marshal(nonNilMap(o.Result))
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	deliverables, err := json.Marshal(nonNilStringMap(o.Deliverables))
	if err != nil {
		return fmt.Errorf("marshal deliverables: %w", err)
	}
	o.CreatedAt = time.Now()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO task_outputs (id, task_id, iteration, completed, capability_requested,
			container_log, result, deliverables, error_message, duration_ms, image_tag, model, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		o.ID, o.TaskID, o.Iteration, o.Completed, o.CapabilityRequested,
		o.ContainerLog, result, deliverables, o.ErrorMessage,
		o.Duration.Milliseconds(), o.ImageTag, o.Model, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert task output: %w", err)
	}
	return nil
}

// ListForTask returns all outputs for a task ordered by iteration.
func (r *OutputRepository) ListForTask(ctx context.Context, taskID string) ([]*TaskOutput, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, iteration, completed, capability_requested, container_log,
			result, deliverables, error_message, duration_ms, image_tag, model, created_at
		FROM task_outputs WHERE task_id = $1 ORDER BY iteration ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list task outputs: %w", err)
	}
	defer rows.Close()

	var out []*TaskOutput
	for rows.Next() {
		o, err := scanOutputRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type outputScanner interface {
	Scan(dest ...interface{}) error
}

func scanOutputRows(s outputScanner) (*TaskOutput, error) {
	var o TaskOutput
	var result, deliverables []byte
	var durationMS int64
	if err := s.Scan(&o.ID, &o.TaskID, &o.Iteration, &o.Completed, &o.CapabilityRequested,
		&o.ContainerLog, &result, &deliverables, &o.ErrorMessage, &durationMS,
		&o.ImageTag, &o.Model, &o.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan task output: %w", err)
	}
	o.Duration = time.Duration(durationMS) * time.Millisecond
	if err := json.Unmarshal(result, &o.Result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	if err := json.Unmarshal(deliverables, &o.Deliverables); err != nil {
		return nil, fmt.Errorf("unmarshal deliverables: %w", err)
	}
	return &o, nil
}

func nonNilStringMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
