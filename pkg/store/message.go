package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// MessageRepository persists the append-only TaskMessage conversation log (spec §3).
type MessageRepository struct {
	db Queryer
}

// NewMessageRepository creates a MessageRepository.
func NewMessageRepository(db Queryer) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append adds a message to a task's conversation log.
func (r *MessageRepository) Append(ctx context.Context, m *TaskMessage) error {
	metadata, err := json.Marshal(nonNilMap(m.Metadata))
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	m.CreatedAt = time.Now()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO task_messages (id, task_id, role, content, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`, m.ID, m.TaskID, m.Role, m.Content, metadata, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert task message: %w", err)
	}
	return nil
}

// ListForTask returns a task's conversation log in chronological order.
func (r *MessageRepository) ListForTask(ctx context.Context, taskID string) ([]*TaskMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, role, content, metadata, created_at
		FROM task_messages WHERE task_id = $1 ORDER BY created_at ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list task messages: %w", err)
	}
	defer rows.Close()

	var out []*TaskMessage
	for rows.Next() {
		var m TaskMessage
		var metadata []byte
		if err := rows.Scan(&m.ID, &m.TaskID, &m.Role, &m.Content, &metadata, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task message: %w", err)
		}
		if err := json.Unmarshal(metadata, &m.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// DeliverableFileNames extracts the workspace file names listed in the
// deliverables of all the given outputs, deduplicated in first-seen
// order — used by the workflow to build the continuation
// preamble ("existing workspace files") without re-reading the filesystem.
func DeliverableFileNames(outputs []*TaskOutput) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, o := range outputs {
		for name := range o.Deliverables {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	return names
}
