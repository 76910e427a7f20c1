package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PolicyRepository persists versioned Policy rows (spec §3 "Policy").
// Invariant: (task_id, version) pairs are unique and never mutated after
// insert — NextVersion + Create are the only write paths.
type PolicyRepository struct {
	db Queryer
}

// NewPolicyRepository creates a PolicyRepository.
func NewPolicyRepository(db Queryer) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// NextVersion returns 1 + the current max version for the task (0 if none exist).
func (r *PolicyRepository) NextVersion(ctx context.Context, taskID string) (int, error) {
	var max sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(version) FROM policies WHERE task_id = $1`, taskID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max policy version: %w", err)
	}
	return int(max.Int64) + 1, nil
}

// Create inserts a new immutable policy version for a task.
func (r *PolicyRepository) Create(ctx context.Context, p *Policy) error {
	tools, err := json.Marshal(p.AllowedTools)
	if err != nil {
		return fmt.Errorf("marshal allowed_tools: %w", err)
	}
	network, err := json.Marshal(nonNilMap(p.NetworkRules))
	if err != nil {
		return fmt.Errorf("marshal network_rules: %w", err)
	}
	fs, err := json.Marshal(nonNilMap(p.FilesystemRules))
	if err != nil {
		return fmt.Errorf("marshal filesystem_rules: %w", err)
	}
	dbRules, err := json.Marshal(nonNilMap(p.DatabaseRules))
	if err != nil {
		return fmt.Errorf("marshal database_rules: %w", err)
	}
	limits, err := json.Marshal(nonNilMap(p.ResourceLimits))
	if err != nil {
		return fmt.Errorf("marshal resource_limits: %w", err)
	}
	p.CreatedAt = time.Now()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO policies (task_id, version, allowed_tools, network_rules, filesystem_rules,
			database_rules, resource_limits, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.TaskID, p.Version, tools, network, fs, dbRules, limits, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert policy: %w", err)
	}
	return nil
}

// GetVersion fetches a specific policy version for a task.
func (r *PolicyRepository) GetVersion(ctx context.Context, taskID string, version int) (*Policy, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT task_id, version, allowed_tools, network_rules, filesystem_rules,
			database_rules, resource_limits, created_at
		FROM policies WHERE task_id = $1 AND version = $2`, taskID, version)
	p, err := scanPolicy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// Current fetches the highest-numbered policy for a task.
func (r *PolicyRepository) Current(ctx context.Context, taskID string) (*Policy, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT task_id, version, allowed_tools, network_rules, filesystem_rules,
			database_rules, resource_limits, created_at
		FROM policies WHERE task_id = $1 ORDER BY version DESC LIMIT 1`, taskID)
	p, err := scanPolicy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func scanPolicy(row *sql.Row) (*Policy, error) {
	var p Policy
	var tools, network, fs, dbRules, limits []byte
	if err := row.Scan(&p.TaskID, &p.Version, &tools, &network, &fs, &dbRules, &limits, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan policy: %w", err)
	}
	if err := json.Unmarshal(tools, &p.AllowedTools); err != nil {
		return nil, fmt.Errorf("unmarshal allowed_tools: %w", err)
	}
	for dst, src := range map[*map[string]interface{}][]byte{
		&p.NetworkRules: network, &p.FilesystemRules: fs, &p.DatabaseRules: dbRules, &p.ResourceLimits: limits,
	} {
		if err := json.Unmarshal(src, dst); err != nil {
			return nil, fmt.Errorf("unmarshal policy rules: %w", err)
		}
	}
	return &p, nil
}

func nonNilMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}
