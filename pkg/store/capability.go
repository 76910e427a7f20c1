package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CapabilityRepository persists CapabilityRequest rows (spec §3).
// Invariant: once State leaves "pending" it is terminal — Decide enforces
// this with a conditional UPDATE so a signal can be consumed at most once
// (spec §8 "Signal uniqueness").
type CapabilityRepository struct {
	db Queryer
}

// NewCapabilityRepository creates a CapabilityRepository.
func NewCapabilityRepository(db Queryer) *CapabilityRepository {
	return &CapabilityRepository{db: db}
}

// Create inserts a new pending capability request.
func (r *CapabilityRepository) Create(ctx context.Context, c *CapabilityRequest) error {
	details, err := json.Marshal(nonNilMap(c.Details))
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	c.CreatedAt = time.Now()
	if c.State == "" {
		c.State = CapabilityPending
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO capability_requests (id, task_id, kind, resource, justification, details, state, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.TaskID, c.Kind, c.Resource, c.Justification, details, c.State, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert capability request: %w", err)
	}
	return nil
}

// Get fetches a capability request by id.
func (r *CapabilityRepository) Get(ctx context.Context, id string) (*CapabilityRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, task_id, kind, resource, justification, details, state, created_at, decided_at
		FROM capability_requests WHERE id = $1`, id)
	c, err := scanCapability(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// Decide transitions a pending request to approved/denied/modified exactly
// once. Returns ErrStateConflict if the request was already decided.
func (r *CapabilityRepository) Decide(ctx context.Context, id string, newState CapabilityState) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE capability_requests SET state = $1, decided_at = now()
		WHERE id = $2 AND state = $3`, newState, id, CapabilityPending)
	if err != nil {
		return fmt.Errorf("decide capability request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrStateConflict
	}
	return nil
}

func scanCapability(row *sql.Row) (*CapabilityRequest, error) {
	var c CapabilityRequest
	var details []byte
	if err := row.Scan(&c.ID, &c.TaskID, &c.Kind, &c.Resource, &c.Justification, &details,
		&c.State, &c.CreatedAt, &c.DecidedAt); err != nil {
		return nil, fmt.Errorf("scan capability request: %w", err)
	}
	if err := json.Unmarshal(details, &c.Details); err != nil {
		return nil, fmt.Errorf("unmarshal details: %w", err)
	}
	return &c, nil
}
