package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505), e.g. two concurrent deployments racing for
// the same host port against the partial unique index.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// DeploymentRepository persists Deployment rows (spec §3, §4.F).
// The running-state host-port uniqueness invariant (spec §8 "Port uniqueness")
// is enforced by a partial unique index (see migrations/0006) rather than
// application logic, so concurrent Start attempts fail atomically.
type DeploymentRepository struct {
	db Queryer
}

// NewDeploymentRepository creates a DeploymentRepository.
func NewDeploymentRepository(db Queryer) *DeploymentRepository {
	return &DeploymentRepository{db: db}
}

// Create inserts a new deployment in pending_approval state.
func (r *DeploymentRepository) Create(ctx context.Context, d *Deployment) error {
	files, err := json.Marshal(nonNilStringMap(d.Files))
	if err != nil {
		return fmt.Errorf("marshal files: %w", err)
	}
	now := time.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	if d.State == "" {
		d.State = DeploymentPendingApproval
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO deployments (id, task_id, name, entrypoint, port, files, image_tag,
			container_id, host_port, url, state, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		d.ID, d.TaskID, d.Name, d.Entrypoint, d.Port, files, d.ImageTag,
		d.ContainerID, d.HostPort, d.URL, d.State, d.Notes, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert deployment: %w", err)
	}
	return nil
}

// Get fetches a deployment by id.
func (r *DeploymentRepository) Get(ctx context.Context, id string) (*Deployment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, task_id, name, entrypoint, port, files, image_tag, container_id,
			host_port, url, state, notes, created_at, updated_at
		FROM deployments WHERE id = $1`, id)
	d, err := scanDeployment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// SetState updates the deployment state and optional notes.
func (r *DeploymentRepository) SetState(ctx context.Context, id string, state DeploymentState, notes string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE deployments SET state = $1, notes = $2, updated_at = now() WHERE id = $3`,
		state, notes, id)
	if err != nil {
		return fmt.Errorf("update deployment state: %w", err)
	}
	return checkRowsAffected(res)
}

// SetImage records the built image tag and transitions to "built".
func (r *DeploymentRepository) SetImage(ctx context.Context, id, imageTag string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE deployments SET image_tag = $1, state = $2, updated_at = now() WHERE id = $3`,
		imageTag, DeploymentBuilt, id)
	if err != nil {
		return fmt.Errorf("update deployment image: %w", err)
	}
	return checkRowsAffected(res)
}

// SetRunning records the runtime fields once the container is started.
// It also moves the row to state="running", so the partial unique index on
// (host_port) WHERE state='running' rejects a second running deployment on
// the same port; that violation is returned as ErrStateConflict.
func (r *DeploymentRepository) SetRunning(ctx context.Context, id, containerID string, hostPort int, url string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE deployments SET container_id = $1, host_port = $2, url = $3, state = $4, updated_at = now()
		WHERE id = $5`, containerID, hostPort, url, DeploymentRunning, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: host port %d already in use", ErrStateConflict, hostPort)
		}
		return fmt.Errorf("update deployment running: %w", err)
	}
	return checkRowsAffected(res)
}

// ClearRuntime nulls out runtime fields on stop.
func (r *DeploymentRepository) ClearRuntime(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE deployments SET container_id = '', host_port = NULL, url = '', state = $1, updated_at = now()
		WHERE id = $2`, DeploymentStopped, id)
	if err != nil {
		return fmt.Errorf("clear deployment runtime: %w", err)
	}
	return checkRowsAffected(res)
}

// UsedHostPorts returns host ports currently held by running deployments, to
// let the deployment-start path pick the lowest free port outside the set.
func (r *DeploymentRepository) UsedHostPorts(ctx context.Context) (map[int]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT host_port FROM deployments WHERE state = $1 AND host_port IS NOT NULL`, DeploymentRunning)
	if err != nil {
		return nil, fmt.Errorf("query used host ports: %w", err)
	}
	defer rows.Close()

	used := map[int]struct{}{}
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan host port: %w", err)
		}
		used[p] = struct{}{}
	}
	return used, rows.Err()
}

func scanDeployment(row *sql.Row) (*Deployment, error) {
	var d Deployment
	var files []byte
	if err := row.Scan(&d.ID, &d.TaskID, &d.Name, &d.Entrypoint, &d.Port, &files, &d.ImageTag,
		&d.ContainerID, &d.HostPort, &d.URL, &d.State, &d.Notes, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan deployment: %w", err)
	}
	if err := json.Unmarshal(files, &d.Files); err != nil {
		return nil, fmt.Errorf("unmarshal files: %w", err)
	}
	return &d, nil
}
