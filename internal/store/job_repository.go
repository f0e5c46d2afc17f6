package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tvoe/mediaserver/internal/domain"
)

// JobRepository handles playback job persistence
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create creates a new job
func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO playback_jobs (
			id, type, user_id, media_id, client, created_at,
			last_active_at, ended_at, bytes_transferred, last_segment
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		job.ID,
		job.Type,
		job.UserID,
		job.MediaID,
		job.Client,
		job.CreatedAt,
		job.LastActiveAt,
		job.EndedAt,
		job.BytesTransferred,
		job.LastSegment,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetByID retrieves a job by ID
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `
		SELECT id, type, user_id, media_id, client, created_at,
			last_active_at, ended_at, bytes_transferred, last_segment
		FROM playback_jobs
		WHERE id = $1
	`

	return r.scanJob(r.db.Pool.QueryRow(ctx, query, id))
}

// Touch refreshes the last-activity timestamp and accumulates transferred
// bytes for the job.
func (r *JobRepository) Touch(ctx context.Context, jobID uuid.UUID, bytes int64) error {
	query := `
		UPDATE playback_jobs SET
			last_active_at = $2,
			bytes_transferred = bytes_transferred + $3
		WHERE id = $1 AND ended_at IS NULL
	`

	_, err := r.db.Pool.Exec(ctx, query, jobID, time.Now().UTC(), bytes)
	if err != nil {
		return fmt.Errorf("failed to touch job: %w", err)
	}

	return nil
}

// SetSegment records the current segment number and refreshes last activity.
func (r *JobRepository) SetSegment(ctx context.Context, jobID uuid.UUID, segment int) error {
	query := `
		UPDATE playback_jobs SET
			last_segment = $2,
			last_active_at = $3
		WHERE id = $1 AND ended_at IS NULL
	`

	_, err := r.db.Pool.Exec(ctx, query, jobID, segment, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set segment: %w", err)
	}

	return nil
}

// End closes the job. Ending an already ended job is a no-op.
func (r *JobRepository) End(ctx context.Context, jobID uuid.UUID) error {
	query := `
		UPDATE playback_jobs SET ended_at = $2
		WHERE id = $1 AND ended_at IS NULL
	`

	_, err := r.db.Pool.Exec(ctx, query, jobID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to end job: %w", err)
	}

	return nil
}

// ListActive lists jobs that have not ended
func (r *JobRepository) ListActive(ctx context.Context) ([]*domain.Job, error) {
	query := `
		SELECT id, type, user_id, media_id, client, created_at,
			last_active_at, ended_at, bytes_transferred, last_segment
		FROM playback_jobs
		WHERE ended_at IS NULL
		ORDER BY created_at ASC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := r.scanJobFromRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// ListInactiveSince lists open jobs whose last activity predates the cutoff.
// The inactivity sweep ends them.
func (r *JobRepository) ListInactiveSince(ctx context.Context, cutoff time.Time) ([]*domain.Job, error) {
	query := `
		SELECT id, type, user_id, media_id, client, created_at,
			last_active_at, ended_at, bytes_transferred, last_segment
		FROM playback_jobs
		WHERE ended_at IS NULL AND last_active_at < $1
		ORDER BY last_active_at ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list inactive jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := r.scanJobFromRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

func (r *JobRepository) scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job

	err := row.Scan(
		&job.ID,
		&job.Type,
		&job.UserID,
		&job.MediaID,
		&job.Client,
		&job.CreatedAt,
		&job.LastActiveAt,
		&job.EndedAt,
		&job.BytesTransferred,
		&job.LastSegment,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	return &job, nil
}

func (r *JobRepository) scanJobFromRows(rows pgx.Rows) (*domain.Job, error) {
	var job domain.Job

	err := rows.Scan(
		&job.ID,
		&job.Type,
		&job.UserID,
		&job.MediaID,
		&job.Client,
		&job.CreatedAt,
		&job.LastActiveAt,
		&job.EndedAt,
		&job.BytesTransferred,
		&job.LastSegment,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	return &job, nil
}
