package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/foodtruck-agent/internal/store"
	"github.com/jonathan/foodtruck-agent/internal/types"
)

const jobColumns = `id, COALESCE(target_url, ''), job_type, status, priority, scheduled_at, started_at,
	completed_at, retry_count, max_retries, errors, data_collected, created_at, updated_at`

func scanJob(row pgx.Row) (*types.Job, error) {
	var j types.Job
	var jobType, status string
	var data []byte

	err := row.Scan(&j.ID, &j.TargetURL, &jobType, &status, &j.Priority, &j.ScheduledAt, &j.StartedAt,
		&j.CompletedAt, &j.RetryCount, &j.MaxRetries, &j.Errors, &data, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.JobType = types.JobType(jobType)
	j.Status = types.JobStatus(status)
	if j.Errors == nil {
		j.Errors = []string{}
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &j.DataCollected); err != nil {
			return nil, fmt.Errorf("failed to unmarshal data_collected: %w", err)
		}
	}
	return &j, nil
}

func marshalData(data map[string]any) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data_collected: %w", err)
	}
	return b, nil
}

// CreateJob inserts a new scraping job
func (db *DB) CreateJob(ctx context.Context, job *types.Job) (*types.Job, error) {
	data, err := marshalData(job.DataCollected)
	if err != nil {
		return nil, err
	}
	id := job.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	status := job.Status
	if status == "" {
		status = types.JobStatusPending
	}
	jobType := job.JobType
	if jobType == "" {
		jobType = types.JobTypeWebsiteAuto
	}
	var scheduledAt any
	if !job.ScheduledAt.IsZero() {
		scheduledAt = job.ScheduledAt
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO scraping_jobs (id, target_url, job_type, status, priority, scheduled_at,
			retry_count, max_retries, errors, data_collected)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, COALESCE($6::timestamptz, NOW()), $7, $8, $9, $10)
		 RETURNING `+jobColumns,
		id, job.TargetURL, string(jobType), string(status), job.Priority, scheduledAt,
		job.RetryCount, job.MaxRetries, nonNil(job.Errors), data,
	)
	created, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return created, nil
}

// GetJob retrieves a job by ID
func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM scraping_jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

// ListJobsByStatus returns jobs in a status, highest priority first then oldest schedule
func (db *DB) ListJobsByStatus(ctx context.Context, status types.JobStatus, limit int) ([]types.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM scraping_jobs WHERE status = $1
		ORDER BY priority DESC, scheduled_at ASC`
	args := []any{string(status)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []types.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// ClaimJob moves a pending job to running. Concurrent claims on the same job
// are serialized by the conditional update, so only one caller succeeds.
func (db *DB) ClaimJob(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	row := db.pool.QueryRow(ctx,
		`UPDATE scraping_jobs SET status = 'running', started_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+jobColumns,
		id,
	)
	j, err := scanJob(row)
	if err == nil {
		return j, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	var status string
	err = db.pool.QueryRow(ctx, `SELECT status FROM scraping_jobs WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job status: %w", err)
	}
	return nil, fmt.Errorf("job %s is %s: %w", id, status, store.ErrJobNotClaimable)
}

// UpdateJobStatus writes a status transition. Errors replace the stored list when
// non-nil, DataCollected is merged into the stored object.
func (db *DB) UpdateJobStatus(ctx context.Context, id uuid.UUID, status types.JobStatus, update store.JobUpdate) error {
	data, err := marshalData(update.DataCollected)
	if err != nil {
		return err
	}

	result, err := db.pool.Exec(ctx,
		`UPDATE scraping_jobs SET
			status = $2,
			errors = COALESCE($3, errors),
			data_collected = CASE WHEN $4::jsonb IS NULL THEN data_collected
				ELSE COALESCE(data_collected, '{}'::jsonb) || $4::jsonb END,
			completed_at = COALESCE($5, completed_at),
			updated_at = NOW()
		 WHERE id = $1`,
		id, string(status), update.Errors, data, update.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// RetryJob re-queues a failed job with retries left, incrementing retry_count
func (db *DB) RetryJob(ctx context.Context, id uuid.UUID) (store.RetryOutcome, error) {
	var outcome store.RetryOutcome
	err := db.pool.QueryRow(ctx,
		`UPDATE scraping_jobs SET
			status = 'pending', retry_count = retry_count + 1,
			started_at = NULL, completed_at = NULL, updated_at = NOW()
		 WHERE id = $1 AND status = 'failed' AND retry_count < max_retries
		 RETURNING retry_count, max_retries`,
		id,
	).Scan(&outcome.RetryCount, &outcome.MaxRetries)
	if err == nil {
		outcome.Requeued = true
		return outcome, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return outcome, fmt.Errorf("failed to retry job: %w", err)
	}

	err = db.pool.QueryRow(ctx,
		`SELECT retry_count, max_retries FROM scraping_jobs WHERE id = $1`, id,
	).Scan(&outcome.RetryCount, &outcome.MaxRetries)
	if errors.Is(err, pgx.ErrNoRows) {
		return outcome, fmt.Errorf("job %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return outcome, fmt.Errorf("failed to get job retries: %w", err)
	}
	return outcome, nil
}
