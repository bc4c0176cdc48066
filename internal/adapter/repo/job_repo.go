package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jaume768/splashmy/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository backed by PostgreSQL.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

const jobColumns = `id, user_id, kind, status, source_image_id, style_id, prompt, params,
is_public, moderation_passed, moderation_details, moderation_checked_at,
started_at, completed_at, processing_time, error_message, error_details,
retry_count, created_at, updated_at`

// Create inserts a new job record in `pending`.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	params, err := json.Marshal(job.Params)
	if err != nil {
		return err
	}
	query := `
INSERT INTO processing_jobs (id, user_id, kind, status, source_image_id, style_id, prompt, params, is_public)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.UserID,
		job.Kind,
		job.Status,
		job.SourceImageID,
		job.StyleID,
		job.Prompt,
		params,
		job.IsPublic,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM processing_jobs WHERE id = $1`, id)
	return scanJob(row)
}

// GetForUser fetches a job only when it belongs to userID.
func (r *JobRepositoryPG) GetForUser(ctx context.Context, id, userID string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM processing_jobs WHERE id = $1 AND user_id = $2`, id, userID)
	return scanJob(row)
}

// List returns the user's jobs, newest first, optionally filtered by status
// and kind. Empty filter values match everything.
func (r *JobRepositoryPG) List(ctx context.Context, userID string, status domain.JobStatus, kind domain.JobKind, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
SELECT ` + jobColumns + `
FROM processing_jobs
WHERE user_id = $1
  AND ($2 = '' OR status = $2)
  AND ($3 = '' OR kind = $3)
ORDER BY created_at DESC
LIMIT $4;
`
	rows, err := r.pool.Query(ctx, query, userID, string(status), string(kind), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// ClaimPending atomically claims the oldest pending job for a worker. Jobs
// with a source image enter `moderating` first; prompt-only jobs go straight
// to `processing`. SKIP LOCKED keeps concurrent workers from double-claiming.
func (r *JobRepositoryPG) ClaimPending(ctx context.Context) (*domain.Job, error) {
	query := `
WITH next_job AS (
    SELECT id
    FROM processing_jobs
    WHERE status = 'pending'
    ORDER BY created_at
    FOR UPDATE SKIP LOCKED
    LIMIT 1
)
UPDATE processing_jobs j
SET status = CASE WHEN j.source_image_id IS NULL THEN 'processing' ELSE 'moderating' END,
    started_at = NOW(),
    updated_at = NOW()
FROM next_job
WHERE j.id = next_job.id
RETURNING j.id, j.user_id, j.kind, j.status, j.source_image_id, j.style_id, j.prompt, j.params,
    j.is_public, j.moderation_passed, j.moderation_details, j.moderation_checked_at,
    j.started_at, j.completed_at, j.processing_time, j.error_message, j.error_details,
    j.retry_count, j.created_at, j.updated_at;
`
	row := r.pool.QueryRow(ctx, query)
	return scanJob(row)
}

// SetStatus updates a job's status.
func (r *JobRepositoryPG) SetStatus(ctx context.Context, id string, status domain.JobStatus) error {
	_, err := r.pool.Exec(ctx, `UPDATE processing_jobs SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return err
}

// Status returns only the job's current status.
func (r *JobRepositoryPG) Status(ctx context.Context, id string) (domain.JobStatus, error) {
	var status domain.JobStatus
	if err := r.pool.QueryRow(ctx, `SELECT status FROM processing_jobs WHERE id = $1`, id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return status, nil
}

// RecordModeration stores the moderation outcome for a job.
func (r *JobRepositoryPG) RecordModeration(ctx context.Context, id string, passed bool, details []byte) error {
	query := `
UPDATE processing_jobs
SET moderation_passed = $2,
    moderation_details = $3,
    moderation_checked_at = NOW(),
    updated_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, id, passed, nullableBytes(details))
	return err
}

// MarkCompleted flips a job to `completed` and stamps the timing fields.
func (r *JobRepositoryPG) MarkCompleted(ctx context.Context, id string, completedAt time.Time, processingTime float64) error {
	query := `
UPDATE processing_jobs
SET status = 'completed',
    completed_at = $2,
    processing_time = $3,
    error_message = '',
    updated_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, id, completedAt, processingTime)
	return err
}

// MarkFailed flips a job to `failed` with the error message and details.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, id, message string, details []byte) error {
	query := `
UPDATE processing_jobs
SET status = 'failed',
    completed_at = NOW(),
    error_message = $2,
    error_details = $3,
    updated_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, id, message, nullableBytes(details))
	return err
}

// IncrementRetry bumps the retry counter and returns the new count.
func (r *JobRepositoryPG) IncrementRetry(ctx context.Context, id string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
UPDATE processing_jobs
SET retry_count = retry_count + 1, updated_at = NOW()
WHERE id = $1
RETURNING retry_count;
`, id).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return count, nil
}

// Cancel flips a non-terminal job owned by userID to `cancelled`. A job that
// exists but is already terminal (or mid-stream) yields ErrInvalidTransition.
func (r *JobRepositoryPG) Cancel(ctx context.Context, id, userID string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE processing_jobs
SET status = 'cancelled', completed_at = NOW(), updated_at = NOW()
WHERE id = $1
  AND user_id = $2
  AND status IN ('pending', 'moderating', 'processing');
`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM processing_jobs WHERE id = $1 AND user_id = $2)`, id, userID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrInvalidTransition
	}
	return nil
}

// ListExpired returns terminal jobs whose completion predates cutoff.
func (r *JobRepositoryPG) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
SELECT ` + jobColumns + `
FROM processing_jobs
WHERE status IN ('completed', 'failed', 'cancelled')
  AND COALESCE(completed_at, updated_at) < $1
ORDER BY completed_at
LIMIT $2;
`
	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Delete removes a job row. Results and streaming events cascade.
func (r *JobRepositoryPG) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM processing_jobs WHERE id = $1`, id)
	return err
}

// StatsForUser aggregates the user's job history.
func (r *JobRepositoryPG) StatsForUser(ctx context.Context, userID string) (*domain.ProcessingStats, error) {
	query := `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE status = 'completed'),
       COUNT(*) FILTER (WHERE status = 'failed'),
       COUNT(*) FILTER (WHERE status IN ('pending', 'moderating', 'processing', 'streaming')),
       COUNT(*) FILTER (WHERE kind = 'generation' AND status = 'completed'),
       COUNT(*) FILTER (WHERE kind = 'edit' AND status = 'completed'),
       COUNT(*) FILTER (WHERE kind = 'style_transfer' AND status = 'completed'),
       COALESCE(AVG(processing_time) FILTER (WHERE status = 'completed'), 0)
FROM processing_jobs
WHERE user_id = $1;
`
	var stats domain.ProcessingStats
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&stats.TotalJobs,
		&stats.CompletedJobs,
		&stats.FailedJobs,
		&stats.PendingJobs,
		&stats.TotalGenerations,
		&stats.TotalEdits,
		&stats.TotalStyleTransfers,
		&stats.AvgProcessingTime,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job    domain.Job
		params []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Kind,
		&job.Status,
		&job.SourceImageID,
		&job.StyleID,
		&job.Prompt,
		&params,
		&job.IsPublic,
		&job.ModerationPassed,
		&job.ModerationDetails,
		&job.ModerationCheckedAt,
		&job.StartedAt,
		&job.CompletedAt,
		&job.ProcessingTime,
		&job.ErrorMessage,
		&job.ErrorDetails,
		&job.RetryCount,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &job.Params); err != nil {
			return nil, err
		}
	}
	return &job, nil
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
