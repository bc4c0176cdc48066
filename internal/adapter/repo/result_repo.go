package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jaume768/splashmy/internal/domain"
)

// ResultRepositoryPG implements domain.ResultRepository backed by PostgreSQL.
type ResultRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepositoryPG.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepositoryPG {
	return &ResultRepositoryPG{pool: pool}
}

const resultColumns = `id, job_id, format, size, quality, background, storage_key, url, size_bytes,
token_usage, user_rating, is_favorite, is_public, download_count, like_count, created_at, updated_at`

// Create inserts a generated result record.
func (r *ResultRepositoryPG) Create(ctx context.Context, res *domain.Result) error {
	query := `
INSERT INTO processing_results (id, job_id, format, size, quality, background, storage_key, url, size_bytes, token_usage, is_public)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
`
	_, err := r.pool.Exec(ctx, query,
		res.ID,
		res.JobID,
		res.Format,
		res.Size,
		res.Quality,
		res.Background,
		res.StorageKey,
		res.URL,
		res.SizeBytes,
		nullableBytes(res.TokenUsage),
		res.IsPublic,
	)
	return err
}

// GetForUser fetches a result only when its job belongs to userID.
func (r *ResultRepositoryPG) GetForUser(ctx context.Context, id, userID string) (*domain.Result, error) {
	query := `
SELECT ` + prefixResultColumns() + `
FROM processing_results r
JOIN processing_jobs j ON j.id = r.job_id
WHERE r.id = $1 AND j.user_id = $2;
`
	row := r.pool.QueryRow(ctx, query, id, userID)
	return scanResult(row)
}

// ListByJob returns all results of a job in creation order.
func (r *ResultRepositoryPG) ListByJob(ctx context.Context, jobID string) ([]domain.Result, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+resultColumns+` FROM processing_results WHERE job_id = $1 ORDER BY created_at`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResults(rows)
}

// ListByUser returns the user's results, newest first, optionally only
// favorites.
func (r *ResultRepositoryPG) ListByUser(ctx context.Context, userID string, favoritesOnly bool, limit int) ([]domain.Result, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
SELECT ` + prefixResultColumns() + `
FROM processing_results r
JOIN processing_jobs j ON j.id = r.job_id
WHERE j.user_id = $1
  AND (NOT $2 OR r.is_favorite)
ORDER BY r.created_at DESC
LIMIT $3;
`
	rows, err := r.pool.Query(ctx, query, userID, favoritesOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResults(rows)
}

// SetFavorite toggles the favorite flag.
func (r *ResultRepositoryPG) SetFavorite(ctx context.Context, id string, favorite bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE processing_results SET is_favorite = $2, updated_at = NOW() WHERE id = $1`, id, favorite)
	return err
}

// SetRating stores the user's 1-5 rating.
func (r *ResultRepositoryPG) SetRating(ctx context.Context, id string, rating int) error {
	_, err := r.pool.Exec(ctx, `UPDATE processing_results SET user_rating = $2, updated_at = NOW() WHERE id = $1`, id, rating)
	return err
}

// IncrementDownloads bumps the download counter.
func (r *ResultRepositoryPG) IncrementDownloads(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE processing_results SET download_count = download_count + 1, updated_at = NOW() WHERE id = $1`, id)
	return err
}

// Delete removes a result owned by userID through its job.
func (r *ResultRepositoryPG) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.pool.Exec(ctx, `
DELETE FROM processing_results r
USING processing_jobs j
WHERE r.id = $1 AND j.id = r.job_id AND j.user_id = $2;
`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func prefixResultColumns() string {
	return `r.id, r.job_id, r.format, r.size, r.quality, r.background, r.storage_key, r.url, r.size_bytes,
r.token_usage, r.user_rating, r.is_favorite, r.is_public, r.download_count, r.like_count, r.created_at, r.updated_at`
}

func collectResults(rows pgx.Rows) ([]domain.Result, error) {
	var results []domain.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

func scanResult(row pgx.Row) (*domain.Result, error) {
	var res domain.Result
	if err := row.Scan(
		&res.ID,
		&res.JobID,
		&res.Format,
		&res.Size,
		&res.Quality,
		&res.Background,
		&res.StorageKey,
		&res.URL,
		&res.SizeBytes,
		&res.TokenUsage,
		&res.UserRating,
		&res.IsFavorite,
		&res.IsPublic,
		&res.DownloadCount,
		&res.LikeCount,
		&res.CreatedAt,
		&res.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

var _ domain.ResultRepository = (*ResultRepositoryPG)(nil)
