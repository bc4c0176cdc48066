package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jaume768/splashmy/internal/domain"
)

// ImageRepositoryPG implements domain.ImageRepository backed by PostgreSQL.
type ImageRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewImageRepository creates a new ImageRepositoryPG.
func NewImageRepository(pool *pgxpool.Pool) *ImageRepositoryPG {
	return &ImageRepositoryPG{pool: pool}
}

const imageColumns = `id, user_id, original_filename, title, storage_key, url, format, size_bytes, moderation_passed, created_at, updated_at`

// Create inserts an uploaded source image record.
func (r *ImageRepositoryPG) Create(ctx context.Context, img *domain.Image) error {
	query := `
INSERT INTO images (id, user_id, original_filename, title, storage_key, url, format, size_bytes, moderation_passed)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err := r.pool.Exec(ctx, query,
		img.ID,
		img.UserID,
		img.OriginalFilename,
		img.Title,
		img.StorageKey,
		img.URL,
		img.Format,
		img.SizeBytes,
		img.ModerationPassed,
	)
	return err
}

// GetForUser fetches an image only when it belongs to userID.
func (r *ImageRepositoryPG) GetForUser(ctx context.Context, id, userID string) (*domain.Image, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+imageColumns+` FROM images WHERE id = $1 AND user_id = $2`, id, userID)
	return scanImage(row)
}

// ListByUser returns the user's uploads, newest first.
func (r *ImageRepositoryPG) ListByUser(ctx context.Context, userID string) ([]domain.Image, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+imageColumns+` FROM images WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []domain.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}
	return images, rows.Err()
}

// Delete removes an upload owned by userID.
func (r *ImageRepositoryPG) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM images WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanImage(row pgx.Row) (*domain.Image, error) {
	var img domain.Image
	if err := row.Scan(
		&img.ID,
		&img.UserID,
		&img.OriginalFilename,
		&img.Title,
		&img.StorageKey,
		&img.URL,
		&img.Format,
		&img.SizeBytes,
		&img.ModerationPassed,
		&img.CreatedAt,
		&img.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}

var _ domain.ImageRepository = (*ImageRepositoryPG)(nil)
