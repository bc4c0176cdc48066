package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jaume768/splashmy/internal/domain"
)

// StyleRepositoryPG implements domain.StyleRepository backed by PostgreSQL.
type StyleRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewStyleRepository creates a new StyleRepositoryPG.
func NewStyleRepository(pool *pgxpool.Pool) *StyleRepositoryPG {
	return &StyleRepositoryPG{pool: pool}
}

const styleColumns = `id, category_id, name, slug, description, prompt_template, preview_image, thumbnail,
default_quality, default_background, default_output_format, default_size, default_compression,
supports_transparency, supports_streaming, max_prompt_length, is_active, is_premium,
sort_order, popularity_score, created_at, updated_at`

// ListCategories returns active categories in display order.
func (r *StyleRepositoryPG) ListCategories(ctx context.Context) ([]domain.StyleCategory, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, name, slug, description, icon, color, is_active, sort_order, created_at, updated_at
FROM style_categories
WHERE is_active
ORDER BY sort_order, name;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []domain.StyleCategory
	for rows.Next() {
		var c domain.StyleCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Icon, &c.Color, &c.IsActive, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// ListActive returns active styles, optionally filtered by category slug.
func (r *StyleRepositoryPG) ListActive(ctx context.Context, categorySlug string) ([]domain.Style, error) {
	query := `
SELECT ` + styleColumns + `
FROM styles s
WHERE s.is_active
  AND ($1 = '' OR s.category_id = (SELECT id FROM style_categories WHERE slug = $1))
ORDER BY s.sort_order, s.popularity_score DESC, s.name;
`
	rows, err := r.pool.Query(ctx, query, categorySlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var styles []domain.Style
	for rows.Next() {
		style, err := scanStyle(rows)
		if err != nil {
			return nil, err
		}
		styles = append(styles, *style)
	}
	return styles, rows.Err()
}

// ListPopular returns the most used active styles, capped at limit.
func (r *StyleRepositoryPG) ListPopular(ctx context.Context, limit int) ([]domain.Style, error) {
	query := `
SELECT ` + styleColumns + `
FROM styles s
WHERE s.is_active
ORDER BY s.popularity_score DESC, s.name
LIMIT $1;
`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var styles []domain.Style
	for rows.Next() {
		style, err := scanStyle(rows)
		if err != nil {
			return nil, err
		}
		styles = append(styles, *style)
	}
	return styles, rows.Err()
}

// GetByID fetches one style regardless of active state.
func (r *StyleRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Style, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+styleColumns+` FROM styles s WHERE s.id = $1`, id)
	return scanStyle(row)
}

func scanStyle(row pgx.Row) (*domain.Style, error) {
	var s domain.Style
	if err := row.Scan(
		&s.ID,
		&s.CategoryID,
		&s.Name,
		&s.Slug,
		&s.Description,
		&s.PromptTemplate,
		&s.PreviewImage,
		&s.Thumbnail,
		&s.DefaultQuality,
		&s.DefaultBackground,
		&s.DefaultOutputFormat,
		&s.DefaultSize,
		&s.DefaultCompression,
		&s.SupportsTransparency,
		&s.SupportsStreaming,
		&s.MaxPromptLength,
		&s.IsActive,
		&s.IsPremium,
		&s.SortOrder,
		&s.PopularityScore,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

var _ domain.StyleRepository = (*StyleRepositoryPG)(nil)
