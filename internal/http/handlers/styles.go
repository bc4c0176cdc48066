package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jaume768/splashmy/internal/domain"
)

// popularStylesLimit caps the popular listing.
const popularStylesLimit = 20

func (a *App) StyleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.StyleRepo.ListCategories(r.Context())
	if err != nil {
		a.writeErr(w, err)
		return
	}
	items := make([]map[string]any, 0, len(categories))
	for _, c := range categories {
		items = append(items, map[string]any{
			"id":          c.ID,
			"name":        c.Name,
			"slug":        c.Slug,
			"description": c.Description,
			"icon":        c.Icon,
			"color":       c.Color,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) StylesList(w http.ResponseWriter, r *http.Request) {
	styles, err := a.StyleRepo.ListActive(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		a.writeErr(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": styleItems(styles)})
}

func (a *App) StylesPopular(w http.ResponseWriter, r *http.Request) {
	styles, err := a.StyleRepo.ListPopular(r.Context(), popularStylesLimit)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": styleItems(styles)})
}

func styleItems(styles []domain.Style) []map[string]any {
	items := make([]map[string]any, 0, len(styles))
	for _, s := range styles {
		items = append(items, map[string]any{
			"id":                    s.ID,
			"category_id":           s.CategoryID,
			"name":                  s.Name,
			"slug":                  s.Slug,
			"description":           s.Description,
			"preview_image":         s.PreviewImage,
			"thumbnail":             s.Thumbnail,
			"supports_transparency": s.SupportsTransparency,
			"supports_streaming":    s.SupportsStreaming,
			"max_prompt_length":     s.MaxPromptLength,
			"is_premium":            s.IsPremium,
			"popularity_score":      s.PopularityScore,
		})
	}
	return items
}

func (a *App) StyleGet(w http.ResponseWriter, r *http.Request) {
	s, err := a.StyleRepo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeErr(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"id":                    s.ID,
		"category_id":           s.CategoryID,
		"name":                  s.Name,
		"slug":                  s.Slug,
		"description":           s.Description,
		"preview_image":         s.PreviewImage,
		"thumbnail":             s.Thumbnail,
		"default_quality":       s.DefaultQuality,
		"default_background":    s.DefaultBackground,
		"default_output_format": s.DefaultOutputFormat,
		"default_size":          s.DefaultSize,
		"supports_transparency": s.SupportsTransparency,
		"supports_streaming":    s.SupportsStreaming,
		"max_prompt_length":     s.MaxPromptLength,
		"is_active":             s.IsActive,
		"is_premium":            s.IsPremium,
	})
}
