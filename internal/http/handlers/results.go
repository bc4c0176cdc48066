package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jaume768/splashmy/internal/domain"
)

type resultResponse struct {
	ID            string          `json:"id"`
	JobID         string          `json:"job_id"`
	Format        string          `json:"format"`
	Size          string          `json:"size"`
	Quality       string          `json:"quality"`
	Background    string          `json:"background,omitempty"`
	URL           string          `json:"url"`
	SizeBytes     int64           `json:"size_bytes"`
	TokenUsage    json.RawMessage `json:"token_usage,omitempty"`
	UserRating    *int            `json:"user_rating,omitempty"`
	IsFavorite    bool            `json:"is_favorite"`
	IsPublic      bool            `json:"is_public"`
	DownloadCount int             `json:"download_count"`
	LikeCount     int             `json:"like_count"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toResultResponse(res *domain.Result) resultResponse {
	return resultResponse{
		ID:            res.ID,
		JobID:         res.JobID,
		Format:        res.Format,
		Size:          res.Size,
		Quality:       res.Quality,
		Background:    res.Background,
		URL:           res.URL,
		SizeBytes:     res.SizeBytes,
		TokenUsage:    res.TokenUsage,
		UserRating:    res.UserRating,
		IsFavorite:    res.IsFavorite,
		IsPublic:      res.IsPublic,
		DownloadCount: res.DownloadCount,
		LikeCount:     res.LikeCount,
		CreatedAt:     res.CreatedAt,
	}
}

func (a *App) ResultsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	favoritesOnly := r.URL.Query().Get("favorites") == "true"

	results, err := a.ResultRepo.ListByUser(r.Context(), userID, favoritesOnly, limit)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	items := make([]resultResponse, 0, len(results))
	for i := range results {
		items = append(items, toResultResponse(&results[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) ResultFavorite(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	id := chi.URLParam(r, "id")
	res, err := a.ResultRepo.GetForUser(r.Context(), id, userID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	if err := a.ResultRepo.SetFavorite(r.Context(), id, !res.IsFavorite); err != nil {
		a.writeErr(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"is_favorite": !res.IsFavorite})
}

func (a *App) ResultRate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req struct {
		Rating int `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		a.error(w, http.StatusBadRequest, "bad_request", "rating must be between 1 and 5")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := a.ResultRepo.GetForUser(r.Context(), id, userID); err != nil {
		a.writeErr(w, err)
		return
	}
	if err := a.ResultRepo.SetRating(r.Context(), id, req.Rating); err != nil {
		a.writeErr(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"rating": req.Rating})
}

// ResultDownload serves the result bytes and bumps the download counter.
func (a *App) ResultDownload(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	id := chi.URLParam(r, "id")
	res, err := a.ResultRepo.GetForUser(r.Context(), id, userID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	data, err := a.Store.Read(r.Context(), res.StorageKey)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	if err := a.ResultRepo.IncrementDownloads(r.Context(), id); err != nil {
		a.Logger.Warn().Err(err).Str("result_id", id).Msg("http: download counter failed")
	}
	w.Header().Set("Content-Type", "image/"+res.Format)
	w.Header().Set("Content-Disposition", "attachment; filename=result-"+id+"."+res.Format)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *App) ResultDelete(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	id := chi.URLParam(r, "id")
	res, err := a.ResultRepo.GetForUser(r.Context(), id, userID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	if err := a.ResultRepo.Delete(r.Context(), id, userID); err != nil {
		a.writeErr(w, err)
		return
	}
	if err := a.Store.Delete(r.Context(), res.StorageKey); err != nil {
		a.Logger.Warn().Err(err).Str("key", res.StorageKey).Msg("http: delete result object failed")
	}
	w.WriteHeader(http.StatusNoContent)
}
