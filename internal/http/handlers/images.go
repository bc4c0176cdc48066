package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jaume768/splashmy/internal/domain"
)

func (a *App) ImagesUpload(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if err := r.ParseMultipartForm(domain.MaxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, domain.MaxUploadBytes+1))
	if err != nil {
		a.writeErr(w, err)
		return
	}

	img, err := a.Uploads.Upload(r.Context(), userID, header.Filename, r.FormValue("title"), data)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	a.json(w, http.StatusCreated, imagePayload(img))
}

func (a *App) ImagesList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	images, err := a.ImageRepo.ListByUser(r.Context(), userID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	items := make([]map[string]any, 0, len(images))
	for i := range images {
		items = append(items, imagePayload(&images[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) ImageDelete(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if err := a.Uploads.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		a.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func imagePayload(img *domain.Image) map[string]any {
	return map[string]any{
		"id":                img.ID,
		"original_filename": img.OriginalFilename,
		"title":             img.Title,
		"url":               img.URL,
		"format":            img.Format,
		"size_bytes":        img.SizeBytes,
		"created_at":        img.CreatedAt,
	}
}
