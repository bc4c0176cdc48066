package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jaume768/splashmy/internal/domain"
	"github.com/jaume768/splashmy/internal/service"
	"github.com/jaume768/splashmy/pkg/zip"
)

type submitJobRequest struct {
	JobType         string                  `json:"job_type"`
	Prompt          string                  `json:"prompt"`
	OriginalImageID *string                 `json:"original_image_id,omitempty"`
	StyleID         *string                 `json:"style_id,omitempty"`
	Params          domain.GenerationParams `json:"params"`
	IsPublic        bool                    `json:"is_public"`
}

type jobResponse struct {
	ID             string                  `json:"id"`
	Kind           string                  `json:"job_type"`
	Status         string                  `json:"status"`
	Prompt         string                  `json:"prompt"`
	StyleID        *string                 `json:"style_id,omitempty"`
	SourceImageID  *string                 `json:"original_image_id,omitempty"`
	Params         domain.GenerationParams `json:"params"`
	IsPublic       bool                    `json:"is_public"`
	ErrorMessage   string                  `json:"error_message,omitempty"`
	RetryCount     int                     `json:"retry_count"`
	ProcessingTime *float64                `json:"processing_time,omitempty"`
	StartedAt      *time.Time              `json:"started_at,omitempty"`
	CompletedAt    *time.Time              `json:"completed_at,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
}

func toJobResponse(job *domain.Job) jobResponse {
	return jobResponse{
		ID:             job.ID,
		Kind:           string(job.Kind),
		Status:         string(job.Status),
		Prompt:         job.Prompt,
		StyleID:        job.StyleID,
		SourceImageID:  job.SourceImageID,
		Params:         job.Params,
		IsPublic:       job.IsPublic,
		ErrorMessage:   job.ErrorMessage,
		RetryCount:     job.RetryCount,
		ProcessingTime: job.ProcessingTime,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
		CreatedAt:      job.CreatedAt,
	}
}

func (a *App) JobsSubmit(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	job, err := a.Jobs.Submit(r.Context(), userID, service.SubmitInput{
		Kind:          domain.JobKind(req.JobType),
		Prompt:        req.Prompt,
		SourceImageID: req.OriginalImageID,
		StyleID:       req.StyleID,
		Params:        req.Params,
		IsPublic:      req.IsPublic,
	})
	if err != nil {
		a.writeErr(w, err)
		return
	}
	a.json(w, http.StatusAccepted, toJobResponse(job))
}

func (a *App) JobsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	status := domain.JobStatus(r.URL.Query().Get("status"))
	kind := domain.JobKind(r.URL.Query().Get("job_type"))

	jobs, err := a.JobRepo.List(r.Context(), userID, status, kind, limit)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	items := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		items = append(items, toJobResponse(&jobs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) JobGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	job, err := a.JobRepo.GetForUser(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	a.json(w, http.StatusOK, toJobResponse(job))
}

func (a *App) JobCancel(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if err := a.Jobs.Cancel(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		a.writeErr(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"status": "cancelled"})
}

func (a *App) JobResults(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "id")
	if _, err := a.JobRepo.GetForUser(r.Context(), jobID, userID); err != nil {
		a.writeErr(w, err)
		return
	}
	results, err := a.ResultRepo.ListByJob(r.Context(), jobID)
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

// JobEvents returns the stored streaming events of a job, letting clients
// replay partial-image progress.
func (a *App) JobEvents(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "id")
	if _, err := a.JobRepo.GetForUser(r.Context(), jobID, userID); err != nil {
		a.writeErr(w, err)
		return
	}
	events, err := a.EventRepo.ListByJob(r.Context(), jobID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	items := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		items = append(items, map[string]any{
			"event_type":    ev.EventType,
			"partial_index": ev.PartialIndex,
			"metadata":      json.RawMessage(ev.Metadata),
			"received_at":   ev.ReceivedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// JobZip streams all result images of a completed job as a zip archive.
func (a *App) JobZip(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "id")
	if _, err := a.JobRepo.GetForUser(r.Context(), jobID, userID); err != nil {
		a.writeErr(w, err)
		return
	}
	results, err := a.ResultRepo.ListByJob(r.Context(), jobID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	var assets []zip.Asset
	for idx, res := range results {
		data, err := a.Store.Read(r.Context(), res.StorageKey)
		if err != nil {
			a.Logger.Warn().Err(err).Str("key", res.StorageKey).Msg("http: read result for archive failed")
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: fmt.Sprintf("result-%02d.%s", idx+1, res.Format),
			MIME:     "image/" + res.Format,
			Data:     data,
		})
	}
	if len(assets) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "job has no results")
		return
	}
	archive := zip.ArchiveAssets(assets)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=job-%s.zip", jobID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func (a *App) StatsSummary(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	stats, err := a.JobRepo.StatsForUser(r.Context(), userID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"total_jobs":            stats.TotalJobs,
		"completed_jobs":        stats.CompletedJobs,
		"failed_jobs":           stats.FailedJobs,
		"pending_jobs":          stats.PendingJobs,
		"total_generations":     stats.TotalGenerations,
		"total_edits":           stats.TotalEdits,
		"total_style_transfers": stats.TotalStyleTransfers,
		"avg_processing_time":   stats.AvgProcessingTime,
	})
}
