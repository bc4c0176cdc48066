package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jaume768/splashmy/internal/domain"
	"github.com/jaume768/splashmy/internal/infra"
	"github.com/jaume768/splashmy/internal/moderation"
	"github.com/jaume768/splashmy/internal/openai"
	"github.com/jaume768/splashmy/internal/storage"
)

// GenerationClient is the provider surface the runner depends on.
// *openai.Client satisfies it; tests substitute fakes.
type GenerationClient interface {
	Generate(ctx context.Context, req openai.GenerateRequest) (*openai.Outcome, error)
	Edit(ctx context.Context, req openai.EditRequest) (*openai.Outcome, error)
	GenerateStream(ctx context.Context, req openai.GenerateRequest, fn func(openai.StreamEvent) error) (*openai.Outcome, error)
}

// RunnerOptions tunes the worker loop.
type RunnerOptions struct {
	Poll       time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// Runner claims pending jobs and drives them to a terminal state. Delivery is
// at least once: a worker crash mid-job leaves the job claimed, and recovery
// is an operational concern, but results, quota and status are only written
// after the provider call succeeds and a final cancellation check passes.
type Runner struct {
	jobs      domain.JobRepository
	results   domain.ResultRepository
	events    domain.StreamingEventRepository
	quotas    domain.QuotaRepository
	styles    domain.StyleRepository
	images    domain.ImageRepository
	store     storage.ObjectStore
	client    GenerationClient
	moderator moderation.Moderator
	logger    infra.Logger

	poll       time.Duration
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
	sleep      func(context.Context, time.Duration)
}

// NewRunner assembles a Runner.
func NewRunner(
	jobs domain.JobRepository,
	results domain.ResultRepository,
	events domain.StreamingEventRepository,
	quotas domain.QuotaRepository,
	styles domain.StyleRepository,
	images domain.ImageRepository,
	store storage.ObjectStore,
	client GenerationClient,
	moderator moderation.Moderator,
	logger infra.Logger,
	opts RunnerOptions,
) *Runner {
	if opts.Poll <= 0 {
		opts.Poll = 2 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}
	return &Runner{
		jobs:       jobs,
		results:    results,
		events:     events,
		quotas:     quotas,
		styles:     styles,
		images:     images,
		store:      store,
		client:     client,
		moderator:  moderator,
		logger:     logger,
		poll:       opts.Poll,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Run polls the queue until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info().Msg("worker: started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := r.jobs.ClaimPending(ctx)
		if err != nil {
			if !domain.IsNotFound(err) {
				r.logger.Error().Err(err).Msg("worker: failed to claim job")
			}
			r.sleep(ctx, r.poll)
			continue
		}

		r.ProcessJob(ctx, job)
	}
}

// ProcessJob drives one claimed job to a terminal state. Moderation rejection
// and permanent provider errors fail immediately; transient errors retry with
// backoff up to the retry budget.
func (r *Runner) ProcessJob(ctx context.Context, job *domain.Job) {
	r.logger.Info().Str("job_id", job.ID).Str("kind", string(job.Kind)).Msg("worker: picked job")
	started := r.now()

	if job.Status == domain.JobStatusModerating {
		ok, err := r.moderateSource(ctx, job)
		if err != nil {
			r.failJob(ctx, job, "moderation check failed", err)
			return
		}
		if !ok {
			return
		}
		job.Status = domain.JobStatusProcessing
	}

	for attempt := 0; ; attempt++ {
		outcome, err := r.execute(ctx, job)
		if err == nil {
			r.finalize(ctx, job, outcome, started)
			return
		}

		if !errors.Is(err, domain.ErrTransient) {
			r.failJob(ctx, job, "generation failed", err)
			return
		}

		// The budget caps retries, not attempts: with a budget of 3 the
		// provider is tried 4 times before the job fails.
		if attempt >= r.maxRetries {
			r.failJob(ctx, job, fmt.Sprintf("failed after %d retries", r.maxRetries), err)
			return
		}
		count, rerr := r.jobs.IncrementRetry(ctx, job.ID)
		if rerr != nil {
			r.logger.Error().Err(rerr).Str("job_id", job.ID).Msg("worker: retry bookkeeping failed")
			count = attempt + 1
		}

		r.logger.Warn().Err(err).Str("job_id", job.ID).Int("retry", count).Msg("worker: transient failure, retrying")
		r.sleep(ctx, r.backoff*time.Duration(count))

		if cancelled, cerr := r.isCancelled(ctx, job.ID); cerr == nil && cancelled {
			r.logger.Info().Str("job_id", job.ID).Msg("worker: job cancelled during retry wait")
			return
		}
	}
}

// moderateSource runs the uploaded source image through moderation. Returns
// false when the job was rejected and already marked failed.
func (r *Runner) moderateSource(ctx context.Context, job *domain.Job) (bool, error) {
	if job.SourceImageID == nil {
		return true, nil
	}
	img, err := r.images.GetForUser(ctx, *job.SourceImageID, job.UserID)
	if err != nil {
		return false, err
	}
	data, err := r.store.Read(ctx, img.StorageKey)
	if err != nil {
		return false, err
	}

	decision, err := r.moderator.Moderate(ctx, data, mimeForFormat(img.Format))
	if err != nil {
		return false, err
	}

	details, _ := json.Marshal(decision)
	if err := r.jobs.RecordModeration(ctx, job.ID, decision.Safe, details); err != nil {
		return false, err
	}
	if !decision.Safe {
		r.logger.Info().Str("job_id", job.ID).Msg("worker: source image rejected by moderation")
		if err := r.jobs.MarkFailed(ctx, job.ID, domain.ErrModerationRejected.Error(), details); err != nil {
			r.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: mark failed after moderation")
		}
		return false, nil
	}
	if err := r.jobs.SetStatus(ctx, job.ID, domain.JobStatusProcessing); err != nil {
		return false, err
	}
	return true, nil
}

// execute performs the provider call for the job's kind. The provider is only
// reached here: moderation rejections and validation problems never cost an
// API call.
func (r *Runner) execute(ctx context.Context, job *domain.Job) (*openai.Outcome, error) {
	switch job.Kind {
	case domain.JobKindGeneration:
		if job.Params.Stream {
			return r.executeStreaming(ctx, job, job.Prompt)
		}
		return r.client.Generate(ctx, generateRequest(job, job.Prompt))
	case domain.JobKindEdit:
		return r.executeEdit(ctx, job, job.Prompt, job.Params)
	case domain.JobKindStyleTransfer:
		return r.executeStyleTransfer(ctx, job)
	default:
		return nil, fmt.Errorf("unsupported job kind %q: %w", job.Kind, domain.ErrPermanent)
	}
}

func (r *Runner) executeStyleTransfer(ctx context.Context, job *domain.Job) (*openai.Outcome, error) {
	if job.StyleID == nil {
		return nil, fmt.Errorf("style transfer without style: %w", domain.ErrPermanent)
	}
	style, err := r.styles.GetByID(ctx, *job.StyleID)
	if err != nil {
		return nil, fmt.Errorf("load style: %w", domain.ErrPermanent)
	}
	prompt := style.ExpandPrompt(job.Prompt)
	params := job.Params
	style.FillDefaults(&params)
	return r.executeEdit(ctx, job, prompt, params)
}

func (r *Runner) executeEdit(ctx context.Context, job *domain.Job, prompt string, params domain.GenerationParams) (*openai.Outcome, error) {
	if job.SourceImageID == nil {
		return nil, fmt.Errorf("edit without source image: %w", domain.ErrPermanent)
	}
	img, err := r.images.GetForUser(ctx, *job.SourceImageID, job.UserID)
	if err != nil {
		return nil, fmt.Errorf("load source image: %w", domain.ErrPermanent)
	}
	data, err := r.store.Read(ctx, img.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("read source image: %w", domain.ErrTransient)
	}
	return r.client.Edit(ctx, openai.EditRequest{
		Image: openai.SourceImage{
			Filename: img.OriginalFilename,
			MIME:     mimeForFormat(img.Format),
			Data:     data,
		},
		Prompt:            prompt,
		N:                 params.N,
		Size:              params.Size,
		Quality:           params.Quality,
		InputFidelity:     params.InputFidelity,
		OutputFormat:      params.OutputFormat,
		OutputCompression: params.OutputCompression,
		User:              job.UserID,
	})
}

// executeStreaming flips the job to `streaming` and records every provider
// event as it arrives. Partial payloads stay in the event log; only the final
// outcome becomes a result.
func (r *Runner) executeStreaming(ctx context.Context, job *domain.Job, prompt string) (*openai.Outcome, error) {
	if err := r.jobs.SetStatus(ctx, job.ID, domain.JobStatusStreaming); err != nil {
		return nil, err
	}
	outcome, err := r.client.GenerateStream(ctx, generateRequest(job, prompt), func(ev openai.StreamEvent) error {
		r.recordStreamEvent(ctx, job.ID, ev)
		return nil
	})
	if err != nil {
		r.recordStreamEvent(ctx, job.ID, openai.StreamEvent{Type: openai.StreamError, Err: err})
	}
	return outcome, err
}

func (r *Runner) recordStreamEvent(ctx context.Context, jobID string, ev openai.StreamEvent) {
	event := &domain.StreamingEvent{
		ID:        uuid.NewString(),
		JobID:     jobID,
		EventType: domain.StreamingEventType(ev.Type),
	}
	switch ev.Type {
	case openai.StreamPartialImage:
		idx := ev.PartialIndex
		event.PartialIndex = &idx
		event.Metadata, _ = json.Marshal(map[string]any{
			"created": ev.Created,
			"size":    ev.Size,
			"quality": ev.Quality,
		})
	case openai.StreamError:
		if ev.Err != nil {
			event.Metadata, _ = json.Marshal(map[string]string{"error": ev.Err.Error()})
		}
	}
	if err := r.events.Append(ctx, event); err != nil {
		r.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: record stream event failed")
	}
}

// finalize persists results and completion. A job cancelled while the
// provider call was in flight is honored here: nothing is written, no quota
// is consumed, and the generated bytes are dropped.
func (r *Runner) finalize(ctx context.Context, job *domain.Job, outcome *openai.Outcome, started time.Time) {
	if cancelled, err := r.isCancelled(ctx, job.ID); err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: cancellation check failed")
		return
	} else if cancelled {
		r.logger.Info().Str("job_id", job.ID).Msg("worker: job cancelled mid-flight, dropping results")
		return
	}

	for idx, payload := range outcome.Images {
		key := fmt.Sprintf("results/%s/%s/result-%02d.%s", job.UserID, job.ID, idx+1, extensionFor(outcome.OutputFormat))
		savedKey, err := r.store.Write(ctx, key, payload.Data)
		if err != nil {
			r.failJob(ctx, job, "persist result", fmt.Errorf("%v: %w", err, domain.ErrTransient))
			return
		}
		res := &domain.Result{
			ID:         uuid.NewString(),
			JobID:      job.ID,
			Format:     outcome.OutputFormat,
			Size:       outcome.Size,
			Quality:    outcome.Quality,
			Background: outcome.Background,
			StorageKey: savedKey,
			URL:        r.store.URL(savedKey, 0),
			SizeBytes:  int64(len(payload.Data)),
			TokenUsage: outcome.Usage,
			IsPublic:   job.IsPublic,
		}
		if err := r.results.Create(ctx, res); err != nil {
			r.failJob(ctx, job, "persist result", fmt.Errorf("%v: %w", err, domain.ErrTransient))
			return
		}
	}

	completedAt := r.now()
	processingTime := completedAt.Sub(started).Seconds()
	if err := r.jobs.MarkCompleted(ctx, job.ID, completedAt, processingTime); err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: mark completed failed")
		return
	}
	if err := r.quotas.RecordUsage(ctx, job.UserID, job.Kind); err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: record quota usage failed")
	}
	r.logger.Info().
		Str("job_id", job.ID).
		Int("results", len(outcome.Images)).
		Float64("seconds", processingTime).
		Msg("worker: job completed")
}

func (r *Runner) failJob(ctx context.Context, job *domain.Job, message string, cause error) {
	r.logger.Error().Err(cause).Str("job_id", job.ID).Msg("worker: job failed")
	var details []byte
	if cause != nil {
		details, _ = json.Marshal(map[string]string{"error": cause.Error()})
	}
	if err := r.jobs.MarkFailed(ctx, job.ID, message, details); err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: mark failed failed")
	}
}

func (r *Runner) isCancelled(ctx context.Context, jobID string) (bool, error) {
	status, err := r.jobs.Status(ctx, jobID)
	if err != nil {
		return false, err
	}
	return status == domain.JobStatusCancelled, nil
}

func generateRequest(job *domain.Job, prompt string) openai.GenerateRequest {
	return openai.GenerateRequest{
		Prompt:            prompt,
		N:                 job.Params.N,
		Size:              job.Params.Size,
		Quality:           job.Params.Quality,
		Background:        job.Params.Background,
		OutputFormat:      job.Params.OutputFormat,
		OutputCompression: job.Params.OutputCompression,
		Moderation:        job.Params.Moderation,
		PartialImages:     job.Params.PartialImages,
		User:              job.UserID,
	}
}

func mimeForFormat(format string) string {
	switch format {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

func extensionFor(format string) string {
	switch format {
	case "jpeg":
		return "jpg"
	case "webp":
		return "webp"
	default:
		return "png"
	}
}
