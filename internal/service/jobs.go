package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/jaume768/splashmy/internal/domain"
	"github.com/jaume768/splashmy/internal/infra"
)

// defaultMaxPromptLength caps prompts for jobs that carry no style. Styles
// may override it per catalog entry.
const defaultMaxPromptLength = 2000

// SubmitInput is one job submission, already decoded from the transport.
type SubmitInput struct {
	Kind          domain.JobKind
	Prompt        string
	SourceImageID *string
	StyleID       *string
	Params        domain.GenerationParams
	IsPublic      bool
}

// JobService validates submissions against the catalog and quota ledger and
// enqueues jobs for the worker.
type JobService struct {
	jobs       domain.JobRepository
	quotas     domain.QuotaRepository
	styles     domain.StyleRepository
	images     domain.ImageRepository
	users      domain.UserRepository
	dailyLimit int
	logger     infra.Logger
}

// NewJobService assembles a JobService.
func NewJobService(
	jobs domain.JobRepository,
	quotas domain.QuotaRepository,
	styles domain.StyleRepository,
	images domain.ImageRepository,
	users domain.UserRepository,
	dailyLimit int,
	logger infra.Logger,
) *JobService {
	if dailyLimit <= 0 {
		dailyLimit = domain.FreeDailyLimit
	}
	return &JobService{
		jobs:       jobs,
		quotas:     quotas,
		styles:     styles,
		images:     images,
		users:      users,
		dailyLimit: dailyLimit,
		logger:     logger,
	}
}

// Submit validates the input, checks quota and creates the job in `pending`.
// Validation problems come back as *domain.ValidationError with every failing
// field listed; quota exhaustion as domain.ErrQuotaExceeded. Nothing is
// persisted unless every check passes.
func (s *JobService) Submit(ctx context.Context, userID string, in SubmitInput) (*domain.Job, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var style *domain.Style
	maxPromptLen := defaultMaxPromptLength
	fields := domain.NewSubmissionErrors(in.Kind, in.Prompt, in.SourceImageID, in.StyleID, 0)

	if in.Kind == domain.JobKindStyleTransfer && in.StyleID != nil && *in.StyleID != "" {
		style, err = s.styles.GetByID(ctx, *in.StyleID)
		if err != nil {
			if !domain.IsNotFound(err) {
				return nil, err
			}
			fields = append(fields, domain.FieldError{Field: "style_id", Message: "unknown style"})
		} else {
			switch {
			case !style.IsActive:
				fields = append(fields, domain.FieldError{Field: "style_id", Message: "style is not available"})
			case style.IsPremium && !user.IsPremium:
				fields = append(fields, domain.FieldError{Field: "style_id", Message: "style requires a premium account"})
			}
			if style.MaxPromptLength > 0 {
				maxPromptLen = style.MaxPromptLength
			}
			if in.Params.Stream && !style.SupportsStreaming {
				fields = append(fields, domain.FieldError{Field: "stream", Message: "style does not support streaming"})
			}
			if in.Params.Background == "transparent" && !style.SupportsTransparency {
				fields = append(fields, domain.FieldError{Field: "background", Message: "style does not support transparent backgrounds"})
			}
			// Style defaults go in before normalization so an output format
			// the caller left blank picks up the curated one, not "png".
			style.FillDefaults(&in.Params)
		}
	}

	in.Params.Normalize()

	if len(in.Prompt) > maxPromptLen {
		fields = append(fields, domain.FieldError{Field: "prompt", Message: "prompt exceeds maximum length"})
	}
	fields = append(fields, in.Params.Validate()...)

	if in.Kind.RequiresSourceImage() && in.SourceImageID != nil && *in.SourceImageID != "" {
		if _, err := s.images.GetForUser(ctx, *in.SourceImageID, userID); err != nil {
			if !domain.IsNotFound(err) {
				return nil, err
			}
			fields = append(fields, domain.FieldError{Field: "original_image_id", Message: "unknown image"})
		}
	}

	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}

	allowed, err := s.quotas.CanSubmit(ctx, userID, in.Kind, user.IsPremium, s.dailyLimit)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, domain.ErrQuotaExceeded
	}

	job := &domain.Job{
		ID:            uuid.NewString(),
		UserID:        userID,
		Kind:          in.Kind,
		Status:        domain.JobStatusPending,
		SourceImageID: in.SourceImageID,
		StyleID:       in.StyleID,
		Prompt:        in.Prompt,
		Params:        in.Params,
		IsPublic:      in.IsPublic,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Info().Str("job_id", job.ID).Str("kind", string(job.Kind)).Msg("job: submitted")
	return job, nil
}

// Cancel flips a queued or in-flight job to `cancelled`. Jobs already past
// the point of no return (streaming or terminal) yield ErrInvalidTransition.
func (s *JobService) Cancel(ctx context.Context, id, userID string) error {
	if err := s.jobs.Cancel(ctx, id, userID); err != nil {
		return err
	}
	s.logger.Info().Str("job_id", id).Msg("job: cancelled")
	return nil
}
