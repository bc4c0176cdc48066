package domain

import "time"

// JobKind enumerates supported processing job categories.
type JobKind string

const (
	JobKindGeneration    JobKind = "generation"
	JobKindEdit          JobKind = "edit"
	JobKindStyleTransfer JobKind = "style_transfer"
)

// Valid reports whether k is a known job kind.
func (k JobKind) Valid() bool {
	switch k {
	case JobKindGeneration, JobKindEdit, JobKindStyleTransfer:
		return true
	}
	return false
}

// RequiresSourceImage reports whether the kind needs an uploaded source image.
func (k JobKind) RequiresSourceImage() bool {
	return k == JobKindEdit || k == JobKindStyleTransfer
}

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusModerating JobStatus = "moderating"
	JobStatusProcessing JobStatus = "processing"
	JobStatusStreaming  JobStatus = "streaming"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle graph permits moving from s
// to next. Terminal states admit nothing; `streaming` is reachable only from
// `processing`; `cancelled` is reachable from any non-terminal state.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case JobStatusModerating, JobStatusProcessing:
		return s == JobStatusPending || (s == JobStatusModerating && next == JobStatusProcessing)
	case JobStatusStreaming:
		return s == JobStatusProcessing
	case JobStatusCompleted:
		return s == JobStatusProcessing || s == JobStatusStreaming
	case JobStatusFailed:
		return true
	case JobStatusCancelled:
		return s != JobStatusStreaming && s != JobStatusCompleted
	}
	return false
}

// Job tracks one request to generate, edit or style-transfer an image.
// Created in `pending` by the submission endpoint and mutated only by the
// worker afterwards. Terminal jobs are reaped by the retention sweep, never
// deleted synchronously.
type Job struct {
	ID                  string
	UserID              string
	Kind                JobKind
	Status              JobStatus
	SourceImageID       *string
	StyleID             *string
	Prompt              string
	Params              GenerationParams
	IsPublic            bool
	ModerationPassed    bool
	ModerationDetails   []byte
	ModerationCheckedAt *time.Time
	StartedAt           *time.Time
	CompletedAt         *time.Time
	ProcessingTime      *float64
	ErrorMessage        string
	ErrorDetails        []byte
	RetryCount          int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewSubmissionErrors validates the kind-level requirements of a submission.
// Parameter-level checks live on GenerationParams.
func NewSubmissionErrors(kind JobKind, prompt string, sourceImageID, styleID *string, maxPromptLen int) []FieldError {
	var errs []FieldError
	if !kind.Valid() {
		errs = append(errs, FieldError{Field: "job_type", Message: "must be one of generation, edit, style_transfer"})
		return errs
	}
	if prompt == "" && kind != JobKindStyleTransfer {
		errs = append(errs, FieldError{Field: "prompt", Message: "prompt is required"})
	}
	if maxPromptLen > 0 && len(prompt) > maxPromptLen {
		errs = append(errs, FieldError{Field: "prompt", Message: "prompt exceeds maximum length"})
	}
	if kind.RequiresSourceImage() && (sourceImageID == nil || *sourceImageID == "") {
		errs = append(errs, FieldError{Field: "original_image_id", Message: "source image is required for " + string(kind)})
	}
	if kind == JobKindStyleTransfer && (styleID == nil || *styleID == "") {
		errs = append(errs, FieldError{Field: "style_id", Message: "style is required for style_transfer"})
	}
	return errs
}
