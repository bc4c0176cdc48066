package domain

import (
	"context"
	"time"
)

// UserRepository defines access methods for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	MarkEmailVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetPremium(ctx context.Context, id string, premium bool) error
}

// VerificationRepository persists email verification and password reset codes.
type VerificationRepository interface {
	ReplaceVerification(ctx context.Context, v *EmailVerification) error
	LatestVerification(ctx context.Context, userID string) (*EmailVerification, error)
	IncrementVerificationAttempts(ctx context.Context, id string) error
	DeleteVerifications(ctx context.Context, userID string) error
	ReplaceReset(ctx context.Context, r *PasswordReset) error
	LatestReset(ctx context.Context, userID string) (*PasswordReset, error)
	IncrementResetAttempts(ctx context.Context, id string) error
	MarkResetUsed(ctx context.Context, id string) error
}

// ImageRepository persists uploaded source images.
type ImageRepository interface {
	Create(ctx context.Context, img *Image) error
	GetForUser(ctx context.Context, id, userID string) (*Image, error)
	ListByUser(ctx context.Context, userID string) ([]Image, error)
	Delete(ctx context.Context, id, userID string) error
}

// StyleRepository reads the style catalog.
type StyleRepository interface {
	ListCategories(ctx context.Context) ([]StyleCategory, error)
	ListActive(ctx context.Context, categorySlug string) ([]Style, error)
	ListPopular(ctx context.Context, limit int) ([]Style, error)
	GetByID(ctx context.Context, id string) (*Style, error)
}

// JobRepository defines persistence for processing jobs, including the worker
// claim queue.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, id string) (*Job, error)
	GetForUser(ctx context.Context, id, userID string) (*Job, error)
	List(ctx context.Context, userID string, status JobStatus, kind JobKind, limit int) ([]Job, error)

	// ClaimPending atomically claims the oldest pending job: jobs with a
	// source image move to `moderating`, the rest straight to `processing`,
	// with started_at stamped. Returns ErrNotFound when the queue is empty.
	ClaimPending(ctx context.Context) (*Job, error)

	SetStatus(ctx context.Context, id string, status JobStatus) error
	Status(ctx context.Context, id string) (JobStatus, error)
	RecordModeration(ctx context.Context, id string, passed bool, details []byte) error
	MarkCompleted(ctx context.Context, id string, completedAt time.Time, processingTime float64) error
	MarkFailed(ctx context.Context, id, message string, details []byte) error
	IncrementRetry(ctx context.Context, id string) (int, error)

	// Cancel flips a non-terminal job owned by userID to `cancelled`.
	// Returns ErrInvalidTransition when the job is already terminal.
	Cancel(ctx context.Context, id, userID string) error

	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]Job, error)
	Delete(ctx context.Context, id string) error
	StatsForUser(ctx context.Context, userID string) (*ProcessingStats, error)
}

// ResultRepository persists generated results and their interaction fields.
type ResultRepository interface {
	Create(ctx context.Context, res *Result) error
	GetForUser(ctx context.Context, id, userID string) (*Result, error)
	ListByJob(ctx context.Context, jobID string) ([]Result, error)
	ListByUser(ctx context.Context, userID string, favoritesOnly bool, limit int) ([]Result, error)
	SetFavorite(ctx context.Context, id string, favorite bool) error
	SetRating(ctx context.Context, id string, rating int) error
	IncrementDownloads(ctx context.Context, id string) error
	Delete(ctx context.Context, id, userID string) error
}

// QuotaRepository mediates all quota ledger access. Implementations must make
// the read-reset-check-increment cycle race-safe per user (row-level lock or
// equivalent), since concurrent submissions race on the same ledger.
type QuotaRepository interface {
	// Get returns the user's ledger with the lazy daily reset applied,
	// creating an empty ledger on first access.
	Get(ctx context.Context, userID string) (*QuotaLedger, error)

	// CanSubmit applies the lazy reset and compares the kind's daily counter
	// against dailyLimit. Premium users always pass.
	CanSubmit(ctx context.Context, userID string, kind JobKind, premium bool, dailyLimit int) (bool, error)

	// RecordUsage applies the lazy reset and increments the kind's daily and
	// lifetime counters.
	RecordUsage(ctx context.Context, userID string, kind JobKind) error
}

// StreamingEventRepository appends and reads per-job streaming events.
type StreamingEventRepository interface {
	Append(ctx context.Context, ev *StreamingEvent) error
	ListByJob(ctx context.Context, jobID string) ([]StreamingEvent, error)
	DeleteByJob(ctx context.Context, jobID string) error
}

// ProcessingStats aggregates a user's job history for the stats endpoint.
type ProcessingStats struct {
	TotalJobs           int
	CompletedJobs       int
	FailedJobs          int
	PendingJobs         int
	TotalGenerations    int
	TotalEdits          int
	TotalStyleTransfers int
	AvgProcessingTime   float64
}
