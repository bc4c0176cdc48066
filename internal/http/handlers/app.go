package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jaume768/splashmy/internal/domain"
	"github.com/jaume768/splashmy/internal/email"
	"github.com/jaume768/splashmy/internal/infra"
	"github.com/jaume768/splashmy/internal/middleware"
	"github.com/jaume768/splashmy/internal/service"
	"github.com/jaume768/splashmy/internal/storage"
)

// App carries every dependency the HTTP handlers need.
type App struct {
	Auth    *service.AuthService
	Jobs    *service.JobService
	Uploads *service.UploadService

	JobRepo    domain.JobRepository
	ResultRepo domain.ResultRepository
	EventRepo  domain.StreamingEventRepository
	ImageRepo  domain.ImageRepository
	StyleRepo  domain.StyleRepository
	QuotaRepo  domain.QuotaRepository
	UserRepo   domain.UserRepository

	Store      storage.ObjectStore
	Mailer     email.Sender
	JWTSecret  string
	JWTTTL     time.Duration
	DailyLimit int
	Logger     infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, map[string]any{
		"error":   slug,
		"message": message,
	})
}

// writeErr maps domain errors onto HTTP status codes.
func (a *App) writeErr(w http.ResponseWriter, err error) {
	if ve, ok := domain.AsValidationError(err); ok {
		a.json(w, http.StatusBadRequest, map[string]any{
			"error":   "validation_failed",
			"message": "one or more fields are invalid",
			"fields":  ve.Fields,
		})
		return
	}
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		a.error(w, http.StatusConflict, "email_taken", "email already registered")
	case errors.Is(err, service.ErrResendCooldown):
		a.error(w, http.StatusTooManyRequests, "cooldown", "please wait before requesting another code")
	case errors.Is(err, service.ErrCodeExpired):
		a.error(w, http.StatusUnauthorized, "code_expired", "code expired, request a new one")
	case errors.Is(err, service.ErrCodeMismatch):
		a.error(w, http.StatusUnauthorized, "code_mismatch", "incorrect code")
	case errors.Is(err, service.ErrEmailNotVerified):
		a.error(w, http.StatusUnauthorized, "email_not_verified", "verify your email before logging in")
	case domain.IsNotFound(err):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrQuotaExceeded):
		a.error(w, http.StatusTooManyRequests, "quota_exceeded", "daily processing limit reached")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
	case errors.Is(err, domain.ErrInvalidTransition):
		a.error(w, http.StatusConflict, "invalid_state", "job can no longer be cancelled")
	case errors.Is(err, domain.ErrModerationRejected):
		a.error(w, http.StatusBadRequest, "moderation_rejected", "content rejected by moderation")
	default:
		a.Logger.Error().Err(err).Msg("http: internal error")
		a.error(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
