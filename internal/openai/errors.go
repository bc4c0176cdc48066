package openai

import (
	"fmt"
	"net/http"

	"github.com/jaume768/splashmy/internal/domain"
)

// APIError is a non-2xx response from the image API. Rate limits and server
// errors are retryable; everything else (bad prompt, policy rejection,
// malformed parameters) is terminal.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("openai: %s (%s, http %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("openai: %s (http %d)", e.Message, e.Status)
}

// Unwrap classifies the error for the worker's retry loop: errors.Is against
// domain.ErrTransient or domain.ErrPermanent selects the retry policy.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusTooManyRequests || e.Status >= 500 {
		return domain.ErrTransient
	}
	return domain.ErrPermanent
}
