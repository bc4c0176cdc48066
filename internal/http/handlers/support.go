package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jaume768/splashmy/internal/domain"
	"github.com/jaume768/splashmy/internal/email"
	"github.com/jaume768/splashmy/internal/middleware"
)

const (
	contactNameMax    = 120
	contactMessageMin = 10
	contactMessageMax = 4000
)

var contactSubjects = map[string]bool{
	"soporte":     true,
	"facturacion": true,
	"sugerencias": true,
	"otros":       true,
}

type contactRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	SpamTrap string `json:"spam_trap"`
}

// Contact forwards a support request to the team inbox. The spam_trap field
// is a honeypot: bots that fill it get the same success response, but nothing
// is sent. Delivery failures are also swallowed so the endpoint never leaks
// provider state.
func (a *App) Contact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Subject = strings.TrimSpace(req.Subject)
	if req.Subject == "" {
		req.Subject = "soporte"
	}

	var fields []domain.FieldError
	if req.Name == "" || len(req.Name) > contactNameMax {
		fields = append(fields, domain.FieldError{Field: "name", Message: "name is required and must be at most 120 characters"})
	}
	if !strings.Contains(req.Email, "@") {
		fields = append(fields, domain.FieldError{Field: "email", Message: "invalid email address"})
	}
	if !contactSubjects[req.Subject] {
		fields = append(fields, domain.FieldError{Field: "subject", Message: "unknown subject"})
	}
	if n := len(req.Message); n < contactMessageMin || n > contactMessageMax {
		fields = append(fields, domain.FieldError{Field: "message", Message: "message must be between 10 and 4000 characters"})
	}
	if len(fields) > 0 {
		a.writeErr(w, &domain.ValidationError{Fields: fields})
		return
	}

	if req.SpamTrap == "" {
		msg := email.ContactMessage{
			Name:      req.Name,
			Email:     req.Email,
			Subject:   req.Subject,
			Message:   req.Message,
			IP:        middleware.ClientIP(r),
			UserAgent: r.UserAgent(),
		}
		if err := a.Mailer.SendContactMessage(r.Context(), msg); err != nil {
			a.Logger.Error().Err(err).Msg("http: contact email dispatch failed")
		}
	}
	a.json(w, http.StatusOK, map[string]any{"message": "message received, we will get back to you soon"})
}
