package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.brevo.com/v3"
	defaultTimeout = 15 * time.Second
)

// BrevoOptions configures the Brevo transactional email client.
type BrevoOptions struct {
	APIKey       string
	BaseURL      string
	FromName     string
	FromAddress  string
	SupportInbox string
	HTTPClient   *http.Client
}

// BrevoSender sends transactional email through the Brevo SMTP API.
type BrevoSender struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	fromName     string
	fromAddress  string
	supportInbox string
}

// NewBrevoSender builds a sender from the given options.
func NewBrevoSender(opts BrevoOptions) *BrevoSender {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	inbox := strings.TrimSpace(opts.SupportInbox)
	if inbox == "" {
		inbox = opts.FromAddress
	}
	return &BrevoSender{
		httpClient:   client,
		baseURL:      base,
		apiKey:       strings.TrimSpace(opts.APIKey),
		fromName:     opts.FromName,
		fromAddress:  opts.FromAddress,
		supportInbox: inbox,
	}
}

type brevoParty struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoMessage struct {
	Sender      brevoParty   `json:"sender"`
	To          []brevoParty `json:"to"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent"`
}

func (s *BrevoSender) SendVerificationCode(ctx context.Context, to, name, code, locale string) error {
	subject, body := verificationTemplate(locale, name, code)
	return s.send(ctx, to, name, subject, body)
}

func (s *BrevoSender) SendPasswordReset(ctx context.Context, to, name, code, locale string) error {
	subject, body := passwordResetTemplate(locale, name, code)
	return s.send(ctx, to, name, subject, body)
}

func (s *BrevoSender) SendContactMessage(ctx context.Context, msg ContactMessage) error {
	subject, body := contactTemplate(msg)
	return s.send(ctx, s.supportInbox, "Support", subject, body)
}

func (s *BrevoSender) send(ctx context.Context, to, name, subject, html string) error {
	if s.apiKey == "" {
		return fmt.Errorf("email: brevo api key is missing")
	}
	payload, err := json.Marshal(brevoMessage{
		Sender:      brevoParty{Name: s.fromName, Email: s.fromAddress},
		To:          []brevoParty{{Name: name, Email: to}},
		Subject:     subject,
		HTMLContent: html,
	})
	if err != nil {
		return fmt.Errorf("email: encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/smtp/email", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}
	req.Header.Set("api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email: brevo http %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

var _ Sender = (*BrevoSender)(nil)
