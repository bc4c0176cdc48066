package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBrevoSenderSendsVerification(t *testing.T) {
	var gotKey string
	var gotMsg brevoMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/smtp/email" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotKey = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotMsg); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sender := NewBrevoSender(BrevoOptions{
		APIKey:      "xkeysib-test",
		BaseURL:     srv.URL,
		FromName:    "SplashMy",
		FromAddress: "no-reply@splashmy.app",
	})

	if err := sender.SendVerificationCode(context.Background(), "ana@example.com", "Ana", "123456", "en"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotKey != "xkeysib-test" {
		t.Fatalf("api-key header = %q", gotKey)
	}
	if gotMsg.Sender.Email != "no-reply@splashmy.app" || gotMsg.Sender.Name != "SplashMy" {
		t.Fatalf("sender = %+v", gotMsg.Sender)
	}
	if len(gotMsg.To) != 1 || gotMsg.To[0].Email != "ana@example.com" {
		t.Fatalf("to = %+v", gotMsg.To)
	}
	if !strings.Contains(gotMsg.HTMLContent, "123456") {
		t.Fatalf("code missing from body")
	}
}

func TestBrevoSenderContactGoesToSupportInbox(t *testing.T) {
	var gotMsg brevoMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotMsg); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sender := NewBrevoSender(BrevoOptions{
		APIKey:       "k",
		BaseURL:      srv.URL,
		FromAddress:  "no-reply@splashmy.app",
		SupportInbox: "soporte@splashmy.app",
	})

	err := sender.SendContactMessage(context.Background(), ContactMessage{
		Name:    "Ana",
		Email:   "ana@example.com",
		Subject: "facturacion",
		Message: "First line\nSecond line",
		IP:      "203.0.113.1",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(gotMsg.To) != 1 || gotMsg.To[0].Email != "soporte@splashmy.app" {
		t.Fatalf("to = %+v, want support inbox", gotMsg.To)
	}
	if !strings.Contains(gotMsg.Subject, "Facturación") {
		t.Fatalf("subject = %q", gotMsg.Subject)
	}
	if !strings.Contains(gotMsg.HTMLContent, "First line<br/>Second line") {
		t.Fatalf("message body not carried: %q", gotMsg.HTMLContent)
	}
	if !strings.Contains(gotMsg.HTMLContent, "203.0.113.1") {
		t.Fatalf("request metadata missing from body")
	}
}

func TestBrevoSenderLocalizedTemplates(t *testing.T) {
	var subjects []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg brevoMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("decode: %v", err)
		}
		subjects = append(subjects, msg.Subject)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sender := NewBrevoSender(BrevoOptions{APIKey: "k", BaseURL: srv.URL, FromAddress: "no-reply@splashmy.app"})
	ctx := context.Background()

	if err := sender.SendPasswordReset(ctx, "ana@example.com", "Ana", "654321", "en"); err != nil {
		t.Fatalf("send en: %v", err)
	}
	if err := sender.SendPasswordReset(ctx, "ana@example.com", "Ana", "654321", "es"); err != nil {
		t.Fatalf("send es: %v", err)
	}
	if len(subjects) != 2 || subjects[0] == subjects[1] {
		t.Fatalf("subjects not localized: %v", subjects)
	}
}

func TestBrevoSenderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"unauthorized","message":"bad key"}`))
	}))
	defer srv.Close()

	sender := NewBrevoSender(BrevoOptions{APIKey: "wrong", BaseURL: srv.URL, FromAddress: "x@x"})
	err := sender.SendVerificationCode(context.Background(), "ana@example.com", "Ana", "123456", "en")
	if err == nil {
		t.Fatalf("send succeeded on 401")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("error = %v", err)
	}
}

func TestBrevoSenderMissingKey(t *testing.T) {
	sender := NewBrevoSender(BrevoOptions{FromAddress: "x@x"})
	if err := sender.SendVerificationCode(context.Background(), "a@b", "A", "123456", "en"); err == nil {
		t.Fatalf("send succeeded without an api key")
	}
}
