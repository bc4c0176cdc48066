package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectLocale(t *testing.T) {
	tests := []struct {
		name           string
		xLocale        string
		acceptLanguage string
		want           string
	}{
		{"x-locale spanish", "es", "", "es"},
		{"x-locale regional spanish", "es-MX", "en", "es"},
		{"x-locale unknown falls back to english", "fr", "", "en"},
		{"accept-language spanish", "", "es-ES,es;q=0.9", "es"},
		{"accept-language english", "", "en-US,en;q=0.9", "en"},
		{"accept-language other language", "", "de-DE,de;q=0.9", "en"},
		{"no headers", "", "", "en"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.xLocale != "" {
				req.Header.Set("X-Locale", tc.xLocale)
			}
			if tc.acceptLanguage != "" {
				req.Header.Set("Accept-Language", tc.acceptLanguage)
			}
			if got := detectLocale(req, "en"); got != tc.want {
				t.Fatalf("locale = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestI18NMiddlewareSetsContext(t *testing.T) {
	var got string
	handler := I18N("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Locale", "es")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "es" {
		t.Fatalf("locale = %q, want es", got)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"forwarded header wins", "10.0.0.1:1234", "203.0.113.7, 10.0.0.1", "203.0.113.7"},
		{"remote addr", "192.0.2.4:5678", "", "192.0.2.4"},
		{"remote addr without port", "192.0.2.4", "", "192.0.2.4"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := ClientIP(req); got != tc.want {
				t.Fatalf("ip = %q, want %q", got, tc.want)
			}
		})
	}
}
