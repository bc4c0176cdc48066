package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDEchoedAndInContext(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name     string
		incoming string
		wantEcho bool
	}{
		{"generated when absent", "", false},
		{"client id honored", "req-abc-123", true},
		{"oversized id replaced", strings.Repeat("x", maxRequestIDLen+1), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.incoming != "" {
				req.Header.Set("X-Request-ID", tc.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			got := rec.Header().Get("X-Request-ID")
			if got == "" {
				t.Fatalf("response missing X-Request-ID")
			}
			if tc.wantEcho && got != tc.incoming {
				t.Fatalf("echoed id = %q, want %q", got, tc.incoming)
			}
			if !tc.wantEcho && got == tc.incoming {
				t.Fatalf("id %q should have been replaced", tc.incoming)
			}
			if seen != got {
				t.Fatalf("context id = %q, header id = %q", seen, got)
			}
		})
	}
}

func TestRequestIDFromContextMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := RequestIDFromContext(req.Context()); got != "" {
		t.Fatalf("id without middleware = %q, want empty", got)
	}
}
