package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestSignAndVerifyJWT(t *testing.T) {
	token, err := SignJWT(testSecret, "user-1", true, "es", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := VerifyJWT(testSecret, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if !claims.Premium || claims.Locale != "es" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestVerifyJWTRejections(t *testing.T) {
	expired, err := SignJWT(testSecret, "user-1", false, "", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	valid, err := SignJWT(testSecret, "user-1", false, "", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{"expired token", testSecret, expired},
		{"wrong secret", "other-secret", valid},
		{"garbage token", testSecret, "not.a.token"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := VerifyJWT(tc.secret, tc.token); err == nil {
				t.Fatalf("verify accepted %s", tc.name)
			}
		})
	}
}

func TestAuthJWTMiddleware(t *testing.T) {
	var gotUserID, gotLocale string
	handler := AuthJWT(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		gotLocale = LocaleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	token, err := SignJWT(testSecret, "user-1", false, "es", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid bearer", "Bearer " + token, http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gotUserID, gotLocale = "", ""
			req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if tc.wantStatus == http.StatusNoContent {
				if gotUserID != "user-1" {
					t.Fatalf("user id = %q", gotUserID)
				}
				if gotLocale != "es" {
					t.Fatalf("locale = %q", gotLocale)
				}
			}
		})
	}
}
