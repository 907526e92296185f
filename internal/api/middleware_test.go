package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		token      string
		authHeader string
		query      string
		wantStatus int
	}{
		{"no_token_configured_allows_all", "", "", "", http.StatusOK},
		{"missing_header_rejected", "secret", "", "", http.StatusUnauthorized},
		{"wrong_token_rejected", "secret", "Bearer nope", "", http.StatusUnauthorized},
		{"correct_header_accepted", "secret", "Bearer secret", "", http.StatusOK},
		{"query_param_accepted", "secret", "", "?token=secret", http.StatusOK},
		{"malformed_header_rejected", "secret", "secret", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := BearerAuth(tt.token)(ok)

			req := httptest.NewRequest("GET", "/api/v1/notes"+tt.query, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	t.Run("generates_id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("no X-Request-ID generated")
		}
	})

	t.Run("preserves_existing_id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Request-ID", "abc123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if got := rec.Header().Get("X-Request-ID"); got != "abc123" {
			t.Errorf("X-Request-ID = %q, want abc123", got)
		}
	})
}
