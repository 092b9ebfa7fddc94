package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		path   string
		header string
		want   int
	}{
		{"no keys passes through", nil, "/sessions", "", http.StatusOK},
		{"empty string keys pass through", []string{"", ""}, "/sessions", "", http.StatusOK},
		{"missing header", []string{"secret"}, "/sessions", "", http.StatusUnauthorized},
		{"basic scheme", []string{"secret"}, "/sessions", "Basic c2VjcmV0", http.StatusUnauthorized},
		{"invalid token", []string{"secret"}, "/sessions", "Bearer wrong", http.StatusUnauthorized},
		{"valid token", []string{"secret"}, "/sessions", "Bearer secret", http.StatusOK},
		{"second key", []string{"a", "b"}, "/sessions", "Bearer b", http.StatusOK},
		{"health exempt", []string{"secret"}, "/health", "", http.StatusOK},
		{"metrics exempt", []string{"secret"}, "/metrics", "", http.StatusOK},
		{"events query token", []string{"secret"}, "/sessions/x/events?access_token=secret", "", http.StatusOK},
		{"query token only for events", []string{"secret"}, "/sessions/x?access_token=secret", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := BearerAuthMiddleware(tt.keys)(okHandler())
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("got %d, want %d", rr.Code, tt.want)
			}
			if rr.Code == http.StatusUnauthorized {
				var resp ErrorResponse
				if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
					t.Fatalf("decode error response: %v", err)
				}
				if resp.Code != CodeUnauthorized {
					t.Errorf("code = %s", resp.Code)
				}
			}
		})
	}
}
