// internal/api/middleware/auth_test.go
package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/quantlab/internal/api/response"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		headers    map[string]string
		want       int
	}{
		{"valid header", "secret-key", map[string]string{"X-API-Key": "secret-key"}, http.StatusOK},
		{"valid bearer", "secret-key", map[string]string{"Authorization": "Bearer secret-key"}, http.StatusOK},
		{"bearer case-insensitive", "secret-key", map[string]string{"Authorization": "bearer secret-key"}, http.StatusOK},
		{"header wins over bearer", "secret-key", map[string]string{
			"X-API-Key":     "wrong-key",
			"Authorization": "Bearer secret-key",
		}, http.StatusUnauthorized},
		{"missing", "secret-key", nil, http.StatusUnauthorized},
		{"wrong key", "secret-key", map[string]string{"X-API-Key": "wrong-key"}, http.StatusUnauthorized},
		{"basic scheme", "secret-key", map[string]string{"Authorization": "Basic secret-key"}, http.StatusUnauthorized},
		{"empty bearer", "secret-key", map[string]string{"Authorization": "Bearer "}, http.StatusUnauthorized},
		{"disabled", "", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			wrapped := APIKeyAuth(tt.configured)(okHandler(&called))

			req := httptest.NewRequest("GET", "/api/v1/test", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			wrapped.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
			if called != (tt.want == http.StatusOK) {
				t.Errorf("handler called = %v with status %d", called, w.Code)
			}
		})
	}
}

func TestAPIKeyAuth_ErrorCode(t *testing.T) {
	called := false
	wrapped := APIKeyAuth("secret-key")(okHandler(&called))

	for _, key := range []string{"", "wrong-key"} {
		req := httptest.NewRequest("GET", "/api/v1/test", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		var resp response.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Error.Code != "UNAUTHORIZED" {
			t.Errorf("key %q: expected UNAUTHORIZED, got %s", key, resp.Error.Code)
		}
	}
	if called {
		t.Error("handler must not run without a valid key")
	}
}
