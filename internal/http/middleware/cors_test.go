package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(t *testing.T, allowed []string, method, origin string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	handler := CORS(allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(method, "/api/appointments", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if method == http.MethodOptions {
		req.Header.Set("Access-Control-Request-Method", "POST")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, called
}

func TestCORSOrigins(t *testing.T) {
	cases := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{"listed origin", []string{"https://desk.example.com"}, "https://desk.example.com", "https://desk.example.com"},
		{"unknown origin", []string{"https://desk.example.com"}, "https://evil.example", ""},
		{"wildcard", []string{"*"}, "https://anything.example", "https://anything.example"},
		{"subdomain pattern", []string{"https://*.example.com"}, "https://kiosk.example.com", "https://kiosk.example.com"},
		{"subdomain pattern wrong scheme", []string{"https://*.example.com"}, "http://kiosk.example.com", ""},
		{"subdomain pattern bare domain", []string{"https://*.example.com"}, "https://.example.com", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, called := corsRequest(t, tc.allowed, http.MethodGet, tc.origin)
			assert.True(t, called)
			assert.Equal(t, tc.want, rec.Header().Get("Access-Control-Allow-Origin"))
			if tc.want != "" {
				assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
				assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
			}
		})
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	rec, called := corsRequest(t, []string{"https://desk.example.com"}, http.MethodOptions, "https://desk.example.com")
	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
