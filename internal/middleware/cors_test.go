package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serve(allowed []string, method, origin string) *httptest.ResponseRecorder {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	req := httptest.NewRequest(method, "/api/personas", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	CORS(allowed)(next).ServeHTTP(rec, req)
	return rec
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		wantStatus  int
		wantOrigin  string
		wantCredits bool
	}{
		{"listed origin", []string{"http://localhost:3000"}, http.MethodGet, "http://localhost:3000", http.StatusTeapot, "http://localhost:3000", true},
		{"unlisted origin", []string{"http://localhost:3000"}, http.MethodGet, "http://evil.test", http.StatusTeapot, "", false},
		{"wildcard", []string{"*"}, http.MethodGet, "http://any.test", http.StatusTeapot, "http://any.test", false},
		{"no origin", []string{"*"}, http.MethodGet, "", http.StatusTeapot, "", false},
		{"preflight", []string{"http://localhost:3000"}, http.MethodOptions, "http://localhost:3000", http.StatusNoContent, "http://localhost:3000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(tt.allowed, tt.method, tt.origin)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCredits, rec.Header().Get("Access-Control-Allow-Credentials") == "true")
		})
	}
}
