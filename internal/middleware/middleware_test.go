package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(method, origin string) *http.Request {
	req := httptest.NewRequest(method, "http://127.0.0.1:8080/api/history", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestCORSPreflightFromAllowedOrigin(t *testing.T) {
	called := false
	h := CORS([]string{"http://localhost:5173"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, corsRequest(http.MethodOptions, "http://localhost:5173"))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, called)
}

func TestCORSRefusesForeignOrigin(t *testing.T) {
	called := false
	h := CORS(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, corsRequest(method, "https://evil.example"))

		assert.Equal(t, http.StatusForbidden, rec.Code, method)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), method)
	}
	assert.False(t, called)
}

func TestCORSSameOriginAndNoOrigin(t *testing.T) {
	h := CORS(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, corsRequest(http.MethodPost, "http://127.0.0.1:8080"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, corsRequest(http.MethodGet, ""))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOriginAllowed(t *testing.T) {
	req := corsRequest(http.MethodGet, "http://127.0.0.1:8080.evil.example")
	assert.False(t, OriginAllowed(req, nil))

	req = corsRequest(http.MethodGet, "://bad")
	assert.False(t, OriginAllowed(req, nil))
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}
