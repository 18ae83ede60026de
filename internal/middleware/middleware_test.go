package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-chatstats/internal/auth"
	"github.com/iyunix/go-chatstats/internal/ratelimit"
	"github.com/iyunix/go-chatstats/internal/services"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(Subject(r.Context()) + "|" + RequestID(r.Context())))
})

func TestLoggingMiddleware_IssuesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := services.NewWriterLogger(&buf, "test", services.LogLevelInfo, true)

	rec := httptest.NewRecorder()
	LoggingMiddleware(logger)(okHandler).ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	id := rec.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, "|"+id, rec.Body.String())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	fields := entry["fields"].(map[string]interface{})
	assert.Equal(t, float64(http.StatusAccepted), fields["status"])
	assert.Equal(t, id, fields["request_id"])
}

func TestLoggingMiddleware_KeepsClientRequestID(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")

	rec := httptest.NewRecorder()
	LoggingMiddleware(&services.NoOpLogger{})(okHandler).ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRecoverPanic(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	RecoverPanic(panicky).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestBearerAuth(t *testing.T) {
	secret := []byte("s3cret")
	token, err := auth.GenerateServiceToken("importer", time.Hour, secret)
	require.NoError(t, err)
	handler := NewBearerAuthMiddleware(secret)(okHandler)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/messages", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusAccepted {
				assert.Equal(t, "importer|", rec.Body.String())
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter, err := ratelimit.NewMemoryRateLimiter(ratelimit.IngestConfig(2))
	require.NoError(t, err)
	t.Cleanup(limiter.Stop)
	handler := RateLimitMiddleware(limiter, "ingest", false)(okHandler)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/messages", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	assert.Equal(t, http.StatusAccepted, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusAccepted, send().Code)

	blocked := send()
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
	assert.Contains(t, blocked.Body.String(), "too many requests")
}

func TestRateLimitMiddleware_ForwardedHeadersDoNotSplitClients(t *testing.T) {
	limiter, err := ratelimit.NewMemoryRateLimiter(ratelimit.IngestConfig(2))
	require.NoError(t, err)
	t.Cleanup(limiter.Stop)
	handler := RateLimitMiddleware(limiter, "ingest", false)(okHandler)

	accepted := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest("POST", "/api/messages", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.0.1.%d", i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusAccepted {
			accepted++
		}
	}
	assert.Equal(t, 2, accepted)
}

func TestRateLimitMiddleware_TrustedProxyKeysOnForwardedFor(t *testing.T) {
	limiter, err := ratelimit.NewMemoryRateLimiter(ratelimit.IngestConfig(1))
	require.NoError(t, err)
	t.Cleanup(limiter.Stop)
	handler := RateLimitMiddleware(limiter, "ingest", true)(okHandler)

	send := func(client string) int {
		req := httptest.NewRequest("POST", "/api/messages", nil)
		req.RemoteAddr = "10.1.1.1:4000"
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusAccepted, send("198.51.100.1"))
	assert.Equal(t, http.StatusAccepted, send("198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.1"))
}
