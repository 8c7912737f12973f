package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-dealdesk/internal/common"
)

type stubLimiter struct {
	allowed   bool
	remaining int64
	err       error
}

func (s stubLimiter) Allow(context.Context, string) (bool, int64, int64, time.Time, error) {
	return s.allowed, 5, s.remaining, time.Now().Add(time.Minute), s.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareAllowsWithinLimit(t *testing.T) {
	h := Handler{Limiter: stubLimiter{allowed: true, remaining: 4}, Key: common.ClientIP}

	req := httptest.NewRequest(http.MethodPost, "/facts", nil)
	rec := httptest.NewRecorder()
	h.Middleware(okHandler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestMiddlewareThrottles(t *testing.T) {
	h := Handler{Limiter: stubLimiter{allowed: false}, Key: common.ClientIP}

	req := httptest.NewRequest(http.MethodPost, "/facts", nil)
	rec := httptest.NewRecorder()
	h.Middleware(okHandler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestMiddlewareFailsOpen(t *testing.T) {
	var observed error
	h := Handler{
		Limiter: stubLimiter{err: errors.New("redis down")},
		Key:     common.ClientIP,
		OnError: func(err error) { observed = err },
	}

	req := httptest.NewRequest(http.MethodPost, "/facts", nil)
	rec := httptest.NewRecorder()
	h.Middleware(okHandler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Error(t, observed)
}

func TestMiddlewarePassthroughWhenUnconfigured(t *testing.T) {
	h := Handler{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Middleware(okHandler()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
