package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestHandlerMiddlewareEnforcesLimitPerClient(t *testing.T) {
	_, client := newRedis(t)
	lim, err := NewRedisLimiter(client, "ratelimit:invoices", "1-M")
	require.NoError(t, err)
	counted := Handler{Limiter: lim}.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.9")
	rr1 := httptest.NewRecorder()
	counted.ServeHTTP(rr1, req.Clone(req.Context()))
	require.Equal(t, http.StatusCreated, rr1.Code)
	require.Equal(t, "1", rr1.Header().Get("X-RateLimit-Limit"))

	rr2 := httptest.NewRecorder()
	counted.ServeHTTP(rr2, req.Clone(req.Context()))
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	require.Equal(t, "0", rr2.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rr2.Header().Get("Retry-After"))
	require.Contains(t, rr2.Body.String(), `"RATE_LIMITED"`)

	other := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", nil)
	other.Header.Set("X-Forwarded-For", "10.0.0.10")
	rr3 := httptest.NewRecorder()
	counted.ServeHTTP(rr3, other)
	require.Equal(t, http.StatusCreated, rr3.Code)
}

func TestHandlerMiddlewareCustomKey(t *testing.T) {
	_, client := newRedis(t)
	lim, err := NewRedisLimiter(client, "ratelimit:invoices", "1-M")
	require.NoError(t, err)
	shared := Handler{Limiter: lim, Key: func(*http.Request) string { return "all" }}.Middleware(okHandler())

	a := httptest.NewRequest(http.MethodPost, "/", nil)
	a.Header.Set("X-Forwarded-For", "10.0.0.1")
	b := httptest.NewRequest(http.MethodPost, "/", nil)
	b.Header.Set("X-Forwarded-For", "10.0.0.2")

	rr := httptest.NewRecorder()
	shared.ServeHTTP(rr, a)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = httptest.NewRecorder()
	shared.ServeHTTP(rr, b)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestHandlerMiddlewareServesWhenStoreFails(t *testing.T) {
	mr, client := newRedis(t)
	lim, err := NewRedisLimiter(client, "ratelimit:invoices", "1-M")
	require.NoError(t, err)
	mr.Close()

	var seen error
	handler := Handler{Limiter: lim, OnError: func(err error) { seen = err }}
	rr := httptest.NewRecorder()
	handler.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/invoices", nil))
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Error(t, seen)
}

func TestNewRedisLimiterRejectsBadRate(t *testing.T) {
	_, err := NewRedisLimiter(redis.NewClient(&redis.Options{}), "x", "sixty")
	require.Error(t, err)
}
