package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-lavado/internal/health"
)

type stubChecker struct {
	dbErr    error
	redisErr error
}

func (s stubChecker) PingDB(context.Context, time.Duration) error    { return s.dbErr }
func (s stubChecker) PingRedis(context.Context, time.Duration) error { return s.redisErr }

func ready(t *testing.T, h health.Handler) (int, health.Report) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var rep health.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	return rr.Code, rep
}

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestReady(t *testing.T) {
	code, rep := ready(t, health.Handler{Checker: stubChecker{}, DBTimeout: 50 * time.Millisecond})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, health.Report{Status: "ok", DB: "ok", Redis: "ok"}, rep)

	code, rep = ready(t, health.Handler{Checker: stubChecker{redisErr: errors.New("redis down")}})
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "degraded", rep.Status)
	require.Equal(t, "ok", rep.DB)
	require.Equal(t, "redis down", rep.Redis)

	code, rep = ready(t, health.Handler{})
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "unconfigured", rep.Status)
}

func TestProbeAgainstMiniredis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	probe := health.Probe{Redis: client}
	require.NoError(t, probe.PingRedis(context.Background(), 100*time.Millisecond))
	require.EqualError(t, probe.PingDB(context.Background(), 100*time.Millisecond), "db not configured")

	code, rep := ready(t, health.Handler{Checker: probe})
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "db not configured", rep.DB)
	require.Equal(t, "ok", rep.Redis)
}
