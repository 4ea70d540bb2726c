package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noah-isme/backend-lavado/internal/common"
)

const (
	defaultDBTimeout    = 500 * time.Millisecond
	defaultRedisTimeout = 300 * time.Millisecond
)

var shuttingDown atomic.Bool

// SetReady flips the readiness flag. The API clears it when shutdown starts so
// load balancers stop routing new drafts to the instance.
func SetReady(v bool) {
	shuttingDown.Store(!v)
}

// Checker probes the stores the API cannot serve without: Postgres for
// invoices and the catalog, Redis for drafts and idempotency keys.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Report is the readiness body.
type Report struct {
	Status string `json:"status"`
	DB     string `json:"db"`
	Redis  string `json:"redis"`
}

// Handler exposes the liveness and readiness endpoints.
type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

// Live answers as long as the process serves HTTP.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready probes both stores concurrently and answers 503 unless both respond.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if shuttingDown.Load() {
		common.JSON(w, http.StatusServiceUnavailable, Report{Status: "shutting_down"})
		return
	}
	if h.Checker == nil {
		common.JSON(w, http.StatusServiceUnavailable, Report{Status: "unconfigured"})
		return
	}

	rep := h.probe(r.Context())
	status := http.StatusOK
	if rep.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	common.JSON(w, status, rep)
}

func (h Handler) probe(ctx context.Context) Report {
	var (
		wg       sync.WaitGroup
		dbErr    error
		redisErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		dbErr = h.Checker.PingDB(ctx, orDefault(h.DBTimeout, defaultDBTimeout))
	}()
	go func() {
		defer wg.Done()
		redisErr = h.Checker.PingRedis(ctx, orDefault(h.RedisTimeout, defaultRedisTimeout))
	}()
	wg.Wait()

	rep := Report{Status: "ok", DB: describe(dbErr), Redis: describe(redisErr)}
	if dbErr != nil || redisErr != nil {
		rep.Status = "degraded"
	}
	return rep
}

func describe(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
