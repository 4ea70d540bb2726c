package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-lavado/internal/cache"
	"github.com/noah-isme/backend-lavado/internal/config"
	"github.com/noah-isme/backend-lavado/internal/obs"
	"github.com/noah-isme/backend-lavado/internal/queue"
	"github.com/noah-isme/backend-lavado/internal/report"
)

// The worker consumes report:invalidate tasks queued by the API whenever an
// invoice is created, updated or deleted.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := *obs.Component(obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel), "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Obs.TracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "lavado-worker",
			Endpoint:      cfg.Obs.OTLPEndpoint,
			Exporter:      cfg.Obs.TracingExporter,
			SamplingRatio: cfg.Obs.SamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	rdb, err := openRedis(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect redis")
	}
	defer rdb.Close()

	queueOpt, err := queue.RedisOpt(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse queue redis url")
	}
	mux := queue.NewMux(queue.ReportInvalidationHandler{
		// purge only; the TTL never applies
		Cache:  cache.NewJSON(rdb, report.CachePrefix, cfg.ReportCacheTTL),
		Logger: obs.Component(logger, "report-invalidation"),
	})
	srv := queue.NewServer(queueOpt, cfg.WorkerConcurrency, logger)

	if cfg.Obs.MetricsEnabled && cfg.WorkerMetricsAddr != "" {
		stopMetrics := serveMetrics(cfg.WorkerMetricsAddr, logger)
		defer stopMetrics()
	}

	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}
	<-ctx.Done()
	logger.Info().Msg("draining report tasks")
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

func openRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if cfg.Obs.TracingEnabled {
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			_ = rdb.Close()
			return nil, err
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// serveMetrics exposes /metrics on addr and returns a function that stops it.
func serveMetrics(addr string, logger zerolog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
