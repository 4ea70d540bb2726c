package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-lavado/internal/cache"
	"github.com/noah-isme/backend-lavado/internal/catalog"
	"github.com/noah-isme/backend-lavado/internal/common"
	"github.com/noah-isme/backend-lavado/internal/config"
	"github.com/noah-isme/backend-lavado/internal/customer"
	"github.com/noah-isme/backend-lavado/internal/db"
	"github.com/noah-isme/backend-lavado/internal/draft"
	"github.com/noah-isme/backend-lavado/internal/events"
	"github.com/noah-isme/backend-lavado/internal/health"
	"github.com/noah-isme/backend-lavado/internal/invoice"
	"github.com/noah-isme/backend-lavado/internal/lock"
	"github.com/noah-isme/backend-lavado/internal/obs"
	"github.com/noah-isme/backend-lavado/internal/promotion"
	"github.com/noah-isme/backend-lavado/internal/queue"
	"github.com/noah-isme/backend-lavado/internal/ratelimit"
	"github.com/noah-isme/backend-lavado/internal/report"
	"github.com/noah-isme/backend-lavado/internal/security"
	"github.com/noah-isme/backend-lavado/internal/settings"
	"github.com/noah-isme/backend-lavado/internal/vehicle"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	// money travels as JSON numbers in the POS payloads
	decimal.MarshalJSONWithoutQuotes = true

	obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)

	tracingEnabled := cfg.Obs.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "lavado-api",
			Endpoint:      cfg.Obs.OTLPEndpoint,
			Exporter:      cfg.Obs.TracingExporter,
			SamplingRatio: cfg.Obs.SamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("load timezone")
	}

	if cfg.MigrateOnStart {
		if err := db.MigrateUp(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "lavado-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if tracingEnabled {
		if err := redisotel.InstrumentTracing(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
	}
	if cfg.Obs.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	queueOpt, err := queue.RedisOpt(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse queue redis url")
	}
	taskClient := asynq.NewClient(queueOpt)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	bus := &events.Bus{
		Store:     events.PGStore{DB: pool},
		Notifiers: []events.Notifier{queue.ReportInvalidator{Client: taskClient}},
	}

	settingsService := &settings.Service{
		Store:  settings.PGStore{DB: pool},
		Cache:  cache.NewJSON(redisClient, "settings", cfg.SettingsCacheTTL),
		Logger: obs.Component(logger, "settings"),
	}
	settingsHandler := &settings.Handler{Svc: settingsService}

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Store:  catalog.PGStore{DB: pool},
		Cache:  cache.NewJSON(redisClient, "catalog", cfg.CatalogCacheTTL),
		Logger: obs.Component(logger, "catalog"),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: catalogService})

	vehicleService := &vehicle.Service{Store: vehicle.PGStore{DB: pool}}
	vehicleHandler := &vehicle.Handler{Svc: vehicleService}

	customerService := &customer.Service{Store: customer.PGStore{DB: pool}}
	customerHandler := &customer.Handler{
		Svc:            customerService,
		DefaultPerPage: cfg.DefaultPageLimit,
		MaxPerPage:     cfg.MaxPageLimit,
	}

	promotionService := &promotion.Service{Store: promotion.PGStore{DB: pool}, Location: loc}
	promotionHandler := &promotion.Handler{Svc: promotionService}

	invoiceService := &invoice.Service{
		Store:       invoice.PGStore{DB: pool},
		Tax:         settingsService,
		Events:      bus,
		StartNumber: cfg.InvoiceStartNumber,
		Location:    loc,
		Logger:      obs.Component(logger, "invoice"),
	}
	invoiceHandler := &invoice.Handler{
		Svc:            invoiceService,
		DefaultPerPage: cfg.DefaultPageLimit,
		MaxPerPage:     cfg.MaxPageLimit,
	}

	draftService := &draft.Service{
		Store:      draft.RedisStore{R: redisClient, Prefix: "draft", TTL: cfg.DraftTTL},
		Locker:     lock.Locker{R: redisClient, Prefix: "draft-lock", RetryBackoff: 25 * time.Millisecond, Wait: cfg.DraftLockTTL},
		LockTTL:    cfg.DraftLockTTL,
		Vehicles:   vehicleService,
		Tax:        settingsService,
		Promotions: promotionService,
		Catalog:    catalogService,
		Invoices:   invoiceService,
		Logger:     obs.Component(logger, "draft"),
	}
	draftHandler := &draft.Handler{Svc: draftService}

	reportService := &report.Service{
		Invoices: invoiceService,
		Cache:    cache.NewJSON(redisClient, report.CachePrefix, cfg.ReportCacheTTL),
		Location: loc,
		Logger:   obs.Component(logger, "report"),
	}
	reportHandler := &report.Handler{Svc: reportService}

	invoiceLimiter, err := ratelimit.NewRedisLimiter(redisClient, "ratelimit:invoices", cfg.RateLimitInvoices)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise invoice rate limiter")
	}
	limitLogger := obs.Component(logger, "ratelimit")
	invoiceRate := ratelimit.Handler{
		Limiter: invoiceLimiter,
		OnError: func(err error) {
			limitLogger.Error().Err(err).Msg("rate limiter unavailable")
		},
	}
	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL, PendingTTL: cfg.IdempotencyPending}
	// finalize and direct invoice creation share one budget per client
	guardInvoice := func(next http.Handler) http.Handler {
		return invoiceRate.Middleware(idem.Middleware(next))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if tracingEnabled {
		r.Use(obs.Tracing)
	}
	if cfg.Obs.MetricsEnabled {
		r.Use(obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBuckets(cfg.Obs.HTTPBucketsMs), nil).Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", common.IdempotencyHeader},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(security.Headers{HSTS: envBool("SECURITY_ENABLE_HSTS", false)}.Middleware)
	r.Use(security.BodyLimit{Max: int64(envInt("HTTP_MAX_BODY_BYTES", int(security.DefaultMaxBody)))}.Middleware)

	if cfg.Obs.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		r.Mount("/debug", protectPprof(middleware.Profiler(), os.Getenv("OBS_PPROF_USER"), os.Getenv("OBS_PPROF_PASSWORD")))
	}

	healthHandler := health.Handler{
		Checker:      health.Probe{DB: pool, Redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/settings", func(s chi.Router) {
			s.Get("/", settingsHandler.Get)
			s.Patch("/", settingsHandler.Update)
			s.Post("/reset", settingsHandler.Reset)
		})

		v.Route("/services", func(s chi.Router) {
			s.Get("/", catalogHandler.List)
			s.Post("/", catalogHandler.Create)
			s.Route("/{kind}/{id}", func(item chi.Router) {
				item.Get("/", catalogHandler.Get)
				item.Put("/", catalogHandler.Update)
				item.Delete("/", catalogHandler.Delete)
				item.Get("/line", catalogHandler.Line)
			})
		})

		v.Route("/promotions", func(p chi.Router) {
			p.Get("/", promotionHandler.List)
			p.Post("/", promotionHandler.Create)
			p.Get("/active", promotionHandler.Active)
			p.Get("/{id}", promotionHandler.Get)
			p.Put("/{id}", promotionHandler.Update)
			p.Delete("/{id}", promotionHandler.Delete)
		})

		v.Route("/customers", func(c chi.Router) {
			c.Get("/", customerHandler.List)
			c.Post("/", customerHandler.Create)
			c.Get("/{document}", customerHandler.Get)
			c.Put("/{document}", customerHandler.Update)
			c.Delete("/{document}", customerHandler.Delete)
			c.Get("/{document}/vehicles", vehicleHandler.ByCustomer)
		})

		v.Route("/vehicles", func(vh chi.Router) {
			vh.Get("/", vehicleHandler.List)
			vh.Post("/", vehicleHandler.Create)
			vh.Get("/{plate}", vehicleHandler.Get)
			vh.Put("/{plate}", vehicleHandler.Update)
			vh.Delete("/{plate}", vehicleHandler.Delete)
		})

		v.Route("/drafts", func(d chi.Router) {
			draftHandler.Routes(d, guardInvoice)
		})

		v.Route("/invoices", func(inv chi.Router) {
			inv.Get("/", invoiceHandler.List)
			inv.With(guardInvoice).Post("/", invoiceHandler.Create)
			inv.Get("/{number}", invoiceHandler.Get)
			inv.With(idem.Middleware).Put("/{number}", invoiceHandler.Update)
			inv.Delete("/{number}", invoiceHandler.Delete)
		})

		v.Route("/reports", func(rp chi.Router) {
			rp.Get("/sales", reportHandler.Sales)
			rp.Get("/summary", reportHandler.Summary)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
		return
	case <-sigCtx.Done():
	}

	health.SetReady(false)
	logger.Info().Msg("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), envDurationMillis("HTTP_SHUTDOWN_TIMEOUT_MS", 10000))
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
