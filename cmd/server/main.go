package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/smart-notes/internal/config"
	"github.com/benvon/smart-notes/internal/database"
	"github.com/benvon/smart-notes/internal/events"
	"github.com/benvon/smart-notes/internal/handlers"
	"github.com/benvon/smart-notes/internal/logger"
	"github.com/benvon/smart-notes/internal/middleware"
	"github.com/benvon/smart-notes/internal/queue"
	"github.com/benvon/smart-notes/internal/services/auth"
	"github.com/benvon/smart-notes/internal/telemetry"
	"github.com/benvon/smart-notes/internal/workers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const serviceName = "smart-notes"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode, zap.String("service", serviceName))
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.Bool("local_queue", cfg.RabbitMQURL == ""),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(context.Background(), telemetry.Options{
			ServiceName: serviceName,
			Endpoint:    cfg.OTELEndpoint,
			Insecure:    cfg.OTELInsecure,
			SampleRatio: cfg.OTELSampleRatio,
		})
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
					zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
				}
			}()
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database", zap.String("dialect", string(db.Dialect())))

	if cfg.DatabaseAutoMigrate {
		if err := migrateUp(db); err != nil {
			zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
		}
		zapLogger.Info("database_migrated")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var redisClient *middleware.RedisClient
	if cfg.RedisURL != "" {
		redisClient, err = middleware.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_redis")
	}

	jobQueue, err := queue.Connect(ctx, cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_job_queue", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_job_queue", zap.Error(err))
		}
	}()

	// Repositories
	userRepo := database.NewUserRepository(db)
	noteRepo := database.NewNoteRepository(db)
	taskRepo := database.NewTaskRepository(db)
	projectRepo := database.NewProjectRepository(db)
	areaRepo := database.NewAreaRepository(db)
	tagRepo := database.NewTagRepository(db)
	tagStatsRepo := database.NewTagStatisticsRepository(db)
	tokenRepo := database.NewAPITokenRepository(db)
	oidcConfigRepo := database.NewOIDCConfigRepository(db)
	corsConfigRepo := database.NewCorsConfigRepository(db)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(db)

	onTagChange := workers.NewTagChangeHandler(tagStatsRepo, jobQueue, cfg.TagAnalysisDebounce, zapLogger)
	noteRepo.SetLogger(zapLogger)
	noteRepo.SetTagChangeHandler(onTagChange)
	taskRepo.SetLogger(zapLogger)
	taskRepo.SetTagChangeHandler(onTagChange)
	tagRepo.SetLogger(zapLogger)
	tagRepo.SetTagChangeHandler(onTagChange)

	// Without a broker the server analyzes tags itself.
	if memQueue, ok := jobQueue.(*queue.MemoryQueue); ok {
		worker := workers.NewWorker(memQueue, zapLogger)
		workers.NewTagAnalyzer(noteRepo, taskRepo, tagStatsRepo, zapLogger).Register(worker)
		go func() {
			if err := worker.Run(ctx, cfg.RabbitMQPrefetch); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("in_process_worker_stopped", zap.Error(err))
			}
		}()
		zapLogger.Info("started_in_process_worker")
	}

	hub := events.NewHub(zapLogger)
	go hub.Run(ctx)

	oidcProvider := auth.NewProvider(oidcConfigRepo)
	authenticator := auth.NewAuthenticator(userRepo, auth.NewTokenService(tokenRepo), oidcProvider, auth.NewJWKSManager(), cfg.OIDCProvider, zapLogger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(registry)

	limiterStore, err := middleware.NewLimiterStore(redisClient)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
	}
	rateLimitReloader := middleware.NewRateLimitReloader(limiterStore, ratelimitConfigRepo, middleware.DefaultRate, zapLogger, time.Minute)
	corsReloader := middleware.NewCORSReloader(corsConfigRepo, cfg.FrontendURL, zapLogger, time.Minute)

	healthChecker := handlers.NewHealthChecker(db.PingContext)
	if redisClient != nil {
		healthChecker.AddCheck("redis", redisClient.Ping)
	}
	healthChecker.AddCheck("queue", jobQueue.HealthCheck)

	r := mux.NewRouter()

	// gorilla/mux runs middleware in registration order, outermost first.
	if cfg.OTELEnabled {
		r.Use(telemetry.RouterMiddleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(corsReloader.Middleware())
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))
	r.Use(metrics.Middleware)

	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})).Methods(http.MethodGet)

	openAPIHandler, err := handlers.NewOpenAPIHandler(cfg.OpenAPIPath, zapLogger)
	if err != nil {
		zapLogger.Warn("openapi_document_unavailable", zap.String("path", cfg.OpenAPIPath), zap.Error(err))
	} else {
		openAPIHandler.RegisterRoutes(r)
	}

	apiRouter := r.PathPrefix("/api").Subrouter()
	rateLimitMW := rateLimitReloader.Middleware()
	authHandler := handlers.NewAuthHandler(oidcProvider, cfg.OIDCProvider, zapLogger)

	loginRouter := apiRouter.PathPrefix("/auth").Subrouter()
	loginRouter.Use(rateLimitMW)
	authHandler.RegisterPublicRoutes(loginRouter)

	protected := apiRouter.NewRoute().Subrouter()
	protected.Use(middleware.Auth(authenticator, zapLogger))
	protected.Use(middleware.NewActivityTracker(userRepo, zapLogger, middleware.DefaultActivityInterval).Middleware)
	protected.Use(rateLimitMW)

	publish := handlers.WithPublisher(hub)
	authHandler.RegisterRoutes(protected.PathPrefix("/auth").Subrouter())
	handlers.NewNoteHandler(noteRepo, projectRepo, zapLogger, publish).RegisterRoutes(protected)
	handlers.NewTaskHandler(taskRepo, projectRepo, zapLogger, publish).RegisterRoutes(protected)
	handlers.NewProjectHandler(projectRepo, areaRepo, zapLogger, publish).RegisterRoutes(protected)
	handlers.NewAreaHandler(areaRepo, zapLogger, publish).RegisterRoutes(protected)
	handlers.NewTagHandler(tagRepo, tagStatsRepo, zapLogger, publish).RegisterRoutes(protected)
	handlers.NewEventsHandler(hub, corsReloader.AllowsOrigin, zapLogger).RegisterRoutes(protected)

	// Preflight requests are answered once the CORS middleware has set headers.
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   45 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go corsReloader.Start(ctx)
	go rateLimitReloader.Start(ctx)

	if queue.StartSweeper(ctx, jobQueue, zapLogger) {
		zapLogger.Info("dlq_sweeper_started")
	}

	go func() {
		zapLogger.Info("server_listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}
	zapLogger.Info("server_exited")
}

func migrateUp(db *database.DB) error {
	m, err := database.NewMigrator(db)
	if err != nil {
		return err
	}
	return m.Up()
}
