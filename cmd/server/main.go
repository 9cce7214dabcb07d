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

	"github.com/devboard/devboard-api/api"
	"github.com/devboard/devboard-api/internal/auth"
	"github.com/devboard/devboard-api/internal/config"
	"github.com/devboard/devboard-api/internal/database"
	"github.com/devboard/devboard-api/internal/handlers"
	"github.com/devboard/devboard-api/internal/logger"
	"github.com/devboard/devboard-api/internal/metrics"
	"github.com/devboard/devboard-api/internal/middleware"
	"github.com/devboard/devboard-api/internal/notifications"
	"github.com/devboard/devboard-api/internal/queue"
	"github.com/devboard/devboard-api/internal/reminders"
	"github.com/devboard/devboard-api/internal/services/classifier"
	"github.com/devboard/devboard-api/internal/services/insights"
	"github.com/devboard/devboard-api/internal/telemetry"
	"github.com/devboard/devboard-api/internal/workers"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	migrateFlag := flag.Bool("migrate", true, "Apply pending database migrations on startup")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.New(logger.Options{
		Component: "server",
		Version:   version,
		Debug:     debugMode,
		Console:   cfg.LogFormat == "console",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.String("version", version),
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
		zap.Bool("reminder_inline", cfg.ReminderInline),
	)

	tracingEnabled := false
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), telemetry.Options{
				ServiceName:    telemetry.ServiceName,
				ServiceVersion: version,
				Endpoint:       cfg.OTELEndpoint,
			})
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracingEnabled = true
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
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
	zapLogger.Info("connected_to_database")

	if *migrateFlag {
		applied, err := db.Migrate(context.Background())
		if err != nil {
			zapLogger.Fatal("failed_to_apply_migrations", zap.Error(err))
		}
		zapLogger.Info("migrations_applied", zap.Int("count", applied))
	}

	// Redis backs the shared rate limit budget and reminder dedupe; without it
	// both degrade to per-process state.
	redisConn, err := middleware.NewRedisRateLimiter(cfg.RedisURL)
	if err != nil {
		zapLogger.Warn("redis_unavailable_using_process_local_state", zap.Error(err))
		redisConn = nil
	} else {
		defer func() {
			if err := redisConn.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_redis")
	}

	rabbit := connectQueue(cfg.RabbitMQURL, zapLogger)
	defer func() {
		if err := rabbit.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	// Repositories
	taskRepo := database.NewTaskRepository(db)
	taskRepo.SetLogger(zapLogger)
	userRepo := database.NewUserRepository(db)
	activityRepo := database.NewUserActivityRepository(db)
	journalRepo := database.NewJournalRepository(db)
	pomodoroRepo := database.NewPomodoroRepository(db)
	settingsRepo := database.NewSettingsRepository(db)

	// Engines
	analyzer := classifier.New()
	aggregator := insights.NewAggregator()
	insightCache := insights.NewCache(cfg.InsightCacheSize, cfg.InsightCacheTTL)
	mentionScheduler := reminders.NewMentionScheduler(rabbit, reminders.DefaultMentionLead, zapLogger)

	// Notifications: store, push hub and the dispatcher between them
	corsReloader := middleware.NewCORSReloader(context.Background(), settingsRepo, cfg.FrontendURL, zapLogger, time.Minute)
	hub := notifications.NewHub(corsReloader.OriginAllowed, zapLogger)
	dispatcher := notifications.NewDispatcher(hub, cfg.NotificationQueueSize, zapLogger)
	notificationService := notifications.NewService(notifications.NewStore(), dispatcher, zapLogger)

	if cfg.AuthJWKSURL == "" {
		zapLogger.Fatal("auth_not_configured", zap.String("hint", "set AUTH_ISSUER or AUTH_JWKS_URL"))
	}
	verifier := auth.NewVerifier(auth.NewJWKSManager(cfg.AuthJWKSURL, auth.DefaultJWKSTTL), cfg.AuthIssuer)

	// Handlers
	taskHandler := handlers.NewTaskHandler(taskRepo, analyzer, mentionScheduler, insightCache, zapLogger)
	aiHandler := handlers.NewAIHandler(taskRepo, analyzer, aggregator, insightCache, zapLogger)
	analyticsHandler := handlers.NewAnalyticsHandler(taskRepo, pomodoroRepo, journalRepo, aggregator, zapLogger)
	journalHandler := handlers.NewJournalHandler(journalRepo, pomodoroRepo, insightCache, zapLogger)
	notificationHandler := handlers.NewNotificationHandler(notificationService, hub, taskRepo, zapLogger)
	notificationHandler.SetReminderPauser(activityRepo)

	healthChecker := handlers.NewHealthChecker(version)
	healthChecker.AddCheck("database", db.HealthCheck)
	if redisConn != nil {
		healthChecker.AddCheck("redis", redisConn.Ping)
	}
	healthChecker.AddCheck("rabbitmq", rabbit.HealthCheck)

	openAPIHandler, err := handlers.NewOpenAPIHandler(api.OpenAPI)
	if err != nil {
		zapLogger.Fatal("failed_to_load_openapi_document", zap.Error(err))
	}

	r := mux.NewRouter()

	// Middleware registered first wraps outermost
	zapLogger.Info("setting_up_middleware")
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))
	if tracingEnabled {
		r.Use(otelmux.Middleware(telemetry.ServiceName))
		zapLogger.Info("otel_middleware_enabled")
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(corsReloader.Middleware)
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Audit(zapLogger))

	rateStore, err := middleware.NewRateLimitStore(redisConn.Client())
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
	}
	rateLimitReloader := middleware.NewRateLimitReloader(context.Background(), rateStore, settingsRepo, middleware.DefaultRate, zapLogger, time.Minute)

	// Public routes
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", healthChecker.Version).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	openAPIHandler.RegisterRoutes(r)

	// Authenticated API
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(middleware.Auth(verifier, userRepo, zapLogger))
	apiRouter.Use(rateLimitReloader.Middleware)
	apiRouter.Use(middleware.ActivityTracking(activityRepo, middleware.DefaultActivityDebounce, zapLogger))

	taskHandler.RegisterRoutes(apiRouter.PathPrefix("/tasks").Subrouter())
	aiHandler.RegisterRoutes(apiRouter.PathPrefix("/ai").Subrouter())
	analyticsHandler.RegisterRoutes(apiRouter.PathPrefix("/analytics").Subrouter())
	notificationHandler.RegisterRoutes(apiRouter.PathPrefix("/notifications").Subrouter())
	journalHandler.RegisterRoutes(apiRouter)

	// Preflight requests are answered by the CORS middleware
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	go corsReloader.Start(bgCtx)
	go rateLimitReloader.Start(bgCtx)
	go dispatcher.Run(bgCtx)

	// Worker-built notifications arrive here because the store lives in this process
	processor := workers.NewProcessor(rabbit, zapLogger)
	processor.Handle(queue.JobTypeNotificationDelivery, func(ctx context.Context, job *queue.Job) error {
		if job.Notification == nil {
			return workers.Permanent(errors.New("notification_delivery job has no notification"))
		}
		notificationService.Send(ctx, job.UserID, job.Notification)
		return nil
	})
	go func() {
		if err := processor.Consume(bgCtx, rabbit, cfg.RabbitMQPrefetch); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("notification_delivery_consumer_stopped", zap.Error(err))
		}
	}()

	if cfg.ReminderInline {
		opts := []reminders.Option{
			reminders.WithInterval(cfg.ReminderInterval),
			reminders.WithActivityWindow(cfg.MonitoredUserWindow),
			reminders.WithLogger(zapLogger),
		}
		if cfg.ReminderDedupe {
			var watermark reminders.Watermark = reminders.NewMemoryWatermark(reminders.DefaultWatermarkTTL)
			if redisConn != nil {
				watermark = reminders.NewRedisWatermark(redisConn.Client(), reminders.DefaultWatermarkTTL)
			}
			opts = append(opts, reminders.WithWatermark(watermark))
		}
		evaluator := reminders.NewEvaluator(activityRepo, taskRepo, reminders.NewStoreSink(notificationService), opts...)
		go func() {
			if err := evaluator.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("reminder_evaluator_stopped_with_error", zap.Error(err))
			}
		}()
	}

	dlqGC := queue.NewGarbageCollector(rabbit, queue.DefaultDLQSweepInterval, queue.DefaultDLQRetention, zapLogger)
	go func() {
		if err := dlqGC.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()
	zapLogger.Info("started_dlq_garbage_collector",
		zap.Duration("interval", time.Hour),
		zap.Duration("retention", 24*time.Hour),
	)

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited", zap.Int64("dropped_notification_events", dispatcher.Dropped()))
}

// connectQueue dials RabbitMQ with exponential backoff to ride out broker startup
func connectQueue(url string, zapLogger *zap.Logger) *queue.RabbitMQQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := range maxRetries {
		q, err := queue.NewRabbitMQQueue(url, zapLogger)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return q
		}
		lastErr = err

		delay := min(initialDelay*time.Duration(1<<uint(attempt)), 30*time.Second)
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}
