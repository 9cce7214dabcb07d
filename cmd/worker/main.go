package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/devboard/devboard-api/internal/config"
	"github.com/devboard/devboard-api/internal/database"
	"github.com/devboard/devboard-api/internal/logger"
	"github.com/devboard/devboard-api/internal/middleware"
	"github.com/devboard/devboard-api/internal/queue"
	"github.com/devboard/devboard-api/internal/reminders"
	"github.com/devboard/devboard-api/internal/telemetry"
	"github.com/devboard/devboard-api/internal/workers"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.New(logger.Options{
		Component: "worker",
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

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.Duration("reminder_interval", cfg.ReminderInterval),
		zap.Bool("reminder_dedupe", cfg.ReminderDedupe),
		zap.Duration("monitored_user_window", cfg.MonitoredUserWindow),
	)

	if cfg.OTELEnabled && cfg.OTELEndpoint != "" {
		tp, err := telemetry.InitTracer(context.Background(), telemetry.Options{
			ServiceName: telemetry.ServiceName + "-worker",
			Endpoint:    cfg.OTELEndpoint,
		})
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
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
	zapLogger.Info("connected_to_database")

	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq", zap.Int("prefetch", cfg.RabbitMQPrefetch))

	taskRepo := database.NewTaskRepository(db)
	taskRepo.SetLogger(zapLogger)
	activityRepo := database.NewUserActivityRepository(db)

	opts := []reminders.Option{
		reminders.WithInterval(cfg.ReminderInterval),
		reminders.WithActivityWindow(cfg.MonitoredUserWindow),
		reminders.WithLogger(zapLogger),
	}
	if cfg.ReminderDedupe {
		watermark, closeWatermark := newWatermark(cfg.RedisURL, zapLogger)
		defer closeWatermark()
		opts = append(opts, reminders.WithWatermark(watermark))
	}
	// The notification store lives in the server; reminders travel as delivery jobs
	evaluator := reminders.NewEvaluator(activityRepo, taskRepo, reminders.NewQueueSink(jobQueue), opts...)

	processor := workers.NewProcessor(jobQueue, zapLogger)
	processor.Handle(queue.JobTypeTimeMentionReminder, func(ctx context.Context, job *queue.Job) error {
		err := evaluator.ProcessTimeMentionJob(ctx, job)
		if errors.Is(err, reminders.ErrInvalidJob) || errors.Is(err, database.ErrNotFound) {
			return workers.Permanent(err)
		}
		return err
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	wg.Go(func() {
		if err := evaluator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("reminder_evaluator_stopped_with_error", zap.Error(err))
		}
	})
	wg.Go(func() {
		if err := processor.Consume(ctx, jobQueue, cfg.RabbitMQPrefetch); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("job_consumer_stopped_with_error", zap.Error(err))
			cancel()
		}
	})

	zapLogger.Info("worker_started")

	select {
	case <-sigChan:
		zapLogger.Info("shutdown_signal_received")
	case <-ctx.Done():
	}
	cancel()
	wg.Wait()

	zapLogger.Info("worker_stopped")
}

// newWatermark uses Redis when reachable so several workers share dedupe
// state, and falls back to a process-local watermark otherwise.
func newWatermark(redisURL string, zapLogger *zap.Logger) (reminders.Watermark, func()) {
	rdb, err := middleware.NewRedisRateLimiter(redisURL)
	if err != nil {
		zapLogger.Warn("redis_unavailable_using_memory_watermark", zap.Error(err))
		return reminders.NewMemoryWatermark(reminders.DefaultWatermarkTTL), func() {}
	}
	zapLogger.Info("connected_to_redis")
	return reminders.NewRedisWatermark(rdb.Client(), reminders.DefaultWatermarkTTL), func() {
		if err := rdb.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}
}
