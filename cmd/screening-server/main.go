// cmd/screening-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"applicant-screening/internal/api"
	"applicant-screening/internal/blob"
	awsclients "applicant-screening/internal/common/aws"
	"applicant-screening/internal/common/config"
	"applicant-screening/internal/common/database"
	"applicant-screening/internal/common/logger"
	"applicant-screening/internal/common/observability"
	"applicant-screening/internal/notify"
	"applicant-screening/internal/screening/conversation"
	"applicant-screening/internal/screening/requirements"
	"applicant-screening/internal/screening/uploadgate"
	"applicant-screening/internal/session"
	"applicant-screening/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("Starting screening server...", zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if err := store.Migrate(ctx, pg); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- AWS clients ---
	awsCfg, err := awsclients.LoadConfig(ctx, cfg.Notifications.AWSRegion)
	if err != nil {
		zapLog.Fatal("aws config load failed", zap.Error(err))
	}
	s3Client := awsclients.NewS3Client(awsCfg, cfg.Storage.S3.Endpoint)
	sesClient := awsclients.NewSESClient(awsCfg)
	snsClient := awsclients.NewSNSClient(awsCfg)

	// --- Repositories & engine ---
	keyspace := cfg.Screening.SessionKeyspace
	jobRepo := store.NewJobRepository(pg)
	catalog := store.NewCachedJobCatalog(jobRepo, rdb.Client, keyspace, config.GetDuration(cfg.Screening.JobCatalogTTL), log)

	engine := conversation.NewEngine(conversation.LoadConfig(cfg), conversation.Dependencies{
		Sessions:      session.NewRedisStore(rdb.Client, keyspace),
		Locks:         session.NewTurnLock(rdb.Client, keyspace, config.GetDuration(cfg.Screening.TurnLockTTL)),
		Applicants:    store.NewApplicantRepository(pg),
		Progress:      store.NewProgressRepository(pg),
		Assessments:   store.NewAssessmentRepository(pg),
		ChatLog:       store.NewChatLogRepository(pg),
		Jobs:          catalog,
		Requirements:  requirements.NewLoader(jobRepo, log),
		Gate:          uploadgate.NewGate(blob.NewS3Store(s3Client, cfg, log), log),
		Notifier:      notify.NewSESNotifier(sesClient, cfg, log),
		Publisher:     notify.NewSNSPublisher(snsClient, cfg, log),
		Observability: obs,
		Logger:        log,
	})

	// --- HTTP server ---
	router := api.NewServer(engine, map[string]api.Pinger{
		"postgres": pg,
		"redis":    rdb,
	}, cfg.Server.MaxUploadBytes, log).Router()

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Screening server stopped gracefully")
}
