// cmd/lifecycle-manager/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"carelink-workers/internal/common/aws"
	"carelink-workers/internal/common/config"
	"carelink-workers/internal/common/database"
	"carelink-workers/internal/common/logger"
	"carelink-workers/internal/common/observability"
	"carelink-workers/internal/events"
	"carelink-workers/internal/lifecycle"
	"carelink-workers/internal/notify"
	"carelink-workers/internal/store"
	"carelink-workers/internal/subscription"
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
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting lifecycle manager...")

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional audit sink) ---
	var audit *notify.AuditWriter
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		audit = notify.NewAuditWriter(esClient.Client, cfg.Database.Elasticsearch.AuditIndex, log)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init AWS clients ---
	var push notify.PushService
	if cfg.AWS.PushEnabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		push = snsClient
	}

	var email notify.EmailService
	if cfg.AWS.EmailEnabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		email = sesClient
	}

	// --- Wire components ---
	recordStore := store.NewPostgresStore(pg.DB)
	repo := subscription.NewRepository(recordStore)

	devices := notify.NewDeviceDirectory(recordStore, redis.Client, cfg.Notify.DeviceCacheTTL, log)
	users := notify.NewUserDirectory(recordStore)
	notifier := notify.NewNotifier(devices, users, push, email, cfg.AWS.FromEmail, audit, log)
	dispatcher := notify.NewDispatcher(notifier)

	lcConfig := &lifecycle.Config{WarningHorizonDays: cfg.Lifecycle.WarningHorizonDays}
	synchronizer := lifecycle.NewSynchronizer(lcConfig, repo, obs, log)
	scanner := lifecycle.NewScanner(lcConfig, repo, dispatcher, obs, log)

	handlers := events.NewHandlers(repo, recordStore, dispatcher, cfg.Lifecycle.RecordFanoutLimit, log)

	// --- Start event consumer with retry ---
	var consumer *events.Consumer
	err = retryWithBackoff(func() error {
		var err error
		consumer, err = events.NewConsumer(cfg.Messaging, handlers, log)
		return err
	}, 10, 2*time.Second, zapLog, "event consumer connection")
	if err != nil {
		zapLog.Fatal("event consumer failed after retries", zap.Error(err))
	}
	if err := consumer.Start(ctx); err != nil {
		zapLog.Fatal("event consumer start failed", zap.Error(err))
	}

	// --- Scheduled entry points ---
	var wg sync.WaitGroup
	storeTimeout := cfg.Lifecycle.StoreTimeout

	wg.Add(1)
	go func() {
		defer wg.Done()
		runOnTicker(ctx, cfg.Lifecycle.SweepInterval, storeTimeout, func(runCtx context.Context) {
			if _, err := synchronizer.SweepExpired(runCtx); err != nil {
				log.Error("sweep failed, will retry next tick", map[string]interface{}{"error": err.Error()})
			}
		})
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runOnTicker(ctx, cfg.Lifecycle.ScanInterval, storeTimeout, func(runCtx context.Context) {
			if err := scanner.ScanExpiringSoon(runCtx); err != nil {
				log.Error("scan failed, will retry next tick", map[string]interface{}{"error": err.Error()})
			}
		})
	}()

	// --- Metrics / pprof endpoint ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	metricsSrv := &http.Server{Addr: cfg.Metrics.Address, Handler: mux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("metrics server failed", zap.Error(err))
		}
	}()

	zapLog.Info("Lifecycle manager started",
		zap.Duration("sweepInterval", cfg.Lifecycle.SweepInterval),
		zap.Duration("scanInterval", cfg.Lifecycle.ScanInterval),
		zap.Duration("storeTimeout", storeTimeout),
	)

	// --- Wait for shutdown signal ---
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLog.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	_ = consumer.Close()

	wg.Wait()
	zapLog.Info("Lifecycle manager stopped")
}

// runOnTicker invokes run once immediately, then on every tick, bounding
// each invocation with its own timeout.
func runOnTicker(ctx context.Context, interval, timeout time.Duration, run func(context.Context)) {
	invoke := func() {
		runCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		run(runCtx)
	}

	invoke()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			invoke()
		}
	}
}
