// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sow-workers/internal/common/camunda"
	"sow-workers/internal/common/config"
	"sow-workers/internal/common/database"
	"sow-workers/internal/common/logger"
	"sow-workers/internal/common/observability"
	"sow-workers/internal/sow/audit"
	"sow-workers/internal/sow/engine"
	"sow-workers/internal/sow/windzone"

	ctc "sow-workers/internal/workers/sow/check-template-compatibility"
	sst "sow-workers/internal/workers/sow/select-template"
)

// retryWithBackoff retries operation with exponential backoff.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(operationName+" failed, retrying", map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker manager: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	zapLog, err := logger.New(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Service: cfg.App.Name,
	})
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	log := logger.NewZapAdapter(zapLog)
	defer log.Sync()

	log.Info("starting worker manager", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs, err := observability.New(observability.Options{
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
		Tracing: observability.TracingOptions{
			Enabled:        cfg.Tracing.Enabled,
			JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
			SampleRatio:    cfg.Tracing.SampleRatio,
		},
	})
	if err != nil {
		return fmt.Errorf("observability init failed: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(ctx); err != nil {
			log.Error("observability shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	engineOpts := []engine.Option{}
	if cfg.Engine.RulesPath != "" {
		rules, err := engine.LoadRuleSet(cfg.Engine.RulesPath)
		if err != nil {
			return fmt.Errorf("load rule set: %w", err)
		}
		engineOpts = append(engineOpts, engine.WithRuleSet(rules))
	}
	eng, err := engine.New(engineOpts...)
	if err != nil {
		return fmt.Errorf("engine init failed: %w", err)
	}
	log.Info("template engine ready", map[string]interface{}{"engineVersion": eng.Version()})

	ctx := context.Background()

	// --- Zeebe ---
	zeebe, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: cfg.Camunda.Plaintext,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	})
	if err != nil {
		return err
	}
	defer zeebe.Close()
	log.Info("zeebe client connected", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.EnsureSchema(ctx); err != nil {
		return err
	}
	log.Info("postgres connected", nil)

	// --- Redis ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		return err
	}
	defer redis.Close()
	log.Info("redis connected", nil)

	windZones := windzone.NewCachedRepository(
		windzone.NewPostgresRepository(pg.DB), redis, cfg.Engine.CacheTTL, log)

	var auditor sst.Auditor
	if cfg.Engine.AuditEnabled {
		auditor = audit.NewRecorder(pg.DB)
	}

	// --- Workers ---
	var workers []*camunda.Worker

	if config.IsWorkerEnabled(cfg, sst.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, sst.TaskType)
		handler := sst.NewHandler(
			&sst.Config{
				Timeout:      config.GetDuration(wcfg.Timeout),
				AuditEnabled: cfg.Engine.AuditEnabled,
			},
			eng, windZones, auditor, obs, log,
		)
		workers = append(workers, startWorker(zeebe, sst.TaskType, wcfg, handler.Handle, log))
	}

	if config.IsWorkerEnabled(cfg, ctc.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, ctc.TaskType)
		handler := ctc.NewHandler(&ctc.Config{Timeout: config.GetDuration(wcfg.Timeout)}, eng, obs, log)
		workers = append(workers, startWorker(zeebe, ctc.TaskType, wcfg, handler.Handle, log))
	}

	// --- HTTP: health, readiness, metrics ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]interface{}{
			"status":        "ok",
			"engineVersion": eng.Version(),
			"workers":       len(workers),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := map[string]string{"postgres": "ok", "redis": "ok", "zeebe": "ok"}
		status := http.StatusOK
		if err := pg.Ping(ctx); err != nil {
			checks["postgres"], status = err.Error(), http.StatusServiceUnavailable
		}
		if err := redis.Ping(ctx); err != nil {
			checks["redis"], status = err.Error(), http.StatusServiceUnavailable
		}
		if err := zeebe.HealthCheck(ctx); err != nil {
			checks["zeebe"], status = err.Error(), http.StatusServiceUnavailable
		}
		writeStatus(w, status, map[string]interface{}{"checks": checks})
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http server listening", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping workers", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	log.Info("worker manager stopped", nil)
	return nil
}

func startWorker(client *camunda.Client, taskType string, wcfg config.WorkerConfig, handler worker.JobHandler, log logger.Logger) *camunda.Worker {
	return camunda.StartWorker(client.GetClient(), camunda.WorkerOptions{
		TaskType:      taskType,
		MaxJobsActive: wcfg.MaxJobsActive,
		Timeout:       config.GetDuration(wcfg.Timeout),
	}, handler, log)
}

func writeStatus(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
