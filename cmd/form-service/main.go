// cmd/form-service/main.go
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

	"swedana-forms/internal/api"
	awsclients "swedana-forms/internal/common/aws"
	"swedana-forms/internal/common/camunda"
	"swedana-forms/internal/common/config"
	"swedana-forms/internal/common/database"
	"swedana-forms/internal/common/logger"
	"swedana-forms/internal/common/metrics"
	"swedana-forms/internal/common/observability"
	"swedana-forms/internal/common/validation"
	"swedana-forms/internal/formstore"
	"swedana-forms/internal/search"

	cs "swedana-forms/internal/workers/submissions/create-submission"
	ssa "swedana-forms/internal/workers/submissions/send-submission-alert"
	uss "swedana-forms/internal/workers/submissions/update-submission-status"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
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
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}).Named("form-service")
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("form service stopped with error", map[string]interface{}{"error": err})
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	log.Info("Starting form service...", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
		"backend":     cfg.Storage.Backend,
	})

	ctx := context.Background()

	obs := observability.New(cfg.App.Name, nil)
	defer obs.Shutdown()

	storeOpts := []formstore.Option{formstore.WithRecorder(metrics.StoreRecorder{})}

	// --- Search mirror ---
	var searcher api.Searcher
	if cfg.Search.Enabled {
		var esClient *database.ElasticsearchClient
		err := retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 5, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			return err
		}
		mirror := search.NewMirror(esClient.Client, cfg.Search.Index, log.Named("search"))
		if err := mirror.EnsureIndex(ctx); err != nil {
			return fmt.Errorf("ensure search index: %w", err)
		}
		storeOpts = append(storeOpts, formstore.WithObserver(mirror))
		searcher = mirror
		log.Info("Elasticsearch mirror ready", map[string]interface{}{"index": cfg.Search.Index})
	}

	// --- Submission store, retried because networked backends start slowly ---
	var (
		store      *formstore.Store
		closeStore func() error
	)
	err := retryWithBackoff(func() error {
		var err error
		store, closeStore, err = formstore.NewFromConfig(ctx, cfg, log, storeOpts...)
		return err
	}, 10, 2*time.Second, log, "submission store")
	if err != nil {
		return err
	}
	defer closeStore()

	validator, err := validation.NewValidator()
	if err != nil {
		return err
	}

	// --- Operator alerts ---
	var alerts *ssa.Handler
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		clients, err := awsclients.NewClients(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			return err
		}
		alerts = ssa.NewHandler(
			ssa.LoadConfig(cfg.Notifications, config.GetWorkerConfig(cfg, ssa.TaskType)),
			store, clients.SES, clients.SNS, log,
		).WithJobRecorder(obs)
	}

	// --- Camunda ---
	var (
		zeebe   *camunda.Client
		workers []worker.JobWorker
	)
	if cfg.Camunda.Enabled {
		err := retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: cfg.Camunda.Plaintext,
				RequestTimeout:         config.GetDuration(cfg.Camunda.Timeout),
			})
			return err
		}, 10, 2*time.Second, log, "Zeebe client initialization")
		if err != nil {
			return err
		}
		defer zeebe.Close()
		log.Info("Zeebe client connected successfully", nil)

		workers = startWorkers(cfg, zeebe, store, validator, alerts, obs, log)
	}

	// --- HTTP ---
	opts := api.Options{
		Store:          store,
		Validator:      validator,
		Logger:         log,
		Search:         searcher,
		Observability:  obs,
		ExportLocation: cfg.Export.ExportLocation(),
	}
	if alerts != nil {
		opts.Notifier = alerts
	}
	if zeebe != nil && cfg.Camunda.ProcessID != "" {
		opts.Workflow = zeebe
		opts.ProcessID = cfg.Camunda.ProcessID
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.NewRouter(opts),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutdown signal received", map[string]interface{}{"signal": sig.String()})
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", map[string]interface{}{"error": err})
	}
	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}

	log.Info("Form service stopped gracefully", nil)
	return nil
}

func startWorkers(
	cfg *config.Config,
	zeebe *camunda.Client,
	store *formstore.Store,
	validator *validation.Validator,
	alerts *ssa.Handler,
	obs *observability.Observability,
	log logger.Logger,
) []worker.JobWorker {
	var started []worker.JobWorker
	add := func(w worker.JobWorker) {
		if w != nil {
			started = append(started, w)
		}
	}

	createCfg := config.GetWorkerConfig(cfg, cs.TaskType)
	add(camunda.StartWorker(zeebe.GetClient(), cs.TaskType, createCfg,
		cs.NewHandler(cs.LoadConfig(createCfg), store, validator, log).WithJobRecorder(obs), log))

	statusCfg := config.GetWorkerConfig(cfg, uss.TaskType)
	add(camunda.StartWorker(zeebe.GetClient(), uss.TaskType, statusCfg,
		uss.NewHandler(uss.LoadConfig(statusCfg), store, log).WithJobRecorder(obs), log))

	if alerts != nil {
		add(camunda.StartWorker(zeebe.GetClient(), ssa.TaskType, config.GetWorkerConfig(cfg, ssa.TaskType), alerts, log))
	} else {
		log.Info("worker disabled", map[string]interface{}{"taskType": ssa.TaskType, "reason": "notifications off"})
	}

	log.Info("Camunda workers started", map[string]interface{}{"count": len(started)})
	return started
}
