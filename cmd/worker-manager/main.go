// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"card-approval-workers/internal/cardapproval"
	"card-approval-workers/internal/common/camunda"
	"card-approval-workers/internal/common/config"
	"card-approval-workers/internal/common/logger"
	"card-approval-workers/internal/common/observability"
	"card-approval-workers/pkg/registry"

	approve "card-approval-workers/internal/workers/card/approve-card-requests"
	reject "card-approval-workers/internal/workers/card/reject-card-requests"
)

func main() {
	bootLog := logger.New("info", "console")
	defer bootLog.Sync()

	bootLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output).
		With(zap.String("app", cfg.App.Name), zap.String("version", cfg.App.Version))
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if err := run(cfg, log); err != nil {
		zapLog.Fatal("worker manager failed", zap.Error(err))
	}
	zapLog.Info("Worker manager stopped gracefully")
}

func run(cfg *config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	// --- Activity registry ---
	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	activities := make(map[string]*registry.Activity)
	for _, taskType := range []string{approve.TaskType, reject.TaskType} {
		activity, err := checkRegistered(reg, taskType)
		if err != nil {
			return err
		}
		activities[taskType] = activity
		log.Info("Activity registered", map[string]interface{}{
			"taskType": taskType,
			"activity": activity.ID,
			"version":  activity.Version,
		})
	}

	// --- Criteria table ---
	criteria, sources, err := loadCriteria(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("load card criteria: %w", err)
	}
	defer sources.Close()
	log.Info("Card criteria ready", map[string]interface{}{
		"source": cfg.Approval.CriteriaSource,
		"tiers":  criteria.Len(),
	})

	// --- Pipeline ---
	pipeline, err := cardapproval.NewPipeline(cardapproval.PipelineOptions{
		Source:   cardapproval.NewOSSource(cfg.Approval.DataDir),
		Parser:   cardapproval.NewParser(cfg.Approval),
		Criteria: criteria,
		Logger:   log.WithFields(map[string]interface{}{"component": "pipeline"}),
		Recorder: obs,
	})
	if err != nil {
		return err
	}

	// --- Zeebe client with retry ---
	zeebe, err := camunda.NewClientWithConfig(ctx, camunda.ClientConfigFrom(cfg.Camunda), log)
	if err != nil {
		return fmt.Errorf("zeebe client failed after retries: %w", err)
	}
	defer zeebe.Close()
	log.Info("Zeebe client connected successfully", map[string]interface{}{
		"gateway": cfg.Camunda.BrokerAddress,
	})

	// --- Workers ---
	workers := camunda.NewWorkers(log)
	defer workers.Close()

	approveHandler, err := approve.NewHandler(approve.HandlerOptions{
		AppConfig: cfg,
		Approver:  pipeline,
		Logger:    log,
		Activity:  activities[approve.TaskType],
	})
	if err != nil {
		return err
	}
	workers.Start(zeebe.GetClient(), approve.TaskType, config.GetWorkerConfig(cfg, approve.ConfigKey), approveHandler.Handle)

	rejectHandler, err := reject.NewHandler(reject.HandlerOptions{
		AppConfig: cfg,
		Rejecter:  pipeline,
		Logger:    log,
		Activity:  activities[reject.TaskType],
	})
	if err != nil {
		return err
	}
	workers.Start(zeebe.GetClient(), reject.TaskType, config.GetWorkerConfig(cfg, reject.ConfigKey), rejectHandler.Handle)

	log.Info("Workers registered", map[string]interface{}{"count": workers.Count()})

	// --- Health & Metrics Server ---
	server := &http.Server{
		Addr: cfg.Server.Address,
		Handler: newHealthMux(func(ctx context.Context) error {
			if workers.Count() == 0 {
				return fmt.Errorf("no workers running")
			}
			if err := zeebe.HealthCheck(ctx); err != nil {
				return err
			}
			return sources.Ping(ctx)
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Health/Metrics server listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// --- Graceful Shutdown ---
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received, stopping workers...", nil)
	case err := <-serverErr:
		log.WithError(err).Error("Health/Metrics server failed", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error stopping health server", nil)
	}
	return nil
}
