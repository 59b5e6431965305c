package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"card-approval-workers/internal/cardapproval"
	"card-approval-workers/internal/common/camunda"
	"card-approval-workers/internal/common/config"
	"card-approval-workers/internal/common/database"
	"card-approval-workers/internal/common/errors"
	"card-approval-workers/internal/common/logger"
	"card-approval-workers/internal/common/validation"
	"card-approval-workers/pkg/registry"
)

// checkRegistered refuses task types that are missing from the activity
// registry, not yet implemented, or badly named.
func checkRegistered(reg *registry.ActivityRegistry, taskType string) (*registry.Activity, error) {
	if err := validation.ValidateActivityNaming(taskType); err != nil {
		return nil, fmt.Errorf("task type %s: %w", taskType, err)
	}
	activity, ok := reg.FindByTaskType(taskType)
	if !ok {
		return nil, fmt.Errorf("task type %s is not in the activity registry", taskType)
	}
	if !activity.Runnable() {
		return nil, fmt.Errorf("activity %s has status %q", activity.ID, activity.ImplementationStatus)
	}
	return activity, nil
}

func loadRegistry(cfg *config.Config) (*registry.ActivityRegistry, error) {
	path := cfg.Registry.Path
	if path == "" {
		path = registry.DefaultPath
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load activity registry %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid activity registry %s: %w", path, err)
	}
	return reg, nil
}

// criteriaSources holds the connections opened for the criteria store.
type criteriaSources struct {
	postgres *database.PostgresClient
	redis    *database.RedisClient
}

func (s *criteriaSources) Close() {
	if s == nil {
		return
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if s.postgres != nil {
		s.postgres.Close()
	}
}

// loadCriteria builds the tier table for the configured criteria source.
// With the postgres source the database must be reachable; Redis is only a
// cache and is skipped when it cannot be reached.
func loadCriteria(ctx context.Context, cfg *config.Config, log logger.Logger) (*cardapproval.Criteria, *criteriaSources, error) {
	fallback, err := cardapproval.CriteriaFromConfig(cfg.Approval.Tiers)
	if err != nil {
		return nil, nil, err
	}

	sources := &criteriaSources{}
	opts := cardapproval.CriteriaStoreOptions{
		Fallback: fallback,
		CacheTTL: cfg.Approval.CacheTTL(),
		Logger:   log.WithFields(map[string]interface{}{"component": "criteria-store"}),
	}

	if cfg.Approval.CriteriaSource == config.CriteriaSourcePostgres {
		_, err := camunda.Retry(ctx, camunda.DefaultRetryConfig, log, "PostgreSQL connection",
			func(error) bool { return true },
			func(ctx context.Context) error {
				pg, err := database.ConnectPostgres(ctx, cfg.Database.Postgres)
				if err != nil {
					return err
				}
				sources.postgres = pg
				return nil
			})
		if err != nil {
			return nil, nil, fmt.Errorf("postgres failed after retries: %w", err)
		}
		opts.DB = sources.postgres.DB
		log.Info("PostgreSQL connected successfully", nil)

		if cfg.Database.Redis.Enabled() {
			rc, err := database.ConnectRedis(ctx, cfg.Database.Redis)
			if err != nil {
				log.WithError(err).Warn("Redis unavailable, loading criteria without cache", nil)
			} else {
				sources.redis = rc
				opts.Cache = rc.Client
				log.Info("Redis connected successfully", nil)
			}
		}
	}

	store := cardapproval.NewCriteriaStore(opts)

	var criteria *cardapproval.Criteria
	_, err = camunda.Retry(ctx, camunda.DefaultRetryConfig, log, "criteria load",
		func(err error) bool { return errors.IsRetryableErrorCode(errors.CodeOf(err)) },
		func(ctx context.Context) error {
			var err error
			criteria, err = store.Load(ctx)
			return err
		})
	if err != nil {
		sources.Close()
		return nil, nil, err
	}
	return criteria, sources, nil
}

// Ping checks the criteria database when one is in use. The cache is not
// part of readiness.
func (s *criteriaSources) Ping(ctx context.Context) error {
	if s == nil || s.postgres == nil {
		return nil
	}
	return s.postgres.Ping(ctx)
}

// newHealthMux serves liveness, readiness and Prometheus metrics. ready is
// called on every /ready request.
func newHealthMux(ready func(ctx context.Context) error) *http.ServeMux {
	mux := http.NewServeMux()

	writeStatus := func(w http.ResponseWriter, code int, body map[string]string) {
		body["time"] = time.Now().Format(time.RFC3339)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(body)
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeStatus(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}
