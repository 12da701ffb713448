package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"casaviva_backend/internal/conversation"
	conversationservice "casaviva_backend/internal/conversation/service"
	"casaviva_backend/internal/events"
	apphttp "casaviva_backend/internal/http"
	"casaviva_backend/internal/http/router"
	"casaviva_backend/internal/leads"
	leadsservice "casaviva_backend/internal/leads/service"
	"casaviva_backend/internal/pages"
	"casaviva_backend/internal/scheduler"
	"casaviva_backend/internal/visitors"
	"casaviva_backend/internal/workflow"
	"casaviva_backend/platform/ai/completion"
	"casaviva_backend/platform/config"
	"casaviva_backend/platform/db"
	"casaviva_backend/platform/logger"
	"casaviva_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	completionClient := completion.NewClient(completion.Config{
		APIKey:  cfg.GetModelAPIKey(),
		BaseURL: cfg.GetModelBaseURL(),
		Model:   cfg.GetModelName(),
		Timeout: cfg.GetModelTimeout(),
	})

	personas, err := conversationservice.LoadPersonaConfig(cfg.GetPersonaConfigPath())
	if err != nil {
		log.Error("failed to load persona config", "error", err)
		panic("failed to load persona config: " + err.Error())
	}

	workflowClient := workflow.NewClient(cfg, log)
	if workflowClient == nil {
		log.Warn("WORKFLOW_WEBHOOK_URL not configured; lead events will not reach the automation engine")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	pagesModule := pages.NewModule(pool, val)
	visitorsModule := visitors.NewModule(pool, eventBus, val, log)

	// With Redis available, workflow emissions and engagement writes go
	// through the task queue and get its retry policy. Without it both
	// run inline.
	var dispatcher leadsservice.Dispatcher
	var engagement conversationservice.EngagementRecorder
	switch {
	case cfg.GetRedisURL() != "":
		queueClient, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize task queue client", "error", err)
			panic("failed to initialize task queue client: " + err.Error())
		}
		defer func() {
			_ = queueClient.Close()
		}()
		dispatcher = queueClient
		engagement = queueClient
		log.Info("task queue client initialized")
	case workflowClient != nil:
		log.Warn("REDIS_URL not configured; dispatching workflow events inline")
		dispatcher = workflowClient
		engagement = visitorsModule.Service()
	default:
		dispatcher = noopDispatcher{log: log}
		engagement = visitorsModule.Service()
	}

	conversationModule := conversation.NewModule(
		pool, eventBus, completionClient, pagesModule.Service(), engagement, personas, val, log,
	)

	leadsModule := leads.NewModule(
		pool, eventBus, completionClient, conversationModule.Service(), dispatcher, pagesModule.Service(), cfg, log,
	)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			pagesModule,
			visitorsModule,
			conversationModule,
			leadsModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// noopDispatcher drops events in deployments with neither a task queue
// nor a webhook, logging so the gap is visible.
type noopDispatcher struct {
	log *logger.Logger
}

func (d noopDispatcher) Dispatch(_ context.Context, event string, _ map[string]any) error {
	d.log.Warn("workflow event dropped, no dispatcher configured", "event", event)
	return nil
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
