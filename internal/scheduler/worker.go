package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	visitorsrepo "casaviva_backend/internal/visitors/repository"
	"casaviva_backend/internal/workflow"
	"casaviva_backend/platform/config"
	"casaviva_backend/platform/logger"
)

// Worker drains the task queue: workflow emissions go out over the
// webhook, engagement records land in Postgres.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	visitors *visitorsrepo.Repository
	workflow *workflow.Client
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, wf *workflow.Client, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		visitors: visitorsrepo.New(pool),
		workflow: wf,
		log:      log,
	}

	mux.HandleFunc(TaskWorkflowEmit, w.handleWorkflowEmit)
	mux.HandleFunc(TaskEngagementRecord, w.handleEngagementRecord)

	return w, nil
}

// Run blocks processing tasks until Shutdown is called.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

// handleWorkflowEmit delivers one event to the automation engine. Errors
// propagate so asynq retries with backoff; a deployment without a webhook
// URL acks the task instead of retrying forever.
func (w *Worker) handleWorkflowEmit(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseWorkflowEmitPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	if w.workflow == nil {
		w.log.Warn("workflow emission dropped, no webhook configured", "event", payload.Event)
		return nil
	}

	if err := w.workflow.Emit(ctx, payload.Event, payload.Payload); err != nil {
		w.log.DispatchFailure(payload.Event, err)
		return err
	}
	return nil
}

func (w *Worker) handleEngagementRecord(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseEngagementRecordPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	visitorID, err := uuid.Parse(payload.VisitorID)
	if err != nil {
		return fmt.Errorf("%w: bad visitor id: %v", asynq.SkipRetry, err)
	}

	var pageID *uuid.UUID
	if payload.PageID != nil {
		id, err := uuid.Parse(*payload.PageID)
		if err == nil {
			pageID = &id
		}
	}

	params := visitorsrepo.UpsertParams{ID: visitorID, PageID: pageID}
	if err := w.visitors.RecordFunnelEvent(ctx, params, payload.EventType); err != nil {
		w.log.DatabaseError("record funnel event", err)
		return err
	}
	return nil
}
