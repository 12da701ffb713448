package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"casaviva_backend/platform/config"
)

// Client enqueues background tasks. It satisfies both the qualifier's
// Dispatcher port and the conversation module's EngagementRecorder port,
// so offloading work to the queue is a wiring choice in main, not a code
// change in the modules.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Dispatch enqueues a workflow emission with the queue's retry policy.
func (c *Client) Dispatch(ctx context.Context, event string, payload map[string]any) error {
	task, err := NewWorkflowEmitTask(WorkflowEmitPayload{Event: event, Payload: payload})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(5))
	return err
}

// RecordEngagement enqueues a visitor activity write.
func (c *Client) RecordEngagement(ctx context.Context, visitorID uuid.UUID, pageID *uuid.UUID, eventType string) error {
	payload := EngagementRecordPayload{
		VisitorID: visitorID.String(),
		EventType: eventType,
	}
	if pageID != nil {
		s := pageID.String()
		payload.PageID = &s
	}

	task, err := NewEngagementRecordTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return "default"
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
