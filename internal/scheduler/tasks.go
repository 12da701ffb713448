// Package scheduler moves workflow emissions and engagement writes off the
// request path through an asynq task queue.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskWorkflowEmit = "workflow.emit"

const TaskEngagementRecord = "engagement.record"

// WorkflowEmitPayload is one event destined for the automation engine.
type WorkflowEmitPayload struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload"`
}

// EngagementRecordPayload is one visitor activity write.
type EngagementRecordPayload struct {
	VisitorID string  `json:"visitorId"`
	PageID    *string `json:"pageId,omitempty"`
	EventType string  `json:"eventType"`
}

func NewWorkflowEmitTask(payload WorkflowEmitPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWorkflowEmit, data), nil
}

func ParseWorkflowEmitPayload(task *asynq.Task) (WorkflowEmitPayload, error) {
	var payload WorkflowEmitPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return WorkflowEmitPayload{}, err
	}
	return payload, nil
}

func NewEngagementRecordTask(payload EngagementRecordPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEngagementRecord, data), nil
}

func ParseEngagementRecordPayload(task *asynq.Task) (EngagementRecordPayload, error) {
	var payload EngagementRecordPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return EngagementRecordPayload{}, err
	}
	return payload, nil
}
