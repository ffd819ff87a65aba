// Package events defines event types for workflow and execution
// lifecycle notifications.
package events

import (
	"time"

	"github.com/botweaver/botweaver/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic is the bus topic all botweaver events are published on.
const Topic = "botweaver.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"

	// Workflow lifecycle events.
	WorkflowCreatedEvent EventType = "workflow.created"
	WorkflowUpdatedEvent EventType = "workflow.updated"
	WorkflowPausedEvent  EventType = "workflow.paused"
	WorkflowResumedEvent EventType = "workflow.resumed"
	WorkflowDeletedEvent EventType = "workflow.deleted"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
}

func newBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
}

func NewExecutionStarted(record *models.ExecutionRecord) *ExecutionStarted {
	return &ExecutionStarted{
		BaseEvent:   newBaseEvent(ExecutionStartedEvent, record.WorkflowID),
		ExecutionID: record.ID,
	}
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID   string        `json:"execution_id"`
	StepsExecuted int           `json:"steps_executed"`
	Duration      time.Duration `json:"duration"`
}

func NewExecutionCompleted(record *models.ExecutionRecord) *ExecutionCompleted {
	return &ExecutionCompleted{
		BaseEvent:     newBaseEvent(ExecutionCompletedEvent, record.WorkflowID),
		ExecutionID:   record.ID,
		StepsExecuted: record.StepsExecuted,
		Duration:      record.Duration,
	}
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID   string `json:"execution_id"`
	FailingStepID string `json:"failing_step_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

func NewExecutionFailed(record *models.ExecutionRecord) *ExecutionFailed {
	return &ExecutionFailed{
		BaseEvent:     newBaseEvent(ExecutionFailedEvent, record.WorkflowID),
		ExecutionID:   record.ID,
		FailingStepID: record.FailingStepID,
		Error:         record.Error,
	}
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

// WorkflowLifecycle notifies create/update/pause/resume/delete
// transitions applied by the lifecycle manager.
type WorkflowLifecycle struct {
	BaseEvent

	Status models.WorkflowStatus `json:"status,omitempty"`
}

func NewWorkflowLifecycle(eventType EventType, workflowID string, status models.WorkflowStatus) *WorkflowLifecycle {
	return &WorkflowLifecycle{
		BaseEvent: newBaseEvent(eventType, workflowID),
		Status:    status,
	}
}

func (e WorkflowLifecycle) GetType() EventType {
	return e.Type
}
