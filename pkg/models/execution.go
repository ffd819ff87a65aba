package models

import "time"

// ExecutionStatus is the terminal state of one workflow run.
type ExecutionStatus string

const (
	ExecutionStatusRunning ExecutionStatus = "running"
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusError   ExecutionStatus = "error"
)

// StepStatus is the outcome of one step within an execution.
type StepStatus string

const (
	StepStatusExecuted StepStatus = "executed"
	StepStatusSkipped  StepStatus = "skipped"
	StepStatusError    StepStatus = "error"
)

// ExecutionContext is the mutable key-value state threaded through a
// single execution's steps. It is created fresh per execution and never
// shared between concurrent executions.
type ExecutionContext map[string]any

// Clone returns a shallow copy. Each step receives its own top-level map
// so a failing step cannot mutate the context recorded for the run.
func (ec ExecutionContext) Clone() ExecutionContext {
	clone := make(ExecutionContext, len(ec))
	for k, v := range ec {
		clone[k] = v
	}

	return clone
}

// ExecutionRecord captures one run of a workflow's step tree. It is
// created when the run starts, finalized exactly once, and immutable
// thereafter.
type ExecutionRecord struct {
	ID            string           `json:"id"`
	WorkflowID    string           `json:"workflow_id"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    *time.Time       `json:"finished_at,omitempty"`
	Status        ExecutionStatus  `json:"status"`
	StepsExecuted int              `json:"steps_executed"`
	FailingStepID string           `json:"failing_step_id,omitempty"`
	Error         string           `json:"error,omitempty"`
	FinalContext  ExecutionContext `json:"final_context,omitempty"`
	Duration      time.Duration    `json:"duration"`
}
