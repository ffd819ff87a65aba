package models

import "time"

// LogEntry is one append-only audit record. Entries are emitted per step
// outcome and per execution start/finish, and never mutated or deleted by
// the engine.
type LogEntry struct {
	ID          string     `json:"id"`
	WorkflowID  string     `json:"workflow_id"`
	ExecutionID string     `json:"execution_id,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
	Level       string     `json:"level"`
	Message     string     `json:"message"`
	StepID      string     `json:"step_id,omitempty"`
	StepType    StepType   `json:"step_type,omitempty"`
	Status      StepStatus `json:"status,omitempty"`
}
