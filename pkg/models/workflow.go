// Package models defines the core domain models for workflow automation
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft  WorkflowStatus = "draft"  // Editable, not executable
	WorkflowStatusActive WorkflowStatus = "active" // Executable, triggers armed
	WorkflowStatusPaused WorkflowStatus = "paused" // Configured but not triggering
)

// Workflow represents an automation definition owned by an organization.
// Executions read a snapshot of the workflow; the record itself is only
// mutated through explicit lifecycle operations.
type Workflow struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id" validate:"required"`
	Name           string         `json:"name"            validate:"required,min=1"`
	Description    string         `json:"description"`
	Steps          Steps          `json:"steps"`
	Triggers       []*Trigger     `json:"triggers"`
	Status         WorkflowStatus `json:"status"`
	ExecutionCount int64          `json:"execution_count"`
	LastExecuted   *time.Time     `json:"last_executed,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	PausedAt       *time.Time     `json:"paused_at,omitempty"`
}
