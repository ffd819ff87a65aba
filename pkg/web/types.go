// Package web provides the HTTP surface of the workflow engine:
// workflow CRUD, lifecycle operations, execution, log queries and the
// webhook receiver.
package web

import "github.com/botweaver/botweaver/pkg/models"

// CreateWorkflowRequest is the request body for creating a workflow.
type CreateWorkflowRequest struct {
	OrganizationID string            `json:"organization_id" validate:"required"`
	Name           string            `json:"name"            validate:"required,min=1"`
	Description    string            `json:"description"`
	Steps          models.Steps      `json:"steps"`
	Triggers       []*models.Trigger `json:"triggers"`
}

// UpdateWorkflowRequest is the request body for partial updates.
type UpdateWorkflowRequest struct {
	Name        *string           `json:"name,omitempty" validate:"omitempty,min=1"`
	Description *string           `json:"description,omitempty"`
	Steps       models.Steps      `json:"steps,omitempty"`
	Triggers    []*models.Trigger `json:"triggers,omitempty"`
}

// CloneWorkflowRequest optionally names the copy.
type CloneWorkflowRequest struct {
	Name string `json:"name,omitempty"`
}

// ExecuteWorkflowRequest seeds the execution context for a direct run.
type ExecuteWorkflowRequest struct {
	Context models.ExecutionContext `json:"context,omitempty"`
}
