// Package persistence provides the data storage abstraction for
// workflows, execution records and audit logs.
package persistence

import (
	"context"

	"github.com/botweaver/botweaver/pkg/models"
)

// Persistence is the durable store collaborator. The engine assumes
// single-record atomicity only; no multi-record transactional semantics.
type Persistence interface {
	Workflows() WorkflowRepository
	Executions() ExecutionRepository
	Logs() LogRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListWorkflowsFilter narrows ListByOrg results.
type ListWorkflowsFilter struct {
	Status *models.WorkflowStatus
}

type WorkflowRepository interface {
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
	// ListByOrg returns an organization's workflows. An empty orgID
	// matches every organization; the event dispatch path uses that to
	// sweep all active workflows.
	ListByOrg(ctx context.Context, orgID string, filter ListWorkflowsFilter) ([]*models.Workflow, error)
}

// ExecutionRepository stores finalized execution records. Records are
// append-only; the engine never rewrites one.
type ExecutionRepository interface {
	Append(ctx context.Context, record *models.ExecutionRecord) error
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.ExecutionRecord, error)
}

// LogFilter narrows log queries.
type LogFilter struct {
	ExecutionID string
	Level       string
	Limit       int
}

// LogRepository stores append-only audit entries.
type LogRepository interface {
	Append(ctx context.Context, entry *models.LogEntry) error
	Query(ctx context.Context, workflowID string, filter LogFilter) ([]*models.LogEntry, error)
}
