// Package memory provides an in-memory persistence implementation, used
// by embedded deployments and tests.
package memory

import (
	"context"
	"sync"

	"github.com/botweaver/botweaver/pkg/models"
	"github.com/botweaver/botweaver/pkg/persistence"
)

// Persistence implements persistence.Persistence with plain maps guarded
// by a mutex. Nothing survives a restart.
type Persistence struct {
	mu         sync.RWMutex
	workflows  map[string]*models.Workflow
	executions map[string][]*models.ExecutionRecord
	logs       map[string][]*models.LogEntry
}

func NewPersistence() *Persistence {
	return &Persistence{
		workflows:  make(map[string]*models.Workflow),
		executions: make(map[string][]*models.ExecutionRecord),
		logs:       make(map[string][]*models.LogEntry),
	}
}

func (mp *Persistence) Workflows() persistence.WorkflowRepository {
	return (*workflowRepository)(mp)
}

func (mp *Persistence) Executions() persistence.ExecutionRepository {
	return (*executionRepository)(mp)
}

func (mp *Persistence) Logs() persistence.LogRepository {
	return (*logRepository)(mp)
}

func (mp *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

func (mp *Persistence) Close(_ context.Context) error {
	return nil
}

type workflowRepository Persistence

func (wr *workflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()

	workflow, ok := wr.workflows[id]
	if !ok {
		return nil, persistence.ErrWorkflowNotFound
	}

	clone := *workflow

	return &clone, nil
}

func (wr *workflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	clone := *workflow
	wr.workflows[workflow.ID] = &clone

	return nil
}

func (wr *workflowRepository) Delete(_ context.Context, id string) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	if _, ok := wr.workflows[id]; !ok {
		return persistence.ErrWorkflowNotFound
	}

	delete(wr.workflows, id)

	return nil
}

func (wr *workflowRepository) ListByOrg(_ context.Context, orgID string, filter persistence.ListWorkflowsFilter) ([]*models.Workflow, error) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()

	workflows := make([]*models.Workflow, 0)

	for _, workflow := range wr.workflows {
		if orgID != "" && workflow.OrganizationID != orgID {
			continue
		}

		if filter.Status != nil && workflow.Status != *filter.Status {
			continue
		}

		clone := *workflow
		workflows = append(workflows, &clone)
	}

	return workflows, nil
}

type executionRepository Persistence

func (er *executionRepository) Append(_ context.Context, record *models.ExecutionRecord) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	er.executions[record.WorkflowID] = append(er.executions[record.WorkflowID], record)

	return nil
}

func (er *executionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.ExecutionRecord, error) {
	er.mu.RLock()
	defer er.mu.RUnlock()

	records := er.executions[workflowID]

	return append([]*models.ExecutionRecord{}, records...), nil
}

type logRepository Persistence

func (lr *logRepository) Append(_ context.Context, entry *models.LogEntry) error {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	lr.logs[entry.WorkflowID] = append(lr.logs[entry.WorkflowID], entry)

	return nil
}

func (lr *logRepository) Query(_ context.Context, workflowID string, filter persistence.LogFilter) ([]*models.LogEntry, error) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()

	entries := make([]*models.LogEntry, 0)

	for _, entry := range lr.logs[workflowID] {
		if filter.ExecutionID != "" && entry.ExecutionID != filter.ExecutionID {
			continue
		}

		if filter.Level != "" && entry.Level != filter.Level {
			continue
		}

		entries = append(entries, entry)

		if filter.Limit > 0 && len(entries) >= filter.Limit {
			break
		}
	}

	return entries, nil
}
