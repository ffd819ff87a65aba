// Package workflow manages workflow definitions: creation, validation,
// lifecycle transitions and deletion.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/botweaver/botweaver/pkg/engine"
	"github.com/botweaver/botweaver/pkg/eventbus"
	"github.com/botweaver/botweaver/pkg/events"
	"github.com/botweaver/botweaver/pkg/models"
	"github.com/botweaver/botweaver/pkg/persistence"
	"github.com/botweaver/botweaver/pkg/protocol"
)

type Option func(*Manager)

func WithClock(clock protocol.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(m *Manager) { m.publisher = publisher }
}

// Manager owns all mutations of workflow records. Lifecycle transitions
// are serialized through a single mutex so the precondition re-check
// after load cannot race another transition on the same process.
type Manager struct {
	store     persistence.Persistence
	inFlight  *engine.InFlight
	publisher eventbus.EventPublisher
	clock     protocol.Clock
	logger    *slog.Logger

	mu sync.Mutex
}

func NewManager(store persistence.Persistence, inFlight *engine.InFlight, logger *slog.Logger, opts ...Option) *Manager {
	manager := &Manager{
		store:    store,
		inFlight: inFlight,
		clock:    protocol.SystemClock{},
		logger:   logger.With("module", "workflow_manager"),
	}

	for _, opt := range opts {
		opt(manager)
	}

	return manager
}

// UpdateRequest carries a partial configuration merged onto an existing
// workflow. Nil fields are left untouched.
type UpdateRequest struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	Steps       models.Steps      `json:"steps,omitempty"`
	Triggers    []*models.Trigger `json:"triggers,omitempty"`
}

// Create validates the configuration, assigns an id and stores the
// workflow in the active state.
func (m *Manager) Create(ctx context.Context, orgID string, config *models.Workflow) (*models.Workflow, error) {
	now := m.clock.Now()

	workflow := &models.Workflow{
		ID:             "wf-" + uuid.New().String(),
		OrganizationID: orgID,
		Name:           config.Name,
		Description:    config.Description,
		Steps:          config.Steps,
		Triggers:       config.Triggers,
		Status:         models.WorkflowStatusActive,
		ExecutionCount: 0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if result := ValidateConfig(workflow); !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(result.Errors, "; "))
	}

	if err := m.store.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	m.logger.InfoContext(ctx, "Workflow created",
		"workflow_id", workflow.ID,
		"organization_id", orgID)
	m.publish(ctx, events.NewWorkflowLifecycle(events.WorkflowCreatedEvent, workflow.ID, workflow.Status))

	return workflow, nil
}

// Update merges a partial configuration onto an existing workflow and
// re-validates the merged result before storing it.
func (m *Manager) Update(ctx context.Context, id string, update UpdateRequest) (*models.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	workflow, err := m.store.Workflows().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		workflow.Name = *update.Name
	}

	if update.Description != nil {
		workflow.Description = *update.Description
	}

	if update.Steps != nil {
		workflow.Steps = update.Steps
	}

	if update.Triggers != nil {
		workflow.Triggers = update.Triggers
	}

	if result := ValidateConfig(workflow); !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(result.Errors, "; "))
	}

	workflow.UpdatedAt = m.clock.Now()

	if err := m.store.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	m.logger.InfoContext(ctx, "Workflow updated", "workflow_id", id)
	m.publish(ctx, events.NewWorkflowLifecycle(events.WorkflowUpdatedEvent, id, workflow.Status))

	return workflow, nil
}

// Activate transitions a draft workflow into the active state.
func (m *Manager) Activate(ctx context.Context, id string) (*models.Workflow, error) {
	return m.transition(ctx, id, models.WorkflowStatusDraft, models.WorkflowStatusActive, events.WorkflowResumedEvent)
}

// Pause transitions an active workflow into the paused state. Pausing a
// workflow that is not active fails with ErrInvalidState.
func (m *Manager) Pause(ctx context.Context, id string) (*models.Workflow, error) {
	return m.transition(ctx, id, models.WorkflowStatusActive, models.WorkflowStatusPaused, events.WorkflowPausedEvent)
}

// Resume transitions a paused workflow back to active.
func (m *Manager) Resume(ctx context.Context, id string) (*models.Workflow, error) {
	return m.transition(ctx, id, models.WorkflowStatusPaused, models.WorkflowStatusActive, events.WorkflowResumedEvent)
}

// transition applies a status change guarded by a precondition on the
// current status, so a transition losing a race fails instead of
// silently overwriting the winner.
func (m *Manager) transition(ctx context.Context, id string, from, to models.WorkflowStatus, eventType events.EventType) (*models.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	workflow, err := m.store.Workflows().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow.Status != from {
		return nil, fmt.Errorf("%w: workflow %s is %s, expected %s", ErrInvalidState, id, workflow.Status, from)
	}

	now := m.clock.Now()
	workflow.Status = to
	workflow.UpdatedAt = now

	if to == models.WorkflowStatusPaused {
		workflow.PausedAt = &now
	} else {
		workflow.PausedAt = nil
	}

	if err := m.store.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	m.logger.InfoContext(ctx, "Workflow transitioned",
		"workflow_id", id,
		"from", from,
		"to", to)
	m.publish(ctx, events.NewWorkflowLifecycle(eventType, id, to))

	return workflow, nil
}

// Delete removes a workflow. Deletion is rejected while an execution is
// in flight. Prior execution records are retained for audit.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inFlight != nil && m.inFlight.IsRunning(id) {
		return fmt.Errorf("%w: workflow %s has a running execution", ErrInvalidState, id)
	}

	if _, err := m.store.Workflows().GetByID(ctx, id); err != nil {
		return err
	}

	records, err := m.store.Executions().ListByWorkflow(ctx, id)
	if err != nil {
		m.logger.WarnContext(ctx, "Failed to list executions before delete",
			"workflow_id", id, "error", err)
	} else if len(records) > 0 {
		m.logger.WarnContext(ctx, "Deleting workflow with prior executions, records are retained",
			"workflow_id", id,
			"executions", len(records))
	}

	if err := m.store.Workflows().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	m.logger.InfoContext(ctx, "Workflow deleted", "workflow_id", id)
	m.publish(ctx, events.NewWorkflowLifecycle(events.WorkflowDeletedEvent, id, ""))

	return nil
}

// Clone deep-copies a workflow under a new id, resetting its execution
// counters. An empty newName defaults to "<original> Copy".
func (m *Manager) Clone(ctx context.Context, id, newName string) (*models.Workflow, error) {
	original, err := m.store.Workflows().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	clone, err := deepCopy(original)
	if err != nil {
		return nil, fmt.Errorf("failed to copy workflow %s: %w", id, err)
	}

	if newName == "" {
		newName = original.Name + " Copy"
	}

	now := m.clock.Now()
	clone.ID = "wf-" + uuid.New().String()
	clone.Name = newName
	clone.ExecutionCount = 0
	clone.LastExecuted = nil
	clone.CreatedAt = now
	clone.UpdatedAt = now

	if err := m.store.Workflows().Save(ctx, clone); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	m.logger.InfoContext(ctx, "Workflow cloned",
		"source_id", id,
		"workflow_id", clone.ID)
	m.publish(ctx, events.NewWorkflowLifecycle(events.WorkflowCreatedEvent, clone.ID, clone.Status))

	return clone, nil
}

// Get fetches a single workflow by id.
func (m *Manager) Get(ctx context.Context, id string) (*models.Workflow, error) {
	return m.store.Workflows().GetByID(ctx, id)
}

// List fetches an organization's workflows, optionally filtered by status.
func (m *Manager) List(ctx context.Context, orgID string, filter persistence.ListWorkflowsFilter) ([]*models.Workflow, error) {
	return m.store.Workflows().ListByOrg(ctx, orgID, filter)
}

// deepCopy clones through JSON so nested steps and triggers share no
// pointers with the original.
func deepCopy(workflow *models.Workflow) (*models.Workflow, error) {
	data, err := json.Marshal(workflow)
	if err != nil {
		return nil, err
	}

	var clone models.Workflow
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, err
	}

	return &clone, nil
}

func (m *Manager) publish(ctx context.Context, event *events.WorkflowLifecycle) {
	if m.publisher == nil {
		return
	}

	if err := m.publisher.Publish(ctx, event.WorkflowID, event); err != nil {
		m.logger.WarnContext(ctx, "Failed to publish lifecycle event",
			"workflow_id", event.WorkflowID,
			"event_type", event.GetType(),
			"error", err)
	}
}
