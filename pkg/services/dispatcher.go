// Package services wires the trigger matcher and the execution driver
// into the event-handling path shared by every event source.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/botweaver/botweaver/pkg/engine"
	"github.com/botweaver/botweaver/pkg/models"
	"github.com/botweaver/botweaver/pkg/persistence"
	"github.com/botweaver/botweaver/pkg/trigger"
)

// Dispatcher routes inbound events to matching workflows and runs them.
type Dispatcher struct {
	store   persistence.Persistence
	matcher *trigger.Matcher
	driver  *engine.Driver
	logger  *slog.Logger
}

func NewDispatcher(store persistence.Persistence, matcher *trigger.Matcher, driver *engine.Driver, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		matcher: matcher,
		driver:  driver,
		logger:  logger.With("module", "dispatcher"),
	}
}

// HandleEvent matches the event against every active workflow and runs
// each match. A failed execution does not stop the remaining matches;
// its failure is already captured in the execution record.
func (d *Dispatcher) HandleEvent(ctx context.Context, event *models.Event) ([]*models.ExecutionRecord, error) {
	active := models.WorkflowStatusActive

	workflows, err := d.store.Workflows().ListByOrg(ctx, "", persistence.ListWorkflowsFilter{Status: &active})
	if err != nil {
		return nil, fmt.Errorf("failed to list active workflows: %w", err)
	}

	matches, err := d.matcher.MatchWorkflows(event, workflows)
	if err != nil {
		return nil, fmt.Errorf("failed to match event: %w", err)
	}

	if len(matches) == 0 {
		d.logger.DebugContext(ctx, "Event matched no workflows", "event_type", event.Type)

		return nil, nil
	}

	records := make([]*models.ExecutionRecord, 0, len(matches))

	for _, match := range matches {
		record, runErr := d.driver.Run(ctx, match.Workflow, match.Data)
		if record != nil {
			records = append(records, record)
			d.recordExecution(ctx, match.Workflow.ID, record)
		}

		if runErr != nil {
			d.logger.WarnContext(ctx, "Triggered execution failed",
				"workflow_id", match.Workflow.ID,
				"trigger_id", match.Trigger.ID,
				"error", runErr)
		}
	}

	return records, nil
}

// Execute runs one workflow directly, bypassing trigger matching. The
// API's execute endpoint uses it.
func (d *Dispatcher) Execute(ctx context.Context, workflow *models.Workflow, seed models.ExecutionContext) (*models.ExecutionRecord, error) {
	record, runErr := d.driver.Run(ctx, workflow, seed)
	if record != nil {
		d.recordExecution(ctx, workflow.ID, record)
	}

	return record, runErr
}

// recordExecution bumps the workflow's execution counters. The loaded
// record is re-fetched so a stale snapshot does not clobber concurrent
// lifecycle changes.
func (d *Dispatcher) recordExecution(ctx context.Context, workflowID string, record *models.ExecutionRecord) {
	workflow, err := d.store.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		d.logger.WarnContext(ctx, "Failed to load workflow for counter update",
			"workflow_id", workflowID, "error", err)

		return
	}

	workflow.ExecutionCount++
	startedAt := record.StartedAt
	workflow.LastExecuted = &startedAt

	if err := d.store.Workflows().Save(ctx, workflow); err != nil {
		d.logger.WarnContext(ctx, "Failed to update execution counters",
			"workflow_id", workflowID, "error", err)
	}
}
