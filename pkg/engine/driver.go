package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/botweaver/botweaver/pkg/eventbus"
	"github.com/botweaver/botweaver/pkg/events"
	"github.com/botweaver/botweaver/pkg/models"
	"github.com/botweaver/botweaver/pkg/otelhelper"
	"github.com/botweaver/botweaver/pkg/persistence"
	"github.com/botweaver/botweaver/pkg/protocol"
)

const (
	// DefaultMaxLoopIterations bounds every loop step. Exhaustion is a
	// normal termination.
	DefaultMaxLoopIterations = 1000

	// MaxChainDepth bounds step tree nesting across condition branches
	// and loop bodies.
	MaxChainDepth = 100
)

// Option configures a Driver.
type Option func(*Driver)

func WithClock(clock protocol.Clock) Option {
	return func(d *Driver) { d.clock = clock }
}

func WithMaxLoopIterations(max int) Option {
	return func(d *Driver) { d.maxLoopIterations = max }
}

func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(d *Driver) { d.publisher = publisher }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(d *Driver) { d.tracer = tracer }
}

// Driver runs a workflow's step tree end to end, threading the execution
// context step to step and finalizing exactly one execution record.
type Driver struct {
	interpreter       *Interpreter
	store             persistence.Persistence
	inflight          *InFlight
	clock             protocol.Clock
	logger            *slog.Logger
	publisher         eventbus.EventPublisher
	tracer            trace.Tracer
	maxLoopIterations int
}

func NewDriver(executor protocol.ActionExecutor, store persistence.Persistence, logger *slog.Logger, opts ...Option) *Driver {
	driver := &Driver{
		store:             store,
		inflight:          NewInFlight(),
		clock:             protocol.SystemClock{},
		logger:            logger.With("module", "execution_driver"),
		tracer:            otel.Tracer("botweaver.engine"),
		maxLoopIterations: DefaultMaxLoopIterations,
	}

	for _, opt := range opts {
		opt(driver)
	}

	driver.interpreter = NewInterpreter(executor, driver.clock, driver.maxLoopIterations)

	return driver
}

// InFlight exposes the execution-in-progress tracker consulted by the
// lifecycle manager.
func (d *Driver) InFlight() *InFlight {
	return d.inflight
}

type runState struct {
	workflow *models.Workflow
	record   *models.ExecutionRecord
	logger   *slog.Logger
}

// stepChain is the per-run chain runner handed to the interpreter so
// condition branches and loop bodies reuse the same sequencing logic.
type stepChain struct {
	driver *Driver
	state  *runState
	depth  int
}

func (c stepChain) Run(ctx context.Context, steps models.Steps, executionCtx models.ExecutionContext) (models.ExecutionContext, error) {
	return c.driver.runChain(ctx, c.state, steps, executionCtx, c.depth+1)
}

// Run executes the workflow's top-level step sequence against the seed
// context. The first failing step aborts the run; the record is finalized
// with the context as of just before that step. The step error is also
// returned to the caller.
func (d *Driver) Run(ctx context.Context, workflow *models.Workflow, seed models.ExecutionContext) (*models.ExecutionRecord, error) {
	if seed == nil {
		seed = models.ExecutionContext{}
	}

	startedAt := d.clock.Now()

	record := &models.ExecutionRecord{
		ID:         "exec-" + uuid.New().String(),
		WorkflowID: workflow.ID,
		StartedAt:  startedAt,
		Status:     models.ExecutionStatusRunning,
	}

	state := &runState{
		workflow: workflow,
		record:   record,
		logger: d.logger.With(
			"workflow_id", workflow.ID,
			"execution_id", record.ID,
		),
	}

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "engine.run",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.String(otelhelper.ExecutionIDKey, record.ID),
	)
	defer span.End()

	d.inflight.Begin(workflow.ID)
	defer d.inflight.End(workflow.ID)

	state.logger.Info("Starting workflow execution", "steps", len(workflow.Steps))
	d.appendRunLog(ctx, state, "info", "execution started")
	d.publish(ctx, workflow.ID, events.NewExecutionStarted(record))

	finalCtx, runErr := d.runChain(ctx, state, workflow.Steps, seed, 0)

	finishedAt := d.clock.Now()
	record.FinishedAt = &finishedAt
	record.Duration = finishedAt.Sub(startedAt)
	record.FinalContext = finalCtx

	if runErr != nil {
		record.Status = models.ExecutionStatusError
		record.Error = runErr.Error()

		otelhelper.SetError(span, runErr,
			attribute.String(otelhelper.StepIDKey, record.FailingStepID))

		state.logger.Error("Workflow execution failed",
			"failing_step_id", record.FailingStepID,
			"steps_executed", record.StepsExecuted,
			"error", runErr)
		d.appendRunLog(ctx, state, "error", "execution failed: "+runErr.Error())
		d.publish(ctx, workflow.ID, events.NewExecutionFailed(record))
	} else {
		record.Status = models.ExecutionStatusSuccess

		state.logger.Info("Workflow execution completed",
			"steps_executed", record.StepsExecuted,
			"duration", record.Duration)
		d.appendRunLog(ctx, state, "info", "execution finished")
		d.publish(ctx, workflow.ID, events.NewExecutionCompleted(record))
	}

	if err := d.store.Executions().Append(ctx, record); err != nil {
		return record, fmt.Errorf("failed to persist execution record %s: %w", record.ID, err)
	}

	return record, runErr
}

// runChain is the single recursive step-chain runner used for the top
// level, condition branches and loop bodies. It returns the context as of
// just before the failing step when a step errors.
func (d *Driver) runChain(ctx context.Context, state *runState, steps models.Steps, executionCtx models.ExecutionContext, depth int) (models.ExecutionContext, error) {
	if depth > MaxChainDepth {
		return executionCtx, fmt.Errorf("%w: depth %d exceeds %d", ErrDepthExceeded, depth, MaxChainDepth)
	}

	for _, step := range steps {
		// Cooperative cancellation extension point between steps.
		if err := ctx.Err(); err != nil {
			return executionCtx, fmt.Errorf("%w: execution interrupted: %w", ErrExecution, err)
		}

		result := d.interpreter.ExecuteStep(ctx, step, executionCtx, stepChain{driver: d, state: state, depth: depth})

		d.logStepOutcome(ctx, state, step, result)

		if result.Status == models.StepStatusError {
			if state.record.FailingStepID == "" {
				state.record.FailingStepID = step.StepID()
			}

			// result.Context is the context as of just before the failing
			// step; for nested failures it carries the sub-chain's progress.
			return result.Context, result.Err
		}

		// Skipped action steps count toward the total for observability;
		// their log entries carry a distinct status.
		state.record.StepsExecuted++
		executionCtx = result.Context
	}

	return executionCtx, nil
}

func (d *Driver) logStepOutcome(ctx context.Context, state *runState, step models.Step, result StepResult) {
	level := "info"
	message := "step executed"

	switch result.Status {
	case models.StepStatusSkipped:
		message = "step skipped: condition evaluated to false"
	case models.StepStatusError:
		level = "error"
		message = "step failed: " + result.Err.Error()
	case models.StepStatusExecuted:
		if step.Type() == models.StepTypeLoop {
			message = fmt.Sprintf("step executed: %d iterations", result.Iterations)
		}
	}

	entry := &models.LogEntry{
		ID:          uuid.New().String(),
		WorkflowID:  state.workflow.ID,
		ExecutionID: state.record.ID,
		Timestamp:   d.clock.Now(),
		Level:       level,
		Message:     message,
		StepID:      step.StepID(),
		StepType:    step.Type(),
		Status:      result.Status,
	}

	if err := d.store.Logs().Append(ctx, entry); err != nil {
		state.logger.Warn("Failed to append step log entry", "step_id", step.StepID(), "error", err)
	}
}

func (d *Driver) appendRunLog(ctx context.Context, state *runState, level, message string) {
	entry := &models.LogEntry{
		ID:          uuid.New().String(),
		WorkflowID:  state.workflow.ID,
		ExecutionID: state.record.ID,
		Timestamp:   d.clock.Now(),
		Level:       level,
		Message:     message,
	}

	if err := d.store.Logs().Append(ctx, entry); err != nil {
		state.logger.Warn("Failed to append execution log entry", "error", err)
	}
}

func (d *Driver) publish(ctx context.Context, key string, event eventbus.Event) {
	if d.publisher == nil {
		return
	}

	if err := d.publisher.Publish(ctx, key, event); err != nil {
		d.logger.Warn("Failed to publish execution event", "event_type", event.GetType(), "error", err)
	}
}
