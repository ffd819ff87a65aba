// Package engine interprets workflow step trees against a mutable
// execution context.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/botweaver/botweaver/pkg/expr"
	"github.com/botweaver/botweaver/pkg/models"
	"github.com/botweaver/botweaver/pkg/protocol"
)

// StepResultsKey is the context entry under which action responses are
// recorded, keyed by step id.
const StepResultsKey = "steps"

// StepResult is the outcome of interpreting one step.
type StepResult struct {
	Context    models.ExecutionContext
	Status     models.StepStatus
	Err        error
	Iterations int // loop steps only
}

// Chain runs an ordered step sequence. Implemented by the driver's
// step-chain runner; the interpreter calls back into it for condition
// branches and loop bodies.
type Chain interface {
	Run(ctx context.Context, steps models.Steps, executionCtx models.ExecutionContext) (models.ExecutionContext, error)
}

// Interpreter executes a single step. It is stateless and shared across
// concurrent executions.
type Interpreter struct {
	executor          protocol.ActionExecutor
	clock             protocol.Clock
	maxLoopIterations int
}

func NewInterpreter(executor protocol.ActionExecutor, clock protocol.Clock, maxLoopIterations int) *Interpreter {
	return &Interpreter{
		executor:          executor,
		clock:             clock,
		maxLoopIterations: maxLoopIterations,
	}
}

// ExecuteStep interprets one step against the context. The input context
// is never mutated on failure; on success the returned context carries
// any updates.
func (i *Interpreter) ExecuteStep(ctx context.Context, step models.Step, executionCtx models.ExecutionContext, chain Chain) StepResult {
	switch s := step.(type) {
	case *models.ActionStep:
		return i.executeAction(ctx, s, executionCtx)
	case *models.ConditionStep:
		return i.executeCondition(ctx, s, executionCtx, chain)
	case *models.DelayStep:
		return i.executeDelay(ctx, s, executionCtx)
	case *models.LoopStep:
		return i.executeLoop(ctx, s, executionCtx, chain)
	case *models.VariableStep:
		return i.executeVariable(s, executionCtx)
	default:
		return errorResult(executionCtx, fmt.Errorf("%w: unknown step type %T", ErrExecution, step))
	}
}

func (i *Interpreter) executeAction(ctx context.Context, step *models.ActionStep, executionCtx models.ExecutionContext) StepResult {
	if step.Condition != "" {
		shouldExecute, err := expr.Evaluate(step.Condition, executionCtx)
		if err != nil {
			return errorResult(executionCtx, fmt.Errorf("%w: condition for action %s: %w", ErrExecution, step.ID, err))
		}

		if !shouldExecute {
			return StepResult{Context: executionCtx, Status: models.StepStatusSkipped}
		}
	}

	response, err := i.executor.Execute(ctx, step.ActionType, step.Params, executionCtx.Clone())
	if err != nil {
		// No retry and no swallowing: the failure is surfaced as-is.
		return errorResult(executionCtx, fmt.Errorf("%w: action %s (%s): %w", ErrExecution, step.ID, step.ActionType, err))
	}

	updated := executionCtx.Clone()

	results, ok := updated[StepResultsKey].(map[string]any)
	if !ok {
		results = make(map[string]any)
	} else {
		copied := make(map[string]any, len(results))
		for k, v := range results {
			copied[k] = v
		}
		results = copied
	}

	results[step.ID] = response
	updated[StepResultsKey] = results

	return StepResult{Context: updated, Status: models.StepStatusExecuted}
}

func (i *Interpreter) executeCondition(ctx context.Context, step *models.ConditionStep, executionCtx models.ExecutionContext, chain Chain) StepResult {
	branch, err := expr.Evaluate(step.Expression, executionCtx)
	if err != nil {
		return errorResult(executionCtx, fmt.Errorf("%w: condition %s: %w", ErrExecution, step.ID, err))
	}

	steps := step.Else
	if branch {
		steps = step.Then
	}

	// On failure the chain hands back the context it reached, so branch
	// steps that completed before the failing one stay visible.
	merged, err := chain.Run(ctx, steps, executionCtx)
	if err != nil {
		return errorResult(merged, err)
	}

	return StepResult{Context: merged, Status: models.StepStatusExecuted}
}

func (i *Interpreter) executeDelay(ctx context.Context, step *models.DelayStep, executionCtx models.ExecutionContext) StepResult {
	if step.DurationMs < 0 {
		// Validation rejects this before execution; refuse it here too.
		return errorResult(executionCtx, fmt.Errorf("%w: delay %s has negative duration", ErrExecution, step.ID))
	}

	// Cooperative suspension: only this execution waits.
	select {
	case <-i.clock.After(time.Duration(step.DurationMs) * time.Millisecond):
	case <-ctx.Done():
		return errorResult(executionCtx, fmt.Errorf("%w: delay %s interrupted: %w", ErrExecution, step.ID, ctx.Err()))
	}

	return StepResult{Context: executionCtx, Status: models.StepStatusExecuted}
}

func (i *Interpreter) executeLoop(ctx context.Context, step *models.LoopStep, executionCtx models.ExecutionContext, chain Chain) StepResult {
	iterations := 0

	for {
		// Cap exhaustion is a defined termination, not an error; the
		// iteration count makes runaway loops observable to callers.
		if iterations >= i.maxLoopIterations {
			break
		}

		proceed, err := expr.Evaluate(step.Expression, executionCtx)
		if err != nil {
			result := errorResult(executionCtx, fmt.Errorf("%w: loop %s: %w", ErrExecution, step.ID, err))
			result.Iterations = iterations

			return result
		}

		if !proceed {
			break
		}

		merged, err := chain.Run(ctx, step.Body, executionCtx)
		if err != nil {
			// Keep the context reached inside the failing iteration.
			result := errorResult(merged, err)
			result.Iterations = iterations

			return result
		}

		executionCtx = merged
		iterations++
	}

	return StepResult{Context: executionCtx, Status: models.StepStatusExecuted, Iterations: iterations}
}

func (i *Interpreter) executeVariable(step *models.VariableStep, executionCtx models.ExecutionContext) StepResult {
	value := step.Value

	if step.Expression != "" {
		evaluated, err := expr.EvaluateValue(step.Expression, executionCtx)
		if err != nil {
			return errorResult(executionCtx, fmt.Errorf("%w: variable %s: %w", ErrExecution, step.ID, err))
		}

		value = evaluated
	}

	updated := executionCtx.Clone()
	updated[step.Name] = value

	return StepResult{Context: updated, Status: models.StepStatusExecuted}
}

func errorResult(executionCtx models.ExecutionContext, err error) StepResult {
	return StepResult{Context: executionCtx, Status: models.StepStatusError, Err: err}
}
