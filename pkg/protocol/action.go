// Package protocol defines the interfaces between the engine core and
// its pluggable collaborators.
package protocol

import (
	"context"
	"log/slog"

	"github.com/botweaver/botweaver/pkg/models"
)

// Action performs the real-world side effect behind an action step.
type Action interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error)
}

// ActionFactory builds actions from per-step configuration.
type ActionFactory interface {
	Create(config map[string]any) (Action, error)
	ID() string
	Schema() map[string]any
}

// ActionExecutor is the single entry point the step interpreter calls for
// action steps. The engine requires nothing beyond this contract; retry
// policy, if any, lives behind it.
type ActionExecutor interface {
	Execute(ctx context.Context, actionType string, params map[string]any, executionCtx models.ExecutionContext) (any, error)
}
