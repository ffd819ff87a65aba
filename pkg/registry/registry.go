// Package registry holds the action factories available to a deployment
// and executes action steps through them.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/botweaver/botweaver/pkg/models"
	"github.com/botweaver/botweaver/pkg/protocol"
)

type Registry struct {
	logger          *slog.Logger
	actionFactories map[string]protocol.ActionFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:          logger.With("module", "registry"),
		actionFactories: make(map[string]protocol.ActionFactory),
	}
}

func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	r.actionFactories[factory.ID()] = factory
}

// AvailableActions lists registered action type ids.
func (r *Registry) AvailableActions() []string {
	types := make([]string, 0, len(r.actionFactories))
	for actionType := range r.actionFactories {
		types = append(types, actionType)
	}

	return types
}

// ActionSchema returns the config schema for a registered action type.
func (r *Registry) ActionSchema(actionType string) (map[string]any, error) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type %q not registered", actionType)
	}

	return factory.Schema(), nil
}

// CreateAction validates the configuration against the factory's schema
// and builds the action.
func (r *Registry) CreateAction(actionType string, config map[string]any) (protocol.Action, error) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type %q not registered", actionType)
	}

	if err := validateConfig(factory.Schema(), config); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", actionType, err)
	}

	return factory.Create(config)
}

// Execute builds and runs the action for a step. This is the engine's
// Action Executor.
func (r *Registry) Execute(ctx context.Context, actionType string, params map[string]any, executionCtx models.ExecutionContext) (any, error) {
	action, err := r.CreateAction(actionType, params)
	if err != nil {
		return nil, err
	}

	return action.Execute(ctx, executionCtx, r.logger.With("action_type", actionType))
}

func validateConfig(schema, config map[string]any) error {
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}

	return nil
}
