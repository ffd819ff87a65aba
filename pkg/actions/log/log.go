// Package log implements the built-in log action.
package log

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/botweaver/botweaver/pkg/models"
	"github.com/botweaver/botweaver/pkg/protocol"
	"github.com/botweaver/botweaver/pkg/template"
)

type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "log"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	if config == nil {
		config = map[string]any{}
	}

	message, _ := config["message"].(string)
	if message == "" {
		return nil, fmt.Errorf("log action requires a message")
	}

	level, _ := config["level"].(string)
	if level == "" {
		level = "info"
	}

	return &Action{message: message, level: level}, nil
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "The message to log. Supports templating for dynamic content.",
				"examples": []string{
					"Workflow step completed",
					"Received message from {{ .user_id }}: {{ .text }}",
					"HTTP call returned status {{ .steps.call.status_code }}",
				},
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Log level for the message",
				"default":     "info",
				"enum":        []string{"debug", "info", "warn", "error"},
			},
		},
		"required": []any{"message"},
	}
}

type Action struct {
	message string
	level   string
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	rendered := a.message
	if template.NeedsTemplating(a.message) {
		result, err := template.RenderWithContext(a.message, executionCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to render log message: %w", err)
		}

		rendered = fmt.Sprintf("%v", result)
	}

	logger = logger.With("action_type", "log")

	switch a.level {
	case "debug":
		logger.DebugContext(ctx, rendered)
	case "warn":
		logger.WarnContext(ctx, rendered)
	case "error":
		logger.ErrorContext(ctx, rendered)
	default:
		logger.InfoContext(ctx, rendered)
	}

	return map[string]any{
		"message": rendered,
		"level":   a.level,
	}, nil
}
