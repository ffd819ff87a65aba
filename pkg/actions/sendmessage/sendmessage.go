// Package sendmessage implements the built-in send_message action. It
// publishes outbound chat messages onto a Redis stream consumed by the
// connector processes.
package sendmessage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/botweaver/botweaver/pkg/models"
	"github.com/botweaver/botweaver/pkg/protocol"
	"github.com/botweaver/botweaver/pkg/template"
)

// DefaultStream is the outbound message stream key.
const DefaultStream = "botweaver:outbound"

// StreamPublisher is the slice of the redis client the action needs.
// *redis.Client satisfies it.
type StreamPublisher interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

type ActionFactory struct {
	publisher StreamPublisher
}

func NewActionFactory(publisher StreamPublisher) *ActionFactory {
	return &ActionFactory{publisher: publisher}
}

func (*ActionFactory) ID() string {
	return "send_message"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	if config == nil {
		config = map[string]any{}
	}

	text, _ := config["text"].(string)
	if text == "" {
		return nil, fmt.Errorf("send_message action requires text")
	}

	target, _ := config["target"].(string)
	if target == "" {
		return nil, fmt.Errorf("send_message action requires a target")
	}

	stream, _ := config["stream"].(string)
	if stream == "" {
		stream = DefaultStream
	}

	return &Action{
		publisher: f.publisher,
		stream:    stream,
		target:    target,
		text:      text,
	}, nil
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "Message text. Supports templating.",
				"examples": []string{
					"Deploy finished",
					"Hey {{ .user_id }}, got your message: {{ .text }}",
				},
			},
			"target": map[string]any{
				"type":        "string",
				"description": "Channel or user the message is delivered to. Supports templating.",
			},
			"stream": map[string]any{
				"type":        "string",
				"description": "Redis stream key for outbound messages.",
				"default":     DefaultStream,
			},
		},
		"required": []any{"text", "target"},
	}
}

type Action struct {
	publisher StreamPublisher
	stream    string
	target    string
	text      string
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "send_message")

	text, err := render(a.text, executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render text: %w", err)
	}

	target, err := render(a.target, executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render target: %w", err)
	}

	values := map[string]any{
		"target":  target,
		"text":    text,
		"sent_at": time.Now().UTC().Format(time.RFC3339),
	}

	id, err := a.publisher.XAdd(ctx, &redis.XAddArgs{
		Stream: a.stream,
		Values: values,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to publish message: %w", err)
	}

	logger.InfoContext(ctx, "Message published",
		"stream", a.stream,
		"target", target,
		"message_id", id)

	return map[string]any{
		"message_id": id,
		"target":     target,
		"text":       text,
	}, nil
}

func render(input string, executionCtx models.ExecutionContext) (string, error) {
	if !template.NeedsTemplating(input) {
		return input, nil
	}

	result, err := template.RenderWithContext(input, executionCtx)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%v", result), nil
}
