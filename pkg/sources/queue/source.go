// Package queue consumes chat-message events from a Redis list and
// hands them to the trigger matcher.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/botweaver/botweaver/pkg/models"
)

// DefaultQueue is the inbound message list key.
const DefaultQueue = "botweaver:inbound"

// Handler receives each decoded event.
type Handler func(ctx context.Context, event *models.Event) error

// ListPopper is the slice of the redis client the source needs.
// *redis.Client satisfies it.
type ListPopper interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

type Source struct {
	client  ListPopper
	queue   string
	logger  *slog.Logger
	handler Handler
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewSource(client ListPopper, queue string, logger *slog.Logger) *Source {
	if queue == "" {
		queue = DefaultQueue
	}

	return &Source{
		client: client,
		queue:  queue,
		stopCh: make(chan struct{}),
		logger: logger.With(
			"module", "queue_source",
			"queue", queue,
		),
	}
}

func (s *Source) Start(ctx context.Context, handler Handler) error {
	if handler == nil {
		return errors.New("queue source requires a handler")
	}

	s.logger.InfoContext(ctx, "Starting queue source")
	s.handler = handler

	s.wg.Add(1)

	go s.consume(ctx)

	return nil
}

func (s *Source) Stop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Stopping queue source")

	close(s.stopCh)
	s.wg.Wait()

	return nil
}

func (s *Source) consume(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			s.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			if err := s.processMessage(ctx); err != nil {
				s.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (s *Source) processMessage(ctx context.Context) error {
	result, err := s.client.BLPop(ctx, 1*time.Second, s.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	event, err := decodeEvent([]byte(result[1]))
	if err != nil {
		s.logger.WarnContext(ctx, "Discarding malformed message", "error", err)

		return nil
	}

	if err := s.handler(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Handler failed for message event",
			"source", event.Source,
			"error", err)
	}

	return nil
}

// decodeEvent decodes a queue payload into a message event. Payloads
// that are not JSON objects become plain text events.
func decodeEvent(payload []byte) (*models.Event, error) {
	var event models.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		event = models.Event{Text: string(payload)}
	}

	if event.Type == "" {
		event.Type = models.TriggerTypeMessage
	}

	if event.Type != models.TriggerTypeMessage {
		return nil, fmt.Errorf("queue source only delivers message events, got %q", event.Type)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	return &event, nil
}
