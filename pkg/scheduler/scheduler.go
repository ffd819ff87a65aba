// Package scheduler emits a scheduled tick event once per minute. The
// trigger matcher decides which workflows a tick activates.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/botweaver/botweaver/pkg/models"
	"github.com/botweaver/botweaver/pkg/protocol"
)

// Handler receives each tick event.
type Handler func(ctx context.Context, event *models.Event) error

type Scheduler struct {
	cron    *cron.Cron
	clock   protocol.Clock
	handler Handler
	logger  *slog.Logger
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		clock:  protocol.SystemClock{},
		logger: logger.With("module", "scheduler"),
	}
}

// Start begins ticking. The context is threaded into every handler call.
func (s *Scheduler) Start(ctx context.Context, handler Handler) error {
	if handler == nil {
		return errors.New("scheduler requires a handler")
	}

	s.handler = handler
	s.cron = cron.New()

	if _, err := s.cron.AddFunc("* * * * *", func() {
		s.EmitTick(ctx, s.clock.Now())
	}); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Starting scheduler")
	s.cron.Start()

	return nil
}

// EmitTick delivers one scheduled event for the given instant. Ticks are
// truncated to the minute so trigger matching sees the activation minute
// regardless of dispatch latency.
func (s *Scheduler) EmitTick(ctx context.Context, now time.Time) {
	event := &models.Event{
		Type:      models.TriggerTypeScheduled,
		Timestamp: now.Truncate(time.Minute),
	}

	if err := s.handler(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Handler failed for scheduled tick",
			"tick", event.Timestamp,
			"error", err)
	}
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Stopping scheduler")

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	return nil
}
