package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/botweaver/botweaver/pkg/log"
	"github.com/botweaver/botweaver/pkg/models"
	"github.com/botweaver/botweaver/pkg/scheduler"
	"github.com/botweaver/botweaver/pkg/sources/queue"
)

// NewWorkerCommand starts the event-consuming worker: it pops inbound
// messages from the redis queue, emits scheduler ticks once a minute and
// dispatches every event against the active workflows.
func NewWorkerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Start a worker consuming events and executing workflows",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:    "queue",
				Usage:   "Redis list key to consume inbound messages from",
				Value:   queue.DefaultQueue,
				Sources: cli.EnvVars("QUEUE_NAME"),
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("worker").With("worker_id", workerID)
			logger.InfoContext(ctx, "Initializing botweaver worker")

			rt, err := buildRuntime(command, logger)
			if err != nil {
				return err
			}
			defer rt.Close(ctx, logger)

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			handler := func(ctx context.Context, event *models.Event) error {
				_, err := rt.dispatcher.HandleEvent(ctx, event)

				return err
			}

			sched := scheduler.NewScheduler(logger)
			if err := sched.Start(runCtx, handler); err != nil {
				return err
			}

			defer func() {
				if err := sched.Stop(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to stop scheduler", "error", err)
				}
			}()

			if rt.redis != nil {
				source := queue.NewSource(rt.redis, command.String("queue"), logger)
				if err := source.Start(runCtx, handler); err != nil {
					return err
				}

				defer func() {
					if err := source.Stop(ctx); err != nil {
						logger.ErrorContext(ctx, "Failed to stop queue source", "error", err)
					}
				}()
			} else {
				logger.WarnContext(ctx, "No redis URL configured, queue source disabled")
			}

			logger.InfoContext(ctx, "Worker started")

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			select {
			case <-sigChan:
				logger.InfoContext(ctx, "Shutting down worker")
			case <-runCtx.Done():
				if !errors.Is(runCtx.Err(), context.Canceled) {
					return runCtx.Err()
				}
			}

			cancel()

			return nil
		},
	}
}
