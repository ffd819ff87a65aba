package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"

	"github.com/botweaver/botweaver/pkg/actions/sendmessage"
	"github.com/botweaver/botweaver/pkg/cmd"
	"github.com/botweaver/botweaver/pkg/engine"
	"github.com/botweaver/botweaver/pkg/eventbus"
	"github.com/botweaver/botweaver/pkg/persistence"
	"github.com/botweaver/botweaver/pkg/registry"
	"github.com/botweaver/botweaver/pkg/services"
	"github.com/botweaver/botweaver/pkg/trigger"
	"github.com/botweaver/botweaver/pkg/workflow"
)

// runtime holds the wired core services shared by the api and worker
// commands.
type runtime struct {
	store      persistence.Persistence
	eventBus   eventbus.EventBus
	redis      *redis.Client
	registry   *registry.Registry
	driver     *engine.Driver
	matcher    *trigger.Matcher
	manager    *workflow.Manager
	dispatcher *services.Dispatcher
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Database connection URL for persistence",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis connection URL for message streams",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}
}

func buildRuntime(command *cli.Command, logger *slog.Logger) (*runtime, error) {
	var (
		redisClient *redis.Client
		publisher   sendmessage.StreamPublisher
	)

	if url := command.String("redis-url"); url != "" {
		opts, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}

		redisClient = redis.NewClient(opts)
		publisher = redisClient
	}

	store := cmd.NewPersistence(command.String("database-url"))
	eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
	reg := cmd.NewRegistry(logger, publisher)

	driver := engine.NewDriver(reg, store, logger,
		engine.WithEventPublisher(eventBus))
	matcher := trigger.NewMatcher(logger)
	manager := workflow.NewManager(store, driver.InFlight(), logger,
		workflow.WithEventPublisher(eventBus))
	dispatcher := services.NewDispatcher(store, matcher, driver, logger)

	return &runtime{
		store:      store,
		eventBus:   eventBus,
		redis:      redisClient,
		registry:   reg,
		driver:     driver,
		matcher:    matcher,
		manager:    manager,
		dispatcher: dispatcher,
	}, nil
}

func (r *runtime) Close(ctx context.Context, logger *slog.Logger) {
	if err := r.eventBus.Close(); err != nil {
		logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
	}

	if err := r.store.Close(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
	}

	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close redis client", "error", err)
		}
	}
}
