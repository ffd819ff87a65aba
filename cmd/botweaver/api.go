package main

import (
	"context"
	"strconv"

	validator "github.com/go-playground/validator/v10"
	cli "github.com/urfave/cli/v3"

	"github.com/botweaver/botweaver/pkg/log"
	"github.com/botweaver/botweaver/pkg/web"
)

const defaultPort = 9091

// NewAPICommand starts the workflow management HTTP API.
func NewAPICommand() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Start the workflow management API server",
		Flags: append(commonFlags(),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing botweaver API")

			rt, err := buildRuntime(command, logger)
			if err != nil {
				return err
			}
			defer rt.Close(ctx, logger)

			handlers := web.NewAPIHandlers(
				rt.manager,
				rt.dispatcher,
				rt.store,
				validator.New(validator.WithRequiredStructEnabled()),
				logger,
			)

			app := web.NewApp(handlers)

			port := command.Int("port")
			logger.InfoContext(ctx, "Starting API server", "port", port)

			return app.Listen(":" + strconv.Itoa(port))
		},
	}
}
