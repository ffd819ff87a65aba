package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "botweaver",
		Usage:                 "Create, manage and execute event-driven workflows",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewAPICommand(),
			NewWorkerCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
