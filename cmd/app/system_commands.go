package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/storesync/storesync/cmd/app/commands"
	"github.com/storesync/storesync/internal/app"
	"github.com/storesync/storesync/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "run",
			Usage: "Run the reconciliation engine and the operations API",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunEngine(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
	}
}
