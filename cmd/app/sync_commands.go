package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/storesync/storesync/cmd/app/commands"
	"github.com/storesync/storesync/internal/app"
	"github.com/storesync/storesync/internal/config"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func getSyncCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "recover",
			Usage: "Resolve items left in flight by a stopped engine",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				recovery, err := container.Recovery()
				if err != nil {
					return err
				}

				return commands.RunRecover(
					ctx,
					recovery,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "list-items",
			Usage: "List tracked items",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "lifecycle-state",
					Aliases: []string{"l"},
					Usage:   "Filter by lifecycle state (discovered, mapped, synced, sold, ended)",
				},
				&cli.StringFlag{
					Name:    "sync-state",
					Aliases: []string{"s"},
					Usage:   "Filter by sync state (pending, in_flight, done, failed)",
				},
				&cli.IntFlag{
					Name:  "offset",
					Value: 0,
					Usage: "Number of items to skip",
				},
				&cli.IntFlag{
					Name:  "limit",
					Value: 50,
					Usage: "Maximum number of items to list",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				itemUseCase, err := container.ItemUseCase()
				if err != nil {
					return err
				}

				return commands.RunListItems(
					ctx,
					itemUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("lifecycle-state"),
					cmd.String("sync-state"),
					int(cmd.Int("offset")),
					int(cmd.Int("limit")),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "retry-item",
			Usage: "Requeue a failed item",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Marketplace item id",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				itemUseCase, err := container.ItemUseCase()
				if err != nil {
					return err
				}

				return commands.RunRetryItem(
					ctx,
					itemUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "check-mapping",
			Usage: "Validate the category mapping file",
			Flags: []cli.Flag{
				&cli.StringSliceFlag{
					Name:    "resolve",
					Aliases: []string{"r"},
					Usage:   "Marketplace category id to resolve (repeatable)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)

				return commands.RunCheckMapping(
					ctx,
					container.Logger(),
					commands.DefaultIO().Writer,
					cfg.CategoryMapURL,
					cfg.CategoryMapKey,
					cmd.StringSlice("resolve"),
					cmd.String("format"),
				)
			},
		},
	}
}
