// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT
package command

import (
	"context"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/splitctl/internal/cache"
	"github.com/staranto/splitctl/internal/config"
	mylog "github.com/staranto/splitctl/internal/log"
	"github.com/staranto/splitctl/internal/meta"
)

func InitApp(ctx context.Context, args []string, store *cache.Store, connect meta.Connector) (*cli.Command, error) {
	// The arg[1] immediately following the binary (arg[0]) is the splitctl
	// subcommand and also represents the namespace key to be used when
	// retrieving config values. arg[1] could be -h/--help, so ignore it if it
	// appears to be a flag.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}

	cfg, _ := config.Load(ns)
	meta := meta.Meta{
		Args:    args,
		Config:  cfg,
		Context: ctx,
		Store:   store,
		Connect: connect,
	}

	app := &cli.Command{
		Name:  "splitctl",
		Usage: "Split.io administration",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "splitctl version info",
				HideDefault: true,
			},
			&cli.BoolFlag{
				Name:        "debug",
				Usage:       "log at DEBUG level",
				HideDefault: true,
			},
		},
		Metadata: map[string]any{
			"meta": meta,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				mylog.SetDebug()
			}
			return ctx, nil
		},
	}

	app.Commands = append(app.Commands,
		ListCommandBuilder(meta),
		ExportCommandBuilder(meta),
		SearchCommandBuilder(meta),
		DeleteCommandBuilder(meta),
		DiffCommandBuilder(meta),
		CopyCommandBuilder(meta),
		CacheCommandBuilder(meta),
		SyncCommandBuilder(meta),
		MenuCommandBuilder(meta),
		CompletionCommandBuilder(meta),
	)

	// Make sure flags are sorted for the --help text.
	var sortFlags func(cmds []*cli.Command)
	sortFlags = func(cmds []*cli.Command) {
		for _, cmd := range cmds {
			sort.Slice(cmd.Flags, func(i, j int) bool {
				return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
			})
			sortFlags(cmd.Commands)
		}
	}
	sortFlags(app.Commands)

	return app, nil
}
