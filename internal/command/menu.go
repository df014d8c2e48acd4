// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/staranto/splitctl/internal/menu"
	"github.com/staranto/splitctl/internal/meta"
)

var ErrNotATerminal = errors.New("menu needs an interactive terminal")

// isTerminal reports whether both stdin and stdout are terminals.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// menuOptions are passed to every menu the command starts.
var menuOptions []menu.Option

func MenuCommandBuilder(meta meta.Meta) *cli.Command {
	cb := CommandBuilder{
		Name:  "menu",
		Usage: "interactive menu",
		Flags: []cli.Flag{
			NewDirFlag("menu"),
		},
		Examples: [][2]string{
			{"splitctl menu", "start the interactive menu"},
			{"splitctl menu --dir exports", "write exports to ./exports"},
		},
		Action: menuCommandAction,
		Meta:   meta,
	}
	return cb.Build()
}

func menuCommandAction(ctx context.Context, cmd *cli.Command) error {
	if !isTerminal() {
		return ErrNotATerminal
	}

	c, err := catalogFor(cmd)
	if err != nil {
		return err
	}

	opts := append([]menu.Option{
		menu.WithOutput(Writer(cmd)),
		menu.WithExportDir(cmd.String("dir")),
	}, menuOptions...)
	return menu.New(c, opts...).Run(ctx)
}
