// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/staranto/splitctl/internal/differ"
	"github.com/staranto/splitctl/internal/meta"
)

var diffExamples = [][2]string{
	{"splitctl diff checkout -w Default --from-env Staging --to-env Prod-Default", "compare a flag across environments"},
	{"splitctl diff checkout -w Default --from-env Prod-Default --to-ws Mobile --to-env Staging", "compare across workspaces"},
}

func DiffCommandBuilder(meta meta.Meta) *cli.Command {
	cb := CommandBuilder{
		Name:      "diff",
		Usage:     "compare the definitions of a feature flag in two environments",
		UsageText: "splitctl diff <split> -w WORKSPACE --from-env ENV --to-env ENV [--to-ws WORKSPACE]",
		Flags: []cli.Flag{
			NewWorkspaceFlag("diff"),
			&cli.StringFlag{
				Name:  "to-ws",
				Usage: "workspace of the right hand side, when it differs from --workspace",
				Validator: func(value string) error {
					return FlagValidators(value, JammedFlagValidator)
				},
			},
			&cli.StringFlag{
				Name:  "from-env",
				Usage: "environment of the left hand side",
				Validator: func(value string) error {
					return FlagValidators(value, JammedFlagValidator)
				},
			},
			&cli.StringFlag{
				Name:  "to-env",
				Usage: "environment of the right hand side",
				Validator: func(value string) error {
					return FlagValidators(value, JammedFlagValidator)
				},
			},
		},
		Examples: diffExamples,
		Action:   diffCommandAction,
		Meta:     meta,
	}
	return cb.Build()
}

func diffCommandAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New("diff needs one feature flag name")
	}
	name := cmd.Args().First()

	fromWS := cmd.String("workspace")
	toWS := cmd.String("to-ws")
	if toWS == "" {
		toWS = fromWS
	}
	fromEnv, toEnv := cmd.String("from-env"), cmd.String("to-env")
	if fromWS == "" || fromEnv == "" || toEnv == "" {
		return errors.New("diff needs --workspace, --from-env and --to-env")
	}

	c, err := catalogFor(cmd)
	if err != nil {
		return err
	}

	left, err := c.FindSplitDefinition(ctx, name, fromWS, fromEnv)
	if err != nil {
		return err
	}
	right, err := c.FindSplitDefinition(ctx, name, toWS, toEnv)
	if err != nil {
		return err
	}

	text, changed, err := differ.Definitions(left, right)
	if err != nil {
		return err
	}

	w := Writer(cmd)
	if !changed {
		fmt.Fprintf(w, "%s is the same in %s/%s and %s/%s.\n", name, fromWS, fromEnv, toWS, toEnv)
		return nil
	}
	fmt.Fprintf(w, "--- %s/%s\n+++ %s/%s\n%s", fromWS, fromEnv, toWS, toEnv, text)
	return nil
}
