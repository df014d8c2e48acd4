// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/staranto/splitctl/internal/catalog"
	"github.com/staranto/splitctl/internal/meta"
)

var copyExamples = [][2]string{
	{"splitctl copy split checkout -w Default -e Staging --to-env Prod-Default", "promote a flag's targeting"},
	{"splitctl copy split checkout -w Default -e Prod-Default --to-ws Mobile --to-env Prod --yes", "copy across workspaces"},
	{"splitctl copy split checkout -w Default -e Staging --to-env Staging --to-name checkout_v2", "copy onto another flag"},
	{"splitctl copy segment beta -w Default -e Staging --to-env Prod-Default", "add a segment's keys to another environment"},
	{"splitctl copy segment beta -w Default -e Staging --to-env Prod-Default --replace", "replace the target keys"},
}

// copyTarget is where a copy writes, resolved from the --to-* flags.
type copyTarget struct {
	env  catalog.EnvironmentInfo
	name string
}

func newCopyFlags(withReplace bool) []cli.Flag {
	flags := []cli.Flag{
		NewWorkspaceFlag("copy"),
		NewEnvironmentFlag("copy"),
		&cli.StringFlag{
			Name:  "to-ws",
			Usage: "target workspace, when it differs from --workspace",
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
		&cli.StringFlag{
			Name:  "to-env",
			Usage: "target environment",
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
		&cli.StringFlag{
			Name:  "to-name",
			Usage: "target name, when it differs from the source",
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
		&cli.StringFlag{
			Name:  "comment",
			Usage: "change comment recorded with the copy",
		},
		newYesFlag(),
	}
	if withReplace {
		flags = append(flags, &cli.BoolFlag{
			Name:        "replace",
			Usage:       "replace the target keys instead of adding to them",
			HideDefault: true,
		})
	}
	return flags
}

func CopyCommandBuilder(meta meta.Meta) *cli.Command {
	splitCmd := CommandBuilder{
		Name:      "split",
		Usage:     "copy the definition of a feature flag to another environment",
		UsageText: "splitctl copy split <name> -w WORKSPACE -e ENV --to-env ENV [--to-ws WORKSPACE] [--to-name NAME]",
		Flags:     newCopyFlags(false),
		Examples:  copyExamples,
		Action:    copySplitAction,
		Meta:      meta,
	}
	segmentCmd := CommandBuilder{
		Name:      "segment",
		Usage:     "copy the keys of a segment to another environment",
		UsageText: "splitctl copy segment <name> -w WORKSPACE -e ENV --to-env ENV [--to-ws WORKSPACE] [--to-name NAME] [--replace]",
		Flags:     newCopyFlags(true),
		Examples:  copyExamples,
		Action:    copySegmentAction,
		Meta:      meta,
	}

	cb := CommandBuilder{
		Name:  "copy",
		Usage: "copy feature flag definitions and segment keys between environments",
		Commands: []*cli.Command{
			splitCmd.Build(),
			segmentCmd.Build(),
		},
		Examples: copyExamples,
		Meta:     meta,
	}
	return cb.Build()
}

// copyArgs checks the source flags and resolves the target environment.
func copyArgs(ctx context.Context, cmd *cli.Command, c *catalog.Catalog) (string, copyTarget, error) {
	if cmd.Args().Len() != 1 {
		return "", copyTarget{}, fmt.Errorf("copy %s needs one name", cmd.Name)
	}
	ws, env, toEnv := cmd.String("workspace"), cmd.String("environment"), cmd.String("to-env")
	if ws == "" || env == "" || toEnv == "" {
		return "", copyTarget{}, errors.New("copy needs --workspace, --environment and --to-env")
	}
	toWS := cmd.String("to-ws")
	if toWS == "" {
		toWS = ws
	}

	dst, err := c.FindEnvironment(ctx, toWS, toEnv)
	if err != nil {
		return "", copyTarget{}, err
	}
	name := cmd.Args().First()
	target := copyTarget{env: dst, name: cmd.String("to-name")}
	if target.name == "" {
		target.name = name
	}
	return name, target, nil
}

func copySplitAction(ctx context.Context, cmd *cli.Command) error {
	c, err := catalogFor(cmd)
	if err != nil {
		return err
	}
	name, dst, err := copyArgs(ctx, cmd, c)
	if err != nil {
		return err
	}

	src, err := c.FindSplitDefinition(ctx, name, cmd.String("workspace"), cmd.String("environment"))
	if err != nil {
		return err
	}

	w := Writer(cmd)
	from := fmt.Sprintf("%s in %s/%s", name, src.WorkspaceName, src.Environment.Name)
	to := fmt.Sprintf("%s in %s/%s", dst.name, dst.env.WorkspaceName, dst.env.Name)
	if !Confirm(cmd, fmt.Sprintf("Copy the definition of %s to %s?", from, to)) {
		fmt.Fprintln(w, "Copy cancelled")
		return nil
	}

	created, err := c.CopySplitDefinition(ctx, src, dst.env, dst.name, cmd.String("comment"))
	if err != nil {
		return fmt.Errorf("failed to copy %s: %w", from, err)
	}
	verb := "Updated"
	if created {
		verb = "Created"
	}
	fmt.Fprintf(w, "%s %s from %s.\n", verb, to, from)
	return nil
}

func copySegmentAction(ctx context.Context, cmd *cli.Command) error {
	c, err := catalogFor(cmd)
	if err != nil {
		return err
	}
	name, dst, err := copyArgs(ctx, cmd, c)
	if err != nil {
		return err
	}

	src, err := c.FindSegmentDefinition(ctx, name, cmd.String("workspace"), cmd.String("environment"))
	if err != nil {
		return err
	}

	w := Writer(cmd)
	from := fmt.Sprintf("%s in %s/%s", name, src.Workspace.Name, src.Environment.Name)
	to := fmt.Sprintf("%s in %s/%s", dst.name, dst.env.WorkspaceName, dst.env.Name)
	if !Confirm(cmd, fmt.Sprintf("Copy %d keys of %s to %s?", len(src.Keys), from, to)) {
		fmt.Fprintln(w, "Copy cancelled")
		return nil
	}

	activated, err := c.CopySegmentKeys(ctx, src, dst.env, dst.name, cmd.Bool("replace"), cmd.String("comment"))
	if err != nil {
		return fmt.Errorf("failed to copy %s: %w", from, err)
	}
	if activated {
		fmt.Fprintf(w, "Activated %s.\n", to)
	}
	fmt.Fprintf(w, "Copied %d keys from %s to %s.\n", len(src.Keys), from, to)
	return nil
}
