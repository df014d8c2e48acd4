// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/splitctl/internal/listing"
	"github.com/staranto/splitctl/internal/meta"
	"github.com/staranto/splitctl/internal/output"
)

var listExamples = [][2]string{
	{"splitctl list workspaces", "all workspaces"},
	{"splitctl list environments -f workspace=Default", "environments of one workspace"},
	{"splitctl list splits -o csv", "every feature flag as CSV"},
	{"splitctl list users -a status -f 'groups@Administrators'", "administrators with their status"},
	{"splitctl list definitions -f killed=true -t", "killed feature flags"},
}

func ListCommandBuilder(meta meta.Meta) *cli.Command {
	cb := CommandBuilder{
		Name:      "list",
		Usage:     "list workspaces, environments, groups, segments, splits or users",
		UsageText: "splitctl list <" + strings.Join(listing.Names(), "|") + "> [options]",
		Examples:  listExamples,
		Output:    true,
		Action:    listCommandAction,
		Meta:      meta,
	}
	return cb.Build()
}

func listCommandAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("list needs one kind: %s", strings.Join(listing.Names(), ", "))
	}

	kind, err := listing.Lookup(cmd.Args().First())
	if err != nil {
		return err
	}

	c, err := catalogFor(cmd)
	if err != nil {
		return err
	}

	opts := output.NewOptions(cmd, BuildAttrs(cmd, kind.Attrs))
	return kind.Render(ctx, c, opts, Writer(cmd))
}
