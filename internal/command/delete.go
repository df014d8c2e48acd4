// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/splitctl/internal/catalog"
	"github.com/staranto/splitctl/internal/meta"
)

var deleteExamples = [][2]string{
	{"splitctl delete group Readers", "delete a group after confirming"},
	{"splitctl delete segment beta -w Default --yes", "delete a segment without asking"},
	{"splitctl delete split checkout -w Mobile", "delete a feature flag from one workspace"},
	{"splitctl delete environment Staging -w Mobile", "delete an environment"},
}

// deleter removes one named object. Kinds other than group live in a
// workspace, which is resolved before del is called.
type deleter struct {
	name        string
	inWorkspace bool
	del         func(ctx context.Context, c *catalog.Catalog, ws catalog.WorkspaceInfo, name string) error
}

var deleters = []deleter{
	{
		name: "group",
		del: func(ctx context.Context, c *catalog.Catalog, _ catalog.WorkspaceInfo, name string) error {
			g, err := c.FindGroup(ctx, name)
			if err != nil {
				return err
			}
			return c.DeleteGroup(ctx, g.ID)
		},
	},
	{
		name:        "segment",
		inWorkspace: true,
		del: func(ctx context.Context, c *catalog.Catalog, ws catalog.WorkspaceInfo, name string) error {
			return c.DeleteSegment(ctx, ws.ID, name)
		},
	},
	{
		name:        "split",
		inWorkspace: true,
		del: func(ctx context.Context, c *catalog.Catalog, ws catalog.WorkspaceInfo, name string) error {
			return c.DeleteSplit(ctx, ws.ID, name)
		},
	},
	{
		name:        "environment",
		inWorkspace: true,
		del: func(ctx context.Context, c *catalog.Catalog, ws catalog.WorkspaceInfo, name string) error {
			env, err := c.FindEnvironment(ctx, ws.Name, name)
			if err != nil {
				return err
			}
			return c.DeleteEnvironment(ctx, ws.ID, env.ID)
		},
	},
}

func deleterNames() []string {
	names := make([]string, 0, len(deleters))
	for _, d := range deleters {
		names = append(names, d.name)
	}
	return names
}

func DeleteCommandBuilder(meta meta.Meta) *cli.Command {
	cb := CommandBuilder{
		Name:      "delete",
		Usage:     "delete a group, segment, split or environment",
		UsageText: "splitctl delete <" + strings.Join(deleterNames(), "|") + "> <name> [-w WORKSPACE] [--yes]",
		Flags: []cli.Flag{
			NewWorkspaceFlag("delete"),
			newYesFlag(),
		},
		Examples: deleteExamples,
		Action:   deleteCommandAction,
		Meta:     meta,
	}
	return cb.Build()
}

func deleteCommandAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("delete needs a kind (%s) and a name", strings.Join(deleterNames(), ", "))
	}

	kind, name := cmd.Args().Get(0), cmd.Args().Get(1)
	var d *deleter
	for i := range deleters {
		if deleters[i].name == kind {
			d = &deleters[i]
			break
		}
	}
	if d == nil {
		return fmt.Errorf("unknown delete kind %q (want one of %s)", kind, strings.Join(deleterNames(), ", "))
	}

	c, err := catalogFor(cmd)
	if err != nil {
		return err
	}

	var ws catalog.WorkspaceInfo
	if d.inWorkspace {
		wsName := cmd.String("workspace")
		if wsName == "" {
			return errors.New("--workspace is required to delete a " + d.name)
		}
		if ws, err = c.FindWorkspace(ctx, wsName); err != nil {
			return err
		}
	}

	w := Writer(cmd)
	if !Confirm(cmd, fmt.Sprintf("Delete %s '%s'?", d.name, name)) {
		fmt.Fprintln(w, "Deletion cancelled")
		return nil
	}
	if err := d.del(ctx, c, ws, name); err != nil {
		return fmt.Errorf("failed to delete %s %q: %w", d.name, name, err)
	}
	fmt.Fprintf(w, "'%s' has been deleted.\n", name)
	return nil
}
