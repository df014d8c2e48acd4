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
	"github.com/staranto/splitctl/internal/export"
	"github.com/staranto/splitctl/internal/listing"
	"github.com/staranto/splitctl/internal/meta"
)

var searchExamples = [][2]string{
	{"splitctl search user alice@example.com", "a user and the groups they belong to"},
	{"splitctl search group Administrators -o json", "members of a group"},
	{"splitctl search environment Production", "every environment named Production"},
	{"splitctl search split checkout", "the definitions of a feature flag in every environment"},
	{"splitctl search split checkout -w Default -e Prod-Default --save", "write the definition, treatments and matchers"},
	{"splitctl search segment beta -w Default -e Prod-Default --save", "write the keys of a segment"},
}

// searcher finds records of one kind by name.
type searcher struct {
	name  string
	attrs string
	sort  string
	find  func(ctx context.Context, c *catalog.Catalog, cmd *cli.Command, name string) (any, error)
}

var searchers = []searcher{
	{
		name:  "workspace",
		attrs: kindAttrs("workspaces"),
		find: func(ctx context.Context, c *catalog.Catalog, _ *cli.Command, name string) (any, error) {
			ws, err := c.FindWorkspace(ctx, name)
			return []catalog.WorkspaceInfo{ws}, err
		},
	},
	{
		name:  "group",
		attrs: "group:name,id,users",
		find: func(ctx context.Context, c *catalog.Catalog, _ *cli.Command, name string) (any, error) {
			g, err := c.FindGroup(ctx, name)
			return []catalog.GroupMembers{g}, err
		},
	},
	{
		name:  "environment",
		attrs: kindAttrs("environments"),
		sort:  "workspace",
		find: func(ctx context.Context, c *catalog.Catalog, _ *cli.Command, name string) (any, error) {
			return c.FindEnvironments(ctx, name)
		},
	},
	{
		name:  "user",
		attrs: kindAttrs("users") + ",status",
		find: func(ctx context.Context, c *catalog.Catalog, _ *cli.Command, email string) (any, error) {
			u, err := c.FindUser(ctx, email)
			return []catalog.UserInfo{u}, err
		},
	},
	{
		name:  "split",
		attrs: kindAttrs("definitions") + ",trafficAllocation:allocation",
		sort:  "workspace,environment",
		find:  findSplit,
	},
	{
		name:  "segment",
		attrs: kindAttrs("segments"),
		sort:  "workspace,environment",
		find:  findSegment,
	},
}

func kindAttrs(name string) string {
	k, _ := listing.Lookup(name)
	return k.Attrs
}

func searcherNames() []string {
	names := make([]string, 0, len(searchers))
	for _, s := range searchers {
		names = append(names, s.name)
	}
	return names
}

func lookupSearcher(name string) (searcher, error) {
	for _, s := range searchers {
		if s.name == name || s.name+"s" == name {
			return s, nil
		}
	}
	return searcher{}, fmt.Errorf("unknown search kind %q (want one of %s)", name, strings.Join(searcherNames(), ", "))
}

func SearchCommandBuilder(meta meta.Meta) *cli.Command {
	cb := CommandBuilder{
		Name:      "search",
		Usage:     "find a workspace, group, environment, user, split or segment by name",
		UsageText: "splitctl search <" + strings.Join(searcherNames(), "|") + "> <name> [options]",
		Flags: []cli.Flag{
			NewWorkspaceFlag("search"),
			NewEnvironmentFlag("search"),
			NewDirFlag("search"),
			&cli.BoolFlag{
				Name:        "save",
				Usage:       "write the split definition or segment keys found in --workspace and --environment",
				HideDefault: true,
			},
			&cli.BoolFlag{
				Name:        "csv",
				Usage:       "write treatments and matchers as CSV instead of JSON",
				HideDefault: true,
			},
		},
		Examples: searchExamples,
		Output:   true,
		Action:   searchCommandAction,
		Meta:     meta,
	}
	return cb.Build()
}

func searchCommandAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("search needs a kind (%s) and a name", strings.Join(searcherNames(), ", "))
	}

	s, err := lookupSearcher(cmd.Args().Get(0))
	if err != nil {
		return err
	}

	c, err := catalogFor(cmd)
	if err != nil {
		return err
	}

	records, err := s.find(ctx, c, cmd, cmd.Args().Get(1))
	if err != nil {
		return err
	}
	return Emit(cmd, records, s.attrs, s.sort)
}

// scoped returns the --workspace and --environment pair. Both or neither must
// be given.
func scoped(cmd *cli.Command) (ws, env string, ok bool, err error) {
	ws, env = cmd.String("workspace"), cmd.String("environment")
	switch {
	case ws == "" && env == "":
		if cmd.Bool("save") {
			return "", "", false, errors.New("--save needs --workspace and --environment")
		}
		return "", "", false, nil
	case ws == "" || env == "":
		return "", "", false, errors.New("--workspace and --environment go together")
	}
	return ws, env, true, nil
}

func findSplit(ctx context.Context, c *catalog.Catalog, cmd *cli.Command, name string) (any, error) {
	ws, env, ok, err := scoped(cmd)
	if err != nil {
		return nil, err
	}
	if !ok {
		return c.FindSplitDefinitions(ctx, name)
	}

	def, err := c.FindSplitDefinition(ctx, name, ws, env)
	if err != nil {
		return nil, err
	}

	if cmd.Bool("save") {
		dir, asCSV := cmd.String("dir"), cmd.Bool("csv")
		w := Writer(cmd)
		for _, write := range []func() (string, error){
			func() (string, error) { return export.WriteDefinition(dir, def) },
			func() (string, error) { return export.WriteTreatments(dir, def, asCSV) },
			func() (string, error) { return export.WriteMatchers(dir, def, asCSV) },
		} {
			path, err := write()
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(w, "Saved %s\n", path)
		}
	}
	return []catalog.DefinitionInfo{def}, nil
}

func findSegment(ctx context.Context, c *catalog.Catalog, cmd *cli.Command, name string) (any, error) {
	ws, env, ok, err := scoped(cmd)
	if err != nil {
		return nil, err
	}
	if !ok {
		return c.FindSegments(ctx, name)
	}

	seg, err := c.FindSegmentDefinition(ctx, name, ws, env)
	if err != nil {
		return nil, err
	}

	if cmd.Bool("save") {
		path, err := export.WriteSegmentKeys(cmd.String("dir"), seg)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(Writer(cmd), "Saved %s\n", path)
	}
	return []catalog.SegmentInfo{seg}, nil
}
