// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/splitctl/internal/export"
	"github.com/staranto/splitctl/internal/meta"
)

var exportExamples = [][2]string{
	{"splitctl export users", "write users_data.json to the working directory"},
	{"splitctl export all --dir out --csv", "every dataset as JSON plus CSV into ./out"},
}

func ExportCommandBuilder(meta meta.Meta) *cli.Command {
	cb := CommandBuilder{
		Name:      "export",
		Usage:     "export datasets to JSON files",
		UsageText: "splitctl export <" + strings.Join(export.KindNames(), "|") + "|all> [--dir DIR] [--csv]",
		Flags: []cli.Flag{
			NewDirFlag("export"),
			&cli.BoolFlag{
				Name:        "csv",
				Usage:       "also convert the written JSON files to CSV",
				HideDefault: true,
			},
		},
		Examples: exportExamples,
		Action:   exportCommandAction,
		Meta:     meta,
	}
	return cb.Build()
}

func exportCommandAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return fmt.Errorf("export needs a kind: %s or all", strings.Join(export.KindNames(), ", "))
	}

	var kinds []export.Kind
	for _, name := range cmd.Args().Slice() {
		if name == "all" {
			kinds = export.Kinds
			break
		}
		k, err := export.LookupKind(name)
		if err != nil {
			return err
		}
		kinds = append(kinds, k)
	}

	c, err := catalogFor(cmd)
	if err != nil {
		return err
	}

	w := Writer(cmd)
	dir := cmd.String("dir")
	for _, k := range kinds {
		path, err := k.Run(ctx, c, dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s data exported to %s\n", k.Name, path)
	}

	if !cmd.Bool("csv") {
		return nil
	}
	pairs, err := export.ConvertAll(dir)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		fmt.Fprintf(w, "%s converted to %s\n", p.JSON, p.CSV)
	}
	return nil
}
