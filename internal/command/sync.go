// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/splitctl/internal/aws"
	"github.com/staranto/splitctl/internal/meta"
	"github.com/staranto/splitctl/internal/segsync"
)

var syncExamples = [][2]string{
	{"splitctl sync segments", "replace the configured segments from the configured bucket"},
	{"splitctl sync segments --bucket exports --prefix daily/", "use another bucket and prefix"},
	{"splitctl sync segments --segments beta,gamma -w Default -e Prod-Default", "only two segments"},
}

// newObjectStore builds the S3 client used by sync segments.
var newObjectStore = func(ctx context.Context, opts ...aws.Option) (segsync.ObjectStore, error) {
	return aws.NewS3(ctx, opts...)
}

func SyncCommandBuilder(meta meta.Meta) *cli.Command {
	segments := CommandBuilder{
		Name:      "segments",
		Usage:     "replace segment keys with the CSV files found in an S3 bucket",
		UsageText: "splitctl sync segments [--bucket B] [--prefix P] [-w WORKSPACE] [-e ENVIRONMENT]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "bucket",
				Usage: "S3 bucket holding <segment>.csv files",
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "only download keys under this prefix",
			},
			NewWorkspaceFlag("sync"),
			NewEnvironmentFlag("sync"),
			&cli.StringFlag{
				Name:  "segments",
				Usage: "comma-separated list of segments to replace",
			},
			&cli.StringFlag{
				Name:  "comment",
				Usage: "change comment recorded with the upload",
			},
			&cli.StringFlag{
				Name:  "keep",
				Usage: "keep the downloaded files in this directory",
				Validator: func(value string) error {
					return FlagValidators(value, JammedFlagValidator)
				},
			},
			&cli.StringFlag{
				Name:    "profile",
				Usage:   "AWS shared config profile",
				Sources: cli.NewValueSourceChain(cli.EnvVar("AWS_PROFILE")),
			},
			&cli.StringFlag{
				Name:  "region",
				Usage: "AWS region",
			},
			&cli.StringFlag{
				Name:  "endpoint",
				Usage: "S3 compatible endpoint URL",
			},
		},
		Examples: syncExamples,
		Output:   true,
		Action:   syncSegmentsAction,
		Meta:     meta,
	}

	cb := CommandBuilder{
		Name:     "sync",
		Usage:    "synchronize Split data from external sources",
		Commands: []*cli.Command{segments.Build()},
		Examples: syncExamples,
		Meta:     meta,
	}
	return cb.Build()
}

// syncOptions starts from the sync.segments config and applies the flags
// that were given.
func syncOptions(cmd *cli.Command) segsync.Options {
	opts := segsync.OptionsFromConfig()
	if cmd.IsSet("bucket") {
		opts.Bucket = cmd.String("bucket")
	}
	if cmd.IsSet("prefix") {
		opts.Prefix = cmd.String("prefix")
	}
	if ws := cmd.String("workspace"); ws != "" {
		opts.Workspace = ws
	}
	if env := cmd.String("environment"); env != "" {
		opts.Environment = env
	}
	if cmd.IsSet("segments") {
		opts.Segments = nil
		for _, s := range strings.Split(cmd.String("segments"), ",") {
			if s = strings.TrimSpace(s); s != "" {
				opts.Segments = append(opts.Segments, s)
			}
		}
	}
	if cmd.IsSet("comment") {
		opts.Comment = cmd.String("comment")
	}
	opts.Dir = cmd.String("keep")
	return opts
}

func syncSegmentsAction(ctx context.Context, cmd *cli.Command) error {
	c, err := catalogFor(cmd)
	if err != nil {
		return err
	}

	objects, err := newObjectStore(ctx,
		aws.WithProfile(cmd.String("profile")),
		aws.WithRegion(cmd.String("region")),
		aws.WithEndpoint(cmd.String("endpoint")),
	)
	if err != nil {
		return err
	}

	results, err := segsync.New(objects, c).Run(ctx, syncOptions(cmd))
	if err != nil {
		return err
	}
	return Emit(cmd, results, "segment,keys,skipped", "")
}
