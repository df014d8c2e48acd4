// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/staranto/splitctl/internal/cache"
	"github.com/staranto/splitctl/internal/meta"
)

var cacheExamples = [][2]string{
	{"splitctl cache status", "which lookups are cached and how big they are"},
	{"splitctl cache refresh", "discard the cache and reload definitions and segments"},
	{"splitctl cache invalidate users groups", "drop two lookups"},
	{"splitctl cache invalidate --all", "drop everything"},
	{"splitctl cache path", "print the cache file"},
}

// slotRow is one line of cache status.
type slotRow struct {
	Slot      string `json:"slot"`
	Populated bool   `json:"populated"`
	Bytes     int    `json:"bytes"`
	Size      string `json:"size"`
}

func CacheCommandBuilder(meta meta.Meta) *cli.Command {
	status := CommandBuilder{
		Name:     "status",
		Usage:    "show the cached lookups",
		Examples: cacheExamples,
		Output:   true,
		Action:   cacheStatusAction,
		Meta:     meta,
	}
	refresh := CommandBuilder{
		Name:     "refresh",
		Usage:    "discard the cache and reload feature flag definitions and segments",
		Examples: cacheExamples,
		Action:   cacheRefreshAction,
		Meta:     meta,
	}
	invalidate := CommandBuilder{
		Name:      "invalidate",
		Usage:     "drop cached lookups so the next use fetches them again",
		UsageText: "splitctl cache invalidate <slot>... | --all",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "all",
				Usage:       "drop every lookup and remove the cache file",
				HideDefault: true,
			},
		},
		Examples: cacheExamples,
		Action:   cacheInvalidateAction,
		Meta:     meta,
	}
	path := CommandBuilder{
		Name:     "path",
		Usage:    "print the cache file location",
		Examples: cacheExamples,
		Action:   cachePathAction,
		Meta:     meta,
	}

	cb := CommandBuilder{
		Name:  "cache",
		Usage: "inspect and manage the lookup cache",
		Commands: []*cli.Command{
			status.Build(),
			refresh.Build(),
			invalidate.Build(),
			path.Build(),
		},
		Examples: cacheExamples,
		Meta:     meta,
	}
	return cb.Build()
}

func storeFor(cmd *cli.Command) (*cache.Store, error) {
	store := GetMeta(cmd).Store
	if store == nil {
		return nil, errors.New("no cache store configured")
	}
	return store, nil
}

func cacheStatusAction(_ context.Context, cmd *cli.Command) error {
	store, err := storeFor(cmd)
	if err != nil {
		return err
	}

	if cmd.String("output") == "text" {
		w := Writer(cmd)
		if store.Path() == "" {
			fmt.Fprintln(w, "Cache: memory only")
		} else {
			fmt.Fprintf(w, "Cache: %s\n", store.Path())
		}
		if saved := store.SavedAt(); !saved.IsZero() {
			fmt.Fprintf(w, "Saved: %s\n", humanize.Time(saved))
		}
	}

	statuses := store.Status()
	rows := make([]slotRow, 0, len(statuses))
	for _, s := range statuses {
		row := slotRow{Slot: s.Slot.String(), Populated: s.Populated, Bytes: s.Bytes, Size: "-"}
		if s.Populated {
			row.Size = humanize.Bytes(uint64(s.Bytes))
		}
		rows = append(rows, row)
	}
	return Emit(cmd, rows, "slot,populated,size", "")
}

func cacheRefreshAction(ctx context.Context, cmd *cli.Command) error {
	c, err := catalogFor(cmd)
	if err != nil {
		return err
	}
	if err := c.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(Writer(cmd), "Cache updated.")
	return nil
}

func cacheInvalidateAction(_ context.Context, cmd *cli.Command) error {
	store, err := storeFor(cmd)
	if err != nil {
		return err
	}
	w := Writer(cmd)

	if cmd.Bool("all") {
		if err := store.ResetAll(); err != nil {
			return err
		}
		fmt.Fprintln(w, "Cache cleared.")
		return nil
	}

	if cmd.Args().Len() == 0 {
		return errors.New("invalidate needs at least one slot, or --all")
	}

	slots := make([]cache.Slot, 0, cmd.Args().Len())
	for _, name := range cmd.Args().Slice() {
		slot, err := cache.ParseSlot(name)
		if err != nil {
			return err
		}
		slots = append(slots, slot)
	}
	if err := store.Invalidate(slots...); err != nil {
		return err
	}
	for _, s := range slots {
		fmt.Fprintf(w, "Invalidated %s\n", s)
	}
	return nil
}

func cachePathAction(_ context.Context, cmd *cli.Command) error {
	store, err := storeFor(cmd)
	if err != nil {
		return err
	}
	if store.Path() == "" {
		return errors.New("caching is disabled")
	}
	fmt.Fprintln(Writer(cmd), store.Path())
	return nil
}
