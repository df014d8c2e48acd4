// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/staranto/splitctl/internal/catalog"
)

// Getter fetches the data exported for one kind.
type Getter func(ctx context.Context, c *catalog.Catalog) (any, error)

// Kind is one exportable dataset.
type Kind struct {
	Name string
	Get  Getter
}

// Kinds lists every exportable dataset in menu order.
var Kinds = []Kind{
	{"groups", func(ctx context.Context, c *catalog.Catalog) (any, error) { return c.GroupsUsers(ctx) }},
	{"segments", func(ctx context.Context, c *catalog.Catalog) (any, error) { return c.Segments(ctx) }},
	{"splits", func(ctx context.Context, c *catalog.Catalog) (any, error) { return c.Splits(ctx) }},
	{"split_definitions", func(ctx context.Context, c *catalog.Catalog) (any, error) { return c.SplitDefinitions(ctx) }},
	{"users", func(ctx context.Context, c *catalog.Catalog) (any, error) { return c.Users(ctx) }},
	{"workspaces", func(ctx context.Context, c *catalog.Catalog) (any, error) { return c.Workspaces(ctx) }},
	{"environments", func(ctx context.Context, c *catalog.Catalog) (any, error) { return c.Environments(ctx) }},
}

// KindNames returns the names of Kinds.
func KindNames() []string {
	names := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		names = append(names, k.Name)
	}
	return names
}

// LookupKind finds a kind by name.
func LookupKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if k.Name == name {
			return k, nil
		}
	}
	return Kind{}, fmt.Errorf("unknown export kind %q (want one of %s)", name, strings.Join(KindNames(), ", "))
}

// Run fetches kind and writes it to dir, returning the path written.
func (k Kind) Run(ctx context.Context, c *catalog.Catalog, dir string) (string, error) {
	value, err := k.Get(ctx, c)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", k.Name, err)
	}
	return WriteJSON(dir, k.Name, value)
}
