// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package listing renders catalog collections as tables.
package listing

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/staranto/splitctl/internal/attrs"
	"github.com/staranto/splitctl/internal/catalog"
	"github.com/staranto/splitctl/internal/output"
)

// Kind is one listable collection and how it is shown by default.
type Kind struct {
	Name    string
	Attrs   string
	Sort    string
	Records func(ctx context.Context, c *catalog.Catalog) (any, error)
}

// Kinds lists every collection in menu order.
var Kinds = []Kind{
	{
		Name:  "workspaces",
		Attrs: "name,id,requiresTitleAndComments:titles",
		Sort:  "name",
		Records: func(ctx context.Context, c *catalog.Catalog) (any, error) {
			m, err := c.Workspaces(ctx)
			return catalog.Values(m), err
		},
	},
	{
		Name:  "environments",
		Attrs: "name,id,workspaceName:workspace,production",
		Sort:  "workspace,name",
		Records: func(ctx context.Context, c *catalog.Catalog) (any, error) {
			m, err := c.Environments(ctx)
			return catalog.Values(m), err
		},
	},
	{
		Name:  "groups",
		Attrs: "name,id",
		Sort:  "name",
		Records: func(ctx context.Context, c *catalog.Catalog) (any, error) {
			return c.GroupList(ctx)
		},
	},
	{
		Name:  "segments",
		Attrs: "name,environment.name:environment,workspace.name:workspace,trafficType.name:trafficType",
		Sort:  "name,workspace,environment",
		Records: func(ctx context.Context, c *catalog.Catalog) (any, error) {
			m, err := c.Segments(ctx)
			return catalog.Values(m), err
		},
	},
	{
		Name:  "splits",
		Attrs: "name,id,workspaceName:workspace,rolloutStatusName:rollout",
		Sort:  "name,workspace",
		Records: func(ctx context.Context, c *catalog.Catalog) (any, error) {
			m, err := c.Splits(ctx)
			return catalog.Flatten(m), err
		},
	},
	{
		Name:  "definitions",
		Attrs: "name,environment.name:environment,workspaceName:workspace,killed,defaultTreatment:default",
		Sort:  "name,workspace,environment",
		Records: func(ctx context.Context, c *catalog.Catalog) (any, error) {
			m, err := c.SplitDefinitions(ctx)
			return catalog.Flatten(m), err
		},
	},
	{
		Name:  "users",
		Attrs: "name,email,groups.#.name:groups",
		Sort:  "name",
		Records: func(ctx context.Context, c *catalog.Catalog) (any, error) {
			m, err := c.Users(ctx)
			return catalog.Values(m), err
		},
	},
}

// Names returns the names of Kinds.
func Names() []string {
	names := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		names = append(names, k.Name)
	}
	return names
}

// Lookup finds a kind by name. The singular form is accepted too.
func Lookup(name string) (Kind, error) {
	for _, k := range Kinds {
		if k.Name == name || strings.TrimSuffix(k.Name, "s") == name {
			return k, nil
		}
	}
	return Kind{}, fmt.Errorf("unknown kind %q (want one of %s)", name, strings.Join(Names(), ", "))
}

// DefaultAttrs parses the kind's default columns.
func (k Kind) DefaultAttrs() attrs.AttrList {
	var al attrs.AttrList
	_ = al.Set(k.Attrs)
	return al
}

// Render fetches the kind and writes it to w. Empty Attrs and Sort in opts
// fall back to the kind's defaults.
func (k Kind) Render(ctx context.Context, c *catalog.Catalog, opts output.Options, w io.Writer) error {
	records, err := k.Records(ctx, c)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", k.Name, err)
	}
	if len(opts.Attrs) == 0 {
		opts.Attrs = k.DefaultAttrs()
	}
	if opts.Sort == "" {
		opts.Sort = k.Sort
	}
	return output.SliceDiceSpit(records, opts, w)
}
