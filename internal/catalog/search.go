// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/staranto/splitctl/internal/split"
)

// FindWorkspace returns the workspace named name.
func (c *Catalog) FindWorkspace(ctx context.Context, name string) (WorkspaceInfo, error) {
	workspaces, err := c.Workspaces(ctx)
	if err != nil {
		return WorkspaceInfo{}, err
	}
	for _, ws := range Values(workspaces) {
		if ws.Name == name {
			return ws, nil
		}
	}
	return WorkspaceInfo{}, fmt.Errorf("workspace %q: %w", name, split.ErrNotFound)
}

// FindGroup returns the group named name with its members.
func (c *Catalog) FindGroup(ctx context.Context, name string) (GroupMembers, error) {
	groups, err := c.GroupsUsers(ctx)
	if err != nil {
		return GroupMembers{}, err
	}
	if g, ok := groups[name]; ok {
		return g, nil
	}
	return GroupMembers{}, fmt.Errorf("group %q: %w", name, split.ErrNotFound)
}

// FindEnvironments returns every environment named name, across all
// workspaces.
func (c *Catalog) FindEnvironments(ctx context.Context, name string) ([]EnvironmentInfo, error) {
	envs, err := c.Environments(ctx)
	if err != nil {
		return nil, err
	}

	var found []EnvironmentInfo
	for _, env := range envs {
		if env.Name == name {
			found = append(found, env)
		}
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("environment %q: %w", name, split.ErrNotFound)
	}
	slices.SortFunc(found, func(a, b EnvironmentInfo) int {
		return cmpNameID(a.WorkspaceName, a.ID, b.WorkspaceName, b.ID)
	})
	return found, nil
}

// FindEnvironment returns the environment named envName (or with that ID) in
// the workspace named wsName.
func (c *Catalog) FindEnvironment(ctx context.Context, wsName, envName string) (EnvironmentInfo, error) {
	envs, err := c.Environments(ctx)
	if err != nil {
		return EnvironmentInfo{}, err
	}
	for _, env := range Values(envs) {
		if env.WorkspaceName == wsName && (env.Name == envName || env.ID == envName) {
			return env, nil
		}
	}
	return EnvironmentInfo{}, fmt.Errorf("environment %q in workspace %q: %w", envName, wsName, split.ErrNotFound)
}

// FindUser returns the user with the given email, compared
// case-insensitively.
func (c *Catalog) FindUser(ctx context.Context, email string) (UserInfo, error) {
	users, err := c.Users(ctx)
	if err != nil {
		return UserInfo{}, err
	}
	for _, u := range Values(users) {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return UserInfo{}, fmt.Errorf("user %q: %w", email, split.ErrNotFound)
}

// FindSplits returns the workspace level definitions of the feature flag
// named name.
func (c *Catalog) FindSplits(ctx context.Context, name string) ([]SplitInfo, error) {
	splits, err := c.Splits(ctx)
	if err != nil {
		return nil, err
	}
	if found, ok := splits[name]; ok && len(found) > 0 {
		return found, nil
	}
	return nil, fmt.Errorf("feature flag %q: %w", name, split.ErrNotFound)
}

// FindSplitDefinitions returns the per environment definitions of the
// feature flag named name.
func (c *Catalog) FindSplitDefinitions(ctx context.Context, name string) ([]DefinitionInfo, error) {
	defs, err := c.SplitDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	if found, ok := defs[name]; ok && len(found) > 0 {
		return found, nil
	}
	return nil, fmt.Errorf("feature flag %q: %w", name, split.ErrNotFound)
}

// FindSplitDefinition returns the definition of a feature flag in one
// workspace and environment.
func (c *Catalog) FindSplitDefinition(ctx context.Context, name, wsName, envName string) (DefinitionInfo, error) {
	defs, err := c.FindSplitDefinitions(ctx, name)
	if err != nil {
		return DefinitionInfo{}, err
	}
	for _, d := range defs {
		if d.WorkspaceName == wsName && (d.Environment.Name == envName || d.Environment.ID == envName) {
			return d, nil
		}
	}
	return DefinitionInfo{}, fmt.Errorf("feature flag %q in %s/%s: %w", name, wsName, envName, split.ErrNotFound)
}

// FindSegments returns the segment named name in every environment it
// exists in.
func (c *Catalog) FindSegments(ctx context.Context, name string) ([]SegmentInfo, error) {
	segments, err := c.Segments(ctx)
	if err != nil {
		return nil, err
	}

	var found []SegmentInfo
	for _, s := range Values(segments) {
		if s.Name == name {
			found = append(found, s)
		}
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("segment %q: %w", name, split.ErrNotFound)
	}
	slices.SortFunc(found, func(a, b SegmentInfo) int {
		return cmpNameID(a.Workspace.Name, a.Environment.Name, b.Workspace.Name, b.Environment.Name)
	})
	return found, nil
}

// FindSegmentDefinition returns a segment, with its keys, in one workspace
// and environment.
func (c *Catalog) FindSegmentDefinition(ctx context.Context, name, wsName, envName string) (SegmentInfo, error) {
	defs, err := c.SegmentDefinitions(ctx)
	if err != nil {
		return SegmentInfo{}, err
	}
	for _, s := range Values(defs) {
		if s.Name == name && s.Workspace.Name == wsName && (s.Environment.Name == envName || s.Environment.ID == envName) {
			return s, nil
		}
	}
	return SegmentInfo{}, fmt.Errorf("segment %q in %s/%s: %w", name, wsName, envName, split.ErrNotFound)
}
