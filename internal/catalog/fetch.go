// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"

	"github.com/staranto/splitctl/internal/cache"
)

// UserStatus is the status the user lookup is restricted to.
const UserStatus = "ACTIVE"

// SegmentKey is the key a segment is stored under in the segments lookup.
func SegmentKey(name, envName string) string {
	return fmt.Sprintf("Segment: %s in Environment: %s", name, envName)
}

// WorkspaceSegmentKey is the key used instead of SegmentKey when the same
// segment and environment names exist in more than one workspace.
func WorkspaceSegmentKey(name, envName, wsName string) string {
	return SegmentKey(name, envName) + " in Workspace: " + wsName
}

// SegmentDefinitionKey is the key a segment is stored under in the segment
// definitions lookup.
func SegmentDefinitionKey(name, envID, wsID string) string {
	return name + "." + envID + "." + wsID
}

// Workspaces returns every workspace keyed by ID.
func (c *Catalog) Workspaces(ctx context.Context) (map[string]WorkspaceInfo, error) {
	return cache.GetOrFetch(ctx, c.store, cache.SlotWorkspaces, c.fetchWorkspaces)
}

func (c *Catalog) fetchWorkspaces(ctx context.Context) (map[string]WorkspaceInfo, error) {
	all, err := c.api.Workspaces(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[string]WorkspaceInfo, len(all))
	for _, ws := range all {
		result[ws.ID] = WorkspaceInfo{
			ID:                       ws.ID,
			Name:                     ws.Name,
			RequiresTitleAndComments: ws.RequiresTitleAndComments,
		}
	}
	return result, nil
}

// Environments returns the environments of every workspace keyed by
// environment ID.
func (c *Catalog) Environments(ctx context.Context) (map[string]EnvironmentInfo, error) {
	return cache.GetOrFetch(ctx, c.store, cache.SlotEnvironments, c.fetchEnvironments)
}

func (c *Catalog) fetchEnvironments(ctx context.Context) (map[string]EnvironmentInfo, error) {
	workspaces, err := c.Workspaces(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	result := make(map[string]EnvironmentInfo)

	err = fanOut(ctx, c.concurrency, Values(workspaces), func(ctx context.Context, ws WorkspaceInfo) error {
		envs, err := c.api.Environments(ctx, ws.ID)
		if err != nil {
			return err
		}

		mu.Lock()
		defer mu.Unlock()
		for _, env := range envs {
			result[env.ID] = EnvironmentInfo{
				ID:                    env.ID,
				Name:                  env.Name,
				WorkspaceID:           ws.ID,
				WorkspaceName:         ws.Name,
				Production:            env.Production,
				CreationTime:          env.CreationTime,
				Type:                  env.Type,
				OrgID:                 env.OrgID,
				Status:                env.Status,
				DataExportPermissions: env.DataExportPermissions,
				ChangePermissions:     env.ChangePermissions,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debugf("environments: %d across %d workspaces", len(result), len(workspaces))
	return result, nil
}

// Segments returns every segment of every environment, without keys, keyed
// by SegmentKey. Segments whose SegmentKey is shared by several workspaces
// are keyed by WorkspaceSegmentKey.
func (c *Catalog) Segments(ctx context.Context) (map[string]SegmentInfo, error) {
	return cache.GetOrFetch(ctx, c.store, cache.SlotSegments, c.fetchSegments)
}

func (c *Catalog) fetchSegments(ctx context.Context) (map[string]SegmentInfo, error) {
	envs, err := c.Environments(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		all []SegmentInfo
	)

	err = fanOut(ctx, c.concurrency, Values(envs), func(ctx context.Context, env EnvironmentInfo) error {
		segments, err := c.api.Segments(ctx, env.WorkspaceID, env.ID)
		if err != nil {
			return err
		}

		mu.Lock()
		defer mu.Unlock()
		for _, s := range segments {
			all = append(all, SegmentInfo{
				Name:         s.Name,
				Environment:  NamedRef{ID: env.ID, Name: env.Name},
				Workspace:    NamedRef{ID: env.WorkspaceID, Name: env.WorkspaceName},
				TrafficType:  NamedRef{ID: s.TrafficType.ID, Name: s.TrafficType.Name},
				CreationTime: s.CreationTime,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return keySegments(all), nil
}

// keySegments keys each segment by SegmentKey, falling back to
// WorkspaceSegmentKey for every segment whose SegmentKey is not unique.
func keySegments(all []SegmentInfo) map[string]SegmentInfo {
	workspaces := make(map[string]map[string]bool, len(all))
	for _, s := range all {
		k := SegmentKey(s.Name, s.Environment.Name)
		if workspaces[k] == nil {
			workspaces[k] = map[string]bool{}
		}
		workspaces[k][s.Workspace.ID] = true
	}

	result := make(map[string]SegmentInfo, len(all))
	for _, s := range all {
		k := SegmentKey(s.Name, s.Environment.Name)
		if len(workspaces[k]) > 1 {
			k = WorkspaceSegmentKey(s.Name, s.Environment.Name, s.Workspace.Name)
			if _, dup := result[k]; dup {
				k += " (" + s.Workspace.ID + ")"
			}
		}
		result[k] = s
	}
	return result
}

// SegmentDefinitions returns every segment with its keys, keyed by
// SegmentDefinitionKey.
func (c *Catalog) SegmentDefinitions(ctx context.Context) (map[string]SegmentInfo, error) {
	return cache.GetOrFetch(ctx, c.store, cache.SlotSegmentDefinitions, c.fetchSegmentDefinitions)
}

func (c *Catalog) fetchSegmentDefinitions(ctx context.Context) (map[string]SegmentInfo, error) {
	segments, err := c.Segments(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	result := make(map[string]SegmentInfo, len(segments))

	err = fanOut(ctx, c.concurrency, Values(segments), func(ctx context.Context, s SegmentInfo) error {
		keys, err := c.api.SegmentKeys(ctx, s.Environment.ID, s.Name)
		if err != nil {
			return err
		}
		s.Keys = keys

		mu.Lock()
		defer mu.Unlock()
		result[SegmentDefinitionKey(s.Name, s.Environment.ID, s.Workspace.ID)] = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Splits returns every feature flag grouped by name. A name defined in
// several workspaces has one entry per workspace, ordered by workspace name.
func (c *Catalog) Splits(ctx context.Context) (map[string][]SplitInfo, error) {
	return cache.GetOrFetch(ctx, c.store, cache.SlotSplits, c.fetchSplits)
}

func (c *Catalog) fetchSplits(ctx context.Context) (map[string][]SplitInfo, error) {
	workspaces, err := c.Workspaces(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	result := make(map[string][]SplitInfo)

	err = fanOut(ctx, c.concurrency, Values(workspaces), func(ctx context.Context, ws WorkspaceInfo) error {
		splits, err := c.api.Splits(ctx, ws.ID)
		if err != nil {
			return err
		}

		mu.Lock()
		defer mu.Unlock()
		for _, s := range splits {
			result[s.Name] = append(result[s.Name], SplitInfo{
				ID:                     s.ID,
				Name:                   s.Name,
				Description:            s.Description,
				WorkspaceID:            ws.ID,
				WorkspaceName:          ws.Name,
				TrafficTypeID:          s.TrafficType.ID,
				TrafficTypeName:        s.TrafficType.Name,
				CreationTime:           s.CreationTime,
				RolloutStatusID:        s.RolloutStatus.ID,
				RolloutStatusName:      s.RolloutStatus.Name,
				RolloutStatusTimestamp: s.RolloutStatusTimestamp,
				Tags:                   s.Tags,
				Owners:                 s.Owners,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, list := range result {
		slices.SortFunc(list, func(a, b SplitInfo) int {
			return strings.Compare(a.WorkspaceName, b.WorkspaceName)
		})
	}
	return result, nil
}

// SplitDefinitions returns the definition of every feature flag in every
// environment, grouped by flag name and ordered by workspace then
// environment.
func (c *Catalog) SplitDefinitions(ctx context.Context) (map[string][]DefinitionInfo, error) {
	return cache.GetOrFetch(ctx, c.store, cache.SlotSplitDefinitions, c.fetchSplitDefinitions)
}

func (c *Catalog) fetchSplitDefinitions(ctx context.Context) (map[string][]DefinitionInfo, error) {
	envs, err := c.Environments(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	result := make(map[string][]DefinitionInfo)

	err = fanOut(ctx, c.concurrency, Values(envs), func(ctx context.Context, env EnvironmentInfo) error {
		defs, err := c.api.SplitDefinitions(ctx, env.WorkspaceID, env.ID)
		if err != nil {
			return err
		}

		mu.Lock()
		defer mu.Unlock()
		for _, d := range defs {
			if d.Environment.ID == "" {
				d.Environment.ID = env.ID
			}
			if d.Environment.Name == "" {
				d.Environment.Name = env.Name
			}
			result[d.Name] = append(result[d.Name], DefinitionInfo{
				SplitDefinition: d,
				WorkspaceID:     env.WorkspaceID,
				WorkspaceName:   env.WorkspaceName,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, list := range result {
		slices.SortFunc(list, func(a, b DefinitionInfo) int {
			if n := strings.Compare(a.WorkspaceName, b.WorkspaceName); n != 0 {
				return n
			}
			return strings.Compare(a.Environment.Name, b.Environment.Name)
		})
	}
	return result, nil
}

// Groups returns every group name keyed by group ID.
func (c *Catalog) Groups(ctx context.Context) (map[string]string, error) {
	return cache.GetOrFetch(ctx, c.store, cache.SlotGroups, c.fetchGroups)
}

func (c *Catalog) fetchGroups(ctx context.Context) (map[string]string, error) {
	all, err := c.api.Groups(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(all))
	for _, g := range all {
		result[g.ID] = g.Name
	}
	return result, nil
}

// GroupList returns every group ordered by name.
func (c *Catalog) GroupList(ctx context.Context) ([]GroupInfo, error) {
	groups, err := c.Groups(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]GroupInfo, 0, len(groups))
	for id, name := range groups {
		result = append(result, GroupInfo{ID: id, Name: name})
	}
	slices.SortFunc(result, func(a, b GroupInfo) int {
		return cmpNameID(a.Name, a.ID, b.Name, b.ID)
	})
	return result, nil
}

// Users returns every active user keyed by name, with group memberships
// resolved to group names.
func (c *Catalog) Users(ctx context.Context) (map[string]UserInfo, error) {
	return cache.GetOrFetch(ctx, c.store, cache.SlotUsers, c.fetchUsers)
}

func (c *Catalog) fetchUsers(ctx context.Context) (map[string]UserInfo, error) {
	groups, err := c.Groups(ctx)
	if err != nil {
		return nil, err
	}

	all, err := c.api.Users(ctx, UserStatus)
	if err != nil {
		return nil, err
	}

	result := make(map[string]UserInfo, len(all))
	for _, u := range all {
		refs := make([]GroupRef, 0, len(u.Groups))
		for _, g := range u.Groups {
			name, ok := groups[g.ID]
			if !ok {
				log.WithField("group", g.ID).Debugf("user %s is in an unknown group", u.Email)
				name = g.ID
			}
			refs = append(refs, GroupRef{ID: g.ID, Type: g.Type, Name: name})
		}
		result[u.Name] = UserInfo{
			ID:     u.ID,
			Type:   u.Type,
			Name:   u.Name,
			Email:  u.Email,
			Status: u.Status,
			Groups: refs,
		}
	}
	return result, nil
}

// GroupsUsers returns the members of every group keyed by group name. It is
// derived from the groups and users lookups and not cached on its own.
func (c *Catalog) GroupsUsers(ctx context.Context) (map[string]GroupMembers, error) {
	groups, err := c.Groups(ctx)
	if err != nil {
		return nil, err
	}
	users, err := c.Users(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[string]GroupMembers, len(groups))
	for id, name := range groups {
		members := GroupMembers{ID: id, Group: name, Users: []string{}}
		for userName, u := range users {
			if slices.ContainsFunc(u.Groups, func(g GroupRef) bool { return g.ID == id }) {
				members.Users = append(members.Users, userName)
			}
		}
		slices.Sort(members.Users)
		result[name] = members
	}
	return result, nil
}

// fanOut runs fn for every item with at most limit calls in flight. The first
// error cancels the rest and is returned.
func fanOut[T any](ctx context.Context, limit int, items []T, fn func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, item := range items {
		g.Go(func() error {
			return fn(gctx, item)
		})
	}

	return g.Wait()
}

func cmpNameID(aName, aID, bName, bID string) int {
	if n := strings.Compare(aName, bName); n != 0 {
		return n
	}
	return strings.Compare(aID, bID)
}
