// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package split

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Workspaces lists every workspace in the organization.
func (c *Client) Workspaces(ctx context.Context) ([]Workspace, error) {
	return Paginate(ctx, c.pageSize, func(ctx context.Context, opts ListOptions) ([]Workspace, int, error) {
		var p page[Workspace]
		if err := c.do(ctx, http.MethodGet, "/workspaces", opts, nil, &p); err != nil {
			return nil, 0, fmt.Errorf("failed to list workspaces: %w", err)
		}
		return p.Objects, total(p.TotalCount), nil
	})
}

// FindWorkspace returns the workspace named name.
func (c *Client) FindWorkspace(ctx context.Context, name string) (Workspace, error) {
	all, err := c.Workspaces(ctx)
	if err != nil {
		return Workspace{}, err
	}
	for _, ws := range all {
		if ws.Name == name {
			return ws, nil
		}
	}
	return Workspace{}, fmt.Errorf("workspace %q: %w", name, ErrNotFound)
}

// Environments lists the environments of one workspace. The endpoint is not
// paginated.
func (c *Client) Environments(ctx context.Context, wsID string) ([]Environment, error) {
	var envs []Environment
	if err := c.do(ctx, http.MethodGet, "/environments/ws/"+seg(wsID), nil, nil, &envs); err != nil {
		return nil, fmt.Errorf("failed to list environments for workspace %s: %w", wsID, err)
	}
	return envs, nil
}

// FindEnvironment returns the environment named name (or with that ID) in a
// workspace.
func (c *Client) FindEnvironment(ctx context.Context, wsID, name string) (Environment, error) {
	envs, err := c.Environments(ctx, wsID)
	if err != nil {
		return Environment{}, err
	}
	for _, env := range envs {
		if env.Name == name || env.ID == name {
			return env, nil
		}
	}
	return Environment{}, fmt.Errorf("environment %q: %w", name, ErrNotFound)
}

// DeleteEnvironment removes an environment from a workspace.
func (c *Client) DeleteEnvironment(ctx context.Context, wsID, envID string) error {
	path := "/environments/ws/" + seg(wsID) + "/" + seg(envID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete environment %s: %w", envID, err)
	}
	return nil
}

// Segments lists the segments defined in one environment.
func (c *Client) Segments(ctx context.Context, wsID, envID string) ([]Segment, error) {
	path := "/segments/ws/" + seg(wsID) + "/environments/" + seg(envID)
	return Paginate(ctx, c.pageSize, func(ctx context.Context, opts ListOptions) ([]Segment, int, error) {
		var p page[Segment]
		if err := c.do(ctx, http.MethodGet, path, opts, nil, &p); err != nil {
			return nil, 0, fmt.Errorf("failed to list segments for environment %s: %w", envID, err)
		}
		return p.Objects, total(p.TotalCount), nil
	})
}

// SegmentKeys lists the keys of a segment in one environment.
func (c *Client) SegmentKeys(ctx context.Context, envID, segment string) ([]string, error) {
	path := "/segments/" + seg(envID) + "/" + seg(segment) + "/keys"
	return Paginate(ctx, c.pageSize, func(ctx context.Context, opts ListOptions) ([]string, int, error) {
		var p segmentKeysPage
		if err := c.do(ctx, http.MethodGet, path, opts, nil, &p); err != nil {
			return nil, 0, fmt.Errorf("failed to list keys for segment %s: %w", segment, err)
		}
		keys := make([]string, 0, len(p.Keys))
		for _, k := range p.Keys {
			keys = append(keys, k.Key)
		}
		return keys, total(p.Count), nil
	})
}

type uploadKeysParams struct {
	Replace bool `url:"replace"`
}

type uploadKeysBody struct {
	Keys    []string `json:"keys"`
	Comment string   `json:"comment,omitempty"`
}

// UploadSegmentKeys adds keys to a segment, or replaces its keys when replace
// is set.
func (c *Client) UploadSegmentKeys(
	ctx context.Context,
	envID, segment string,
	keys []string,
	replace bool,
	comment string,
) error {
	path := "/segments/" + seg(envID) + "/" + seg(segment) + "/uploadKeys"
	body := uploadKeysBody{Keys: keys, Comment: comment}
	if err := c.do(ctx, http.MethodPut, path, uploadKeysParams{Replace: replace}, body, nil); err != nil {
		return fmt.Errorf("failed to upload keys to segment %s: %w", segment, err)
	}
	return nil
}

// DeleteSegment removes a segment from a workspace.
func (c *Client) DeleteSegment(ctx context.Context, wsID, segment string) error {
	path := "/segments/ws/" + seg(wsID) + "/" + seg(segment)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete segment %s: %w", segment, err)
	}
	return nil
}

// Splits lists the feature flags of one workspace.
func (c *Client) Splits(ctx context.Context, wsID string) ([]Split, error) {
	path := "/splits/ws/" + seg(wsID)
	return Paginate(ctx, c.pageSize, func(ctx context.Context, opts ListOptions) ([]Split, int, error) {
		var p page[Split]
		if err := c.do(ctx, http.MethodGet, path, opts, nil, &p); err != nil {
			return nil, 0, fmt.Errorf("failed to list feature flags for workspace %s: %w", wsID, err)
		}
		return p.Objects, total(p.TotalCount), nil
	})
}

// SplitDefinitions lists the feature flag definitions of one environment.
func (c *Client) SplitDefinitions(ctx context.Context, wsID, envID string) ([]SplitDefinition, error) {
	path := "/splits/ws/" + seg(wsID) + "/environments/" + seg(envID)
	return Paginate(ctx, c.pageSize, func(ctx context.Context, opts ListOptions) ([]SplitDefinition, int, error) {
		var p page[SplitDefinition]
		if err := c.do(ctx, http.MethodGet, path, opts, nil, &p); err != nil {
			return nil, 0, fmt.Errorf("failed to list definitions for environment %s: %w", envID, err)
		}
		return p.Objects, total(p.TotalCount), nil
	})
}

// DeleteSplit removes a feature flag from a workspace.
func (c *Client) DeleteSplit(ctx context.Context, wsID, name string) error {
	path := "/splits/ws/" + seg(wsID) + "/" + seg(name)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete feature flag %s: %w", name, err)
	}
	return nil
}

// Groups lists every group in the organization.
func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	return Paginate(ctx, c.pageSize, func(ctx context.Context, opts ListOptions) ([]Group, int, error) {
		var p page[Group]
		if err := c.do(ctx, http.MethodGet, "/groups", opts, nil, &p); err != nil {
			return nil, 0, fmt.Errorf("failed to list groups: %w", err)
		}
		return p.Objects, total(p.TotalCount), nil
	})
}

// FindGroup returns the group named name.
func (c *Client) FindGroup(ctx context.Context, name string) (Group, error) {
	all, err := c.Groups(ctx)
	if err != nil {
		return Group{}, err
	}
	for _, g := range all {
		if g.Name == name {
			return g, nil
		}
	}
	return Group{}, fmt.Errorf("group %q: %w", name, ErrNotFound)
}

// DeleteGroup removes a group.
func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/groups/"+seg(id), nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete group %s: %w", id, err)
	}
	return nil
}

type userListParams struct {
	Status string `url:"status,omitempty"`
	Limit  int    `url:"limit,omitempty"`
	After  string `url:"after,omitempty"`
}

type userPage struct {
	Data       []User `json:"data"`
	NextMarker string `json:"nextMarker"`
}

// Users lists users with the given status (ACTIVE, DEACTIVATED, PENDING), or
// all users when status is empty.
func (c *Client) Users(ctx context.Context, status string) ([]User, error) {
	return PaginateMarker(ctx, func(ctx context.Context, marker string) ([]User, string, error) {
		params := userListParams{Status: strings.ToUpper(status), Limit: c.pageSize, After: marker}
		var p userPage
		if err := c.do(ctx, http.MethodGet, "/users", params, nil, &p); err != nil {
			return nil, "", fmt.Errorf("failed to list users: %w", err)
		}
		return p.Data, p.NextMarker, nil
	})
}

// FindUser returns the user with the given email, compared case-insensitively.
func (c *Client) FindUser(ctx context.Context, email string) (User, error) {
	all, err := c.Users(ctx, "")
	if err != nil {
		return User{}, err
	}
	for _, u := range all {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("user %q: %w", email, ErrNotFound)
}

// DefinitionRequest is the body that creates or fully replaces a feature
// flag definition in an environment.
type DefinitionRequest struct {
	Treatments        []Treatment `json:"treatments"`
	DefaultTreatment  string      `json:"defaultTreatment"`
	BaselineTreatment string      `json:"baselineTreatment,omitempty"`
	TrafficAllocation int         `json:"trafficAllocation"`
	Rules             []Rule      `json:"rules"`
	DefaultRule       []Bucket    `json:"defaultRule"`
}

// Request returns the targeting of d as a DefinitionRequest.
func (d SplitDefinition) Request() DefinitionRequest {
	return DefinitionRequest{
		Treatments:        d.Treatments,
		DefaultTreatment:  d.DefaultTreatment,
		BaselineTreatment: d.BaselineTreatment,
		TrafficAllocation: d.TrafficAllocation,
		Rules:             d.Rules,
		DefaultRule:       d.DefaultRule,
	}
}

type definitionParams struct {
	Comment string `url:"comment,omitempty"`
}

func definitionPath(wsID, envID, name string) string {
	return "/splits/ws/" + seg(wsID) + "/" + seg(name) + "/environments/" + seg(envID)
}

// CreateSplitDefinition adds a feature flag to an environment with the given
// targeting. The flag must already exist in the workspace.
func (c *Client) CreateSplitDefinition(
	ctx context.Context,
	wsID, envID, name string,
	def DefinitionRequest,
	comment string,
) error {
	if err := c.do(ctx, http.MethodPost, definitionPath(wsID, envID, name), definitionParams{Comment: comment}, def, nil); err != nil {
		return fmt.Errorf("failed to create definition of %s in environment %s: %w", name, envID, err)
	}
	return nil
}

// UpdateSplitDefinition replaces the targeting of a feature flag in an
// environment.
func (c *Client) UpdateSplitDefinition(
	ctx context.Context,
	wsID, envID, name string,
	def DefinitionRequest,
	comment string,
) error {
	if err := c.do(ctx, http.MethodPut, definitionPath(wsID, envID, name), definitionParams{Comment: comment}, def, nil); err != nil {
		return fmt.Errorf("failed to update definition of %s in environment %s: %w", name, envID, err)
	}
	return nil
}

// ActivateSegment enables a segment in an environment so keys can be
// uploaded to it there.
func (c *Client) ActivateSegment(ctx context.Context, envID, segment string) error {
	path := "/segments/" + seg(envID) + "/" + seg(segment)
	if err := c.do(ctx, http.MethodPost, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to activate segment %s in environment %s: %w", segment, envID, err)
	}
	return nil
}
