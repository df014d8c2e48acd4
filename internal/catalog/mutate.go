// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"

	"github.com/staranto/splitctl/internal/cache"
	"github.com/staranto/splitctl/internal/split"
)

var (
	// ErrSameTarget is returned when a copy would write onto its own source.
	ErrSameTarget = errors.New("source and target are the same")
	// ErrNoKeys is returned when the source segment of a copy has no keys.
	ErrNoKeys = errors.New("segment has no keys to copy")
)

// CopyComment is the change comment used when none is given.
const CopyComment = "copied by splitctl"

// Slots each mutation leaves stale.
var (
	groupSlots       = []cache.Slot{cache.SlotGroups, cache.SlotUsers}
	segmentSlots     = []cache.Slot{cache.SlotSegments, cache.SlotSegmentDefinitions}
	segmentKeySlots  = []cache.Slot{cache.SlotSegmentDefinitions}
	definitionSlots  = []cache.Slot{cache.SlotSplitDefinitions}
	splitSlots       = []cache.Slot{cache.SlotSplits, cache.SlotSplitDefinitions}
	environmentSlots = []cache.Slot{
		cache.SlotEnvironments,
		cache.SlotSegments,
		cache.SlotSegmentDefinitions,
		cache.SlotSplitDefinitions,
	}
)

// DeleteGroup deletes a group and invalidates the group and user lookups.
func (c *Catalog) DeleteGroup(ctx context.Context, id string) error {
	if err := c.api.DeleteGroup(ctx, id); err != nil {
		return err
	}
	return c.invalidate("group", groupSlots)
}

// DeleteSegment deletes a segment from a workspace and invalidates the
// segment lookups.
func (c *Catalog) DeleteSegment(ctx context.Context, wsID, name string) error {
	if err := c.api.DeleteSegment(ctx, wsID, name); err != nil {
		return err
	}
	return c.invalidate("segment", segmentSlots)
}

// DeleteSplit deletes a feature flag from a workspace and invalidates the
// flag lookups.
func (c *Catalog) DeleteSplit(ctx context.Context, wsID, name string) error {
	if err := c.api.DeleteSplit(ctx, wsID, name); err != nil {
		return err
	}
	return c.invalidate("feature flag", splitSlots)
}

// DeleteEnvironment deletes an environment and invalidates every lookup that
// is enumerated per environment.
func (c *Catalog) DeleteEnvironment(ctx context.Context, wsID, envID string) error {
	if err := c.api.DeleteEnvironment(ctx, wsID, envID); err != nil {
		return err
	}
	return c.invalidate("environment", environmentSlots)
}

// UploadSegmentKeys adds keys to a segment, replacing the current keys when
// replace is set, and invalidates the segment definitions lookup.
func (c *Catalog) UploadSegmentKeys(
	ctx context.Context,
	envID, segment string,
	keys []string,
	replace bool,
	comment string,
) error {
	if err := c.api.UploadSegmentKeys(ctx, envID, segment, keys, replace, comment); err != nil {
		return err
	}
	return c.invalidate("segment keys", segmentKeySlots)
}

// CopySplitDefinition copies the targeting of src onto the feature flag name
// in dst. The definition is replaced when the flag is already in dst and
// created otherwise. It reports whether a definition was created.
func (c *Catalog) CopySplitDefinition(
	ctx context.Context,
	src DefinitionInfo,
	dst EnvironmentInfo,
	name, comment string,
) (bool, error) {
	if name == "" {
		name = src.Name
	}
	if name == src.Name && dst.ID == src.Environment.ID && dst.WorkspaceID == src.WorkspaceID {
		return false, ErrSameTarget
	}
	if comment == "" {
		comment = CopyComment
	}

	exists, err := c.hasSplitDefinition(ctx, name, dst)
	if err != nil {
		return false, err
	}

	body := src.Request()
	if exists {
		err = c.api.UpdateSplitDefinition(ctx, dst.WorkspaceID, dst.ID, name, body, comment)
	} else {
		err = c.api.CreateSplitDefinition(ctx, dst.WorkspaceID, dst.ID, name, body, comment)
	}
	if err != nil {
		return false, err
	}
	log.Debugf("copied %s/%s/%s to %s/%s/%s", src.WorkspaceName, src.Environment.Name, src.Name, dst.WorkspaceName, dst.Name, name)
	return !exists, c.invalidate("feature flag definition", definitionSlots)
}

func (c *Catalog) hasSplitDefinition(ctx context.Context, name string, env EnvironmentInfo) (bool, error) {
	defs, err := c.FindSplitDefinitions(ctx, name)
	if errors.Is(err, split.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, d := range defs {
		if d.WorkspaceID == env.WorkspaceID && d.Environment.ID == env.ID {
			return true, nil
		}
	}
	return false, nil
}

// CopySegmentKeys uploads the keys of src to the segment name in dst,
// activating the segment there first when it is not yet in that
// environment. Keys are added to the target unless replace is set. It
// reports whether the segment was activated.
func (c *Catalog) CopySegmentKeys(
	ctx context.Context,
	src SegmentInfo,
	dst EnvironmentInfo,
	name string,
	replace bool,
	comment string,
) (bool, error) {
	if name == "" {
		name = src.Name
	}
	if name == src.Name && dst.ID == src.Environment.ID && dst.WorkspaceID == src.Workspace.ID {
		return false, ErrSameTarget
	}
	if len(src.Keys) == 0 {
		return false, ErrNoKeys
	}
	if comment == "" {
		comment = CopyComment
	}

	defs, err := c.SegmentDefinitions(ctx)
	if err != nil {
		return false, err
	}
	_, exists := defs[SegmentDefinitionKey(name, dst.ID, dst.WorkspaceID)]

	if !exists {
		if err := c.api.ActivateSegment(ctx, dst.ID, name); err != nil {
			return false, err
		}
		if err := c.invalidate("segment", segmentSlots); err != nil {
			return true, err
		}
	}
	if err := c.UploadSegmentKeys(ctx, dst.ID, name, src.Keys, replace, comment); err != nil {
		return !exists, err
	}
	return !exists, nil
}

// Refresh discards the whole store, then warms the flag definition and
// segment lookups.
func (c *Catalog) Refresh(ctx context.Context) error {
	if err := c.store.ResetAll(); err != nil {
		return err
	}
	if _, err := c.SplitDefinitions(ctx); err != nil {
		return fmt.Errorf("failed to reload feature flag definitions: %w", err)
	}
	if _, err := c.Segments(ctx); err != nil {
		return fmt.Errorf("failed to reload segments: %w", err)
	}
	log.Debugf("cache refreshed: %s", c.store.Path())
	return nil
}

func (c *Catalog) invalidate(what string, slots []cache.Slot) error {
	if err := c.store.Invalidate(slots...); err != nil {
		return fmt.Errorf("%s changed but the cache was not updated: %w", what, err)
	}
	return nil
}
