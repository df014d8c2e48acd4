// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package menu

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/staranto/splitctl/internal/catalog"
	"github.com/staranto/splitctl/internal/export"
	"github.com/staranto/splitctl/internal/listing"
	"github.com/staranto/splitctl/internal/output"
	"github.com/staranto/splitctl/internal/split"
)

func (m *Menu) refreshCache(ctx context.Context) error {
	fmt.Fprintln(m.out, "Updating cache, please wait...")
	if err := m.catalog.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(m.out, "Cache updated.")
	return nil
}

func (m *Menu) searchWorkspacesOrGroups(ctx context.Context) error {
	name, err := m.prompter.Input("Enter the workspace or group name:")
	if err != nil {
		return err
	}

	ws, err := m.catalog.FindWorkspace(ctx, name)
	if err == nil {
		fmt.Fprintln(m.out, "Workspace found:")
		return m.show(ws)
	}
	if !errors.Is(err, split.ErrNotFound) {
		return err
	}

	group, err := m.catalog.FindGroup(ctx, name)
	if errors.Is(err, split.ErrNotFound) {
		fmt.Fprintf(m.out, "No workspace or group named %q.\n", name)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(m.out, "Group found:")
	return m.show(group)
}

func (m *Menu) searchEnvironments(ctx context.Context) error {
	name, err := m.prompter.Input("Enter the environment name:")
	if err != nil {
		return err
	}
	envs, err := m.catalog.FindEnvironments(ctx, name)
	if errors.Is(err, split.ErrNotFound) {
		fmt.Fprintf(m.out, "Environment %q not found.\n", name)
		return nil
	}
	if err != nil {
		return err
	}
	return m.show(envs)
}

func (m *Menu) searchUsers(ctx context.Context) error {
	email, err := m.prompter.Input("Enter the user email:")
	if err != nil {
		return err
	}
	user, err := m.catalog.FindUser(ctx, email)
	if errors.Is(err, split.ErrNotFound) {
		fmt.Fprintf(m.out, "User %q not found.\n", email)
		return nil
	}
	if err != nil {
		return err
	}
	return m.show(user)
}

func (m *Menu) searchSplits(ctx context.Context) error {
	name, err := m.prompter.Input("Enter the feature flag name:")
	if err != nil {
		return err
	}
	flags, err := m.catalog.FindSplits(ctx, name)
	if errors.Is(err, split.ErrNotFound) {
		fmt.Fprintf(m.out, "Feature flag %q not found.\n", name)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(m.out, "Feature flags found:")
	if err := m.show(flags); err != nil {
		return err
	}

	see, err := m.prompter.Confirm("Do you want to see the definitions for this feature flag?")
	if err != nil || !see {
		return err
	}

	defs, err := m.catalog.FindSplitDefinitions(ctx, name)
	if err != nil {
		return err
	}

	workspaces := unique(defs, func(d catalog.DefinitionInfo) string { return d.WorkspaceName })
	wi, err := m.pick("workspaces containing the feature flag", workspaces)
	if err != nil {
		return err
	}
	var inWorkspace []catalog.DefinitionInfo
	for _, d := range defs {
		if d.WorkspaceName == workspaces[wi] {
			inWorkspace = append(inWorkspace, d)
		}
	}

	envs := unique(inWorkspace, func(d catalog.DefinitionInfo) string { return d.Environment.Name })
	ei, err := m.pick("environments with a definition", envs)
	if err != nil {
		return err
	}

	def, err := m.catalog.FindSplitDefinition(ctx, name, workspaces[wi], envs[ei])
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Definition of %s in environment %s and workspace %s:\n", name, envs[ei], workspaces[wi])
	if err := m.show(def); err != nil {
		return err
	}
	return m.exportDefinition(def)
}

// definitionExports are offered after a definition is shown. The last entry
// ends the loop.
var definitionExports = []string{
	"Export definition (json)",
	"Export treatment keys (json)",
	"Export treatment keys (csv)",
	"Export targeting rules (json)",
	"Export targeting rules (csv)",
	"Done",
}

func (m *Menu) exportDefinition(def catalog.DefinitionInfo) error {
	for {
		choice, err := m.prompter.Choose("Export", definitionExports)
		if err != nil {
			return err
		}

		var path string
		switch choice {
		case 0:
			path, err = export.WriteDefinition(m.dir, def)
		case 1, 2:
			path, err = export.WriteTreatments(m.dir, def, choice == 2)
		case 3, 4:
			path, err = export.WriteMatchers(m.dir, def, choice == 4)
		default:
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(m.out, "Exported to %s\n", path)
	}
}

func (m *Menu) searchSegments(ctx context.Context) error {
	name, err := m.prompter.Input("Enter the segment name:")
	if err != nil {
		return err
	}
	segments, err := m.catalog.FindSegments(ctx, name)
	if errors.Is(err, split.ErrNotFound) {
		fmt.Fprintf(m.out, "Segment %q not found.\n", name)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(m.out, "Segments found:")
	if err := m.show(segments); err != nil {
		return err
	}

	see, err := m.prompter.Confirm("Do you want to see the keys of this segment?")
	if err != nil || !see {
		return err
	}

	workspaces := unique(segments, func(s catalog.SegmentInfo) string { return s.Workspace.Name })
	wi, err := m.pick("workspaces containing the segment", workspaces)
	if err != nil {
		return err
	}
	var inWorkspace []catalog.SegmentInfo
	for _, s := range segments {
		if s.Workspace.Name == workspaces[wi] {
			inWorkspace = append(inWorkspace, s)
		}
	}
	envs := unique(inWorkspace, func(s catalog.SegmentInfo) string { return s.Environment.Name })
	ei, err := m.pick("environments containing the segment", envs)
	if err != nil {
		return err
	}

	def, err := m.catalog.FindSegmentDefinition(ctx, name, workspaces[wi], envs[ei])
	if err != nil {
		return err
	}
	if err := m.show(def); err != nil {
		return err
	}

	save, err := m.prompter.Confirm("Do you want to export the keys of this segment?")
	if err != nil || !save {
		return err
	}
	path, err := export.WriteSegmentKeys(m.dir, def)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Keys exported to %s\n", path)
	return nil
}

func listKind(name string) handler {
	return func(m *Menu, ctx context.Context) error {
		k, err := listing.Lookup(name)
		if err != nil {
			return err
		}
		return k.Render(ctx, m.catalog, output.Options{Format: "text", Titles: true}, m.out)
	}
}

func exportKind(name string) handler {
	return func(m *Menu, ctx context.Context) error {
		k, err := export.LookupKind(name)
		if err != nil {
			return err
		}
		fmt.Fprintln(m.out, "Exporting data, please wait...")
		path, err := k.Run(ctx, m.catalog, m.dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(m.out, "%s data exported to %s\n", k.Name, path)
		return nil
	}
}

func (m *Menu) exportAll(ctx context.Context) error {
	fmt.Fprintln(m.out, "Exporting data, please wait...")
	for _, k := range export.Kinds {
		path, err := k.Run(ctx, m.catalog, m.dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(m.out, "%s data exported to %s\n", k.Name, path)
	}

	convert, err := m.prompter.Confirm("Do you want to convert the exports to CSV?")
	if err != nil || !convert {
		return err
	}
	pairs, err := export.ConvertAll(m.dir)
	for _, p := range pairs {
		fmt.Fprintf(m.out, "Converted %s to %s\n", p.JSON, p.CSV)
	}
	return err
}

func (m *Menu) deleteGroups(ctx context.Context) error {
	groups, err := m.catalog.GroupList(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}

	i, err := m.pick("groups", names)
	if err != nil {
		return err
	}
	return m.confirmDelete(groups[i].Name, func() error {
		return m.catalog.DeleteGroup(ctx, groups[i].ID)
	})
}

func (m *Menu) deleteSegments(ctx context.Context) error {
	ws, err := m.chooseWorkspace(ctx)
	if err != nil {
		return err
	}
	segments, err := m.catalog.Segments(ctx)
	if err != nil {
		return err
	}
	var inWorkspace []catalog.SegmentInfo
	for _, s := range catalog.Values(segments) {
		if s.Workspace.ID == ws.ID {
			inWorkspace = append(inWorkspace, s)
		}
	}
	names := unique(inWorkspace, func(s catalog.SegmentInfo) string { return s.Name })

	i, err := m.pick("segments in "+ws.Name, names)
	if err != nil {
		return err
	}
	return m.confirmDelete(names[i], func() error {
		return m.catalog.DeleteSegment(ctx, ws.ID, names[i])
	})
}

func (m *Menu) deleteFeatureFlags(ctx context.Context) error {
	ws, err := m.chooseWorkspace(ctx)
	if err != nil {
		return err
	}
	flags, err := m.catalog.Splits(ctx)
	if err != nil {
		return err
	}
	var inWorkspace []catalog.SplitInfo
	for _, f := range catalog.Flatten(flags) {
		if f.WorkspaceID == ws.ID {
			inWorkspace = append(inWorkspace, f)
		}
	}
	names := unique(inWorkspace, func(f catalog.SplitInfo) string { return f.Name })

	i, err := m.pick("feature flags in "+ws.Name, names)
	if err != nil {
		return err
	}
	return m.confirmDelete(names[i], func() error {
		return m.catalog.DeleteSplit(ctx, ws.ID, names[i])
	})
}

func (m *Menu) deleteEnvironments(ctx context.Context) error {
	ws, err := m.chooseWorkspace(ctx)
	if err != nil {
		return err
	}
	env, err := m.chooseEnvironment(ctx, ws)
	if err != nil {
		return err
	}
	return m.confirmDelete(env.Name, func() error {
		return m.catalog.DeleteEnvironment(ctx, ws.ID, env.ID)
	})
}

func (m *Menu) exportSegmentKeys(ctx context.Context) error {
	ws, err := m.chooseWorkspace(ctx)
	if err != nil {
		return err
	}
	env, err := m.chooseEnvironment(ctx, ws)
	if err != nil {
		return err
	}

	defs, err := m.catalog.SegmentDefinitions(ctx)
	if err != nil {
		return err
	}
	var inEnv []catalog.SegmentInfo
	for _, s := range catalog.Values(defs) {
		if s.Workspace.ID == ws.ID && s.Environment.ID == env.ID {
			inEnv = append(inEnv, s)
		}
	}
	names := unique(inEnv, func(s catalog.SegmentInfo) string { return s.Name })

	i, err := m.pick("segments in "+ws.Name+"/"+env.Name, names)
	if err != nil {
		return err
	}
	def, err := m.catalog.FindSegmentDefinition(ctx, names[i], ws.Name, env.Name)
	if err != nil {
		return err
	}
	path, err := export.WriteSegmentKeys(m.dir, def)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Keys exported to %s\n", path)
	return nil
}

func (m *Menu) copyFeatureFlagDefinitions(ctx context.Context) error {
	ws, err := m.chooseWorkspace(ctx)
	if err != nil {
		return err
	}
	env, err := m.chooseEnvironment(ctx, ws)
	if err != nil {
		return err
	}

	defs, err := m.catalog.SplitDefinitions(ctx)
	if err != nil {
		return err
	}
	var inEnv []catalog.DefinitionInfo
	for _, d := range catalog.Flatten(defs) {
		if d.WorkspaceID == ws.ID && d.Environment.ID == env.ID {
			inEnv = append(inEnv, d)
		}
	}
	names := unique(inEnv, func(d catalog.DefinitionInfo) string { return d.Name })
	i, err := m.pick("feature flags in "+ws.Name+"/"+env.Name, names)
	if err != nil {
		return err
	}
	src, err := m.catalog.FindSplitDefinition(ctx, names[i], ws.Name, env.Name)
	if err != nil {
		return err
	}

	fmt.Fprintln(m.out, "This is the definition of the chosen feature flag:")
	if err := m.show(src); err != nil {
		return err
	}
	ok, err := m.prompter.Confirm("Is this the definition you want?")
	if err != nil || !ok {
		return err
	}

	fmt.Fprintln(m.out, "Select the target.")
	dstWS, err := m.chooseWorkspace(ctx)
	if err != nil {
		return err
	}
	dst, err := m.chooseEnvironment(ctx, dstWS)
	if err != nil {
		return err
	}

	flags, err := m.catalog.Splits(ctx)
	if err != nil {
		return err
	}
	var inTarget []catalog.SplitInfo
	for _, f := range catalog.Flatten(flags) {
		if f.WorkspaceID == dstWS.ID {
			inTarget = append(inTarget, f)
		}
	}
	targets := unique(inTarget, func(f catalog.SplitInfo) string { return f.Name })
	ti, err := m.pick("feature flags in "+dstWS.Name, targets)
	if err != nil {
		return err
	}

	if _, err := m.catalog.CopySplitDefinition(ctx, src, dst, targets[ti], ""); err != nil {
		return fmt.Errorf("copying feature flag definition failed: %w", err)
	}
	fmt.Fprintf(m.out, "Copied definition of %s in %s/%s to %s in %s/%s.\n",
		src.Name, ws.Name, env.Name, targets[ti], dstWS.Name, dst.Name)
	return nil
}

func (m *Menu) copySegmentKeys(ctx context.Context) error {
	ws, err := m.chooseWorkspace(ctx)
	if err != nil {
		return err
	}
	env, err := m.chooseEnvironment(ctx, ws)
	if err != nil {
		return err
	}

	defs, err := m.catalog.SegmentDefinitions(ctx)
	if err != nil {
		return err
	}
	var inEnv []catalog.SegmentInfo
	for _, s := range catalog.Values(defs) {
		if s.Workspace.ID == ws.ID && s.Environment.ID == env.ID {
			inEnv = append(inEnv, s)
		}
	}
	names := unique(inEnv, func(s catalog.SegmentInfo) string { return s.Name })
	i, err := m.pick("segments in "+ws.Name+"/"+env.Name, names)
	if err != nil {
		return err
	}
	src, err := m.catalog.FindSegmentDefinition(ctx, names[i], ws.Name, env.Name)
	if err != nil {
		return err
	}

	fmt.Fprintf(m.out, "Keys of segment %s:\n", src.Name)
	for n, k := range src.Keys {
		fmt.Fprintf(m.out, "%d. %s\n", n+1, k)
	}
	ok, err := m.prompter.Confirm("Are these the keys you want?")
	if err != nil || !ok {
		return err
	}

	fmt.Fprintln(m.out, "Select the target.")
	dstWS, err := m.chooseWorkspace(ctx)
	if err != nil {
		return err
	}
	dst, err := m.chooseEnvironment(ctx, dstWS)
	if err != nil {
		return err
	}

	segments, err := m.catalog.Segments(ctx)
	if err != nil {
		return err
	}
	var inTarget []catalog.SegmentInfo
	for _, s := range catalog.Values(segments) {
		if s.Workspace.ID == dstWS.ID {
			inTarget = append(inTarget, s)
		}
	}
	targets := unique(inTarget, func(s catalog.SegmentInfo) string { return s.Name })
	ti, err := m.pick("segments in "+dstWS.Name, targets)
	if err != nil {
		return err
	}
	replace, err := m.prompter.Confirm("Replace the keys already in the target?")
	if err != nil {
		return err
	}

	if _, err := m.catalog.CopySegmentKeys(ctx, src, dst, targets[ti], replace, ""); err != nil {
		return fmt.Errorf("copying segment keys failed: %w", err)
	}
	fmt.Fprintf(m.out, "Copied %d keys from %s in %s/%s to %s in %s/%s.\n",
		len(src.Keys), src.Name, ws.Name, env.Name, targets[ti], dstWS.Name, dst.Name)
	return nil
}

func (m *Menu) chooseWorkspace(ctx context.Context) (catalog.WorkspaceInfo, error) {
	workspaces, err := m.catalog.Workspaces(ctx)
	if err != nil {
		return catalog.WorkspaceInfo{}, err
	}
	list := catalog.Values(workspaces)
	slices.SortFunc(list, func(a, b catalog.WorkspaceInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	names := make([]string, 0, len(list))
	for _, ws := range list {
		names = append(names, ws.Name)
	}

	i, err := m.pick("workspaces", names)
	if err != nil {
		return catalog.WorkspaceInfo{}, err
	}
	return list[i], nil
}

func (m *Menu) chooseEnvironment(ctx context.Context, ws catalog.WorkspaceInfo) (catalog.EnvironmentInfo, error) {
	envs, err := m.catalog.Environments(ctx)
	if err != nil {
		return catalog.EnvironmentInfo{}, err
	}
	var list []catalog.EnvironmentInfo
	for _, env := range catalog.Values(envs) {
		if env.WorkspaceID == ws.ID {
			list = append(list, env)
		}
	}
	slices.SortFunc(list, func(a, b catalog.EnvironmentInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	names := make([]string, 0, len(list))
	for _, env := range list {
		names = append(names, env.Name)
	}

	i, err := m.pick("environments in "+ws.Name, names)
	if err != nil {
		return catalog.EnvironmentInfo{}, err
	}
	return list[i], nil
}

func (m *Menu) confirmDelete(name string, del func() error) error {
	ok, err := m.prompter.Confirm(fmt.Sprintf("Are you sure you want to delete '%s'?", name))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(m.out, "Deletion cancelled")
		return nil
	}
	if err := del(); err != nil {
		return fmt.Errorf("failed to delete '%s': %w", name, err)
	}
	fmt.Fprintf(m.out, "'%s' has been deleted.\n", name)
	return nil
}

// unique returns the distinct non-empty keys of items, sorted.
func unique[T any](items []T, key func(T) string) []string {
	var out []string
	for _, item := range items {
		k := key(item)
		if k != "" && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}
