// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/staranto/splitctl/internal/aws"
	"github.com/staranto/splitctl/internal/cache"
	"github.com/staranto/splitctl/internal/catalog"
	"github.com/staranto/splitctl/internal/catalog/catalogtest"
	"github.com/staranto/splitctl/internal/config"
	"github.com/staranto/splitctl/internal/menu"
	"github.com/staranto/splitctl/internal/segsync"
)

type harness struct {
	app   *cli.Command
	out   *bytes.Buffer
	api   *catalogtest.API
	store *cache.Store
}

func newHarness(t *testing.T, input string) *harness {
	t.Helper()
	t.Setenv("SPLITCTL_CFG", filepath.Join("testdata", "splitctl.yaml"))
	config.Config = config.Type{}

	api := catalogtest.New()
	store := cache.New("")
	c := catalog.New(store, api)

	app, err := InitApp(context.Background(), []string{"splitctl"}, store, func() (*catalog.Catalog, error) {
		return c, nil
	})
	require.NoError(t, err)

	h := &harness{app: app, out: &bytes.Buffer{}, api: api, store: store}
	app.Writer = h.out
	app.Reader = strings.NewReader(input)
	return h
}

func (h *harness) run(args ...string) error {
	return h.app.Run(context.Background(), append([]string{"splitctl"}, args...))
}

func TestInitApp_Commands(t *testing.T) {
	h := newHarness(t, "")

	var names []string
	for _, c := range h.app.Commands {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"list", "export", "search", "delete", "diff", "copy", "cache", "sync", "menu", "completion"}, names)

	for _, c := range h.app.Commands {
		for i := 1; i < len(c.Flags); i++ {
			assert.LessOrEqual(t, c.Flags[i-1].Names()[0], c.Flags[i].Names()[0], "flags of %s", c.Name)
		}
	}
}

func TestList_Environments(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, h.run("list", "environments", "-o", "csv"))
	want := "name,id,workspace,production\n" +
		"Prod-Default,e1,Default,true\n" +
		"Staging,e2,Default,\n" +
		"Staging,e3,Mobile,\n"
	assert.Equal(t, want, h.out.String())
}

func TestList_FilterAndAttrs(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, h.run("list", "users", "-o", "csv", "-a", "!groups", "-f", "name=Bob"))
	assert.Equal(t, "name,email\nBob,bob@example.com\n", h.out.String())
}

func TestList_Errors(t *testing.T) {
	h := newHarness(t, "")
	assert.ErrorContains(t, h.run("list"), "list needs one kind")

	h = newHarness(t, "")
	assert.ErrorContains(t, h.run("list", "flags"), "unknown kind")
}

func TestList_Examples(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, h.run("list", "--examples"))
	assert.Contains(t, h.out.String(), "splitctl list workspaces")
	assert.Zero(t, h.api.Count("workspaces"))
}

func TestSearch_User(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, h.run("search", "user", "alice@example.com", "-o", "csv"))
	assert.Equal(t, "name,email,groups,status\nAlice,Alice@example.com,\"[\"\"Administrators\"\"]\",ACTIVE\n", h.out.String())
}

func TestSearch_Group(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, h.run("search", "group", "Readers", "-o", "csv", "-a", "!users"))
	assert.Equal(t, "name,id\nReaders,g2\n", h.out.String())
}

func TestSearch_NotFound(t *testing.T) {
	h := newHarness(t, "")
	assert.ErrorContains(t, h.run("search", "workspace", "Nope"), `workspace "Nope"`)
}

func TestSearch_SplitSave(t *testing.T) {
	h := newHarness(t, "")
	dir := t.TempDir()

	require.NoError(t, h.run("search", "split", "checkout",
		"-w", "Default", "-e", "Prod-Default", "--save", "--dir", dir, "-o", "csv", "-a", "!killed,!default,!allocation"))

	for _, name := range []string{
		"checkout.Prod-Default.Default.json",
		"checkout.Prod-Default.Default_treatments.json",
		"checkout.Prod-Default.Default_matchers.json",
	} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.Contains(t, h.out.String(), "name,environment,workspace\ncheckout,Prod-Default,Default\n")
}

func TestSearch_SaveNeedsScope(t *testing.T) {
	h := newHarness(t, "")
	assert.ErrorContains(t, h.run("search", "segment", "beta", "--save"), "--save needs")

	h = newHarness(t, "")
	assert.ErrorContains(t, h.run("search", "segment", "beta", "-w", "Default"), "go together")
}

func TestSearch_SegmentSave(t *testing.T) {
	h := newHarness(t, "")
	dir := t.TempDir()

	require.NoError(t, h.run("search", "segment", "beta", "-w", "Default", "-e", "Prod-Default", "--save", "--dir", dir))

	raw, err := os.ReadFile(filepath.Join(dir, "beta.Prod-Default.Default.csv"))
	require.NoError(t, err)
	assert.Equal(t, "key\nbeta-e1-a\nbeta-e1-b\n", string(raw))
}

func TestDelete_Group(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, h.run("delete", "group", "Readers", "--yes"))
	assert.Equal(t, []string{"group:g2"}, h.api.Deleted())
	assert.Contains(t, h.out.String(), "'Readers' has been deleted.")
}

func TestDelete_Confirm(t *testing.T) {
	h := newHarness(t, "y\n")

	require.NoError(t, h.run("delete", "split", "checkout", "-w", "Mobile"))
	assert.Equal(t, []string{"split:ws2/checkout"}, h.api.Deleted())
	assert.Contains(t, h.out.String(), "Delete split 'checkout'? [y/N]: ")
}

func TestDelete_Cancelled(t *testing.T) {
	h := newHarness(t, "n\n")

	require.NoError(t, h.run("delete", "environment", "Staging", "-w", "Mobile"))
	assert.Empty(t, h.api.Deleted())
	assert.Contains(t, h.out.String(), "Deletion cancelled")
}

func TestDelete_Environment(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, h.run("delete", "environment", "Staging", "-w", "Default", "-y"))
	assert.Equal(t, []string{"environment:ws1/e2"}, h.api.Deleted())
}

func TestDelete_Errors(t *testing.T) {
	h := newHarness(t, "")
	assert.ErrorContains(t, h.run("delete", "segment", "beta"), "--workspace is required")

	h = newHarness(t, "")
	assert.ErrorContains(t, h.run("delete", "user", "bob"), "unknown delete kind")

	h = newHarness(t, "")
	assert.ErrorContains(t, h.run("delete", "group"), "delete needs a kind")
}

func TestDiff_Same(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, h.run("diff", "checkout", "-w", "Default", "--from-env", "Prod-Default", "--to-env", "Staging"))
	assert.Equal(t, "checkout is the same in Default/Prod-Default and Default/Staging.\n", h.out.String())
}

func TestDiff_Errors(t *testing.T) {
	h := newHarness(t, "")
	assert.ErrorContains(t, h.run("diff", "checkout", "-w", "Default"), "diff needs")

	h = newHarness(t, "")
	assert.ErrorContains(t, h.run("diff", "checkout", "-w", "Default", "--from-env", "Prod-Default", "--to-ws", "Mobile", "--to-env", "Prod-Default"),
		`"checkout" in Mobile/Prod-Default`)
}

func TestCopy_SplitUpdate(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, h.run("copy", "split", "checkout", "-w", "Default", "-e", "Prod-Default", "--to-ws", "Mobile", "--to-env", "Staging", "--yes"))
	assert.Equal(t, []string{"update:ws2/e3/checkout"}, h.api.Deleted())
	assert.Contains(t, h.out.String(), "Updated checkout in Mobile/Staging from checkout in Default/Prod-Default.")
}

func TestCopy_SplitCreate(t *testing.T) {
	h := newHarness(t, "y\n")

	require.NoError(t, h.run("copy", "split", "checkout", "-w", "Default", "-e", "Prod-Default", "--to-env", "Staging", "--to-name", "search"))
	assert.Equal(t, []string{"create:ws1/e2/search"}, h.api.Deleted())
	assert.Contains(t, h.out.String(), "Copy the definition of checkout in Default/Prod-Default to search in Default/Staging? [y/N]: ")
	assert.Contains(t, h.out.String(), "Created search in Default/Staging")
}

func TestCopy_Segment(t *testing.T) {
	h := newHarness(t, "y\n")

	require.NoError(t, h.run("copy", "segment", "beta", "-w", "Default", "-e", "Prod-Default", "--to-env", "Staging", "--replace"))
	assert.Equal(t, []string{"activate:e2/beta", "upload:e2/beta"}, h.api.Deleted())
	assert.Contains(t, h.out.String(), "Copy 2 keys of beta in Default/Prod-Default to beta in Default/Staging? [y/N]: ")
	assert.Contains(t, h.out.String(), "Activated beta in Default/Staging.")
	assert.Contains(t, h.out.String(), "Copied 2 keys from beta in Default/Prod-Default to beta in Default/Staging.")
}

func TestCopy_Cancelled(t *testing.T) {
	h := newHarness(t, "n\n")

	require.NoError(t, h.run("copy", "segment", "beta", "-w", "Default", "-e", "Prod-Default", "--to-ws", "Mobile", "--to-env", "Staging"))
	assert.Empty(t, h.api.Deleted())
	assert.Contains(t, h.out.String(), "Copy cancelled")
}

func TestCopy_Errors(t *testing.T) {
	h := newHarness(t, "")
	assert.ErrorContains(t, h.run("copy", "split", "checkout", "-w", "Default"), "copy needs")

	h = newHarness(t, "")
	assert.ErrorContains(t, h.run("copy", "split", "-w", "Default", "-e", "Staging", "--to-env", "Staging"), "needs one name")

	h = newHarness(t, "")
	err := h.run("copy", "split", "checkout", "-w", "Default", "-e", "Staging", "--to-env", "Staging", "-y")
	assert.ErrorContains(t, err, catalog.ErrSameTarget.Error())

	h = newHarness(t, "")
	err = h.run("copy", "segment", "beta", "-w", "Default", "-e", "Prod-Default", "--to-env", "QA", "-y")
	assert.ErrorContains(t, err, "not found")
}

func TestExport(t *testing.T) {
	h := newHarness(t, "")
	dir := t.TempDir()

	require.NoError(t, h.run("export", "users", "workspaces", "--dir", dir, "--csv"))
	assert.Contains(t, h.out.String(), "users data exported to "+filepath.Join(dir, "users_data.json"))
	assert.FileExists(t, filepath.Join(dir, "workspaces_data.json"))
	assert.FileExists(t, filepath.Join(dir, "users_data.csv"))
	assert.FileExists(t, filepath.Join(dir, "workspaces_data.csv"))
}

func TestExport_Errors(t *testing.T) {
	h := newHarness(t, "")
	assert.ErrorContains(t, h.run("export"), "export needs a kind")

	h = newHarness(t, "")
	assert.ErrorContains(t, h.run("export", "flags"), "unknown export kind")
}

func TestCache_Status(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.store.Put(cache.SlotWorkspaces, []string{"ws1"}))

	require.NoError(t, h.run("cache", "status", "-o", "csv"))
	out := h.out.String()
	assert.True(t, strings.HasPrefix(out, "slot,populated,size\nworkspaces,true,"), out)
	assert.Contains(t, out, "\nusers,,-\n")
}

func TestCache_StatusText(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, h.run("cache", "status"))
	assert.Contains(t, h.out.String(), "Cache: memory only")
}

func TestCache_Invalidate(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.store.Put(cache.SlotGroups, map[string]string{"g1": "Administrators"}))
	require.NoError(t, h.store.Put(cache.SlotUsers, []string{"u1"}))

	require.NoError(t, h.run("cache", "invalidate", "groups"))
	assert.False(t, h.store.Populated(cache.SlotGroups))
	assert.True(t, h.store.Populated(cache.SlotUsers))
	assert.Contains(t, h.out.String(), "Invalidated groups")

	h = newHarness(t, "")
	assert.ErrorIs(t, h.run("cache", "invalidate", "flags"), cache.ErrUnknownSlot)
}

func TestCache_InvalidateAll(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.store.Put(cache.SlotGroups, map[string]string{"g1": "Administrators"}))

	require.NoError(t, h.run("cache", "invalidate", "--all"))
	assert.False(t, h.store.Populated(cache.SlotGroups))
	assert.Contains(t, h.out.String(), "Cache cleared.")
}

func TestCache_Refresh(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, h.run("cache", "refresh"))
	assert.True(t, h.store.Populated(cache.SlotSplitDefinitions))
	assert.True(t, h.store.Populated(cache.SlotSegments))
	assert.Contains(t, h.out.String(), "Cache updated.")
}

func TestCache_Path(t *testing.T) {
	h := newHarness(t, "")
	assert.ErrorContains(t, h.run("cache", "path"), "caching is disabled")
}

// memBucket serves objects from memory in a single page.
type memBucket map[string]string

func (b memBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{IsTruncated: awsv2.Bool(false)}
	for k := range b {
		if strings.HasPrefix(k, awsv2.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: awsv2.String(k)})
		}
	}
	return out, nil
}

func (b memBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := b[awsv2.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestSync_Segments(t *testing.T) {
	h := newHarness(t, "")

	orig := newObjectStore
	t.Cleanup(func() { newObjectStore = orig })
	newObjectStore = func(context.Context, ...aws.Option) (segsync.ObjectStore, error) {
		return memBucket{"beta.csv": "key\nu1\nu2\n"}, nil
	}

	require.NoError(t, h.run("sync", "segments", "-o", "csv"))
	assert.Equal(t, []string{"upload:e1/beta"}, h.api.Deleted())
	assert.Equal(t, "segment,keys,skipped\nbeta,2,\ngamma,,true\n", h.out.String())
}

func TestSyncOptions_FlagsOverrideConfig(t *testing.T) {
	h := newHarness(t, "")

	var got segsync.Options
	h.app.Command("sync").Command("segments").Action = func(_ context.Context, cmd *cli.Command) error {
		got = syncOptions(cmd)
		return nil
	}

	require.NoError(t, h.run("sync", "segments", "--bucket", "other", "--segments", "a, b,", "-e", "Staging"))
	assert.Equal(t, "other", got.Bucket)
	assert.Equal(t, []string{"a", "b"}, got.Segments)
	assert.Equal(t, "Default", got.Workspace)
	assert.Equal(t, "Staging", got.Environment)
	assert.Equal(t, "nightly", got.Comment)
}

// abortPrompter quits at the first prompt.
type abortPrompter struct{}

func (abortPrompter) Choose(string, []string) (int, error) { return 0, menu.ErrAborted }
func (abortPrompter) Input(string) (string, error)         { return "", menu.ErrAborted }
func (abortPrompter) Confirm(string) (bool, error)         { return false, menu.ErrAborted }

func TestMenu(t *testing.T) {
	origTerm, origOpts := isTerminal, menuOptions
	t.Cleanup(func() { isTerminal, menuOptions = origTerm, origOpts })

	h := newHarness(t, "")
	isTerminal = func() bool { return false }
	assert.ErrorIs(t, h.run("menu"), ErrNotATerminal)

	h = newHarness(t, "")
	isTerminal = func() bool { return true }
	menuOptions = []menu.Option{menu.WithPrompter(abortPrompter{})}
	require.NoError(t, h.run("menu"))
	assert.Contains(t, h.out.String(), "Exiting...")
}

func TestCompletion(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.run("completion", "bash"))
	assert.Contains(t, h.out.String(), "complete -F _splitctl splitctl")

	h = newHarness(t, "")
	require.NoError(t, h.run("completion", "zsh"))
	assert.Contains(t, h.out.String(), "compdef _splitctl splitctl")
}

func TestNotConnected(t *testing.T) {
	t.Setenv("SPLITCTL_CFG", filepath.Join("testdata", "splitctl.yaml"))
	app, err := InitApp(context.Background(), []string{"splitctl"}, cache.New(""), nil)
	require.NoError(t, err)
	app.Writer = io.Discard

	err = app.Run(context.Background(), []string{"splitctl", "list", "groups"})
	assert.ErrorContains(t, err, "no Split API connection configured")
}

func TestValidators(t *testing.T) {
	assert.NoError(t, OutputValidator("csv"))
	assert.ErrorContains(t, OutputValidator("xml"), "must be one of")

	assert.NoError(t, JammedFlagValidator("out"))
	assert.Error(t, JammedFlagValidator("--csv"))

	assert.Error(t, FlagValidators("--x", OutputValidator, JammedFlagValidator))
}

func TestGetMeta_FromAncestor(t *testing.T) {
	h := newHarness(t, "")

	status := h.app.Command("cache").Command("status")
	assert.NotNil(t, GetMeta(status).Store)
	assert.Equal(t, h.store, GetMeta(status).Store)
	assert.Nil(t, GetMeta(nil).Store)
}
