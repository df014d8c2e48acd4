// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package segsync

import (
	"context"
	"errors"
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

	"github.com/staranto/splitctl/internal/catalog"
	"github.com/staranto/splitctl/internal/config"
	"github.com/staranto/splitctl/internal/split"
)

// fakeBucket serves objects from memory, two per page.
type fakeBucket struct {
	objects map[string]string
	order   []string
	lists   int
}

func newFakeBucket(kv ...string) *fakeBucket {
	b := &fakeBucket{objects: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		b.objects[kv[i]] = kv[i+1]
		b.order = append(b.order, kv[i])
	}
	return b
}

func (b *fakeBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	b.lists++

	var keys []string
	for _, k := range b.order {
		if strings.HasPrefix(k, awsv2.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}

	start := 0
	if in.ContinuationToken != nil {
		for i, k := range keys {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}
	end := start + 2
	out := &s3.ListObjectsV2Output{IsTruncated: awsv2.Bool(false)}
	if end < len(keys) {
		out.IsTruncated = awsv2.Bool(true)
		out.NextContinuationToken = awsv2.String(keys[end])
	} else {
		end = len(keys)
	}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: awsv2.String(k)})
	}
	return out, nil
}

func (b *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := b.objects[awsv2.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

type upload struct {
	envID, segment string
	keys           []string
	replace        bool
	comment        string
}

type fakeTarget struct {
	uploads []upload
	fail    error
}

func (f *fakeTarget) FindEnvironment(_ context.Context, wsName, envName string) (catalog.EnvironmentInfo, error) {
	if wsName == "Default" && envName == "Prod-Default" {
		return catalog.EnvironmentInfo{ID: "e1", Name: envName, WorkspaceID: "ws1", WorkspaceName: wsName}, nil
	}
	return catalog.EnvironmentInfo{}, split.ErrNotFound
}

func (f *fakeTarget) UploadSegmentKeys(_ context.Context, envID, segment string, keys []string, replace bool, comment string) error {
	if f.fail != nil {
		return f.fail
	}
	f.uploads = append(f.uploads, upload{envID, segment, keys, replace, comment})
	return nil
}

func options() Options {
	return Options{
		Bucket:      "bucket",
		Workspace:   "Default",
		Environment: "Prod-Default",
		Segments:    []string{"early_adopter_users", "holdout_users"},
		Comment:     "nightly",
	}
}

func TestRun(t *testing.T) {
	bucket := newFakeBucket(
		"early_adopter_users.csv", "id,name\nu1,Alice\nu2,Bob\n\n",
		"other.csv", "id\nx\n",
		"nested/dir/file.txt", "hello",
	)
	target := &fakeTarget{}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "holdout_users.csv"), []byte("id\nstale\n"), 0o600))

	opts := options()
	opts.Dir = dir
	results, err := New(bucket, target).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []Result{
		{Segment: "early_adopter_users", Keys: 2},
		{Segment: "holdout_users", Skipped: true},
	}, results)

	require.Len(t, target.uploads, 1)
	assert.Equal(t, upload{"e1", "early_adopter_users", []string{"u1", "u2"}, true, "nightly"}, target.uploads[0])

	assert.Equal(t, 2, bucket.lists)
	assert.FileExists(t, filepath.Join(dir, "nested", "dir", "file.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "holdout_users.csv"))
}

func TestRun_Prefix(t *testing.T) {
	bucket := newFakeBucket(
		"exports/holdout_users.csv", "id\nh1\n",
		"exports/", "",
		"elsewhere/holdout_users.csv", "id\nwrong\n",
	)
	target := &fakeTarget{}

	opts := options()
	opts.Prefix = "exports/"
	results, err := New(bucket, target).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []Result{
		{Segment: "early_adopter_users", Skipped: true},
		{Segment: "holdout_users", Keys: 1},
	}, results)
	require.Len(t, target.uploads, 1)
	assert.Equal(t, []string{"h1"}, target.uploads[0].keys)
}

func TestRun_Errors(t *testing.T) {
	t.Run("no bucket", func(t *testing.T) {
		opts := options()
		opts.Bucket = ""
		_, err := New(newFakeBucket(), &fakeTarget{}).Run(context.Background(), opts)
		assert.Error(t, err)
	})

	t.Run("unknown environment", func(t *testing.T) {
		opts := options()
		opts.Environment = "Nope"
		_, err := New(newFakeBucket(), &fakeTarget{}).Run(context.Background(), opts)
		assert.ErrorIs(t, err, split.ErrNotFound)
	})

	t.Run("upload failure", func(t *testing.T) {
		boom := errors.New("boom")
		bucket := newFakeBucket("early_adopter_users.csv", "id\nu1\n")
		results, err := New(bucket, &fakeTarget{fail: boom}).Run(context.Background(), options())
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, results)
	})
}

func TestDownload_KeyOutsideDir(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "a", "dl")
	bucket := newFakeBucket(
		"exports/ok.csv", "id\nk\n",
		"exports/../../escape.csv", "id\nx\n",
	)

	n, err := New(bucket, &fakeTarget{}).Download(context.Background(), "bucket", "exports/", dir)
	require.ErrorIs(t, err, ErrUnsafeKey)
	assert.Equal(t, 1, n)
	assert.FileExists(t, filepath.Join(dir, "ok.csv"))
	assert.NoFileExists(t, filepath.Join(base, "escape.csv"))
}

func TestDestination(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dl")

	got, err := destination(dir, "nested/file.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "file.csv"), got)

	got, err = destination(dir, "a/../b.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "b.csv"), got)

	for _, rel := range []string{"../x", "../../.bashrc", "a/../../x", ".."} {
		_, err := destination(dir, rel)
		assert.ErrorIs(t, err, ErrUnsafeKey, rel)
	}
}

func TestReadKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.csv")
	require.NoError(t, os.WriteFile(path, []byte("key,extra\n a ,1\nb\n,2\n\"c,d\",3\n"), 0o600))

	keys, err := ReadKeys(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c,d"}, keys)

	_, err = ReadKeys(filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "splitctl.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`sync:
  segments:
    bucket: other-bucket
    environment: Staging
    csv:
      - holdout_users
`), 0o600))
	t.Setenv("SPLITCTL_CFG", cfg)
	config.Config = config.Type{}
	t.Cleanup(func() { config.Config = config.Type{} })

	opts := OptionsFromConfig()
	assert.Equal(t, "other-bucket", opts.Bucket)
	assert.Equal(t, DefaultWorkspace, opts.Workspace)
	assert.Equal(t, "Staging", opts.Environment)
	assert.Equal(t, []string{"holdout_users"}, opts.Segments)
	assert.Equal(t, DefaultComment, opts.Comment)
}
