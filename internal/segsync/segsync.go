// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package segsync

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/staranto/splitctl/internal/catalog"
	"github.com/staranto/splitctl/internal/config"
)

// Defaults used when neither flags nor config name them.
const (
	DefaultBucket      = "split-prod-gainsight"
	DefaultWorkspace   = "Default"
	DefaultEnvironment = "Prod-Default"
	DefaultComment     = "synced by splitctl"
)

// DefaultSegments are the key files synced when none are configured.
var DefaultSegments = []string{
	"early_adopter_users",
	"early_adopter_accounts",
	"holdout_users",
	"holdout_accounts",
}

// ErrUnsafeKey is returned for an object key that would be written outside
// the download directory.
var ErrUnsafeKey = errors.New("object key escapes the download directory")

// ObjectStore is the part of the S3 API a sync needs.
type ObjectStore interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ ObjectStore = (*s3.Client)(nil)

// Target resolves and updates segments.
type Target interface {
	FindEnvironment(ctx context.Context, wsName, envName string) (catalog.EnvironmentInfo, error)
	UploadSegmentKeys(ctx context.Context, envID, segment string, keys []string, replace bool, comment string) error
}

var _ Target = (*catalog.Catalog)(nil)

// Options describe one sync.
type Options struct {
	Bucket      string
	Prefix      string
	Workspace   string
	Environment string
	Segments    []string
	Comment     string
	// Dir receives the downloaded files. When empty, a temporary directory
	// is used and removed afterwards.
	Dir string
}

// Result reports what happened to one segment.
type Result struct {
	Segment string `json:"segment"`
	Keys    int    `json:"keys"`
	Skipped bool   `json:"skipped"`
}

// OptionsFromConfig fills Options from the sync.segments config namespace,
// falling back to the defaults above.
func OptionsFromConfig() Options {
	bucket, _ := config.GetString("sync.segments.bucket", DefaultBucket)
	prefix, _ := config.GetString("sync.segments.prefix", "")
	ws, _ := config.GetString("sync.segments.workspace", DefaultWorkspace)
	env, _ := config.GetString("sync.segments.environment", DefaultEnvironment)
	segments, _ := config.GetStringSlice("sync.segments.csv", DefaultSegments)
	comment, _ := config.GetString("sync.segments.comment", DefaultComment)

	return Options{
		Bucket:      bucket,
		Prefix:      prefix,
		Workspace:   ws,
		Environment: env,
		Segments:    segments,
		Comment:     comment,
	}
}

// Syncer downloads key files and uploads them to segments.
type Syncer struct {
	objects ObjectStore
	target  Target
}

func New(objects ObjectStore, target Target) *Syncer {
	return &Syncer{objects: objects, target: target}
}

// Run downloads every object under the bucket prefix, then replaces the keys
// of each segment in opts.Segments with column 0 of <segment>.csv. Segments
// without a file are skipped with a warning.
func (s *Syncer) Run(ctx context.Context, opts Options) ([]Result, error) {
	if opts.Bucket == "" {
		return nil, errors.New("no bucket given")
	}

	env, err := s.target.FindEnvironment(ctx, opts.Workspace, opts.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s/%s: %w", opts.Workspace, opts.Environment, err)
	}

	dir := opts.Dir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "splitctl-sync-")
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	} else if err := removeCSVFiles(dir); err != nil {
		return nil, err
	}

	n, err := s.Download(ctx, opts.Bucket, opts.Prefix, dir)
	if err != nil {
		return nil, err
	}
	log.Debugf("downloaded %d objects from s3://%s/%s", n, opts.Bucket, opts.Prefix)

	results := make([]Result, 0, len(opts.Segments))
	for _, segment := range opts.Segments {
		path := filepath.Join(dir, segment+".csv")
		keys, err := ReadKeys(path)
		if errors.Is(err, os.ErrNotExist) {
			log.Warnf("CSV file %s does not exist. Skipping segment %s.", filepath.Base(path), segment)
			results = append(results, Result{Segment: segment, Skipped: true})
			continue
		}
		if err != nil {
			return results, err
		}

		if err := s.target.UploadSegmentKeys(ctx, env.ID, segment, keys, true, opts.Comment); err != nil {
			return results, fmt.Errorf("failed to upload keys to %s: %w", segment, err)
		}
		log.Infof("segment %s: %d keys", segment, len(keys))
		results = append(results, Result{Segment: segment, Keys: len(keys)})
	}

	return results, nil
}

// Download copies every object under prefix into dir, keeping the key path
// relative to prefix. It returns the number of objects written.
func (s *Syncer) Download(ctx context.Context, bucket, prefix, dir string) (int, error) {
	input := &s3.ListObjectsV2Input{Bucket: awsv2.String(bucket)}
	if prefix != "" {
		input.Prefix = awsv2.String(prefix)
	}

	count := 0
	p := s3.NewListObjectsV2Paginator(s.objects, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return count, fmt.Errorf("failed to list s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			key := awsv2.ToString(obj.Key)
			rel := strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
			if rel == "" || strings.HasSuffix(rel, "/") {
				continue
			}
			dest, err := destination(dir, rel)
			if err != nil {
				return count, fmt.Errorf("s3://%s/%s: %w", bucket, key, err)
			}
			if err := s.fetch(ctx, bucket, key, dest); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

// destination joins rel onto dir and rejects results that leave dir.
func destination(dir, rel string) (string, error) {
	root := filepath.Clean(dir)
	dest := filepath.Join(root, filepath.FromSlash(rel))
	r, err := filepath.Rel(root, dest)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) || filepath.IsAbs(r) {
		return "", ErrUnsafeKey
	}
	return dest, nil
}

func (s *Syncer) fetch(ctx context.Context, bucket, key, dest string) error {
	out, err := s.objects.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awsv2.String(bucket),
		Key:    awsv2.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil { //nolint:mnd
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		return fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}
	return f.Close()
}

// ReadKeys returns column 0 of every row after the header of the CSV at
// path. Blank keys are dropped.
func ReadKeys(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var keys []string
	header := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if header {
			header = false
			continue
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		keys = append(keys, strings.TrimSpace(row[0]))
	}
	return keys, nil
}

func removeCSVFiles(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return err
		}
	}
	return os.MkdirAll(dir, 0o755) //nolint:mnd
}
