// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"cmp"
	"context"
	"slices"

	"github.com/staranto/splitctl/internal/cache"
	"github.com/staranto/splitctl/internal/split"
)

const defaultConcurrency = 4

// API is the subset of the Split Admin API client the catalog uses.
type API interface {
	Workspaces(ctx context.Context) ([]split.Workspace, error)
	Environments(ctx context.Context, wsID string) ([]split.Environment, error)
	Segments(ctx context.Context, wsID, envID string) ([]split.Segment, error)
	SegmentKeys(ctx context.Context, envID, segment string) ([]string, error)
	Splits(ctx context.Context, wsID string) ([]split.Split, error)
	SplitDefinitions(ctx context.Context, wsID, envID string) ([]split.SplitDefinition, error)
	Groups(ctx context.Context) ([]split.Group, error)
	Users(ctx context.Context, status string) ([]split.User, error)

	DeleteGroup(ctx context.Context, id string) error
	DeleteSegment(ctx context.Context, wsID, segment string) error
	DeleteSplit(ctx context.Context, wsID, name string) error
	DeleteEnvironment(ctx context.Context, wsID, envID string) error
	UploadSegmentKeys(ctx context.Context, envID, segment string, keys []string, replace bool, comment string) error
	ActivateSegment(ctx context.Context, envID, segment string) error
	CreateSplitDefinition(ctx context.Context, wsID, envID, name string, def split.DefinitionRequest, comment string) error
	UpdateSplitDefinition(ctx context.Context, wsID, envID, name string, def split.DefinitionRequest, comment string) error
}

var _ API = (*split.Client)(nil)

// Catalog serves domain lookups from the store, fetching through the API on a
// miss.
type Catalog struct {
	store       *cache.Store
	api         API
	concurrency int
}

// Option customizes a Catalog.
type Option func(*Catalog)

// WithConcurrency bounds the number of parallel API calls a fetcher makes.
func WithConcurrency(n int) Option {
	return func(c *Catalog) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New returns a catalog over store and api.
func New(store *cache.Store, api API, opts ...Option) *Catalog {
	c := &Catalog{
		store:       store,
		api:         api,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the backing lookup store.
func (c *Catalog) Store() *cache.Store {
	return c.store
}

// API returns the client the catalog fetches through.
func (c *Catalog) API() API {
	return c.api
}

// Values returns the values of m ordered by key.
func Values[K cmp.Ordered, V any](m map[K]V) []V {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	result := make([]V, 0, len(m))
	for _, k := range keys {
		result = append(result, m[k])
	}
	return result
}

// Flatten returns the concatenated values of m ordered by key. The result is
// never nil.
func Flatten[K cmp.Ordered, V any](m map[K][]V) []V {
	result := []V{}
	for _, vs := range Values(m) {
		result = append(result, vs...)
	}
	return result
}
