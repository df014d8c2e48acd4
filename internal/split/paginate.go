// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package split

import (
	"context"

	"github.com/apex/log"
)

// ListOptions are the offset/limit query parameters shared by list calls.
type ListOptions struct {
	Offset int `url:"offset"`
	Limit  int `url:"limit,omitempty"`
}

// page is the envelope the offset-paginated endpoints return.
type page[T any] struct {
	Objects    []T `json:"objects"`
	Offset     int `json:"offset"`
	Limit      int `json:"limit"`
	TotalCount *int `json:"totalCount"`
}

// total returns the reported collection size, or -1 when it is absent.
func total(n *int) int {
	if n == nil {
		return -1
	}
	return *n
}

// PageFetcher fetches the page starting at offset. It returns the items and
// the total size of the collection, or -1 when the endpoint does not say. A
// total of 0 is treated as unknown.
type PageFetcher[T any] func(ctx context.Context, opts ListOptions) ([]T, int, error)

// Paginate drains an offset/limit collection. With a known total it stops
// once that many items are collected, so a server that caps limit below
// pageSize is still drained. Without one it stops at the first empty page.
// Any error stops it.
func Paginate[T any](ctx context.Context, pageSize int, fetcher PageFetcher[T]) ([]T, error) {
	var results []T

	opts := ListOptions{Offset: 0, Limit: pageSize}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, size, err := fetcher(ctx, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, items...)

		log.Debugf("offset: %d, page: %d, collected: %d, total: %d", opts.Offset, len(items), len(results), size)

		if len(items) == 0 {
			break
		}
		if size > 0 && len(results) >= size {
			break
		}
		opts.Offset += len(items)
	}

	return results, nil
}

// MarkerFetcher fetches the page after marker ("" for the first page) and
// returns the next marker, "" when done.
type MarkerFetcher[T any] func(ctx context.Context, marker string) ([]T, string, error)

// PaginateMarker drains a marker-paginated collection.
func PaginateMarker[T any](ctx context.Context, fetcher MarkerFetcher[T]) ([]T, error) {
	var results []T

	marker := ""
	seen := map[string]bool{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, next, err := fetcher(ctx, marker)
		if err != nil {
			return nil, err
		}
		results = append(results, items...)

		if next == "" || seen[next] {
			break
		}
		seen[next] = true
		marker = next
	}

	return results, nil
}
