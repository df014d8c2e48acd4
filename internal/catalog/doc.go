// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package catalog reshapes Split Admin API collections into the lookups the
// CLI and menu work from. Every fetcher is backed by one slot of the lookup
// store, so a collection is enumerated at most once until it is invalidated.
package catalog
