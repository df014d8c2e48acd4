// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package cache provides the lookup store: a fixed set of named slots, each
// holding the complete result of one fetch-everything call against the Split
// Admin API, persisted to a single file between runs.
package cache
