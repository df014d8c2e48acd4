// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package export writes catalog data to JSON and CSV files on disk.
package export
