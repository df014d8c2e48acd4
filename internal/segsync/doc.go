// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package segsync replaces the keys of segments with key lists published as
// CSV files in an S3 bucket.
package segsync
