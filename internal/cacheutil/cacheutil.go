// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"golang.org/x/crypto/blake2b"
)

// storePrefix and storeSuffix bracket the per-account store file name.
const (
	storePrefix = "lookup-"
	storeSuffix = ".json"
)

// Dir resolves the base cache directory.
// Precedence:
//  1. SPLITCTL_CACHE_DIR, if set and non-empty
//  2. os.UserCacheDir()/splitctl
//
// Returns ("", false) if a base cannot be resolved (treat as disabled).
func Dir() (string, bool) {
	if c, ok := os.LookupEnv("SPLITCTL_CACHE_DIR"); ok && c != "" {
		return c, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "splitctl"), true
	}
	return "", false
}

// Enabled returns true unless SPLITCTL_CACHE explicitly disables it ("0"/"false").
func Enabled() bool {
	enabled, _ := os.LookupEnv("SPLITCTL_CACHE")
	return enabled == "" || (enabled != "0" && enabled != "false")
}

// EnsureBaseDir creates the base cache directory if caching is enabled and
// a base path can be resolved. Returns the path, whether it is usable, and an
// error if creation failed.
func EnsureBaseDir() (string, bool, error) {
	if !Enabled() {
		return "", false, nil
	}
	base, ok := Dir()
	if !ok {
		return "", false, nil
	}
	if err := os.MkdirAll(base, 0o755); err != nil { //nolint:mnd
		return base, false, fmt.Errorf("failed to create cache base directory: %w", err)
	}
	return base, true, nil
}

// StorePath returns the lookup store file for the account identified by
// account (the admin API key). The key itself never reaches the filesystem;
// only a short hash of it does, so switching keys switches stores. Returns
// ("", false) when caching is disabled or no base dir resolves.
func StorePath(account string) (string, bool) {
	if !Enabled() {
		return "", false
	}
	base, ok := Dir()
	if !ok {
		return "", false
	}
	return filepath.Join(base, storePrefix+encodeKey(account)+storeSuffix), true
}

// Stale reports whether the file at path is older than hours. Missing files
// and hours <= 0 are never stale.
func Stale(path string, hours int) bool {
	if hours <= 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > time.Duration(hours)*time.Hour
}

// Purge removes store files older than the provided number of hours.
// If hours <= 0 or the cache dir cannot be resolved, it is a no-op.
func Purge(hours int) error {
	if hours <= 0 {
		log.Debug("cache cleaning disabled")
		return nil
	}
	base, ok := Dir()
	if !ok {
		return nil
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to purge cache: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), storePrefix) {
			continue
		}
		path := filepath.Join(base, e.Name())
		if !Stale(path, hours) {
			continue
		}
		if err := os.Remove(path); err == nil {
			log.Debugf("removed cache file %s", path)
		} else {
			log.WithError(err).Warnf("failed to remove cache file %s", path)
		}
	}
	return nil
}

// encodeKey hashes k with BLAKE2b and returns the first 16 hex characters.
func encodeKey(k string) string {
	sum := blake2b.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}
