// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package differ compares feature flag definitions.
package differ

import (
	"encoding/json"
	"fmt"

	"github.com/apex/log"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"github.com/staranto/splitctl/internal/catalog"
)

// identityKeys locate a definition rather than describe its targeting, so
// they are left out of a comparison.
var identityKeys = []string{"id", "environment", "workspaceId", "workspaceName", "creationTime", "lastUpdateTime"}

// Definitions returns an ASCII diff of the targeting of a and b, and whether
// they differ at all. The diff is empty when they match.
func Definitions(a, b catalog.DefinitionInfo) (string, bool, error) {
	left, err := targeting(a)
	if err != nil {
		return "", false, err
	}
	right, err := targeting(b)
	if err != nil {
		return "", false, err
	}

	return JSON(left, right)
}

// JSON diffs two JSON objects.
func JSON(left, right []byte) (string, bool, error) {
	d, err := gojsondiff.New().Compare(left, right)
	if err != nil {
		return "", false, fmt.Errorf("failed to compare: %w", err)
	}
	if !d.Modified() {
		return "", false, nil
	}

	var leftMap map[string]interface{}
	if err := json.Unmarshal(left, &leftMap); err != nil {
		return "", false, fmt.Errorf("failed to decode: %w", err)
	}

	f := formatter.NewAsciiFormatter(leftMap, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       false,
	})
	out, err := f.Format(d)
	if err != nil {
		return "", true, fmt.Errorf("failed to format diff: %w", err)
	}

	log.Debugf("diff: %d deltas", len(d.Deltas()))
	return out, true, nil
}

func targeting(def catalog.DefinitionInfo) ([]byte, error) {
	raw, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", def.Name, err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	for _, k := range identityKeys {
		delete(m, k)
	}
	return json.Marshal(m)
}
