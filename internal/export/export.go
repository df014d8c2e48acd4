// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/tidwall/gjson"
)

// ErrNotTabular is returned when a JSON document has no rows to convert.
var ErrNotTabular = errors.New("document is not an object or list of objects")

// Pair names a converted JSON file and the CSV written from it.
type Pair struct {
	JSON string
	CSV  string
}

// FileName returns the name kind is exported to.
func FileName(kind string) string {
	return kind + dataSuffix
}

const dataSuffix = "_data.json"

// WriteJSON writes value, indented, to <dir>/<kind>_data.json and returns the
// path written.
func WriteJSON(dir, kind string, value any) (string, error) {
	doc, err := json.MarshalIndent(value, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", kind, err)
	}
	return writeFile(dir, FileName(kind), append(doc, '\n'))
}

// JSONToCSV converts the document at jsonPath into a CSV at csvPath. The
// document must be an object whose values are objects or lists of objects,
// or a list of objects. Every object becomes one row and the header is the
// sorted union of their keys. Nested values are written as JSON.
func JSONToCSV(jsonPath, csvPath string) error {
	doc, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", jsonPath, err)
	}
	if !gjson.ValidBytes(doc) {
		return fmt.Errorf("failed to parse %s: invalid json", jsonPath)
	}

	rows := collectRows(gjson.ParseBytes(doc))
	if len(rows) == 0 {
		return fmt.Errorf("%s: %w", jsonPath, ErrNotTabular)
	}

	header := unionKeys(rows)

	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", csvPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		fields := row.Map()
		record := make([]string, len(header))
		for i, key := range header {
			record[i] = cell(fields[key])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", csvPath, err)
	}
	return f.Close()
}

// ConvertAll converts every lookup export (*_data.json) in dir to a CSV next
// to it. Other JSON files are left alone. Files that hold no rows are
// skipped.
func ConvertAll(dir string) ([]Pair, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+dataSuffix))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	var pairs []Pair
	for _, jsonPath := range matches {
		csvPath := strings.TrimSuffix(jsonPath, filepath.Ext(jsonPath)) + ".csv"
		if err := JSONToCSV(jsonPath, csvPath); err != nil {
			if errors.Is(err, ErrNotTabular) {
				log.Warnf("skipping %s: %v", jsonPath, err)
				continue
			}
			return pairs, err
		}
		log.Debugf("converted %s to %s", jsonPath, csvPath)
		pairs = append(pairs, Pair{JSON: jsonPath, CSV: csvPath})
	}
	return pairs, nil
}

// collectRows returns the objects of doc in document order.
func collectRows(doc gjson.Result) []gjson.Result {
	var rows []gjson.Result
	add := func(v gjson.Result) {
		switch {
		case v.IsObject():
			rows = append(rows, v)
		case v.IsArray():
			for _, item := range v.Array() {
				if item.IsObject() {
					rows = append(rows, item)
				}
			}
		}
	}

	switch {
	case doc.IsArray():
		add(doc)
	case doc.IsObject():
		doc.ForEach(func(_, value gjson.Result) bool {
			add(value)
			return true
		})
	}
	return rows
}

func unionKeys(rows []gjson.Result) []string {
	seen := map[string]bool{}
	var keys []string
	for _, row := range rows {
		row.ForEach(func(key, _ gjson.Result) bool {
			if !seen[key.String()] {
				seen[key.String()] = true
				keys = append(keys, key.String())
			}
			return true
		})
	}
	sort.Strings(keys)
	return keys
}

func cell(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return v.String()
	case gjson.JSON:
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(v.Raw)); err != nil {
			return v.Raw
		}
		return buf.String()
	default:
		return v.Raw
	}
}

func writeFile(dir, name string, data []byte) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:mnd
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
