// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"

	"github.com/apex/log"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v2"

	"github.com/staranto/splitctl/internal/attrs"
)

// Formats are the values accepted by --output.
var Formats = []string{"text", "json", "yaml", "csv", "raw"}

var ErrNotAList = errors.New("records must encode to a JSON array")

// Options control how SliceDiceSpit renders a dataset.
type Options struct {
	Format string
	Attrs  attrs.AttrList
	Filter string
	Sort   string
	Titles bool
	Color  bool
	Local  bool
}

// NewOptions reads the common output flags from cmd.
func NewOptions(cmd *cli.Command, al attrs.AttrList) Options {
	return Options{
		Format: cmd.String("output"),
		Attrs:  al,
		Filter: cmd.String("filter"),
		Sort:   cmd.String("sort"),
		Titles: cmd.Bool("titles"),
		Color:  cmd.Bool("color"),
		Local:  cmd.Bool("local"),
	}
}

// SliceDiceSpit orchestrates filtering, transforming, sorting and rendering
// of records, which must encode to a JSON array of objects.
func SliceDiceSpit(records any, opts Options, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}

	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	// If raw, just dump it and go home.
	if opts.Format == "raw" {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err != nil {
			return fmt.Errorf("failed to format records: %w", err)
		}
		pretty.WriteByte('\n')
		_, err := w.Write(pretty.Bytes())
		return err
	}

	fullDataset := gjson.ParseBytes(raw)
	if !fullDataset.IsArray() {
		return ErrNotAList
	}

	al := opts.Attrs
	if len(al) == 0 {
		al = DefaultAttrs(fullDataset)
	}
	al = append(attrs.AttrList(nil), al...)

	// Filter out the rows we don't want before anything else so the rest works
	// on a smaller dataset.
	filteredDataset := FilterDataset(fullDataset, al, opts.Filter)

	if opts.Local {
		for a := range al {
			al[a].TransformSpec += "t"
		}
	}

	for _, row := range filteredDataset {
		for _, attr := range al {
			if attr.TransformSpec != "" {
				row[attr.OutputKey] = attr.Transform(row[attr.OutputKey])
			}
		}
	}

	SortDataset(filteredDataset, opts.Sort)

	log.Debugf("rows: %d of %d, format: %s", len(filteredDataset), len(fullDataset.Array()), opts.Format)

	switch opts.Format {
	case "json":
		return writeJSON(filteredDataset, al, w)
	case "yaml":
		return writeYAML(filteredDataset, al, w)
	case "csv":
		return writeCSV(filteredDataset, al, w)
	default:
		TableWriter(filteredDataset, al, opts, w)
		return nil
	}
}

// DefaultAttrs picks the scalar top level keys of the first record, in
// document order.
func DefaultAttrs(dataset gjson.Result) attrs.AttrList {
	var al attrs.AttrList
	first := dataset.Get("0")
	if !first.IsObject() {
		return al
	}
	first.ForEach(func(key, value gjson.Result) bool {
		if value.IsObject() || value.IsArray() {
			return true
		}
		al = append(al, attrs.Attr{Key: key.String(), OutputKey: key.String(), Include: true})
		return true
	})
	return al
}

// orderedRow keeps the attr order when a row is encoded.
type orderedRow struct {
	row   map[string]interface{}
	attrs attrs.AttrList
}

func (o orderedRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range o.attrs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(attr.OutputKey)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(o.row[attr.OutputKey])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSON(rows []map[string]interface{}, al attrs.AttrList, w io.Writer) error {
	inc := al.Included()
	out := make([]orderedRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, orderedRow{row: row, attrs: inc})
	}

	doc, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	doc = append(doc, '\n')
	_, err = w.Write(doc)
	return err
}

func writeYAML(rows []map[string]interface{}, al attrs.AttrList, w io.Writer) error {
	inc := al.Included()
	out := make([]yaml.MapSlice, 0, len(rows))
	for _, row := range rows {
		item := make(yaml.MapSlice, 0, len(inc))
		for _, attr := range inc {
			item = append(item, yaml.MapItem{Key: attr.OutputKey, Value: row[attr.OutputKey]})
		}
		out = append(out, item)
	}

	doc, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	_, err = w.Write(doc)
	return err
}

func writeCSV(rows []map[string]interface{}, al attrs.AttrList, w io.Writer) error {
	inc := al.Included()
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(inc))
	for _, attr := range inc {
		header = append(header, attr.OutputKey)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := make([]string, 0, len(inc))
		for _, attr := range inc {
			record = append(record, InterfaceToString(row[attr.OutputKey]))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// InterfaceToString converts supported primitive or composite values to a
// string. A custom empty value may be provided.
func InterfaceToString(value interface{}, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	if value == nil || reflect.ValueOf(value).IsZero() {
		return emptyValue[0]
	}

	switch value := value.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case float64:
		// Counts and epoch timestamps are the only numbers the API returns.
		return fmt.Sprintf("%.0f", value)
	case bool:
		return strconv.FormatBool(value)
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(jsonBytes)
	}
}
