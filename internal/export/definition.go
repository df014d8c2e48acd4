// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/staranto/splitctl/internal/catalog"
	"github.com/staranto/splitctl/internal/split"
)

// TreatmentKeys is the individual targeting of one treatment.
type TreatmentKeys struct {
	Treatment string   `json:"treatment"`
	Keys      []string `json:"keys"`
	Segments  []string `json:"segments"`
}

// MatcherRow is one matcher of one targeting rule, flattened.
type MatcherRow struct {
	Rule      int    `json:"rule"`
	Combiner  string `json:"combiner"`
	Type      string `json:"type"`
	Negate    bool   `json:"negate"`
	Attribute string `json:"attribute,omitempty"`
	Values    string `json:"values"`
}

// DefinitionBase is the file name stem for exports of def,
// <flag>.<environment>.<workspace>.
func DefinitionBase(def catalog.DefinitionInfo) string {
	return fmt.Sprintf("%s.%s.%s", def.Name, def.Environment.Name, def.WorkspaceName)
}

// Treatments lists the keys and segments each treatment of def targets.
func Treatments(def catalog.DefinitionInfo) []TreatmentKeys {
	out := make([]TreatmentKeys, 0, len(def.Treatments))
	for _, t := range def.Treatments {
		tk := TreatmentKeys{Treatment: t.Name, Keys: t.Keys, Segments: t.Segments}
		if tk.Keys == nil {
			tk.Keys = []string{}
		}
		if tk.Segments == nil {
			tk.Segments = []string{}
		}
		out = append(out, tk)
	}
	return out
}

// Matchers flattens the targeting rules of def, numbering rules from 1.
func Matchers(def catalog.DefinitionInfo) []MatcherRow {
	var out []MatcherRow
	for i, rule := range def.Rules {
		for _, m := range rule.Condition.Matchers {
			out = append(out, MatcherRow{
				Rule:      i + 1,
				Combiner:  rule.Condition.Combiner,
				Type:      m.Type,
				Negate:    m.Negate,
				Attribute: m.Attribute,
				Values:    matcherValues(m),
			})
		}
	}
	return out
}

// WriteDefinition exports def, indented, to <dir>/<base>.json.
func WriteDefinition(dir string, def catalog.DefinitionInfo) (string, error) {
	doc, err := json.MarshalIndent(def, "", "    ")
	if err != nil {
		return "", err
	}
	return writeFile(dir, DefinitionBase(def)+".json", append(doc, '\n'))
}

// WriteTreatments exports the treatment keys of def to
// <dir>/<base>_treatments.json, or .csv when asCSV is set. The CSV has one
// row per treatment and key.
func WriteTreatments(dir string, def catalog.DefinitionInfo, asCSV bool) (string, error) {
	name := DefinitionBase(def) + "_treatments"
	treatments := Treatments(def)

	if !asCSV {
		doc, err := json.MarshalIndent(treatments, "", "    ")
		if err != nil {
			return "", err
		}
		return writeFile(dir, name+".json", append(doc, '\n'))
	}

	rows := [][]string{{"treatment", "key"}}
	for _, t := range treatments {
		for _, k := range t.Keys {
			rows = append(rows, []string{t.Treatment, k})
		}
	}
	doc, err := encodeCSV(rows)
	if err != nil {
		return "", err
	}
	return writeFile(dir, name+".csv", doc)
}

// WriteMatchers exports the targeting rules of def to
// <dir>/<base>_matchers.json, or .csv when asCSV is set.
func WriteMatchers(dir string, def catalog.DefinitionInfo, asCSV bool) (string, error) {
	name := DefinitionBase(def) + "_matchers"
	matchers := Matchers(def)
	if matchers == nil {
		matchers = []MatcherRow{}
	}

	if !asCSV {
		doc, err := json.MarshalIndent(matchers, "", "    ")
		if err != nil {
			return "", err
		}
		return writeFile(dir, name+".json", append(doc, '\n'))
	}

	rows := [][]string{{"rule", "combiner", "type", "negate", "attribute", "values"}}
	for _, m := range matchers {
		rows = append(rows, []string{
			strconv.Itoa(m.Rule), m.Combiner, m.Type, strconv.FormatBool(m.Negate), m.Attribute, m.Values,
		})
	}
	doc, err := encodeCSV(rows)
	if err != nil {
		return "", err
	}
	return writeFile(dir, name+".csv", doc)
}

// WriteSegmentKeys exports the keys of seg, one per line under a "key"
// header, to <dir>/<segment>.<environment>.<workspace>.csv.
func WriteSegmentKeys(dir string, seg catalog.SegmentInfo) (string, error) {
	rows := [][]string{{"key"}}
	for _, k := range seg.Keys {
		rows = append(rows, []string{k})
	}
	doc, err := encodeCSV(rows)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s.%s.%s.csv", seg.Name, seg.Environment.Name, seg.Workspace.Name)
	return writeFile(dir, name, doc)
}

// matcherValues renders whichever operand m carries.
func matcherValues(m split.Matcher) string {
	switch {
	case len(m.Strings) > 0:
		return strings.Join(m.Strings, ";")
	case m.String != "":
		return m.String
	case m.Bool != nil:
		return strconv.FormatBool(*m.Bool)
	case m.Number != nil:
		return strconv.FormatFloat(*m.Number, 'f', -1, 64)
	case m.Date != nil:
		return strconv.FormatInt(*m.Date, 10)
	case m.Between != nil:
		return fmt.Sprintf("%s..%s",
			strconv.FormatFloat(m.Between.From, 'f', -1, 64),
			strconv.FormatFloat(m.Between.To, 'f', -1, 64))
	case m.Depends != nil:
		return fmt.Sprintf("%s:%s", m.Depends.SplitName, strings.Join(m.Depends.Treatments, ";"))
	}
	return ""
}

func encodeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
