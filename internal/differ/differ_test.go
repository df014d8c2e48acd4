// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package differ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/splitctl/internal/catalog"
	"github.com/staranto/splitctl/internal/split"
)

func definition(envID, envName string, allocation int, treatments ...string) catalog.DefinitionInfo {
	def := catalog.DefinitionInfo{
		SplitDefinition: split.SplitDefinition{
			ID:                "d-" + envID,
			Name:              "checkout",
			Environment:       split.Ref{ID: envID, Name: envName},
			DefaultTreatment:  "off",
			TrafficAllocation: allocation,
			CreationTime:      1705312800000,
		},
		WorkspaceID:   "ws1",
		WorkspaceName: "Default",
	}
	for _, t := range treatments {
		def.Treatments = append(def.Treatments, split.Treatment{Name: t})
	}
	return def
}

func TestDefinitions_Same(t *testing.T) {
	a := definition("e1", "Prod-Default", 100, "on", "off")
	b := definition("e2", "Staging", 100, "on", "off")
	b.LastUpdateTime = 42

	out, changed, err := Definitions(a, b)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, out)
}

func TestDefinitions_Changed(t *testing.T) {
	a := definition("e1", "Prod-Default", 100, "on", "off")
	b := definition("e2", "Staging", 50, "on", "off", "v2")

	out, changed, err := Definitions(a, b)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, out, `-  "trafficAllocation": 100`)
	assert.Contains(t, out, `+  "trafficAllocation": 50`)
	assert.Contains(t, out, `"v2"`)
	assert.NotContains(t, out, "Staging")
}

func TestJSON_Invalid(t *testing.T) {
	_, _, err := JSON([]byte(`{"a":`), []byte(`{}`))
	assert.Error(t, err)
}
