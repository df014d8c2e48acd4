// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"errors"
	"fmt"
	"strings"
)

// Slot names one entry of the lookup store.
type Slot string

const (
	SlotWorkspaces         Slot = "workspaces"
	SlotEnvironments       Slot = "environments"
	SlotSegments           Slot = "segments"
	SlotSegmentDefinitions Slot = "segment_definitions"
	SlotSplits             Slot = "splits"
	SlotSplitDefinitions   Slot = "splits_definitions"
	SlotUsers              Slot = "users"
	SlotGroups             Slot = "groups"
)

// Slots is every slot the store knows, in display order.
var Slots = []Slot{
	SlotWorkspaces,
	SlotEnvironments,
	SlotSegments,
	SlotSegmentDefinitions,
	SlotSplits,
	SlotSplitDefinitions,
	SlotUsers,
	SlotGroups,
}

var ErrUnknownSlot = errors.New("unknown cache slot")

// Valid reports whether s is one of Slots.
func (s Slot) Valid() bool {
	for _, known := range Slots {
		if s == known {
			return true
		}
	}
	return false
}

func (s Slot) String() string {
	return string(s)
}

// ParseSlot resolves a user supplied slot name. Dashes are accepted in place
// of underscores.
func ParseSlot(name string) (Slot, error) {
	s := Slot(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_"))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q (valid: %s)", ErrUnknownSlot, name, slotNames())
	}
	return s, nil
}

func slotNames() string {
	names := make([]string, 0, len(Slots))
	for _, s := range Slots {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
