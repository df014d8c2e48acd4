// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package catalogtest provides an in-memory Split account for tests.
package catalogtest

import (
	"context"
	"errors"
	"sync"

	"github.com/staranto/splitctl/internal/split"
)

// API serves a fixed account: workspaces Default (ws1) and Mobile (ws2),
// environments Prod-Default (e1) and Staging (e2) in Default and Staging (e3)
// in Mobile. Set Fail[name] to make a call fail.
type API struct {
	// Fail maps a call name to the error it returns. Mutations share the
	// name "mutate".
	Fail map[string]error

	// Written holds the bodies of created and updated definitions, in order.
	Written []split.DefinitionRequest

	// ExtraSegments adds segments to the fixed ones, keyed by environment ID.
	ExtraSegments map[string][]split.Segment

	mu      sync.Mutex
	calls   map[string]int
	deleted []string
}

// New returns an API with no failures.
func New() *API {
	return &API{calls: map[string]int{}, Fail: map[string]error{}, ExtraSegments: map[string][]split.Segment{}}
}

func (f *API) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.Fail[name]
}

// Count returns how often the named call was made.
func (f *API) Count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *API) Workspaces(context.Context) ([]split.Workspace, error) {
	if err := f.record("workspaces"); err != nil {
		return nil, err
	}
	return []split.Workspace{
		{ID: "ws1", Name: "Default", RequiresTitleAndComments: true},
		{ID: "ws2", Name: "Mobile"},
	}, nil
}

func (f *API) Environments(_ context.Context, wsID string) ([]split.Environment, error) {
	if err := f.record("environments"); err != nil {
		return nil, err
	}
	switch wsID {
	case "ws1":
		return []split.Environment{
			{ID: "e1", Name: "Prod-Default", Production: true},
			{ID: "e2", Name: "Staging"},
		}, nil
	case "ws2":
		return []split.Environment{{ID: "e3", Name: "Staging"}}, nil
	}
	return nil, nil
}

func (f *API) Segments(_ context.Context, wsID, envID string) ([]split.Segment, error) {
	if err := f.record("segments"); err != nil {
		return nil, err
	}
	var segments []split.Segment
	if envID == "e1" || envID == "e3" {
		segments = append(segments, split.Segment{Name: "beta", TrafficType: split.TrafficType{ID: "tt1", Name: "user"}})
	}
	return append(segments, f.ExtraSegments[envID]...), nil
}

func (f *API) SegmentKeys(_ context.Context, envID, segment string) ([]string, error) {
	if err := f.record("segment_keys"); err != nil {
		return nil, err
	}
	return []string{segment + "-" + envID + "-a", segment + "-" + envID + "-b"}, nil
}

func (f *API) Splits(_ context.Context, wsID string) ([]split.Split, error) {
	if err := f.record("splits"); err != nil {
		return nil, err
	}
	flags := []split.Split{{ID: "s-" + wsID, Name: "checkout", RolloutStatus: split.RolloutStatus{ID: "r1", Name: "Ramping"}}}
	if wsID == "ws1" {
		flags = append(flags, split.Split{ID: "s-only", Name: "search"})
	}
	return flags, nil
}

func (f *API) SplitDefinitions(_ context.Context, wsID, envID string) ([]split.SplitDefinition, error) {
	if err := f.record("split_definitions"); err != nil {
		return nil, err
	}
	return []split.SplitDefinition{{
		ID:               "d-" + envID,
		Name:             "checkout",
		Environment:      split.Ref{ID: envID},
		DefaultTreatment: "off",
		Treatments:       []split.Treatment{{Name: "on", Keys: []string{"k1"}}, {Name: "off"}},
	}}, nil
}

func (f *API) Groups(context.Context) ([]split.Group, error) {
	if err := f.record("groups"); err != nil {
		return nil, err
	}
	return []split.Group{{ID: "g1", Name: "Administrators"}, {ID: "g2", Name: "Readers"}}, nil
}

func (f *API) Users(_ context.Context, status string) ([]split.User, error) {
	if err := f.record("users"); err != nil {
		return nil, err
	}
	if status != "ACTIVE" {
		return nil, errors.New("unexpected status " + status)
	}
	return []split.User{
		{ID: "u1", Name: "Alice", Email: "Alice@example.com", Status: "ACTIVE", Groups: []split.Ref{{ID: "g1", Type: "group"}}},
		{ID: "u2", Name: "Bob", Email: "bob@example.com", Status: "ACTIVE", Groups: []split.Ref{{ID: "g1"}, {ID: "g9"}}},
	}, nil
}

func (f *API) DeleteGroup(_ context.Context, id string) error {
	return f.remove("group:" + id)
}

func (f *API) DeleteSegment(_ context.Context, wsID, segment string) error {
	return f.remove("segment:" + wsID + "/" + segment)
}

func (f *API) DeleteSplit(_ context.Context, wsID, name string) error {
	return f.remove("split:" + wsID + "/" + name)
}

func (f *API) DeleteEnvironment(_ context.Context, wsID, envID string) error {
	return f.remove("environment:" + wsID + "/" + envID)
}

func (f *API) UploadSegmentKeys(_ context.Context, envID, segment string, _ []string, _ bool, _ string) error {
	return f.remove("upload:" + envID + "/" + segment)
}

func (f *API) ActivateSegment(_ context.Context, envID, segment string) error {
	return f.remove("activate:" + envID + "/" + segment)
}

func (f *API) CreateSplitDefinition(_ context.Context, wsID, envID, name string, def split.DefinitionRequest, _ string) error {
	if err := f.remove("create:" + wsID + "/" + envID + "/" + name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Written = append(f.Written, def)
	return nil
}

func (f *API) UpdateSplitDefinition(_ context.Context, wsID, envID, name string, def split.DefinitionRequest, _ string) error {
	if err := f.remove("update:" + wsID + "/" + envID + "/" + name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Written = append(f.Written, def)
	return nil
}

func (f *API) remove(what string) error {
	if err := f.record("mutate"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, what)
	return nil
}

// Deleted lists the mutations made, in order. Writes are included.
func (f *API) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}
