// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/apex/log"
)

// FormatVersion is written into every store file. A file carrying any other
// version is discarded on Load. Bump it whenever a slot's record shape
// changes.
const FormatVersion = 1

// envelope is the on-disk representation of the whole store.
type envelope struct {
	Version int                      `json:"version"`
	SavedAt time.Time                `json:"saved_at"`
	Slots   map[Slot]json.RawMessage `json:"slots"`
}

// Store is the lookup cache. Slot values are kept as encoded JSON so the
// store stays ignorant of their shape; GetOrFetch decodes them for callers.
//
// A Store with an empty path is memory only: Save and ResetAll never touch
// disk.
type Store struct {
	mu      sync.Mutex
	path    string
	slots   map[Slot]json.RawMessage
	savedAt time.Time
}

// SlotStatus describes one slot for display.
type SlotStatus struct {
	Slot      Slot
	Populated bool
	Bytes     int
}

// New returns an empty store backed by path. Call Load to read what a
// previous run left behind.
func New(path string) *Store {
	return &Store{
		path:  path,
		slots: make(map[Slot]json.RawMessage),
	}
}

// Path returns the backing file, or "" for a memory-only store.
func (s *Store) Path() string {
	return s.path
}

// SavedAt returns when the loaded or last saved file was written.
func (s *Store) SavedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savedAt
}

// Load replaces the in-memory state with the backing file. A missing,
// unreadable, corrupt or foreign-version file leaves the store empty and is
// only logged. Returns true when a file was loaded.
func (s *Store) Load() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots = make(map[Slot]json.RawMessage)
	s.savedAt = time.Time{}

	if s.path == "" {
		return false
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debugf("cache not found, will be fetched: %s", s.path)
		} else {
			log.WithError(err).Warnf("failed to read cache file %s", s.path)
		}
		return false
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.WithError(err).Warnf("failed to load cache file %s, starting empty", s.path)
		return false
	}
	if env.Version != FormatVersion {
		log.Warnf("cache file %s has version %d, want %d, starting empty", s.path, env.Version, FormatVersion)
		return false
	}

	for slot, raw := range env.Slots {
		if !slot.Valid() {
			log.Debugf("dropping unknown slot %q from cache file", slot)
			continue
		}
		if isEmpty(raw) {
			continue
		}
		s.slots[slot] = raw
	}
	s.savedAt = env.SavedAt

	log.Debugf("loaded %d cache slots from %s", len(s.slots), s.path)
	return true
}

// Save writes the whole store to the backing file, replacing it. The file is
// written to a temp sibling and renamed into place.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}

	env := envelope{
		Version: FormatVersion,
		SavedAt: time.Now().UTC(),
		Slots:   s.slots,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".lookup-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if _, err := os.Stat(tmpName); err == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil { //nolint:mnd
		return fmt.Errorf("failed to chmod cache file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to rename temp cache file: %w", err)
	}

	s.savedAt = env.SavedAt
	return nil
}

// Raw returns the stored encoding of slot and whether it is populated.
func (s *Store) Raw(slot Slot) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.slots[slot]
	return raw, ok
}

// Populated reports whether slot holds a value.
func (s *Store) Populated(slot Slot) bool {
	_, ok := s.Raw(slot)
	return ok
}

// Put encodes value into slot and persists the store. An empty value leaves
// the slot empty.
func (s *Store) Put(slot Slot, value any) error {
	if !slot.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", slot, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if isEmpty(raw) {
		delete(s.slots, slot)
	} else {
		s.slots[slot] = raw
	}
	return s.saveLocked()
}

// Invalidate clears the given slots and persists the store. Other slots are
// left alone. An unknown slot fails the whole call before anything changes.
func (s *Store) Invalidate(slots ...Slot) error {
	for _, slot := range slots {
		if !slot.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range slots {
		delete(s.slots, slot)
		log.Debugf("invalidated cache slot %s", slot)
	}
	return s.saveLocked()
}

// ResetAll discards every slot and deletes the backing file.
func (s *Store) ResetAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots = make(map[Slot]json.RawMessage)
	s.savedAt = time.Time{}

	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	log.Debugf("removed cache file %s", s.path)
	return nil
}

// Status lists every slot with its populated state and encoded size.
func (s *Store) Status() []SlotStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]SlotStatus, 0, len(Slots))
	for _, slot := range Slots {
		raw, ok := s.slots[slot]
		result = append(result, SlotStatus{Slot: slot, Populated: ok, Bytes: len(raw)})
	}
	return result
}

// GetOrFetch returns the value cached in slot. When the slot is empty, fetch
// is called once, its result stored and the store persisted. Errors from
// fetch are returned unchanged and nothing is cached.
//
// A failure to persist after a successful fetch is logged; the value is still
// returned and stays cached in memory.
func GetOrFetch[T any](
	ctx context.Context,
	s *Store,
	slot Slot,
	fetch func(context.Context) (T, error),
) (T, error) {
	var zero T

	if !slot.Valid() {
		return zero, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}

	if raw, ok := s.Raw(slot); ok {
		var value T
		err := json.Unmarshal(raw, &value)
		if err == nil {
			log.Debugf("cache hit: %s", slot)
			return value, nil
		}
		log.WithError(err).Warnf("cache slot %s does not decode, refetching", slot)
	}

	log.Debugf("cache miss: %s", slot)
	value, err := fetch(ctx)
	if err != nil {
		return zero, err
	}

	if err := s.Put(slot, value); err != nil {
		log.WithError(err).Warnf("failed to write %s to cache", slot)
	}
	return value, nil
}

// isEmpty treats null, "", {} and [] (in any spacing) as no value.
func isEmpty(raw json.RawMessage) bool {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return len(bytes.TrimSpace(raw)) == 0
	}
	switch buf.String() {
	case "", "null", `""`, "{}", "[]":
		return true
	}
	return false
}
