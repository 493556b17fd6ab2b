// Package cache remembers the content identifier of every resource written
// by a task so that unchanged resources are not written again.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/JonnyShabli/ghsync/internal/models"
)

type entryKey struct {
	task string
	dest string
}

// Store is the persistent (task, destination) -> identifier mapping. It is
// owned by a single job run and is not safe for concurrent use.
type Store struct {
	location string
	entries  map[entryKey]models.CacheEntry
	dirty    bool
}

func NewStore(location string) *Store {
	return &Store{
		location: location,
		entries:  make(map[entryKey]models.CacheEntry),
	}
}

// Load reads the record set at location. A missing file yields an empty,
// clean store.
func Load(location string) (*Store, error) {
	s := NewStore(location)

	data, err := os.ReadFile(location)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("reading cache %s: %w", location, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}

	var records []models.CacheEntry
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing cache %s: %w", location, err)
	}
	for _, r := range records {
		s.entries[entryKey{task: r.Task, dest: r.Dest}] = r
	}

	return s, nil
}

// Key derives the cache key of a destination path by dropping the extension
// of its last element. Dots in directory names are kept.
func Key(dest string) string {
	ext := path.Ext(dest)
	if ext == "" || ext == dest || strings.HasSuffix(dest, "/"+ext) {
		return dest
	}
	return strings.TrimSuffix(dest, ext)
}

func (s *Store) Location() string {
	return s.location
}

func (s *Store) Get(task, dest string) (models.CacheEntry, bool) {
	e, ok := s.entries[entryKey{task: task, dest: dest}]
	return e, ok
}

// Set overwrites the entry for (task, dest) and marks the store dirty.
func (s *Store) Set(task, dest string, kind models.Kind, id string) {
	s.entries[entryKey{task: task, dest: dest}] = models.CacheEntry{
		Task: task,
		Dest: dest,
		Kind: kind,
		ID:   id,
	}
	s.dirty = true
}

// Check compares id with the stored identifier. When they differ, or nothing
// is stored yet, the entry is updated and true is returned. An identical
// identifier leaves the store untouched.
func (s *Store) Check(task, dest string, kind models.Kind, id string) bool {
	if e, ok := s.Get(task, dest); ok && e.ID == id {
		return false
	}
	s.Set(task, dest, kind, id)
	return true
}

func (s *Store) Dirty() bool {
	return s.dirty
}

func (s *Store) Len() int {
	return len(s.entries)
}

// Dump serializes the full record set ordered by task and destination.
func (s *Store) Dump() ([]byte, error) {
	records := make([]models.CacheEntry, 0, len(s.entries))
	for _, e := range s.entries {
		records = append(records, e)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Task != records[j].Task {
			return records[i].Task < records[j].Task
		}
		return records[i].Dest < records[j].Dest
	})

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling cache: %w", err)
	}
	return data, nil
}

// Saved clears the dirty flag after a successful flush.
func (s *Store) Saved() {
	s.dirty = false
}
