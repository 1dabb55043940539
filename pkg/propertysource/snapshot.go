// snapshot.go
// Copyright (C) Andrew Woodlee 2023
// License: Apache-2.0

package propertysource

import (
	"sort"

	"github.com/google/uuid"
)

// Snapshot is an immutable set of flattened properties. Every fresh fetch and
// every fallback load produces a new Snapshot, even for identical content, so
// callers can compare pointers to learn whether the source was replaced.
type Snapshot struct {
	id         uuid.UUID
	name       string
	checksum   string
	properties map[string]string
}

func newSnapshot(name string, properties map[string]string, checksum string) *Snapshot {
	if properties == nil {
		properties = map[string]string{}
	}
	return &Snapshot{
		id:         uuid.New(),
		name:       name,
		checksum:   checksum,
		properties: properties,
	}
}

func (s *Snapshot) ID() uuid.UUID {
	return s.id
}

// Name is the name of the State that produced the snapshot.
func (s *Snapshot) Name() string {
	return s.name
}

// Checksum is the SHA256 of the document the snapshot was parsed from.
// It is empty for the initial snapshot.
func (s *Snapshot) Checksum() string {
	return s.checksum
}

func (s *Snapshot) Property(key string) (string, bool) {
	v, ok := s.properties[key]
	return v, ok
}

// Properties returns a copy of all properties.
func (s *Snapshot) Properties() map[string]string {
	out := make(map[string]string, len(s.properties))
	for k, v := range s.properties {
		out[k] = v
	}
	return out
}

// Keys returns the property keys in sorted order.
func (s *Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.properties))
	for k := range s.properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Snapshot) Len() int {
	return len(s.properties)
}

func (s *Snapshot) IsEmpty() bool {
	return len(s.properties) == 0
}
