package schema

import (
	"sort"
	"sync"

	apperrors "github.com/graph-import/pkg/errors"
)

// RelationshipEntry holds the schema of one relationship type.
type RelationshipEntry struct {
	Type       RelationshipType
	Direction  Direction
	Properties map[string]PropertySchema
}

// clone returns a deep copy of the entry.
func (e *RelationshipEntry) clone() *RelationshipEntry {
	props := make(map[string]PropertySchema, len(e.Properties))
	for k, v := range e.Properties {
		props[k] = v
	}
	return &RelationshipEntry{Type: e.Type, Direction: e.Direction, Properties: props}
}

// RelationshipSchema maps relationship types to their directions and
// property schemas. Safe for concurrent mutation during the build.
type RelationshipSchema struct {
	mu      sync.RWMutex
	entries map[RelationshipType]*RelationshipEntry
}

// NewRelationshipSchema creates an empty relationship schema.
func NewRelationshipSchema() *RelationshipSchema {
	return &RelationshipSchema{
		entries: make(map[RelationshipType]*RelationshipEntry),
	}
}

// AddType registers a relationship type with the given direction.
// Re-registering with a different direction is an error.
func (s *RelationshipSchema) AddType(relType RelationshipType, direction Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[relType]; ok {
		if existing.Direction != direction {
			return apperrors.Newf(apperrors.CodeAggregationConflict,
				"relationship type %q registered as both %s and %s",
				string(relType), existing.Direction, direction)
		}
		return nil
	}
	s.entries[relType] = &RelationshipEntry{
		Type:       relType,
		Direction:  direction,
		Properties: make(map[string]PropertySchema),
	}
	return nil
}

// AddProperty registers a property under a type. The type must exist.
func (s *RelationshipSchema) AddProperty(relType RelationshipType, prop PropertySchema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[relType]
	if !ok {
		return apperrors.Newf(apperrors.CodeUnknownLabel,
			"relationship type %q is not part of the schema", string(relType))
	}
	if existing, ok := entry.Properties[prop.Key]; ok {
		if existing.Type != prop.Type {
			return apperrors.Newf(apperrors.CodePropertyTypeMismatch,
				"property %q declared as %s and %s under type %q",
				prop.Key, existing.Type, prop.Type, string(relType))
		}
		return nil
	}
	entry.Properties[prop.Key] = prop
	return nil
}

// HasType reports whether the relationship type is registered.
func (s *RelationshipSchema) HasType(relType RelationshipType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[relType]
	return ok
}

// EntryOf returns a copy of the entry for a type, or nil if absent.
func (s *RelationshipSchema) EntryOf(relType RelationshipType) *RelationshipEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[relType]
	if !ok {
		return nil
	}
	return entry.clone()
}

// Types returns all registered types in sorted order.
func (s *RelationshipSchema) Types() []RelationshipType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RelationshipType, 0, len(s.entries))
	for t := range s.entries {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Union merges other into this schema.
func (s *RelationshipSchema) Union(other *RelationshipSchema) error {
	other.mu.RLock()
	defer other.mu.RUnlock()
	for relType, entry := range other.entries {
		if err := s.AddType(relType, entry.Direction); err != nil {
			return err
		}
		for _, prop := range entry.Properties {
			if err := s.AddProperty(relType, prop); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsEmpty reports whether no type is registered.
func (s *RelationshipSchema) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries) == 0
}
