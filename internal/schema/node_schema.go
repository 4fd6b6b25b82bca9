package schema

import (
	"sort"
	"sync"

	apperrors "github.com/graph-import/pkg/errors"
)

// NodeSchema maps node labels to their property schemas.
// It is safe for concurrent mutation during the build and should be treated
// as immutable once the graph store is assembled.
type NodeSchema struct {
	mu     sync.RWMutex
	labels map[NodeLabel]map[string]PropertySchema
}

// NewNodeSchema creates an empty node schema.
func NewNodeSchema() *NodeSchema {
	return &NodeSchema{
		labels: make(map[NodeLabel]map[string]PropertySchema),
	}
}

// AddLabel registers a label with no properties.
func (s *NodeSchema) AddLabel(label NodeLabel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.labels[label]; !ok {
		s.labels[label] = make(map[string]PropertySchema)
	}
}

// AddProperty registers a property under a label. Registering the same key
// twice is fine when the types agree; a type conflict is an error.
func (s *NodeSchema) AddProperty(label NodeLabel, prop PropertySchema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	props, ok := s.labels[label]
	if !ok {
		props = make(map[string]PropertySchema)
		s.labels[label] = props
	}
	if existing, ok := props[prop.Key]; ok {
		if existing.Type != prop.Type {
			return apperrors.Newf(apperrors.CodePropertyTypeMismatch,
				"property %q declared as %s and %s under label %q",
				prop.Key, existing.Type, prop.Type, string(label))
		}
		return nil
	}
	props[prop.Key] = prop
	return nil
}

// HasLabel reports whether the label is registered.
func (s *NodeSchema) HasLabel(label NodeLabel) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.labels[label]
	return ok
}

// PropertiesOf returns a copy of the property schemas for a label.
func (s *NodeSchema) PropertiesOf(label NodeLabel) map[string]PropertySchema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	props := s.labels[label]
	out := make(map[string]PropertySchema, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

// Labels returns all registered labels in sorted order.
func (s *NodeSchema) Labels() []NodeLabel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]NodeLabel, 0, len(s.labels))
	for l := range s.labels {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// UnionProperties returns the union of every label's properties.
func (s *NodeSchema) UnionProperties() map[string]PropertySchema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]PropertySchema)
	for _, props := range s.labels {
		for k, v := range props {
			out[k] = v
		}
	}
	return out
}

// Union merges other into this schema.
func (s *NodeSchema) Union(other *NodeSchema) error {
	other.mu.RLock()
	defer other.mu.RUnlock()
	for label, props := range other.labels {
		s.AddLabel(label)
		for _, prop := range props {
			if err := s.AddProperty(label, prop); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsEmpty reports whether no label is registered.
func (s *NodeSchema) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.labels) == 0
}
