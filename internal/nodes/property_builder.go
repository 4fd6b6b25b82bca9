// Package nodes implements the concurrent node construction pipeline:
// per-worker batch buffers draining into a shared importer that assigns
// internal ids, label membership and columnar property storage.
package nodes

import (
	"sync"

	"github.com/graph-import/internal/graphstore"
	"github.com/graph-import/internal/idmap"
	"github.com/graph-import/internal/schema"
	apperrors "github.com/graph-import/pkg/errors"
	"github.com/graph-import/pkg/values"
)

// PropertyBuilder accumulates one property column over the growing internal
// id space. Each Set targets a distinct internal id coming from a single
// batch, so per-index writes are race-free; only capacity growth locks.
type PropertyBuilder struct {
	mu     sync.RWMutex
	schema schema.PropertySchema
	vals   []values.Value
}

// NewPropertyBuilder creates a builder for one property key.
func NewPropertyBuilder(propSchema schema.PropertySchema) *PropertyBuilder {
	return &PropertyBuilder{schema: propSchema}
}

// Schema returns the property schema backing the column.
func (b *PropertyBuilder) Schema() schema.PropertySchema {
	return b.schema
}

// Set coerces and stores the value at the internal id.
func (b *PropertyBuilder) Set(internalID int64, value values.Value) error {
	coerced, err := values.Coerce(value, b.schema.Type)
	if err != nil {
		return err
	}

	b.mu.RLock()
	if internalID < int64(len(b.vals)) {
		b.vals[internalID] = coerced
		b.mu.RUnlock()
		return nil
	}
	b.mu.RUnlock()

	b.mu.Lock()
	if internalID >= int64(len(b.vals)) {
		newLen := int64(len(b.vals)) * 2
		if newLen <= internalID {
			newLen = internalID + 1
		}
		grown := make([]values.Value, newLen)
		copy(grown, b.vals)
		b.vals = grown
	}
	b.vals[internalID] = coerced
	b.mu.Unlock()
	return nil
}

// Build snapshots the column, sized and default-filled to the id map.
func (b *PropertyBuilder) Build(m *idmap.IdMap) *graphstore.NodePropertyColumn {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]values.Value, m.NodeCount())
	copy(out, b.vals)
	return graphstore.NewNodePropertyColumn(b.schema, out)
}

// propertyBuilders is the shared registry of column builders keyed by
// property name. Builders are created under the lock on first sight.
type propertyBuilders struct {
	mu       sync.Mutex
	fixed    map[string]schema.PropertySchema // nil in lazy mode
	builders map[string]*PropertyBuilder
}

// newPropertyBuilders creates a registry. fixedProps is nil for lazy mode;
// in fixed mode it is the authoritative key set.
func newPropertyBuilders(fixedProps map[string]schema.PropertySchema) *propertyBuilders {
	return &propertyBuilders{
		fixed:    fixedProps,
		builders: make(map[string]*PropertyBuilder),
	}
}

// getOrCreate returns the column builder for key, creating it on first
// sight. In lazy mode the observed value's type defines the column; in
// fixed mode unknown keys are rejected.
func (r *propertyBuilders) getOrCreate(key string, observed values.Value) (*PropertyBuilder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.builders[key]; ok {
		return b, nil
	}

	var propSchema schema.PropertySchema
	if r.fixed != nil {
		ps, ok := r.fixed[key]
		if !ok {
			return nil, apperrors.Newf(apperrors.CodeUnknownProperty,
				"property %q is not part of the schema", key)
		}
		propSchema = ps
	} else {
		if observed == nil {
			return nil, apperrors.Newf(apperrors.CodePropertyTypeMismatch,
				"cannot infer column type for %q from nil value", key)
		}
		propSchema = schema.NewPropertySchema(key, observed.Type())
	}

	b := NewPropertyBuilder(propSchema)
	r.builders[key] = b
	return b, nil
}

// missingKeys returns fixed-schema keys that never saw a value.
func (r *propertyBuilders) missingKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fixed == nil {
		return nil
	}
	var missing []string
	for key := range r.fixed {
		if _, ok := r.builders[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// build snapshots every column.
func (r *propertyBuilders) build(m *idmap.IdMap) map[string]*graphstore.NodePropertyColumn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*graphstore.NodePropertyColumn, len(r.builders))
	for key, b := range r.builders {
		out[key] = b.Build(m)
	}
	return out
}
