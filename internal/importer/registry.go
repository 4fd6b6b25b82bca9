// Package importer orchestrates a full file-to-graph-store import: schema
// loading, concurrent node and relationship construction, graph properties
// and final assembly.
package importer

import (
	"sort"
	"sync"

	"github.com/graph-import/internal/idmap"
	"github.com/graph-import/internal/relationships"
	"github.com/graph-import/internal/schema"
	apperrors "github.com/graph-import/pkg/errors"
)

// typeRegistry hands out one relationships.Builder per type.
// In fixed mode the type set is sealed by the shipped schema; in lazy mode
// the first record of a type shapes its builder.
type typeRegistry struct {
	mu       sync.Mutex
	idMap    *idmap.IdMap
	fixed    *schema.RelationshipSchema // nil in lazy mode
	opts     Options
	builders map[schema.RelationshipType]*relationships.Builder
	keys     map[schema.RelationshipType][]string
}

func newTypeRegistry(m *idmap.IdMap, fixed *schema.RelationshipSchema, opts Options) *typeRegistry {
	return &typeRegistry{
		idMap:    m,
		fixed:    fixed,
		opts:     opts,
		builders: make(map[schema.RelationshipType]*relationships.Builder),
		keys:     make(map[schema.RelationshipType][]string),
	}
}

// BuilderFor implements visitor.TypedBuilder.
func (r *typeRegistry) BuilderFor(relType schema.RelationshipType, observedKeys []string) (*relationships.Builder, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.builders[relType]; ok {
		return b, r.keys[relType], nil
	}

	cfg := relationships.Config{
		Type:               relType,
		Orientation:        r.opts.Orientation,
		IndexInverse:       r.opts.IndexInverse,
		SkipDangling:       r.opts.SkipDanglingRelationships,
		Concurrency:        r.opts.Concurrency,
		BatchSize:          r.opts.RelationshipBatchSize,
		UsePooledProvider:  r.opts.UsePooledBuilderProvider,
		PoolAcquireTimeout: r.opts.PoolAcquireTimeout,
	}

	if r.fixed != nil {
		entry := r.fixed.EntryOf(relType)
		if entry == nil {
			return nil, nil, apperrors.Newf(apperrors.CodeUnknownLabel,
				"relationship type %q is not part of the schema", string(relType))
		}
		if entry.Direction == schema.Undirected {
			cfg.Orientation = schema.OrientationUndirected
		}
		keys := make([]string, 0, len(entry.Properties))
		for key := range entry.Properties {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			prop := entry.Properties[key]
			cfg.Properties = append(cfg.Properties, relationships.PropertyConfig{
				Key:         key,
				Aggregation: prop.Aggregation,
			})
		}
		r.keys[relType] = keys
	} else {
		// Lazy: the first record's keys define the type's properties.
		keys := append([]string(nil), observedKeys...)
		for _, key := range keys {
			cfg.Properties = append(cfg.Properties, relationships.PropertyConfig{
				Key:         key,
				Aggregation: r.opts.Aggregation,
			})
		}
		r.keys[relType] = keys
	}

	b, err := relationships.NewBuilder(r.idMap, cfg)
	if err != nil {
		return nil, nil, err
	}
	r.builders[relType] = b
	return b, r.keys[relType], nil
}

// types returns the registered types in sorted order.
func (r *typeRegistry) types() []schema.RelationshipType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]schema.RelationshipType, 0, len(r.builders))
	for t := range r.builders {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// builderOf returns a registered builder.
func (r *typeRegistry) builderOf(relType schema.RelationshipType) *relationships.Builder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.builders[relType]
}
