package relationships

import (
	"context"
	"time"

	"github.com/graph-import/internal/graphstore"
	"github.com/graph-import/internal/idmap"
	"github.com/graph-import/internal/schema"
	apperrors "github.com/graph-import/pkg/errors"
	"github.com/graph-import/pkg/parallel"
)

// DefaultBatchSize is the per-worker relationship buffer capacity.
const DefaultBatchSize = 8192

// Config configures a Builder for one relationship type.
type Config struct {
	// Type is the relationship type this builder owns.
	Type schema.RelationshipType
	// Orientation is the storage policy. Undirected implies inverse indexing.
	Orientation schema.Orientation
	// Properties declares the edge properties with their aggregations.
	// Mixing NONE with a reducing aggregation is a configuration error.
	Properties []PropertyConfig
	// IndexInverse additionally builds the reverse adjacency.
	IndexInverse bool
	// SkipDangling discards edges whose endpoints are unmapped instead of
	// failing the batch.
	SkipDangling bool
	// Concurrency is the expected number of producing workers.
	Concurrency int
	// BatchSize is the per-worker buffer capacity. Default 8,192.
	BatchSize int
	// UsePooledProvider selects the pooled builder provider.
	UsePooledProvider bool
	// PoolAcquireTimeout bounds pooled acquisition. Zero means the default.
	PoolAcquireTimeout time.Duration
}

// Builder coordinates concurrent construction of one relationship type.
type Builder struct {
	cfg      Config
	idMap    *idmap.IdMap
	forward  *SingleTypeImporter
	inverse  *SingleTypeImporter // nil unless indexed
	provider parallel.Provider[*LocalBuilder]
}

// NewBuilder validates the configuration and creates the builder.
// The id map must be fully built before relationships are added.
func NewBuilder(m *idmap.IdMap, cfg Config) (*Builder, error) {
	if cfg.Concurrency < 1 {
		return nil, apperrors.ErrBadConcurrency
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize < 1 {
		return nil, apperrors.ErrBadBatchSize
	}
	if err := validateAggregations(cfg.Properties); err != nil {
		return nil, err
	}

	indexed := cfg.IndexInverse || cfg.Orientation == schema.OrientationUndirected

	b := &Builder{
		cfg:     cfg,
		idMap:   m,
		forward: NewSingleTypeImporter(m, cfg.Properties, cfg.SkipDangling),
	}
	if indexed {
		b.inverse = NewSingleTypeImporter(m, cfg.Properties, cfg.SkipDangling)
	}

	factory := func() *LocalBuilder {
		l := &LocalBuilder{
			forward: newDirectedBuffer(b.forward, cfg.BatchSize, len(cfg.Properties)),
			swap:    cfg.Orientation == schema.OrientationReverse,
		}
		if b.inverse != nil {
			l.inverse = newDirectedBuffer(b.inverse, cfg.BatchSize, len(cfg.Properties))
		}
		return l
	}
	dispose := func(l *LocalBuilder) error { return l.Close() }

	if cfg.UsePooledProvider {
		provider, err := parallel.NewPooledProvider(cfg.Concurrency, cfg.PoolAcquireTimeout, factory, dispose)
		if err != nil {
			return nil, err
		}
		b.provider = provider
	} else {
		b.provider = parallel.NewLocalProvider(factory, dispose)
	}
	return b, nil
}

// validateAggregations rejects mixing NONE with reducing aggregations:
// the former keeps parallel edges, the latter folds them away.
func validateAggregations(props []PropertyConfig) error {
	if len(props) < 2 {
		return nil
	}
	reduces := props[0].Aggregation.Reduces()
	for _, p := range props[1:] {
		if p.Aggregation.Reduces() != reduces {
			return apperrors.Newf(apperrors.CodeAggregationConflict,
				"property %q mixes %s with a reducing aggregation", p.Key, schema.AggregationNone)
		}
	}
	return nil
}

// AddRelationship buffers one edge given in original ids.
// vals carries one value per configured property, in declaration order.
func (b *Builder) AddRelationship(ctx context.Context, source, target int64, vals ...float64) error {
	local, release, err := b.provider.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	return local.AddRelationship(source, target, vals)
}

// DroppedCount returns the number of dangling edges discarded so far.
func (b *Builder) DroppedCount() int64 {
	// The inverse buffer sees the same endpoints, so it drops the same
	// edges; counting both directions would count each edge twice.
	return b.forward.DroppedCount()
}

// ImportedCount returns the number of forward edges stored so far.
func (b *Builder) ImportedCount() int64 {
	return b.forward.ImportedCount()
}

// Build drains every outstanding local builder and assembles the finished
// single-type relationships.
func (b *Builder) Build() (*graphstore.SingleTypeRelationships, error) {
	if err := b.provider.Close(); err != nil {
		return nil, err
	}

	schemaProps := make(map[string]schema.PropertySchema, len(b.cfg.Properties))
	for _, p := range b.cfg.Properties {
		ps := schema.NewPropertySchema(p.Key, propertyColumnType(p.Aggregation)).
			WithAggregation(p.Aggregation)
		schemaProps[p.Key] = ps
	}

	topology, props := b.forward.Build(schemaProps)

	out := &graphstore.SingleTypeRelationships{
		SchemaEntry: &schema.RelationshipEntry{
			Type:       b.cfg.Type,
			Direction:  b.cfg.Orientation.Direction(),
			Properties: schemaProps,
		},
		Topology:   topology,
		Properties: props,
	}

	if b.inverse != nil {
		invTopo, invProps := b.inverse.Build(schemaProps)
		out.InverseTopology = invTopo
		out.InverseProperties = invProps
	}
	return out, nil
}
