package nodes

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/graph-import/internal/graphstore"
	"github.com/graph-import/internal/idmap"
	"github.com/graph-import/internal/schema"
	apperrors "github.com/graph-import/pkg/errors"
	"github.com/graph-import/pkg/parallel"
	"github.com/graph-import/pkg/values"
)

// DefaultBatchSize is the per-worker node buffer capacity.
const DefaultBatchSize = 10000

// Config configures a Builder.
type Config struct {
	// Concurrency is the expected number of producing workers.
	Concurrency int
	// BatchSize is the per-worker buffer capacity. Default 10,000.
	BatchSize int
	// DeduplicateIDs enables bitset dedup of original ids.
	DeduplicateIDs bool
	// MaxOriginalID sizes the dedup bitset; negative means unknown.
	MaxOriginalID int64
	// IDMapType selects the id map layout.
	IDMapType idmap.BuilderType
	// Schema, when set, is authoritative (fixed mode). Nil enables lazy
	// schema discovery.
	Schema *schema.NodeSchema
	// UsePooledProvider selects the pooled builder provider over the
	// grow-on-demand one.
	UsePooledProvider bool
	// PoolAcquireTimeout bounds pooled acquisition. Zero means the default.
	PoolAcquireTimeout time.Duration
}

// Builder coordinates concurrent node construction and assembles the
// finished Nodes on Build.
type Builder struct {
	cfg        Config
	lazy       bool
	labelTable *schema.TokenTable[schema.NodeLabel]
	schema     *schema.NodeSchema
	idBuilder  *idmap.Builder
	importer   *Importer
	properties *propertyBuilders
	provider   parallel.Provider[*LocalBuilder]
	dedupSkips atomic.Int64
}

// NewBuilder validates the configuration and creates the builder.
func NewBuilder(cfg Config) (*Builder, error) {
	if cfg.Concurrency < 1 {
		return nil, apperrors.ErrBadConcurrency
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize < 1 {
		return nil, apperrors.ErrBadBatchSize
	}
	if cfg.IDMapType == "" {
		cfg.IDMapType = idmap.BuilderTypeDense
	}
	if cfg.DeduplicateIDs && !cfg.IDMapType.SupportsDedup() {
		return nil, apperrors.ErrDedupUnsupported
	}

	lazy := cfg.Schema == nil

	var nodeSchema *schema.NodeSchema
	var labelTable *schema.TokenTable[schema.NodeLabel]
	var fixedProps map[string]schema.PropertySchema
	if lazy {
		nodeSchema = schema.NewNodeSchema()
		labelTable = schema.NewLazyLabelTable()
	} else {
		nodeSchema = cfg.Schema
		labelTable = schema.NewFixedLabelTable(nodeSchema.Labels())
		fixedProps = nodeSchema.UnionProperties()
	}

	idBuilder, err := idmap.NewBuilder(cfg.IDMapType)
	if err != nil {
		return nil, err
	}

	properties := newPropertyBuilders(fixedProps)
	importer := NewImporter(idBuilder, labelTable, properties)

	// A zero MaxOriginalID still means a one-id domain; only negative
	// values mark the domain as unknown.
	pred := idmap.NewDedupPredicate(cfg.DeduplicateIDs, cfg.MaxOriginalID)

	b := &Builder{
		cfg:        cfg,
		lazy:       lazy,
		labelTable: labelTable,
		schema:     nodeSchema,
		idBuilder:  idBuilder,
		importer:   importer,
		properties: properties,
	}

	dedup := func(originalID int64) (bool, error) {
		seen, err := pred.SeenBefore(originalID)
		if err != nil {
			return false, err
		}
		if seen {
			b.dedupSkips.Add(1)
		}
		return seen, nil
	}

	factory := func() *LocalBuilder {
		return newLocalBuilder(importer, labelTable, nodeSchema, fixedProps, cfg.BatchSize, dedup)
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

// AddNode imports a node without labels or properties.
func (b *Builder) AddNode(ctx context.Context, originalID int64) error {
	return b.addNode(ctx, originalID, nil, nil)
}

// AddNodeWithLabels imports a node with labels.
func (b *Builder) AddNodeWithLabels(ctx context.Context, originalID int64, labels ...schema.NodeLabel) error {
	return b.addNode(ctx, originalID, labels, nil)
}

// AddNodeWithProperties imports a node with labels and properties.
func (b *Builder) AddNodeWithProperties(ctx context.Context, originalID int64, props *values.PropertyValues, labels ...schema.NodeLabel) error {
	return b.addNode(ctx, originalID, labels, props)
}

func (b *Builder) addNode(ctx context.Context, originalID int64, labels []schema.NodeLabel, props *values.PropertyValues) error {
	local, release, err := b.provider.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = local.AddNode(originalID, labels, props)
	return err
}

// DedupSkips returns the number of duplicate original ids skipped.
func (b *Builder) DedupSkips() int64 {
	return b.dedupSkips.Load()
}

// ImportedCount returns the number of nodes imported so far.
func (b *Builder) ImportedCount() int64 {
	return b.importer.ImportedCount()
}

// Build drains every outstanding local builder and assembles the Nodes.
// In fixed mode, schema properties that never saw a value fail the build.
func (b *Builder) Build() (*graphstore.Nodes, error) {
	if err := b.provider.Close(); err != nil {
		return nil, err
	}

	if !b.lazy {
		if missing := b.properties.missingKeys(); len(missing) > 0 {
			return nil, apperrors.Newf(apperrors.CodeMissingProperties,
				"schema properties never observed: %s", strings.Join(missing, ", "))
		}
	}

	m := b.idBuilder.Build()
	columns := b.properties.build(m)

	return &graphstore.Nodes{
		Schema:     b.schema,
		IdMap:      m,
		Properties: columns,
	}, nil
}
