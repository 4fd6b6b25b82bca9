package importer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/graph-import/internal/fileinput"
	"github.com/graph-import/internal/graphstore"
	"github.com/graph-import/internal/idmap"
	"github.com/graph-import/internal/nodes"
	"github.com/graph-import/internal/relationships"
	"github.com/graph-import/internal/schema"
	"github.com/graph-import/internal/visitor"
	apperrors "github.com/graph-import/pkg/errors"
	"github.com/graph-import/pkg/model"
	"github.com/graph-import/pkg/parallel"
	"github.com/graph-import/pkg/utils"
	"github.com/graph-import/pkg/values"
)

const tracerName = "graph-import/importer"

// Options is the core-relevant configuration surface of an import.
type Options struct {
	// Concurrency is the number of worker goroutines per phase.
	Concurrency int
	// NodeBatchSize is the per-worker node buffer size. Default 10,000.
	NodeBatchSize int
	// RelationshipBatchSize is the per-worker edge buffer size. Default 8,192.
	RelationshipBatchSize int
	// DeduplicateIDs enables original id dedup via atomic bitsets.
	DeduplicateIDs bool
	// MaxOriginalID sizes the dedup bitset; negative means unknown.
	MaxOriginalID int64
	// IDMapType selects the id map layout.
	IDMapType idmap.BuilderType
	// Orientation applies to every relationship type; a type that a fixed
	// schema declares undirected is always undirected.
	Orientation schema.Orientation
	// IndexInverse additionally builds reverse adjacencies.
	IndexInverse bool
	// Aggregation applies to lazily discovered relationship properties.
	Aggregation schema.Aggregation
	// SkipDanglingRelationships drops edges with unmapped endpoints.
	SkipDanglingRelationships bool
	// RequireSingleProperty fails assembly when a type carries more than
	// one property column.
	RequireSingleProperty bool
	// UsePooledBuilderProvider selects pooled local builders.
	UsePooledBuilderProvider bool
	// PoolAcquireTimeout bounds pooled acquisition.
	PoolAcquireTimeout time.Duration
	// Logger receives progress output. Nil suppresses it.
	Logger utils.Logger
}

// DefaultOptions returns the default import options.
func DefaultOptions() Options {
	return Options{
		Concurrency:               4,
		NodeBatchSize:             nodes.DefaultBatchSize,
		RelationshipBatchSize:     relationships.DefaultBatchSize,
		MaxOriginalID:             -1,
		IDMapType:                 idmap.BuilderTypeDense,
		Orientation:               schema.OrientationNatural,
		Aggregation:               schema.AggregationNone,
		SkipDanglingRelationships: true,
	}
}

// FileToGraphStoreImporter drives a complete import from a FileInput.
type FileToGraphStoreImporter struct {
	input  fileinput.FileInput
	opts   Options
	logger utils.Logger
}

// New creates an importer over the given input.
func New(input fileinput.FileInput, opts Options) *FileToGraphStoreImporter {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultOptions().Concurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	return &FileToGraphStoreImporter{input: input, opts: opts, logger: logger}
}

// poolConfig shapes the per-phase worker pool: one task per worker loop,
// siblings cancelled on the first failure.
func (imp *FileToGraphStoreImporter) poolConfig() parallel.PoolConfig {
	return parallel.PoolConfig{
		MaxWorkers:  imp.opts.Concurrency,
		StopOnError: true,
	}
}

// Run executes the import. On failure no graph store is returned; the
// summary still carries counters for diagnostics.
func (imp *FileToGraphStoreImporter) Run(ctx context.Context) (*graphstore.GraphStore, *model.ImportSummary, error) {
	runID := uuid.NewString()
	timer := utils.NewTimer("import", utils.WithLogger(imp.logger))
	summary := &model.ImportSummary{RunUUID: runID, ImportedAt: time.Now()}

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "import.run")
	span.SetAttributes(attribute.String("run.uuid", runID))
	defer span.End()

	store, err := imp.run(ctx, runID, timer, summary)

	summary.TotalDuration = timer.TotalDuration()
	for _, phase := range timer.GetPhases() {
		summary.Phases = append(summary.Phases, model.PhaseDuration{
			Name:     phase.Name,
			Millis:   phase.Duration.Milliseconds(),
			Duration: phase.Duration.String(),
		})
	}
	summary.Warnings = summary.Counters.WarningCount()
	if err != nil {
		summary.Errors = 1
		summary.Error = err.Error()
		return nil, summary, err
	}
	return store, summary, nil
}

func (imp *FileToGraphStoreImporter) run(ctx context.Context, runID string, timer *utils.Timer, summary *model.ImportSummary) (*graphstore.GraphStore, error) {
	logger := imp.logger.WithField("run", runID)

	// Phase: schema
	pt := timer.Start("schema")
	inputSchema, err := imp.input.Schema()
	pt.Stop()
	if err != nil {
		return nil, err
	}

	summary.Mode = model.ModeLazy
	if inputSchema.Nodes != nil {
		summary.Mode = model.ModeFixed
		if inputSchema.Nodes.IsEmpty() {
			logger.Warn("node schema declares no labels; proceeding with empty output")
		}
	}
	if inputSchema.Relationships != nil && inputSchema.Relationships.IsEmpty() {
		logger.Warn("relationship schema declares no types; proceeding with empty output")
	}

	// Phase: nodes
	pt = timer.Start("nodes")
	nodesResult, err := imp.importNodes(ctx, inputSchema, summary)
	pt.Stop()
	if err != nil {
		return nil, err
	}
	logger.Info("imported %d nodes (%d duplicates skipped)",
		summary.Counters.NodesImported, summary.Counters.DedupSkips)

	// Phase: relationships
	pt = timer.Start("relationships")
	relResults, err := imp.importRelationships(ctx, inputSchema, nodesResult.IdMap, summary)
	pt.Stop()
	if err != nil {
		return nil, err
	}
	logger.Info("imported %d relationships (%d dangling dropped)",
		summary.Counters.RelationshipsImported, summary.Counters.DanglingDropped)

	// Phase: graph properties
	pt = timer.Start("graph_properties")
	graphProps, err := imp.importGraphProperties(ctx, summary)
	pt.Stop()
	if err != nil {
		return nil, err
	}

	// Phase: assembly
	pt = timer.Start("assembly")
	store, err := imp.assemble(inputSchema, nodesResult, relResults, graphProps)
	pt.Stop()
	if err != nil {
		return nil, err
	}

	timer.PrintSummary()
	return store, nil
}

// importNodes fans workers out over the shared node record iterator.
func (imp *FileToGraphStoreImporter) importNodes(ctx context.Context, inputSchema *fileinput.InputSchema, summary *model.ImportSummary) (*graphstore.Nodes, error) {
	builder, err := nodes.NewBuilder(nodes.Config{
		Concurrency:        imp.opts.Concurrency,
		BatchSize:          imp.opts.NodeBatchSize,
		DeduplicateIDs:     imp.opts.DeduplicateIDs,
		MaxOriginalID:      imp.opts.MaxOriginalID,
		IDMapType:          imp.opts.IDMapType,
		Schema:             inputSchema.Nodes,
		UsePooledProvider:  imp.opts.UsePooledBuilderProvider,
		PoolAcquireTimeout: imp.opts.PoolAcquireTimeout,
	})
	if err != nil {
		return nil, err
	}

	it, err := imp.input.Nodes().Iterator()
	if err != nil {
		return nil, err
	}
	defer it.Close()
	records := newSharedIterator(it)

	pool := parallel.NewWorkerPool[int, struct{}](imp.poolConfig())
	_, err = pool.ExecuteFunc(ctx, parallel.WorkerIDs(imp.opts.Concurrency), func(wctx context.Context, w int) (struct{}, error) {
		v := visitor.NewNodeVisitor(builder)
		for {
			record, ok, err := records.next()
			if err != nil {
				return struct{}{}, err
			}
			if !ok {
				return struct{}{}, nil
			}
			if err := wctx.Err(); err != nil {
				return struct{}{}, err
			}

			v.ID(record.ID)
			v.Labels(record.Labels)
			if record.Properties != nil {
				_ = record.Properties.ForEach(func(key string, value values.Value) error {
					v.Property(key, value)
					return nil
				})
			}
			if err := v.EndOfEntity(wctx); err != nil {
				return struct{}{}, err
			}
		}
	})
	if err != nil {
		return nil, err
	}

	result, err := builder.Build()
	if err != nil {
		return nil, err
	}
	summary.Counters.NodesImported = result.Count()
	summary.Counters.DedupSkips = builder.DedupSkips()
	return result, nil
}

// importRelationships fans workers out over the shared relationship iterator.
func (imp *FileToGraphStoreImporter) importRelationships(ctx context.Context, inputSchema *fileinput.InputSchema, m *idmap.IdMap, summary *model.ImportSummary) (map[schema.RelationshipType]*graphstore.SingleTypeRelationships, error) {
	registry := newTypeRegistry(m, inputSchema.Relationships, imp.opts)

	it, err := imp.input.Relationships().Iterator()
	if err != nil {
		return nil, err
	}
	defer it.Close()
	records := newSharedIterator(it)

	pool := parallel.NewWorkerPool[int, struct{}](imp.poolConfig())
	_, err = pool.ExecuteFunc(ctx, parallel.WorkerIDs(imp.opts.Concurrency), func(wctx context.Context, w int) (struct{}, error) {
		v := visitor.NewRelationshipVisitor(registry)
		for {
			record, ok, err := records.next()
			if err != nil {
				return struct{}{}, err
			}
			if !ok {
				return struct{}{}, nil
			}
			if err := wctx.Err(); err != nil {
				return struct{}{}, err
			}

			v.StartID(record.StartID)
			v.EndID(record.EndID)
			v.Type(record.Type)
			if record.Properties != nil {
				_ = record.Properties.ForEach(func(key string, value values.Value) error {
					v.Property(key, value)
					return nil
				})
			}
			if err := v.EndOfEntity(wctx); err != nil {
				return struct{}{}, err
			}
		}
	})
	if err != nil {
		return nil, err
	}

	out := make(map[schema.RelationshipType]*graphstore.SingleTypeRelationships)
	for _, relType := range registry.types() {
		builder := registry.builderOf(relType)
		rels, err := builder.Build()
		if err != nil {
			return nil, err
		}
		summary.Counters.RelationshipsImported += rels.ElementCount()
		summary.Counters.DanglingDropped += builder.DroppedCount()
		out[relType] = rels
	}
	return out, nil
}

// importGraphProperties runs each worker with its own fragment and merges.
func (imp *FileToGraphStoreImporter) importGraphProperties(ctx context.Context, summary *model.ImportSummary) (map[string]*graphstore.GraphPropertyValues, error) {
	it, err := imp.input.GraphProperties().Iterator()
	if err != nil {
		return nil, err
	}
	defer it.Close()
	records := newSharedIterator(it)

	fragments := make([]*graphstore.GraphPropertyFragment, imp.opts.Concurrency)
	var count atomic.Int64

	pool := parallel.NewWorkerPool[int, struct{}](imp.poolConfig())
	_, err = pool.ExecuteFunc(ctx, parallel.WorkerIDs(imp.opts.Concurrency), func(wctx context.Context, w int) (struct{}, error) {
		v := visitor.NewGraphPropertyVisitor()
		fragments[w] = v.Fragment()
		for {
			record, ok, err := records.next()
			if err != nil {
				return struct{}{}, err
			}
			if !ok {
				return struct{}{}, nil
			}
			if err := wctx.Err(); err != nil {
				return struct{}{}, err
			}

			v.Property(record.Key, record.Value)
			if err := v.EndOfEntity(); err != nil {
				return struct{}{}, err
			}
			count.Add(1)
		}
	})
	if err != nil {
		return nil, err
	}

	summary.Counters.GraphPropertyValues = count.Load()
	return graphstore.MergeGraphPropertyFragments(fragments), nil
}

// assemble builds the final store and applies assembly-time checks.
func (imp *FileToGraphStoreImporter) assemble(
	inputSchema *fileinput.InputSchema,
	nodesResult *graphstore.Nodes,
	relResults map[schema.RelationshipType]*graphstore.SingleTypeRelationships,
	graphProps map[string]*graphstore.GraphPropertyValues,
) (*graphstore.GraphStore, error) {
	relSchema := inputSchema.Relationships
	if relSchema == nil {
		relSchema = schema.NewRelationshipSchema()
		for relType, rels := range relResults {
			if err := relSchema.AddType(relType, rels.SchemaEntry.Direction); err != nil {
				return nil, err
			}
			for _, prop := range rels.SchemaEntry.Properties {
				if err := relSchema.AddProperty(relType, prop); err != nil {
					return nil, err
				}
			}
		}
	}

	if imp.opts.RequireSingleProperty {
		for relType, rels := range relResults {
			if len(rels.Properties) > 1 {
				return nil, apperrors.Newf(apperrors.CodeMultipleRelProperties,
					"relationship type %q carries %d properties, expected at most one",
					string(relType), len(rels.Properties))
			}
		}
	}

	return &graphstore.GraphStore{
		NodeSchema:         nodesResult.Schema,
		RelationshipSchema: relSchema,
		Nodes:              nodesResult,
		Relationships:      relResults,
		GraphProperties:    graphProps,
	}, nil
}
