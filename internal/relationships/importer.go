package relationships

import (
	"sync"
	"sync/atomic"

	"github.com/graph-import/internal/graphstore"
	"github.com/graph-import/internal/idmap"
	"github.com/graph-import/internal/schema"
	apperrors "github.com/graph-import/pkg/errors"
	"github.com/graph-import/pkg/values"
)

// relEntry is one edge waiting in a worker's batch buffer.
// Endpoints hold original ids until the drain resolves them.
type relEntry struct {
	source      int64
	target      int64
	propertyRef int64
}

// pair identifies an endpoint pair in internal id space.
type pair struct {
	source int64
	target int64
}

// PropertyConfig declares one relationship property.
type PropertyConfig struct {
	Key          string
	DefaultValue float64
	Aggregation  schema.Aggregation
}

// SingleTypeImporter accumulates the adjacency of one relationship type in
// one direction. Batches drain under a single lock; endpoint resolution,
// dangling handling and aggregation all happen here.
type SingleTypeImporter struct {
	mu           sync.Mutex
	idMap        *idmap.IdMap
	properties   []PropertyConfig
	reduces      bool
	skipDangling bool

	targets  [][]int64
	propVals [][][]float64 // [property][source][edge index]
	pairSlot map[pair]int  // aggregation: adjacency position per pair
	seen     map[pair]struct{}
	multi    bool

	imported atomic.Int64
	dropped  atomic.Int64
}

// NewSingleTypeImporter creates an importer sized to the id map.
func NewSingleTypeImporter(m *idmap.IdMap, properties []PropertyConfig, skipDangling bool) *SingleTypeImporter {
	reduces := len(properties) > 0
	for _, p := range properties {
		if !p.Aggregation.Reduces() {
			reduces = false
			break
		}
	}

	nodeCount := m.NodeCount()
	imp := &SingleTypeImporter{
		idMap:        m,
		properties:   properties,
		reduces:      reduces,
		skipDangling: skipDangling,
		targets:      make([][]int64, nodeCount),
		propVals:     make([][][]float64, len(properties)),
	}
	for i := range imp.propVals {
		imp.propVals[i] = make([][]float64, nodeCount)
	}
	if reduces {
		imp.pairSlot = make(map[pair]int)
	} else {
		imp.seen = make(map[pair]struct{})
	}
	return imp
}

// ImportBatch drains one worker batch through the property reader.
func (imp *SingleTypeImporter) ImportBatch(entries []relEntry, reader PropertyReader) error {
	if len(entries) == 0 {
		return nil
	}

	imp.mu.Lock()
	defer imp.mu.Unlock()

	for _, e := range entries {
		source := imp.idMap.ToInternal(e.source)
		target := imp.idMap.ToInternal(e.target)
		if source == idmap.NotFound || target == idmap.NotFound {
			if imp.skipDangling {
				imp.dropped.Add(1)
				continue
			}
			missing := e.source
			if source != idmap.NotFound {
				missing = e.target
			}
			return apperrors.Newf(apperrors.CodeDanglingEndpoint,
				"relationship endpoint %d is not part of the node set", missing)
		}

		vals := reader.ValuesOf(e.propertyRef)
		imp.insert(source, target, vals)
		imp.imported.Add(1)
	}
	return nil
}

// insert applies one resolved edge, folding parallel edges when every
// property aggregation reduces.
func (imp *SingleTypeImporter) insert(source, target int64, vals []float64) {
	p := pair{source, target}

	if imp.reduces {
		if slot, ok := imp.pairSlot[p]; ok {
			for i, cfg := range imp.properties {
				running := imp.propVals[i][source][slot]
				imp.propVals[i][source][slot] = cfg.Aggregation.Apply(running, imp.valueAt(vals, i))
			}
			return
		}
		imp.pairSlot[p] = len(imp.targets[source])
		imp.targets[source] = append(imp.targets[source], target)
		for i, cfg := range imp.properties {
			imp.propVals[i][source] = append(imp.propVals[i][source],
				cfg.Aggregation.InitialValue(imp.valueAt(vals, i)))
		}
		return
	}

	if _, ok := imp.seen[p]; ok {
		imp.multi = true
	} else {
		imp.seen[p] = struct{}{}
	}
	imp.targets[source] = append(imp.targets[source], target)
	for i := range imp.properties {
		imp.propVals[i][source] = append(imp.propVals[i][source], imp.valueAt(vals, i))
	}
}

// valueAt picks the i-th property value, falling back to the default.
func (imp *SingleTypeImporter) valueAt(vals []float64, i int) float64 {
	if i < len(vals) {
		return vals[i]
	}
	return imp.properties[i].DefaultValue
}

// ImportedCount returns the number of stored edges.
func (imp *SingleTypeImporter) ImportedCount() int64 {
	return imp.imported.Load()
}

// DroppedCount returns the number of dangling edges discarded.
func (imp *SingleTypeImporter) DroppedCount() int64 {
	return imp.dropped.Load()
}

// Build snapshots the accumulated adjacency into an immutable topology and
// property columns.
func (imp *SingleTypeImporter) Build(schemaProps map[string]schema.PropertySchema) (*graphstore.Topology, map[string]*graphstore.RelationshipPropertyColumn) {
	imp.mu.Lock()
	defer imp.mu.Unlock()

	topo := &graphstore.Topology{
		Adjacency:    graphstore.NewAdjacencyList(imp.targets),
		IsMultiGraph: imp.multi,
	}

	var columns map[string]*graphstore.RelationshipPropertyColumn
	if len(imp.properties) > 0 {
		columns = make(map[string]*graphstore.RelationshipPropertyColumn, len(imp.properties))
		for i, cfg := range imp.properties {
			ps, ok := schemaProps[cfg.Key]
			if !ok {
				ps = schema.NewPropertySchema(cfg.Key, propertyColumnType(cfg.Aggregation)).
					WithAggregation(cfg.Aggregation)
			}
			columns[cfg.Key] = graphstore.NewRelationshipPropertyColumn(ps, imp.propVals[i])
		}
	}
	return topo, columns
}

// propertyColumnType gives the column type an aggregation produces.
// Count always yields an integral column.
func propertyColumnType(a schema.Aggregation) values.ValueType {
	if a == schema.AggregationCount {
		return values.TypeLong
	}
	return values.TypeDouble
}
