package nodes

import (
	"sync"
	"sync/atomic"

	"github.com/graph-import/internal/idmap"
	"github.com/graph-import/internal/schema"
	"github.com/graph-import/pkg/values"
)

// batchEntry is one node waiting in a worker's batch buffer.
// propertyRef indexes the worker-local property slice, -1 when absent.
type batchEntry struct {
	originalID  int64
	propertyRef int
	labelTokens []int
}

// Importer is the shared sink for node batches. Batches are applied under a
// single lock: each batch gets a contiguous internal id range, assigned in
// the order batches arrive.
type Importer struct {
	mu         sync.Mutex
	idBuilder  *idmap.Builder
	labelTable *schema.TokenTable[schema.NodeLabel]
	properties *propertyBuilders
	imported   atomic.Int64
}

// NewImporter creates the shared importer.
func NewImporter(idBuilder *idmap.Builder, labelTable *schema.TokenTable[schema.NodeLabel], properties *propertyBuilders) *Importer {
	return &Importer{
		idBuilder:  idBuilder,
		labelTable: labelTable,
		properties: properties,
	}
}

// ImportBatch drains one worker batch: allocates the internal id range,
// records both mapping directions, unions label bitmaps and routes property
// values into their columns.
func (imp *Importer) ImportBatch(batch []batchEntry, props []*values.PropertyValues) error {
	if len(batch) == 0 {
		return nil
	}

	imp.mu.Lock()
	defer imp.mu.Unlock()

	start := imp.idBuilder.AllocateRange(len(batch))
	for i, entry := range batch {
		internalID := start + int64(i)
		imp.idBuilder.Set(internalID, entry.originalID)

		for _, token := range entry.labelTokens {
			for _, label := range imp.labelTable.NamesOf(token) {
				imp.idBuilder.AddToLabel(internalID, label)
			}
		}

		if entry.propertyRef >= 0 {
			pv := props[entry.propertyRef]
			err := pv.ForEach(func(key string, value values.Value) error {
				builder, err := imp.properties.getOrCreate(key, value)
				if err != nil {
					return err
				}
				return builder.Set(internalID, value)
			})
			if err != nil {
				return err
			}
		}
	}
	imp.imported.Add(int64(len(batch)))
	return nil
}

// ImportedCount returns the number of nodes imported so far.
func (imp *Importer) ImportedCount() int64 {
	return imp.imported.Load()
}
