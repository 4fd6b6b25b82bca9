package nodes

import (
	"sync"

	"github.com/graph-import/internal/schema"
	"github.com/graph-import/pkg/collections"
	apperrors "github.com/graph-import/pkg/errors"
	"github.com/graph-import/pkg/values"
)

// batchEntryPool recycles batch buffer backing storage across local
// builders; providers create and dispose builders per run.
var batchEntryPool = collections.NewSlicePool[batchEntry](DefaultBatchSize)

// LocalBuilder is the single-producer batch buffer of one worker.
// It is not safe for concurrent use; workers obtain one through the
// builder's provider and release it when the call returns.
type LocalBuilder struct {
	importer   *Importer
	dedup      func(originalID int64) (bool, error)
	batchSize  int
	buffer     *[]batchEntry
	props      []*values.PropertyValues
	tokenCache map[string][]int
	labelTable *schema.TokenTable[schema.NodeLabel]
	schema     *schema.NodeSchema
	fixedProps map[string]schema.PropertySchema // nil in lazy mode
	lazy       bool
	dedupSkips int64
	closed     bool
	closeMu    sync.Mutex
}

// newLocalBuilder creates a worker-local builder.
func newLocalBuilder(importer *Importer, labelTable *schema.TokenTable[schema.NodeLabel], nodeSchema *schema.NodeSchema, fixedProps map[string]schema.PropertySchema, batchSize int, dedup func(int64) (bool, error)) *LocalBuilder {
	return &LocalBuilder{
		importer:   importer,
		dedup:      dedup,
		batchSize:  batchSize,
		buffer:     batchEntryPool.Get(),
		tokenCache: make(map[string][]int),
		labelTable: labelTable,
		schema:     nodeSchema,
		fixedProps: fixedProps,
		lazy:       fixedProps == nil,
	}
}

// AddNode buffers one node. Returns (false, nil) when the dedup predicate
// has seen the original id before.
func (l *LocalBuilder) AddNode(originalID int64, labels []schema.NodeLabel, props *values.PropertyValues) (bool, error) {
	seen, err := l.dedup(originalID)
	if err != nil {
		return false, err
	}
	if seen {
		l.dedupSkips++
		return false, nil
	}

	tokens, err := l.tokensFor(labels)
	if err != nil {
		return false, err
	}

	if err := l.recordSchema(labels, props); err != nil {
		return false, err
	}

	propertyRef := -1
	if props != nil && !props.IsEmpty() {
		propertyRef = len(l.props)
		l.props = append(l.props, props)
	}

	*l.buffer = append(*l.buffer, batchEntry{
		originalID:  originalID,
		propertyRef: propertyRef,
		labelTokens: tokens,
	})

	if len(*l.buffer) >= l.batchSize {
		return true, l.Flush()
	}
	return true, nil
}

// tokensFor resolves the label set to tokens, cached by the sorted label
// set string.
func (l *LocalBuilder) tokensFor(labels []schema.NodeLabel) ([]int, error) {
	key := schema.SortedLabelKey(labels)
	if tokens, ok := l.tokenCache[key]; ok {
		return tokens, nil
	}
	tokens := make([]int, 0, len(labels))
	for _, label := range labels {
		token, err := l.labelTable.TokenOf(label)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	l.tokenCache[key] = tokens
	return tokens, nil
}

// recordSchema registers the labels and, in lazy mode, the discovered
// property keys in the shared node schema. Fixed mode validates keys
// against the declared schema instead.
func (l *LocalBuilder) recordSchema(labels []schema.NodeLabel, props *values.PropertyValues) error {
	for _, label := range labels {
		if l.lazy {
			l.schema.AddLabel(label)
		}
	}
	if props == nil {
		return nil
	}
	return props.ForEach(func(key string, value values.Value) error {
		if !l.lazy {
			ps, ok := l.fixedProps[key]
			if !ok {
				return apperrors.Newf(apperrors.CodeUnknownProperty,
					"property %q is not part of the schema", key)
			}
			if value != nil && !ps.Compatible(value.Type()) {
				return apperrors.Newf(apperrors.CodePropertyTypeMismatch,
					"cannot store %s value into %s column %q", value.Type(), ps.Type, key)
			}
			return nil
		}
		if value == nil {
			return nil
		}
		ps := schema.NewPropertySchema(key, value.Type())
		if len(labels) == 0 {
			return l.schema.AddProperty(schema.AllNodes, ps)
		}
		for _, label := range labels {
			if err := l.schema.AddProperty(label, ps); err != nil {
				return err
			}
		}
		return nil
	})
}

// Flush drains the buffer into the shared importer.
func (l *LocalBuilder) Flush() error {
	if len(*l.buffer) == 0 {
		return nil
	}
	err := l.importer.ImportBatch(*l.buffer, l.props)
	*l.buffer = (*l.buffer)[:0]
	l.props = l.props[:0]
	return err
}

// DedupSkips returns the number of duplicate ids this worker skipped.
func (l *LocalBuilder) DedupSkips() int64 {
	return l.dedupSkips
}

// Close flushes any pending batch and returns the buffer to the pool.
// Safe to call more than once.
func (l *LocalBuilder) Close() error {
	l.closeMu.Lock()
	defer l.closeMu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	err := l.Flush()
	batchEntryPool.Put(l.buffer)
	l.buffer = nil
	return err
}
