package relationships

import (
	"sync"

	"github.com/graph-import/pkg/collections"
)

// relEntryPool recycles batch buffer backing storage across local builders;
// providers create and dispose builders per run, and indexed types carry
// two buffers each.
var relEntryPool = collections.NewSlicePool[relEntry](DefaultBatchSize)

// directedBuffer is one direction's bounded batch buffer inside a worker.
type directedBuffer struct {
	importer  *SingleTypeImporter
	batchSize int
	entries   *[]relEntry
	reader    PropertyReader
	buffered  *bufferedReader // non-nil only on the multi-property path
}

func newDirectedBuffer(importer *SingleTypeImporter, batchSize, propertyCount int) *directedBuffer {
	b := &directedBuffer{
		importer:  importer,
		batchSize: batchSize,
		entries:   relEntryPool.Get(),
	}
	switch {
	case propertyCount == 0:
		b.reader = zeroReader{}
	case propertyCount == 1:
		b.reader = &inlineReader{}
	default:
		b.buffered = &bufferedReader{}
		b.reader = b.buffered
	}
	return b
}

// add buffers one edge and drains when the buffer fills.
func (b *directedBuffer) add(source, target int64, vals []float64) error {
	var ref int64
	switch {
	case b.buffered != nil:
		ref = b.buffered.append(vals)
	case len(vals) == 1:
		ref = encodeInline(vals[0])
	}

	*b.entries = append(*b.entries, relEntry{source: source, target: target, propertyRef: ref})
	if len(*b.entries) >= b.batchSize {
		return b.flush()
	}
	return nil
}

// flush drains the buffer into the importer and resets the local edge id
// space so property refs never outlive a batch.
func (b *directedBuffer) flush() error {
	if len(*b.entries) == 0 {
		return nil
	}
	err := b.importer.ImportBatch(*b.entries, b.reader)
	*b.entries = (*b.entries)[:0]
	if b.buffered != nil {
		b.buffered.reset()
	}
	return err
}

// release returns the batch buffer to the pool.
func (b *directedBuffer) release() {
	if b.entries != nil {
		relEntryPool.Put(b.entries)
		b.entries = nil
	}
}

// LocalBuilder is the single-producer relationship buffer of one worker.
// For indexed types it mirrors every insert into the inverse buffer with
// property values preserved.
type LocalBuilder struct {
	forward *directedBuffer
	inverse *directedBuffer // nil for non-indexed types
	swap    bool            // reverse orientation stores edges target to source
	closeMu sync.Mutex
	closed  bool
}

// AddRelationship buffers one edge given in original ids.
func (l *LocalBuilder) AddRelationship(source, target int64, vals []float64) error {
	s, t := source, target
	if l.swap {
		s, t = t, s
	}
	if err := l.forward.add(s, t, vals); err != nil {
		return err
	}
	if l.inverse != nil {
		return l.inverse.add(t, s, vals)
	}
	return nil
}

// Flush drains both directions. The inverse half is flushed even when the
// forward half fails.
func (l *LocalBuilder) Flush() error {
	err := l.forward.flush()
	if l.inverse != nil {
		if invErr := l.inverse.flush(); err == nil {
			err = invErr
		}
	}
	return err
}

// Close flushes any pending batches and returns the buffers to the pool.
// Safe to call more than once.
func (l *LocalBuilder) Close() error {
	l.closeMu.Lock()
	defer l.closeMu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	err := l.Flush()
	l.forward.release()
	if l.inverse != nil {
		l.inverse.release()
	}
	return err
}
