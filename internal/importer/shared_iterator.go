package importer

import (
	"sync"

	"github.com/graph-import/internal/fileinput"
)

// sharedIterator adapts a single-producer record iterator for consumption
// by many workers. A mutex mediates access; workers never hold the lock
// while visiting a record.
type sharedIterator[T any] struct {
	mu   sync.Mutex
	it   fileinput.Iterator[T]
	done bool
}

func newSharedIterator[T any](it fileinput.Iterator[T]) *sharedIterator[T] {
	return &sharedIterator[T]{it: it}
}

// next pops the next record. After the first error or exhaustion every
// caller observes the end of the stream.
func (s *sharedIterator[T]) next() (T, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if s.done {
		return zero, false, nil
	}
	record, ok, err := s.it.Next()
	if err != nil || !ok {
		s.done = true
		return zero, false, err
	}
	return record, true, nil
}
