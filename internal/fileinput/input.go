// Package fileinput reads CSV node, relationship and graph-property files
// and presents them as lazy, restartable record iterables to the import
// engine.
package fileinput

import (
	"github.com/graph-import/internal/schema"
	"github.com/graph-import/pkg/values"
)

// NodeRecord is one node row.
type NodeRecord struct {
	ID         int64
	Labels     []string
	Properties *values.PropertyValues
}

// RelationshipRecord is one relationship row.
type RelationshipRecord struct {
	StartID    int64
	EndID      int64
	Type       string
	Properties *values.PropertyValues
}

// GraphPropertyRecord is one graph-level property value.
type GraphPropertyRecord struct {
	Key   string
	Value values.Value
}

// Iterator yields records until exhaustion. Not safe for concurrent use.
type Iterator[T any] interface {
	// Next returns the next record. ok is false at end of input.
	Next() (record T, ok bool, err error)
	// Close releases the underlying resources.
	Close() error
}

// Iterable produces fresh iterators over the same records.
type Iterable[T any] interface {
	Iterator() (Iterator[T], error)
}

// InputSchema is the pre-parsed schema shipped next to the data files.
// Nil Nodes / Relationships means the engine runs that side in lazy mode.
type InputSchema struct {
	Nodes           *schema.NodeSchema
	Relationships   *schema.RelationshipSchema
	GraphProperties map[string]values.ValueType
}

// FileInput is the boundary between file parsing and graph construction.
type FileInput interface {
	// Nodes returns a restartable iterable over all node files.
	Nodes() Iterable[NodeRecord]
	// Relationships returns a restartable iterable over all relationship files.
	Relationships() Iterable[RelationshipRecord]
	// GraphProperties returns a restartable iterable over graph property files.
	GraphProperties() Iterable[GraphPropertyRecord]
	// Schema returns the sidecar schema, if any.
	Schema() (*InputSchema, error)
}
