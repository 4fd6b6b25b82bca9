package graphstore

import (
	"github.com/graph-import/internal/schema"
	"github.com/graph-import/pkg/values"
)

// NodePropertyColumn is one property's values over the dense node id space.
// Unset entries carry the schema default.
type NodePropertyColumn struct {
	Schema schema.PropertySchema
	vals   []values.Value
}

// NewNodePropertyColumn wraps a finished value slice.
// The slice is owned by the column after the call.
func NewNodePropertyColumn(propSchema schema.PropertySchema, vals []values.Value) *NodePropertyColumn {
	return &NodePropertyColumn{Schema: propSchema, vals: vals}
}

// Len returns the number of entries.
func (c *NodePropertyColumn) Len() int64 {
	return int64(len(c.vals))
}

// ValueAt returns the value of the node, or the default for unset entries.
func (c *NodePropertyColumn) ValueAt(internalID int64) values.Value {
	if internalID < 0 || internalID >= int64(len(c.vals)) {
		return c.Schema.DefaultValue
	}
	if c.vals[internalID] == nil {
		return c.Schema.DefaultValue
	}
	return c.vals[internalID]
}

// RelationshipPropertyColumn is one property's values aligned with the
// adjacency: entry i of source s belongs to the i-th neighbor of s.
// Relationship properties are stored as doubles.
type RelationshipPropertyColumn struct {
	Schema schema.PropertySchema
	vals   [][]float64
	count  int64
}

// NewRelationshipPropertyColumn wraps finished per-source value lists.
func NewRelationshipPropertyColumn(propSchema schema.PropertySchema, vals [][]float64) *RelationshipPropertyColumn {
	var count int64
	for _, v := range vals {
		count += int64(len(v))
	}
	return &RelationshipPropertyColumn{Schema: propSchema, vals: vals, count: count}
}

// ElementCount returns the number of stored values.
func (c *RelationshipPropertyColumn) ElementCount() int64 {
	return c.count
}

// ValueAt returns the value of the idx-th edge of source.
func (c *RelationshipPropertyColumn) ValueAt(source int64, idx int) float64 {
	if source < 0 || source >= int64(len(c.vals)) || idx < 0 || idx >= len(c.vals[source]) {
		if d, ok := c.Schema.DefaultValue.(values.DoubleValue); ok {
			return float64(d)
		}
		return 0
	}
	return c.vals[source][idx]
}

// ValuesOf returns all values of a source in adjacency order.
func (c *RelationshipPropertyColumn) ValuesOf(source int64) []float64 {
	if source < 0 || source >= int64(len(c.vals)) {
		return nil
	}
	return c.vals[source]
}
