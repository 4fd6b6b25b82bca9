// Package relationships implements the concurrent relationship construction
// pipeline: bounded per-worker batch buffers draining through property
// readers into per-type adjacency lists with optional inverse indexing.
package relationships

import (
	"math"
)

// PropertyReader resolves the property values of a buffered edge during a
// batch drain. propertyRef is whatever the local builder encoded into the
// batch slot.
type PropertyReader interface {
	// ValuesOf returns the property values of an edge, one per configured
	// property, in configuration order.
	ValuesOf(propertyRef int64) []float64
}

// zeroReader serves relationship types with no properties.
type zeroReader struct{}

func (zeroReader) ValuesOf(int64) []float64 { return nil }

// inlineReader serves single-property types. The double is bit-encoded
// directly into the batch slot, so the drain needs no side lookup.
type inlineReader struct {
	scratch [1]float64
}

func (r *inlineReader) ValuesOf(propertyRef int64) []float64 {
	r.scratch[0] = math.Float64frombits(uint64(propertyRef))
	return r.scratch[:]
}

// bufferedReader serves multi-property types. propertyRef is a local edge
// id assigned monotonically per worker; values are buffered per edge and
// the id space resets on every flush.
type bufferedReader struct {
	vals [][]float64
}

func (r *bufferedReader) append(values []float64) int64 {
	id := int64(len(r.vals))
	r.vals = append(r.vals, values)
	return id
}

func (r *bufferedReader) ValuesOf(propertyRef int64) []float64 {
	return r.vals[propertyRef]
}

// reset clears the local edge id space. Called after every drain so ids
// never leak across flushes.
func (r *bufferedReader) reset() {
	r.vals = r.vals[:0]
}

// encodeInline packs a single double into a batch slot.
func encodeInline(value float64) int64 {
	return int64(math.Float64bits(value))
}
