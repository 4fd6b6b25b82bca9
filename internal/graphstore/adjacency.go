// Package graphstore holds the immutable, query-ready output of an import:
// adjacency topologies, property columns and the assembled graph store.
package graphstore

import (
	"encoding/binary"
)

// AdjacencyList is a compressed per-source neighbor list.
// Targets are stored as zigzag deltas in varint encoding, one packed block
// per source, preserving insertion order.
type AdjacencyList struct {
	offsets []int64 // byte offset of each source's block in packed
	degrees []int32
	packed  []byte
	count   int64
}

// NewAdjacencyList compresses per-source target lists.
// The targets slice is indexed by source internal id.
func NewAdjacencyList(targets [][]int64) *AdjacencyList {
	a := &AdjacencyList{
		offsets: make([]int64, len(targets)),
		degrees: make([]int32, len(targets)),
	}
	buf := make([]byte, binary.MaxVarintLen64)
	for source, list := range targets {
		a.offsets[source] = int64(len(a.packed))
		a.degrees[source] = int32(len(list))
		prev := int64(0)
		for _, t := range list {
			n := binary.PutVarint(buf, t-prev)
			a.packed = append(a.packed, buf[:n]...)
			prev = t
			a.count++
		}
	}
	return a
}

// SourceCount returns the number of source slots.
func (a *AdjacencyList) SourceCount() int64 {
	return int64(len(a.offsets))
}

// ElementCount returns the total number of stored edges.
func (a *AdjacencyList) ElementCount() int64 {
	return a.count
}

// DegreeOf returns the number of neighbors of a source.
func (a *AdjacencyList) DegreeOf(source int64) int {
	if source < 0 || source >= int64(len(a.degrees)) {
		return 0
	}
	return int(a.degrees[source])
}

// NeighborsOf decodes the neighbor list of a source in insertion order.
func (a *AdjacencyList) NeighborsOf(source int64) []int64 {
	degree := a.DegreeOf(source)
	if degree == 0 {
		return nil
	}
	out := make([]int64, 0, degree)
	pos := a.offsets[source]
	prev := int64(0)
	for i := 0; i < degree; i++ {
		delta, n := binary.Varint(a.packed[pos:])
		pos += int64(n)
		prev += delta
		out = append(out, prev)
	}
	return out
}

// ForEachNeighbor invokes fn for every neighbor of source in insertion order.
func (a *AdjacencyList) ForEachNeighbor(source int64, fn func(target int64)) {
	degree := a.DegreeOf(source)
	if degree == 0 {
		return
	}
	pos := a.offsets[source]
	prev := int64(0)
	for i := 0; i < degree; i++ {
		delta, n := binary.Varint(a.packed[pos:])
		pos += int64(n)
		prev += delta
		fn(prev)
	}
}

// Topology is the adjacency of one relationship type in one direction.
type Topology struct {
	Adjacency    *AdjacencyList
	IsMultiGraph bool
}

// ElementCount returns the number of stored edges.
func (t *Topology) ElementCount() int64 {
	if t == nil || t.Adjacency == nil {
		return 0
	}
	return t.Adjacency.ElementCount()
}
