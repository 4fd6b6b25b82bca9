// Package idmap maps original node ids to the dense internal id space and
// tracks per-label membership.
package idmap

import (
	"github.com/graph-import/pkg/collections"
)

// DedupPredicate answers whether an original id was already imported.
// Implementations must be safe for concurrent use.
type DedupPredicate interface {
	// SeenBefore marks the id as seen and reports whether it already was.
	// Errors when the id cannot be tracked, e.g. it falls outside a
	// fixed-capacity bitset sized from a wrong maxOriginalId hint.
	SeenBefore(originalID int64) (bool, error)
}

// noDedup admits every id.
type noDedup struct{}

func (noDedup) SeenBefore(int64) (bool, error) { return false, nil }

// fixedDedup tracks ids in a fixed-capacity atomic bitset.
type fixedDedup struct {
	bits *collections.AtomicBitset
}

func (d *fixedDedup) SeenBefore(originalID int64) (bool, error) {
	return d.bits.GetAndSet(originalID)
}

// growingDedup tracks ids in a growing atomic bitset.
type growingDedup struct {
	bits *collections.GrowingAtomicBitset
}

func (d *growingDedup) SeenBefore(originalID int64) (bool, error) {
	return d.bits.GetAndSet(originalID), nil
}

// NewDedupPredicate builds the dedup predicate for an import.
// maxOriginalID < 0 means the id domain is unknown and the bitset grows on
// demand; otherwise the bitset covers [0, maxOriginalID] up front.
func NewDedupPredicate(enabled bool, maxOriginalID int64) DedupPredicate {
	if !enabled {
		return noDedup{}
	}
	if maxOriginalID >= 0 {
		return &fixedDedup{bits: collections.NewAtomicBitset(maxOriginalID + 1)}
	}
	return &growingDedup{bits: collections.NewGrowingAtomicBitset(0)}
}
