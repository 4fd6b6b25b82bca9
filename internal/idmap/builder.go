package idmap

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/graph-import/internal/schema"
	apperrors "github.com/graph-import/pkg/errors"
)

// BuilderType selects the backing layout of the original-to-internal mapping.
type BuilderType string

const (
	// BuilderTypeDense backs the mapping with a flat array.
	BuilderTypeDense BuilderType = "dense"
	// BuilderTypePaged backs the mapping with a two-level page table.
	BuilderTypePaged BuilderType = "paged"
	// BuilderTypeHighLimit backs the mapping with a hash map and does not
	// support bitset deduplication.
	BuilderTypeHighLimit BuilderType = "highlimit"
)

// ParseBuilderType parses a configuration token.
func ParseBuilderType(token string) (BuilderType, error) {
	switch token {
	case "", "dense":
		return BuilderTypeDense, nil
	case "paged":
		return BuilderTypePaged, nil
	case "highlimit":
		return BuilderTypeHighLimit, nil
	default:
		return "", apperrors.Newf(apperrors.CodeConfigError, "unsupported id map type %q", token)
	}
}

// SupportsDedup reports whether bitset dedup can index this layout's domain.
func (t BuilderType) SupportsDedup() bool {
	return t != BuilderTypeHighLimit
}

// Builder accumulates the id mapping during the insert phase.
// AllocateRange reserves contiguous internal id ranges for whole batches;
// the per-id writes that follow target disjoint ranges. Every method,
// including Set and AddToLabel, runs under the builder's lock.
type Builder struct {
	mu         sync.Mutex
	toOriginal []int64
	mapping    originalMapping
	labels     map[schema.NodeLabel]*roaring64.Bitmap
	highestID  int64
}

// NewBuilder creates a builder with the given layout.
func NewBuilder(builderType BuilderType) (*Builder, error) {
	var mapping originalMapping
	switch builderType {
	case BuilderTypeDense:
		mapping = newDenseMapping()
	case BuilderTypePaged:
		mapping = newPagedMapping()
	case BuilderTypeHighLimit:
		mapping = newHashMapping()
	default:
		return nil, apperrors.Newf(apperrors.CodeConfigError, "unsupported id map type %q", builderType)
	}
	return &Builder{
		mapping: mapping,
		labels:  make(map[schema.NodeLabel]*roaring64.Bitmap),
		highestID: NotFound,
	}, nil
}

// AllocateRange reserves n contiguous internal ids and returns the start.
func (b *Builder) AllocateRange(n int) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	start := int64(len(b.toOriginal))
	for i := 0; i < n; i++ {
		b.toOriginal = append(b.toOriginal, NotFound)
	}
	return start
}

// Set records the bidirectional mapping for one node.
// The internal id must come from a prior AllocateRange.
func (b *Builder) Set(internalID, originalID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toOriginal[internalID] = originalID
	b.mapping.set(originalID, internalID)
	if originalID > b.highestID {
		b.highestID = originalID
	}
}

// AddToLabel adds the node to the label's membership bitmap.
func (b *Builder) AddToLabel(internalID int64, label schema.NodeLabel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bm, ok := b.labels[label]
	if !ok {
		bm = roaring64.New()
		b.labels[label] = bm
	}
	bm.Add(uint64(internalID))
}

// NodeCount returns the number of allocated internal ids so far.
func (b *Builder) NodeCount() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.toOriginal))
}

// Build finalizes the builder into an immutable IdMap.
func (b *Builder) Build() *IdMap {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &IdMap{
		toOriginal: b.toOriginal,
		mapping:    b.mapping,
		labels:     b.labels,
		highestID:  b.highestID,
	}
}
