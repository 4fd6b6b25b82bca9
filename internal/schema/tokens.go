package schema

import (
	"sync"

	apperrors "github.com/graph-import/pkg/errors"
)

// AnyToken is the reserved token for the AllNodes / AllRelationships sentinels.
const AnyToken = -1

// TokenTable maps element names to dense integer tokens and back.
//
// In fixed mode the table is sealed at construction and unregistered names
// are errors. In lazy mode names are assigned the next sequential token on
// first sight; tokens are dense and never reused. Lookups take the shared
// lock; only lazy creation takes the exclusive one.
type TokenTable[T ~string] struct {
	mu          sync.RWMutex
	fixed       bool
	missingCode string
	tokens      map[T]int
	reverse     map[int][]T
	next        int
}

// NewFixedTokenTable builds a sealed table from the given names.
// The any sentinel receives AnyToken and resolves to every registered name.
func NewFixedTokenTable[T ~string](names []T, any T, missingCode string) *TokenTable[T] {
	t := &TokenTable[T]{
		fixed:       true,
		missingCode: missingCode,
		tokens:      make(map[T]int, len(names)+1),
		reverse:     make(map[int][]T, len(names)+1),
	}
	t.tokens[any] = AnyToken
	for _, name := range names {
		if _, ok := t.tokens[name]; ok {
			continue
		}
		t.tokens[name] = t.next
		t.reverse[t.next] = []T{name}
		t.next++
	}
	t.reverse[AnyToken] = append([]T(nil), names...)
	return t
}

// NewLazyTokenTable builds a table that assigns tokens on demand.
func NewLazyTokenTable[T ~string](any T) *TokenTable[T] {
	t := &TokenTable[T]{
		tokens:  make(map[T]int),
		reverse: make(map[int][]T),
	}
	t.tokens[any] = AnyToken
	return t
}

// TokenOf returns the token for name.
// Fixed mode fails for unregistered names; lazy mode allocates.
func (t *TokenTable[T]) TokenOf(name T) (int, error) {
	t.mu.RLock()
	token, ok := t.tokens[name]
	t.mu.RUnlock()
	if ok {
		return token, nil
	}
	if t.fixed {
		return 0, apperrors.Newf(t.missingCode, "%q is not part of the schema", string(name))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if token, ok := t.tokens[name]; ok {
		return token, nil
	}
	token = t.next
	t.next++
	t.tokens[name] = token
	t.reverse[token] = []T{name}
	// The any sentinel resolves to every name seen so far.
	t.reverse[AnyToken] = append(t.reverse[AnyToken], name)
	return token, nil
}

// NamesOf returns the names a token resolves to.
// AnyToken resolves to every registered name.
func (t *TokenTable[T]) NamesOf(token int) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := t.reverse[token]
	out := make([]T, len(names))
	copy(out, names)
	return out
}

// Count returns the number of distinct non-sentinel names.
func (t *TokenTable[T]) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.next
}

// Names returns every registered non-sentinel name, ordered by token.
func (t *TokenTable[T]) Names() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]T, 0, t.next)
	for token := 0; token < t.next; token++ {
		out = append(out, t.reverse[token]...)
	}
	return out
}

// NewFixedLabelTable builds a fixed table for node labels.
func NewFixedLabelTable(labels []NodeLabel) *TokenTable[NodeLabel] {
	return NewFixedTokenTable(labels, AllNodes, apperrors.CodeUnknownLabel)
}

// NewLazyLabelTable builds a lazy table for node labels.
func NewLazyLabelTable() *TokenTable[NodeLabel] {
	return NewLazyTokenTable(AllNodes)
}

// NewFixedTypeTable builds a fixed table for relationship types.
func NewFixedTypeTable(types []RelationshipType) *TokenTable[RelationshipType] {
	return NewFixedTokenTable(types, AllRelationships, apperrors.CodeUnknownLabel)
}

// NewLazyTypeTable builds a lazy table for relationship types.
func NewLazyTypeTable() *TokenTable[RelationshipType] {
	return NewLazyTokenTable(AllRelationships)
}
