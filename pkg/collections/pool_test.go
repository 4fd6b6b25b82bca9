package collections

import (
	"testing"
)

func TestSlicePool_Reuse(t *testing.T) {
	p := NewSlicePool[int64](16)

	s := p.Get()
	*s = append(*s, 1, 2, 3)
	p.Put(s)

	s2 := p.Get()
	if len(*s2) != 0 {
		t.Errorf("pooled slice should be cleared, got len %d", len(*s2))
	}
	if cap(*s2) < 3 && cap(*s2) != 16 {
		t.Errorf("unexpected capacity %d", cap(*s2))
	}
}

func TestSlicePool_DefaultCapacity(t *testing.T) {
	p := NewSlicePool[string](0)
	s := p.Get()
	if cap(*s) != 256 {
		t.Errorf("expected default capacity 256, got %d", cap(*s))
	}
	p.Put(s)
}
