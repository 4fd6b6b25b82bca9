package parallel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/graph-import/pkg/errors"
)

type fakeBuilder struct {
	id       int
	disposed int
}

func TestLocalProvider_ReusesReleased(t *testing.T) {
	var created int
	p := NewLocalProvider(
		func() *fakeBuilder { created++; return &fakeBuilder{id: created} },
		func(b *fakeBuilder) error { b.disposed++; return nil },
	)

	b1, release1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	release1()

	b2, release2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer release2()

	assert.Same(t, b1, b2, "released builder should be reused")
	assert.Equal(t, 1, created)
}

func TestLocalProvider_GrowsWhenBusy(t *testing.T) {
	var created int
	p := NewLocalProvider(
		func() *fakeBuilder { created++; return &fakeBuilder{id: created} },
		func(b *fakeBuilder) error { return nil },
	)

	_, r1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	_, r2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	r1()
	r2()

	assert.Equal(t, 2, created)
}

func TestLocalProvider_CloseDisposesOnce(t *testing.T) {
	builders := make([]*fakeBuilder, 0)
	var mu sync.Mutex
	p := NewLocalProvider(
		func() *fakeBuilder {
			b := &fakeBuilder{}
			mu.Lock()
			builders = append(builders, b)
			mu.Unlock()
			return b
		},
		func(b *fakeBuilder) error { b.disposed++; return nil },
	)

	_, r1, _ := p.Acquire(context.Background())
	_, _, _ = p.Acquire(context.Background()) // outstanding at close time
	r1()

	require.NoError(t, p.Close())
	require.NoError(t, p.Close()) // idempotent

	for _, b := range builders {
		assert.Equal(t, 1, b.disposed)
	}

	_, _, err := p.Acquire(context.Background())
	assert.Error(t, err, "acquire after close must fail")
}

func TestLocalProvider_DoubleReleaseHarmless(t *testing.T) {
	p := NewLocalProvider(
		func() *fakeBuilder { return &fakeBuilder{} },
		func(b *fakeBuilder) error { return nil },
	)
	b1, release, err := p.Acquire(context.Background())
	require.NoError(t, err)
	release()
	release()

	// Only one free slot despite the double release.
	b2, r2, _ := p.Acquire(context.Background())
	b3, r3, _ := p.Acquire(context.Background())
	assert.Same(t, b1, b2)
	assert.NotSame(t, b1, b3)
	r2()
	r3()
}

func TestPooledProvider_CapsAtSize(t *testing.T) {
	p, err := NewPooledProvider(2, time.Hour,
		func() *fakeBuilder { return &fakeBuilder{} },
		func(b *fakeBuilder) error { return nil },
	)
	require.NoError(t, err)

	_, r1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	_, r2, err := p.Acquire(context.Background())
	require.NoError(t, err)

	// Third acquire must block until a slot frees.
	acquired := make(chan struct{})
	go func() {
		_, r3, err := p.Acquire(context.Background())
		if err == nil {
			r3()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("third acquire should block while pool is exhausted")
	case <-time.After(50 * time.Millisecond):
	}

	r1()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("third acquire should proceed after release")
	}
	r2()
	require.NoError(t, p.Close())
}

func TestPooledProvider_AcquireTimeout(t *testing.T) {
	p, err := NewPooledProvider(1, 30*time.Millisecond,
		func() *fakeBuilder { return &fakeBuilder{} },
		func(b *fakeBuilder) error { return nil },
	)
	require.NoError(t, err)

	_, release, err := p.Acquire(context.Background())
	require.NoError(t, err)

	_, _, err = p.Acquire(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPoolAcquireTimeout))

	release()
	require.NoError(t, p.Close())
}

func TestPooledProvider_BadSize(t *testing.T) {
	_, err := NewPooledProvider(0, time.Hour,
		func() *fakeBuilder { return &fakeBuilder{} },
		func(b *fakeBuilder) error { return nil },
	)
	assert.True(t, errors.Is(err, apperrors.ErrBadConcurrency))
}

func TestPooledProvider_ConcurrentUse(t *testing.T) {
	p, err := NewPooledProvider(4, time.Hour,
		func() *fakeBuilder { return &fakeBuilder{} },
		func(b *fakeBuilder) error { return nil },
	)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, release, err := p.Acquire(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			_ = b
			time.Sleep(time.Millisecond)
			release()
		}()
	}
	wg.Wait()
	require.NoError(t, p.Close())
}
