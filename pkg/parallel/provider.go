package parallel

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	apperrors "github.com/graph-import/pkg/errors"
)

// DefaultAcquireTimeout bounds how long a pooled Acquire waits for a free slot.
const DefaultAcquireTimeout = time.Hour

// ReleaseFunc returns an acquired value to its provider.
// Safe to call multiple times; only the first call has effect.
type ReleaseFunc func()

// Provider hands out per-worker values (typically local builders) and
// guarantees each created value is disposed exactly once on Close.
type Provider[T any] interface {
	// Acquire returns a value for exclusive use by the calling goroutine.
	Acquire(ctx context.Context) (T, ReleaseFunc, error)
	// Close disposes every value the provider ever created.
	Close() error
}

// ============================================================================
// Thread-local style provider
// ============================================================================

// LocalProvider hands each caller an idle value or creates a fresh one.
// Acquire never blocks, which fits a fixed worker pool where the number of
// concurrent holders is bounded by the number of workers.
type LocalProvider[T any] struct {
	mu      sync.Mutex
	factory func() T
	dispose func(T) error
	free    []T
	all     []T
	closed  bool
}

// NewLocalProvider creates a provider that grows on demand.
// dispose is called exactly once per created value when the provider closes.
func NewLocalProvider[T any](factory func() T, dispose func(T) error) *LocalProvider[T] {
	return &LocalProvider[T]{
		factory: factory,
		dispose: dispose,
	}
}

// Acquire implements Provider.
func (p *LocalProvider[T]) Acquire(ctx context.Context) (T, ReleaseFunc, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var v T
	if p.closed {
		return v, nil, apperrors.New(apperrors.CodeConfigError, "provider is closed")
	}

	if n := len(p.free); n > 0 {
		v = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		v = p.factory()
		p.all = append(p.all, v)
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if !p.closed {
				p.free = append(p.free, v)
			}
		})
	}
	return v, release, nil
}

// Close implements Provider.
func (p *LocalProvider[T]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	all := p.all
	p.all = nil
	p.free = nil
	p.mu.Unlock()

	var firstErr error
	for _, v := range all {
		if err := p.dispose(v); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ============================================================================
// Pooled provider
// ============================================================================

// PooledProvider hands out values from a fixed-size pool. Acquire blocks
// until a slot frees up or the acquire timeout elapses. Use it with dynamic
// executors where the number of concurrent holders is not known up front.
type PooledProvider[T any] struct {
	mu      sync.Mutex
	sem     *semaphore.Weighted
	factory func() T
	dispose func(T) error
	timeout time.Duration
	free    []T
	all     []T
	created int
	size    int
	closed  bool
}

// NewPooledProvider creates a provider with size slots.
// Values are created lazily, at most size of them.
func NewPooledProvider[T any](size int, timeout time.Duration, factory func() T, dispose func(T) error) (*PooledProvider[T], error) {
	if size < 1 {
		return nil, apperrors.ErrBadConcurrency
	}
	if timeout <= 0 {
		timeout = DefaultAcquireTimeout
	}
	return &PooledProvider[T]{
		sem:     semaphore.NewWeighted(int64(size)),
		factory: factory,
		dispose: dispose,
		timeout: timeout,
		size:    size,
	}, nil
}

// Acquire implements Provider.
func (p *PooledProvider[T]) Acquire(ctx context.Context) (T, ReleaseFunc, error) {
	var zero T

	acquireCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.sem.Acquire(acquireCtx, 1); err != nil {
		if acquireCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return zero, nil, apperrors.ErrPoolAcquireTimeout
		}
		return zero, nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		return zero, nil, apperrors.New(apperrors.CodeConfigError, "provider is closed")
	}

	var v T
	if n := len(p.free); n > 0 {
		v = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		v = p.factory()
		p.all = append(p.all, v)
		p.created++
	}
	p.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			p.mu.Lock()
			if !p.closed {
				p.free = append(p.free, v)
			}
			p.mu.Unlock()
			p.sem.Release(1)
		})
	}
	return v, release, nil
}

// Close implements Provider.
func (p *PooledProvider[T]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	all := p.all
	p.all = nil
	p.free = nil
	p.mu.Unlock()

	var firstErr error
	for _, v := range all {
		if err := p.dispose(v); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
