package parallel

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_OrderedResults(t *testing.T) {
	pool := NewWorkerPool[int, int](DefaultPoolConfig().WithWorkers(4))

	inputs := make([]int, 100)
	for i := range inputs {
		inputs[i] = i
	}

	results, err := pool.ExecuteFunc(context.Background(), inputs, func(ctx context.Context, n int) (int, error) {
		return n * 2, nil
	})
	require.NoError(t, err)

	require.Len(t, results, 100)
	for i, r := range results {
		assert.NoError(t, r.Err)
		assert.Equal(t, i*2, r.Result)
		assert.Equal(t, i, r.Input)
	}
}

func TestWorkerPool_EmptyInput(t *testing.T) {
	pool := NewWorkerPool[int, int](DefaultPoolConfig())
	results, err := pool.ExecuteFunc(context.Background(), nil, func(ctx context.Context, n int) (int, error) {
		return n, nil
	})
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestWorkerPool_FirstErrorReturned(t *testing.T) {
	pool := NewWorkerPool[int, int](DefaultPoolConfig().WithWorkers(2))

	results, err := pool.ExecuteFunc(context.Background(), []int{1, 2, 3}, func(ctx context.Context, n int) (int, error) {
		if n == 2 {
			return 0, fmt.Errorf("boom on %d", n)
		}
		return n, nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom on 2")

	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
}

func TestWorkerPool_StopOnErrorCancelsSiblings(t *testing.T) {
	pool := NewWorkerPool[int, struct{}](PoolConfig{MaxWorkers: 2, StopOnError: true})

	var sawCancel atomic.Bool
	_, err := pool.ExecuteFunc(context.Background(), WorkerIDs(2), func(ctx context.Context, w int) (struct{}, error) {
		if w == 0 {
			return struct{}{}, fmt.Errorf("worker %d failed", w)
		}
		select {
		case <-ctx.Done():
			sawCancel.Store(true)
			return struct{}{}, ctx.Err()
		case <-time.After(2 * time.Second):
			return struct{}{}, nil
		}
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker 0 failed", "the real failure wins over cancellation errors")
	assert.True(t, sawCancel.Load(), "sibling should observe the cancelled context")
}

func TestWorkerPool_Metrics(t *testing.T) {
	pool := NewWorkerPool[int, int](DefaultPoolConfig().WithWorkers(2).WithMetrics())

	_, _ = pool.ExecuteFunc(context.Background(), []int{1, 2, 3, 4}, func(ctx context.Context, n int) (int, error) {
		if n == 4 {
			return 0, fmt.Errorf("fail")
		}
		return n, nil
	})

	m := pool.Metrics()
	assert.Equal(t, int64(4), m.TotalTasks)
	assert.Equal(t, int64(3), m.CompletedTasks)
	assert.Equal(t, int64(1), m.FailedTasks)
}

func TestWorkerPool_Timeout(t *testing.T) {
	pool := NewWorkerPool[int, int](PoolConfig{MaxWorkers: 1, Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := pool.ExecuteFunc(context.Background(), []int{1, 2, 3}, func(ctx context.Context, n int) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Second):
			return n, nil
		}
	})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond, "timeout should cut execution short")
}

func TestWorkerIDs(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, WorkerIDs(3))
	assert.Empty(t, WorkerIDs(0))
}
