package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Spacing(t *testing.T) {
	l := New(50) // 20ms between calls
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx)) // first call passes immediately

	for i := 0; i < 3; i++ {
		before := time.Now()
		require.NoError(t, l.Wait(ctx))
		elapsed := time.Since(before)
		// Allow a little scheduler jitter below the nominal interval
		assert.GreaterOrEqual(t, elapsed, 15*time.Millisecond)
	}
}

func TestLimiter_SpacingUnderConcurrency(t *testing.T) {
	l := New(100)
	ctx := context.Background()

	const calls = 5
	times := make([]time.Time, calls)
	var mu sync.Mutex
	var wg sync.WaitGroup
	idx := 0
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, l.Wait(ctx))
			mu.Lock()
			times[idx] = time.Now()
			idx++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for i := 1; i < calls; i++ {
		gap := times[i].Sub(times[i-1])
		assert.GreaterOrEqual(t, gap, 5*time.Millisecond, "successive returns must be spaced")
	}
}

func TestLimiter_ContextCancel(t *testing.T) {
	l := New(0.1) // 10s interval
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx))

	cancelCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(cancelCtx))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(map[string]float64{"market": 2, "edgar": 10})

	market := r.Get("market")
	assert.Same(t, market, r.Get("market"), "limiter instances are shared per provider")
	assert.NotSame(t, market, r.Get("edgar"))

	// Unknown providers still get a limiter
	assert.NotNil(t, r.Get("other"))
}
