package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct{ t time.Time }

func (c *manualClock) now() time.Time { return c.t }

func counter(calls *atomic.Int32) func(context.Context) (int, error) {
	return func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}
}

func TestGetCachesUntilExpiry(t *testing.T) {
	clock := &manualClock{t: time.Unix(1000, 0)}
	c := NewTTL[int](time.Second)
	c.now = clock.now

	var calls atomic.Int32
	ctx := context.Background()

	v, err := c.Get(ctx, counter(&calls))
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	clock.t = clock.t.Add(500 * time.Millisecond)
	v, _ = c.Get(ctx, counter(&calls))
	assert.Equal(t, 1, v)

	clock.t = clock.t.Add(time.Second)
	v, _ = c.Get(ctx, counter(&calls))
	assert.Equal(t, 2, v)
}

func TestDisabledAlwaysLoads(t *testing.T) {
	c := NewTTL[int](0)
	var calls atomic.Int32
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		v, err := c.Get(ctx, counter(&calls))
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}

	c.Set(99)
	v, _ := c.Get(ctx, counter(&calls))
	assert.Equal(t, 4, v)
}

func TestSetAndInvalidate(t *testing.T) {
	c := NewTTL[string](time.Minute)
	ctx := context.Background()
	load := func(context.Context) (string, error) { return "loaded", nil }

	c.Set("written")
	v, err := c.Get(ctx, load)
	require.NoError(t, err)
	assert.Equal(t, "written", v)

	c.Invalidate()
	v, err = c.Get(ctx, load)
	require.NoError(t, err)
	assert.Equal(t, "loaded", v)
}

func TestErrorsAreNotCached(t *testing.T) {
	c := NewTTL[int](time.Minute)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := c.Get(ctx, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	v, err := c.Get(ctx, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestConcurrentGetLoadsOnce(t *testing.T) {
	c := NewTTL[int](time.Minute)
	var calls atomic.Int32
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Get(ctx, counter(&calls))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}
