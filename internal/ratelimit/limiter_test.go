package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Allow(t *testing.T) {
	l := New(1, 2)

	assert.True(t, l.Allow("client-a"))
	assert.True(t, l.Allow("client-a"))
	assert.False(t, l.Allow("client-a"), "third event should exceed the burst")

	// separate keys get separate buckets
	assert.True(t, l.Allow("client-b"))
}

func TestLimiter_Unlimited(t *testing.T) {
	l := Unlimited()
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow(APIExchangeRates))
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	l := New(0.001, 1)
	require.True(t, l.Allow(APIExchangeRates))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx, APIExchangeRates)
	assert.Error(t, err)
}

func TestNew_MinimumBurst(t *testing.T) {
	l := New(5, 0)
	assert.True(t, l.Allow("k"))
	assert.Equal(t, 5.0, l.Limit())
}

func TestLimiter_EvictIdle(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(1, 1)
	l.now = func() time.Time { return now }

	l.Allow("ip:10.0.0.1")
	now = now.Add(5 * time.Minute)
	l.Allow("ip:10.0.0.2")
	require.Equal(t, 2, l.Len())

	now = now.Add(6 * time.Minute)
	assert.Equal(t, 1, l.Evict(10*time.Minute))
	assert.Equal(t, 1, l.Len())

	// the evicted key comes back with a fresh bucket
	assert.True(t, l.Allow("ip:10.0.0.1"))
	assert.Equal(t, 2, l.Len())
}

func TestLimiter_AccessKeepsBucket(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(1, 1)
	l.now = func() time.Time { return now }

	l.Allow("ip:10.0.0.1")
	now = now.Add(9 * time.Minute)
	l.Allow("ip:10.0.0.1")
	now = now.Add(9 * time.Minute)

	assert.Zero(t, l.Evict(10*time.Minute))
	assert.Equal(t, 1, l.Len())
}

func TestLimiter_RunSweepsUntilCancelled(t *testing.T) {
	l := New(1, 1)
	for i := 0; i < 100; i++ {
		l.Allow(Key(fmt.Sprintf("ip:10.0.0.%d", i)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, 5*time.Millisecond, time.Nanosecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
