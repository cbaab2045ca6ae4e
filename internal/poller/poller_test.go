package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func countingRefresh(n *atomic.Int32) RefreshFunc {
	return func(ctx context.Context) error {
		n.Add(1)
		return nil
	}
}

func TestStartRefreshesImmediately(t *testing.T) {
	var calls atomic.Int32
	p := New(countingRefresh(&calls), time.Hour, time.Hour, zap.NewNop())

	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRefreshRepeatsOnInterval(t *testing.T) {
	var calls atomic.Int32
	p := New(countingRefresh(&calls), 10*time.Millisecond, time.Hour, zap.NewNop())

	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return calls.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
}

func TestFailedRefreshKeepsPolling(t *testing.T) {
	var calls atomic.Int32
	refresh := func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("backend down")
	}
	p := New(refresh, 10*time.Millisecond, time.Hour, zap.NewNop())

	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestIdleSkipsTicksUntilTouched(t *testing.T) {
	var calls atomic.Int32
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	p := New(countingRefresh(&calls), 10*time.Millisecond, time.Minute, zap.NewNop())
	p.now = clock.Now

	p.Start(context.Background())
	defer p.Stop()
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, 5*time.Millisecond)

	clock.Advance(2 * time.Minute)
	assert.True(t, p.Idle())
	time.Sleep(40 * time.Millisecond)
	before := calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, before, calls.Load())

	p.Touch()
	assert.False(t, p.Idle())
	require.Eventually(t, func() bool { return calls.Load() > before }, time.Second, 5*time.Millisecond)
}

func TestStopCancelsRunningRefresh(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	refresh := func(ctx context.Context) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return ctx.Err()
	}
	p := New(refresh, time.Hour, time.Hour, zap.NewNop())

	p.Start(context.Background())
	<-started

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestStopIsIdempotentAndFinal(t *testing.T) {
	var calls atomic.Int32
	p := New(countingRefresh(&calls), 5*time.Millisecond, time.Hour, zap.NewNop())

	p.Stop()
	p.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	p.Stop()
	p.Stop()

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}

func TestTouchBeforeStartDoesNotBlock(t *testing.T) {
	p := New(func(context.Context) error { return nil }, time.Hour, time.Hour, zap.NewNop())
	p.Touch()
	p.Touch()
	assert.False(t, p.Idle())
}
