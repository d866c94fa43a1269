// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package watchdog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClock struct {
	mu           sync.Mutex
	now          time.Time
	latestTicker *mockTicker
}

func (m *mockClock) Now() time.Time { m.mu.Lock(); defer m.mu.Unlock(); return m.now }
func (m *mockClock) NewTicker(d time.Duration) ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latestTicker = &mockTicker{c: make(chan time.Time)}
	return m.latestTicker
}

func (m *mockClock) advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func (m *mockClock) ticker(t *testing.T) *mockTicker {
	t.Helper()
	var tk *mockTicker
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		tk = m.latestTicker
		return tk != nil
	}, time.Second, 5*time.Millisecond)
	return tk
}

type mockTicker struct {
	c chan time.Time
}

func (m *mockTicker) C() <-chan time.Time { return m.c }
func (m *mockTicker) Stop()               {}

func start(t *testing.T, w *Watchdog) (<-chan error, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(ctx)
	}()
	return errCh, cancel
}

func TestWatchdog_StartTimeout(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	w := New(2*time.Second, 5*time.Second)
	w.clock = clock

	errCh, cancel := start(t, w)
	defer cancel()

	tk := clock.ticker(t)
	clock.advance(3 * time.Second)
	tk.c <- clock.Now()

	err := <-errCh
	assert.ErrorIs(t, err, ErrStalled)
	assert.Equal(t, StateTimedOut, w.State())
}

func TestWatchdog_StallTimeout(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	w := New(2*time.Second, 5*time.Second)
	w.clock = clock

	errCh, cancel := start(t, w)
	defer cancel()

	tk := clock.ticker(t)
	w.Frame()
	assert.Equal(t, StateRunning, w.State())

	clock.advance(4 * time.Second)
	tk.c <- clock.Now()
	assert.Equal(t, StateRunning, w.State())

	clock.advance(2 * time.Second)
	tk.c <- clock.Now()

	err := <-errCh
	assert.ErrorIs(t, err, ErrStalled)
	assert.Equal(t, StateStalled, w.State())
	assert.Equal(t, uint64(1), w.Frames())
}

func TestWatchdog_FramesKeepAlive(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	w := New(2*time.Second, 2*time.Second)
	w.clock = clock

	errCh, cancel := start(t, w)

	tk := clock.ticker(t)
	for i := 0; i < 5; i++ {
		clock.advance(time.Second)
		w.Frame()
		tk.c <- clock.Now()
	}
	cancel()

	assert.NoError(t, <-errCh)
	assert.Equal(t, StateRunning, w.State())
}

func TestWatchdog_Disabled(t *testing.T) {
	w := New(0, 0)
	assert.False(t, w.Enabled())
	assert.True(t, New(time.Second, 0).Enabled())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "stalled", StateStalled.String())
	assert.Equal(t, "unknown", State(42).String())
}
