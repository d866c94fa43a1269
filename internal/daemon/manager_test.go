// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRTSP struct {
	mu       sync.Mutex
	startErr error
	started  bool
	closed   bool
	done     chan struct{}
	once     sync.Once
}

func newFakeRTSP() *fakeRTSP { return &fakeRTSP{done: make(chan struct{})} }

func (f *fakeRTSP) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}

func (f *fakeRTSP) Wait() error {
	<-f.done
	return errors.New("terminated")
}

func (f *fakeRTSP) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.once.Do(func() { close(f.done) })
}

func (f *fakeRTSP) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeSources struct {
	mu      sync.Mutex
	n       int
	err     error
	started bool
	stopped bool
	order   *[]string
}

func (f *fakeSources) StartAll(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return f.n, f.err
}

func (f *fakeSources) StopAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	if f.order != nil {
		*f.order = append(*f.order, "sources")
	}
}

func (f *fakeSources) Wait(context.Context) error { return nil }

func (f *fakeSources) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func testLogger() zerolog.Logger {
	return zerolog.Nop().Level(zerolog.InfoLevel)
}

func testDeps(rtsp RTSPServer, sources SourceSet) Deps {
	return Deps{
		Logger: testLogger(),
		APIHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
		RTSP:    rtsp,
		Sources: sources,
	}
}

func TestDeps_Validate(t *testing.T) {
	cfg := DefaultServerConfig("127.0.0.1:0")
	tests := []struct {
		name string
		deps Deps
		want error
	}{
		{name: "missing logger", deps: Deps{Logger: zerolog.Nop()}, want: ErrMissingLogger},
		{name: "missing handler", deps: Deps{Logger: testLogger()}, want: ErrMissingAPIHandler},
		{
			name: "missing rtsp",
			deps: Deps{Logger: testLogger(), APIHandler: http.NotFoundHandler()},
			want: ErrMissingRTSPServer,
		},
		{
			name: "missing sources",
			deps: Deps{Logger: testLogger(), APIHandler: http.NotFoundHandler(), RTSP: newFakeRTSP()},
			want: ErrMissingSources,
		},
		{name: "complete", deps: testDeps(newFakeRTSP(), &fakeSources{n: 1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.deps.Validate(cfg)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDeps_ValidateAPIDisabled(t *testing.T) {
	deps := Deps{Logger: testLogger(), RTSP: newFakeRTSP(), Sources: &fakeSources{}}
	assert.NoError(t, deps.Validate(DefaultServerConfig("")))
}

func waitForAPI(t *testing.T, m Manager) string {
	t.Helper()
	var addr string
	require.Eventually(t, func() bool {
		addr = m.(*manager).APIAddr()
		return addr != ""
	}, 2*time.Second, 10*time.Millisecond)
	return addr
}

func TestManager_StartStop(t *testing.T) {
	rtsp := newFakeRTSP()
	sources := &fakeSources{n: 2}
	m, err := NewManager(DefaultServerConfig("127.0.0.1:0"), testDeps(rtsp, sources))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Start(ctx) }()

	addr := waitForAPI(t, m)
	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop")
	}
	assert.True(t, sources.isStopped())
	assert.True(t, rtsp.isClosed())
}

func TestManager_StartTwice(t *testing.T) {
	sources := &fakeSources{n: 1}
	m, err := NewManager(DefaultServerConfig(""), testDeps(newFakeRTSP(), sources))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Start(ctx) }()

	require.Eventually(t, func() bool {
		sources.mu.Lock()
		defer sources.mu.Unlock()
		return sources.started
	}, 2*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, m.Start(ctx), ErrManagerAlreadyStarted)

	cancel()
	assert.NoError(t, <-errCh)
}

func TestManager_NoSourcesStarted(t *testing.T) {
	rtsp := newFakeRTSP()
	sources := &fakeSources{n: 0, err: errors.New("cam1: boom")}
	m, err := NewManager(DefaultServerConfig("127.0.0.1:0"), testDeps(rtsp, sources))
	require.NoError(t, err)

	err = m.Start(context.Background())
	require.ErrorIs(t, err, ErrNoSourcesStarted)
	assert.ErrorContains(t, err, "boom")
	assert.True(t, rtsp.isClosed())
	assert.Empty(t, m.(*manager).APIAddr())
}

func TestManager_RTSPStartError(t *testing.T) {
	rtsp := newFakeRTSP()
	rtsp.startErr = errors.New("address in use")
	sources := &fakeSources{n: 1}
	m, err := NewManager(DefaultServerConfig(""), testDeps(rtsp, sources))
	require.NoError(t, err)

	err = m.Start(context.Background())
	assert.ErrorContains(t, err, "address in use")
	assert.False(t, sources.started)
}

func TestManager_APIBindError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	rtsp := newFakeRTSP()
	sources := &fakeSources{n: 1}
	m, err := NewManager(DefaultServerConfig(ln.Addr().String()), testDeps(rtsp, sources))
	require.NoError(t, err)

	err = m.Start(context.Background())
	assert.ErrorContains(t, err, "API server")
	assert.True(t, sources.isStopped())
	assert.True(t, rtsp.isClosed())
}

func TestManager_RTSPFailureStopsDaemon(t *testing.T) {
	rtsp := newFakeRTSP()
	m, err := NewManager(DefaultServerConfig(""), testDeps(rtsp, &fakeSources{n: 1}))
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- m.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		rtsp.mu.Lock()
		defer rtsp.mu.Unlock()
		return rtsp.started
	}, 2*time.Second, 10*time.Millisecond)
	rtsp.once.Do(func() { close(rtsp.done) })

	select {
	case err := <-errCh:
		assert.ErrorContains(t, err, "RTSP server")
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not react to RTSP failure")
	}
}

func TestManager_ShutdownHooksLIFO(t *testing.T) {
	var order []string
	sources := &fakeSources{n: 1, order: &order}
	m, err := NewManager(DefaultServerConfig(""), testDeps(newFakeRTSP(), sources))
	require.NoError(t, err)

	for _, name := range []string{"first", "second", "third"} {
		m.RegisterShutdownHook(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, m.Start(ctx))
	assert.Equal(t, []string{"sources", "third", "second", "first"}, order)
}

func TestManager_ShutdownHookError(t *testing.T) {
	m, err := NewManager(DefaultServerConfig(""), testDeps(newFakeRTSP(), &fakeSources{n: 1}))
	require.NoError(t, err)
	m.RegisterShutdownHook("broken", func(context.Context) error { return errors.New("flush failed") })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = m.Start(ctx)
	assert.ErrorContains(t, err, "hook broken")
}

func TestManager_ShutdownBeforeStart(t *testing.T) {
	m, err := NewManager(DefaultServerConfig(""), testDeps(newFakeRTSP(), &fakeSources{n: 1}))
	require.NoError(t, err)
	assert.ErrorIs(t, m.Shutdown(context.Background()), ErrManagerNotStarted)
}
