// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package watchdog detects pipelines that stop producing frames while the
// engine still reports them as playing.
package watchdog

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStalled is returned by Run when no frame arrived in time.
var ErrStalled = errors.New("pipeline stalled: no frames received")

type State int

const (
	StateStarting State = iota
	StateRunning
	StateStalled
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStalled:
		return "stalled"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

type clock interface {
	Now() time.Time
	NewTicker(d time.Duration) ticker
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

func (realClock) Now() time.Time                   { return time.Now() }
func (realClock) NewTicker(d time.Duration) ticker { return &realTicker{time.NewTicker(d)} }

type realTicker struct {
	*time.Ticker
}

func (rt *realTicker) C() <-chan time.Time { return rt.Ticker.C }

// Watchdog enforces a first-frame timeout and an inter-frame stall timeout.
type Watchdog struct {
	mu sync.RWMutex

	startTimeout time.Duration
	stallTimeout time.Duration
	interval     time.Duration

	lastFrame time.Time
	frames    uint64
	state     State

	clock clock
}

// New creates a watchdog. A zero timeout disables that check.
func New(startTimeout, stallTimeout time.Duration) *Watchdog {
	interval := time.Second
	for _, d := range []time.Duration{startTimeout, stallTimeout} {
		if d > 0 && d/4 < interval {
			interval = d / 4
		}
	}
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	return &Watchdog{
		startTimeout: startTimeout,
		stallTimeout: stallTimeout,
		interval:     interval,
		clock:        realClock{},
	}
}

// Enabled reports whether any timeout is configured.
func (w *Watchdog) Enabled() bool {
	return w.startTimeout > 0 || w.stallTimeout > 0
}

// Run checks progress until ctx is cancelled or a timeout fires.
func (w *Watchdog) Run(ctx context.Context) error {
	w.mu.Lock()
	w.lastFrame = w.clock.Now()
	if w.frames == 0 {
		w.state = StateStarting
	}
	w.mu.Unlock()

	t := w.clock.NewTicker(w.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C():
			if err := w.check(); err != nil {
				return err
			}
		}
	}
}

// Frame records one delivered frame.
func (w *Watchdog) Frame() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames++
	w.lastFrame = w.clock.Now()
	if w.state == StateStarting {
		w.state = StateRunning
	}
}

func (w *Watchdog) check() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	elapsed := w.clock.Now().Sub(w.lastFrame)
	switch w.state {
	case StateStarting:
		if w.startTimeout > 0 && elapsed > w.startTimeout {
			w.state = StateTimedOut
			return ErrStalled
		}
	case StateRunning:
		if w.stallTimeout > 0 && elapsed > w.stallTimeout {
			w.state = StateStalled
			return ErrStalled
		}
	}
	return nil
}

// State returns the current watchdog state.
func (w *Watchdog) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Frames returns the number of frames recorded.
func (w *Watchdog) Frames() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.frames
}
