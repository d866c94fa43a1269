// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/dart/internal/config"
	"github.com/ManuGH/dart/internal/delivery"
)

const (
	testPoll    = 10 * time.Millisecond
	testTimeout = 3 * time.Second
)

var testPlaceholder = []byte{0, 0, 0, 1, 0x65, 0x88, 0x84}

func rtspSource(name string) config.Source {
	return config.Source{
		Name:    name,
		Type:    config.SourceRTSP,
		URL:     "rtsp://192.0.2.10/stream",
		Latency: 200,
	}
}

func v4l2Source(name, device string) config.Source {
	enc := config.DefaultEncode()
	return config.Source{
		Name:   name,
		Type:   config.SourceV4L2,
		Device: device,
		Encode: &enc,
	}
}

// scriptedProber returns results in order and false once they run out.
type scriptedProber struct {
	mu      sync.Mutex
	results []bool
	calls   int
	observe func(call int)
}

func (p *scriptedProber) Probe(ctx context.Context, _ config.Source) bool {
	p.mu.Lock()
	n := p.calls
	p.calls++
	observe := p.observe
	ok := n < len(p.results) && p.results[n]
	p.mu.Unlock()

	if observe != nil {
		observe(n + 1)
	}
	return ok
}

func (p *scriptedProber) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func fastOptions(opts Options) Options {
	if opts.ReconnectPoll == 0 {
		opts.ReconnectPoll = testPoll
	}
	if opts.StandbyInterval == 0 {
		opts.StandbyInterval = testPoll
	}
	if opts.Executor.BusPoll == 0 {
		opts.Executor.BusPoll = testPoll
	}
	return opts
}

func newTestSupervisor(t *testing.T, opts Options) *Supervisor {
	t.Helper()
	s, err := NewSupervisor(fastOptions(opts))
	require.NoError(t, err)
	return s
}

// stopAndWait stops s and fails the test if the run loop does not exit.
func stopAndWait(t *testing.T, s *Supervisor) {
	t.Helper()
	s.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	require.NoError(t, s.Wait(ctx), "run loop did not exit after Stop")
}

// attach registers a fresh delivery channel in slot.
func attach(slot *delivery.Slot) *delivery.Channel {
	ch := delivery.NewChannel()
	slot.Set(ch)
	return ch
}

func drain(t *testing.T, ch *delivery.Channel) []delivery.Frame {
	t.Helper()
	var out []delivery.Frame
	for ch.Len() > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		f, err := ch.Recv(ctx)
		cancel()
		require.NoError(t, err)
		out = append(out, f)
	}
	return out
}
