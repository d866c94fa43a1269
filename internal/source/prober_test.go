// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/dart/internal/media"
	"github.com/ManuGH/dart/internal/media/mediatest"
)

func fastProber(e *mediatest.Engine) *EngineProber {
	return NewProber(e).WithTimings(100*time.Millisecond, 5*time.Millisecond)
}

func TestProber_ReachedPaused(t *testing.T) {
	e := mediatest.NewEngine()
	e.OnPaused(func(p *mediatest.Pipeline) {
		p.Post(media.Event{Kind: media.EventStateChanged, Old: media.StateNull, New: media.StateReady})
		p.PostReached(media.StatePaused)
	})

	assert.True(t, fastProber(e).Probe(context.Background(), rtspSource("door")))

	p := e.Pipelines()[0]
	assert.True(t, p.TornDown())
	assert.True(t, strings.HasSuffix(p.Descriptor, "! fakesink"))
	assert.Contains(t, p.Descriptor, "timeout=2000000")
}

func TestProber_ErrorBeforeReady(t *testing.T) {
	e := mediatest.NewEngine()
	e.OnPaused(func(p *mediatest.Pipeline) {
		p.PostError("Could not open resource for reading")
		p.PostReached(media.StatePaused)
	})

	assert.False(t, fastProber(e).Probe(context.Background(), rtspSource("door")))
	assert.True(t, e.Pipelines()[0].TornDown())
}

func TestProber_Timeout(t *testing.T) {
	e := mediatest.NewEngine()
	prober := fastProber(e)

	begin := time.Now()
	assert.False(t, prober.Probe(context.Background(), rtspSource("door")))
	elapsed := time.Since(begin)

	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	assert.True(t, e.Pipelines()[0].TornDown())
}

func TestProber_ConstructionFailure(t *testing.T) {
	e := mediatest.NewEngine()
	e.FailBuild(nil)
	assert.False(t, fastProber(e).Probe(context.Background(), rtspSource("door")))
}

func TestProber_PauseRejected(t *testing.T) {
	e := mediatest.NewEngine()
	e.OnBuild(func(_ string, p *mediatest.Pipeline) {
		p.FailState(media.StatePaused, assert.AnError)
	})
	assert.False(t, fastProber(e).Probe(context.Background(), rtspSource("door")))
	assert.True(t, e.Pipelines()[0].TornDown())
}

func TestProber_MissingDeviceShortCircuits(t *testing.T) {
	e := mediatest.NewEngine()
	src := v4l2Source("cam", filepath.Join(t.TempDir(), "video0"))

	assert.False(t, fastProber(e).Probe(context.Background(), src))
	assert.Empty(t, e.Descriptors(), "no pipeline may be built for an absent device")
}

func TestProber_PresentDeviceIsProbed(t *testing.T) {
	dev := filepath.Join(t.TempDir(), "video0")
	require.NoError(t, os.WriteFile(dev, nil, 0o600))

	e := mediatest.NewEngine()
	e.OnPaused(func(p *mediatest.Pipeline) { p.PostReached(media.StatePaused) })

	assert.True(t, fastProber(e).Probe(context.Background(), v4l2Source("cam", dev)))
	require.Len(t, e.Descriptors(), 1)
	assert.True(t, strings.HasPrefix(e.Descriptors()[0], "v4l2src device="))
}

func TestProber_Cancelled(t *testing.T) {
	e := mediatest.NewEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := NewProber(e).WithTimings(time.Hour, 5*time.Millisecond)
	assert.False(t, prober.Probe(ctx, rtspSource("door")))
	assert.True(t, e.Pipelines()[0].TornDown())
}
