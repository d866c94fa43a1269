// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/dart/internal/config"
	"github.com/ManuGH/dart/internal/descriptor"
	"github.com/ManuGH/dart/internal/log"
	"github.com/ManuGH/dart/internal/media"
	"github.com/ManuGH/dart/internal/metrics"
	"github.com/ManuGH/dart/internal/telemetry"
)

// Probe timing defaults.
const (
	DefaultProbeTimeout = 2 * time.Second
	DefaultProbeStep    = 100 * time.Millisecond
)

// Prober answers whether a source can currently produce frames.
type Prober interface {
	Probe(ctx context.Context, src config.Source) bool
}

// EngineProber probes with a minimal connect-and-discard pipeline.
type EngineProber struct {
	engine  media.Engine
	timeout time.Duration
	step    time.Duration
	stat    func(string) (os.FileInfo, error)
}

// NewProber returns a prober using the default timings.
func NewProber(engine media.Engine) *EngineProber {
	return &EngineProber{
		engine:  engine,
		timeout: DefaultProbeTimeout,
		step:    DefaultProbeStep,
		stat:    os.Stat,
	}
}

// WithTimings overrides the overall timeout and the bus poll step.
func (p *EngineProber) WithTimings(timeout, step time.Duration) *EngineProber {
	if timeout > 0 {
		p.timeout = timeout
	}
	if step > 0 {
		p.step = step
	}
	return p
}

// Probe reports true iff the probe pipeline reached Paused before an error
// or the timeout.
func (p *EngineProber) Probe(ctx context.Context, src config.Source) bool {
	start := time.Now()
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "source.probe",
		trace.WithAttributes(telemetry.SourceAttributes(src.Name, string(src.Type))...))
	defer span.End()

	ok, reason := p.probe(ctx, src)

	span.SetAttributes(telemetry.ProbeAttributes(ok, reason)...)
	metrics.RecordProbe(src.Name, ok, time.Since(start).Seconds())

	logger := log.WithSource("prober", src.Name)
	logger.Debug().
		Str(log.FieldEvent, "probe.done").
		Bool("available", ok).
		Str("reason", reason).
		Dur("duration", time.Since(start)).
		Msg("probe finished")
	return ok
}

func (p *EngineProber) probe(ctx context.Context, src config.Source) (bool, string) {
	if src.Type == config.SourceV4L2 {
		if _, err := p.stat(src.Device); err != nil {
			return false, "device_missing"
		}
	}

	desc, err := descriptor.Probe(src)
	if err != nil {
		return false, "construction"
	}
	pipeline, err := p.engine.Build(desc)
	if err != nil {
		return false, "construction"
	}
	defer media.Teardown(pipeline)

	if err := pipeline.SetState(media.StatePaused); err != nil {
		return false, "state_change"
	}

	deadline := time.Now().Add(p.timeout)
	for {
		if ctx.Err() != nil {
			return false, "cancelled"
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, "timeout"
		}
		ev, ok := pipeline.PollBus(min(p.step, remaining))
		if !ok {
			continue
		}
		switch ev.Kind {
		case media.EventError:
			return false, "error"
		case media.EventStateChanged:
			if ev.New == media.StatePaused {
				return true, ""
			}
		}
	}
}
