// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ManuGH/dart/internal/config"
	"github.com/ManuGH/dart/internal/delivery"
	"github.com/ManuGH/dart/internal/descriptor"
	"github.com/ManuGH/dart/internal/log"
	"github.com/ManuGH/dart/internal/media"
	"github.com/ManuGH/dart/internal/media/watchdog"
	"github.com/ManuGH/dart/internal/metrics"
	"github.com/ManuGH/dart/internal/telemetry"
)

const tracerName = "github.com/ManuGH/dart/internal/source"

// DefaultBusPoll bounds how long one bus wait blocks.
const DefaultBusPoll = 500 * time.Millisecond

// ExecutorOptions tunes a pipeline executor.
type ExecutorOptions struct {
	BusPoll time.Duration
	// StartTimeout and StallTimeout end a cycle that produces no frames.
	// Zero disables the check.
	StartTimeout time.Duration
	StallTimeout time.Duration
}

// Executor runs full capture/transcode cycles for one source.
type Executor struct {
	src    config.Source
	engine media.Engine
	caps   media.Capabilities
	slot   *delivery.Slot
	opts   ExecutorOptions
	logger zerolog.Logger

	staleLog rate.Sometimes
}

// NewExecutor returns an executor that forwards frames into slot.
func NewExecutor(src config.Source, engine media.Engine, caps media.Capabilities, slot *delivery.Slot, opts ExecutorOptions) *Executor {
	if opts.BusPoll <= 0 {
		opts.BusPoll = DefaultBusPoll
	}
	return &Executor{
		src:      src,
		engine:   engine,
		caps:     caps,
		slot:     slot,
		opts:     opts,
		logger:   log.WithSource("executor", src.Name),
		staleLog: rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

// Run builds the pipeline, starts it and blocks until ctx is cancelled, the
// stream ends or the engine reports an error. live gates frame forwarding;
// onPlaying is called once the pipeline accepted the Playing state. The
// pipeline is torn down on every return path.
func (e *Executor) Run(ctx context.Context, live func() bool, onPlaying func()) (err error) {
	codec := descriptor.OutputCodec(e.src, e.caps)
	attrs := append(telemetry.SourceAttributes(e.src.Name, string(e.src.Type)),
		telemetry.PipelineAttributes(string(codec), e.src.Transcode, e.caps.MPP && codec == media.CodecH265)...)
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "source.pipeline", trace.WithAttributes(attrs...))

	var frames atomic.Uint64
	defer func() {
		outcome := "ended"
		switch {
		case err != nil:
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(telemetry.ErrorAttributes(err, errorKind(err))...)
		case ctx.Err() != nil:
			outcome = "stopped"
		}
		span.SetAttributes(telemetry.PipelineResultAttributes(outcome, frames.Load())...)
		span.End()
	}()

	desc, err := descriptor.Build(e.src, e.caps)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConstruction, err)
	}
	e.logger.Debug().
		Str(log.FieldEvent, "pipeline.descriptor").
		Str(log.FieldDescriptor, desc).
		Str(log.FieldCodec, string(codec)).
		Msg("pipeline descriptor built")

	p, err := e.engine.Build(desc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConstruction, err)
	}
	defer media.Teardown(p)

	var wd *watchdog.Watchdog
	if e.opts.StartTimeout > 0 || e.opts.StallTimeout > 0 {
		wd = watchdog.New(e.opts.StartTimeout, e.opts.StallTimeout)
	}

	if err := p.AttachFrameCallback(e.frameHandler(live, wd, &frames)); err != nil {
		return fmt.Errorf("%w: %w", ErrConstruction, err)
	}

	if err := p.SetState(media.StatePlaying); err != nil {
		return fmt.Errorf("%w: start pipeline: %w", ErrRuntime, err)
	}
	onPlaying()
	e.logger.Info().Str(log.FieldEvent, "pipeline.started").Msg("pipeline started")

	stalled := make(chan error, 1)
	if wd != nil {
		wctx, cancel := context.WithCancel(ctx)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := wd.Run(wctx); err != nil {
				stalled <- err
			}
		}()
		defer func() {
			cancel()
			wg.Wait()
		}()
	}

	return e.drain(ctx, p, stalled)
}

// drain polls the bus until a terminal condition.
func (e *Executor) drain(ctx context.Context, p media.Pipeline, stalled <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-stalled:
			return fmt.Errorf("%w: %w", ErrRuntime, err)
		default:
		}

		ev, ok := p.PollBus(e.opts.BusPoll)
		if !ok {
			continue
		}
		switch ev.Kind {
		case media.EventError:
			return fmt.Errorf("%w: %s (%s)", ErrRuntime, ev.Cause, ev.Debug)
		case media.EventEOS:
			e.logger.Debug().Str(log.FieldEvent, "pipeline.eos").Msg("pipeline reached end of stream")
			return nil
		case media.EventWarning:
			e.logger.Warn().
				Str(log.FieldEvent, "pipeline.warning").
				Str("cause", ev.Cause).
				Str("debug", ev.Debug).
				Msg("pipeline warning")
		case media.EventStateChanged:
			if ev.FromPipeline {
				e.logger.Debug().
					Str(log.FieldEvent, "pipeline.state_changed").
					Str(log.FieldOldState, ev.Old.String()).
					Str(log.FieldNewState, ev.New.String()).
					Msg("pipeline state changed")
			}
		}
	}
}

func (e *Executor) frameHandler(live func() bool, wd *watchdog.Watchdog, frames *atomic.Uint64) media.FrameFunc {
	name := e.src.Name
	return func(data []byte, keyframe bool) {
		if wd != nil {
			wd.Frame()
		}
		if !live() {
			metrics.IncFrameDropped(name, "not_live")
			return
		}
		frames.Add(1)

		err := e.slot.Send(delivery.Frame{Data: data, Key: keyframe})
		switch {
		case err == nil:
			metrics.IncFrameForwarded(name, "pipeline")
		case errors.Is(err, delivery.ErrNoChannel):
			metrics.IncFrameDropped(name, "no_client")
		default:
			metrics.IncFrameDropped(name, "stale_channel")
			e.staleLog.Do(func() {
				e.logger.Debug().
					Err(err).
					Str(log.FieldEvent, "frame.receiver_gone").
					Msg("frame receiver disconnected")
			})
		}
	}
}
