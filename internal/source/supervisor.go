// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package source supervises video sources: it runs the capture pipeline,
// falls back to placeholder frames on failure, probes for recovery and
// reconnects.
package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/dart/internal/config"
	"github.com/ManuGH/dart/internal/delivery"
	"github.com/ManuGH/dart/internal/descriptor"
	"github.com/ManuGH/dart/internal/fsm"
	"github.com/ManuGH/dart/internal/log"
	"github.com/ManuGH/dart/internal/media"
	"github.com/ManuGH/dart/internal/metrics"
)

// DefaultReconnectPoll is the fixed wait between connectivity probes.
const DefaultReconnectPoll = 2 * time.Second

// Options configures a Supervisor.
type Options struct {
	Source config.Source
	Engine media.Engine
	Caps   media.Capabilities
	Slot   *delivery.Slot

	// Placeholder is the encoded standby frame; nil disables standby.
	Placeholder []byte
	// Prober defaults to an EngineProber on Engine.
	Prober Prober
	// Wake triggers an early probe, e.g. on device hotplug.
	Wake <-chan struct{}

	ReconnectPoll   time.Duration
	StandbyInterval time.Duration
	Executor        ExecutorOptions
}

// Status is a point-in-time view of a supervisor.
type Status struct {
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Mount      string    `json:"mount"`
	Codec      string    `json:"codec"`
	State      State     `json:"state"`
	Since      time.Time `json:"since"`
	Cycles     uint64    `json:"cycles"`
	Reconnects uint64    `json:"reconnects"`
	Standby    bool      `json:"standby_capable"`
	LastError  string    `json:"last_error,omitempty"`
}

// Supervisor owns the lifecycle of one source.
type Supervisor struct {
	opts   Options
	src    config.Source
	codec  media.Codec
	state  *fsm.Machine[State, Event]
	exec   *Executor
	prober Prober
	logger zerolog.Logger

	running atomic.Bool
	done    chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc

	// statsMu guards the counters below. It is taken by the state observer,
	// so it must never be held while firing an event.
	statsMu    sync.Mutex
	since      time.Time
	cycles     uint64
	reconnects uint64
	lastErr    string
}

// NewSupervisor validates opts and returns a stopped supervisor.
func NewSupervisor(opts Options) (*Supervisor, error) {
	if opts.Engine == nil {
		return nil, errors.New("source: engine is required")
	}
	if opts.Slot == nil {
		return nil, errors.New("source: delivery slot is required")
	}
	if err := config.ValidateSource(opts.Source); err != nil {
		return nil, fmt.Errorf("source %q: %w", opts.Source.Name, err)
	}
	if opts.ReconnectPoll <= 0 {
		opts.ReconnectPoll = DefaultReconnectPoll
	}
	if opts.StandbyInterval <= 0 {
		opts.StandbyInterval = DefaultStandbyInterval
	}
	if opts.Prober == nil {
		opts.Prober = NewProber(opts.Engine)
	}

	s := &Supervisor{
		opts:   opts,
		src:    opts.Source,
		codec:  descriptor.OutputCodec(opts.Source, opts.Caps),
		state:  newStateMachine(),
		exec:   NewExecutor(opts.Source, opts.Engine, opts.Caps, opts.Slot, opts.Executor),
		prober: opts.Prober,
		logger: log.WithSource("supervisor", opts.Source.Name),
		done:   make(chan struct{}),
		since:  time.Now(),
	}
	s.state.Observe(s.onTransition)
	metrics.SetSourceState(s.src.Name, string(StateStopped))
	return s, nil
}

// Name returns the source name.
func (s *Supervisor) Name() string { return s.src.Name }

// Source returns the supervised source definition.
func (s *Supervisor) Source() config.Source { return s.src }

// Codec returns the codec the source publishes.
func (s *Supervisor) Codec() media.Codec { return s.codec }

// State returns the current state.
func (s *Supervisor) State() State { return s.state.State() }

// Done is closed when the run loop has exited.
func (s *Supervisor) Done() <-chan struct{} { return s.done }

// Start enters Live and spawns the run loop.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	if _, err := s.state.Fire(EventStart); err != nil {
		s.mu.Unlock()
		return err
	}
	s.running.Store(true)
	s.mu.Unlock()

	go s.run(ctx)

	s.logger.Info().
		Str(log.FieldEvent, "source.started").
		Str(log.FieldMount, s.src.MountPath()).
		Str(log.FieldCodec, string(s.codec)).
		Msg("started source")
	return nil
}

// Stop clears the running flag and enters Stopped. It does not block; use
// Wait to join the run loop.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	cancel := s.cancel
	s.running.Store(false)
	_, _ = s.state.Fire(EventStop)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if !started {
		close(s.done)
	}
	s.logger.Info().Str(log.FieldEvent, "source.stopped").Msg("stopped source")
}

// Wait blocks until the run loop has exited or ctx is done.
func (s *Supervisor) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current status.
func (s *Supervisor) Snapshot() Status {
	st := s.state.State()
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return Status{
		Name:       s.src.Name,
		Type:       string(s.src.Type),
		Mount:      s.src.MountPath(),
		Codec:      string(s.codec),
		State:      st,
		Since:      s.since,
		Cycles:     s.cycles,
		Reconnects: s.reconnects,
		Standby:    s.standbyCapable(),
		LastError:  s.lastErr,
	}
}

func (s *Supervisor) standbyCapable() bool {
	return s.src.Type == config.SourceRTSP && len(s.opts.Placeholder) > 0
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)

	for first := true; s.running.Load(); first = false {
		if !first {
			s.statsMu.Lock()
			s.reconnects++
			s.statsMu.Unlock()
			metrics.IncReconnect(s.src.Name)
		}

		err := s.exec.Run(ctx, s.isLive, s.markLive)
		s.recordCycle(err)
		if !s.running.Load() || ctx.Err() != nil {
			break
		}

		if err != nil {
			metrics.IncCycleError(s.src.Name, errorKind(err))
			s.logger.Error().Err(err).
				Str(log.FieldEvent, "source.cycle_failed").
				Str("kind", errorKind(err)).
				Msg("source pipeline failed")
		} else {
			s.logger.Info().Str(log.FieldEvent, "source.ended").Msg("source ended, will reconnect")
		}

		var emitter *standbyEmitter
		if s.standbyCapable() {
			if s.fire(EventStandby) {
				s.logger.Info().Str(log.FieldEvent, "source.standby").Msg("source switched to standby")
				emitter = startStandby(ctx, s.src.Name, s.opts.Slot, s.opts.Placeholder,
					s.opts.StandbyInterval, s.inStandby, s.logger)
			}
		} else if s.fire(EventRetry) {
			if s.src.Type == config.SourceV4L2 {
				s.logger.Warn().Str(log.FieldEvent, "source.retrying").
					Str(log.FieldDevice, s.src.Device).
					Msg("capture device not available, retrying")
			} else {
				s.logger.Warn().Str(log.FieldEvent, "source.retrying").Msg("source unavailable, retrying")
			}
		}

		available := s.waitForSource(ctx)
		emitter.stop()
		if !available {
			break
		}
		s.logger.Info().Str(log.FieldEvent, "source.reconnecting").Msg("source appears to be available, reconnecting")
	}

	s.running.Store(false)
	if !s.state.Is(StateStopped) {
		_, _ = s.state.Fire(EventStop)
	}
	s.logger.Debug().Str(log.FieldEvent, "source.loop_ended").Msg("run loop ended")
}

// waitForSource polls the prober until it reports the source available. It
// returns false when the supervisor is stopping.
func (s *Supervisor) waitForSource(ctx context.Context) bool {
	timer := time.NewTimer(s.opts.ReconnectPoll)
	defer timer.Stop()

	for attempt := 1; s.running.Load(); attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
		case <-s.opts.Wake:
			s.logger.Debug().Str(log.FieldEvent, "source.wake").Msg("device event, probing early")
		}

		s.logger.Debug().
			Str(log.FieldEvent, "probe.attempt").
			Int(log.FieldAttempt, attempt).
			Msg("checking source connectivity")
		if s.prober.Probe(ctx, s.src) {
			return s.running.Load()
		}
		timer.Reset(s.opts.ReconnectPoll)
	}
	return false
}

func (s *Supervisor) isLive() bool    { return s.state.Is(StateLive) }
func (s *Supervisor) inStandby() bool { return s.running.Load() && s.state.Is(StateStandby) }

func (s *Supervisor) markLive() {
	s.fire(EventPlaying)
}

// fire applies event and reports whether it took effect. Transitions out of
// Stopped fail silently because Stop wins every race.
func (s *Supervisor) fire(event Event) bool {
	if _, err := s.state.Fire(event); err != nil {
		if !s.state.Is(StateStopped) {
			s.logger.Warn().Err(err).Str(log.FieldEvent, "source.invalid_transition").Msg("state transition rejected")
		}
		return false
	}
	return true
}

// onTransition may run out of order for racing transitions; the gauge always
// publishes the machine's current state.
func (s *Supervisor) onTransition(from, to State, event Event) {
	s.statsMu.Lock()
	if from != to {
		s.since = time.Now()
	}
	metrics.SetSourceState(s.src.Name, string(s.state.State()))
	s.statsMu.Unlock()

	if from != to {
		s.logger.Debug().
			Str(log.FieldEvent, "source.state_changed").
			Str(log.FieldOldState, string(from)).
			Str(log.FieldNewState, string(to)).
			Str("trigger", string(event)).
			Msg("source state changed")
	}
}

func (s *Supervisor) recordCycle(err error) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.cycles++
	if err != nil {
		s.lastErr = err.Error()
	}
}
