// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/dart/internal/delivery"
	"github.com/ManuGH/dart/internal/log"
	"github.com/ManuGH/dart/internal/metrics"
)

// DefaultStandbyInterval is the placeholder cadence.
const DefaultStandbyInterval = time.Second

// standbyEmitter sends the placeholder as a keyframe once per interval while
// its source is in standby.
type standbyEmitter struct {
	name     string
	slot     *delivery.Slot
	frame    []byte
	interval time.Duration
	active   func() bool
	logger   zerolog.Logger

	quit chan struct{}
	done chan struct{}
}

func startStandby(ctx context.Context, name string, slot *delivery.Slot, frame []byte, interval time.Duration, active func() bool, logger zerolog.Logger) *standbyEmitter {
	e := &standbyEmitter{
		name:     name,
		slot:     slot,
		frame:    frame,
		interval: interval,
		active:   active,
		logger:   logger,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go e.run(ctx)
	return e
}

func (e *standbyEmitter) run(ctx context.Context) {
	defer close(e.done)
	e.logger.Debug().Str(log.FieldEvent, "standby.started").Msg("standby emitter started")
	defer e.logger.Debug().Str(log.FieldEvent, "standby.ended").Msg("standby emitter ended")

	t := time.NewTicker(e.interval)
	defer t.Stop()
	for {
		if !e.active() {
			return
		}
		e.emit()

		select {
		case <-ctx.Done():
			return
		case <-e.quit:
			return
		case <-t.C:
		}
	}
}

func (e *standbyEmitter) emit() {
	err := e.slot.Send(delivery.Frame{Data: e.frame, Key: true})
	switch {
	case err == nil:
		metrics.IncFrameForwarded(e.name, "standby")
	case errors.Is(err, delivery.ErrNoChannel):
	default:
		e.logger.Debug().Err(err).Str(log.FieldEvent, "standby.receiver_gone").Msg("standby receiver disconnected")
	}
}

// stop signals the emitter and waits for it to exit. Safe on nil.
func (e *standbyEmitter) stop() {
	if e == nil {
		return
	}
	close(e.quit)
	<-e.done
}
