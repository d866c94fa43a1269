// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media is the narrow boundary to the media pipeline engine.
// Supervisors, probers and the placeholder encoder depend only on the
// interfaces here; the GStreamer binding lives behind them.
package media

import (
	"errors"
	"fmt"
	"time"
)

// ErrEngineUnavailable is returned when the binary was built without the engine.
var ErrEngineUnavailable = errors.New("media engine unavailable (built without cgo)")

// SinkName is the element name every descriptor gives its frame sink.
const SinkName = "sink"

// State is a pipeline state.
type State int

const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateReady:
		return "ready"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventKind classifies bus messages the core reacts to.
type EventKind int

const (
	EventOther EventKind = iota
	EventError
	EventEOS
	EventWarning
	EventStateChanged
)

func (k EventKind) String() string {
	switch k {
	case EventError:
		return "error"
	case EventEOS:
		return "eos"
	case EventWarning:
		return "warning"
	case EventStateChanged:
		return "state-changed"
	default:
		return "other"
	}
}

// Event is one bus message.
type Event struct {
	Kind  EventKind
	Cause string
	Debug string
	// Old and New are set for EventStateChanged.
	Old, New State
	// FromPipeline is true when the message was posted by the top-level pipeline.
	FromPipeline bool
}

// FrameFunc receives one encoded access unit. data is owned by the callee.
type FrameFunc func(data []byte, keyframe bool)

// Pipeline is one constructed engine pipeline.
type Pipeline interface {
	SetState(State) error
	// PollBus waits up to timeout for the next bus message.
	PollBus(timeout time.Duration) (Event, bool)
	// AttachFrameCallback wires fn to the element named SinkName.
	AttachFrameCallback(fn FrameFunc) error
	// Close releases the pipeline. It must follow SetState(StateNull).
	Close()
}

// Engine builds pipelines from launch descriptors.
type Engine interface {
	Build(descriptor string) (Pipeline, error)
	HasElement(factory string) bool
}

// Teardown brings p to Null and releases it.
func Teardown(p Pipeline) {
	_ = p.SetState(StateNull)
	p.Close()
}
