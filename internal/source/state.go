// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import "github.com/ManuGH/dart/internal/fsm"

// State is the lifecycle state of a supervised source.
type State string

const (
	// StateLive means the pipeline is playing and its frames are forwarded.
	StateLive State = "live"
	// StateStandby means the pipeline failed and placeholder frames are emitted.
	StateStandby State = "standby"
	// StateRetrying means the pipeline failed and no producer is active.
	StateRetrying State = "retrying"
	// StateStopped is terminal.
	StateStopped State = "stopped"
)

// Event drives state transitions.
type Event string

const (
	EventStart   Event = "start"
	EventPlaying Event = "playing"
	EventStandby Event = "standby"
	EventRetry   Event = "retry"
	EventStop    Event = "stop"
)

var transitions = []fsm.Transition[State, Event]{
	{From: StateStopped, Event: EventStart, To: StateLive},

	{From: StateLive, Event: EventPlaying, To: StateLive},
	{From: StateStandby, Event: EventPlaying, To: StateLive},
	{From: StateRetrying, Event: EventPlaying, To: StateLive},

	{From: StateLive, Event: EventStandby, To: StateStandby},
	{From: StateStandby, Event: EventStandby, To: StateStandby},

	{From: StateLive, Event: EventRetry, To: StateRetrying},
	{From: StateRetrying, Event: EventRetry, To: StateRetrying},

	{Event: EventStop, To: StateStopped},
}

func newStateMachine() *fsm.Machine[State, Event] {
	m, err := fsm.New(StateStopped, transitions)
	if err != nil {
		panic(err)
	}
	return m
}
