// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsm implements a small table-driven state machine.
package fsm

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTransition is returned when no transition exists for the current state and event.
var ErrInvalidTransition = errors.New("invalid transition")

// Transition describes a single edge in the FSM.
// An empty From matches every state.
type Transition[S ~string, E ~string] struct {
	From  S
	Event E
	To    S
}

// Observer is invoked after every applied transition, outside the lock.
type Observer[S ~string, E ~string] func(from, to S, event E)

// Machine is a small, test-friendly FSM runner.
// It is strict: unknown transitions are errors and leave the state untouched.
type Machine[S ~string, E ~string] struct {
	mu        sync.Mutex
	state     S
	index     map[string]S
	wildcard  map[E]S
	observers []Observer[S, E]
}

// New builds a machine starting in initial.
func New[S ~string, E ~string](initial S, transitions []Transition[S, E]) (*Machine[S, E], error) {
	idx := make(map[string]S, len(transitions))
	wild := make(map[E]S)
	for _, t := range transitions {
		if t.From == "" {
			if _, exists := wild[t.Event]; exists {
				return nil, fmt.Errorf("duplicate wildcard transition: %s", t.Event)
			}
			wild[t.Event] = t.To
			continue
		}
		k := key(t.From, t.Event)
		if _, exists := idx[k]; exists {
			return nil, fmt.Errorf("duplicate transition: %s -> %s", t.From, t.Event)
		}
		idx[k] = t.To
	}
	return &Machine[S, E]{state: initial, index: idx, wildcard: wild}, nil
}

// Observe registers fn to be called after each transition. Not safe to call
// concurrently with Fire.
func (m *Machine[S, E]) Observe(fn Observer[S, E]) {
	m.observers = append(m.observers, fn)
}

// State returns the current state.
func (m *Machine[S, E]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Is reports whether the machine is currently in s.
func (m *Machine[S, E]) Is(s S) bool {
	return m.State() == s
}

// Fire applies event atomically and returns the resulting state.
func (m *Machine[S, E]) Fire(event E) (S, error) {
	m.mu.Lock()
	from := m.state
	to, ok := m.index[key(from, event)]
	if !ok {
		to, ok = m.wildcard[event]
	}
	if !ok {
		m.mu.Unlock()
		return from, fmt.Errorf("%w: state=%s event=%s", ErrInvalidTransition, from, event)
	}
	m.state = to
	m.mu.Unlock()

	for _, fn := range m.observers {
		fn(from, to, event)
	}
	return to, nil
}

func key[S ~string, E ~string](from S, event E) string {
	return string(from) + "|" + string(event)
}
