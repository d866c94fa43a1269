// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicate is returned when a supervisor name is registered twice.
var ErrDuplicate = errors.New("source already registered")

// Registry holds the supervisors of a running daemon in configuration order.
type Registry struct {
	mu    sync.RWMutex
	order []*Supervisor
	byKey map[string]*Supervisor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]*Supervisor)}
}

// Add registers s.
func (r *Registry) Add(s *Supervisor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[s.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, s.Name())
	}
	r.byKey[s.Name()] = s
	r.order = append(r.order, s)
	return nil
}

// Get returns the supervisor for name.
func (r *Registry) Get(name string) (*Supervisor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byKey[name]
	return s, ok
}

// All returns the supervisors in registration order.
func (r *Registry) All() []*Supervisor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Supervisor, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered supervisors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Snapshots returns the status of every supervisor.
func (r *Registry) Snapshots() []Status {
	sups := r.All()
	out := make([]Status, 0, len(sups))
	for _, s := range sups {
		out = append(out, s.Snapshot())
	}
	return out
}

// Snapshot returns the status of one supervisor.
func (r *Registry) Snapshot(name string) (Status, bool) {
	s, ok := r.Get(name)
	if !ok {
		return Status{}, false
	}
	return s.Snapshot(), true
}

// StartAll starts every supervisor and returns how many started. Failures
// are joined into the error; a partial start is not rolled back.
func (r *Registry) StartAll(ctx context.Context) (int, error) {
	started := 0
	var errs []error
	for _, s := range r.All() {
		if err := s.Start(ctx); err != nil {
			errs = append(errs, fmt.Errorf("start %s: %w", s.Name(), err))
			continue
		}
		started++
	}
	return started, errors.Join(errs...)
}

// StopAll stops every supervisor without waiting.
func (r *Registry) StopAll() {
	for _, s := range r.All() {
		s.Stop()
	}
}

// Wait joins every supervisor's run loop or returns ctx.Err().
func (r *Registry) Wait(ctx context.Context) error {
	for _, s := range r.All() {
		if err := s.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
