// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package delivery

import "sync"

// Slot holds the channel of the currently attached session, if any.
// Producers look it up on every send because the server may swap or clear
// it at any time. The lock is never held across a send.
type Slot struct {
	mu sync.Mutex
	ch *Channel
}

// Set registers ch and returns the channel it replaced.
func (s *Slot) Set(ch *Channel) *Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.ch
	s.ch = ch
	return prev
}

// Get returns the registered channel or nil.
func (s *Slot) Get() *Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}

// CompareAndClear empties the slot only if it still holds ch.
func (s *Slot) CompareAndClear(ch *Channel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch != ch {
		return false
	}
	s.ch = nil
	return true
}

// Send forwards f to the registered channel. It returns ErrNoChannel when no
// session is attached and ErrClosed when the registered channel went stale.
func (s *Slot) Send(f Frame) error {
	ch := s.Get()
	if ch == nil {
		return ErrNoChannel
	}
	return ch.Send(f)
}
