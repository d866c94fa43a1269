// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package delivery carries encoded frames from the active producer of a
// source to the session consumer of the streaming server.
package delivery

import "errors"

var (
	// ErrClosed is returned when sending to or receiving from a closed channel.
	ErrClosed = errors.New("delivery channel closed")
	// ErrNoChannel is returned by Slot.Send when no client session is attached.
	ErrNoChannel = errors.New("no delivery channel registered")
)

// Frame is one encoded access unit.
type Frame struct {
	Data []byte
	Key  bool
}

// Delta reports whether the frame depends on earlier frames.
func (f Frame) Delta() bool {
	return !f.Key
}
