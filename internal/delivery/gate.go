// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package delivery

import (
	"context"
	"errors"
)

// Gate aligns a fresh consumer on the first keyframe.
// Every frame before it is dropped; after it nothing is dropped.
type Gate struct {
	open    bool
	dropped uint64
}

// Admit reports whether f may be forwarded.
func (g *Gate) Admit(f Frame) bool {
	if !g.open {
		if !f.Key {
			g.dropped++
			return false
		}
		g.open = true
	}
	return true
}

// Open reports whether a keyframe has been seen.
func (g *Gate) Open() bool { return g.open }

// Dropped returns the number of leading frames discarded.
func (g *Gate) Dropped() uint64 { return g.dropped }

// Consume drains ch through a new Gate and calls fn for every admitted frame.
// It returns nil when ch is closed, ctx.Err() on cancellation, or the first
// error returned by fn.
func Consume(ctx context.Context, ch *Channel, fn func(Frame) error) error {
	var g Gate
	for {
		f, err := ch.Recv(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
		if !g.Admit(f) {
			continue
		}
		if err := fn(f); err != nil {
			return err
		}
	}
}
