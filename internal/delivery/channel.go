// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package delivery

import (
	"context"
	"sync"
)

// Channel is an unbounded FIFO of frames with a single consumer.
// Send never blocks; frames stay in production order.
type Channel struct {
	mu     sync.Mutex
	queue  []Frame
	closed bool
	notify chan struct{}
	done   chan struct{}
}

// NewChannel returns an open, empty channel.
func NewChannel() *Channel {
	return &Channel{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Send enqueues f. It returns ErrClosed once the channel has been closed.
func (c *Channel) Send(f Frame) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.queue = append(c.queue, f)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

// Recv blocks until a frame is available, the channel is closed or ctx is done.
func (c *Channel) Recv(ctx context.Context) (Frame, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return Frame{}, ErrClosed
		}
		if len(c.queue) > 0 {
			f := c.queue[0]
			c.queue[0] = Frame{}
			c.queue = c.queue[1:]
			c.mu.Unlock()
			return f, nil
		}
		c.mu.Unlock()

		select {
		case <-c.notify:
		case <-c.done:
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		}
	}
}

// Len returns the number of queued frames.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Close discards pending frames and wakes the consumer. Safe to call twice.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.queue = nil
	close(c.done)
}

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
