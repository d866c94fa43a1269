// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package placeholder encodes still images into single keyframes that stand
// in for a source while it is unavailable.
package placeholder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/dart/internal/descriptor"
	"github.com/ManuGH/dart/internal/log"
	"github.com/ManuGH/dart/internal/media"
	"github.com/ManuGH/dart/internal/metrics"
)

// Encoding limits.
const (
	DefaultTimeout = 5 * time.Second
	busStep        = 100 * time.Millisecond
)

// ErrNoData is returned when the pipeline finished without producing a frame.
var ErrNoData = errors.New("placeholder: no data produced")

// Frame is an immutable encoded keyframe. It is shared read-only by every
// standby emitter that references it.
type Frame struct {
	data  []byte
	codec media.Codec
	path  string
}

// Data returns the encoded access unit. Callers must not modify it.
func (f *Frame) Data() []byte { return f.data }

// Codec returns the codec the frame was encoded with.
func (f *Frame) Codec() media.Codec { return f.codec }

// Path returns the source image path.
func (f *Frame) Path() string { return f.path }

// Len returns the encoded size in bytes.
func (f *Frame) Len() int { return len(f.data) }

// Encode converts the image at path into one keyframe using engine. The
// pipeline is torn down on every path.
func Encode(ctx context.Context, engine media.Engine, path string, codec media.Codec) (*Frame, error) {
	return encode(ctx, engine, path, codec, DefaultTimeout)
}

func encode(ctx context.Context, engine media.Engine, path string, codec media.Codec, timeout time.Duration) (f *Frame, err error) {
	defer func() { metrics.RecordPlaceholderEncode(err) }()

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("placeholder image: %w", err)
	}

	logger := log.WithComponent("placeholder")
	logger.Info().Str(log.FieldEvent, "placeholder.encoding").Str(log.FieldPath, path).
		Str(log.FieldCodec, string(codec)).Msg("encoding placeholder image")

	p, err := engine.Build(descriptor.Placeholder(path, codec))
	if err != nil {
		return nil, fmt.Errorf("build placeholder pipeline: %w", err)
	}
	defer media.Teardown(p)

	first := make(chan []byte, 1)
	if err := p.AttachFrameCallback(func(data []byte, _ bool) {
		select {
		case first <- data:
		default:
		}
	}); err != nil {
		return nil, fmt.Errorf("attach placeholder sink: %w", err)
	}

	if err := p.SetState(media.StatePlaying); err != nil {
		return nil, fmt.Errorf("start placeholder pipeline: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		select {
		case data := <-first:
			logger.Info().Str(log.FieldEvent, "placeholder.encoded").Str(log.FieldPath, path).
				Int("bytes", len(data)).Msg("placeholder image encoded")
			return &Frame{data: data, codec: codec, path: path}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w within %s", ErrNoData, timeout)
		}
		ev, ok := p.PollBus(min(busStep, remaining))
		if !ok {
			continue
		}
		switch ev.Kind {
		case media.EventError:
			return nil, fmt.Errorf("placeholder encoding error: %s", ev.Cause)
		case media.EventEOS:
			select {
			case data := <-first:
				return &Frame{data: data, codec: codec, path: path}, nil
			default:
				return nil, ErrNoData
			}
		}
	}
}

// Cache encodes each (path, codec) pair once and shares the result.
type Cache struct {
	engine media.Engine
	group  singleflight.Group

	mu     sync.Mutex
	frames map[string]*Frame
}

// NewCache returns an empty cache encoding with engine.
func NewCache(engine media.Engine) *Cache {
	return &Cache{engine: engine, frames: make(map[string]*Frame)}
}

// Get returns the cached frame or encodes it. Failures are not cached.
func (c *Cache) Get(ctx context.Context, path string, codec media.Codec) (*Frame, error) {
	key := string(codec) + "|" + path

	c.mu.Lock()
	if f, ok := c.frames[key]; ok {
		c.mu.Unlock()
		return f, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		if f, ok := c.frames[key]; ok {
			c.mu.Unlock()
			return f, nil
		}
		c.mu.Unlock()

		f, err := Encode(ctx, c.engine, path, codec)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.frames[key] = f
		c.mu.Unlock()
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Frame), nil
}

// Len returns the number of cached frames.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}
