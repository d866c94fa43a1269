// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build cgo

package media

import (
	"fmt"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

var gstInit sync.Once

// GStreamer is the Engine backed by libgstreamer.
type GStreamer struct{}

// NewGStreamer initialises GStreamer (once per process) and returns the engine.
func NewGStreamer() (*GStreamer, error) {
	gstInit.Do(func() { gst.Init(nil) })
	return &GStreamer{}, nil
}

// Build parses a launch descriptor into a pipeline.
func (GStreamer) Build(descriptor string) (Pipeline, error) {
	p, err := gst.NewPipelineFromString(descriptor)
	if err != nil {
		return nil, fmt.Errorf("parse launch descriptor: %w", err)
	}
	return &gstPipeline{p: p, bus: p.GetPipelineBus()}, nil
}

// HasElement reports whether an element factory is registered.
func (GStreamer) HasElement(factory string) bool {
	return gst.Find(factory) != nil
}

type gstPipeline struct {
	p   *gst.Pipeline
	bus *gst.Bus

	// sink keeps the appsink wrapper and its callbacks reachable.
	sink *app.Sink
}

func (g *gstPipeline) SetState(s State) error {
	return g.p.SetState(toGst(s))
}

func (g *gstPipeline) PollBus(timeout time.Duration) (Event, bool) {
	msg := g.bus.TimedPop(timeout)
	if msg == nil {
		return Event{}, false
	}

	ev := Event{FromPipeline: msg.Source() == g.p.GetName()}
	switch msg.Type() {
	case gst.MessageError:
		ev.Kind = EventError
		if gerr := msg.ParseError(); gerr != nil {
			ev.Cause = gerr.Error()
			ev.Debug = gerr.DebugString()
		}
	case gst.MessageWarning:
		ev.Kind = EventWarning
		if gerr := msg.ParseWarning(); gerr != nil {
			ev.Cause = gerr.Error()
			ev.Debug = gerr.DebugString()
		}
	case gst.MessageEOS:
		ev.Kind = EventEOS
	case gst.MessageStateChanged:
		ev.Kind = EventStateChanged
		old, cur := msg.ParseStateChanged()
		ev.Old, ev.New = fromGst(old), fromGst(cur)
	default:
		ev.Kind = EventOther
	}
	return ev, true
}

func (g *gstPipeline) AttachFrameCallback(fn FrameFunc) error {
	elem, err := g.p.GetElementByName(SinkName)
	if err != nil || elem == nil {
		return fmt.Errorf("pipeline has no element named %q", SinkName)
	}
	sink := app.SinkFromElement(elem)
	if sink == nil {
		return fmt.Errorf("element %q is not an appsink", SinkName)
	}

	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(s *app.Sink) gst.FlowReturn {
			sample := s.PullSample()
			if sample == nil {
				return gst.FlowEOS
			}
			buffer := sample.GetBuffer()
			if buffer == nil {
				return gst.FlowError
			}

			mapInfo := buffer.Map(gst.MapRead)
			data := make([]byte, len(mapInfo.Bytes()))
			copy(data, mapInfo.Bytes())
			buffer.Unmap()

			fn(data, !buffer.HasFlags(gst.BufferFlagDeltaUnit))
			return gst.FlowOK
		},
	})
	g.sink = sink
	return nil
}

func (g *gstPipeline) Close() {
	g.sink = nil
}

func toGst(s State) gst.State {
	switch s {
	case StateReady:
		return gst.StateReady
	case StatePaused:
		return gst.StatePaused
	case StatePlaying:
		return gst.StatePlaying
	default:
		return gst.StateNull
	}
}

func fromGst(s gst.State) State {
	switch s {
	case gst.StateReady:
		return StateReady
	case gst.StatePaused:
		return StatePaused
	case gst.StatePlaying:
		return StatePlaying
	default:
		return StateNull
	}
}
