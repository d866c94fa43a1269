// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package mediatest provides a scripted media.Engine for tests.
package mediatest

import (
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/dart/internal/media"
)

// ErrBuild is the default construction error returned by FailBuild.
var ErrBuild = errors.New("mediatest: build failed")

// Engine is a media.Engine whose pipelines are controlled by the test.
type Engine struct {
	mu        sync.Mutex
	elements  map[string]bool
	built     []*Pipeline
	descs     []string
	buildErr  error
	onBuild   func(desc string, p *Pipeline)
	onPlaying func(p *Pipeline)
	onPaused  func(p *Pipeline)
	builds    chan *Pipeline
}

// NewEngine returns an engine that knows the given element factories.
func NewEngine(elements ...string) *Engine {
	e := &Engine{
		elements: make(map[string]bool),
		builds:   make(chan *Pipeline, 64),
	}
	for _, el := range elements {
		e.elements[el] = true
	}
	return e
}

// FailBuild makes every subsequent Build return err (ErrBuild when nil).
func (e *Engine) FailBuild(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		err = ErrBuild
	}
	e.buildErr = err
}

// AllowBuild clears a previous FailBuild.
func (e *Engine) AllowBuild() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buildErr = nil
}

// OnBuild registers a hook invoked for every successfully built pipeline.
func (e *Engine) OnBuild(fn func(desc string, p *Pipeline)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onBuild = fn
}

// OnPlaying registers a hook invoked when a pipeline is set to Playing.
func (e *Engine) OnPlaying(fn func(p *Pipeline)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onPlaying = fn
}

// OnPaused registers a hook invoked when a pipeline is set to Paused.
func (e *Engine) OnPaused(fn func(p *Pipeline)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onPaused = fn
}

// Build implements media.Engine.
func (e *Engine) Build(desc string) (media.Pipeline, error) {
	e.mu.Lock()
	e.descs = append(e.descs, desc)
	if e.buildErr != nil {
		err := e.buildErr
		e.mu.Unlock()
		return nil, err
	}
	p := &Pipeline{
		engine:     e,
		Descriptor: desc,
		events:     make(chan media.Event, 64),
	}
	e.built = append(e.built, p)
	hook := e.onBuild
	e.mu.Unlock()

	if hook != nil {
		hook(desc, p)
	}
	select {
	case e.builds <- p:
	default:
	}
	return p, nil
}

// HasElement implements media.Engine.
func (e *Engine) HasElement(factory string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elements[factory]
}

// Descriptors returns every descriptor passed to Build, including failed ones.
func (e *Engine) Descriptors() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.descs...)
}

// Pipelines returns every successfully built pipeline.
func (e *Engine) Pipelines() []*Pipeline {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Pipeline(nil), e.built...)
}

// NextBuild waits for the next successfully built pipeline.
func (e *Engine) NextBuild(timeout time.Duration) (*Pipeline, bool) {
	select {
	case p := <-e.builds:
		return p, true
	case <-time.After(timeout):
		return nil, false
	}
}

// Pipeline is a scripted media.Pipeline.
type Pipeline struct {
	engine     *Engine
	Descriptor string

	events chan media.Event

	mu       sync.Mutex
	states   []media.State
	callback media.FrameFunc
	stateErr map[media.State]error
	closed   bool
	attachEr error
}

// FailState makes SetState(s) return err.
func (p *Pipeline) FailState(s media.State, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stateErr == nil {
		p.stateErr = make(map[media.State]error)
	}
	p.stateErr[s] = err
}

// FailAttach makes AttachFrameCallback return err.
func (p *Pipeline) FailAttach(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attachEr = err
}

// SetState implements media.Pipeline.
func (p *Pipeline) SetState(s media.State) error {
	p.mu.Lock()
	p.states = append(p.states, s)
	err := p.stateErr[s]
	p.mu.Unlock()
	if err != nil {
		return err
	}

	p.engine.mu.Lock()
	onPlaying, onPaused := p.engine.onPlaying, p.engine.onPaused
	p.engine.mu.Unlock()

	switch s {
	case media.StatePlaying:
		if onPlaying != nil {
			onPlaying(p)
		}
	case media.StatePaused:
		if onPaused != nil {
			onPaused(p)
		}
	}
	return nil
}

// PollBus implements media.Pipeline.
func (p *Pipeline) PollBus(timeout time.Duration) (media.Event, bool) {
	select {
	case ev := <-p.events:
		return ev, true
	case <-time.After(timeout):
		return media.Event{}, false
	}
}

// AttachFrameCallback implements media.Pipeline.
func (p *Pipeline) AttachFrameCallback(fn media.FrameFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attachEr != nil {
		return p.attachEr
	}
	p.callback = fn
	return nil
}

// Close implements media.Pipeline.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// Post queues a bus event.
func (p *Pipeline) Post(ev media.Event) {
	p.events <- ev
}

// PostError queues an error event.
func (p *Pipeline) PostError(cause string) {
	p.Post(media.Event{Kind: media.EventError, Cause: cause, FromPipeline: true})
}

// PostEOS queues an end-of-stream event.
func (p *Pipeline) PostEOS() {
	p.Post(media.Event{Kind: media.EventEOS, FromPipeline: true})
}

// PostReached queues a state-changed event from the pipeline itself.
func (p *Pipeline) PostReached(s media.State) {
	p.Post(media.Event{Kind: media.EventStateChanged, Old: media.StateReady, New: s, FromPipeline: true})
}

// Emit delivers a frame through the attached callback. It reports false when
// no callback is attached.
func (p *Pipeline) Emit(data []byte, keyframe bool) bool {
	p.mu.Lock()
	fn := p.callback
	p.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(data, keyframe)
	return true
}

// States returns every state requested so far.
func (p *Pipeline) States() []media.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]media.State(nil), p.states...)
}

// LastState returns the most recently requested state.
func (p *Pipeline) LastState() media.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.states) == 0 {
		return media.StateNull
	}
	return p.states[len(p.states)-1]
}

// Closed reports whether Close was called.
func (p *Pipeline) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// TornDown reports whether the pipeline was set to Null and closed.
func (p *Pipeline) TornDown() bool {
	return p.Closed() && p.LastState() == media.StateNull
}
