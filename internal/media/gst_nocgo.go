// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !cgo

package media

// GStreamer is unavailable without cgo; every call reports ErrEngineUnavailable.
type GStreamer struct{}

// NewGStreamer always fails in builds without cgo.
func NewGStreamer() (*GStreamer, error) {
	return nil, ErrEngineUnavailable
}

// Build always fails in builds without cgo.
func (GStreamer) Build(string) (Pipeline, error) {
	return nil, ErrEngineUnavailable
}

// HasElement always reports false in builds without cgo.
func (GStreamer) HasElement(string) bool {
	return false
}
