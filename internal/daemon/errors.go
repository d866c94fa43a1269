// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

var (
	// ErrMissingLogger is returned when logger is not provided
	ErrMissingLogger = errors.New("logger is required")

	// ErrMissingAPIHandler is returned when the API is enabled without a handler
	ErrMissingAPIHandler = errors.New("API handler is required when the API is enabled")

	// ErrMissingRTSPServer is returned when no RTSP server is provided
	ErrMissingRTSPServer = errors.New("RTSP server is required")

	// ErrMissingSources is returned when no source registry is provided
	ErrMissingSources = errors.New("source registry is required")

	// ErrMissingManager is returned when a daemon app is created without a manager.
	ErrMissingManager = errors.New("manager is required")

	// ErrManagerNotStarted is returned when trying to shutdown a manager that hasn't started
	ErrManagerNotStarted = errors.New("manager not started")

	// ErrManagerAlreadyStarted is returned when Start is called twice
	ErrManagerAlreadyStarted = errors.New("manager already started")

	// ErrNoSources is returned when configuration leaves no usable source
	ErrNoSources = errors.New("no usable sources configured")

	// ErrNoSourcesStarted is returned when every supervisor failed to start
	ErrNoSourcesStarted = errors.New("no source started successfully")
)
