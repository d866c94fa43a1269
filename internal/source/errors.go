// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"errors"

	"github.com/ManuGH/dart/internal/media/watchdog"
)

var (
	// ErrConstruction means the pipeline could not be built or wired.
	ErrConstruction = errors.New("pipeline construction failed")
	// ErrRuntime means the engine reported an error while the pipeline ran.
	ErrRuntime = errors.New("pipeline runtime error")

	// ErrAlreadyRunning is returned by a second Start.
	ErrAlreadyRunning = errors.New("supervisor already running")
	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("supervisor stopped")
)

// errorKind maps a cycle error to its metric label.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConstruction):
		return "construction"
	case errors.Is(err, watchdog.ErrStalled):
		return "stall"
	default:
		return "runtime"
	}
}
