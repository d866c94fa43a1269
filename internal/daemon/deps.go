// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

// RTSPServer is the RTSP front the manager owns.
type RTSPServer interface {
	Start() error
	Wait() error
	Close()
}

// SourceSet is the group of supervisors the manager starts and stops.
type SourceSet interface {
	// StartAll starts every source and returns how many started.
	StartAll(ctx context.Context) (int, error)
	StopAll()
	Wait(ctx context.Context) error
}

// Deps contains dependencies required by the daemon Manager.
// This allows for clean dependency injection and easier testing.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// APIHandler serves the status API; nil disables it
	APIHandler http.Handler

	// RTSP is the RTSP server publishing the sources
	RTSP RTSPServer

	// Sources are the supervisors behind the mounts
	Sources SourceSet
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate(cfg ServerConfig) error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if cfg.APIListen != "" && d.APIHandler == nil {
		return ErrMissingAPIHandler
	}
	if d.RTSP == nil {
		return ErrMissingRTSPServer
	}
	if d.Sources == nil {
		return ErrMissingSources
	}
	return nil
}
