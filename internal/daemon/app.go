// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/dart/internal/log"
)

// Runner is a best-effort background subsystem such as a file watcher.
type Runner interface {
	Run(ctx context.Context) error
}

type namedRunner struct {
	name   string
	runner Runner
}

// App owns the long-lived runtime lifecycle (watchers) and delegates server
// and source management to Manager.
type App struct {
	logger  zerolog.Logger
	manager Manager
	runners []namedRunner
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager) *App {
	return &App{
		logger:  logger,
		manager: manager,
	}
}

// AddRunner registers a background subsystem. Its failure is logged and
// never stops the daemon.
func (a *App) AddRunner(name string, r Runner) {
	a.runners = append(a.runners, namedRunner{name: name, runner: r})
}

// Manager returns the lifecycle manager.
func (a *App) Manager() Manager { return a.manager }

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	for _, nr := range a.runners {
		g.Go(func() error {
			if err := nr.runner.Run(gctx); err != nil {
				a.logger.Warn().
					Err(err).
					Str(log.FieldEvent, "daemon.runner_failed").
					Str("runner", nr.name).
					Msg("background runner stopped")
			}
			return nil
		})
	}

	// Main lifecycle. Its return ends the runners as well.
	g.Go(func() error {
		defer cancel()
		return a.manager.Start(gctx)
	})

	return g.Wait()
}
