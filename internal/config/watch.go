// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ManuGH/dart/internal/log"
)

const watchDebounce = 500 * time.Millisecond

// Watcher reports edits of the configuration file. Sources are immutable for
// the lifetime of the process, so an edit is validated and announced but not
// applied; OnChange receives the validation outcome.
type Watcher struct {
	loader   *Loader
	logger   zerolog.Logger
	OnChange func(cfg Config, err error)
}

// NewWatcher creates a watcher for the loader's configuration file.
func NewWatcher(loader *Loader) *Watcher {
	return &Watcher{
		loader: loader,
		logger: log.WithComponent("config"),
	}
}

// Run blocks until ctx is done. Watching the directory rather than the file
// keeps working across editors that replace the file on save.
func (w *Watcher) Run(ctx context.Context) error {
	path := w.loader.Path()
	if path == "" {
		w.logger.Info().
			Str("event", "config.watcher_disabled").
			Msg("config file watcher disabled (no config file)")
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}

	w.logger.Info().
		Str("event", "config.watcher_started").
		Str(log.FieldPath, path).
		Msg("watching config file for changes")

	target := filepath.Clean(path)
	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				debounce = time.After(watchDebounce)
			}

		case <-debounce:
			debounce = nil
			w.check()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().
				Err(err).
				Str("event", "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

func (w *Watcher) check() {
	cfg, err := w.loader.Load()
	if err != nil {
		w.logger.Error().
			Err(err).
			Str("event", "config.changed_invalid").
			Msg("config file changed and no longer validates")
	} else {
		w.logger.Warn().
			Str("event", "config.changed_restart_required").
			Int("sources", len(cfg.Sources)).
			Msg("config file changed; restart dart to apply")
	}
	if w.OnChange != nil {
		w.OnChange(cfg, err)
	}
}
