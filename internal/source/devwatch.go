// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ManuGH/dart/internal/log"
)

// DeviceWatcher wakes supervisors of capture sources when their device node
// appears, so they probe without waiting for the next poll.
type DeviceWatcher struct {
	mu     sync.Mutex
	subs   map[string][]chan struct{}
	logger zerolog.Logger
}

// NewDeviceWatcher returns an empty watcher.
func NewDeviceWatcher() *DeviceWatcher {
	return &DeviceWatcher{
		subs:   make(map[string][]chan struct{}),
		logger: log.WithComponent("devwatch"),
	}
}

// Subscribe returns a channel that receives a value whenever device is
// created. Notifications coalesce while unread. Subscribe before Run.
func (w *DeviceWatcher) Subscribe(device string) <-chan struct{} {
	ch := make(chan struct{}, 1)
	path := filepath.Clean(device)
	w.mu.Lock()
	w.subs[path] = append(w.subs[path], ch)
	w.mu.Unlock()
	return ch
}

// Len returns the number of watched device paths.
func (w *DeviceWatcher) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

// Run watches the parent directories of all subscribed devices until ctx is
// done.
func (w *DeviceWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create device watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	w.mu.Lock()
	dirs := make(map[string]struct{})
	for path := range w.subs {
		dirs[filepath.Dir(path)] = struct{}{}
	}
	w.mu.Unlock()

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.logger.Debug().Str(log.FieldEvent, "devwatch.watching").Str(log.FieldPath, dir).Msg("watching device directory")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				w.notify(filepath.Clean(ev.Name))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Str(log.FieldEvent, "devwatch.error").Msg("device watcher error")
		}
	}
}

func (w *DeviceWatcher) notify(path string) {
	w.mu.Lock()
	subs := w.subs[path]
	w.mu.Unlock()
	if len(subs) == 0 {
		return
	}
	w.logger.Info().Str(log.FieldEvent, "devwatch.appeared").Str(log.FieldDevice, path).Msg("capture device appeared")
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
