package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"agentchat/internal/logging"
)

const debounceInterval = 500 * time.Millisecond

// ReloadCallback receives the freshly loaded config after a file change.
type ReloadCallback func(cfg Config)

// Watcher reloads the config file when it changes on disk. Editors often
// replace files rather than write them in place, so the parent directory
// is watched and events are filtered by name.
type Watcher struct {
	path      string
	fsWatcher *fsnotify.Watcher
	callback  ReloadCallback
	cancel    chan struct{}
}

// NewWatcher starts watching the config file at path. The callback runs
// on each successful reload, debounced against rapid write bursts.
func NewWatcher(path string, callback ReloadCallback) (*Watcher, error) {
	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsW.Add(filepath.Dir(path)); err != nil {
		fsW.Close()
		return nil, err
	}

	w := &Watcher{
		path:      path,
		fsWatcher: fsW,
		callback:  callback,
		cancel:    make(chan struct{}),
	}
	go w.watchLoop()
	return w, nil
}

// watchLoop processes fsnotify events with debouncing.
func (w *Watcher) watchLoop() {
	logger := logging.NewLogger("config-watcher")
	var timer *time.Timer

	for {
		select {
		case <-w.cancel:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			// Debounce: reset timer on each event.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceInterval, func() {
				cfg, err := Load(w.path)
				if err != nil {
					logger.WithError(err).Warn("config reload failed")
					return
				}
				logger.Infof("config reloaded: %s", filepath.Base(w.path))
				if w.callback != nil {
					w.callback(cfg)
				}
			})

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logger.Errorf("watcher error: %v", err)
		}
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() {
	close(w.cancel)
	w.fsWatcher.Close()
}
