package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teranos/netsukuku/errors"
	"github.com/teranos/netsukuku/logger"
)

// ReloadCallback is invoked with the freshly reloaded config.
type ReloadCallback func(*Config) error

// Watcher watches one config file for changes and invokes its registered
// callbacks, debounced so a burst of writes triggers a single reload.
type Watcher struct {
	path      string
	watcher   *fsnotify.Watcher
	mu        sync.Mutex
	callbacks []ReloadCallback
	debounce  time.Duration
}

// NewWatcher constructs a Watcher on path.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "watch config file %s", path)
	}
	return &Watcher{path: path, watcher: fw, debounce: 500 * time.Millisecond}, nil
}

// OnReload registers a callback fired after every debounced reload.
func (w *Watcher) OnReload(cb ReloadCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start begins watching in the background.
func (w *Watcher) Start() { go w.loop() }

// Close stops watching.
func (w *Watcher) Close() error { return w.watcher.Close() }

func (w *Watcher) loop() {
	var timer *time.Timer
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Logger.Errorw("config watcher error", logger.FieldError, err.Error())
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFromFile(w.path)
	if err != nil {
		logger.Logger.Errorw("config reload failed", "path", w.path, logger.FieldError, err.Error())
		return
	}
	w.mu.Lock()
	callbacks := append([]ReloadCallback(nil), w.callbacks...)
	w.mu.Unlock()
	for _, cb := range callbacks {
		if err := cb(cfg); err != nil {
			logger.Logger.Errorw("config reload callback failed", logger.FieldError, err.Error())
		}
	}
}
