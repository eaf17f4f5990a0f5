package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler is called with the newly loaded config after the file changes.
type ChangeHandler func(cfg *Config)

// Watcher reloads a config file when it changes. The parent directory is
// watched so editors that save by rename are seen too. Bursts of events are
// debounced into one reload, a reload that yields the same settings is
// skipped, and a file that fails to load leaves the previous config in effect.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	handlers []ChangeHandler
	debounce time.Duration
	last     []byte // encoded settings of the last applied config
	stopChan chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewWatcher creates a watcher for configPath.
func NewWatcher(configPath string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:     filepath.Clean(configPath),
		watcher:  w,
		debounce: 300 * time.Millisecond,
		logger:   slog.Default(),
	}, nil
}

// SetDebounce changes the debounce window. Call before Start.
func (cw *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		cw.debounce = d
	}
}

// OnChange registers a handler to be called when config changes.
func (cw *Watcher) OnChange(handler ChangeHandler) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.handlers = append(cw.handlers, handler)
}

// Start begins watching.
func (cw *Watcher) Start() error {
	if cfg, err := Load(cw.path); err == nil {
		cw.last = snapshot(cfg)
	}
	if err := cw.watcher.Add(filepath.Dir(cw.path)); err != nil {
		return err
	}
	cw.stopChan = make(chan struct{})
	go cw.watchLoop()

	cw.logger.Debug("config watcher started", "path", cw.path)
	return nil
}

// Stop halts the watcher. It is safe to call more than once.
func (cw *Watcher) Stop() {
	cw.stopOnce.Do(func() {
		if cw.stopChan != nil {
			close(cw.stopChan)
		}
		cw.watcher.Close()
		cw.logger.Debug("config watcher stopped", "path", cw.path)
	})
}

func (cw *Watcher) watchLoop() {
	var timer *time.Timer
	for {
		select {
		case <-cw.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(cw.debounce, cw.reload)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Error("config watcher error", "error", err)
		}
	}
}

func (cw *Watcher) reload() {
	cfg, err := Load(cw.path)
	if err != nil {
		cw.logger.Warn("config reload failed, keeping previous settings", "path", cw.path, "error", err)
		return
	}
	snap := snapshot(cfg)

	cw.mu.Lock()
	if bytes.Equal(snap, cw.last) {
		cw.mu.Unlock()
		return
	}
	cw.last = snap
	handlers := make([]ChangeHandler, len(cw.handlers))
	copy(handlers, cw.handlers)
	cw.mu.Unlock()

	for _, h := range handlers {
		h(cfg)
	}
	cw.logger.Info("config reloaded", "path", cw.path)
}

func snapshot(cfg *Config) []byte {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	b, _ := json.Marshal(cfg)
	return b
}
