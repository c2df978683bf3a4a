package cliconfig

import (
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/ports"
)

// DefaultDebounce is how long the watcher waits after the last file event
// before reloading. Editors often write a file in several steps.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads the config file when it changes and hands the result to a
// callback. Flag and environment precedence is preserved on every reload.
type Watcher struct {
	path     string
	base     Config
	changed  map[string]bool
	onChange func(Config)
	logger   ports.Logger
	debounce time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	lastHash uint64
}

// NewWatcher creates a watcher for path. base is the configuration before the
// file was applied, changed holds the flags set on the command line.
func NewWatcher(path string, base Config, changed map[string]bool, onChange func(Config), logger ports.Logger) *Watcher {
	w := &Watcher{
		path:     path,
		base:     base,
		changed:  changed,
		onChange: onChange,
		logger:   logger,
		debounce: DefaultDebounce,
	}
	if b, err := os.ReadFile(path); err == nil {
		w.lastHash = hashBytes(b)
	}
	return w
}

// Run watches the directory holding the config file until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// Watch the directory: editors that replace the file would drop a file watch.
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return err
	}
	file := filepath.Base(w.path)
	w.logger.Debug("config watcher started", ports.String("path", w.path))

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != file {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watch error", ports.Err(err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.reload() })
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
}

// reload re-reads the file and reports whether the callback was invoked.
// Unchanged content and invalid configurations are skipped.
func (w *Watcher) reload() bool {
	b, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", ports.String("path", w.path), ports.Err(err))
		return false
	}

	h := hashBytes(b)
	w.mu.Lock()
	unchanged := h == w.lastHash
	w.mu.Unlock()
	if unchanged {
		w.logger.Debug("config unchanged, skipping reload", ports.String("path", w.path))
		return false
	}

	fc, err := parseFileConfig(w.path, b)
	if err != nil {
		w.logger.Warn("config parse failed", ports.String("path", w.path), ports.Err(err))
		return false
	}

	cfg := w.base
	if err := ApplyFileConfig(&cfg, fc, w.changed); err != nil {
		w.logger.Warn("config rejected", ports.String("path", w.path), ports.Err(err))
		return false
	}
	if err := ApplyEnvConfig(&cfg, w.changed); err != nil {
		w.logger.Warn("config rejected", ports.String("path", w.path), ports.Err(err))
		return false
	}
	if err := cfg.Validate(); err != nil {
		w.logger.Warn("config rejected", ports.String("path", w.path), ports.Err(err))
		return false
	}

	w.mu.Lock()
	w.lastHash = h
	w.mu.Unlock()

	w.logger.Info("config reloaded", ports.String("path", w.path))
	w.onChange(cfg)
	return true
}

func hashBytes(b []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
