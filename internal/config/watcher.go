package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/your-org/b2c-validator/pkg/logger"
)

// Update carries a reloaded configuration.
type Update struct {
	Config    *Config
	Timestamp time.Time
}

// Watcher reloads the configuration file when it changes on disk and
// hands the parsed result to the caller. What gets applied at runtime is
// the caller's decision.
type Watcher struct {
	path      string
	watcher   *fsnotify.Watcher
	mu        sync.Mutex
	closed    bool
	closeCh   chan struct{}
	closeOnce sync.Once

	// sendMu serializes sends on the updates channel with its close, so a
	// debounce timer firing during shutdown cannot send on a closed channel.
	sendMu     sync.Mutex
	sendClosed bool
}

// NewWatcher creates a watcher for the given config file path.
func NewWatcher(path string) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is required for watching")
	}
	return &Watcher{
		path:    path,
		closeCh: make(chan struct{}),
	}, nil
}

// Watch starts watching and returns a channel of reloaded configs.
func (w *Watcher) Watch(ctx context.Context) (<-chan Update, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory containing the file (for atomic writes)
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.mu.Lock()
	w.watcher = watcher
	w.mu.Unlock()

	updates := make(chan Update, 1)
	go w.watchLoop(ctx, watcher, updates)

	logger.Info("watching config file", logger.String("path", w.path))
	return updates, nil
}

func (w *Watcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, updates chan<- Update) {
	var debounce *time.Timer
	var debounceMu sync.Mutex

	defer func() {
		debounceMu.Lock()
		if debounce != nil {
			debounce.Stop()
		}
		debounceMu.Unlock()

		// A timer that already fired may still be inside reload; the lock
		// orders its send before the close
		w.sendMu.Lock()
		w.sendClosed = true
		close(updates)
		w.sendMu.Unlock()
	}()

	target, _ := filepath.Abs(w.path)

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.closeCh:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			abs, _ := filepath.Abs(event.Name)
			if abs != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			// Editors and atomic writes produce bursts of events
			debounceMu.Lock()
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(100*time.Millisecond, func() {
				w.reload(ctx, updates)
			})
			debounceMu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("config watcher error", logger.Err(err))
		}
	}
}

func (w *Watcher) reload(ctx context.Context, updates chan<- Update) {
	cfg, err := Load(w.path)
	if err != nil {
		logger.Error("failed to reload config, keeping previous",
			logger.String("path", w.path),
			logger.Err(err),
		)
		return
	}

	update := Update{Config: cfg, Timestamp: time.Now()}

	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if w.sendClosed {
		return
	}

	select {
	case updates <- update:
		logger.Info("config reloaded", logger.String("path", w.path))
	case <-ctx.Done():
	default:
		logger.Warn("config update channel full, dropping update")
	}
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closeCh)
		w.mu.Lock()
		defer w.mu.Unlock()
		w.closed = true
		if w.watcher != nil {
			err = w.watcher.Close()
		}
	})
	return err
}
