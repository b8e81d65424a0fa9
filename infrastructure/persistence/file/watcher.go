package file

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 100 * time.Millisecond

// Watcher reports keys whose files change on disk, so a process can pick up
// a login or logout made by another one.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	onChange func(key string)
	logger   *zap.Logger
	debounce time.Duration

	mu       sync.Mutex
	timers   map[string]*time.Timer
	stopCh   chan struct{}
	stopOnce sync.Once
}

// Watch creates a watcher over the storage directory. Call Start to begin
// delivering changes.
func (s *SessionStorage) Watch(onChange func(key string), logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watching the directory catches the rename used by Set
	if err := fw.Add(s.dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	return &Watcher{
		dir:      s.dir,
		watcher:  fw,
		onChange: onChange,
		logger:   logger,
		debounce: defaultDebounce,
		timers:   make(map[string]*time.Timer),
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine
func (w *Watcher) Start() {
	go w.watchLoop()
	w.logger.Info("Session watcher started", zap.String("dir", w.dir))
}

// Stop stops watching. Pending notifications are dropped.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()

		w.mu.Lock()
		for _, t := range w.timers {
			t.Stop()
		}
		w.mu.Unlock()
		w.logger.Info("Session watcher stopped")
	})
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			key, ok := keyOf(event.Name)
			if !ok {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.schedule(key)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

// schedule collapses bursts of events for one key into a single callback
func (w *Watcher) schedule(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.stopCh:
		return
	default:
	}

	if t, ok := w.timers[key]; ok {
		t.Stop()
	}
	w.timers[key] = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}
		w.logger.Debug("Session file changed", zap.String("key", key))
		w.onChange(key)
	})
}

// keyOf maps a file name back to its key, skipping temp files
func keyOf(name string) (string, bool) {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, fileExt) {
		return "", false
	}
	return strings.TrimSuffix(base, fileExt), true
}
