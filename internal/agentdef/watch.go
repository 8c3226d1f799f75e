package agentdef

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads a Loader's source directory: any create/write/
// remove/rename under dir invalidates the affected agent type's cache
// entry so the next Load re-parses it from disk (spec §4.3's loader is
// otherwise "cached per-type" for the life of the process). Grounded on
// the teacher's internal/templates/registry.go StartWatching/watchLoop.
type Watcher struct {
	loader   *Loader
	dir      string
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWatcher creates a Watcher over loader's directory. logger may be nil
// (defaults to slog.Default()).
func NewWatcher(loader *Loader, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{loader: loader, dir: loader.dir, logger: logger, debounce: 250 * time.Millisecond}
}

// Start begins watching dir and its immediate agent-type subdirectories.
// It is a no-op if already started; callers should call Close on shutdown.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.fsw != nil {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.fsw = fsw
	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	if err := w.addWatches(); err != nil {
		w.logger.Warn("agent definition watch setup failed", "error", err)
	}

	w.wg.Add(1)
	go w.loop(watchCtx)
	return nil
}

// Close stops the watcher and releases its underlying fsnotify handle.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	fsw := w.fsw
	w.fsw = nil
	w.mu.Unlock()

	if fsw != nil {
		_ = fsw.Close()
	}
	w.wg.Wait()
	return nil
}

// addWatches registers dir and every existing agent-type subdirectory.
func (w *Watcher) addWatches() error {
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return nil
	}
	if err := fsw.Add(w.dir); err != nil {
		return err
	}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			_ = fsw.Add(filepath.Join(w.dir, entry.Name()))
		}
	}
	return nil
}

// agentTypeFromPath extracts the agent-type directory name from an event
// path under w.dir (dir/<agentType>/AGENT.md or dir/<agentType>).
func (w *Watcher) agentTypeFromPath(path string) string {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return ""
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	return strings.SplitN(rel, "/", 2)[0]
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return
	}

	pending := make(map[string]*time.Timer)
	var pendingMu sync.Mutex
	scheduleInvalidate := func(agentType string) {
		if agentType == "" {
			return
		}
		pendingMu.Lock()
		defer pendingMu.Unlock()
		if t, ok := pending[agentType]; ok {
			t.Stop()
		}
		pending[agentType] = time.AfterFunc(w.debounce, func() {
			w.loader.Invalidate(agentType)
			w.logger.Info("agent definition invalidated by watch event", "agent_type", agentType)
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = fsw.Add(event.Name)
				}
			}
			scheduleInvalidate(w.agentTypeFromPath(event.Name))
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("agent definition watch error", "error", err)
		}
	}
}
