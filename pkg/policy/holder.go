package policy

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Holder publishes the active Policy. Readers always see a complete table;
// Reload swaps the pointer and never edits a published Policy in place.
type Holder struct {
	current atomic.Pointer[Policy]
	path    string
	logger  *zap.Logger

	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	watchDone chan struct{}
}

// NewHolder publishes p. When path is non-empty, Reload re-reads it.
func NewHolder(p *Policy, path string, logger *zap.Logger) *Holder {
	if p == nil {
		p = Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Holder{path: path, logger: logger.Named("policy")}
	h.current.Store(p)
	return h
}

// Open loads the policy file at path, or the built-in table when path is empty.
func Open(path string, logger *zap.Logger) (*Holder, error) {
	if path == "" {
		return NewHolder(Default(), "", logger), nil
	}
	p, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewHolder(p, path, logger), nil
}

// Get returns the active policy.
func (h *Holder) Get() *Policy {
	return h.current.Load()
}

// Set validates and publishes p.
func (h *Holder) Set(p *Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	old := h.current.Swap(p)
	h.logger.Info("policy published",
		zap.String("version", p.Version),
		zap.String("previous_version", old.Version),
	)
	return nil
}

// Reload re-reads the policy file. On error the active policy is kept.
func (h *Holder) Reload() error {
	if h.path == "" {
		return fmt.Errorf("reload policy: no policy file configured")
	}
	p, err := Load(h.path)
	if err != nil {
		h.logger.Error("policy reload failed, keeping active policy",
			zap.String("path", h.path), zap.Error(err))
		return err
	}
	return h.Set(p)
}

// Watch reloads the policy whenever its file is written or replaced.
// Call StopWatch to release the watcher.
func (h *Holder) Watch() error {
	if h.path == "" {
		return fmt.Errorf("watch policy: no policy file configured")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watcher != nil {
		return nil
	}

	absPath, err := filepath.Abs(h.path)
	if err != nil {
		return fmt.Errorf("resolve policy path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create policy watcher: %w", err)
	}
	// Editors often save by rename, so watch the directory.
	if err := w.Add(filepath.Dir(absPath)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(absPath), err)
	}

	h.watcher = w
	h.watchDone = make(chan struct{})
	go h.watchLoop(w, absPath, h.watchDone)

	h.logger.Info("watching policy file", zap.String("path", absPath))
	return nil
}

func (h *Holder) watchLoop(w *fsnotify.Watcher, target string, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if name, _ := filepath.Abs(ev.Name); name != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				_ = h.Reload()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Error("policy watcher error", zap.Error(err))
		}
	}
}

// StopWatch stops the file watcher if one is running.
func (h *Holder) StopWatch() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watcher == nil {
		return
	}
	_ = h.watcher.Close()
	<-h.watchDone
	h.watcher = nil
	h.watchDone = nil
}
