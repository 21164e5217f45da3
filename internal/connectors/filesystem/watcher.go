// Package filesystem watches a directory tree and submits supported files
// for ingestion as they are created or modified.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// DefaultDebounce merges bursts of writes to the same file.
const DefaultDebounce = 500 * time.Millisecond

// Submitter accepts files for ingestion.
type Submitter interface {
	Submit(ctx context.Context, path string) (string, error)
}

// TypeFilter reports whether a declared type can be extracted.
type TypeFilter func(declaredType string) bool

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a changed file is submitted.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithInitialScan controls whether Run submits existing files first.
func WithInitialScan(enabled bool) Option {
	return func(w *Watcher) {
		w.initialScan = enabled
	}
}

// Watcher submits files under a root directory to a Submitter.
// Hidden files and directories are ignored.
type Watcher struct {
	root        string
	submitter   Submitter
	supports    TypeFilter
	debounce    time.Duration
	initialScan bool

	mu      sync.Mutex
	pending map[string]*pendingSubmit
	closed  bool
}

// pendingSubmit is a debounced submission. Its address identifies it, so
// fire never reads timer.
type pendingSubmit struct {
	timer *time.Timer
}

// New creates a watcher for root.
func New(root string, submitter Submitter, supports TypeFilter, opts ...Option) *Watcher {
	w := &Watcher{
		root:        root,
		submitter:   submitter,
		supports:    supports,
		debounce:    DefaultDebounce,
		initialScan: true,
		pending:     make(map[string]*pendingSubmit),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Scan submits every supported file under dir and returns how many were accepted.
func (w *Watcher) Scan(ctx context.Context, dir string) (int, error) {
	submitted := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("scan %s: %v", path, err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path != dir && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !w.accepts(path) {
			return nil
		}
		if _, err := w.submitter.Submit(ctx, path); err != nil {
			if errors.Is(err, domain.ErrQueueClosed) {
				return err
			}
			logger.Warn("submit %s: %v", path, err)
			return nil
		}
		submitted++
		return nil
	})
	return submitted, err
}

// Run watches the root until ctx is cancelled or Close is called.
// With the initial scan enabled, existing files are submitted first.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.checkRoot(); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}

	if w.initialScan {
		n, err := w.Scan(ctx, w.root)
		if err != nil {
			return fmt.Errorf("initial scan: %w", err)
		}
		logger.Info("watch: submitted %d existing files under %s", n, w.root)
	}

	defer w.stopPending()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)
		}
	}
}

// Close cancels pending submissions. Run returns once its context is done.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.stopPending()
	return nil
}

func (w *Watcher) checkRoot() error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return errors.New("watcher is closed")
	}

	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: root path is not a directory: %s", domain.ErrInvalidInput, w.root)
	}
	return nil
}

// addTree registers dir and its non-hidden subdirectories with fsw.
// fsnotify does not watch recursively.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// handleEvent schedules a submission for created or written files.
// A new directory is watched and scanned. Removals and renames are ignored;
// indexed chunks are never removed.
func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if rel, err := filepath.Rel(w.root, event.Name); err != nil || isHidden(rel) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := w.addTree(fsw, event.Name); err != nil {
				logger.Warn("watch: %v", err)
			}
			if _, err := w.Scan(ctx, event.Name); err != nil {
				logger.Warn("scan %s: %v", event.Name, err)
			}
		}
		return
	}
	if !w.accepts(event.Name) {
		return
	}
	w.schedule(ctx, event.Name)
}

// schedule submits path once no further event for it arrives within the
// debounce window.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if p, ok := w.pending[path]; ok && p.timer.Stop() {
		p.timer.Reset(w.debounce)
		return
	}
	p := &pendingSubmit{}
	w.pending[path] = p
	p.timer = time.AfterFunc(w.debounce, func() {
		w.fire(ctx, path, p)
	})
}

func (w *Watcher) fire(ctx context.Context, path string, p *pendingSubmit) {
	w.mu.Lock()
	if w.pending[path] == p {
		delete(w.pending, path)
	}
	closed := w.closed
	w.mu.Unlock()
	if closed || ctx.Err() != nil {
		return
	}
	if _, err := w.submitter.Submit(ctx, path); err != nil {
		logger.Warn("submit %s: %v", path, err)
		return
	}
	logger.Debug("watch: submitted %s", path)
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) accepts(path string) bool {
	declared := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return declared != "" && (w.supports == nil || w.supports(declared))
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
