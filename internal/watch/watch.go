// Package watch re-resolves the dependency source when the fork or the
// config file changes on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ppiankov/forkpin/internal/gate"
)

// DefaultDebounce is the quiet period after the last event before re-checking.
const DefaultDebounce = 300 * time.Millisecond

// Checker runs one resolution. *gate.Gate implements it.
type Checker interface {
	Check(ctx context.Context) (gate.Outcome, error)
}

// ReloadFunc rebuilds the checker after a config file event and returns the
// fork path it resolves against.
type ReloadFunc func() (Checker, string, error)

// ChangeFunc receives the previous and current outcome whenever the outcome
// key changes. prev is the zero Outcome on the first call.
type ChangeFunc func(prev, cur gate.Outcome)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// OnChange registers the transition callback.
func OnChange(fn ChangeFunc) Option {
	return func(w *Watcher) { w.onChange = fn }
}

// WithReload makes config file events rebuild the checker through fn.
// Without it the checker built at startup is kept.
func WithReload(fn ReloadFunc) Option {
	return func(w *Watcher) { w.reload = fn }
}

// Watcher watches the fork directory, its parent and the directories of
// any extra files.
type Watcher struct {
	watcher  *fsnotify.Watcher
	checker  Checker
	forkPath string
	extra    []string
	debounce time.Duration
	logger   *zap.Logger
	onChange ChangeFunc
	reload   ReloadFunc

	last  gate.Outcome
	seen  bool
	dirty bool // a config file event is pending
}

// New creates a Watcher for forkPath plus extra files (typically the config
// file). Extra files are watched through their directory so that
// rename-on-save and late creation are observed. Paths that do not exist
// yet are skipped; the fork is re-added when it appears.
func New(checker Checker, forkPath string, extra []string, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create file watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		checker:  checker,
		forkPath: filepath.Clean(forkPath),
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(w)
	}

	dirs := []string{filepath.Dir(w.forkPath), w.forkPath}
	for _, p := range extra {
		if p == "" {
			continue
		}
		p = filepath.Clean(p)
		w.extra = append(w.extra, p)
		dirs = append(dirs, filepath.Dir(p))
	}
	for _, d := range dirs {
		if err := w.add(d); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// add watches dir if it exists. A missing directory is not an error.
func (w *Watcher) add(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch: watch %q: %w", dir, err)
	}
	return nil
}

// Watched returns the paths currently registered with fsnotify.
func (w *Watcher) Watched() []string {
	return w.watcher.WatchList()
}

// ForkPath returns the fork directory currently being watched.
func (w *Watcher) ForkPath() string {
	return w.forkPath
}

// Run performs an initial check, then re-checks after each burst of
// filesystem events. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	w.evaluate(ctx)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if w.isExtra(event.Name) {
				w.dirty = true
			}
			w.logger.Debug("filesystem event", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if w.dirty {
				w.dirty = false
				w.reloadChecker()
			}
			w.rewatchFork()
			w.evaluate(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

// relevant filters directory noise down to events on the fork path,
// its direct children, and the extra files.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	name := filepath.Clean(ev.Name)
	if name == w.forkPath || filepath.Dir(name) == w.forkPath {
		return true
	}
	return w.isExtra(name)
}

func (w *Watcher) isExtra(name string) bool {
	name = filepath.Clean(name)
	for _, p := range w.extra {
		if name == p {
			return true
		}
	}
	return false
}

// reloadChecker swaps in a checker built from the current config. On
// failure the previous checker stays in place.
func (w *Watcher) reloadChecker() {
	if w.reload == nil {
		return
	}
	checker, forkPath, err := w.reload()
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous settings", zap.Error(err))
		return
	}
	w.checker = checker
	w.logger.Info("config reloaded", zap.String("fork_path", forkPath))
	w.retarget(forkPath)
}

// retarget moves the fork watches to forkPath.
func (w *Watcher) retarget(forkPath string) {
	forkPath = filepath.Clean(forkPath)
	if forkPath == w.forkPath {
		return
	}
	old := []string{w.forkPath, filepath.Dir(w.forkPath)}
	w.forkPath = forkPath

	for _, p := range old {
		if w.needed(p) {
			continue
		}
		// Remove fails for paths that were never added; nothing to undo.
		_ = w.watcher.Remove(p)
	}
	if err := w.add(filepath.Dir(forkPath)); err != nil {
		w.logger.Warn("watching fork parent failed", zap.Error(err))
	}
}

// needed reports whether dir is still required by the current targets.
func (w *Watcher) needed(dir string) bool {
	if dir == w.forkPath || dir == filepath.Dir(w.forkPath) {
		return true
	}
	for _, p := range w.extra {
		if dir == filepath.Dir(p) {
			return true
		}
	}
	return false
}

func (w *Watcher) rewatchFork() {
	info, err := os.Stat(w.forkPath)
	if err != nil || !info.IsDir() {
		return
	}
	for _, p := range w.watcher.WatchList() {
		if p == w.forkPath {
			return
		}
	}
	if err := w.watcher.Add(w.forkPath); err != nil {
		w.logger.Warn("re-watching fork failed", zap.String("path", w.forkPath), zap.Error(err))
	}
}

func (w *Watcher) evaluate(ctx context.Context) {
	cur, _ := w.checker.Check(ctx)
	if w.seen && cur.Key() == w.last.Key() {
		return
	}
	prev := w.last
	w.last, w.seen = cur, true
	w.logger.Info("source outcome changed", zap.String("from", prev.Key()), zap.String("to", cur.Key()))
	if w.onChange != nil {
		w.onChange(prev, cur)
	}
}
