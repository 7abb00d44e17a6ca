// Package watch keeps the process root in sync with the input tree: after an
// initial full run, changed files are re-processed and template changes
// trigger a full run.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/dirprocess/internal/config"
	"git.home.luguber.info/inful/dirprocess/internal/fsutil"
	"git.home.luguber.info/inful/dirprocess/internal/logfields"
	"git.home.luguber.info/inful/dirprocess/internal/pipeline"
)

// Processor runs the pipeline. *pipeline.Runner implements it.
type Processor interface {
	Run(ctx context.Context) (*pipeline.Report, error)
	ProcessFiles(ctx context.Context, paths []string) (*pipeline.Report, error)
}

// Watcher drives a Processor from filesystem events.
type Watcher struct {
	inputRoot    string
	processRoot  string
	templateRoot string
	proc         Processor
	debounce     time.Duration
	resync       time.Duration
	logger       *slog.Logger
	onReport     func(*pipeline.Report, error)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the watcher waits for events to settle.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithResyncInterval schedules periodic full runs. Zero disables them.
func WithResyncInterval(d time.Duration) Option {
	return func(w *Watcher) { w.resync = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithReportHandler is called after every run.
func WithReportHandler(fn func(*pipeline.Report, error)) Option {
	return func(w *Watcher) { w.onReport = fn }
}

// New creates a watcher for cfg.
func New(cfg *config.Config, proc Processor, opts ...Option) *Watcher {
	w := &Watcher{
		inputRoot:    filepath.Clean(cfg.InputRoot),
		processRoot:  filepath.Clean(cfg.ProcessRoot),
		templateRoot: cfg.TemplateHandler.TemplateRoot,
		proc:         proc,
		debounce:     cfg.Watch.Debounce,
		resync:       cfg.Watch.ResyncInterval,
		logger:       slog.Default(),
	}
	if w.templateRoot != "" {
		w.templateRoot = filepath.Clean(w.templateRoot)
	}
	if w.debounce <= 0 {
		w.debounce = config.DefaultDebounce
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// action is what an event asks the watcher to do.
type action int

const (
	actionIgnore action = iota
	actionFile
	actionFull
	actionWatchDir
)

// batch accumulates work between debounce flushes.
type batch struct {
	full  bool
	paths map[string]struct{}
}

func newBatch() *batch { return &batch{paths: make(map[string]struct{})} }

func (b *batch) empty() bool { return !b.full && len(b.paths) == 0 }

func (b *batch) sorted() []string {
	out := make([]string, 0, len(b.paths))
	for p := range b.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Run performs an initial full run and then processes changes until ctx is
// done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() {
		_ = fw.Close()
	}()

	for _, root := range w.roots() {
		if err := w.addDirsRecursive(fw, root); err != nil {
			return err
		}
	}

	resyncReq := make(chan struct{}, 1)
	if w.resync > 0 {
		sched, err := newResyncScheduler(w.resync, func() {
			select {
			case resyncReq <- struct{}{}:
			default:
			}
		})
		if err != nil {
			return err
		}
		sched.start()
		defer func() {
			if err := sched.stop(); err != nil {
				w.logger.Warn("Resync scheduler shutdown failed", logfields.Error(err))
			}
		}()
	}

	w.flush(ctx, &batch{full: true})
	w.logger.Info("Watching for changes", slog.String("input_root", w.inputRoot))

	pending := newBatch()
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(fw, ev, pending) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		case <-resyncReq:
			w.logger.Info("Periodic resync")
			pending.full = true
			timer.Reset(0)
		case <-timer.C:
			if !pending.empty() {
				w.flush(ctx, pending)
				pending = newBatch()
			}
		}
	}
}

// roots returns the directories to watch.
func (w *Watcher) roots() []string {
	roots := []string{w.inputRoot}
	if w.templateRoot != "" && !fsutil.Within(w.inputRoot, w.templateRoot) {
		roots = append(roots, w.templateRoot)
	}
	return roots
}

// handleEvent records ev in pending and reports whether it requires work.
func (w *Watcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event, pending *batch) bool {
	switch w.classify(ev) {
	case actionFile:
		w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
		pending.paths[ev.Name] = struct{}{}
		return true
	case actionFull:
		w.logger.Debug("Template change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
		pending.full = true
		return true
	case actionWatchDir:
		_ = w.addDirsRecursive(fw, ev.Name)
		pending.full = true
		return true
	default:
		return false
	}
}

// classify decides how to react to ev.
func (w *Watcher) classify(ev fsnotify.Event) action {
	path := filepath.Clean(ev.Name)
	if shouldIgnoreEvent(path) || w.isOutput(path) {
		return actionIgnore
	}

	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(path); err == nil && fi.IsDir() {
			return actionWatchDir
		}
	}

	inTemplates := w.templateRoot != "" && fsutil.Within(w.templateRoot, path)
	removed := ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0

	switch {
	case inTemplates && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0:
		// Any template may be included by others.
		return actionFull
	case removed:
		return actionIgnore
	case fsutil.Within(w.inputRoot, path) && ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
		return actionFile
	default:
		return actionIgnore
	}
}

func (w *Watcher) isOutput(path string) bool {
	return fsutil.Within(w.inputRoot, w.processRoot) && fsutil.Within(w.processRoot, path)
}

func (w *Watcher) flush(ctx context.Context, b *batch) {
	if ctx.Err() != nil {
		return
	}
	var (
		report *pipeline.Report
		err    error
	)
	if b.full {
		report, err = w.proc.Run(ctx)
	} else {
		report, err = w.proc.ProcessFiles(ctx, b.sorted())
	}
	if err != nil && ctx.Err() == nil {
		w.logger.Error("Run failed", logfields.Error(err))
	}
	if w.onReport != nil {
		w.onReport(report, err)
	}
}

func (w *Watcher) addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.isOutput(path) || (path != root && strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			w.logger.Warn("Watch add failed", slog.String("dir", path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger runs.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	// Ignore hidden files
	if strings.HasPrefix(base, ".") {
		return true
	}

	// Ignore editor temp/swap files
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	// Ignore common lock files
	return base == "Thumbs.db" || base == "4913"
}
