// Package pipeline walks the input tree and dispatches each file to the
// handler registered for its extension. Files without a handler, and files
// whose handler asks for it, are copied to the process root.
package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/dirprocess/internal/config"
	dpcerrors "git.home.luguber.info/inful/dirprocess/internal/errors"
	"git.home.luguber.info/inful/dirprocess/internal/fsutil"
	"git.home.luguber.info/inful/dirprocess/internal/logfields"
	"git.home.luguber.info/inful/dirprocess/internal/metrics"
	"git.home.luguber.info/inful/dirprocess/internal/observability"
	"git.home.luguber.info/inful/dirprocess/internal/plugin"
)

// copyHandlerName labels verbatim copies in metrics and reports.
const copyHandlerName = "copy"

// Runner executes pipeline runs.
type Runner struct {
	inputRoot   string
	processRoot string
	registry    *plugin.Registry
	recorder    metrics.Recorder
	logger      *slog.Logger
	workers     int
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Runner) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Runner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithWorkers overrides the configured parallelism.
func WithWorkers(n int) Option {
	return func(p *Runner) {
		if n > 0 {
			p.workers = n
		}
	}
}

// New creates a runner for cfg dispatching through registry.
func New(cfg *config.Config, registry *plugin.Registry, opts ...Option) *Runner {
	r := &Runner{
		inputRoot:   filepath.Clean(cfg.InputRoot),
		processRoot: filepath.Clean(cfg.ProcessRoot),
		registry:    registry,
		recorder:    metrics.NoopRecorder{},
		logger:      slog.Default(),
		workers:     cfg.Workers,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers < 1 {
		r.workers = config.DefaultWorkers
	}
	return r
}

// Run processes the whole input tree. The returned error is non-nil only when
// the run could not proceed (unreadable input root, cancellation); per-file
// failures are in the report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	runID := uuid.NewString()
	ctx = observability.WithRunID(ctx, runID)
	r.logger.InfoContext(ctx, "Starting run", slog.String("input_root", r.inputRoot), slog.String("process_root", r.processRoot))

	c := newCollector(runID)
	files, err := r.walk(ctx, c)
	if err != nil {
		report := c.finish()
		r.finishRun(ctx, report, err)
		return report, err
	}
	return r.process(ctx, c, r.excludeConflicts(ctx, c, files, files))
}

// ProcessFiles dispatches the given absolute paths as one run. Paths outside
// the input root are reported as errors.
func (r *Runner) ProcessFiles(ctx context.Context, paths []string) (*Report, error) {
	runID := uuid.NewString()
	ctx = observability.WithRunID(ctx, runID)

	c := newCollector(runID)
	files := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil || !fsutil.Within(r.inputRoot, abs) || abs == r.inputRoot {
			c.fail(p, "", dpcerrors.SourceOutsideRoot(p, r.inputRoot))
			continue
		}
		files = append(files, abs)
	}

	// Outputs are claimed by the whole tree, not only by this batch.
	tree, err := r.walk(ctx, newCollector(runID))
	if err != nil {
		if ctx.Err() != nil {
			report := c.finish()
			r.finishRun(ctx, report, ctx.Err())
			return report, ctx.Err()
		}
		r.logger.WarnContext(ctx, "Cannot walk input tree, checking output conflicts within the batch only", logfields.Error(err))
		tree = nil
	}
	return r.process(ctx, c, r.excludeConflicts(ctx, c, files, append(tree, files...)))
}

// destination returns the output path a source claims. Files without an
// output mapping claim their copy destination.
func (r *Runner) destination(path string) (string, bool) {
	if h, ok := r.registry.ForPath(path); ok {
		if m, ok := h.(plugin.OutputMapper); ok {
			out, err := m.OutputPath(path)
			if err != nil {
				return "", false
			}
			return filepath.Clean(out), true
		}
	}
	return filepath.Join(r.processRoot, filepath.FromSlash(r.rel(path))), true
}

// excludeConflicts records an error for every file in files whose output is
// also claimed by another file in tree, and returns the remaining files.
func (r *Runner) excludeConflicts(ctx context.Context, c *collector, files, tree []string) []string {
	claims := make(map[string][]string)
	seen := make(map[string]bool, len(tree))
	for _, path := range tree {
		if seen[path] {
			continue
		}
		seen[path] = true
		if dst, ok := r.destination(path); ok {
			claims[dst] = append(claims[dst], path)
		}
	}

	kept := make([]string, 0, len(files))
	for _, path := range files {
		dst, ok := r.destination(path)
		if !ok || len(claims[dst]) < 2 {
			kept = append(kept, path)
			continue
		}
		sources := make([]string, 0, len(claims[dst]))
		for _, p := range claims[dst] {
			sources = append(sources, r.rel(p))
		}
		sort.Strings(sources)
		name := copyHandlerName
		if h, ok := r.registry.ForPath(path); ok {
			name = h.Metadata().Name
		}
		r.logger.WarnContext(ctx, "Output claimed by several sources, not processing",
			logfields.Path(path), logfields.Output(dst), slog.Any("sources", sources))
		c.fail(r.rel(path), name, dpcerrors.OutputConflict(dst, sources))
	}
	return kept
}

func (r *Runner) walk(ctx context.Context, c *collector) ([]string, error) {
	ctx = observability.WithStage(ctx, "walk")
	var files []string
	nestedOutput := fsutil.Within(r.inputRoot, r.processRoot)

	err := filepath.WalkDir(r.inputRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == r.inputRoot {
				return err
			}
			c.fail(r.rel(path), "", dpcerrors.Wrap(err, dpcerrors.CategoryFileSystem, dpcerrors.SeverityError, "cannot read input"))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			// A process root nested in the input tree is output, not input.
			if nestedOutput && fsutil.Within(r.processRoot, path) {
				r.logger.DebugContext(ctx, "Skipping process root", logfields.Path(path))
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			r.logger.DebugContext(ctx, "Skipping non-regular file", logfields.Path(path))
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, dpcerrors.WalkFailed(r.inputRoot, err)
	}

	sort.Strings(files)
	r.logger.DebugContext(ctx, "Walked input tree", logfields.Count(len(files)))
	return files, nil
}

// process fans files out to r.workers goroutines.
func (r *Runner) process(ctx context.Context, c *collector, files []string) (*Report, error) {
	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{} // Acquire semaphore
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }() // Release semaphore
			r.dispatch(ctx, c, path)
		}(path)
	}
	wg.Wait()

	report := c.finish()
	err := ctx.Err()
	r.finishRun(ctx, report, err)
	return report, err
}

func (r *Runner) dispatch(ctx context.Context, c *collector, path string) {
	rel := r.rel(path)

	// Sources can disappear between the walk and dispatch, mostly in watch mode.
	if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
		r.logger.DebugContext(ctx, "Source vanished, skipping", logfields.Path(path))
		c.skipped(rel)
		return
	}

	h, ok := r.registry.ForPath(path)
	if !ok {
		r.copy(ctx, c, path, rel)
		return
	}

	name := h.Metadata().Name
	if c.isDisabled(name) {
		c.skipped(rel)
		return
	}

	copyOriginal, err := h.Handle(observability.WithHandler(ctx, name), path)
	if err != nil {
		if _, ok := dpcerrors.As(err); !ok && ctx.Err() == nil {
			err = dpcerrors.HandlerFailed(name, err).WithContext("path", path)
		}
		c.fail(rel, name, err)
		if dpcerrors.IsFatal(err) && c.disable(name, err) {
			r.logger.ErrorContext(ctx, "Disabling handler for the rest of the run",
				logfields.Handler(name), logfields.Error(err))
		}
		return
	}
	if copyOriginal {
		r.copy(ctx, c, path, rel)
		return
	}
	c.handled(rel)
}

func (r *Runner) copy(ctx context.Context, c *collector, path, rel string) {
	dst := filepath.Join(r.processRoot, rel)
	start := time.Now()
	err := fsutil.CopyFile(path, dst)
	r.recorder.ObserveHandleDuration(copyHandlerName, time.Since(start))
	if err != nil {
		r.recorder.IncHandleResult(copyHandlerName, metrics.ResultFailed)
		c.fail(rel, copyHandlerName, dpcerrors.WriteFailed(dst, err))
		return
	}
	r.recorder.IncHandleResult(copyHandlerName, metrics.ResultCopied)
	r.logger.DebugContext(ctx, "Copied file", logfields.Path(path), logfields.Output(dst))
	c.copied(rel)
}

func (r *Runner) rel(path string) string {
	rel, err := filepath.Rel(r.inputRoot, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (r *Runner) finishRun(ctx context.Context, report *Report, err error) {
	outcome := "success"
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		outcome = "canceled"
	case err != nil || report.Failed():
		outcome = "failed"
	}
	r.recorder.ObserveRunDuration(report.Duration())
	r.recorder.IncRunOutcome(outcome)

	attrs := []any{
		slog.String("outcome", outcome),
		slog.Int("handled", len(report.Handled)),
		slog.Int("copied", len(report.Copied)),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("errors", len(report.Errors)),
		logfields.DurationMS(float64(report.Duration().Microseconds()) / 1000),
	}
	if outcome == "success" {
		r.logger.InfoContext(ctx, "Run finished", attrs...)
		return
	}
	r.logger.WarnContext(ctx, "Run finished", attrs...)
}
