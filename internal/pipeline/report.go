package pipeline

import (
	"fmt"
	"sort"
	"sync"
	"time"

	dpcerrors "git.home.luguber.info/inful/dirprocess/internal/errors"
)

// FileError records a per-file failure. Paths are relative to the input root.
type FileError struct {
	Path    string
	Handler string
	Err     error
}

func (e FileError) Error() string {
	if e.Handler == "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Path, e.Handler, e.Err)
}

func (e FileError) Unwrap() error { return e.Err }

// Report summarizes a run. Path lists are relative to the input root and
// sorted.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time

	// Handled lists files a handler processed without requesting a copy.
	Handled []string
	// Copied lists files copied verbatim to the process root.
	Copied []string
	// Skipped lists files not processed because their handler was disabled
	// or the source no longer exists.
	Skipped []string
	Errors  []FileError
	// Disabled lists handlers turned off after a fatal error.
	Disabled []string
}

// Failed reports whether any file failed.
func (r *Report) Failed() bool { return len(r.Errors) > 0 }

// Err returns the most severe error of the run: the first fatal one, else the
// first error, else nil.
func (r *Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	for _, fe := range r.Errors {
		if dpcerrors.IsFatal(fe.Err) {
			return fe.Err
		}
	}
	return r.Errors[0].Err
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// collector accumulates results from concurrent workers.
type collector struct {
	mu       sync.Mutex
	report   *Report
	disabled map[string]error
}

func newCollector(runID string) *collector {
	return &collector{
		report:   &Report{RunID: runID, Started: time.Now()},
		disabled: make(map[string]error),
	}
}

func (c *collector) handled(rel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Handled = append(c.report.Handled, rel)
}

func (c *collector) copied(rel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Copied = append(c.report.Copied, rel)
}

func (c *collector) skipped(rel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Skipped = append(c.report.Skipped, rel)
}

func (c *collector) fail(rel, handler string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Errors = append(c.report.Errors, FileError{Path: rel, Handler: handler, Err: err})
}

// disable turns a handler off for the rest of the run. It reports whether the
// call changed the state.
func (c *collector) disable(handler string, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.disabled[handler]; ok {
		return false
	}
	c.disabled[handler] = err
	c.report.Disabled = append(c.report.Disabled, handler)
	return true
}

func (c *collector) isDisabled(handler string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.disabled[handler]
	return ok
}

func (c *collector) finish() *Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.report
	r.Finished = time.Now()
	sort.Strings(r.Handled)
	sort.Strings(r.Copied)
	sort.Strings(r.Skipped)
	sort.Strings(r.Disabled)
	sort.Slice(r.Errors, func(i, j int) bool { return r.Errors[i].Path < r.Errors[j].Path })
	return r
}
