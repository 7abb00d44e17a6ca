package metrics

import "time"

// ResultLabel enumerates per-file result categories for counters.
type ResultLabel string

const (
	ResultRendered ResultLabel = "rendered"
	ResultSkipped  ResultLabel = "skipped"
	ResultFailed   ResultLabel = "failed"
	ResultCopied   ResultLabel = "copied"
)

// Recorder defines observability hooks for handler and run metrics.
type Recorder interface {
	ObserveHandleDuration(handler string, d time.Duration)
	IncHandleResult(handler string, result ResultLabel)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome string) // outcome: success|failed|canceled
	SetNormalizerAvailable(available bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveHandleDuration(string, time.Duration) {}
func (NoopRecorder) IncHandleResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveRunDuration(time.Duration)            {}
func (NoopRecorder) IncRunOutcome(string)                        {}
func (NoopRecorder) SetNormalizerAvailable(bool)                 {}
