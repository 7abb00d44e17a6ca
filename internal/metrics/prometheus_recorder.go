package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg            *prom.Registry
	handleDuration *prom.HistogramVec
	handleResults  *prom.CounterVec
	runDuration    prom.Histogram
	runOutcome     *prom.CounterVec
	normalizer     prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{reg: reg}
	pr.handleDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "dirprocess",
		Name:      "handle_duration_seconds",
		Help:      "Duration of individual handler invocations",
		Buckets:   prom.DefBuckets,
	}, []string{"handler"})
	pr.handleResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "dirprocess",
		Name:      "handle_results_total",
		Help:      "Per-file results by handler and outcome",
	}, []string{"handler", "result"})
	pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: "dirprocess",
		Name:      "run_duration_seconds",
		Help:      "Total pipeline run duration",
		Buckets:   prom.DefBuckets,
	})
	pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "dirprocess",
		Name:      "run_outcomes_total",
		Help:      "Pipeline runs by final status",
	}, []string{"outcome"})
	pr.normalizer = prom.NewGauge(prom.GaugeOpts{
		Namespace: "dirprocess",
		Name:      "normalizer_available",
		Help:      "1 when an output normalizer was detected in the environment",
	})
	reg.MustRegister(pr.handleDuration, pr.handleResults, pr.runDuration, pr.runOutcome, pr.normalizer)
	return pr
}

func (p *PrometheusRecorder) ObserveHandleDuration(handler string, d time.Duration) {
	if p == nil || p.handleDuration == nil {
		return
	}
	p.handleDuration.WithLabelValues(handler).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncHandleResult(handler string, result ResultLabel) {
	if p == nil || p.handleResults == nil {
		return
	}
	p.handleResults.WithLabelValues(handler, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	if p == nil || p.runOutcome == nil {
		return
	}
	p.runOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetNormalizerAvailable(available bool) {
	if p == nil || p.normalizer == nil {
		return
	}
	if available {
		p.normalizer.Set(1)
		return
	}
	p.normalizer.Set(0)
}

// Registry exposes the underlying registry for gathering.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.reg
}

// WriteTextfile writes the current metric values in the text exposition format
// to path, replacing it atomically.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.reg)
}
