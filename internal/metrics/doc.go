// Package metrics provides observability hooks for dirprocess runs.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	h := handler.New(cfg) // records nothing
//	h = handler.New(cfg, handler.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// dirprocess is a batch tool, so the Prometheus implementation is exported as a
// node-exporter textfile (WriteTextfile) at the end of a run rather than served
// over HTTP.
package metrics
