package config

import "time"

const (
	DefaultWorkers         = 1
	DefaultInputExtension  = "twig"
	DefaultOutputExtension = "html"
	DefaultDebounce        = 300 * time.Millisecond

	// NoOutputExtension disables appending an output extension; the source
	// extension is stripped only.
	NoOutputExtension = "none"
)

// ApplyDefaults fills unset values. It is idempotent.
func ApplyDefaults(c *Config) {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.TemplateHandler.InputExtension == "" {
		c.TemplateHandler.InputExtension = DefaultInputExtension
	}
	if c.TemplateHandler.OutputExtension == "" {
		c.TemplateHandler.OutputExtension = DefaultOutputExtension
	}
	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = DefaultDebounce
	}
}

// ResolvedOutputExtension returns the extension appended to outputs, or "" when the
// handler should only strip the source extension.
func (t TemplateHandlerConfig) ResolvedOutputExtension() string {
	if t.OutputExtension == NoOutputExtension {
		return ""
	}
	return t.OutputExtension
}
