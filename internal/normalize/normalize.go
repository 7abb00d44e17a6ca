// Package normalize formats and repairs rendered markup.
//
// Normalization is an optional capability of the environment. Detect reports
// what is available: an external tidy binary, the in-process HTML normalizer,
// or nothing. A Normalizer never fails; on any problem it returns its input.
package normalize

import (
	"context"
	"log/slog"
	"os/exec"
)

// DefaultWidth is the column at which long lines are wrapped.
const DefaultWidth = 1000

// Normalizer indents, wraps and repairs markup. Implementations return the
// input unchanged when they cannot process it.
type Normalizer interface {
	Normalize(ctx context.Context, markup string) string
	Name() string
}

type options struct {
	width    int
	external bool
	logger   *slog.Logger
}

// Option configures Detect and the normalizer constructors.
type Option func(*options)

// WithWidth sets the wrap column. Values below one disable wrapping.
func WithWidth(width int) Option {
	return func(o *options) { o.width = width }
}

// WithoutExternal skips probing for a tidy binary.
func WithoutExternal() Option {
	return func(o *options) { o.external = false }
}

// WithLogger sets the logger for fallback diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{width: DefaultWidth, external: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// Detect returns the best normalizer available, or nil when the environment
// has none.
func Detect(opts ...Option) Normalizer {
	o := buildOptions(opts)
	fallback := inProcess(o)

	if o.external {
		if path, err := lookPath(TidyBinary); err == nil {
			return newTidy(path, o, fallback)
		}
	}
	if fallback == nil {
		return nil
	}
	return fallback
}
