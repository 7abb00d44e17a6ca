package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/dirprocess/internal/config"
	"git.home.luguber.info/inful/dirprocess/internal/handler"
	"git.home.luguber.info/inful/dirprocess/internal/metrics"
	"git.home.luguber.info/inful/dirprocess/internal/normalize"
	"git.home.luguber.info/inful/dirprocess/internal/observability"
	"git.home.luguber.info/inful/dirprocess/internal/pipeline"
	"git.home.luguber.info/inful/dirprocess/internal/plugin"
)

// Global is shared state passed to every subcommand.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"dirprocess.yaml"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log output format (text|json); overrides logging.format"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run     RunCmd     `cmd:"" help:"Process the whole input tree"`
	Render  RenderCmd  `cmd:"" help:"Process specific files: templates are rendered, other files are copied"`
	Watch   WatchCmd   `cmd:"" help:"Process the input tree and re-process it on change"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
	Filters FiltersCmd `cmd:"" help:"List the template filters available to templates"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(newLogger(os.Stderr, level, config.NormalizeLogFormat(c.LogFormat)))
	return nil
}

// loadConfig loads the configuration and re-applies logging settings from it.
// Command line flags win over the file.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level.SlogLevel()
	if c.Verbose {
		level = slog.LevelDebug
	}
	format := cfg.Logging.Format
	if c.LogFormat != "" {
		format = config.NormalizeLogFormat(c.LogFormat)
	}
	logger := newLogger(os.Stderr, level, format)
	slog.SetDefault(logger)
	if g != nil {
		g.Logger = logger
	}
	return cfg, nil
}

func newLogger(w io.Writer, level slog.Level, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if format == config.LogFormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(observability.NewContextHandler(h))
}

// stack is the wired pipeline for one command invocation.
type stack struct {
	runner   *pipeline.Runner
	prom     *metrics.PrometheusRecorder
	textfile string
}

// newStack registers the template handler and builds a runner for cfg.
func newStack(cfg *config.Config, logger *slog.Logger) (*stack, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &stack{textfile: cfg.Metrics.Textfile}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if s.textfile != "" {
		s.prom = metrics.NewPrometheusRecorder(nil)
		recorder = s.prom
	}

	norm := normalize.Detect(normalize.WithLogger(logger))
	if norm != nil {
		logger.Debug("Output normalizer detected", slog.String("normalizer", norm.Name()))
	}

	registry := plugin.NewRegistry()
	h := handler.New(cfg,
		handler.WithNormalizer(norm),
		handler.WithRecorder(recorder),
		handler.WithLogger(logger),
	)
	if err := registry.Register(h); err != nil {
		return nil, fmt.Errorf("register %s: %w", h.Metadata(), err)
	}

	s.runner = pipeline.New(cfg, registry,
		pipeline.WithRecorder(recorder),
		pipeline.WithLogger(logger),
	)
	return s, nil
}

// writeMetrics exports the metrics textfile when one is configured.
func (s *stack) writeMetrics() {
	if s.prom == nil {
		return
	}
	if err := s.prom.WriteTextfile(s.textfile); err != nil {
		slog.Warn("Failed to write metrics textfile", "path", s.textfile, "error", err)
	}
}

// finish prints the report, exports metrics and turns the outcome into the
// command's error.
func (s *stack) finish(w io.Writer, report *pipeline.Report, err error) error {
	s.writeMetrics()
	if report != nil {
		printSummary(w, report)
	}
	if err != nil {
		return err
	}
	return report.Err()
}

func printSummary(w io.Writer, r *pipeline.Report) {
	_, _ = fmt.Fprintf(w, "Rendered %d, copied %d, skipped %d, failed %d in %s\n",
		len(r.Handled), len(r.Copied), len(r.Skipped), len(r.Errors), r.Duration().Round(time.Millisecond))
	for _, fe := range r.Errors {
		_, _ = fmt.Fprintf(w, "  %s\n", fe.Error())
	}
	for _, name := range r.Disabled {
		_, _ = fmt.Fprintf(w, "  handler %s disabled for this run\n", name)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
