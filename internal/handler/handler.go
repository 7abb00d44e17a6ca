// Package handler implements the template render handler: it renders a
// template source found under the input root, optionally normalizes the
// markup and writes the result under the process root.
package handler

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"git.home.luguber.info/inful/dirprocess/internal/config"
	"git.home.luguber.info/inful/dirprocess/internal/engine"
	dpcerrors "git.home.luguber.info/inful/dirprocess/internal/errors"
	"git.home.luguber.info/inful/dirprocess/internal/filter"
	"git.home.luguber.info/inful/dirprocess/internal/fsutil"
	"git.home.luguber.info/inful/dirprocess/internal/logfields"
	"git.home.luguber.info/inful/dirprocess/internal/metrics"
	"git.home.luguber.info/inful/dirprocess/internal/normalize"
	"git.home.luguber.info/inful/dirprocess/internal/plugin"
)

const (
	// Name identifies the handler in logs, metrics and the registry.
	Name    = "template"
	Version = "v1.0.0"
)

// TemplateHandler renders template files. It holds no mutable state and may
// be invoked concurrently for distinct paths.
type TemplateHandler struct {
	cfg        *config.Config
	normalizer normalize.Normalizer
	recorder   metrics.Recorder
	logger     *slog.Logger
	filters    []*filter.Filter
	bindErr    error
}

// Option configures a TemplateHandler.
type Option func(*TemplateHandler)

// WithNormalizer sets the output normalizer. nil disables normalization.
func WithNormalizer(n normalize.Normalizer) Option {
	return func(h *TemplateHandler) { h.normalizer = n }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(h *TemplateHandler) {
		if r != nil {
			h.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *TemplateHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithFilters enables custom filters on every render, in addition to md and
// the filters named in the configuration.
func WithFilters(filters ...*filter.Filter) Option {
	return func(h *TemplateHandler) { h.filters = append(h.filters, filters...) }
}

// New creates a template handler reading cfg. Without WithNormalizer the
// handler renders without normalization.
func New(cfg *config.Config, opts ...Option) *TemplateHandler {
	h := &TemplateHandler{
		cfg:      cfg,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.recorder.SetNormalizerAvailable(h.normalizer != nil)
	if err := engine.Bind(h.filters...); err != nil {
		h.bindErr = dpcerrors.ValidationFailed("filters", err.Error())
	}
	return h
}

var (
	_ plugin.Handler      = (*TemplateHandler)(nil)
	_ plugin.OutputMapper = (*TemplateHandler)(nil)
)

// Metadata implements plugin.Handler.
func (h *TemplateHandler) Metadata() plugin.HandlerMetadata {
	caps := []string{plugin.CapabilityMarkdown, plugin.CapabilityFilters}
	if h.normalizer != nil {
		caps = append(caps, plugin.CapabilityNormalize)
	}
	return plugin.HandlerMetadata{
		Name:         Name,
		Version:      Version,
		Type:         plugin.HandlerTypeRender,
		Description:  "Render template files to HTML",
		Capabilities: caps,
	}
}

// InputExtension implements plugin.Handler.
func (h *TemplateHandler) InputExtension() string {
	if ext := plugin.NormalizeExtension(h.cfg.TemplateHandler.InputExtension); ext != "" {
		return ext
	}
	return config.DefaultInputExtension
}

// OutputExtension implements plugin.Handler. Empty means the source
// extension is stripped and nothing is appended.
func (h *TemplateHandler) OutputExtension() string {
	return plugin.NormalizeExtension(h.cfg.TemplateHandler.ResolvedOutputExtension())
}

// OutputPath implements plugin.OutputMapper.
func (h *TemplateHandler) OutputPath(source string) (string, error) {
	return OutputPath(h.cfg.InputRoot, h.cfg.ProcessRoot, source, h.OutputExtension())
}

// Handle renders the template at path and writes the output. It always
// reports false: the source must not be copied to the process root.
//
// A missing source is skipped without error. A missing template root is a
// fatal configuration error. Resolution, render and write failures are
// returned for the file; nothing is written in those cases.
func (h *TemplateHandler) Handle(ctx context.Context, path string) (bool, error) {
	start := time.Now()
	result := metrics.ResultRendered
	defer func() {
		h.recorder.ObserveHandleDuration(Name, time.Since(start))
		h.recorder.IncHandleResult(Name, result)
	}()

	log := h.logger.With(logfields.Handler(Name), logfields.Path(path))

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()):
		log.Debug("Source file does not exist, skipping")
		result = metrics.ResultSkipped
		return false, nil
	case err != nil:
		result = metrics.ResultFailed
		return false, dpcerrors.Wrap(err, dpcerrors.CategoryFileSystem, dpcerrors.SeverityError, "cannot read source file").
			WithContext("path", path)
	}

	templateRoot := h.cfg.TemplateHandler.TemplateRoot
	if templateRoot == "" {
		const field = "template_handler.template_root"
		err := dpcerrors.ConfigRequired(field)
		log.Error("Template root is not configured", slog.String("field", field), logfields.Error(err))
		result = metrics.ResultFailed
		return false, err
	}

	if h.bindErr != nil {
		result = metrics.ResultFailed
		return false, h.bindErr
	}

	if err := ctx.Err(); err != nil {
		result = metrics.ResultSkipped
		return false, err
	}

	output, outPath, err := h.render(ctx, log, path)
	if err != nil {
		log.Warn("Template rendering failed", logfields.Error(err))
		result = metrics.ResultFailed
		return false, err
	}

	if err := fsutil.WriteString(outPath, output); err != nil {
		result = metrics.ResultFailed
		return false, dpcerrors.WriteFailed(outPath, err)
	}

	log.Info("Rendered template",
		logfields.Output(outPath),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	return false, nil
}

func (h *TemplateHandler) render(ctx context.Context, log *slog.Logger, path string) (string, string, error) {
	id, err := TemplateID(h.cfg.InputRoot, path)
	if err != nil {
		return "", "", err
	}
	outPath, err := h.OutputPath(path)
	if err != nil {
		return "", "", err
	}

	configured, err := filter.Resolve(h.cfg.TemplateHandler.Filters)
	if err != nil {
		return "", "", dpcerrors.ValidationFailed("template_handler.filters", err.Error())
	}

	eng, err := engine.New(
		engine.WithTemplateRoot(h.cfg.TemplateHandler.TemplateRoot),
		engine.WithFilters(configured...),
		engine.WithFilters(h.filters...),
		engine.WithLogger(log),
	)
	if err != nil {
		return "", "", err
	}

	output, err := eng.Render(id, h.cfg.TemplateHandler.RenderData)
	if err != nil {
		return "", "", err
	}

	if h.normalizer != nil {
		output = h.normalizer.Normalize(ctx, output)
	}
	return output, outPath, nil
}
