// Package engine adapts pongo2 for rendering template files from a root
// directory with a per-engine set of string filters.
package engine

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	dpcerrors "git.home.luguber.info/inful/dirprocess/internal/errors"
	"git.home.luguber.info/inful/dirprocess/internal/filter"
	"git.home.luguber.info/inful/dirprocess/internal/logfields"
)

// Engine renders templates resolved under a single root.
type Engine struct {
	root   string
	fsys   fs.FS
	logger *slog.Logger

	mu      sync.RWMutex
	filters map[string]*filter.Filter
}

type options struct {
	root    string
	fsys    fs.FS
	filters []*filter.Filter
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*options)

// WithTemplateRoot resolves templates under dir on the local filesystem.
func WithTemplateRoot(dir string) Option {
	return func(o *options) { o.root = dir }
}

// WithFS resolves templates in fsys. It takes precedence over WithTemplateRoot.
func WithFS(fsys fs.FS) Option {
	return func(o *options) { o.fsys = fsys }
}

// WithFilters enables filters in addition to md.
func WithFilters(filters ...*filter.Filter) Option {
	return func(o *options) { o.filters = append(o.filters, filters...) }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates an engine. The md filter is always enabled.
func New(opts ...Option) (*Engine, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	e := &Engine{
		root:    o.root,
		fsys:    o.fsys,
		logger:  o.logger,
		filters: make(map[string]*filter.Filter),
	}

	if e.fsys == nil {
		if o.root == "" {
			return nil, dpcerrors.ConfigRequired("template_handler.template_root")
		}
		info, err := os.Stat(o.root)
		if err != nil {
			return nil, dpcerrors.ConfigInvalid(fmt.Errorf("template root %s: %w", o.root, err))
		}
		if !info.IsDir() {
			return nil, dpcerrors.ValidationFailed("template_handler.template_root", "not a directory: "+o.root)
		}
		e.fsys = os.DirFS(o.root)
	}

	if err := e.RegisterFilter(filter.Markdown); err != nil {
		return nil, err
	}
	for _, f := range o.filters {
		if err := e.RegisterFilter(f); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// RegisterFilter enables f on this engine. Registering the same filter twice is
// a no-op; binding its name to a different implementation is an error.
func (e *Engine) RegisterFilter(f *filter.Filter) error {
	if f == nil || f.Fn == nil {
		return dpcerrors.ValidationFailed("filter", "filter has no implementation")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.filters[f.Name]; ok {
		if existing == f {
			return nil
		}
		return dpcerrors.ValidationFailed("filter", fmt.Sprintf("filter %q is already registered with a different implementation", f.Name))
	}
	if err := bind(f); err != nil {
		return dpcerrors.ValidationFailed("filter", err.Error())
	}
	e.filters[f.Name] = f
	return nil
}

// Filters returns the names of the enabled filters.
func (e *Engine) Filters() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.filters))
	for name := range e.filters {
		names = append(names, name)
	}
	return names
}

// Render renders the template identified by id. The identifier is a slash
// separated path relative to the root; a leading slash is ignored.
//
// Unresolvable identifiers yield a template category error. Parse, expression,
// include and filter failures yield a render category error.
func (e *Engine) Render(id string, data map[string]any) (string, error) {
	name, err := e.resolve(id)
	if err != nil {
		return "", err
	}

	set, err := e.newSet()
	if err != nil {
		return "", dpcerrors.InternalError("failed to prepare template set", err)
	}

	tpl, err := set.FromFile(name)
	if err != nil {
		return "", dpcerrors.TemplateRender(id, err)
	}

	out, err := tpl.Execute(renderContext(data))
	if err != nil {
		return "", dpcerrors.TemplateRender(id, err)
	}

	e.logger.Debug("Rendered template", logfields.Template(id), slog.Int("bytes", len(out)))
	return out, nil
}

func (e *Engine) resolve(id string) (string, error) {
	name := strings.TrimLeft(filepath.ToSlash(id), "/")
	if name == "" || !fs.ValidPath(name) || path.Clean(name) != name {
		return "", dpcerrors.TemplateNotFound(id, fmt.Errorf("invalid template identifier"))
	}
	info, err := fs.Stat(e.fsys, name)
	if err != nil {
		return "", dpcerrors.TemplateNotFound(id, err)
	}
	if info.IsDir() {
		return "", dpcerrors.TemplateNotFound(id, fmt.Errorf("%s is a directory", name))
	}
	return name, nil
}

// newSet builds a template set that can only see this engine's filters.
func (e *Engine) newSet() (*pongo2.TemplateSet, error) {
	set := pongo2.NewSet("dirprocess", pongo2.NewFSLoader(e.fsys))

	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, name := range boundNames() {
		if _, enabled := e.filters[name]; enabled {
			continue
		}
		if err := set.BanFilter(name); err != nil {
			return nil, err
		}
	}
	return set, nil
}

var identifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// renderContext exposes data keys at the top level and the whole mapping as
// "data", unless data already defines that key. Keys that are not valid
// identifiers are reachable through "data" only.
func renderContext(data map[string]any) pongo2.Context {
	if len(data) == 0 {
		return nil
	}
	ctx := make(pongo2.Context, len(data)+1)
	for k, v := range data {
		if identifier.MatchString(k) {
			ctx[k] = v
		}
	}
	if _, ok := data["data"]; !ok {
		ctx["data"] = data
	}
	return ctx
}
