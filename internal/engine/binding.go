package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/flosch/pongo2/v6"

	"git.home.luguber.info/inful/dirprocess/internal/filter"
)

// pongo2 keeps a single process-wide filter table. Every filter an engine may
// enable is bound there once; engines ban the ones they have not enabled.
var (
	bindMu sync.Mutex
	bound  = map[string]*filter.Filter{}
)

func init() {
	for _, f := range filter.Catalogue() {
		if err := bind(f); err != nil {
			panic(err)
		}
	}
}

// Bind makes custom filters available to engines. pongo2's filter table is
// not synchronized with rendering, so Bind must be called before templates
// are rendered concurrently; engines created later only enable them.
func Bind(filters ...*filter.Filter) error {
	for _, f := range filters {
		if f == nil || f.Fn == nil {
			return fmt.Errorf("filter has no implementation")
		}
		if err := bind(f); err != nil {
			return err
		}
	}
	return nil
}

func bind(f *filter.Filter) error {
	bindMu.Lock()
	defer bindMu.Unlock()

	if existing, ok := bound[f.Name]; ok {
		if existing == f {
			return nil
		}
		return fmt.Errorf("filter %q is already bound to a different implementation", f.Name)
	}
	if pongo2.FilterExists(f.Name) {
		return fmt.Errorf("filter %q shadows a built-in filter", f.Name)
	}
	if err := pongo2.RegisterFilter(f.Name, adapt(f)); err != nil {
		return err
	}
	bound[f.Name] = f
	return nil
}

func boundNames() []string {
	bindMu.Lock()
	defer bindMu.Unlock()
	names := make([]string, 0, len(bound))
	for name := range bound {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func adapt(f *filter.Filter) pongo2.FilterFunction {
	return func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		out, err := f.Apply(in.String(), param.String())
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + f.Name, OrigError: err}
		}
		if f.Safe {
			return pongo2.AsSafeValue(out), nil
		}
		return pongo2.AsValue(out), nil
	}
}
