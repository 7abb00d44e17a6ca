// Package filter defines the string transforms that templates can apply with
// the pipe syntax, for example {{ body|md }}.
//
// Filters are values with identity: two filters are the same binding only when
// they are the same *Filter. The catalogue below is fixed at build time; custom
// filters are created with New and registered on an engine.
package filter

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Func is the implementation of a filter. param is the filter argument as a
// string, empty when the template passes none.
type Func func(in, param string) (string, error)

// Filter is a named string transform.
type Filter struct {
	Name        string
	Description string
	// Usage documents the argument, empty for argument-less filters.
	Usage string
	// Safe marks the output as markup that must not be auto-escaped.
	Safe bool
	Fn   Func
}

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// New creates a custom filter. The name must be a valid template identifier.
func New(name, description string, fn Func) (*Filter, error) {
	if !namePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid filter name %q", name)
	}
	if fn == nil {
		return nil, fmt.Errorf("filter %q has no implementation", name)
	}
	return &Filter{Name: name, Description: description, Fn: fn}, nil
}

// Apply runs the filter.
func (f *Filter) Apply(in, param string) (string, error) {
	return f.Fn(in, param)
}

// Markdown is the md filter. It is enabled on every template engine.
var Markdown = &Filter{
	Name:        "md",
	Description: "Convert Markdown to HTML",
	Safe:        true,
	Fn:          markdownFn,
}

var (
	Pad = &Filter{
		Name:        "pad",
		Description: "Pad a string to a length",
		Usage:       `"length[,pad[,left|right|both]]"`,
		Fn:          padFn,
	}
	RegexReplace = &Filter{
		Name:        "regex_replace",
		Description: "Replace regular expression matches",
		Usage:       `"pattern,replacement"`,
		Fn:          regexReplaceFn,
	}
	StrReplace = &Filter{
		Name:        "str_replace",
		Description: "Replace every occurrence of a substring",
		Usage:       `"search,replacement"`,
		Fn:          strReplaceFn,
	}
	HTMLID = &Filter{
		Name:        "html_id",
		Description: "Build an HTML id attribute value from text",
		Fn:          func(in, _ string) (string, error) { return HTMLIDString(in), nil },
	}
	StripPunctuation = &Filter{
		Name:        "strip_punctuation",
		Description: "Remove punctuation that is not part of a word or number",
		Fn:          func(in, _ string) (string, error) { return StripPunctuationString(in), nil },
	}
	Sanitize = &Filter{
		Name:        "sanitize",
		Description: "Strip unsafe HTML, keeping user-content markup",
		Safe:        true,
		Fn:          sanitizeFn,
	}
)

var catalogue = map[string]*Filter{
	Markdown.Name:         Markdown,
	Pad.Name:              Pad,
	RegexReplace.Name:     RegexReplace,
	StrReplace.Name:       StrReplace,
	HTMLID.Name:           HTMLID,
	StripPunctuation.Name: StripPunctuation,
	Sanitize.Name:         Sanitize,
}

// Catalogue returns the built-in filters sorted by name.
func Catalogue() []*Filter {
	out := make([]*Filter, 0, len(catalogue))
	for _, f := range catalogue {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a built-in filter by name.
func Lookup(name string) (*Filter, bool) {
	f, ok := catalogue[name]
	return f, ok
}

// Resolve maps configured names to built-in filters. Duplicates are dropped.
func Resolve(names []string) ([]*Filter, error) {
	seen := make(map[string]bool, len(names))
	out := make([]*Filter, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" || seen[name] {
			continue
		}
		f, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown filter %q", name)
		}
		seen[name] = true
		out = append(out, f)
	}
	return out, nil
}

// splitPair splits "a,b" on the last comma. A missing comma yields an empty
// second value.
func splitPair(param string) (string, string) {
	i := strings.LastIndex(param, ",")
	if i < 0 {
		return param, ""
	}
	return param[:i], param[i+1:]
}
