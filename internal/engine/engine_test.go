package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	dpcerrors "git.home.luguber.info/inful/dirprocess/internal/errors"
	"git.home.luguber.info/inful/dirprocess/internal/filter"
	"git.home.luguber.info/inful/dirprocess/internal/markdown"
)

func newTestEngine(t *testing.T, files map[string]string, opts ...Option) *Engine {
	t.Helper()
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	e, err := New(append([]Option{WithFS(fsys)}, opts...)...)
	require.NoError(t, err)
	return e
}

func TestRenderMarkdownFilter(t *testing.T) {
	e := newTestEngine(t, map[string]string{"hello.twig": "Hello {{ name|md }}"})

	out, err := e.Render("/hello.twig", map[string]any{"name": "**world**"})
	require.NoError(t, err)
	require.Contains(t, out, "<strong>world</strong>")
	require.Equal(t, "Hello "+markdown.Transform("**world**"), out)
}

func TestRenderMarkdownFilterMatchesTransform(t *testing.T) {
	inputs := []string{
		"plain text",
		"# Heading\n\nParagraph with `code` & <em>html</em>.",
		"- one\n- two\n",
		"",
	}
	e := newTestEngine(t, map[string]string{"x.twig": "{{ x|md }}"})
	for _, in := range inputs {
		out, err := e.Render("x.twig", map[string]any{"x": in})
		require.NoError(t, err)
		require.Equal(t, markdown.Transform(in), out, in)
	}
}

func TestRenderWithoutData(t *testing.T) {
	e := newTestEngine(t, map[string]string{"static.twig": "<p>static</p>{{ missing }}"})

	out, err := e.Render("/static.twig", nil)
	require.NoError(t, err)
	require.Equal(t, "<p>static</p>", out)

	out, err = e.Render("/static.twig", map[string]any{})
	require.NoError(t, err)
	require.Equal(t, "<p>static</p>", out)
}

func TestRenderContext(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"ctx.twig": "{{ title }}|{{ data.title }}|{{ data.nested.k }}",
	})
	out, err := e.Render("ctx.twig", map[string]any{
		"title":   "T",
		"nested":  map[string]any{"k": "v"},
		"bad-key": "only via data",
	})
	require.NoError(t, err)
	require.Equal(t, "T|T|v", out)

	e = newTestEngine(t, map[string]string{"own.twig": "{{ data }}"})
	out, err = e.Render("own.twig", map[string]any{"data": "mine"})
	require.NoError(t, err)
	require.Equal(t, "mine", out)
}

func TestRenderEscapesUnsafeValues(t *testing.T) {
	e := newTestEngine(t, map[string]string{"esc.twig": "{{ v }}"})
	out, err := e.Render("esc.twig", map[string]any{"v": "<b>"})
	require.NoError(t, err)
	require.Equal(t, "&lt;b&gt;", out)
}

func TestRenderNestedAndIncludes(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"a/b.tpl":             `{% include "partials/head.tpl" %}body`,
		"a/partials/head.tpl": "head-",
	})
	out, err := e.Render("/a/b.tpl", nil)
	require.NoError(t, err)
	require.Equal(t, "head-body", out)
}

func TestRenderResolutionErrors(t *testing.T) {
	e := newTestEngine(t, map[string]string{"dir/x.twig": "x"})

	for _, id := range []string{"/missing.twig", "/../etc/passwd", "", "/dir", "/dir/./x.twig"} {
		_, err := e.Render(id, nil)
		require.Error(t, err, id)
		require.True(t, dpcerrors.IsCategory(err, dpcerrors.CategoryTemplate), "%s: %v", id, err)
	}
}

func TestRenderErrors(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"syntax.twig":  "{% if %}",
		"include.twig": `{% include "nope.twig" %}`,
		"banned.twig":  "{{ x|html_id }}",
		"pad.twig":     `{{ x|pad:"wide" }}`,
	}, WithFilters(filter.Pad))

	for _, id := range []string{"syntax.twig", "include.twig", "banned.twig", "pad.twig"} {
		_, err := e.Render(id, map[string]any{"x": "y"})
		require.Error(t, err, id)
		require.True(t, dpcerrors.IsCategory(err, dpcerrors.CategoryRender), "%s: %v", id, err)
	}
}

func TestOptionalFilters(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"f.twig": `{{ title|html_id }}/{{ n|pad:"3,0,left" }}`,
	}, WithFilters(filter.HTMLID, filter.Pad))

	out, err := e.Render("f.twig", map[string]any{"title": "Hello World", "n": 7})
	require.NoError(t, err)
	require.Equal(t, "hello-world/007", out)
}

func TestRegisterFilter(t *testing.T) {
	e := newTestEngine(t, map[string]string{"c.twig": "{{ v|engine_test_upper }}"})

	upper, err := filter.New("engine_test_upper", "", func(in, _ string) (string, error) {
		return strings.ToUpper(in), nil
	})
	require.NoError(t, err)

	require.NoError(t, e.RegisterFilter(upper))
	require.NoError(t, e.RegisterFilter(upper))

	other, err := filter.New("engine_test_upper", "", func(in, _ string) (string, error) { return in, nil })
	require.NoError(t, err)
	require.Error(t, e.RegisterFilter(other))

	clash, err := filter.New("upper", "", func(in, _ string) (string, error) { return in, nil })
	require.NoError(t, err)
	require.Error(t, e.RegisterFilter(clash))

	out, err := e.Render("c.twig", map[string]any{"v": "shout"})
	require.NoError(t, err)
	require.Equal(t, "SHOUT", out)

	// Another engine does not see the filter.
	e2 := newTestEngine(t, map[string]string{"c.twig": "{{ v|engine_test_upper }}"})
	_, err = e2.Render("c.twig", map[string]any{"v": "shout"})
	require.True(t, dpcerrors.IsCategory(err, dpcerrors.CategoryRender))
}

func TestNewWithTemplateRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "page.twig"), []byte("ok {{ n }}"), 0o600))

	e, err := New(WithTemplateRoot(dir))
	require.NoError(t, err)
	out, err := e.Render("/sub/page.twig", map[string]any{"n": 1})
	require.NoError(t, err)
	require.Equal(t, "ok 1", out)

	_, err = New()
	require.True(t, dpcerrors.IsCategory(err, dpcerrors.CategoryConfig))

	_, err = New(WithTemplateRoot(filepath.Join(dir, "absent")))
	require.Error(t, err)

	_, err = New(WithTemplateRoot(filepath.Join(dir, "sub", "page.twig")))
	require.True(t, dpcerrors.IsCategory(err, dpcerrors.CategoryValidation))
}

func TestBind(t *testing.T) {
	title, err := filter.New("engine_test_bind", "", func(in, _ string) (string, error) { return "[" + in + "]", nil })
	require.NoError(t, err)
	require.NoError(t, Bind(title))
	require.NoError(t, Bind(title))
	require.Contains(t, boundNames(), "engine_test_bind")

	// Bound but not enabled: banned on engines that did not ask for it.
	e := newTestEngine(t, map[string]string{"b.twig": "{{ v|engine_test_bind }}"})
	_, err = e.Render("b.twig", map[string]any{"v": "x"})
	require.True(t, dpcerrors.IsCategory(err, dpcerrors.CategoryRender))

	require.NoError(t, e.RegisterFilter(title))
	out, err := e.Render("b.twig", map[string]any{"v": "x"})
	require.NoError(t, err)
	require.Equal(t, "[x]", out)

	require.Error(t, Bind(&filter.Filter{Name: "engine_test_nil"}))
}
