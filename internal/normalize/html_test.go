//go:build !notidy

package normalize

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTMLNormalize(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		width int
	}{
		{
			name: "indents block structure",
			in:   "<div><p>Hello <strong>world</strong></p><ul><li>a</li><li>b</li></ul></div>",
			want: "<div>\n  <p>Hello <strong>world</strong></p>\n  <ul>\n    <li>a</li>\n    <li>b</li>\n  </ul>\n</div>\n",
		},
		{
			name: "repairs unclosed elements",
			in:   "<div><p>unclosed",
			want: "<div>\n  <p>unclosed</p>\n</div>\n",
		},
		{
			name: "repairs misnested inline elements",
			in:   "<p><b>bold <i>both</b> italic</i></p>",
			want: "<p><b>bold <i>both</i></b><i> italic</i></p>\n",
		},
		{
			name:  "wraps long lines",
			in:    "<p>aaaa bbbb cccc dddd eeee</p>",
			want:  "<p>aaaa bbbb cccc\ndddd eeee</p>\n",
			width: 20,
		},
		{
			name:  "does not break inside tags",
			in:    `<p><a href="x" title="a b c">link text here</a></p>`,
			want:  "<p><a href=\"x\" title=\"a b c\">link\ntext here</a></p>\n",
			width: 30,
		},
		{
			name: "collapses whitespace",
			in:   "<p>\n   spaced\t\tout   </p>",
			want: "<p>spaced out</p>\n",
		},
		{
			name: "void elements use xhtml syntax",
			in:   `<p>a<br>b<img src="x.png" alt=""></p>`,
			want: "<p>a<br />b<img src=\"x.png\" alt=\"\" /></p>\n",
		},
		{
			name: "keeps pre verbatim",
			in:   "<div><pre>  line 1\n    line 2</pre></div>",
			want: "<div>\n  <pre>  line 1\n    line 2</pre>\n</div>\n",
		},
		{
			name: "does not escape script content",
			in:   "<script>if (a < b) { x(); }</script>",
			want: "<script>if (a < b) { x(); }</script>\n",
		},
		{
			name: "escapes text and attributes",
			in:   `<p title="a &quot;q&quot;">1 &lt; 2 &amp; 3</p>`,
			want: "<p title=\"a &quot;q&quot;\">1 &lt; 2 &amp; 3</p>\n",
		},
		{
			name: "top-level text and blocks",
			in:   "intro <em>text</em><p>para</p>tail",
			want: "intro <em>text</em>\n<p>para</p>\ntail\n",
		},
		{
			name: "full document",
			in:   "<!DOCTYPE html><html><head><title>T</title></head><body><p>x</p></body></html>",
			want: "<!DOCTYPE html>\n<html>\n  <head>\n    <title>T</title>\n  </head>\n  <body>\n    <p>x</p>\n  </body>\n</html>\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []Option{}
			if tt.width != 0 {
				opts = append(opts, WithWidth(tt.width))
			}
			got := NewHTML(opts...).Normalize(context.Background(), tt.in)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestHTMLNormalizeIsStable(t *testing.T) {
	h := NewHTML()
	in := "<section><h1>T</h1><div><p>one</p><p>two <a href=\"#\">x</a></p></div></section>"
	once := h.Normalize(context.Background(), in)
	require.Equal(t, once, h.Normalize(context.Background(), once))
}

func TestHTMLNormalizeFailsOpen(t *testing.T) {
	h := NewHTML()

	require.Equal(t, "", h.Normalize(context.Background(), ""))
	require.Equal(t, "  \n", h.Normalize(context.Background(), "  \n"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, "<p>x", h.Normalize(ctx, "<p>x"))
}

func TestWrap(t *testing.T) {
	require.Equal(t, []string{"short"}, wrap("short", 10))
	require.Equal(t, []string{"no wrap at all"}, wrap("no wrap at all", 0))
	require.Equal(t, []string{"averyveryverylongword", "x"}, wrap("averyveryverylongword x", 5))
	require.Equal(t, []string{"a\nb c d e f"}, wrap("a\nb c d e f", 3))

	long := strings.Repeat("é ", 10)
	for _, l := range wrap(strings.TrimSpace(long), 5) {
		require.LessOrEqual(t, len([]rune(l)), 5)
	}
}

func TestIsDocument(t *testing.T) {
	require.True(t, isDocument("  <!doctype html><p>x</p>"))
	require.True(t, isDocument("<HTML><body></body></HTML>"))
	require.False(t, isDocument("<div>fragment</div>"))
}
