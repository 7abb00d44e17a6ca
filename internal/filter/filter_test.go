package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalogueSortedAndLookup(t *testing.T) {
	names := make([]string, 0)
	for _, f := range Catalogue() {
		names = append(names, f.Name)
		got, ok := Lookup(f.Name)
		require.True(t, ok)
		require.Same(t, f, got)
	}
	require.Equal(t, []string{"html_id", "md", "pad", "regex_replace", "sanitize", "str_replace", "strip_punctuation"}, names)

	_, ok := Lookup("sum")
	require.False(t, ok)
}

func TestResolve(t *testing.T) {
	got, err := Resolve([]string{"pad", " html_id ", "pad", ""})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Same(t, Pad, got[0])
	require.Same(t, HTMLID, got[1])

	_, err = Resolve([]string{"nope"})
	require.ErrorContains(t, err, `unknown filter "nope"`)
}

func TestNew(t *testing.T) {
	upper := func(in, _ string) (string, error) { return strings.ToUpper(in), nil }

	f, err := New("shout", "upper-case", upper)
	require.NoError(t, err)
	out, err := f.Apply("hi", "")
	require.NoError(t, err)
	require.Equal(t, "HI", out)

	_, err = New("1bad", "", upper)
	require.Error(t, err)
	_, err = New("nofn", "", nil)
	require.Error(t, err)
}

func TestMarkdownFilter(t *testing.T) {
	out, err := Markdown.Apply("**world**", "")
	require.NoError(t, err)
	require.Equal(t, "<p><strong>world</strong></p>\n", out)
	require.True(t, Markdown.Safe)
}

func TestPad(t *testing.T) {
	tests := []struct {
		in, param, want string
	}{
		{"7", "3,0,left", "007"},
		{"ab", "5", "ab   "},
		{"ab", "6,*,both", "**ab**"},
		{"ab", "5,-,both", "-ab--"},
		{"abc", "7,xy", "abcxyxy"},
		{"toolong", "3", "toolong"},
		{"é", "3,.,right", "é.."},
	}
	for _, tt := range tests {
		t.Run(tt.in+"|"+tt.param, func(t *testing.T) {
			out, err := Pad.Apply(tt.in, tt.param)
			require.NoError(t, err)
			require.Equal(t, tt.want, out)
		})
	}

	_, err := Pad.Apply("x", "wide")
	require.Error(t, err)
	_, err = Pad.Apply("x", "4, ,middle")
	require.Error(t, err)
}

func TestRegexReplace(t *testing.T) {
	out, err := RegexReplace.Apply("2024-01-15", `(\d+)-(\d+)-(\d+),$3.$2.$1`)
	require.NoError(t, err)
	require.Equal(t, "15.01.2024", out)

	out, err = RegexReplace.Apply("Hello HELLO", "/hello/i,bye")
	require.NoError(t, err)
	require.Equal(t, "bye bye", out)

	out, err = RegexReplace.Apply("unchanged", "")
	require.NoError(t, err)
	require.Equal(t, "unchanged", out)

	_, err = RegexReplace.Apply("x", "(,y")
	require.Error(t, err)
}

func TestStrReplace(t *testing.T) {
	out, err := StrReplace.Apply("a-b-c", "-,+")
	require.NoError(t, err)
	require.Equal(t, "a+b+c", out)

	out, err = StrReplace.Apply("a, b", ",,;")
	require.NoError(t, err)
	require.Equal(t, "a; b", out)

	out, err = StrReplace.Apply("abc", "b")
	require.NoError(t, err)
	require.Equal(t, "ac", out)
}

func TestStripPunctuation(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello, World!", "Hello World"},
		{"It's 3.5 / 4", "Its 3.5 4"},
		{"“Quoted” (text)", "Quoted text"},
		{"see example.com/docs", "see example.com_docs"},
		{"Fish &amp; Chips", "Fish Chips"},
		{"  many   spaces  ", "many spaces"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, StripPunctuationString(tt.in), tt.in)
	}
}

func TestHTMLID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"Héllo, Wörld!", "hello-world"},
		{"Section 2.1: Setup", "section-2.1-setup"},
		{"", ""},
	}
	for _, tt := range tests {
		out, err := HTMLID.Apply(tt.in, "")
		require.NoError(t, err)
		require.Equal(t, tt.want, out, tt.in)
	}
}

func TestSanitize(t *testing.T) {
	out, err := Sanitize.Apply(`<p onclick="x()">ok<script>alert(1)</script></p>`, "")
	require.NoError(t, err)
	require.Equal(t, "<p>ok</p>", out)
	require.True(t, Sanitize.Safe)
}
