// Package markdown converts Markdown text to HTML for the md template filter.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

// converter is safe for concurrent use once constructed.
var converter = goldmark.New(
	goldmark.WithRendererOptions(
		// Inline HTML in sources is passed through as classic Markdown does.
		html.WithUnsafe(),
		html.WithXHTML(),
	),
)

// Transform converts Markdown to HTML. It never fails: if the renderer reports
// an error the input is returned unchanged.
func Transform(text string) string {
	if text == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := converter.Convert([]byte(text), &buf); err != nil {
		return text
	}
	return buf.String()
}
