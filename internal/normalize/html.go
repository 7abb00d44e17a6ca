//go:build !notidy

package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/dirprocess/internal/logfields"
)

// HTML is the in-process normalizer. It parses with the HTML5 algorithm, which
// closes unclosed and misnested elements, and prints the tree with two-space
// indentation and XHTML void elements.
type HTML struct {
	width  int
	logger *slog.Logger
}

// NewHTML creates the in-process normalizer.
func NewHTML(opts ...Option) *HTML {
	return newHTML(buildOptions(opts))
}

func newHTML(o options) *HTML {
	return &HTML{width: o.width, logger: o.logger}
}

// Name implements Normalizer.
func (h *HTML) Name() string { return "html" }

// Normalize implements Normalizer.
func (h *HTML) Normalize(ctx context.Context, markup string) (out string) {
	if strings.TrimSpace(markup) == "" || ctx.Err() != nil {
		return markup
	}
	defer func() {
		if r := recover(); r != nil {
			h.logger.Warn("HTML normalizer panicked, keeping input",
				logfields.Stage("normalize"), slog.String("panic", fmt.Sprint(r)))
			out = markup
		}
	}()

	nodes, err := parse(markup)
	if err != nil {
		h.logger.Debug("HTML normalizer could not parse input", logfields.Stage("normalize"), logfields.Error(err))
		return markup
	}

	p := printer{width: h.width}
	p.blocks(nodes, 0)
	if p.buf.Len() == 0 {
		return markup
	}
	return p.buf.String()
}

func isDocument(markup string) bool {
	head := strings.ToLower(strings.TrimSpace(markup))
	return strings.HasPrefix(head, "<!doctype") || strings.Contains(head, "<html")
}

func parse(markup string) ([]*html.Node, error) {
	if isDocument(markup) {
		doc, err := html.Parse(strings.NewReader(markup))
		if err != nil {
			return nil, err
		}
		var nodes []*html.Node
		for c := doc.FirstChild; c != nil; c = c.NextSibling {
			nodes = append(nodes, c)
		}
		return nodes, nil
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	return html.ParseFragment(strings.NewReader(markup), body)
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"body": true, "caption": true, "col": true, "colgroup": true, "dd": true,
	"details": true, "dialog": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "head": true, "header": true, "hgroup": true, "hr": true,
	"html": true, "legend": true, "li": true, "link": true, "main": true,
	"meta": true, "nav": true, "noscript": true, "ol": true, "optgroup": true,
	"option": true, "p": true, "pre": true, "script": true, "section": true,
	"style": true, "summary": true, "table": true, "tbody": true, "td": true,
	"template": true, "tfoot": true, "th": true, "thead": true, "title": true,
	"tr": true, "ul": true,
}

// Content of these elements is printed as parsed.
var verbatimElements = map[string]bool{
	"pre": true, "script": true, "style": true, "textarea": true,
}

// Children of these elements are not escaped.
var rawTextElements = map[string]bool{
	"script": true, "style": true,
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

func isBlock(n *html.Node) bool {
	switch n.Type {
	case html.ElementNode:
		return blockElements[n.Data] || hasBlockChild(n)
	case html.CommentNode, html.DoctypeNode:
		return true
	}
	return false
}

func hasBlockChild(n *html.Node) bool {
	if verbatimElements[n.Data] {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (blockElements[c.Data] || hasBlockChild(c)) {
			return true
		}
	}
	return false
}

type printer struct {
	buf   strings.Builder
	width int
}

// blocks prints sibling nodes at depth. Runs of inline content share a line.
func (p *printer) blocks(nodes []*html.Node, depth int) {
	var run strings.Builder
	flush := func() {
		if line := strings.TrimSpace(run.String()); line != "" {
			p.line(line, depth)
		}
		run.Reset()
	}

	for _, n := range nodes {
		if !isBlock(n) {
			run.WriteString(inline(n, false))
			continue
		}
		flush()
		switch {
		case n.Type == html.ElementNode && hasBlockChild(n):
			p.line(openTag(n), depth)
			p.blocks(children(n), depth+1)
			p.line("</"+n.Data+">", depth)
		default:
			p.line(inline(n, false), depth)
		}
	}
	flush()
}

func (p *printer) line(s string, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, l := range wrap(s, p.width-utf8.RuneCountInString(indent)) {
		p.buf.WriteString(indent)
		p.buf.WriteString(l)
		p.buf.WriteByte('\n')
	}
}

func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// inline renders n on a single logical line. verbatim keeps whitespace.
func inline(n *html.Node, verbatim bool) string {
	switch n.Type {
	case html.TextNode:
		if verbatim {
			return escapeText(n.Data)
		}
		return collapse(escapeText(n.Data))
	case html.CommentNode:
		return "<!--" + n.Data + "-->"
	case html.DoctypeNode:
		return doctype(n)
	case html.ElementNode:
	default:
		return ""
	}

	if voidElements[n.Data] {
		return strings.TrimSuffix(openTag(n), ">") + " />"
	}

	var inner strings.Builder
	keep := verbatim || verbatimElements[n.Data]
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && rawTextElements[n.Data] {
			inner.WriteString(c.Data)
			continue
		}
		inner.WriteString(inline(c, keep))
	}
	content := inner.String()
	if !keep && blockElements[n.Data] {
		content = strings.TrimSpace(content)
	}
	return openTag(n) + content + "</" + n.Data + ">"
}

func openTag(n *html.Node) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(n.Data)
	for _, a := range n.Attr {
		b.WriteByte(' ')
		if a.Namespace != "" {
			b.WriteString(a.Namespace)
			b.WriteByte(':')
		}
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(escapeAttr(a.Val))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	return b.String()
}

func doctype(n *html.Node) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE ")
	b.WriteString(n.Data)
	var public, system string
	for _, a := range n.Attr {
		switch a.Key {
		case "public":
			public = a.Val
		case "system":
			system = a.Val
		}
	}
	if public != "" {
		b.WriteString(` PUBLIC "` + public + `"`)
		if system != "" {
			b.WriteString(` "` + system + `"`)
		}
	} else if system != "" {
		b.WriteString(` SYSTEM "` + system + `"`)
	}
	b.WriteByte('>')
	return b.String()
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

func escapeText(s string) string { return textEscaper.Replace(s) }
func escapeAttr(s string) string { return attrEscaper.Replace(s) }

// collapse replaces runs of whitespace with one space, keeping a single
// leading or trailing space when present.
func collapse(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) && r != '\u00a0' {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	if space {
		b.WriteByte(' ')
	}
	return b.String()
}

// wrap breaks s at spaces outside tags so that lines fit in width runes where
// possible. Lines holding verbatim newlines are not wrapped.
func wrap(s string, width int) []string {
	if width < 1 || utf8.RuneCountInString(s) <= width || strings.Contains(s, "\n") {
		return []string{s}
	}

	var words []string
	inTag := false
	start := 0
	for i, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case r == ' ' && !inTag:
			words = append(words, s[start:i])
			start = i + 1
		}
	}
	words = append(words, s[start:])

	var lines []string
	current := ""
	for _, w := range words {
		switch {
		case w == "":
			continue
		case current == "":
			current = w
		case utf8.RuneCountInString(current)+1+utf8.RuneCountInString(w) <= width:
			current += " " + w
		default:
			lines = append(lines, current)
			current = w
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
