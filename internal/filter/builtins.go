package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/dirprocess/internal/markdown"
)

// ugcPolicy is safe for concurrent use once configured.
var ugcPolicy = bluemonday.UGCPolicy()

func markdownFn(in, _ string) (string, error) {
	return markdown.Transform(in), nil
}

func sanitizeFn(in, _ string) (string, error) {
	return ugcPolicy.Sanitize(in), nil
}

func padFn(in, param string) (string, error) {
	parts := strings.SplitN(param, ",", 3)
	length, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return "", fmt.Errorf("pad: invalid length %q", parts[0])
	}
	pad := " "
	if len(parts) > 1 && parts[1] != "" {
		pad = parts[1]
	}
	side := "right"
	if len(parts) > 2 {
		side = strings.ToLower(strings.TrimSpace(parts[2]))
	}

	missing := length - utf8.RuneCountInString(in)
	if missing <= 0 {
		return in, nil
	}
	switch side {
	case "right":
		return in + fill(pad, missing), nil
	case "left":
		return fill(pad, missing) + in, nil
	case "both":
		left := missing / 2
		return fill(pad, left) + in + fill(pad, missing-left), nil
	default:
		return "", fmt.Errorf("pad: unknown side %q", side)
	}
}

// fill repeats pad and truncates the result to n runes.
func fill(pad string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(strings.Repeat(pad, n/utf8.RuneCountInString(pad)+1))
	return string(r[:n])
}

// delimited matches /pattern/flags.
var delimited = regexp.MustCompile(`^/(.*)/([imsU]*)$`)

func compilePattern(p string) (*regexp.Regexp, error) {
	if m := delimited.FindStringSubmatch(p); m != nil {
		p = m[1]
		if m[2] != "" {
			p = "(?" + m[2] + ")" + p
		}
	}
	return regexp.Compile(p)
}

func regexReplaceFn(in, param string) (string, error) {
	pattern, repl := splitPair(param)
	if pattern == "" {
		return in, nil
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return "", fmt.Errorf("regex_replace: %w", err)
	}
	return re.ReplaceAllString(in, repl), nil
}

func strReplaceFn(in, param string) (string, error) {
	search, repl := splitPair(param)
	if search == "" {
		return in, nil
	}
	return strings.ReplaceAll(in, search, repl), nil
}

// innerPunct is punctuation kept when it sits between two letters or digits,
// as in URLs, numbers and contractions.
const innerPunct = `.,:;'-_/\@&#%*?!`

// StripPunctuationString removes punctuation that is not part of a word,
// number or URL and collapses whitespace. Slashes become underscores and
// apostrophes are dropped.
func StripPunctuationString(s string) string {
	rs := []rune(html.UnescapeString(s))
	var b strings.Builder
	b.Grow(len(rs))
	for i, r := range rs {
		switch {
		case unicode.In(r, unicode.Z, unicode.Cc, unicode.Cf, unicode.Cs, unicode.Pi, unicode.Pf):
			b.WriteByte(' ')
		case unicode.IsPunct(r):
			if strings.ContainsRune(innerPunct, r) && between(rs, i) {
				b.WriteRune(r)
			} else {
				b.WriteByte(' ')
			}
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	out = strings.ReplaceAll(out, "/", "_")
	return strings.ReplaceAll(out, "'", "")
}

func between(rs []rune, i int) bool {
	if i == 0 || i == len(rs)-1 {
		return false
	}
	return isWordRune(rs[i-1]) && isWordRune(rs[i+1])
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// HTMLIDString lowercases text, strips punctuation and diacritics, and joins
// words with dashes.
func HTMLIDString(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, StripPunctuationString(s))
	if err != nil {
		folded = StripPunctuationString(s)
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), "-")
}
