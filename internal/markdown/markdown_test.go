package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransform(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"emphasis", "**world**", "<p><strong>world</strong></p>\n"},
		{"heading", "# Title", "<h1>Title</h1>\n"},
		{"list", "- a\n- b\n", "<ul>\n<li>a</li>\n<li>b</li>\n</ul>\n"},
		{"inline html passes through", "a <span>b</span>", "<p>a <span>b</span></p>\n"},
		{"xhtml break", "a  \nb", "<p>a<br />\nb</p>\n"},
		{"rule", "---", "<hr />\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Transform(tt.in))
		})
	}
}

func TestTransformDeterministic(t *testing.T) {
	in := strings.Repeat("Some *text* with [a link](https://example.com).\n\n", 20)
	first := Transform(in)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, Transform(in))
	}
}
