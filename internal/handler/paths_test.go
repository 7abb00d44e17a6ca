package handler

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	dpcerrors "git.home.luguber.info/inful/dirprocess/internal/errors"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name   string
		source string
		ext    string
		want   string
	}{
		{"nested strip only", "/in/a/b.tpl", "", "/out/a/b"},
		{"nested with extension", "/in/a/b.tpl", "html", "/out/a/b.html"},
		{"root level", "/in/index.twig", "html", "/out/index.html"},
		{"extension already present", "/in/index.html.twig", "html", "/out/index.html"},
		{"extension with dot", "/in/page.twig", ".htm", "/out/page.htm"},
		{"other inner extension", "/in/feed.xml.twig", "html", "/out/feed.xml.html"},
		{"dotfile keeps name", "/in/.twig", "html", "/out/.twig.html"},
		{"unclean source", "/in/a/../c/d.twig", "", "/out/c/d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OutputPath("/in", "/out", filepath.FromSlash(tt.source), tt.ext)
			require.NoError(t, err)
			require.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}

func TestOutputPathOutsideRoot(t *testing.T) {
	for _, source := range []string{"/elsewhere/x.twig", "/in", "/in/../x.twig", "/input/x.twig"} {
		_, err := OutputPath("/in", "/out", source, "html")
		require.Error(t, err, source)
		require.True(t, dpcerrors.IsCategory(err, dpcerrors.CategoryValidation), source)
	}
}

func TestTemplateID(t *testing.T) {
	id, err := TemplateID("/in/", filepath.FromSlash("/in/a/b.tpl"))
	require.NoError(t, err)
	require.Equal(t, "/a/b.tpl", id)

	id, err = TemplateID("/in", filepath.FromSlash("/in/index.twig"))
	require.NoError(t, err)
	require.Equal(t, "/index.twig", id)

	_, err = TemplateID("/in", "/other/index.twig")
	require.Error(t, err)
}
