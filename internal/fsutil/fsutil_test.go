package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteStringCreatesParents(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "a", "b", "out.html")

	require.NoError(t, WriteString(dst, "one"))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "one", string(got))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	require.Equal(t, FileMode, info.Mode().Perm())
}

func TestWriteStringReplacesAndKeepsMode(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.html")
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o600))

	require.NoError(t, WriteString(dst, "new"))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "new", string(got))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files left behind")
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.css")
	require.NoError(t, os.WriteFile(src, []byte("body{}"), 0o600))

	dst := filepath.Join(dir, "out", "src.css")
	require.NoError(t, CopyFile(src, dst))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "body{}", string(got))

	require.Error(t, CopyFile(filepath.Join(dir, "missing"), dst))
}

func TestWithin(t *testing.T) {
	tests := []struct {
		root, path string
		want       bool
	}{
		{"/in", "/in/a/b.twig", true},
		{"/in", "/in", true},
		{"/in/", "/in/x", true},
		{"/in", "/input/x", false},
		{"/in", "/out/x", false},
		{"/in", "/in/../etc", false},
		{"/in", "/in/..data/x", true},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Within(tt.root, tt.path), "%s in %s", tt.path, tt.root)
	}
}
