// Package fsutil writes pipeline outputs atomically.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// FileMode is applied to newly created output files. Existing files keep
// their mode.
const FileMode os.FileMode = 0o644

// DirMode is used for created parent directories.
const DirMode os.FileMode = 0o755

// WriteFile atomically replaces path with the contents of r, creating parent
// directories as needed. Readers never observe a partially written file.
func WriteFile(path string, r io.Reader) error {
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), DirMode); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	_, statErr := os.Stat(path)
	existed := statErr == nil

	if err := atomic.WriteFile(path, r); err != nil {
		return err
	}
	if !existed {
		if err := os.Chmod(path, FileMode); err != nil {
			return fmt.Errorf("set output file mode: %w", err)
		}
	}
	return nil
}

// WriteString is WriteFile for in-memory content.
func WriteString(path, content string) error {
	return WriteFile(path, strings.NewReader(content))
}

// CopyFile copies src to dst atomically.
func CopyFile(src, dst string) error {
	// #nosec G304 -- src comes from walking the configured input root.
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return WriteFile(dst, f)
}

// Within reports whether path is root or lies below it. Both are cleaned
// before comparison.
func Within(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
